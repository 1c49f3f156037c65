package servo

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// Serial drives a servo controller board over a serial line. The board
// speaks a one-line ASCII protocol: "<angle>\n" commands the horn angle
// in degrees.
type Serial struct {
	name string
	port io.Writer
}

// OpenSerial opens the named port and returns a ready driver.
func OpenSerial(name, portName string, baudRate int) (*Serial, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, errors.Wrapf(err, "%s: open serial port %s", name, portName)
	}

	logrus.Infof("%s: serial servo on %s (%d baud)", name, portName, baudRate)
	return &Serial{name: name, port: port}, nil
}

// NewSerial wraps an already-open port. Used by tests.
func NewSerial(name string, port io.Writer) *Serial {
	return &Serial{name: name, port: port}
}

func (s *Serial) DriveTo(angle int) {
	if _, err := fmt.Fprintf(s.port, "%d\n", angle); err != nil {
		logrus.Errorf("%s: serial servo write failed: %s", s.name, err)
	}
}
