// Package servo implements vent.Driver for the supported actuator
// hardware: a serial-attached servo controller, a bit-banged RC servo on
// an MCP23017 expander pin, and a log-only driver for bench runs.
package servo

import (
	"github.com/sirupsen/logrus"
)

// SG90 pulse parameters: 50 Hz frame, 500 µs at 0° to 2500 µs at 180°.
const (
	pulseMinUs = 500
	pulseMaxUs = 2500
	periodUs   = 20000
)

// pulseWidthUs converts an angle (0-180) to the servo pulse width.
func pulseWidthUs(angle int) int {
	if angle < 0 {
		angle = 0
	}
	if angle > 180 {
		angle = 180
	}
	return pulseMinUs + (angle*(pulseMaxUs-pulseMinUs))/180
}

// Dumb only logs the commanded angle. Useful on a bench or when running
// the daemon as a simulator.
type Dumb struct {
	Name string
}

func (d *Dumb) DriveTo(angle int) {
	logrus.Infof("%s: dumb servo drive to %d°", d.Name, angle)
}
