package servo

import (
	"sync"
	"time"

	"github.com/racerxdl/go-mcp23017"
	"github.com/sirupsen/logrus"
)

// SetPin is a single output pin the PWM generator toggles.
type SetPin interface {
	High() error
	Low() error
}

type Mcp23017Pin struct {
	device *mcp23017.Device
	pin    uint8
}

func NewMcp23017Pin(device *mcp23017.Device, pin uint8) (p *Mcp23017Pin, err error) {
	p = &Mcp23017Pin{}
	p.device = device
	p.pin = pin
	err = p.device.PinMode(pin, mcp23017.OUTPUT)
	return p, err
}

func (m *Mcp23017Pin) High() error {
	return m.device.DigitalWrite(m.pin, mcp23017.HIGH)
}

func (m *Mcp23017Pin) Low() error {
	return m.device.DigitalWrite(m.pin, mcp23017.LOW)
}

// Wired bit-bangs the 50 Hz RC servo signal on a SetPin from a
// background goroutine. I2C expander latency makes the pulse timing
// coarse, which is tolerable for an airflow blade.
type Wired struct {
	name string
	pin  SetPin

	mu      sync.Mutex
	pulseUs int

	stop chan struct{}
	once sync.Once
}

func NewWired(name string, pin SetPin) *Wired {
	w := &Wired{
		name:    name,
		pin:     pin,
		pulseUs: pulseWidthUs(90),
		stop:    make(chan struct{}),
	}
	go w.generate()
	return w
}

func (w *Wired) DriveTo(angle int) {
	w.mu.Lock()
	w.pulseUs = pulseWidthUs(angle)
	w.mu.Unlock()
}

// Close stops the PWM goroutine and releases the pin.
func (w *Wired) Close() {
	w.once.Do(func() { close(w.stop) })
}

func (w *Wired) generate() {
	for {
		select {
		case <-w.stop:
			if err := w.pin.Low(); err != nil {
				logrus.Errorf("%s: wired servo pin release failed: %s", w.name, err)
			}
			return
		default:
		}

		w.mu.Lock()
		pulse := w.pulseUs
		w.mu.Unlock()

		if err := w.pin.High(); err != nil {
			logrus.Errorf("%s: wired servo pin high failed: %s", w.name, err)
		}
		time.Sleep(time.Duration(pulse) * time.Microsecond)
		if err := w.pin.Low(); err != nil {
			logrus.Errorf("%s: wired servo pin low failed: %s", w.name, err)
		}
		time.Sleep(time.Duration(periodUs-pulse) * time.Microsecond)
	}
}
