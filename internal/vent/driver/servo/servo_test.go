package servo

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPulseWidthUs(t *testing.T) {
	assert.Equal(t, 500, pulseWidthUs(0))
	assert.Equal(t, 2500, pulseWidthUs(180))
	assert.Equal(t, 1500, pulseWidthUs(90))

	t.Run("clamps outside servo travel", func(t *testing.T) {
		assert.Equal(t, 500, pulseWidthUs(-10))
		assert.Equal(t, 2500, pulseWidthUs(200))
	})

	t.Run("monotonic over the vent range", func(t *testing.T) {
		prev := pulseWidthUs(90)
		for angle := 91; angle <= 180; angle++ {
			cur := pulseWidthUs(angle)
			assert.Greater(t, cur, prev)
			prev = cur
		}
	})
}

func TestSerialDriveTo(t *testing.T) {
	var buf bytes.Buffer
	s := NewSerial("vent", &buf)

	s.DriveTo(135)
	s.DriveTo(90)

	assert.Equal(t, "135\n90\n", buf.String())
}

type fakePin struct {
	mu    sync.Mutex
	highs int
	state bool
}

func (p *fakePin) High() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.highs++
	p.state = true
	return nil
}

func (p *fakePin) Low() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = false
	return nil
}

func (p *fakePin) pulses() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.highs
}

func TestWiredGeneratesPulses(t *testing.T) {
	pin := &fakePin{}
	w := NewWired("vent", pin)
	defer w.Close()

	w.DriveTo(135)
	time.Sleep(100 * time.Millisecond)

	// 50 Hz frame: expect at least a couple of pulses in 100ms.
	assert.GreaterOrEqual(t, pin.pulses(), 2)
}

func TestWiredCloseReleasesPin(t *testing.T) {
	pin := &fakePin{}
	w := NewWired("vent", pin)

	time.Sleep(25 * time.Millisecond)
	w.Close()
	w.Close() // safe to call twice
	time.Sleep(25 * time.Millisecond)

	pin.mu.Lock()
	defer pin.mu.Unlock()
	assert.False(t, pin.state)
}
