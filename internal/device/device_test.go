package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thermovent/ventd/internal/store"
)

func TestDeviceIdentityIsStable(t *testing.T) {
	s := store.NewMemory()

	d1, err := New(s)
	require.NoError(t, err)
	assert.NotEmpty(t, d1.EUI64())

	d2, err := New(s)
	require.NoError(t, err)
	assert.Equal(t, d1.EUI64(), d2.EUI64())
}

func TestDeviceConfig(t *testing.T) {
	s := store.NewMemory()
	d, err := New(s)
	require.NoError(t, err)

	t.Run("empty before assignment", func(t *testing.T) {
		cfg, err := d.Config()
		require.NoError(t, err)
		assert.Equal(t, Config{}, cfg)
	})

	t.Run("partial update keeps other fields", func(t *testing.T) {
		require.NoError(t, d.SetConfig(Config{Room: "living_room", Floor: "1"}))
		require.NoError(t, d.SetConfig(Config{Name: "vent-a"}))

		cfg, err := d.Config()
		require.NoError(t, err)
		assert.Equal(t, "living_room", cfg.Room)
		assert.Equal(t, "1", cfg.Floor)
		assert.Equal(t, "vent-a", cfg.Name)
	})

	t.Run("config survives restart", func(t *testing.T) {
		d2, err := New(s)
		require.NoError(t, err)
		cfg, err := d2.Config()
		require.NoError(t, err)
		assert.Equal(t, "living_room", cfg.Room)
	})
}

func TestDeviceHealth(t *testing.T) {
	d, err := New(store.NewMemory())
	require.NoError(t, err)

	t.Run("usb powered reports no battery", func(t *testing.T) {
		d.Power = PowerUSB
		h := d.Health()
		assert.Equal(t, 0, h.BatteryMV)
		assert.Equal(t, "usb", h.Power.String())
	})

	t.Run("battery powered reports millivolts", func(t *testing.T) {
		d.Power = PowerBattery
		d.PollPeriodMs = 5000
		h := d.Health()
		assert.NotZero(t, h.BatteryMV)
		assert.Equal(t, 5000, h.PollPeriodMs)
		assert.Equal(t, "battery", h.Power.String())
	})
}
