// Package device holds everything about the device that is not its vent
// position: the stable EUI-64 identity, the persisted room/floor/name
// assignment and the health snapshot reported to the hub.
package device

import (
	"crypto/rand"
	"fmt"
	"net"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/thermovent/ventd/internal/store"
)

// Version is stamped by the build; the default marks dev builds.
var Version = "0.1.0-dev"

const (
	keyEUI64 = "eui64"
	keyInit  = "init"
	keyRoom  = "room"
	keyFloor = "floor"
	keyName  = "name"
)

// PowerSource reports how the device is powered.
type PowerSource uint8

const (
	PowerUSB PowerSource = iota
	PowerBattery
)

func (p PowerSource) String() string {
	if p == PowerBattery {
		return "battery"
	}
	return "usb"
}

// Device is the identity and metadata manager. Config writes go straight
// through to the store; the device stays assignable after restarts.
type Device struct {
	store store.Store

	eui64   string
	started time.Time

	Power        PowerSource
	PollPeriodMs int
}

// New loads or establishes the device identity. The EUI-64 is derived
// from the first hardware MAC on first boot and persisted so it never
// changes, even if interfaces do.
func New(s store.Store) (*Device, error) {
	d := &Device{store: s, started: time.Now()}

	eui, found, err := s.Read(keyEUI64)
	if err != nil {
		return nil, errors.Wrap(err, "device: read eui64")
	}
	if found {
		d.eui64 = string(eui)
	} else {
		d.eui64 = deriveEUI64()
		if err := s.Write(keyEUI64, []byte(d.eui64)); err != nil {
			return nil, errors.Wrap(err, "device: persist eui64")
		}
	}

	if _, found, err = s.Read(keyInit); err == nil && !found {
		logrus.Info("device: first boot detected, initializing defaults")
		if err := s.Write(keyInit, []byte{1}); err != nil {
			logrus.Warnf("device: failed to mark initialized: %s", err)
		}
	}

	logrus.Infof("device: EUI-64 %s", d.eui64)
	return d, nil
}

// deriveEUI64 expands the first hardware MAC to an EUI-64 with the
// standard ff:fe insertion. Falls back to a random identifier on hosts
// with no usable interface.
func deriveEUI64() string {
	ifaces, err := net.Interfaces()
	if err == nil {
		for _, iface := range ifaces {
			if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) != 6 {
				continue
			}
			mac := iface.HardwareAddr
			eui := []byte{mac[0], mac[1], mac[2], 0xff, 0xfe, mac[3], mac[4], mac[5]}
			return formatEUI64(eui)
		}
	}

	random := make([]byte, 8)
	if _, err := rand.Read(random); err != nil {
		logrus.Warnf("device: random eui64 fallback failed: %s", err)
	}
	return formatEUI64(random)
}

func formatEUI64(b []byte) string {
	out := ""
	for i, v := range b {
		if i > 0 {
			out += ":"
		}
		out += fmt.Sprintf("%02x", v)
	}
	return out
}

func (d *Device) EUI64() string {
	return d.eui64
}

func (d *Device) UptimeSeconds() int {
	return int(time.Since(d.started).Seconds())
}

// Config is the user assignment of the device. Empty fields are unset.
type Config struct {
	Room  string
	Floor string
	Name  string
}

// Config reads the persisted assignment.
func (d *Device) Config() (Config, error) {
	var cfg Config
	for _, field := range []struct {
		key string
		dst *string
	}{
		{keyRoom, &cfg.Room},
		{keyFloor, &cfg.Floor},
		{keyName, &cfg.Name},
	} {
		value, found, err := d.store.Read(field.key)
		if err != nil {
			return Config{}, errors.Wrapf(err, "device: read %s", field.key)
		}
		if found {
			*field.dst = string(value)
		}
	}

	return cfg, nil
}

// SetConfig applies partial updates: only non-empty fields are written.
func (d *Device) SetConfig(cfg Config) error {
	for _, field := range []struct {
		key   string
		value string
	}{
		{keyRoom, cfg.Room},
		{keyFloor, cfg.Floor},
		{keyName, cfg.Name},
	} {
		if field.value == "" {
			continue
		}
		if err := d.store.Write(field.key, []byte(field.value)); err != nil {
			return errors.Wrapf(err, "device: write %s", field.key)
		}
	}

	logrus.Infof("device: config updated: room=%q floor=%q name=%q", cfg.Room, cfg.Floor, cfg.Name)
	return nil
}

// Health is the snapshot reported to the hub.
type Health struct {
	RSSI         int
	PollPeriodMs int
	Power        PowerSource
	FreeHeap     uint64
	BatteryMV    int // 0 when USB powered
}

// Health samples the current device health. RSSI is not measurable off
// the mesh radio, so it reads 0 here.
func (d *Device) Health() Health {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	h := Health{
		PollPeriodMs: d.PollPeriodMs,
		Power:        d.Power,
		FreeHeap:     mem.HeapIdle,
	}
	if d.Power == PowerBattery {
		h.BatteryMV = 3300
	}
	return h
}
