// Package coap is the constrained request/response front-end. It speaks
// the hub protocol: CBOR payloads with integer map keys over UDP, angles
// reported directly in degrees plus the coarse category code.
package coap

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/thermovent/ventd/internal/vent"
)

// Position is the GET /vent/position response.
type Position struct {
	Angle int   `cbor:"0,keyasint"`
	State uint8 `cbor:"1,keyasint"`
}

// TargetRequest is the PUT /vent/target payload.
type TargetRequest struct {
	Angle int `cbor:"0,keyasint"`
}

// TargetResponse acknowledges a target change with the applied (clamped)
// target, the new category and the pre-command angle.
type TargetResponse struct {
	Angle         int   `cbor:"0,keyasint"`
	State         uint8 `cbor:"1,keyasint"`
	PreviousAngle int   `cbor:"2,keyasint"`
}

// Identity is the GET /device/identity response.
type Identity struct {
	EUI64           string `cbor:"0,keyasint"`
	FirmwareVersion string `cbor:"1,keyasint"`
	UptimeS         int    `cbor:"2,keyasint"`
}

// Config is the GET/PUT /device/config payload. Absent fields are left
// untouched on PUT.
type Config struct {
	Room  *string `cbor:"0,keyasint,omitempty"`
	Floor *string `cbor:"1,keyasint,omitempty"`
	Name  *string `cbor:"2,keyasint,omitempty"`
}

// Health is the GET /device/health response.
type Health struct {
	RSSI         int    `cbor:"0,keyasint"`
	PollPeriodMs int    `cbor:"1,keyasint"`
	PowerSource  uint8  `cbor:"2,keyasint"`
	FreeHeap     uint64 `cbor:"3,keyasint"`
	BatteryMV    *int   `cbor:"4,keyasint,omitempty"`
}

func encode(v interface{}) ([]byte, error) {
	return cbor.Marshal(v)
}

func decode(data []byte, v interface{}) error {
	return cbor.Unmarshal(data, v)
}

// stateCode maps a category to its wire code.
func stateCode(c vent.Category) uint8 {
	return uint8(c)
}
