package vent

// Vent blade angle limits in degrees. The servo horn is mounted so that
// 90° fully blocks the duct and 180° leaves it fully open.
const (
	AngleClosed = 90
	AngleOpen   = 180
)

// Category is the coarse position classification reported to adapters.
// The wire codes match the firmware protocol enum.
type Category uint8

const (
	CategoryOpen Category = iota
	CategoryClosed
	CategoryPartial
	CategoryMoving
)

func (c Category) String() string {
	switch c {
	case CategoryOpen:
		return "open"
	case CategoryClosed:
		return "closed"
	case CategoryPartial:
		return "partial"
	case CategoryMoving:
		return "moving"
	}
	return "unknown"
}

// CategoryFromAngle classifies a resting angle (no move in progress).
func CategoryFromAngle(angle int) Category {
	switch angle {
	case AngleClosed:
		return CategoryClosed
	case AngleOpen:
		return CategoryOpen
	}
	return CategoryPartial
}

// ClampAngle bounds an angle to [AngleClosed, AngleOpen].
func ClampAngle(angle int) int {
	if angle < AngleClosed {
		return AngleClosed
	}
	if angle > AngleOpen {
		return AngleOpen
	}
	return angle
}

// UpdateHandler receives position change notifications from the Gateway.
type UpdateHandler func(angle int, category Category)

// Driver emits the physical drive signal for a commanded angle.
// Implementations are fire-and-forget: the hardware is assumed to track
// the commanded angle with bounded latency.
type Driver interface {
	DriveTo(angle int)
}
