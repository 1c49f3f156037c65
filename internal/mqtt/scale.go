package mqtt

import (
	"github.com/thermovent/ventd/internal/vent"
)

// The attribute protocol reports position on a 0-10000 lift scale:
// 0 = fully open, 10000 = fully closed. The vent's own unit is the blade
// angle, 180° open to 90° closed.
const (
	ScaleOpen   = 0
	ScaleClosed = 10000

	angleRange = vent.AngleOpen - vent.AngleClosed // 90
)

// ScaleToAngle converts a lift scale value to a blade angle, rounding
// half-up. Only the exact endpoints 0 and 10000 resolve to the travel
// limits: any strictly intermediate scale yields a strictly intermediate
// angle, so a near-endpoint command never reads back as fully open or
// fully closed.
func ScaleToAngle(scale int) int {
	if scale <= ScaleOpen {
		return vent.AngleOpen
	}
	if scale >= ScaleClosed {
		return vent.AngleClosed
	}

	angle := vent.AngleOpen - (scale*angleRange+ScaleClosed/2)/ScaleClosed
	if angle == vent.AngleOpen {
		angle = vent.AngleOpen - 1
	}
	if angle == vent.AngleClosed {
		angle = vent.AngleClosed + 1
	}
	return angle
}

// AngleToScale is the inverse conversion, with the same endpoint rule.
func AngleToScale(angle int) int {
	angle = vent.ClampAngle(angle)
	if angle == vent.AngleOpen {
		return ScaleOpen
	}
	if angle == vent.AngleClosed {
		return ScaleClosed
	}

	scale := ((vent.AngleOpen-angle)*ScaleClosed + angleRange/2) / angleRange
	if scale == ScaleOpen {
		scale = ScaleOpen + 1
	}
	if scale == ScaleClosed {
		scale = ScaleClosed - 1
	}
	return scale
}
