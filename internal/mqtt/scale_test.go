package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScaleToAngle(t *testing.T) {
	t.Run("endpoints are exact", func(t *testing.T) {
		assert.Equal(t, 180, ScaleToAngle(0))
		assert.Equal(t, 90, ScaleToAngle(10000))
	})

	t.Run("midpoint", func(t *testing.T) {
		assert.Equal(t, 135, ScaleToAngle(5000))
	})

	t.Run("out of range clamps to the endpoints", func(t *testing.T) {
		assert.Equal(t, 180, ScaleToAngle(-5))
		assert.Equal(t, 90, ScaleToAngle(20000))
	})

	t.Run("near-endpoint values stay off the limits", func(t *testing.T) {
		assert.Equal(t, 179, ScaleToAngle(1))
		assert.Equal(t, 91, ScaleToAngle(9999))
	})

	t.Run("monotonic: larger scale never yields a larger angle", func(t *testing.T) {
		prev := ScaleToAngle(0)
		for scale := 1; scale <= 10000; scale++ {
			cur := ScaleToAngle(scale)
			assert.LessOrEqual(t, cur, prev, "scale %d", scale)
			prev = cur
		}
	})
}

func TestAngleToScale(t *testing.T) {
	t.Run("endpoints are exact", func(t *testing.T) {
		assert.Equal(t, 0, AngleToScale(180))
		assert.Equal(t, 10000, AngleToScale(90))
	})

	t.Run("midpoint", func(t *testing.T) {
		assert.Equal(t, 5000, AngleToScale(135))
	})

	t.Run("monotonic: larger angle never yields a larger scale", func(t *testing.T) {
		prev := AngleToScale(90)
		for angle := 91; angle <= 180; angle++ {
			cur := AngleToScale(angle)
			assert.Less(t, cur, prev, "angle %d", angle)
			prev = cur
		}
	})

	t.Run("round trip is lossless from angles", func(t *testing.T) {
		for angle := 90; angle <= 180; angle++ {
			assert.Equal(t, angle, ScaleToAngle(AngleToScale(angle)), "angle %d", angle)
		}
	})
}
