package vent

import (
	"github.com/pkg/errors"
)

// Machine tracks the actuator intent and progress as a pair of angles.
// It is purely in-memory and deterministic; persistence and locking are
// the Gateway's job.
type Machine struct {
	current int
	target  int
}

// NewMachine starts the machine resting at the given angle. Out-of-range
// initial angles are clamped so a corrupt checkpoint cannot produce an
// invalid state.
func NewMachine(initial int) *Machine {
	angle := ClampAngle(initial)
	return &Machine{current: angle, target: angle}
}

func (m *Machine) Current() int {
	return m.current
}

func (m *Machine) Target() int {
	return m.target
}

// Moving reports whether a move toward the target is in progress.
func (m *Machine) Moving() bool {
	return m.current != m.target
}

// Category derives the coarse position classification from
// (current, target). It is never stored.
func (m *Machine) Category() Category {
	if m.current != m.target {
		return CategoryMoving
	}
	return CategoryFromAngle(m.current)
}

// AcceptTarget records a new target angle without moving the actuator.
// Callers are expected to clamp first; the machine still rejects anything
// outside the travel range.
func (m *Machine) AcceptTarget(target int) error {
	if target < AngleClosed || target > AngleOpen {
		return errors.Errorf("target %d is out of range [%d, %d]", target, AngleClosed, AngleOpen)
	}

	m.target = target
	return nil
}

// Step advances the current angle by exactly one degree toward the target
// and reports whether the target has been reached. Stepping one degree at
// a time bounds the per-tick excursion so the blade never slams.
func (m *Machine) Step() (angle int, reached bool) {
	if m.current < m.target {
		m.current++
	} else if m.current > m.target {
		m.current--
	}

	return m.current, m.current == m.target
}

// Stop freezes any in-flight move by collapsing the target onto the
// current angle and returns the frozen angle.
func (m *Machine) Stop() int {
	m.target = m.current
	return m.current
}
