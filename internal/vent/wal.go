package vent

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/thermovent/ventd/internal/store"
)

// Store keys for the position log. Not an append-only log: three fixed
// keys are overwritten in place, so storage stays constant no matter how
// many commands are processed.
//
//	angle  — checkpoint: last committed (known-good) angle
//	target — intent: target recorded before the move starts
//	wal    — commit flag: 1 = committed, 0 = pending
const (
	keyCheckpoint = "angle"
	keyTarget     = "target"
	keyCommitted  = "wal"
)

// Log is the write-ahead persistence protocol for vent position.
//
// WriteAhead records the intent before the actuator moves; Commit records
// completion after it reaches the target. The write order inside each
// phase is the crash-safety invariant: intent before flag clear, angle
// before flag set. A crash at any point leaves either a committed record
// (the command is lost, the vent stays at its checkpoint) or an
// uncommitted record with a valid pending target (the move is replayed on
// boot). There is no crash window that loses the checkpoint.
type Log struct {
	store store.Store
}

// Record is the durable position state read back at boot.
type Record struct {
	Checkpoint int
	Pending    int
	Committed  bool
}

func NewLog(s store.Store) *Log {
	return &Log{store: s}
}

// WriteAhead persists the target intent and clears the commit flag.
// Must complete before the actuator starts moving.
func (l *Log) WriteAhead(target int) error {
	if err := l.store.Write(keyTarget, []byte{byte(target)}); err != nil {
		return errors.Wrap(err, "position log: write-ahead target")
	}
	if err := l.store.Write(keyCommitted, []byte{0}); err != nil {
		return errors.Wrap(err, "position log: write-ahead flag")
	}

	return nil
}

// Commit persists the reached angle as the new checkpoint and sets the
// commit flag. Called once the move completes (or is stopped).
func (l *Log) Commit(angle int) error {
	if err := l.store.Write(keyCheckpoint, []byte{byte(angle)}); err != nil {
		return errors.Wrap(err, "position log: commit checkpoint")
	}
	if err := l.store.Write(keyCommitted, []byte{1}); err != nil {
		return errors.Wrap(err, "position log: commit flag")
	}

	return nil
}

// Recover reads the durable record. A device that has never persisted
// anything boots closed and committed. A read failure here is fatal for
// the caller: without the record the device cannot know its position.
func (l *Log) Recover() (Record, error) {
	rec := Record{Checkpoint: AngleClosed, Pending: AngleClosed, Committed: true}

	flag, found, err := l.store.Read(keyCommitted)
	if err != nil {
		return Record{}, errors.Wrap(err, "position log: read commit flag")
	}
	if found {
		rec.Committed = len(flag) == 1 && flag[0] == 1
	}

	checkpoint, found, err := l.store.Read(keyCheckpoint)
	if err != nil {
		return Record{}, errors.Wrap(err, "position log: read checkpoint")
	}
	if found && len(checkpoint) == 1 {
		rec.Checkpoint = ClampAngle(int(checkpoint[0]))
	}

	pending, found, err := l.store.Read(keyTarget)
	if err != nil {
		return Record{}, errors.Wrap(err, "position log: read pending target")
	}
	if found && len(pending) == 1 {
		rec.Pending = ClampAngle(int(pending[0]))
	} else if !rec.Committed {
		// Should be unreachable given the write order, but a record
		// claiming an interrupted move with no target is not worth
		// trusting.
		logrus.Warn("position log: uncommitted record without pending target, treating as committed")
		rec.Committed = true
		rec.Pending = rec.Checkpoint
	}

	return rec, nil
}
