package vent

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// StepInterval is the movement cadence: one degree per tick.
const StepInterval = 15 * time.Millisecond

// Gateway is the single entry point into the vent's position state. It
// owns the state machine, the position log and the actuator driver, and
// serializes every command and tick behind one lock so the two protocol
// adapters can never race on the device.
//
// Construction runs the boot-time recovery: the actuator is driven to the
// last known-good checkpoint and, if a move was interrupted by power
// loss, its target is re-accepted so normal ticking completes it.
type Gateway struct {
	name string

	mu       sync.Mutex
	machine  *Machine
	log      *Log
	driver   Driver
	handlers []UpdateHandler
	seq      uint64

	// dispatchMu orders handler dispatch without holding mu, so a slow
	// handler cannot stall commands or ticks.
	dispatchMu sync.Mutex
	dispatched uint64
}

// update is a post-mutation snapshot taken under the lock. The sequence
// number lets dispatch drop a stale snapshot that lost the race to a
// fresher one.
type update struct {
	seq      uint64
	angle    int
	category Category
	handlers []UpdateHandler
}

// NewGateway recovers the durable record and returns a ready gateway.
// An error here means the device cannot determine its position and must
// not accept commands.
func NewGateway(name string, log *Log, driver Driver) (*Gateway, error) {
	rec, err := log.Recover()
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		name:    name,
		machine: NewMachine(rec.Checkpoint),
		log:     log,
		driver:  driver,
	}

	// Drive to the checkpoint first. After an interrupted move the blade
	// may physically sit anywhere between checkpoint and pending target;
	// starting from the checkpoint keeps the excursion stepwise.
	driver.DriveTo(rec.Checkpoint)

	if rec.Committed {
		logrus.Infof("%s: restored checkpoint %d°", name, rec.Checkpoint)
	} else {
		logrus.Warnf("%s: recovery: uncommitted move detected, checkpoint %d°, replaying target %d°", name, rec.Checkpoint, rec.Pending)
		if err := g.machine.AcceptTarget(rec.Pending); err != nil {
			return nil, errors.Wrap(err, "replay pending target")
		}
	}

	return g, nil
}

func (g *Gateway) Name() string {
	return g.name
}

// Subscribe registers a handler invoked after every change to the angle
// or category. Handlers run outside the gateway lock, so an adapter may
// publish from its handler without stalling commands.
func (g *Gateway) Subscribe(h UpdateHandler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handlers = append(g.handlers, h)
}

// Position returns a consistent (angle, category) snapshot.
func (g *Gateway) Position() (int, Category) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.machine.Current(), g.machine.Category()
}

// SetTarget accepts a new target angle and returns the pre-call angle.
// The target is clamped into the travel range; the intent is persisted
// before the machine accepts it, so a command acknowledged here survives
// power loss. On a store error the command is rejected and the runtime
// state is untouched.
func (g *Gateway) SetTarget(target int) (previous int, err error) {
	g.mu.Lock()
	clamped := ClampAngle(target)
	previous = g.machine.Current()

	if err := g.log.WriteAhead(clamped); err != nil {
		g.mu.Unlock()
		return 0, err
	}
	if err := g.machine.AcceptTarget(clamped); err != nil {
		g.mu.Unlock()
		return 0, err
	}

	u := g.snapshotLocked()
	g.mu.Unlock()

	logrus.Infof("%s: target set %d° -> %d°", g.name, previous, clamped)
	g.dispatch(u)
	return previous, nil
}

// Stop cancels any in-flight move and returns the frozen angle. The
// frozen angle is by definition reached, so it is committed immediately.
// The freeze, the drive signal and the subscriber notification happen
// even when the commit write fails: the in-memory state has changed and
// adapters must observe it. Stopping an idle vent re-affirms the commit
// and changes nothing else.
func (g *Gateway) Stop() (int, error) {
	g.mu.Lock()
	angle := g.machine.Stop()
	g.driver.DriveTo(angle)
	commitErr := g.log.Commit(angle)
	u := g.snapshotLocked()
	g.mu.Unlock()

	if commitErr != nil {
		logrus.Errorf("%s: stop commit failed: %s", g.name, commitErr)
	} else {
		logrus.Infof("%s: stopped at %d° (%s)", g.name, angle, u.category)
	}
	g.dispatch(u)
	return angle, commitErr
}

// Tick advances an in-flight move by one degree and drives the actuator.
// When the step reaches the target the commit phase runs before the tick
// returns, under the same lock, so a command arriving mid-step cannot
// interleave with the commit writes. The notification fires even when
// the commit write fails — the angle and category did change, and this
// is the last tick that will see them change. Idle ticks are no-ops.
func (g *Gateway) Tick() error {
	g.mu.Lock()
	if !g.machine.Moving() {
		g.mu.Unlock()
		return nil
	}

	angle, reached := g.machine.Step()
	g.driver.DriveTo(angle)

	var commitErr error
	if reached {
		commitErr = g.log.Commit(angle)
	}

	u := g.snapshotLocked()
	g.mu.Unlock()

	if reached {
		if commitErr != nil {
			logrus.Errorf("%s: commit at %d° failed: %s", g.name, angle, commitErr)
		} else {
			logrus.Infof("%s: reached target %d° (%s), committed", g.name, angle, u.category)
		}
	}
	g.dispatch(u)
	return commitErr
}

// Run ticks the gateway on the movement cadence until ctx is done.
func (g *Gateway) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = StepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Debugf("%s: tick loop exit", g.name)
			return
		case <-ticker.C:
			if err := g.Tick(); err != nil {
				logrus.Errorf("%s: tick failed: %s", g.name, err)
			}
		}
	}
}

// snapshotLocked captures the post-mutation state for dispatch. Callers
// must hold mu.
func (g *Gateway) snapshotLocked() update {
	g.seq++
	return update{
		seq:      g.seq,
		angle:    g.machine.Current(),
		category: g.machine.Category(),
		handlers: g.handlers,
	}
}

// dispatch delivers a snapshot to the subscribers. Snapshots are ordered
// by sequence number: one that lost the race to a fresher snapshot is
// dropped, so a stale publish can never land after a newer one — not
// even at the terminal state of a move.
func (g *Gateway) dispatch(u update) {
	g.dispatchMu.Lock()
	defer g.dispatchMu.Unlock()

	if u.seq <= g.dispatched {
		return
	}
	g.dispatched = u.seq

	for _, h := range u.handlers {
		h(u.angle, u.category)
	}
}
