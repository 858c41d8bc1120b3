package devicecheck

import (
	"context"
	"fmt"
	"sync"

	"github.com/moffa90/go-focus/firmware"
	"github.com/moffa90/go-focus/focus"
	"github.com/moffa90/go-focus/metrics"
)

// guard decides whether a transition may be taken.
type guard func(c Context, probeErr error) bool

type transition struct {
	to    State
	guard guard
}

type key struct {
	from  State
	event Event
}

// checksPassed holds when every probe ran, both halves are connected and a
// backup exists.
func checksPassed(c Context, probeErr error) bool {
	return probeErr == nil && c.BothSidesOK() && c.Backup != nil
}

// canFlash is the guard on PRESSED.
func canFlash(c Context, _ error) bool {
	return c.BothSidesOK() && c.Backup != nil
}

var transitions = map[key][]transition{
	{StateChecking, eventChecksDone}: {
		{to: StateAwaitingConfirmation, guard: checksPassed},
		{to: StateError},
	},
	{StateAwaitingConfirmation, EventPressed}: {
		{to: StateFlashing, guard: canFlash},
	},
	{StateAwaitingConfirmation, EventCancel}: {
		{to: StateCancelled},
	},
	{StateError, EventRetry}: {
		{to: StateChecking},
	},
	{StateError, EventCancel}: {
		{to: StateCancelled},
	},
	{StateFlashing, EventFlashed}: {
		{to: StateSuccess},
	},
	{StateFlashing, EventFlashFailed}: {
		{to: StateError},
	},
}

// Machine is the device-check state machine. Start and Send are serialized;
// Snapshot and Actions may be called from any goroutine.
type Machine struct {
	prober Prober
	config Config

	// sendMu serializes Start and Send, which run probes and flashing.
	sendMu  sync.Mutex
	started bool

	mu    sync.RWMutex
	state State
	ctx   Context
	err   error
}

// New creates a machine for device. Probes run on Start.
func New(device *focus.Device, firmwares firmware.Set, prober Prober, opts ...Option) *Machine {
	if device == nil {
		panic("device cannot be nil")
	}
	if prober == nil {
		panic("prober cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Machine{
		prober: prober,
		config: cfg,
		state:  StateChecking,
		ctx: Context{
			Device:    device,
			Firmwares: firmwares,
		},
	}
}

// Start enters checking and runs the probe pipeline. It returns once the
// machine settles in awaitingConfirmation or error.
func (m *Machine) Start(ctx context.Context) (Snapshot, error) {
	m.sendMu.Lock()
	defer m.sendMu.Unlock()

	if m.started {
		return m.Snapshot(), ErrAlreadyStarted
	}
	m.started = true

	m.enter(ctx, StateChecking)
	return m.Snapshot(), nil
}

// Send delivers an external event. On success it returns the snapshot the
// machine settled in, after any entry actions ran. A rejected event leaves
// the machine unchanged and returns a *RejectedEventError.
func (m *Machine) Send(ctx context.Context, ev Event) (Snapshot, error) {
	m.sendMu.Lock()
	defer m.sendMu.Unlock()

	if !m.started || ev == eventChecksDone {
		return m.Snapshot(), &RejectedEventError{State: m.State(), Event: ev}
	}
	if err := m.dispatch(ctx, ev); err != nil {
		return m.Snapshot(), err
	}
	return m.Snapshot(), nil
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Snapshot returns a copy of the current state and context.
func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{State: m.state, Context: m.ctx, Err: m.err}
}

// Actions lists the external events the current state would accept. PRESSED
// is only listed when flashing is allowed.
func (m *Machine) Actions() []Event {
	snap := m.Snapshot()

	var actions []Event
	for _, ev := range []Event{EventPressed, EventRetry, EventCancel, EventFlashed, EventFlashFailed} {
		if _, ok := m.lookup(snap.State, ev, snap.Context, snap.Err); ok {
			actions = append(actions, ev)
		}
	}
	return actions
}

func (m *Machine) lookup(from State, ev Event, c Context, err error) (transition, bool) {
	for _, t := range transitions[key{from, ev}] {
		if t.guard == nil || t.guard(c, err) {
			return t, true
		}
	}
	return transition{}, false
}

// dispatch takes the transition for ev, if any, and runs the target's entry
// action.
func (m *Machine) dispatch(ctx context.Context, ev Event) error {
	snap := m.Snapshot()

	t, ok := m.lookup(snap.State, ev, snap.Context, snap.Err)
	if !ok {
		m.logDebug("event rejected", "state", snap.State, "event", ev)
		return &RejectedEventError{State: snap.State, Event: ev}
	}

	m.logDebug("transition", "from", snap.State, "event", ev, "to", t.to)
	m.enter(ctx, t.to)
	return nil
}

func (m *Machine) enter(ctx context.Context, s State) {
	m.update(func(st *State, c *Context, err *error) {
		*st = s
		if s == StateChecking {
			*c = c.reset()
			*err = nil
		}
	})

	switch s {
	case StateChecking:
		err := m.runProbes(ctx)
		if err != nil {
			m.logError("device check failed", "error", err)
			m.update(func(_ *State, _ *Context, e *error) { *e = err })
		}
		// CHECKS_DONE always has a fallback transition.
		_ = m.dispatch(ctx, eventChecksDone)

	case StateFlashing:
		if m.config.Flasher == nil {
			return
		}
		if err := m.config.Flasher.Flash(ctx, m.Snapshot().Context); err != nil {
			m.logError("flashing failed", "error", err)
			m.update(func(_ *State, _ *Context, e *error) { *e = &FlashError{Err: err} })
			_ = m.dispatch(ctx, EventFlashFailed)
			return
		}
		_ = m.dispatch(ctx, EventFlashed)

	case StateAwaitingConfirmation:
		m.config.Recorder.IncCheckOutcome(metrics.OutcomeSuccess)
		m.logInfo("device checks passed", "device", m.Snapshot().Context.Device.Name())

	case StateError:
		m.config.Recorder.IncCheckOutcome(metrics.OutcomeFailed)

	case StateCancelled:
		m.config.Recorder.IncCheckOutcome(metrics.OutcomeCancelled)
	}
}

// runProbes runs every probe in order, recording each result as it lands.
func (m *Machine) runProbes(ctx context.Context) error {
	device := m.Snapshot().Context.Device

	if device.IsUnibody(m.config.UnibodyProducts) {
		m.logDebug("unibody device, skipping per-half probes", "product", device.Info.Product)
		m.update(func(_ *State, c *Context, _ *error) {
			c.SideLeftOK = true
			c.SideRightOK = true
			c.StateBlock += 4
		})
	} else {
		for _, side := range focus.Sides {
			ok, err := m.prober.SideConnected(ctx, side)
			if err != nil {
				return &ProbeError{Step: connectedStep(side), Err: err}
			}
			m.update(func(_ *State, c *Context, _ *error) {
				c.setSide(side, ok)
				c.StateBlock++
			})
		}

		for _, side := range focus.Sides {
			bl := false
			if m.Snapshot().Context.sideOK(side) {
				var err error
				bl, err = m.prober.SideBootloader(ctx, side)
				if err != nil {
					return &ProbeError{Step: bootloaderStep(side), Err: err}
				}
			}
			m.update(func(_ *State, c *Context, _ *error) {
				c.setBootloader(side, bl)
				c.StateBlock++
			})
		}
	}

	version, err := m.prober.FirmwareVersion(ctx)
	if err != nil {
		return &ProbeError{Step: StepVersion, Err: err}
	}
	m.update(func(_ *State, c *Context, _ *error) {
		c.InstalledVersion = version
		c.IsUpdated = c.Firmwares.UpToDate(version)
		c.StateBlock++
	})

	result, err := m.prober.CaptureBackup(ctx, device)
	if err != nil {
		return &ProbeError{Step: StepBackup, Err: err}
	}
	if result.Payload == nil {
		return &ProbeError{Step: StepBackup, Err: fmt.Errorf("prober returned no backup")}
	}
	m.update(func(_ *State, c *Context, _ *error) {
		c.Backup = result.Payload
		c.BackupPath = result.Path
		c.StateBlock++
	})
	return nil
}

func connectedStep(side focus.Side) Step {
	if side == focus.SideLeft {
		return StepLeftConnected
	}
	return StepRightConnected
}

func bootloaderStep(side focus.Side) Step {
	if side == focus.SideLeft {
		return StepLeftBootloader
	}
	return StepRightBootloader
}

// update applies fn under the state lock and notifies the callback.
func (m *Machine) update(fn func(s *State, c *Context, err *error)) {
	m.mu.Lock()
	fn(&m.state, &m.ctx, &m.err)
	snap := Snapshot{State: m.state, Context: m.ctx, Err: m.err}
	m.mu.Unlock()

	if m.config.OnTransition != nil {
		m.config.OnTransition(snap)
	}
}

func (m *Machine) logDebug(msg string, keysAndValues ...any) {
	if m.config.Logger != nil {
		m.config.Logger.Debug(msg, keysAndValues...)
	}
}

func (m *Machine) logInfo(msg string, keysAndValues ...any) {
	if m.config.Logger != nil {
		m.config.Logger.Info(msg, keysAndValues...)
	}
}

func (m *Machine) logError(msg string, keysAndValues ...any) {
	if m.config.Logger != nil {
		m.config.Logger.Error(msg, keysAndValues...)
	}
}
