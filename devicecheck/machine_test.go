package devicecheck

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-focus/backup"
	"github.com/moffa90/go-focus/firmware"
	"github.com/moffa90/go-focus/focus"
	"github.com/moffa90/go-focus/neuron"
)

// fakeProber answers probes from fixed values and records the calls.
type fakeProber struct {
	mu         sync.Mutex
	connected  map[focus.Side]bool
	connErr    error
	bootloader map[focus.Side]bool
	version    string
	backupErr  error
	calls      []string
}

func newFakeProber() *fakeProber {
	return &fakeProber{
		connected:  map[focus.Side]bool{focus.SideLeft: true, focus.SideRight: true},
		bootloader: map[focus.Side]bool{},
		version:    "v1.2.0",
	}
}

func (p *fakeProber) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *fakeProber) SideConnected(_ context.Context, side focus.Side) (bool, error) {
	p.record(fmt.Sprintf("connected %s", side))
	if p.connErr != nil {
		return false, p.connErr
	}
	return p.connected[side], nil
}

func (p *fakeProber) SideBootloader(_ context.Context, side focus.Side) (bool, error) {
	p.record(fmt.Sprintf("bootloader %s", side))
	return p.bootloader[side], nil
}

func (p *fakeProber) FirmwareVersion(context.Context) (string, error) {
	p.record("version")
	return p.version, nil
}

func (p *fakeProber) CaptureBackup(_ context.Context, device *focus.Device) (BackupResult, error) {
	p.record("backup")
	if p.backupErr != nil {
		return BackupResult{}, p.backupErr
	}
	payload := backup.NewEnvelope(
		[]backup.Entry{{Command: "keymap.custom", Data: backup.StringValue("0 1 2")}},
		neuron.Record{ID: "n-1", Name: device.Name()},
	)
	return BackupResult{Payload: payload}, nil
}

func (p *fakeProber) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakeProber) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}

var fullPipeline = []string{
	"connected left", "connected right",
	"bootloader left", "bootloader right",
	"version", "backup",
}

func defyDevice() *focus.Device {
	return &focus.Device{Path: "/dev/ttyACM0", Info: focus.Info{Product: "Defy", KeyboardType: "wireless"}}
}

// snapshotLog collects every snapshot the machine publishes.
type snapshotLog struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (l *snapshotLog) add(s Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snaps = append(l.snaps, s)
}

func (l *snapshotLog) all() []Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Snapshot(nil), l.snaps...)
}

func TestNewPanics(t *testing.T) {
	assert.Panics(t, func() { New(nil, nil, newFakeProber()) })
	assert.Panics(t, func() { New(defyDevice(), nil, nil) })
}

func TestChecksPass(t *testing.T) {
	prober := newFakeProber()
	prober.bootloader[focus.SideRight] = true
	log := &snapshotLog{}

	m := New(defyDevice(), nil, prober, WithTransitionCallback(log.add))
	snap, err := m.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateAwaitingConfirmation, snap.State)
	assert.Equal(t, fullPipeline, prober.Calls())
	assert.True(t, snap.Context.SideLeftOK)
	assert.True(t, snap.Context.SideRightOK)
	assert.False(t, snap.Context.SideLeftBL)
	assert.True(t, snap.Context.SideRightBL)
	assert.NotNil(t, snap.Context.Backup)
	assert.Equal(t, 6, snap.Context.StateBlock)
	assert.True(t, snap.Context.Ready())
	assert.NoError(t, snap.Err)

	assert.Equal(t, []Event{EventPressed, EventCancel}, m.Actions())
}

func TestBackupCapturedBeforeConfirmation(t *testing.T) {
	log := &snapshotLog{}
	m := New(defyDevice(), nil, newFakeProber(), WithTransitionCallback(log.add))

	_, err := m.Start(context.Background())
	require.NoError(t, err)

	reached := false
	for _, s := range log.all() {
		if s.State == StateAwaitingConfirmation {
			reached = true
			assert.NotNil(t, s.Context.Backup)
		}
	}
	assert.True(t, reached)
}

func TestStateBlockProgress(t *testing.T) {
	log := &snapshotLog{}
	m := New(defyDevice(), nil, newFakeProber(), WithTransitionCallback(log.add))

	_, err := m.Start(context.Background())
	require.NoError(t, err)

	var blocks []int
	for _, s := range log.all() {
		if s.State != StateChecking {
			continue
		}
		if len(blocks) == 0 || blocks[len(blocks)-1] != s.Context.StateBlock {
			blocks = append(blocks, s.Context.StateBlock)
		}
		assert.Equal(t, s.Context.StateBlock > 4, s.Context.Ready())
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, blocks)
}

func TestBothHalvesDisconnected(t *testing.T) {
	prober := newFakeProber()
	prober.connected = map[focus.Side]bool{}

	m := New(defyDevice(), nil, prober)
	snap, err := m.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateError, snap.State)
	assert.False(t, snap.Context.SideLeftOK)
	assert.False(t, snap.Context.SideRightOK)
	assert.NotContains(t, prober.Calls(), "bootloader left")
	assert.NotContains(t, prober.Calls(), "bootloader right")
	assert.NotContains(t, m.Actions(), EventPressed)

	snap, err = m.Send(context.Background(), EventPressed)
	require.Error(t, err)
	assert.True(t, IsRejectedEvent(err))
	assert.Equal(t, StateError, snap.State)
}

func TestOneHalfDisconnected(t *testing.T) {
	prober := newFakeProber()
	prober.connected[focus.SideRight] = false

	m := New(defyDevice(), nil, prober)
	snap, err := m.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, []string{"connected left", "connected right", "bootloader left", "version", "backup"}, prober.Calls())
	assert.Equal(t, 6, snap.Context.StateBlock)
}

func TestProbeErrorStopsPipeline(t *testing.T) {
	prober := newFakeProber()
	prober.connErr = errors.New("port closed")

	m := New(defyDevice(), nil, prober)
	snap, err := m.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, []string{"connected left"}, prober.Calls())

	var probeErr *ProbeError
	require.ErrorAs(t, snap.Err, &probeErr)
	assert.Equal(t, StepLeftConnected, probeErr.Step)
	assert.Equal(t, 0, snap.Context.StateBlock)
}

func TestRetryRerunsEveryProbe(t *testing.T) {
	prober := newFakeProber()
	prober.backupErr = errors.New("read timeout")
	log := &snapshotLog{}

	m := New(defyDevice(), nil, prober, WithTransitionCallback(log.add))
	snap, err := m.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateError, snap.State)
	assert.Nil(t, snap.Context.Backup)
	assert.True(t, snap.Context.SideLeftOK)
	assert.Equal(t, []Event{EventRetry, EventCancel}, m.Actions())

	prober.Reset()
	prober.backupErr = nil
	seen := len(log.all())

	snap, err = m.Send(context.Background(), EventRetry)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingConfirmation, snap.State)
	assert.Equal(t, fullPipeline, prober.Calls())

	// The first snapshot after RETRY starts from a clean slate.
	first := log.all()[seen]
	assert.Equal(t, StateChecking, first.State)
	assert.False(t, first.Context.SideLeftOK)
	assert.False(t, first.Context.SideRightOK)
	assert.Zero(t, first.Context.StateBlock)
	assert.NoError(t, first.Err)
}

func TestUnibodySkipsHalves(t *testing.T) {
	prober := newFakeProber()
	prober.connected = map[focus.Side]bool{}
	raise := &focus.Device{Info: focus.Info{Product: "Raise"}}

	m := New(raise, nil, prober)
	snap, err := m.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateAwaitingConfirmation, snap.State)
	assert.Equal(t, []string{"version", "backup"}, prober.Calls())
	assert.True(t, snap.Context.BothSidesOK())
	assert.Equal(t, 6, snap.Context.StateBlock)
}

func TestCustomUnibodyProducts(t *testing.T) {
	prober := newFakeProber()
	m := New(defyDevice(), nil, prober, WithUnibodyProducts("Defy"))

	_, err := m.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"version", "backup"}, prober.Calls())
}

func TestIsUpdated(t *testing.T) {
	tests := []struct {
		name      string
		firmwares firmware.Set
		installed string
		want      bool
	}{
		{name: "matching", firmwares: firmware.Set{firmware.ImageNeuron: {Version: "1.2.0"}}, installed: "v1.2.0", want: true},
		{name: "older", firmwares: firmware.Set{firmware.ImageNeuron: {Version: "1.3.0"}}, installed: "v1.2.0", want: false},
		{name: "no firmware", installed: "v1.2.0", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prober := newFakeProber()
			prober.version = tt.installed

			m := New(defyDevice(), tt.firmwares, prober)
			snap, err := m.Start(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, snap.Context.IsUpdated)
			assert.Equal(t, tt.installed, snap.Context.InstalledVersion)
		})
	}
}

func TestFlashingWithoutFlasher(t *testing.T) {
	m := New(defyDevice(), nil, newFakeProber())
	_, err := m.Start(context.Background())
	require.NoError(t, err)

	snap, err := m.Send(context.Background(), EventPressed)
	require.NoError(t, err)
	assert.Equal(t, StateFlashing, snap.State)
	assert.Equal(t, []Event{EventFlashed, EventFlashFailed}, m.Actions())

	snap, err = m.Send(context.Background(), EventFlashed)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, snap.State)
	assert.True(t, snap.State.Terminal())
	assert.Empty(t, m.Actions())

	_, err = m.Send(context.Background(), EventRetry)
	assert.True(t, IsRejectedEvent(err))
}

func TestFlasher(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var flashed Context
		m := New(defyDevice(), nil, newFakeProber(), WithFlasher(FlasherFunc(func(_ context.Context, c Context) error {
			flashed = c
			return nil
		})))
		_, err := m.Start(context.Background())
		require.NoError(t, err)

		snap, err := m.Send(context.Background(), EventPressed)
		require.NoError(t, err)
		assert.Equal(t, StateSuccess, snap.State)
		assert.NotNil(t, flashed.Backup)
	})

	t.Run("failure", func(t *testing.T) {
		prober := newFakeProber()
		m := New(defyDevice(), nil, prober, WithFlasher(FlasherFunc(func(context.Context, Context) error {
			return errors.New("bootloader timeout")
		})))
		_, err := m.Start(context.Background())
		require.NoError(t, err)

		snap, err := m.Send(context.Background(), EventPressed)
		require.NoError(t, err)
		assert.Equal(t, StateError, snap.State)

		var flashErr *FlashError
		require.ErrorAs(t, snap.Err, &flashErr)

		prober.Reset()
		snap, err = m.Send(context.Background(), EventRetry)
		require.NoError(t, err)
		assert.Equal(t, StateAwaitingConfirmation, snap.State)
		assert.Equal(t, fullPipeline, prober.Calls())
		assert.NoError(t, snap.Err)
	})
}

func TestCancel(t *testing.T) {
	m := New(defyDevice(), nil, newFakeProber())
	_, err := m.Start(context.Background())
	require.NoError(t, err)

	snap, err := m.Send(context.Background(), EventCancel)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, snap.State)
	assert.True(t, snap.State.Terminal())
}

func TestStartAndSendOrdering(t *testing.T) {
	m := New(defyDevice(), nil, newFakeProber())

	_, err := m.Send(context.Background(), EventRetry)
	assert.True(t, IsRejectedEvent(err), "events before Start are rejected")
	assert.Empty(t, m.Actions())

	_, err = m.Start(context.Background())
	require.NoError(t, err)

	_, err = m.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	_, err = m.Send(context.Background(), eventChecksDone)
	assert.True(t, IsRejectedEvent(err), "CHECKS_DONE is internal")
	assert.Equal(t, StateAwaitingConfirmation, m.State())
}
