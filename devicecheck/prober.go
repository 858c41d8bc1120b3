package devicecheck

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/moffa90/go-focus/backup"
	"github.com/moffa90/go-focus/focus"
	"github.com/moffa90/go-focus/neuron"
)

// BackupResult is the outcome of the backup probe.
type BackupResult struct {
	Payload *backup.Payload

	// Path is where the backup was written, if it was written
	Path string
}

// Prober performs the individual device checks. Calls are never concurrent.
type Prober interface {
	SideConnected(ctx context.Context, side focus.Side) (bool, error)
	SideBootloader(ctx context.Context, side focus.Side) (bool, error)
	FirmwareVersion(ctx context.Context) (string, error)
	CaptureBackup(ctx context.Context, device *focus.Device) (BackupResult, error)
}

// FocusProber implements Prober with Focus commands.
type FocusProber struct {
	exec    focus.Executor
	store   neuron.Store
	folder  *backup.Folder
	logger  focus.Logger
	capture []backup.CaptureOption
	now     func() time.Time
}

// ProberOption configures a FocusProber.
type ProberOption func(*FocusProber)

// WithNeuronStore looks the keyboard's neuron record up in store so it can be
// stored alongside the backup. Unknown neurons are registered.
func WithNeuronStore(store neuron.Store) ProberOption {
	return func(p *FocusProber) {
		p.store = store
	}
}

// WithBackupFolder saves every captured backup to folder.
func WithBackupFolder(folder backup.Folder) ProberOption {
	return func(p *FocusProber) {
		p.folder = &folder
	}
}

// WithProberLogger sets a logger for the prober.
func WithProberLogger(logger focus.Logger) ProberOption {
	return func(p *FocusProber) {
		p.logger = logger
	}
}

// WithCaptureOptions passes options through to backup.Capture.
func WithCaptureOptions(opts ...backup.CaptureOption) ProberOption {
	return func(p *FocusProber) {
		p.capture = opts
	}
}

// NewFocusProber returns a Prober that talks to the keyboard through exec.
func NewFocusProber(exec focus.Executor, opts ...ProberOption) *FocusProber {
	if exec == nil {
		panic("executor cannot be nil")
	}
	p := &FocusProber{exec: exec, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SideConnected asks whether the keyscanner on side answers.
func (p *FocusProber) SideConnected(ctx context.Context, side focus.Side) (bool, error) {
	return p.queryBool(ctx, focus.CmdSideConnected, side)
}

// SideBootloader asks whether the keyscanner on side sits in its bootloader.
func (p *FocusProber) SideBootloader(ctx context.Context, side focus.Side) (bool, error) {
	return p.queryBool(ctx, focus.CmdSideBootloader, side)
}

// FirmwareVersion returns the installed firmware version.
func (p *FocusProber) FirmwareVersion(ctx context.Context) (string, error) {
	resp, err := p.exec.Command(ctx, focus.CmdVersion)
	if err != nil {
		return "", err
	}
	// Some firmware appends build details after the version.
	if v := firstField(resp); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("empty version response")
}

// CaptureBackup reads the current settings and wraps them with the
// keyboard's neuron record.
func (p *FocusProber) CaptureBackup(ctx context.Context, device *focus.Device) (BackupResult, error) {
	entries, err := backup.Capture(ctx, p.exec, append([]backup.CaptureOption{backup.WithCaptureLogger(p.logger)}, p.capture...)...)
	if err != nil {
		return BackupResult{}, err
	}

	rec, err := p.neuronRecord(ctx, device)
	if err != nil {
		return BackupResult{}, err
	}

	result := BackupResult{Payload: backup.NewEnvelope(entries, rec)}
	if p.folder != nil {
		path, err := p.folder.Save(rec.ID, result.Payload, p.now())
		if err != nil {
			return BackupResult{}, err
		}
		result.Path = path
		p.logInfo("saved pre-flash backup", "path", path)
	}
	return result, nil
}

func (p *FocusProber) neuronRecord(ctx context.Context, device *focus.Device) (neuron.Record, error) {
	resp, err := p.exec.Command(ctx, focus.CmdHardwareChipID)
	if err != nil {
		return neuron.Record{}, fmt.Errorf("read neuron id: %w", err)
	}
	id := focus.ParseChipID(resp)
	if id == "" {
		return neuron.Record{}, fmt.Errorf("keyboard reported an empty neuron id")
	}

	if p.store == nil {
		return neuron.Record{ID: id, Name: device.Name()}, nil
	}

	rec, err := p.store.Find(ctx, id)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, neuron.ErrNotFound) {
		return neuron.Record{}, err
	}

	rec = neuron.Record{ID: id, Name: device.Name()}
	if err := p.store.Upsert(ctx, rec); err != nil {
		return neuron.Record{}, fmt.Errorf("register neuron: %w", err)
	}
	p.logInfo("registered new neuron", "id", id)
	return rec, nil
}

func (p *FocusProber) queryBool(ctx context.Context, cmd string, side focus.Side) (bool, error) {
	resp, err := p.exec.Command(ctx, focus.BuildCommand(cmd, strconv.Itoa(int(side))))
	if err != nil {
		return false, err
	}
	return focus.ParseBool(resp)
}

func firstField(s string) string {
	if fields := strings.Fields(s); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

func (p *FocusProber) logInfo(msg string, keysAndValues ...any) {
	if p.logger != nil {
		p.logger.Info(msg, keysAndValues...)
	}
}
