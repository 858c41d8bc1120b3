package restore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/moffa90/go-focus/backup"
	"github.com/moffa90/go-focus/focus"
	"github.com/moffa90/go-focus/metrics"
	"github.com/moffa90/go-focus/neuron"
)

// Target describes the keyboard a backup is restored to.
type Target struct {
	// NeuronID is the registry identifier of the connected keyboard.
	// Required for envelope backups.
	NeuronID string

	// Supported lists the commands the keyboard's firmware knows, as returned
	// by "help". When set, backup entries for other commands are skipped.
	Supported []string
}

// Engine replays backups through an executor.
//
// Engine is safe for concurrent use after initialization, but the executor
// decides whether concurrent restores to the same device are serialized.
type Engine struct {
	exec   focus.Executor
	config Config
}

// New creates a new Engine issuing commands through exec.
//
// Example:
//
//	engine := restore.New(conn,
//	    restore.WithNeuronStore(store),
//	    restore.WithLogger(logger),
//	)
func New(exec focus.Executor, opts ...Option) *Engine {
	if exec == nil {
		panic("executor cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Engine{
		exec:   exec,
		config: cfg,
	}
}

// Restore replays p onto the target keyboard, dispatching on the payload
// kind. Virtual backups ignore target.
func (e *Engine) Restore(ctx context.Context, p *backup.Payload, target Target) error {
	if p == nil {
		return ErrNoPayload
	}

	switch p.Kind {
	case backup.KindVirtual:
		return e.RestoreVirtual(ctx, p.Virtual)
	case backup.KindSequence, backup.KindEnvelope:
		return e.RestoreBackup(ctx, p, target)
	default:
		return fmt.Errorf("restore: unsupported backup kind %s", p.Kind)
	}
}

// RestoreVirtual issues "<command> <data>" for every eraseable field, in order,
// followed by "led.mode 0". Fields that are not eraseable are never sent.
func (e *Engine) RestoreVirtual(ctx context.Context, fields []backup.Field) error {
	r := e.newRun(backup.KindVirtual)

	var lines []string
	for _, f := range fields {
		if f.Eraseable {
			lines = append(lines, f.Line())
		}
	}

	return r.finish(r.replay(ctx, lines, nil))
}

// RestoreBackup replays a sequence or envelope backup. For envelopes the
// backup's neuron record is first adopted into the registry under
// target.NeuronID; if that fails no command is issued.
func (e *Engine) RestoreBackup(ctx context.Context, p *backup.Payload, target Target) error {
	if p == nil {
		return ErrNoPayload
	}
	if p.Kind != backup.KindSequence && p.Kind != backup.KindEnvelope {
		return fmt.Errorf("restore: %s backup cannot be replayed as a command sequence", p.Kind)
	}

	r := e.newRun(p.Kind)

	if p.Kind == backup.KindEnvelope {
		if err := r.adopt(ctx, p, target); err != nil {
			return r.finish(err)
		}
	}

	var (
		lines   []string
		skipped []string
	)
	for _, entry := range p.Entries {
		if len(target.Supported) > 0 && !slices.Contains(target.Supported, entry.Command) {
			skipped = append(skipped, entry.Command)
			continue
		}
		lines = append(lines, entry.Line())
	}
	if len(skipped) > 0 {
		e.logInfo("skipping commands unknown to the target firmware",
			"run", r.id, "skipped", len(skipped))
	}

	return r.finish(r.replay(ctx, lines, skipped))
}

// run carries the state of a single restore.
type run struct {
	*Engine
	id    string
	kind  backup.Kind
	start time.Time
}

func (e *Engine) newRun(kind backup.Kind) *run {
	r := &run{
		Engine: e,
		id:     uuid.NewString(),
		kind:   kind,
		start:  time.Now(),
	}
	e.logDebug("restore started", "run", r.id, "kind", kind.String())
	return r
}

func (r *run) adopt(ctx context.Context, p *backup.Payload, target Target) error {
	if r.config.NeuronStore == nil {
		return ErrNoNeuronStore
	}
	if target.NeuronID == "" {
		return ErrNoTarget
	}
	// backup.Parse rejects envelopes without a neuron, so this only
	// catches payloads built in code.
	if p.Neuron == nil {
		return ErrNoNeuron
	}

	r.reportProgress(Progress{RunID: r.id, Phase: PhaseAdopting})

	merged, err := neuron.Adopt(ctx, r.config.NeuronStore, target.NeuronID, *p.Neuron)
	if err != nil {
		return fmt.Errorf("adopt neuron %q: %w", p.Neuron.ID, err)
	}

	r.logInfo("adopted neuron", "run", r.id, "from", p.Neuron.ID, "into", merged.ID)
	return nil
}

// replay issues lines strictly in order, then the LED reset.
func (r *run) replay(ctx context.Context, lines, skipped []string) error {
	total := len(lines)

	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}

		r.reportProgress(Progress{
			RunID:   r.id,
			Phase:   PhaseReplaying,
			Command: line,
			Index:   i,
			Total:   total,
			Skipped: skipped,
		})

		if err := r.issue(ctx, i, line); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cancelled: %w", err)
	}

	r.reportProgress(Progress{
		RunID:   r.id,
		Phase:   PhaseResetting,
		Command: focus.ResetLEDMode,
		Index:   total,
		Total:   total,
		Skipped: skipped,
	})
	if err := r.issue(ctx, total, focus.ResetLEDMode); err != nil {
		return err
	}

	r.reportProgress(Progress{
		RunID:   r.id,
		Phase:   PhaseComplete,
		Index:   total,
		Total:   total,
		Skipped: skipped,
	})
	return nil
}

func (r *run) issue(ctx context.Context, index int, line string) error {
	if _, err := r.exec.Command(ctx, line); err != nil {
		r.config.Recorder.IncCommands(metrics.OutcomeFailed)
		r.logError("command failed", "run", r.id, "index", index, "command", line, "error", err)
		return &CommandError{Index: index, Command: line, Err: err}
	}
	r.config.Recorder.IncCommands(metrics.OutcomeSuccess)
	return nil
}

// finish records the outcome of the run and passes err through.
func (r *run) finish(err error) error {
	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = metrics.OutcomeCancelled
	default:
		outcome = metrics.OutcomeFailed
	}

	r.config.Recorder.IncRestoreOutcome(r.kind.String(), outcome)
	r.config.Recorder.ObserveRestoreDuration(r.kind.String(), time.Since(r.start))

	if err != nil {
		r.logError("restore failed", "run", r.id, "kind", r.kind.String(), "error", err)
		return err
	}
	r.logInfo("restore complete", "run", r.id, "kind", r.kind.String(), "elapsed", time.Since(r.start))
	return nil
}

// reportProgress calls the progress callback if configured.
func (e *Engine) reportProgress(p Progress) {
	if e.config.ProgressCallback != nil {
		e.config.ProgressCallback(p)
	}
}

func (e *Engine) logDebug(msg string, keysAndValues ...any) {
	if e.config.Logger != nil {
		e.config.Logger.Debug(msg, keysAndValues...)
	}
}

func (e *Engine) logInfo(msg string, keysAndValues ...any) {
	if e.config.Logger != nil {
		e.config.Logger.Info(msg, keysAndValues...)
	}
}

func (e *Engine) logError(msg string, keysAndValues ...any) {
	if e.config.Logger != nil {
		e.config.Logger.Error(msg, keysAndValues...)
	}
}
