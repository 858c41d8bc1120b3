package backup

import (
	"context"
	"fmt"
	"strings"

	"github.com/moffa90/go-focus/focus"
)

// DefaultExclusions are commands that never belong in a settings backup:
// introspection, hardware diagnostics, firmware upgrade plumbing and commands
// that act instead of store. Entries ending in "." match a whole namespace.
var DefaultExclusions = []string{
	focus.CmdHelp,
	focus.CmdVersion,
	"eeprom.",
	"hardware.",
	"upgrade.",
	"layer.",
	"led.at",
	"led.setAll",
	"led.getMultiple",
	"led.setMultiple",
	"settings.valid?",
	"settings.version",
	"settings.crc",
	"macros.trigger",
	"wireless.battery.",
	"wireless.rf.syncPairing",
}

type captureConfig struct {
	exclusions []string
	logger     focus.Logger
}

// CaptureOption configures Capture.
type CaptureOption func(*captureConfig)

// WithExclusions replaces DefaultExclusions.
func WithExclusions(exclusions ...string) CaptureOption {
	return func(c *captureConfig) {
		c.exclusions = exclusions
	}
}

// WithCaptureLogger sets a logger for the capture.
func WithCaptureLogger(logger focus.Logger) CaptureOption {
	return func(c *captureConfig) {
		c.logger = logger
	}
}

// Capture reads every settings command the device advertises and returns them
// as replayable entries, in the order the device lists them. Commands are read
// one at a time.
func Capture(ctx context.Context, exec focus.Executor, opts ...CaptureOption) ([]Entry, error) {
	cfg := captureConfig{exclusions: DefaultExclusions}
	for _, opt := range opts {
		opt(&cfg)
	}

	help, err := exec.Command(ctx, focus.CmdHelp)
	if err != nil {
		return nil, fmt.Errorf("list commands: %w", err)
	}

	var entries []Entry
	for _, cmd := range focus.ParseHelp(help) {
		if excluded(cmd, cfg.exclusions) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("cancelled: %w", err)
		}

		value, err := exec.Command(ctx, cmd)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", cmd, err)
		}
		entries = append(entries, Entry{Command: cmd, Data: StringValue(value)})
	}

	if cfg.logger != nil {
		cfg.logger.Debug("captured settings", "commands", len(entries))
	}
	return entries, nil
}

func excluded(cmd string, exclusions []string) bool {
	for _, ex := range exclusions {
		if strings.HasSuffix(ex, ".") {
			if strings.HasPrefix(cmd, ex) {
				return true
			}
			continue
		}
		if cmd == ex {
			return true
		}
	}
	return false
}
