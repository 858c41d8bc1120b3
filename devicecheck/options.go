package devicecheck

import (
	"context"

	"github.com/moffa90/go-focus/focus"
	"github.com/moffa90/go-focus/metrics"
)

// TransitionCallback receives a snapshot after every context update and every
// transition. It runs on the goroutine driving the machine and must not call
// Send.
type TransitionCallback func(Snapshot)

// Flasher performs the firmware update once the user confirms. The machine
// feeds FLASHED or FLASH_FAILED depending on the returned error.
type Flasher interface {
	Flash(ctx context.Context, c Context) error
}

// FlasherFunc adapts an ordinary function to the Flasher interface.
type FlasherFunc func(ctx context.Context, c Context) error

// Flash calls f(ctx, c).
func (f FlasherFunc) Flash(ctx context.Context, c Context) error {
	return f(ctx, c)
}

// Config holds the machine configuration.
type Config struct {
	// OnTransition is called after every context update and transition (optional)
	OnTransition TransitionCallback

	// Flasher runs on entry to flashing. Without one the caller must send
	// FLASHED or FLASH_FAILED itself.
	Flasher Flasher

	// UnibodyProducts are the product families that skip the per-half probes
	UnibodyProducts []string

	// Logger is used for logging operations (optional)
	Logger focus.Logger

	// Recorder receives check outcomes
	Recorder metrics.Recorder
}

func defaultConfig() Config {
	return Config{
		UnibodyProducts: focus.DefaultUnibodyProducts,
		Recorder:        metrics.NoopRecorder{},
	}
}

// Option is a functional option for configuring the Machine.
type Option func(*Config)

// WithTransitionCallback sets a callback to observe the machine.
//
// Example:
//
//	m := devicecheck.New(dev, fw, prober,
//	    devicecheck.WithTransitionCallback(func(s devicecheck.Snapshot) {
//	        fmt.Printf("%s (%d probes done)\n", s.State, s.Context.StateBlock)
//	    }),
//	)
func WithTransitionCallback(callback TransitionCallback) Option {
	return func(c *Config) {
		c.OnTransition = callback
	}
}

// WithFlasher sets the flasher run on entry to flashing.
func WithFlasher(f Flasher) Option {
	return func(c *Config) {
		c.Flasher = f
	}
}

// WithUnibodyProducts replaces the product families treated as unibody.
func WithUnibodyProducts(products ...string) Option {
	return func(c *Config) {
		if len(products) > 0 {
			c.UnibodyProducts = products
		}
	}
}

// WithLogger sets a logger for the machine.
func WithLogger(logger focus.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(recorder metrics.Recorder) Option {
	return func(c *Config) {
		if recorder != nil {
			c.Recorder = recorder
		}
	}
}
