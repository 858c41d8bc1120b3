package restore

import (
	"github.com/moffa90/go-focus/focus"
	"github.com/moffa90/go-focus/metrics"
	"github.com/moffa90/go-focus/neuron"
)

// Config holds the engine configuration.
type Config struct {
	// NeuronStore is the registry envelope backups are adopted into.
	// Required only for envelope restores.
	NeuronStore neuron.Store

	// ProgressCallback is called during restores to report progress (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger focus.Logger

	// Recorder receives restore metrics
	Recorder metrics.Recorder
}

func defaultConfig() Config {
	return Config{
		Recorder: metrics.NoopRecorder{},
	}
}

// Option is a functional option for configuring the Engine.
type Option func(*Config)

// WithNeuronStore sets the neuron registry used by envelope restores.
//
// Example:
//
//	engine := restore.New(conn, restore.WithNeuronStore(neuron.NewMemoryStore()))
func WithNeuronStore(store neuron.Store) Option {
	return func(c *Config) {
		c.NeuronStore = store
	}
}

// WithProgressCallback sets a callback function to track restore progress.
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for the engine operations.
func WithLogger(logger focus.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithRecorder sets the metrics recorder. A nil recorder keeps the default
// no-op recorder.
func WithRecorder(recorder metrics.Recorder) Option {
	return func(c *Config) {
		if recorder != nil {
			c.Recorder = recorder
		}
	}
}
