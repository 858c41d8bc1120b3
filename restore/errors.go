package restore

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPayload is returned when Restore is called without a backup.
	ErrNoPayload = errors.New("restore: no backup payload")

	// ErrNoNeuronStore is returned for envelope restores on an engine
	// without a registry.
	ErrNoNeuronStore = errors.New("restore: envelope backup needs a neuron registry")

	// ErrNoTarget is returned for envelope restores without a target neuron ID.
	ErrNoTarget = errors.New("restore: envelope backup needs the target neuron id")

	// ErrNoNeuron is returned for an envelope payload without a neuron
	// record. Parse never produces one; only hand-built payloads can.
	ErrNoNeuron = errors.New("restore: envelope has no neuron record")
)

// CommandError indicates that the device rejected a command, or the executor
// failed to deliver it. The replay stopped at Index; earlier commands remain
// applied.
type CommandError struct {
	// Index is the 0-based position of Command in the replay
	Index int

	// Command is the full line that failed
	Command string

	Err error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("restore stopped at command %d (%q): %v", e.Index, e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// IsCommandError returns true if err is or wraps a CommandError.
func IsCommandError(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce)
}
