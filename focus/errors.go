package focus

import (
	"errors"
	"fmt"
)

// ErrEmptyCommand is returned when an executor is asked to send a blank line.
var ErrEmptyCommand = errors.New("focus: empty command")

// ProtocolError represents an error reported by the device itself.
type ProtocolError struct {
	// Command is the command line that was rejected
	Command string

	// Message is the error text returned by the firmware
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Command, e.Message)
}

// IsProtocolError returns true if err is or wraps a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
