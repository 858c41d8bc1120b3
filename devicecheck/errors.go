package devicecheck

import (
	"errors"
	"fmt"
)

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("devicecheck: machine already started")

// RejectedEventError indicates that the current state has no transition for
// an event, or that every candidate guard failed.
type RejectedEventError struct {
	State State
	Event Event
}

func (e *RejectedEventError) Error() string {
	return fmt.Sprintf("event %s not accepted in state %s", e.Event, e.State)
}

// IsRejectedEvent returns true if err is or wraps a RejectedEventError.
func IsRejectedEvent(err error) bool {
	var re *RejectedEventError
	return errors.As(err, &re)
}

// ProbeError indicates that a check could not be performed.
type ProbeError struct {
	Step Step
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s failed: %v", e.Step, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// FlashError wraps the error a Flasher returned.
type FlashError struct {
	Err error
}

func (e *FlashError) Error() string {
	return fmt.Sprintf("flashing failed: %v", e.Err)
}

func (e *FlashError) Unwrap() error {
	return e.Err
}
