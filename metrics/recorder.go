package metrics

import "time"

// Outcome labels shared by the counters.
const (
	OutcomeSuccess   = "success"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
	OutcomeSkipped   = "skipped"
)

// Recorder receives metric events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	IncRestoreOutcome(kind, outcome string)
	ObserveRestoreDuration(kind string, d time.Duration)
	IncCommands(result string)
	IncCheckOutcome(outcome string)
	IncBackupsPruned(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncRestoreOutcome(string, string)             {}
func (NoopRecorder) ObserveRestoreDuration(string, time.Duration) {}
func (NoopRecorder) IncCommands(string)                           {}
func (NoopRecorder) IncCheckOutcome(string)                       {}
func (NoopRecorder) IncBackupsPruned(int)                         {}
