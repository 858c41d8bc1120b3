package restore

// Phase constants for progress reporting.
const (
	PhaseAdopting  = "adopting"
	PhaseReplaying = "replaying"
	PhaseResetting = "resetting"
	PhaseComplete  = "complete"
)

// Progress contains information about a running restore.
// Passed to ProgressCallback before each command is issued.
type Progress struct {
	// RunID identifies the restore run in progress reports and logs
	RunID string

	// Phase describes the current operation phase:
	//   "adopting"  - Merging the envelope's neuron into the registry
	//   "replaying" - Issuing backup commands
	//   "resetting" - Issuing the trailing led.mode 0
	//   "complete"  - Restore finished successfully
	Phase string

	// Command is the line about to be issued (empty outside replaying/resetting)
	Command string

	// Index is the 0-based position of Command among the replayed lines
	Index int

	// Total is the number of lines that will be replayed
	Total int

	// Skipped lists commands left out because the target firmware does not
	// support them
	Skipped []string
}

// ProgressCallback is called during a restore to report progress.
// Implementations should return quickly to avoid delaying the replay.
type ProgressCallback func(Progress)
