package devicecheck

// State is a state of the device-check machine.
type State string

const (
	StateChecking             State = "checking"
	StateAwaitingConfirmation State = "awaitingConfirmation"
	StateError                State = "error"
	StateFlashing             State = "flashing"
	StateSuccess              State = "success"
	StateCancelled            State = "cancelled"
)

// Terminal reports whether no event can leave s.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateCancelled
}

// Event is an input to the machine.
type Event string

const (
	// EventPressed starts flashing. Only accepted once every check passed.
	EventPressed Event = "PRESSED"

	// EventRetry re-runs every probe from the first one.
	EventRetry Event = "RETRY"

	// EventCancel abandons the update.
	EventCancel Event = "CANCEL"

	// EventFlashed reports that flashing finished.
	EventFlashed Event = "FLASHED"

	// EventFlashFailed reports that flashing did not finish.
	EventFlashFailed Event = "FLASH_FAILED"

	// eventChecksDone is raised by the machine when the probe pipeline ends.
	eventChecksDone Event = "CHECKS_DONE"
)

// Step names a probe in the checking pipeline.
type Step string

const (
	StepLeftConnected   Step = "sideLeftOk"
	StepRightConnected  Step = "sideRightOK"
	StepLeftBootloader  Step = "sideLeftBL"
	StepRightBootloader Step = "sideRightBL"
	StepVersion         Step = "isUpdated"
	StepBackup          Step = "backup"
)
