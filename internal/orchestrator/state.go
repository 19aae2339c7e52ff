package orchestrator

// State is one phase of the per-batch submission state machine.
type State int

const (
	StateInit State = iota
	StateNavigating
	StateFormReady
	StateFilling
	StateSubmitting
	StateConfirming
	StateBatchDone
	StateNextBatch
	StateComplete
	StateError
)

var stateNames = map[State]string{
	StateInit:       "INIT",
	StateNavigating: "NAVIGATING",
	StateFormReady:  "FORM_READY",
	StateFilling:    "FILLING",
	StateSubmitting: "SUBMITTING",
	StateConfirming: "CONFIRMING",
	StateBatchDone:  "BATCH_DONE",
	StateNextBatch:  "NEXT_BATCH",
	StateComplete:   "COMPLETE",
	StateError:      "ERROR",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Terminal reports whether the machine can leave s.
func (s State) Terminal() bool { return s == StateComplete || s == StateError }
