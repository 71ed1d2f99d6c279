// Package state implements the module state machine (spec §4.7):
// STALE → INPUTS_READY → RESULTS_INCOMING → RESULTS_READY, plus the
// recomputation rule that lets programmatic input/output mutation
// downgrade a module between runs without an explicit transition.
package state

// State is one of the four module lifecycle states.
type State int

const (
	Stale State = iota
	InputsReady
	ResultsIncoming
	ResultsReady
)

func (s State) String() string {
	switch s {
	case Stale:
		return "STALE"
	case InputsReady:
		return "INPUTS_READY"
	case ResultsIncoming:
		return "RESULTS_INCOMING"
	case ResultsReady:
		return "RESULTS_READY"
	default:
		return "UNKNOWN"
	}
}

// Validity is a point-in-time read of a module's input/output bags,
// used to recompute state independently of the transition history
// (spec §4.7: "computed state is the max of (a) the transition state
// and (b) a recomputation over current input/output validity").
type Validity struct {
	InputsValid  bool
	OutputsValid bool
}

// Machine tracks one module's lifecycle state. It is not safe for
// concurrent use without external synchronization; callers serialize
// access the same way they serialize access to the module's bags
// (spec §5: "each module owns its input and output bags exclusively").
type Machine struct {
	current State
}

// NewMachine starts a module in STALE.
func NewMachine() *Machine {
	return &Machine{current: Stale}
}

// Current returns the last transitioned-to state, before recomputation.
func (m *Machine) Current() State {
	return m.current
}

// InputsBecameValid fires the STALE → INPUTS_READY transition.
func (m *Machine) InputsBecameValid() {
	if m.current == Stale {
		m.current = InputsReady
	}
}

// InputsInvalidated fires INPUTS_READY → STALE on an input
// clear/overwrite, and also downgrades RESULTS_READY (spec table row
// "RESULTS_READY | any input changes | STALE").
func (m *Machine) InputsInvalidated() {
	if m.current == InputsReady || m.current == ResultsReady {
		m.current = Stale
	}
}

// ProcessStarted fires INPUTS_READY → RESULTS_INCOMING.
func (m *Machine) ProcessStarted() {
	m.current = ResultsIncoming
}

// ProcessSucceeded fires RESULTS_INCOMING → RESULTS_READY.
func (m *Machine) ProcessSucceeded() {
	m.current = ResultsReady
}

// ProcessFailed fires RESULTS_INCOMING → STALE; the caller is
// responsible for clearing the module's output bag (spec §4.7, §7).
func (m *Machine) ProcessFailed() {
	m.current = Stale
}

// Recomputed returns the state that best reflects v, independent of
// transition history: RESULTS_READY if outputs are valid, INPUTS_READY
// if only inputs are valid, else STALE. RESULTS_INCOMING is never a
// recomputed value — it only exists mid-process.
func Recomputed(v Validity) State {
	switch {
	case v.OutputsValid:
		return ResultsReady
	case v.InputsValid:
		return InputsReady
	default:
		return Stale
	}
}

// Effective reconciles the machine's transitioned-to state with the
// recomputation over v, so that out-of-band mutation of a module's bags
// between runs is observed without an explicit transition call (spec
// §4.7). RESULTS_INCOMING is kept as is; a STALE module with valid
// inputs is lifted to INPUTS_READY (outputs left from an earlier run do
// not make it RESULTS_READY); any other state is lowered to the
// recomputation when that is lower.
func (m *Machine) Effective(v Validity) State {
	recomputed := Recomputed(v)
	switch {
	case m.current == ResultsIncoming:
		return m.current
	case m.current == Stale:
		if v.InputsValid {
			return InputsReady
		}
		return Stale
	case recomputed < m.current:
		return recomputed
	}
	return m.current
}

// Sync advances the machine to Effective(v), persisting the
// recomputation so the next Current() reflects it.
func (m *Machine) Sync(v Validity) State {
	m.current = m.Effective(v)
	return m.current
}
