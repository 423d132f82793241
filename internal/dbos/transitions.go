package dbos

// legalTransitions is the module-state machine: created -> started ->
// running -> {completed | error | failed}, where started may also move
// straight to a terminal state without passing through running. It lives
// here, next to the write path, so the coordinator and the store can never diverge on what
// counts as a legal move (per the design note on state-machine enforcement
// location).
var legalTransitions = map[string]map[string]bool{
	StateCreated: {StateStarted: true},
	StateStarted: {StateRunning: true, StateCompleted: true, StateError: true, StateFailed: true},
	StateRunning: {StateCompleted: true, StateError: true, StateFailed: true},
	// terminal states are sinks
	StateCompleted: {},
	StateError:     {},
	StateFailed:    {},
}

// isLegalTransition reports whether moving from `from` to `to` is allowed.
// A record with no prior state (from == "") may only be created.
func isLegalTransition(from, to string) bool {
	if from == "" {
		return to == StateCreated
	}
	if from == to {
		return false
	}
	next, ok := legalTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}
