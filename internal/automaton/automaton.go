package automaton

// State represents a state in a deterministic finite automaton.
type State uint32

// DeadState is the sink state from which no accepting state is reachable.
const DeadState State = 0

// Automaton is the stepping interface shared by the matchers in this
// package. Input is consumed one rune at a time.
//
// Properties:
//   - Deterministic: single transition per (state, input)
//   - Finite: bounded state count
//   - No ε-transitions
type Automaton interface {
	// Start returns the initial state.
	Start() State

	// Step returns the next state for the given input rune.
	// Returns DeadState if no transition exists.
	Step(state State, r rune) State

	// IsAccept returns true if the state is an accepting state.
	IsAccept(state State) bool

	// CanMatch returns true if any accepting state is reachable from this state.
	CanMatch(state State) bool
}
