package automaton

import (
	"github.com/pkg/errors"

	"GoMatch/internal/trie"
)

// ErrNotBuilt is returned when a trie's failure links are missing or stale.
var ErrNotBuilt = errors.New("failure links not built")

// Match is one occurrence of a registered pattern. Start and End are byte
// offsets into the scanned input, End exclusive.
type Match struct {
	Node    trie.NodeID
	Pattern string // normalized pattern text
	Start   int
	End     int
}

// Matcher is an Aho-Corasick automaton over a built trie.
//
// A Matcher only reads the trie, so it is safe for concurrent use as long as
// nobody mutates the trie afterwards.
type Matcher struct {
	t        *trie.Trie
	maxDepth int
	patterns int
}

var _ Automaton = (*Matcher)(nil)

// NewMatcher wraps t. The trie's failure links must be current.
func NewMatcher(t *trie.Trie) (*Matcher, error) {
	if t == nil || !t.Built() {
		return nil, ErrNotBuilt
	}
	m := &Matcher{t: t}
	t.Walk(func(id trie.NodeID) bool {
		if d := t.Depth(id); d > m.maxDepth {
			m.maxDepth = d
		}
		if t.IsTerminal(id) {
			m.patterns++
		}
		return true
	})
	return m, nil
}

// Trie returns the underlying trie. Callers must not mutate it.
func (m *Matcher) Trie() *trie.Trie { return m.t }

// PatternCount returns the number of distinct normalized patterns.
func (m *Matcher) PatternCount() int { return m.patterns }

// Start returns the root state.
func (m *Matcher) Start() State { return State(trie.RootID) }

// Step follows r from state, falling back along failure links.
func (m *Matcher) Step(state State, r rune) State {
	if state == DeadState {
		return DeadState
	}
	return State(m.t.Next(trie.NodeID(state), r))
}

// IsAccept reports whether some pattern ends at state.
func (m *Matcher) IsAccept(state State) bool {
	id := trie.NodeID(state)
	return m.t.IsTerminal(id) || m.t.Output(id) != trie.Absent
}

// CanMatch is true for every live state: the automaton always falls back to
// the root and never dies.
func (m *Matcher) CanMatch(state State) bool {
	return state != DeadState
}
