// Package trie implements the node graph of an Aho-Corasick automaton: a
// rune-indexed prefix tree with failure links.
//
// Nodes live in a single arena and refer to each other by NodeID. The zero
// NodeID is Absent; the root is always RootID.
//
// A Trie is not safe for concurrent mutation. Once Add calls are done and
// BuildFailureLinks has run, any number of goroutines may read it.
package trie

import "github.com/pkg/errors"

// NodeID addresses a node in a Trie's arena.
type NodeID uint32

const (
	// Absent is the "no node" result: a missing child, a missing suffix, the
	// root's parent and failure link.
	Absent NodeID = 0

	// RootID is the root node of every Trie.
	RootID NodeID = 1
)

type node struct {
	children children
	parent   NodeID
	fail     NodeID
	output   NodeID
	char     rune
	depth    int
	prefix   string
	seq      uint64
	terminal bool
	dirty    bool
}

// Trie is a prefix tree over normalized runes.
type Trie struct {
	rule    Rule
	session *Session
	nodes   []node // nodes[0] is the Absent placeholder
	built   bool
}

// Option configures a Trie.
type Option func(*Trie)

// WithRule sets the character equality rule. It is fixed for the trie's
// lifetime.
func WithRule(r Rule) Option {
	return func(t *Trie) { t.rule = r }
}

// WithSession allocates sequence IDs from s instead of a fresh session.
func WithSession(s *Session) Option {
	return func(t *Trie) {
		if s != nil {
			t.session = s
		}
	}
}

// New creates a trie holding only the root.
func New(opts ...Option) *Trie {
	t := &Trie{rule: Exact}
	for _, opt := range opts {
		opt(t)
	}
	if t.session == nil {
		t.session = NewSession()
	}
	t.nodes = make([]node, 2, 64)
	t.nodes[RootID] = node{seq: t.session.Next(), dirty: true}
	return t
}

// Add inserts pattern below the root and returns its terminal node.
func (t *Trie) Add(pattern string) (NodeID, error) {
	return t.AddFrom(RootID, pattern)
}

// AddFrom inserts pattern below from, creating every missing node on the
// path, and marks the last node terminal. Inserting an existing pattern
// creates nothing.
func (t *Trie) AddFrom(from NodeID, pattern string) (NodeID, error) {
	if !t.valid(from) {
		return Absent, errors.Wrapf(ErrInvalidArgument, "add: unknown node %d", from)
	}
	if pattern == "" {
		return Absent, errors.Wrap(ErrInvalidArgument, "add: empty pattern")
	}

	cur := from
	for _, r := range pattern {
		c := t.rule.apply(r)
		next := t.nodes[cur].children.get(c)
		if next == Absent {
			next = t.newChild(cur, c)
		}
		cur = next
	}

	n := &t.nodes[cur]
	if !n.terminal {
		n.terminal = true
		n.dirty = true
		t.built = false // output links depend on terminal flags
	}
	return cur, nil
}

func (t *Trie) newChild(parent NodeID, c rune) NodeID {
	id := NodeID(len(t.nodes))
	p := &t.nodes[parent]
	child := node{
		parent: parent,
		char:   c,
		depth:  p.depth + 1,
		prefix: p.prefix + string(c),
		seq:    t.session.Next(),
		dirty:  true,
	}
	p.children.set(c, id)
	t.nodes = append(t.nodes, child)

	// New nodes invalidate previously computed links.
	t.built = false
	return id
}

// ExploreFailLink walks text[start:end] rune by rune from the given node
// and returns the node reached, or Absent when some rune has no child.
// An empty range returns from itself. Offsets are byte offsets and must lie
// on rune boundaries.
func (t *Trie) ExploreFailLink(from NodeID, text string, start, end int) (NodeID, error) {
	if !t.valid(from) {
		return Absent, errors.Wrapf(ErrInvalidArgument, "explore: unknown node %d", from)
	}
	if start < 0 || end > len(text) || start > end {
		return Absent, errors.Wrapf(ErrInvalidArgument, "explore: range [%d, %d) outside text of length %d", start, end, len(text))
	}
	if !runeBounds(text, start, end) {
		return Absent, errors.Wrapf(ErrInvalidArgument, "explore: range [%d, %d) splits a rune", start, end)
	}

	cur := from
	for _, r := range text[start:end] {
		cur = t.nodes[cur].children.get(t.rule.apply(r))
		if cur == Absent {
			return Absent, nil
		}
	}
	return cur, nil
}

// runeBounds reports whether start and end are offsets that ranging over s
// stops at, or 0 or len(s). An invalid byte counts as a one-byte rune, as it
// does in Add.
func runeBounds(s string, start, end int) bool {
	okStart := start == 0 || start == len(s)
	okEnd := end == 0 || end == len(s)
	for i := range s {
		if i == start {
			okStart = true
		}
		if i == end {
			okEnd = true
		}
		if i >= end {
			break
		}
	}
	return okStart && okEnd
}

func (t *Trie) valid(id NodeID) bool {
	return id != Absent && int(id) < len(t.nodes)
}

// Lookup returns the node whose prefix is pattern, or Absent.
func (t *Trie) Lookup(pattern string) NodeID {
	id, _ := t.ExploreFailLink(RootID, pattern, 0, len(pattern))
	return id
}

// Len returns the number of nodes including the root.
func (t *Trie) Len() int { return len(t.nodes) - 1 }

// Rule returns the trie's equality rule.
func (t *Trie) Rule() Rule { return t.rule }

// Session returns the session that allocates this trie's sequence IDs.
func (t *Trie) Session() *Session { return t.session }

// Prefix returns the normalized string spelled from the root to id.
func (t *Trie) Prefix(id NodeID) string {
	if !t.valid(id) {
		return ""
	}
	return t.nodes[id].prefix
}

// IsTerminal reports whether id's prefix is a registered pattern.
func (t *Trie) IsTerminal(id NodeID) bool {
	return t.valid(id) && t.nodes[id].terminal
}

// Parent returns id's parent, or Absent for the root.
func (t *Trie) Parent(id NodeID) NodeID {
	if !t.valid(id) {
		return Absent
	}
	return t.nodes[id].parent
}

// Char returns the edge rune leading into id. The root has none.
func (t *Trie) Char(id NodeID) rune {
	if !t.valid(id) {
		return 0
	}
	return t.nodes[id].char
}

// Depth returns the length of id's prefix in runes.
func (t *Trie) Depth(id NodeID) int {
	if !t.valid(id) {
		return 0
	}
	return t.nodes[id].depth
}

// Child returns the child of id reached by r under the trie's rule.
func (t *Trie) Child(id NodeID, r rune) NodeID {
	if !t.valid(id) {
		return Absent
	}
	return t.nodes[id].children.get(t.rule.apply(r))
}

// Children returns id's children in ascending edge order.
func (t *Trie) Children(id NodeID) []NodeID {
	if !t.valid(id) {
		return nil
	}
	c := &t.nodes[id].children
	out := make([]NodeID, 0, c.len())
	c.each(func(_ rune, child NodeID) { out = append(out, child) })
	return out
}

// SequenceID returns the session-unique ID assigned when id was created.
func (t *Trie) SequenceID(id NodeID) uint64 {
	if !t.valid(id) {
		return 0
	}
	return t.nodes[id].seq
}

// Dirty reports whether id changed since it was last persisted.
func (t *Trie) Dirty(id NodeID) bool {
	return t.valid(id) && t.nodes[id].dirty
}

// MarkSaved clears id's dirty flag. Only a persistence layer calls it.
func (t *Trie) MarkSaved(id NodeID) {
	if t.valid(id) {
		t.nodes[id].dirty = false
	}
}

// Walk visits every node in breadth-first order, children in ascending edge
// order. It stops early when fn returns false.
func (t *Trie) Walk(fn func(id NodeID) bool) {
	queue := []NodeID{RootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if !fn(id) {
			return
		}
		t.nodes[id].children.each(func(_ rune, child NodeID) {
			queue = append(queue, child)
		})
	}
}
