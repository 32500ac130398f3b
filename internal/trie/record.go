package trie

import (
	"sort"

	"github.com/pkg/errors"
)

// Record is the persisted form of one node, keyed by its sequence ID.
// Parent is the parent's sequence ID, 0 for the root.
type Record struct {
	Seq      uint64 `json:"seq"`
	Parent   uint64 `json:"parent"`
	Char     rune   `json:"char"`
	Terminal bool   `json:"terminal"`
}

// Records exports every node in creation order.
func (t *Trie) Records() []Record {
	out := make([]Record, 0, t.Len())
	for id := RootID; int(id) < len(t.nodes); id++ {
		out = append(out, t.record(id))
	}
	return out
}

// DirtyRecords exports the nodes not yet persisted, in creation order,
// together with their IDs so the caller can MarkSaved them.
func (t *Trie) DirtyRecords() ([]NodeID, []Record) {
	var ids []NodeID
	var recs []Record
	for id := RootID; int(id) < len(t.nodes); id++ {
		if t.nodes[id].dirty {
			ids = append(ids, id)
			recs = append(recs, t.record(id))
		}
	}
	return ids, recs
}

func (t *Trie) record(id NodeID) Record {
	n := &t.nodes[id]
	r := Record{Seq: n.seq, Char: n.char, Terminal: n.terminal}
	if n.parent != Absent {
		r.Parent = t.nodes[n.parent].seq
	}
	return r
}

// Restore rebuilds a trie from records. Exactly one record must have
// Parent 0 (the root) and every parent must precede its children in
// sequence order. Restored nodes are clean and failure links are not built.
func Restore(rule Rule, session *Session, records []Record) (*Trie, error) {
	if len(records) == 0 {
		return nil, errors.Wrap(ErrCorrupt, "restore: no records")
	}
	recs := make([]Record, len(records))
	copy(recs, records)
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Seq < recs[j].Seq })

	if session == nil {
		session = NewSession()
	}
	t := &Trie{rule: rule, session: session, nodes: make([]node, 1, len(recs)+1)}
	bySeq := make(map[uint64]NodeID, len(recs))

	for i, rec := range recs {
		if rec.Seq == 0 {
			return nil, errors.Wrap(ErrCorrupt, "restore: zero sequence id")
		}
		if _, dup := bySeq[rec.Seq]; dup {
			return nil, errors.Wrapf(ErrCorrupt, "restore: duplicate sequence id %d", rec.Seq)
		}
		if i == 0 {
			if rec.Parent != 0 {
				return nil, errors.Wrapf(ErrCorrupt, "restore: first record %d is not a root", rec.Seq)
			}
			t.nodes = append(t.nodes, node{seq: rec.Seq, terminal: rec.Terminal})
			bySeq[rec.Seq] = RootID
			session.observe(rec.Seq)
			continue
		}

		parent, ok := bySeq[rec.Parent]
		if !ok {
			return nil, errors.Wrapf(ErrCorrupt, "restore: node %d has unknown parent %d", rec.Seq, rec.Parent)
		}
		c := rule.apply(rec.Char)
		if t.nodes[parent].children.get(c) != Absent {
			return nil, errors.Wrapf(ErrCorrupt, "restore: node %d duplicates edge %q", rec.Seq, c)
		}
		id := NodeID(len(t.nodes))
		p := &t.nodes[parent]
		p.children.set(c, id)
		t.nodes = append(t.nodes, node{
			parent:   parent,
			char:     c,
			depth:    p.depth + 1,
			prefix:   p.prefix + string(c),
			seq:      rec.Seq,
			terminal: rec.Terminal,
		})
		bySeq[rec.Seq] = id
		session.observe(rec.Seq)
	}
	return t, nil
}

// Clone returns a deep copy sharing the session, so nodes added to either
// copy still receive unique sequence IDs.
func (t *Trie) Clone() *Trie {
	out := &Trie{
		rule:    t.rule,
		session: t.session,
		nodes:   make([]node, len(t.nodes), cap(t.nodes)),
		built:   t.built,
	}
	copy(out.nodes, t.nodes)
	for i := range out.nodes {
		out.nodes[i].children = t.nodes[i].children.clone()
	}
	return out
}
