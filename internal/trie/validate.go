package trie

import "github.com/pkg/errors"

// Validate checks the structural invariants of the node graph: the root has
// no parent and an empty prefix, every prefix extends its parent's by the
// edge rune, edges are reachable from their parent, sequence IDs strictly
// increase in creation order, and, when built, every failure link is the
// longest proper suffix present in the trie.
func (t *Trie) Validate() error {
	if len(t.nodes) < 2 {
		return errors.Wrap(ErrCorrupt, "missing root")
	}
	root := &t.nodes[RootID]
	if root.parent != Absent || root.prefix != "" || root.depth != 0 {
		return errors.Wrap(ErrCorrupt, "root has a parent or a prefix")
	}

	var lastSeq uint64
	for id := RootID; int(id) < len(t.nodes); id++ {
		n := &t.nodes[id]
		if n.seq <= lastSeq {
			return errors.Wrapf(ErrCorrupt, "node %d: sequence id %d not increasing", id, n.seq)
		}
		lastSeq = n.seq

		if id != RootID {
			if !t.valid(n.parent) || n.parent >= id {
				return errors.Wrapf(ErrCorrupt, "node %d: bad parent %d", id, n.parent)
			}
			p := &t.nodes[n.parent]
			if n.prefix != p.prefix+string(n.char) {
				return errors.Wrapf(ErrCorrupt, "node %d: prefix %q does not extend %q", id, n.prefix, p.prefix)
			}
			if p.children.get(n.char) != id {
				return errors.Wrapf(ErrCorrupt, "node %d: parent edge %q points elsewhere", id, n.char)
			}
		}

		if !t.built {
			continue
		}
		if id == RootID {
			if n.fail != Absent {
				return errors.Wrap(ErrCorrupt, "root has a failure link")
			}
			continue
		}
		want := t.SuffixLink(id)
		if n.fail != want {
			return errors.Wrapf(ErrCorrupt, "node %d (%q): failure link %d, want %d", id, n.prefix, n.fail, want)
		}
		if t.nodes[n.fail].depth >= n.depth {
			return errors.Wrapf(ErrCorrupt, "node %d: failure link does not shorten the prefix", id)
		}
	}
	return nil
}
