package trie

// BuildFailureLinks computes the failure and output link of every node.
//
// Nodes are processed breadth-first, so a node's parent and every shorter
// prefix already carry their links. For a child v of u reached by c, the
// failure chain of u is followed until some node has a c-child; that child
// is v's failure link, or the root when the chain is exhausted.
func (t *Trie) BuildFailureLinks() {
	root := &t.nodes[RootID]
	root.fail = Absent
	root.output = Absent

	queue := make([]NodeID, 0, len(t.nodes))
	root.children.each(func(_ rune, child NodeID) {
		t.nodes[child].fail = RootID
		t.nodes[child].output = Absent
		queue = append(queue, child)
	})

	for head := 0; head < len(queue); head++ {
		u := queue[head]
		t.nodes[u].children.each(func(c rune, v NodeID) {
			queue = append(queue, v)

			f := t.nodes[u].fail
			for f != RootID && t.nodes[f].children.get(c) == Absent {
				f = t.nodes[f].fail
			}
			link := t.nodes[f].children.get(c)
			if link == Absent {
				link = RootID
			}

			n := &t.nodes[v]
			n.fail = link
			if t.nodes[link].terminal {
				n.output = link
			} else {
				n.output = t.nodes[link].output
			}
		})
	}
	t.built = true
}

// Built reports whether failure links are current.
func (t *Trie) Built() bool { return t.built }

// FailureLink returns the node for the longest proper suffix of id's prefix
// present in the trie. It is Absent for the root and before
// BuildFailureLinks.
func (t *Trie) FailureLink(id NodeID) NodeID {
	if !t.valid(id) {
		return Absent
	}
	return t.nodes[id].fail
}

// Output returns the nearest terminal node strictly down id's failure
// chain, or Absent.
func (t *Trie) Output(id NodeID) NodeID {
	if !t.valid(id) {
		return Absent
	}
	return t.nodes[id].output
}

// SuffixLink computes id's failure link from scratch by probing proper
// suffixes of its prefix, longest first, with ExploreFailLink. It does not
// need BuildFailureLinks and is used to verify it.
func (t *Trie) SuffixLink(id NodeID) NodeID {
	if !t.valid(id) || id == RootID {
		return Absent
	}
	prefix := t.nodes[id].prefix
	for i := range prefix {
		if i == 0 {
			continue
		}
		if n, err := t.ExploreFailLink(RootID, prefix, i, len(prefix)); err == nil && n != Absent {
			return n
		}
	}
	return RootID
}

// Next is the automaton transition: the child of state reached by r, or
// the same step retried along the failure chain, ending at the root.
// The result is only meaningful once Built reports true.
func (t *Trie) Next(state NodeID, r rune) NodeID {
	if !t.valid(state) {
		state = RootID
	}
	c := t.rule.apply(r)
	for {
		if next := t.nodes[state].children.get(c); next != Absent {
			return next
		}
		if state == RootID {
			return RootID
		}
		state = t.nodes[state].fail
		if state == Absent {
			return RootID
		}
	}
}
