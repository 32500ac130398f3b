package automaton

import (
	"bufio"
	"context"
	"io"
	"unicode/utf8"

	"github.com/pkg/errors"

	"GoMatch/internal/trie"
)

// ctxCheckInterval is how many runes ScanReader consumes between context
// checks.
const ctxCheckInterval = 4096

// window remembers the byte offsets of the most recent runes so a match
// ending at rune k with depth d can be mapped back to a start offset even
// when normalization changed rune widths.
type window struct {
	offs []int
	k    int
}

func newWindow(maxDepth int) *window {
	return &window{offs: make([]int, maxDepth+1)}
}

func (w *window) push(off int) {
	w.offs[w.k%len(w.offs)] = off
	w.k++
}

// start returns the offset of the rune depth positions back, counting the
// last pushed rune as 1.
func (w *window) start(depth int) int {
	return w.offs[(w.k-depth)%len(w.offs)]
}

// emit reports the match at state and every match on its output chain,
// longest first. It stops when fn returns false.
func (m *Matcher) emit(state trie.NodeID, w *window, end int, fn func(Match) bool) bool {
	id := state
	if !m.t.IsTerminal(id) {
		id = m.t.Output(id)
	}
	for id != trie.Absent {
		d := m.t.Depth(id)
		if !fn(Match{Node: id, Pattern: m.t.Prefix(id), Start: w.start(d), End: end}) {
			return false
		}
		id = m.t.Output(id)
	}
	return true
}

// Each calls fn for every occurrence in text, ordered by end offset and,
// at equal end, longest first. Occurrences may overlap. Iteration stops
// when fn returns false.
func (m *Matcher) Each(text string, fn func(Match) bool) {
	w := newWindow(m.maxDepth)
	state := trie.RootID
	for i, r := range text {
		w.push(i)
		state = m.t.Next(state, r)
		if state == trie.RootID {
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		if !m.emit(state, w, i+size, fn) {
			return
		}
	}
}

// FindAll returns every occurrence in text.
func (m *Matcher) FindAll(text string) []Match {
	var out []Match
	m.Each(text, func(mt Match) bool {
		out = append(out, mt)
		return true
	})
	return out
}

// FindFirst returns the occurrence that ends first, the longest one if
// several end together.
func (m *Matcher) FindFirst(text string) (Match, bool) {
	var found Match
	ok := false
	m.Each(text, func(mt Match) bool {
		found, ok = mt, true
		return false
	})
	return found, ok
}

// Contains reports whether any pattern occurs in text.
func (m *Matcher) Contains(text string) bool {
	_, ok := m.FindFirst(text)
	return ok
}

// Count returns the number of occurrences in text.
func (m *Matcher) Count(text string) int {
	n := 0
	m.Each(text, func(Match) bool {
		n++
		return true
	})
	return n
}

// ScanReader streams r through the automaton and calls fn for each
// occurrence. Offsets are byte offsets from the start of r. It returns the
// first error from r, from fn, or ctx.
func (m *Matcher) ScanReader(ctx context.Context, r io.Reader, fn func(Match) error) error {
	br, ok := r.(io.RuneReader)
	if !ok {
		br = bufio.NewReader(r)
	}

	w := newWindow(m.maxDepth)
	state := trie.RootID
	off := 0
	var cbErr error
	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		c, size, err := br.ReadRune()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "scan at offset %d", off)
		}

		w.push(off)
		off += size
		state = m.t.Next(state, c)
		if state == trie.RootID {
			continue
		}
		m.emit(state, w, off, func(mt Match) bool {
			cbErr = fn(mt)
			return cbErr == nil
		})
		if cbErr != nil {
			return cbErr
		}
	}
}
