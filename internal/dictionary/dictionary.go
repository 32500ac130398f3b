// Package dictionary manages named pattern sets. Each Dictionary owns a
// trie that a single writer grows and periodically publishes as an
// immutable matcher; scans always run lock-free against the last published
// version.
package dictionary

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"GoMatch/internal/automaton"
	"GoMatch/internal/trie"
)

var (
	ErrNotFound = errors.New("dictionary not found")
	ErrExists   = errors.New("dictionary already exists")
	ErrNotBuilt = automaton.ErrNotBuilt
	ErrNoStore  = errors.New("no store configured")
)

// Hit is one pattern occurrence in scanned text.
type Hit struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text,omitempty"`
	// Pattern is the normalized form shared by every entry of PatternIDs.
	Pattern    string   `json:"pattern"`
	PatternIDs []int    `json:"pattern_ids"`
	Patterns   []string `json:"patterns"`
}

// version is one published, immutable state of a dictionary.
type version struct {
	generation uint64
	builtAt    time.Time
	matcher    *automaton.Matcher
	patterns   []string
	byNode     map[trie.NodeID][]int
}

// Dictionary is a named, growable pattern set.
type Dictionary struct {
	Name string
	rule trie.Rule

	// Writer state, guarded by mu.
	mu       sync.Mutex
	base     *trie.Trie // last built or loaded trie, possibly shared with live
	draft    *trie.Trie // private copy receiving Adds, nil when clean
	patterns []string
	index    map[string]int
	byNode   map[trie.NodeID][]int

	live atomic.Pointer[version]

	logger *slog.Logger
}

func newDictionary(name string, t *trie.Trie, logger *slog.Logger) *Dictionary {
	return &Dictionary{
		Name:   name,
		rule:   t.Rule(),
		base:   t,
		index:  make(map[string]int),
		byNode: make(map[trie.NodeID][]int),
		logger: logger.With("dictionary", name),
	}
}

// Rule returns the dictionary's character equality rule.
func (d *Dictionary) Rule() trie.Rule { return d.rule }

// Add registers patterns and returns their indices. Re-adding a pattern
// returns its existing index. Nothing is added if any pattern is empty.
// New patterns become visible to Scan after Build.
func (d *Dictionary) Add(patterns ...string) ([]int, error) {
	for i, p := range patterns {
		if p == "" {
			return nil, errors.Wrapf(trie.ErrInvalidArgument, "pattern %d is empty", i)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ids := make([]int, len(patterns))
	for i, p := range patterns {
		if idx, ok := d.index[p]; ok {
			ids[i] = idx
			continue
		}
		if d.draft == nil {
			d.draft = d.base.Clone()
		}
		node, err := d.draft.Add(p)
		if err != nil {
			return nil, err
		}
		idx := len(d.patterns)
		d.patterns = append(d.patterns, p)
		d.index[p] = idx
		d.byNode[node] = append(d.byNode[node], idx)
		ids[i] = idx
	}
	return ids, nil
}

// Build computes failure links for pending additions and publishes them.
// It is a no-op when nothing changed since the last build.
func (d *Dictionary) Build() (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buildLocked()
}

func (d *Dictionary) buildLocked() (uint64, error) {
	cur := d.live.Load()
	t := d.draft
	if t == nil {
		if cur != nil {
			return cur.generation, nil
		}
		t = d.base
	}

	start := time.Now()
	t.BuildFailureLinks()
	m, err := automaton.NewMatcher(t)
	if err != nil {
		return 0, err
	}

	var gen uint64 = 1
	if cur != nil {
		gen = cur.generation + 1
	}
	d.live.Store(&version{
		generation: gen,
		builtAt:    time.Now().UTC(),
		matcher:    m,
		patterns:   append([]string(nil), d.patterns...),
		byNode:     cloneByNode(d.byNode),
	})
	d.base = t
	d.draft = nil

	d.logger.Info("dictionary built",
		"generation", gen,
		"patterns", len(d.patterns),
		"nodes", t.Len(),
		"duration", time.Since(start),
	)
	return gen, nil
}

func cloneByNode(src map[trie.NodeID][]int) map[trie.NodeID][]int {
	out := make(map[trie.NodeID][]int, len(src))
	for k, v := range src {
		out[k] = append([]int(nil), v...)
	}
	return out
}

func (v *version) hit(m automaton.Match) Hit {
	ids := v.byNode[m.Node]
	h := Hit{Start: m.Start, End: m.End, Pattern: m.Pattern, PatternIDs: ids}
	h.Patterns = make([]string, len(ids))
	for i, id := range ids {
		h.Patterns[i] = v.patterns[id]
	}
	return h
}

// Scan returns every occurrence of a published pattern in text.
func (d *Dictionary) Scan(text string) ([]Hit, error) {
	v := d.live.Load()
	if v == nil {
		return nil, ErrNotBuilt
	}
	hits := []Hit{}
	v.matcher.Each(text, func(m automaton.Match) bool {
		h := v.hit(m)
		h.Text = text[m.Start:m.End]
		hits = append(hits, h)
		return true
	})
	return hits, nil
}

// ScanReader streams r and calls fn for every occurrence. Hit.Text is not
// populated.
func (d *Dictionary) ScanReader(ctx context.Context, r io.Reader, fn func(Hit) error) error {
	v := d.live.Load()
	if v == nil {
		return ErrNotBuilt
	}
	return v.matcher.ScanReader(ctx, r, func(m automaton.Match) error {
		return fn(v.hit(m))
	})
}

// Info summarizes a dictionary.
type Info struct {
	Name       string    `json:"name"`
	Rule       string    `json:"rule"`
	Patterns   int       `json:"patterns"`
	Nodes      int       `json:"nodes"`
	Pending    bool      `json:"pending"`
	Generation uint64    `json:"generation"`
	BuiltAt    time.Time `json:"built_at,omitempty"`
}

// Info returns the dictionary's current statistics.
func (d *Dictionary) Info() Info {
	d.mu.Lock()
	t := d.base
	if d.draft != nil {
		t = d.draft
	}
	info := Info{
		Name:     d.Name,
		Rule:     d.rule.Name,
		Patterns: len(d.patterns),
		Nodes:    t.Len(),
		Pending:  d.draft != nil,
	}
	d.mu.Unlock()

	if v := d.live.Load(); v != nil {
		info.Generation = v.generation
		info.BuiltAt = v.builtAt
	}
	return info
}

// Patterns returns a copy of the registered patterns in index order.
func (d *Dictionary) Patterns() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.patterns...)
}

// current returns the trie a save should persist.
func (d *Dictionary) current() *trie.Trie {
	if d.draft != nil {
		return d.draft
	}
	return d.base
}
