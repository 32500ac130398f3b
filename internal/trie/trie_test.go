package trie

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAdd(t *testing.T, tr *Trie, patterns ...string) []NodeID {
	t.Helper()
	ids := make([]NodeID, len(patterns))
	for i, p := range patterns {
		id, err := tr.Add(p)
		require.NoError(t, err, "Add(%q)", p)
		ids[i] = id
	}
	return ids
}

func TestNew_Root(t *testing.T) {
	tr := New()

	assert.Equal(t, 1, tr.Len())
	assert.Equal(t, "", tr.Prefix(RootID))
	assert.Equal(t, Absent, tr.Parent(RootID))
	assert.Equal(t, Absent, tr.FailureLink(RootID))
	assert.False(t, tr.IsTerminal(RootID))
	assert.True(t, tr.Dirty(RootID))
	assert.Equal(t, uint64(1), tr.SequenceID(RootID))
	assert.Equal(t, Exact.Name, tr.Rule().Name)
}

func TestAdd_ReturnsTerminal(t *testing.T) {
	tr := New()
	id, err := tr.Add("hello")
	require.NoError(t, err)

	assert.True(t, tr.IsTerminal(id))
	assert.Equal(t, "hello", tr.Prefix(id))
	assert.Equal(t, 5, tr.Depth(id))
	assert.Equal(t, 6, tr.Len())

	// Intermediate nodes exist but are not terminal.
	hel := tr.Lookup("hel")
	require.NotEqual(t, Absent, hel)
	assert.False(t, tr.IsTerminal(hel))
}

func TestAdd_EmptyPattern(t *testing.T) {
	tr := New()
	id, err := tr.Add("")

	assert.Equal(t, Absent, id)
	assert.True(t, errors.Is(err, ErrInvalidArgument), "got %v", err)
	assert.Equal(t, 1, tr.Len())
}

func TestAddFrom_UnknownNode(t *testing.T) {
	tr := New()
	_, err := tr.AddFrom(NodeID(42), "x")
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = tr.AddFrom(Absent, "x")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestAddFrom_Subtree(t *testing.T) {
	tr := New()
	he := mustAdd(t, tr, "he")[0]

	id, err := tr.AddFrom(he, "llo")
	require.NoError(t, err)
	assert.Equal(t, "hello", tr.Prefix(id))
	assert.Equal(t, id, tr.Lookup("hello"))
}

func TestAdd_Idempotent(t *testing.T) {
	tr := New()
	first := mustAdd(t, tr, "a")[0]
	seq := tr.SequenceID(first)
	last := tr.Session().Last()

	second := mustAdd(t, tr, "a")[0]

	assert.Equal(t, first, second)
	assert.Equal(t, 2, tr.Len())
	assert.Len(t, tr.Children(RootID), 1)
	assert.Equal(t, seq, tr.SequenceID(second))
	assert.Equal(t, last, tr.Session().Last(), "re-adding must not consume ids")
	assert.True(t, tr.IsTerminal(second))
}

func TestAdd_PrefixOfExistingBecomesTerminal(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "hers")
	he := tr.Lookup("he")
	require.NotEqual(t, Absent, he)
	tr.MarkSaved(he)
	require.False(t, tr.IsTerminal(he))

	id := mustAdd(t, tr, "he")[0]

	assert.Equal(t, he, id)
	assert.True(t, tr.IsTerminal(he))
	assert.True(t, tr.Dirty(he), "terminal flip must mark the node dirty")
	assert.Equal(t, 5, tr.Len())
}

func TestAdd_NewNodesDirtyWithFreshIDs(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "ab")
	for _, id := range []NodeID{RootID, tr.Lookup("a"), tr.Lookup("ab")} {
		assert.True(t, tr.Dirty(id))
		tr.MarkSaved(id)
	}
	mustAdd(t, tr, "ac")

	assert.False(t, tr.Dirty(tr.Lookup("a")))
	assert.True(t, tr.Dirty(tr.Lookup("ac")))
}

func TestSequenceIDs_StrictlyIncreasing(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "he", "she", "his", "hers", "he", "s")

	seen := make(map[uint64]bool)
	var last uint64
	for id := RootID; int(id) <= tr.Len(); id++ {
		seq := tr.SequenceID(id)
		assert.False(t, seen[seq], "duplicate sequence id %d", seq)
		assert.Greater(t, seq, last)
		seen[seq] = true
		last = seq
	}
}

func TestSession_SharedAcrossTries(t *testing.T) {
	s := NewSession()
	a := New(WithSession(s))
	b := New(WithSession(s))
	mustAdd(t, a, "xy")
	mustAdd(t, b, "xy")

	ids := map[uint64]bool{}
	for _, tr := range []*Trie{a, b} {
		for id := RootID; int(id) <= tr.Len(); id++ {
			seq := tr.SequenceID(id)
			assert.False(t, ids[seq])
			ids[seq] = true
		}
	}
	assert.Equal(t, uint64(6), s.Last())
	assert.NotEmpty(t, s.ID())
}

func TestPrefix_MatchesEdgePath(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "he", "she", "his", "hers", "héllo", "日本語")

	tr.Walk(func(id NodeID) bool {
		var path []rune
		for n := id; n != RootID; n = tr.Parent(n) {
			path = append([]rune{tr.Char(n)}, path...)
		}
		assert.Equal(t, string(path), tr.Prefix(id))
		return true
	})
}

func TestExploreFailLink_Examples(t *testing.T) {
	tr := New()
	ids := mustAdd(t, tr, "he", "she", "his")

	got, err := tr.ExploreFailLink(RootID, "she", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, ids[0], got)
	assert.True(t, tr.IsTerminal(got))

	got, err = tr.ExploreFailLink(RootID, "xyz", 0, 3)
	require.NoError(t, err)
	assert.Equal(t, Absent, got)
}

func TestExploreFailLink_EveryPatternIsTerminal(t *testing.T) {
	patterns := []string{"a", "ab", "bab", "bc", "bca", "c", "caa", "über", "日本"}
	tr := New()
	mustAdd(t, tr, patterns...)

	for _, p := range patterns {
		got, err := tr.ExploreFailLink(RootID, p, 0, len(p))
		require.NoError(t, err)
		require.NotEqual(t, Absent, got, p)
		assert.True(t, tr.IsTerminal(got), p)
	}
}

func TestExploreFailLink_EmptyRange(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "abc")
	a := tr.Lookup("a")

	for i := 0; i <= 3; i++ {
		got, err := tr.ExploreFailLink(a, "abc", i, i)
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	got, err := tr.ExploreFailLink(RootID, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, RootID, got)
}

func TestExploreFailLink_InvalidUTF8(t *testing.T) {
	// Stray bytes are one-rune steps of U+FFFD, both when adding and when
	// exploring.
	patterns := []string{"\x80", "a\xffb", "\xe6\x97"}
	tr := New()
	ids := mustAdd(t, tr, patterns...)

	for i, p := range patterns {
		got, err := tr.ExploreFailLink(RootID, p, 0, len(p))
		require.NoError(t, err, "%q", p)
		assert.Equal(t, ids[i], got, "%q", p)
		assert.True(t, tr.IsTerminal(got), "%q", p)
		assert.Equal(t, ids[i], tr.Lookup(p), "%q", p)
	}

	for i := 0; i <= 1; i++ {
		got, err := tr.ExploreFailLink(RootID, "\x80", i, i)
		require.NoError(t, err)
		assert.Equal(t, RootID, got)
	}

	// Offset 1 of a truncated sequence is where ranging stops next.
	got, err := tr.ExploreFailLink(RootID, "\xe6\x97", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, ids[0], got)

	got, err = tr.ExploreFailLink(RootID, "a\xffb", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, Absent, got)

	// A real multi-byte rune still cannot be split.
	_, err = tr.ExploreFailLink(RootID, "日", 1, 3)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestExploreFailLink_FromInnerNode(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "hers")

	got, err := tr.ExploreFailLink(tr.Lookup("he"), "xrs", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, tr.Lookup("hers"), got)
}

func TestExploreFailLink_InvalidArguments(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "日本")

	cases := []struct {
		name       string
		from       NodeID
		text       string
		start, end int
	}{
		{"negative start", RootID, "abc", -1, 2},
		{"end past text", RootID, "abc", 0, 4},
		{"start after end", RootID, "abc", 2, 1},
		{"unknown node", NodeID(99), "abc", 0, 1},
		{"absent node", Absent, "abc", 0, 1},
		{"split rune start", RootID, "日本", 1, 6},
		{"split rune end", RootID, "日本", 0, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tr.ExploreFailLink(tc.from, tc.text, tc.start, tc.end)
			assert.Equal(t, Absent, got)
			assert.True(t, errors.Is(err, ErrInvalidArgument), "got %v", err)
		})
	}
}

func TestChildren_AsciiAndWide(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "z", "a", "ж", "M", "日")

	var chars []rune
	for _, c := range tr.Children(RootID) {
		chars = append(chars, tr.Char(c))
	}
	assert.Equal(t, []rune{'M', 'a', 'z', 'ж', '日'}, chars)
	assert.Equal(t, tr.Lookup("ж"), tr.Child(RootID, 'ж'))
	assert.Equal(t, Absent, tr.Child(RootID, 'q'))
}

func TestWalk_StopsEarly(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "abc", "abd")

	visited := 0
	tr.Walk(func(NodeID) bool {
		visited++
		return visited < 2
	})
	assert.Equal(t, 2, visited)
}

func TestAccessors_InvalidIDs(t *testing.T) {
	tr := New()
	bad := NodeID(1000)

	assert.Equal(t, "", tr.Prefix(bad))
	assert.False(t, tr.IsTerminal(bad))
	assert.Equal(t, Absent, tr.Parent(bad))
	assert.Equal(t, Absent, tr.FailureLink(bad))
	assert.Equal(t, Absent, tr.Child(bad, 'a'))
	assert.Nil(t, tr.Children(bad))
	assert.Equal(t, uint64(0), tr.SequenceID(bad))
	assert.False(t, tr.Dirty(bad))
	tr.MarkSaved(bad)
}
