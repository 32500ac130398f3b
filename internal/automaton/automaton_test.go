package automaton

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GoMatch/internal/trie"
)

// runAutomaton feeds a string through an automaton rune-by-rune and returns whether it accepts.
func runAutomaton(a Automaton, input string) bool {
	state := a.Start()
	for _, r := range input {
		state = a.Step(state, r)
		if state == DeadState {
			return false
		}
	}
	return a.IsAccept(state)
}

func newMatcher(t *testing.T, rule trie.Rule, patterns ...string) *Matcher {
	t.Helper()
	tr := trie.New(trie.WithRule(rule))
	for _, p := range patterns {
		_, err := tr.Add(p)
		require.NoError(t, err)
	}
	tr.BuildFailureLinks()
	m, err := NewMatcher(tr)
	require.NoError(t, err)
	return m
}

type span struct {
	Pattern    string
	Start, End int
}

func spans(ms []Match) []span {
	out := make([]span, len(ms))
	for i, m := range ms {
		out[i] = span{m.Pattern, m.Start, m.End}
	}
	return out
}

func TestNewMatcher_RequiresBuild(t *testing.T) {
	tr := trie.New()
	_, err := tr.Add("x")
	require.NoError(t, err)

	_, err = NewMatcher(tr)
	assert.ErrorIs(t, err, ErrNotBuilt)

	_, err = NewMatcher(nil)
	assert.ErrorIs(t, err, ErrNotBuilt)
}

func TestMatcher_Accepts(t *testing.T) {
	m := newMatcher(t, trie.Exact, "he", "she", "his", "hers")

	for _, s := range []string{"he", "she", "ushe", "this", "hers", "xxhe"} {
		assert.True(t, runAutomaton(m, s), "should accept %q", s)
	}
	for _, s := range []string{"", "h", "her", "hi", "xyz"} {
		assert.False(t, runAutomaton(m, s), "should reject %q", s)
	}
	assert.True(t, m.CanMatch(m.Start()))
	assert.False(t, m.CanMatch(DeadState))
	assert.Equal(t, 4, m.PatternCount())
}

func TestFindAll_Classic(t *testing.T) {
	m := newMatcher(t, trie.Exact, "he", "she", "his", "hers")

	got := spans(m.FindAll("ushers"))
	assert.Equal(t, []span{
		{"she", 1, 4},
		{"he", 2, 4},
		{"hers", 2, 6},
	}, got)
}

func TestFindAll_Overlapping(t *testing.T) {
	m := newMatcher(t, trie.Exact, "a", "aa", "aaa")

	got := spans(m.FindAll("aaaa"))
	assert.Equal(t, []span{
		{"a", 0, 1},
		{"aa", 0, 2}, {"a", 1, 2},
		{"aaa", 0, 3}, {"aa", 1, 3}, {"a", 2, 3},
		{"aaa", 1, 4}, {"aa", 2, 4}, {"a", 3, 4},
	}, got)
}

func TestFindAll_NoMatch(t *testing.T) {
	m := newMatcher(t, trie.Exact, "needle")
	assert.Empty(t, m.FindAll("haystack"))
	assert.Empty(t, m.FindAll(""))
	assert.False(t, m.Contains("haystack"))
	assert.Equal(t, 0, m.Count("haystack"))
}

func TestFindAll_FoldKeepsOriginalOffsets(t *testing.T) {
	m := newMatcher(t, trie.FoldCaseWidth, "abc")

	text := "xＡＢＣ abc ABC"
	got := m.FindAll(text)
	require.Len(t, got, 3)
	assert.Equal(t, "ＡＢＣ", text[got[0].Start:got[0].End])
	assert.Equal(t, "abc", text[got[1].Start:got[1].End])
	assert.Equal(t, "ABC", text[got[2].Start:got[2].End])
	for _, mt := range got {
		assert.Equal(t, "abc", mt.Pattern)
	}
}

func TestFindAll_Unicode(t *testing.T) {
	m := newMatcher(t, trie.Exact, "日本", "本語")
	text := "私は日本語"

	got := m.FindAll(text)
	require.Len(t, got, 2)
	assert.Equal(t, "日本", text[got[0].Start:got[0].End])
	assert.Equal(t, "本語", text[got[1].Start:got[1].End])
}

func TestFindFirst(t *testing.T) {
	m := newMatcher(t, trie.Exact, "he", "she")

	got, ok := m.FindFirst("ushe")
	require.True(t, ok)
	assert.Equal(t, span{"she", 1, 4}, span{got.Pattern, got.Start, got.End})

	_, ok = m.FindFirst("nothing")
	assert.False(t, ok)
	assert.True(t, m.Contains("the end"))
	assert.Equal(t, 2, m.Count("ushe"))
}

func TestScanReader_MatchesFindAll(t *testing.T) {
	m := newMatcher(t, trie.FoldCase, "he", "she", "his", "hers", "日本")
	text := strings.Repeat("Ushers and his 日本 ", 50)

	var streamed []Match
	err := m.ScanReader(context.Background(), strings.NewReader(text), func(mt Match) error {
		streamed = append(streamed, mt)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, m.FindAll(text), streamed)
}

func TestScanReader_CallbackError(t *testing.T) {
	m := newMatcher(t, trie.Exact, "a")
	stop := errors.New("stop")

	calls := 0
	err := m.ScanReader(context.Background(), strings.NewReader("aaaa"), func(Match) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, calls)
}

func TestScanReader_Cancelled(t *testing.T) {
	m := newMatcher(t, trie.Exact, "a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.ScanReader(ctx, strings.NewReader("aaaa"), func(Match) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
