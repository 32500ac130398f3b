package testutil

import (
	"os"
	"strings"
	"testing"

	"GoMatch/internal/automaton"
	"GoMatch/internal/trie"
)

// WithTempDir creates a temporary directory, calls fn with its path,
// and cleans up afterwards.
func WithTempDir(t *testing.T, fn func(dir string)) {
	t.Helper()
	dir := t.TempDir()
	fn(dir)
}

// SamplePatterns returns the classic he/she/his/hers pattern set.
func SamplePatterns() []string {
	return []string{"he", "she", "his", "hers"}
}

// Vocabulary returns n distinct lowercase words of varying length.
func Vocabulary(n int) []string {
	words := make([]string, n)
	for i := range words {
		var sb strings.Builder
		for v := i + 1; v > 0; v /= 26 {
			sb.WriteByte(byte('a' + v%26))
		}
		sb.WriteString("x")
		words[i] = sb.String()
	}
	return words
}

// NewTrie adds patterns to a fresh trie using rule.
func NewTrie(tb testing.TB, rule trie.Rule, patterns ...string) *trie.Trie {
	tb.Helper()
	t := trie.New(trie.WithRule(rule))
	for _, p := range patterns {
		if _, err := t.Add(p); err != nil {
			tb.Fatalf("Add(%q): %v", p, err)
		}
	}
	return t
}

// BuiltMatcher returns a matcher over a freshly built trie of patterns.
func BuiltMatcher(tb testing.TB, rule trie.Rule, patterns ...string) *automaton.Matcher {
	tb.Helper()
	t := NewTrie(tb, rule, patterns...)
	t.BuildFailureLinks()
	m, err := automaton.NewMatcher(t)
	if err != nil {
		tb.Fatalf("NewMatcher: %v", err)
	}
	return m
}

// AssertFileExists checks that a file exists at the given path.
func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("expected file to exist: %s", path)
	}
}

// AssertDirExists checks that a directory exists at the given path.
func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("expected directory to exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("expected %s to be a directory", path)
	}
}
