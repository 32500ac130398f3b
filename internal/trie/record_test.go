package trie

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestore_RoundTrip(t *testing.T) {
	tr := New(WithRule(FoldCase))
	mustAdd(t, tr, "He", "she", "his", "hers", "日本")

	restored, err := Restore(FoldCase, ResumeSession(tr.Session().ID(), 0), tr.Records())
	require.NoError(t, err)
	require.NoError(t, restored.Validate())

	assert.Equal(t, tr.Len(), restored.Len())
	tr.Walk(func(id NodeID) bool {
		got := restored.Lookup(tr.Prefix(id))
		require.NotEqual(t, Absent, got, tr.Prefix(id))
		assert.Equal(t, tr.SequenceID(id), restored.SequenceID(got))
		assert.Equal(t, tr.IsTerminal(id), restored.IsTerminal(got))
		assert.False(t, restored.Dirty(got))
		return true
	})

	// The resumed session never reissues a restored id.
	assert.Equal(t, tr.Session().Last(), restored.Session().Last())
	id, err := restored.Add("new")
	require.NoError(t, err)
	assert.Greater(t, restored.SequenceID(id), tr.Session().Last())
}

func TestRestore_UnsortedInput(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "abc")
	recs := tr.Records()
	recs[0], recs[3] = recs[3], recs[0]

	restored, err := Restore(Exact, nil, recs)
	require.NoError(t, err)
	assert.True(t, restored.IsTerminal(restored.Lookup("abc")))
}

func TestRestore_Corrupt(t *testing.T) {
	cases := []struct {
		name string
		recs []Record
	}{
		{"empty", nil},
		{"root has parent", []Record{{Seq: 1, Parent: 7}}},
		{"zero seq", []Record{{Seq: 0}}},
		{"duplicate seq", []Record{{Seq: 1}, {Seq: 1, Parent: 1, Char: 'a'}}},
		{"unknown parent", []Record{{Seq: 1}, {Seq: 2, Parent: 9, Char: 'a'}}},
		{"duplicate edge", []Record{{Seq: 1}, {Seq: 2, Parent: 1, Char: 'a'}, {Seq: 3, Parent: 1, Char: 'a'}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Restore(Exact, nil, tc.recs)
			assert.True(t, errors.Is(err, ErrCorrupt), "got %v", err)
		})
	}
}

func TestDirtyRecords(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "ab")
	ids, recs := tr.DirtyRecords()
	require.Len(t, ids, 3)
	require.Len(t, recs, 3)
	assert.Equal(t, uint64(0), recs[0].Parent)
	assert.Equal(t, recs[0].Seq, recs[1].Parent)
	for _, id := range ids {
		tr.MarkSaved(id)
	}

	mustAdd(t, tr, "abc")
	ids, recs = tr.DirtyRecords()
	require.Len(t, ids, 1)
	assert.Equal(t, 'c', recs[0].Char)
	assert.True(t, recs[0].Terminal)
}

func TestClone_Independent(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "he", "she")
	tr.BuildFailureLinks()

	c := tr.Clone()
	assert.True(t, c.Built())
	mustAdd(t, c, "hers")

	assert.Equal(t, Absent, tr.Lookup("hers"))
	assert.NotEqual(t, Absent, c.Lookup("hers"))
	assert.True(t, tr.Built())
	assert.False(t, c.Built())
	require.NoError(t, tr.Validate())
	require.NoError(t, c.Validate())

	// Both copies draw from one session.
	assert.Same(t, tr.Session(), c.Session())
}

func TestValidate_DetectsBadFailureLink(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "he", "she")
	tr.BuildFailureLinks()
	require.NoError(t, tr.Validate())

	tr.nodes[tr.Lookup("she")].fail = RootID
	assert.True(t, errors.Is(tr.Validate(), ErrCorrupt))
}

func TestValidate_DetectsBadPrefix(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "ab")
	tr.nodes[tr.Lookup("ab")].prefix = "xx"
	assert.True(t, errors.Is(tr.Validate(), ErrCorrupt))
}
