// Package store persists tries as an append-only log of node rows keyed by
// sequence ID plus a checksummed meta file.
//
// Layout per dictionary:
//
//	<root>/<name>/nodes-<session>.jsonl  one JSON row per saved node, append-only
//	<root>/<name>/meta.json              rule, session, log name, committed log length
//
// A save appends the trie's dirty rows, fsyncs the log, then atomically
// replaces meta.json. Log bytes past meta's committed length belong to an
// interrupted save and are ignored on load and truncated on the next save.
// A trie from a new session gets a new log file; the previous log is removed
// only after meta.json points at the new one.
package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"GoMatch/internal/trie"
)

const (
	metaFile  = "meta.json"
	logPrefix = "nodes-"
	logSuffix = ".jsonl"
)

var (
	ErrNotFound    = errors.New("dictionary not stored")
	ErrCorrupt     = errors.New("stored dictionary corrupt")
	ErrInvalidName = errors.New("invalid dictionary name")
)

// Store manages persisted dictionaries under one root directory.
type Store struct {
	root   string
	logger *slog.Logger
}

// Open creates root if needed and returns a Store over it.
func Open(root string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, errors.Wrapf(err, "create store root %s", root)
	}
	return &Store{root: root, logger: logger}, nil
}

// Root returns the store's directory.
func (s *Store) Root() string { return s.root }

// ValidateName rejects names that are not a single safe path element.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return nil
}

func (s *Store) dir(name string) string { return filepath.Join(s.root, name) }

// Loaded is a restored dictionary.
type Loaded struct {
	Meta     *Meta
	Trie     *trie.Trie
	Patterns []string
}

// Save persists every dirty node of t and the pattern list, then clears the
// saved nodes' dirty flags. A trie from another session is written to a new
// log instead of appending to the stored one. Returns the number of rows
// written.
func (s *Store) Save(name string, t *trie.Trie, patterns []string) (int, error) {
	p, err := s.writeRows(name, t, patterns)
	if err != nil {
		return 0, err
	}
	if err := s.commit(p); err != nil {
		return 0, err
	}
	for _, id := range p.ids {
		t.MarkSaved(id)
	}
	s.logger.Debug("dictionary saved", "name", name, "rows", p.rows, "nodes", p.meta.Nodes)
	return p.rows, nil
}

// pendingSave is a save whose rows are durable but whose meta.json has not
// been replaced yet.
type pendingSave struct {
	dir  string
	meta *Meta
	ids  []trie.NodeID
	rows int
}

// writeRows appends t's unsaved rows to the log the save will commit. The
// stored meta.json, and the log it points at up to its committed length,
// are left untouched.
func (s *Store) writeRows(name string, t *trie.Trie, patterns []string) (*pendingSave, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	dir := s.dir(name)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, errors.Wrapf(err, "create dictionary dir %s", dir)
	}

	prev, err := s.readMeta(name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var committed int64
	rows := 0
	ids, recs := t.DirtyRecords()
	logName := prev.logName()
	if prev == nil || prev.SessionID != t.Session().ID() {
		// Fresh lineage: write the whole trie to its own log.
		logName, err = logNameFor(t.Session().ID())
		if err != nil {
			return nil, err
		}
		ids = nil
		recs = t.Records()
		for id := trie.RootID; int(id) <= t.Len(); id++ {
			ids = append(ids, id)
		}
	} else {
		committed = prev.LogBytes
		rows = prev.Rows
	}

	logPath := filepath.Join(dir, logName)
	if err := truncateTo(logPath, committed); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			return nil, errors.Wrapf(err, "encode node %d", rec.Seq)
		}
	}
	if buf.Len() > 0 {
		if err := appendSync(logPath, buf.Bytes()); err != nil {
			return nil, err
		}
	}

	return &pendingSave{
		dir: dir,
		meta: &Meta{
			Name:      name,
			Rule:      t.Rule().Name,
			SessionID: t.Session().ID(),
			LastSeq:   t.Session().Last(),
			Log:       logName,
			Nodes:     t.Len(),
			Rows:      rows + len(recs),
			LogBytes:  committed + int64(buf.Len()),
			Patterns:  patterns,
			SavedAt:   time.Now().UTC(),
		},
		ids:  ids,
		rows: len(recs),
	}, nil
}

// commit replaces meta.json and then drops logs it no longer points at.
func (s *Store) commit(p *pendingSave) error {
	data, err := marshalMeta(p.meta)
	if err != nil {
		return err
	}
	if err := atomicWriteFile(filepath.Join(p.dir, metaFile), data); err != nil {
		return err
	}
	s.removeStaleLogs(p.dir, p.meta.Log)
	return nil
}

// Load restores a dictionary. The returned trie is validated but its
// failure links are not built.
func (s *Store) Load(name string) (*Loaded, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	meta, err := s.readMeta(name)
	if err != nil {
		return nil, err
	}
	rule, err := trie.RuleByName(meta.Rule)
	if err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "%s: %v", name, err)
	}

	recs, err := s.readLog(name, meta.Log, meta.LogBytes)
	if err != nil {
		return nil, err
	}
	t, err := trie.Restore(rule, trie.ResumeSession(meta.SessionID, meta.LastSeq), recs)
	if err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "%s: %v", name, err)
	}
	if err := t.Validate(); err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "%s: %v", name, err)
	}
	if t.Len() != meta.Nodes {
		return nil, errors.Wrapf(ErrCorrupt, "%s: restored %d nodes, meta says %d", name, t.Len(), meta.Nodes)
	}
	return &Loaded{Meta: meta, Trie: t, Patterns: meta.Patterns}, nil
}

// Exists reports whether name has a committed save.
func (s *Store) Exists(name string) bool {
	if ValidateName(name) != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(s.dir(name), metaFile))
	return err == nil && !info.IsDir()
}

// List returns the names of all stored dictionaries, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "list %s", s.root)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && s.Exists(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a stored dictionary. Deleting a missing one is not an
// error.
func (s *Store) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	return errors.Wrapf(os.RemoveAll(s.dir(name)), "delete %s", name)
}

func (s *Store) readMeta(name string) (*Meta, error) {
	data, err := os.ReadFile(filepath.Join(s.dir(name), metaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "%s", name)
		}
		return nil, errors.Wrapf(err, "read meta %s", name)
	}
	return unmarshalMeta(data)
}

// readLog replays the first n bytes of the named node log. Later rows for a
// sequence ID replace earlier ones.
func (s *Store) readLog(name, log string, n int64) ([]trie.Record, error) {
	if !isLogName(log) {
		return nil, errors.Wrapf(ErrCorrupt, "%s: bad node log name %q", name, log)
	}
	f, err := os.Open(filepath.Join(s.dir(name), log))
	if err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "%s: open node log: %v", name, err)
	}
	defer f.Close()

	bySeq := make(map[uint64]trie.Record)
	sc := bufio.NewScanner(io.LimitReader(f, n))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		var rec trie.Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, errors.Wrapf(ErrCorrupt, "%s: node log line %d: %v", name, line, err)
		}
		bySeq[rec.Seq] = rec
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "read node log %s", name)
	}

	recs := make([]trie.Record, 0, len(bySeq))
	for _, rec := range bySeq {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Seq < recs[j].Seq })
	return recs, nil
}

// truncateTo cuts the log back to its committed length, dropping rows of an
// interrupted save.
func truncateTo(path string, size int64) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "stat %s", path)
	}
	if info.Size() == size {
		return nil
	}
	return errors.Wrapf(os.Truncate(path, size), "truncate %s to %d", path, size)
}

func logNameFor(sessionID string) (string, error) {
	name := logPrefix + sessionID + logSuffix
	if !isLogName(name) {
		return "", errors.Wrapf(ErrInvalidName, "session id %q", sessionID)
	}
	return name, nil
}

func isLogName(name string) bool {
	return len(name) > len(logPrefix)+len(logSuffix) &&
		strings.HasPrefix(name, logPrefix) &&
		strings.HasSuffix(name, logSuffix) &&
		!strings.ContainsAny(name, `/\`)
}

// removeStaleLogs deletes node logs other than keep: the previous lineage's
// log and any left by a fresh save that never committed.
func (s *Store) removeStaleLogs(dir, keep string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Warn("failed to list node logs", "dir", dir, "error", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() || e.Name() == keep || !isLogName(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			s.logger.Warn("failed to remove stale node log", "path", e.Name(), "error", err)
		}
	}
}
