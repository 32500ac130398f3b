package dictionary

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/tidwall/match"

	"GoMatch/internal/store"
	"GoMatch/internal/trie"
)

// Manager holds the dictionaries of one process and persists them through
// an optional store.
type Manager struct {
	store  *store.Store
	logger *slog.Logger

	mu    sync.RWMutex
	dicts map[string]*Dictionary
}

// NewManager creates a Manager and loads every dictionary found in st.
// A nil st keeps dictionaries in memory only.
func NewManager(st *store.Store, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:  st,
		logger: logger,
		dicts:  make(map[string]*Dictionary),
	}
	if st != nil {
		if err := m.loadStored(); err != nil {
			return nil, errors.Wrap(err, "load stored dictionaries")
		}
	}
	return m, nil
}

// loadStored opens every stored dictionary, skipping and logging the ones
// that fail to load.
func (m *Manager) loadStored() error {
	names, err := m.store.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		d, err := m.open(name)
		if err != nil {
			m.logger.Error("failed to load dictionary", "name", name, "error", err)
			continue
		}
		m.dicts[name] = d
		info := d.Info()
		m.logger.Info("dictionary loaded",
			"name", name,
			"patterns", info.Patterns,
			"nodes", info.Nodes,
		)
	}
	return nil
}

func (m *Manager) open(name string) (*Dictionary, error) {
	loaded, err := m.store.Load(name)
	if err != nil {
		return nil, err
	}
	d := newDictionary(name, loaded.Trie, m.logger)
	for _, p := range loaded.Patterns {
		node := loaded.Trie.Lookup(p)
		if node == trie.Absent || !loaded.Trie.IsTerminal(node) {
			return nil, errors.Wrapf(store.ErrCorrupt, "%s: pattern %q missing from trie", name, p)
		}
		idx := len(d.patterns)
		d.patterns = append(d.patterns, p)
		d.index[p] = idx
		d.byNode[node] = append(d.byNode[node], idx)
	}
	if _, err := d.Build(); err != nil {
		return nil, err
	}
	return d, nil
}

// Create registers an empty dictionary using the named rule.
func (m *Manager) Create(name, rule string) (*Dictionary, error) {
	if err := store.ValidateName(name); err != nil {
		return nil, err
	}
	r, err := trie.RuleByName(rule)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.dicts[name]; exists {
		return nil, errors.Wrapf(ErrExists, "%s", name)
	}
	d := newDictionary(name, trie.New(trie.WithRule(r)), m.logger)
	m.dicts[name] = d
	m.logger.Info("dictionary created", "name", name, "rule", r.Name)
	return d, nil
}

// Get returns the named dictionary.
func (m *Manager) Get(name string) (*Dictionary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, exists := m.dicts[name]
	if !exists {
		return nil, errors.Wrapf(ErrNotFound, "%s", name)
	}
	return d, nil
}

// Delete removes a dictionary from memory and from the store.
func (m *Manager) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.dicts[name]; !exists {
		return errors.Wrapf(ErrNotFound, "%s", name)
	}
	if m.store != nil {
		if err := m.store.Delete(name); err != nil {
			return err
		}
	}
	delete(m.dicts, name)
	m.logger.Info("dictionary deleted", "name", name)
	return nil
}

// List returns the sorted names matching the glob pattern; "" and "*"
// match everything.
func (m *Manager) List(pattern string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.dicts))
	for name := range m.dicts {
		if pattern == "" || match.Match(name, pattern) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Save persists one dictionary's unsaved nodes and returns how many rows
// were written.
func (m *Manager) Save(name string) (int, error) {
	if m.store == nil {
		return 0, ErrNoStore
	}
	d, err := m.Get(name)
	if err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := m.store.Save(name, d.current(), append([]string(nil), d.patterns...))
	if err != nil {
		return 0, errors.Wrapf(err, "save %s", name)
	}
	d.logger.Info("dictionary saved", "rows", n)
	return n, nil
}

// SaveAll saves every dictionary and returns the first error.
func (m *Manager) SaveAll() error {
	if m.store == nil {
		return nil
	}
	var firstErr error
	for _, name := range m.List("") {
		if _, err := m.Save(name); err != nil {
			m.logger.Error("failed to save dictionary", "name", name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
