package transcript

import (
	"context"
	"iter"
	"slices"
	"sync"
)

// MemoryStore is an in-memory Store, used when no data directory is
// configured.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

var _ Store = (*MemoryStore)(nil)

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, rec *Record) error {
	cp := &Record{Session: rec.Session, Entries: slices.Clone(rec.Entries)}
	cp.Session.Entries = len(cp.Entries)
	m.mu.Lock()
	m.records[rec.Session.ID] = cp
	m.mu.Unlock()
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, id string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &Record{Session: rec.Session, Entries: slices.Clone(rec.Entries)}, nil
}

// Sessions implements Store.
func (m *MemoryStore) Sessions(_ context.Context) iter.Seq2[Session, error] {
	m.mu.Lock()
	sessions := make([]Session, 0, len(m.records))
	for _, r := range m.records {
		sessions = append(sessions, r.Session)
	}
	m.mu.Unlock()
	slices.SortFunc(sessions, func(a, b Session) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return func(yield func(Session, error) bool) {
		for _, s := range sessions {
			if !yield(s, nil) {
				return
			}
		}
	}
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.records, id)
	m.mu.Unlock()
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
