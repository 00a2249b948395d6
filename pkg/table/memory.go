package table

import (
	"context"
	"strings"
	"sync"

	"github.com/tidwall/btree"
)

// Memory is a thread-safe, in-memory title table ordered by title.
// It uses a sync.RWMutex to allow many concurrent readers or a single writer.
// Memory implements Store, Prefixer and Writer.
type Memory struct {
	mu   sync.RWMutex
	data btree.Map[string, record]
}

// NewMemory creates an empty table.
func NewMemory() *Memory {
	return &Memory{}
}

// Set adds or replaces the entry for title.
func (m *Memory) Set(title string, e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data.Set(title, toRecord(e))
}

// setRecord stores an already-encoded record; used by AOF replay.
func (m *Memory) setRecord(title string, r record) {
	m.mu.Lock()
	m.data.Set(title, r)
	m.mu.Unlock()
}

// Delete removes title from the table.
func (m *Memory) Delete(title string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data.Delete(title)
}

// Len returns the number of titles.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.Len()
}

// Lookup implements Store.
func (m *Memory) Lookup(_ context.Context, title string) (Entry, bool, error) {
	m.mu.RLock()
	r, ok := m.data.Get(title)
	m.mu.RUnlock()
	if !ok {
		return Entry{}, false, nil
	}
	return r.entry(), true, nil
}

// TitlesWithPrefix implements Prefixer.
func (m *Memory) TitlesWithPrefix(_ context.Context, prefix string, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	m.data.Ascend(prefix, func(title string, _ record) bool {
		if !strings.HasPrefix(title, prefix) {
			return false
		}
		out = append(out, title)
		return limit <= 0 || len(out) < limit
	})
	return out, nil
}

// Put implements Writer.
func (m *Memory) Put(_ context.Context, title string, e Entry) error {
	if err := validTitle(title); err != nil {
		return err
	}
	m.Set(title, e)
	return nil
}

// Close implements Store and Writer. The table stays readable.
func (m *Memory) Close() error {
	return nil
}
