package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is the in-memory TabularStore used by tests and local runs.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string]*memoryTable

	// FailAppends makes the next N AppendRows calls fail, for exercising
	// the flush retry path.
	FailAppends int
}

type memoryTable struct {
	header []string
	rows   [][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]*memoryTable)}
}

func (m *MemoryStore) EnsureTable(_ context.Context, name string, header []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tables[name]; !ok {
		m.tables[name] = &memoryTable{header: append([]string(nil), header...)}
	}
	return nil
}

func (m *MemoryStore) AppendRows(_ context.Context, name string, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAppends > 0 {
		m.FailAppends--
		return fmt.Errorf("simulated append failure")
	}

	table, ok := m.tables[name]
	if !ok {
		return fmt.Errorf("table %s does not exist", name)
	}
	for _, row := range rows {
		table.rows = append(table.rows, append([]string(nil), row...))
	}
	return nil
}

func (m *MemoryStore) ReadAll(_ context.Context, name string) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	table, ok := m.tables[name]
	if !ok {
		return nil, fmt.Errorf("table %s does not exist", name)
	}

	result := [][]string{append([]string(nil), table.header...)}
	for _, row := range table.rows {
		result = append(result, append([]string(nil), row...))
	}
	return result, nil
}

// Seed replaces the table contents with the given header and rows.
func (m *MemoryStore) Seed(name string, header []string, rows [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	table := &memoryTable{header: append([]string(nil), header...)}
	for _, row := range rows {
		table.rows = append(table.rows, append([]string(nil), row...))
	}
	m.tables[name] = table
}

// Rows returns the data rows of a table, or nil when it does not exist.
func (m *MemoryStore) Rows(name string) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	table, ok := m.tables[name]
	if !ok {
		return nil
	}
	out := make([][]string, 0, len(table.rows))
	for _, row := range table.rows {
		out = append(out, append([]string(nil), row...))
	}
	return out
}
