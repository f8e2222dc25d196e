package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory RowStore used by tests and single-process
// development setups. It honors the same visibility, ordering, tombstone,
// and atomicity contract as the durable backends.
type MemoryStore struct {
	table     string
	splitBits int
	eval      *VisibilityEvaluator

	mu          sync.RWMutex
	rows        map[string]*memoryRow
	splits      [][]byte
	provisioned bool
}

type memoryRow struct {
	cells      map[string]memoryCell
	tombstoned bool
}

type memoryCell struct {
	family     string
	qualifier  string
	visibility string
	value      []byte
}

// NewMemoryStore creates an empty in-memory table.
func NewMemoryStore(table string, splitBits int) (*MemoryStore, error) {
	if _, err := Splits(splitBits); err != nil {
		return nil, err
	}
	eval, err := NewVisibilityEvaluator()
	if err != nil {
		return nil, err
	}
	return &MemoryStore{
		table:     table,
		splitBits: splitBits,
		eval:      eval,
		rows:      make(map[string]*memoryRow),
	}, nil
}

func (s *MemoryStore) Provision(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.provisioned {
		return nil
	}
	splits, err := Splits(s.splitBits)
	if err != nil {
		return err
	}
	s.splits = splits
	s.provisioned = true
	return nil
}

func (s *MemoryStore) Scan(ctx context.Context, row []byte, family string, auths Authorizations) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rows[string(row)]
	if !ok || r.tombstoned {
		return nil, nil
	}

	var entries []Entry
	for _, cell := range r.cells {
		if family != "" && cell.family != family {
			continue
		}
		visible, err := s.eval.Visible(cell.visibility, auths)
		if err != nil || !visible {
			// unreadable labels behave exactly like unsatisfied ones
			continue
		}
		value := make([]byte, len(cell.value))
		copy(value, cell.value)
		entries = append(entries, Entry{
			Family:     cell.family,
			Qualifier:  cell.qualifier,
			Visibility: cell.visibility,
			Value:      value,
		})
	}

	sortEntries(entries)
	return entries, nil
}

func (s *MemoryStore) ApplyAtomic(ctx context.Context, row []byte, muts []Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[string(row)]
	if !ok {
		r = &memoryRow{cells: make(map[string]memoryCell)}
		s.rows[string(row)] = r
	}
	r.tombstoned = false

	for _, mut := range muts {
		key := mut.Family + "\x00" + mut.Qualifier
		if mut.Delete {
			delete(r.cells, key)
			continue
		}
		value := make([]byte, len(mut.Value))
		copy(value, mut.Value)
		r.cells[key] = memoryCell{
			family:     mut.Family,
			qualifier:  mut.Qualifier,
			visibility: mut.Visibility,
			value:      value,
		}
	}
	return nil
}

func (s *MemoryStore) TombstoneRow(ctx context.Context, row []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[string(row)]
	if !ok {
		r = &memoryRow{cells: make(map[string]memoryCell)}
		s.rows[string(row)] = r
	}
	r.tombstoned = true
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
