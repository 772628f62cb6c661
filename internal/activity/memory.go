package activity

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository is an in-memory repository used when MongoDB is not
// configured and in unit tests. RecentErr and ScanErr, when set, are returned
// by the corresponding queries.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []Record

	RecentErr error
	ScanErr   error
}

func NewMemoryRepository(records ...Record) *MemoryRepository {
	return &MemoryRepository{records: append([]Record(nil), records...)}
}

func (m *MemoryRepository) Append(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *rec)
	return nil
}

func (m *MemoryRepository) Recent(ctx context.Context, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.RecentErr != nil {
		return nil, m.RecentErr
	}
	out := append([]Record(nil), m.records...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return truncate(out, limit), nil
}

func (m *MemoryRepository) Scan(ctx context.Context, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ScanErr != nil {
		return nil, m.ScanErr
	}
	return truncate(append([]Record(nil), m.records...), limit), nil
}

func truncate(recs []Record, limit int) []Record {
	if limit > 0 && len(recs) > limit {
		return recs[:limit]
	}
	return recs
}
