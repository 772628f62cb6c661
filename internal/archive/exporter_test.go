package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/tourneyhub/tourneyhub/client-core/internal/activity"
)

// in-memory object store
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if m.err != nil {
		return m.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(b)) != size {
		return errors.New("size mismatch")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	m.types[key] = contentType
	return nil
}

var fixedNow = time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)

func newTestExporter(repo activity.Repository, store ObjectStore) *Exporter {
	return NewExporter(activity.NewAggregator(repo), store, WithClock(clockwork.NewFakeClockAt(fixedNow)))
}

func TestExportStats(t *testing.T) {
	ts := time.Date(2024, 5, 20, 8, 0, 0, 0, time.UTC)
	repo := activity.NewMemoryRepository(
		activity.Record{UserID: "u1", ActivityType: activity.TypeLogin, Timestamp: &ts},
		activity.Record{UserID: "u2", ActivityType: activity.TypeSignup, Timestamp: &ts},
	)
	store := newMemStore()
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	key, err := newTestExporter(repo, store).ExportStats(context.Background(), &start, nil)
	require.NoError(t, err)
	require.Equal(t, "stats/2024-05-01_now/20240601T123000Z.json", key)
	require.Equal(t, "application/json", store.types[key])

	var snap StatsSnapshot
	require.NoError(t, json.Unmarshal(store.objects[key], &snap))
	require.Equal(t, 1, snap.Stats.TotalLogins)
	require.Equal(t, 1, snap.Stats.TotalSignups)
	require.Equal(t, 2, snap.Stats.UniqueUsers)
	require.Nil(t, snap.End)
}

func TestExportStatsUnavailable(t *testing.T) {
	repo := activity.NewMemoryRepository()
	repo.ScanErr = errors.New("unauthorized")
	store := newMemStore()

	_, err := newTestExporter(repo, store).ExportStats(context.Background(), nil, nil)
	require.ErrorIs(t, err, ErrStatsUnavailable)
	require.Empty(t, store.objects)
}

func TestExportRecords(t *testing.T) {
	ts := time.Date(2024, 5, 20, 8, 0, 0, 0, time.UTC)
	repo := activity.NewMemoryRepository(
		activity.Record{ID: "a", UserID: "u1", Email: "u1@example.com", ActivityType: activity.TypeLogout, Timestamp: &ts},
		activity.Record{ID: "b", UserID: "u2", Email: "u2@example.com", ActivityType: activity.TypeLogin, Timestamp: &ts},
	)
	store := newMemStore()
	e := newTestExporter(repo, store)

	key, err := e.ExportRecords(context.Background(), activity.TypeLogout, 10)
	require.NoError(t, err)
	require.Equal(t, "records/logout/20240601T123000Z.json", key)

	var snap RecordsSnapshot
	require.NoError(t, json.Unmarshal(store.objects[key], &snap))
	require.Len(t, snap.Records, 1)
	require.Equal(t, "a", snap.Records[0].ID)

	_, err = e.ExportRecords(context.Background(), activity.Type("nope"), 10)
	require.Error(t, err)
}

func TestExportUploadFailure(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("bucket gone")
	_, err := newTestExporter(activity.NewMemoryRepository(), store).ExportRecords(context.Background(), activity.TypeLogin, 5)
	require.ErrorContains(t, err, "bucket gone")
}

func TestNewMinIOStoreRequiresEndpoint(t *testing.T) {
	_, err := NewMinIOStore(context.Background(), MinIOConfig{})
	require.Error(t, err)
}
