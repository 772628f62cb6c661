package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tourneyhub/tourneyhub/client-core/internal/activity"
	"github.com/tourneyhub/tourneyhub/client-core/pkg/logger"
)

// ErrStatsUnavailable is returned when the activity log could not be read.
var ErrStatsUnavailable = errors.New("activity statistics unavailable")

// ObjectStore is the subset of MinIOStore the exporter needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// Querier is implemented by activity.Aggregator.
type Querier interface {
	ListByType(ctx context.Context, t activity.Type, limit int) []activity.Record
	ComputeStats(ctx context.Context, start, end *time.Time) *activity.Stats
}

// Exporter snapshots activity listings and statistics as JSON objects.
type Exporter struct {
	q     Querier
	store ObjectStore
	clock clockwork.Clock
}

type ExporterOption func(*Exporter)

// WithClock drives snapshot timestamps and the scheduler's notion of today.
func WithClock(c clockwork.Clock) ExporterOption {
	return func(e *Exporter) { e.clock = c }
}

func NewExporter(q Querier, store ObjectStore, opts ...ExporterOption) *Exporter {
	e := &Exporter{q: q, store: store, clock: clockwork.NewRealClock()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// StatsSnapshot is the archived form of a statistics run.
type StatsSnapshot struct {
	GeneratedAt time.Time       `json:"generatedAt"`
	Start       *time.Time      `json:"start,omitempty"`
	End         *time.Time      `json:"end,omitempty"`
	Stats       *activity.Stats `json:"stats"`
}

// RecordsSnapshot is the archived form of a typed listing.
type RecordsSnapshot struct {
	GeneratedAt time.Time         `json:"generatedAt"`
	Type        activity.Type     `json:"type"`
	Records     []activity.Record `json:"records"`
}

// ExportStats computes statistics over [start, end) and stores them under
// stats/<range>/<timestamp>.json. It returns the object key.
func (e *Exporter) ExportStats(ctx context.Context, start, end *time.Time) (string, error) {
	stats := e.q.ComputeStats(ctx, start, end)
	if stats == nil {
		return "", ErrStatsUnavailable
	}
	now := e.clock.Now().UTC()
	key := fmt.Sprintf("stats/%s_%s/%s.json", bound(start, "begin"), bound(end, "now"), now.Format("20060102T150405Z"))
	return key, e.put(ctx, key, StatsSnapshot{GeneratedAt: now, Start: start, End: end, Stats: stats})
}

// ExportRecords stores the newest limit records of type t under
// records/<type>/<timestamp>.json.
func (e *Exporter) ExportRecords(ctx context.Context, t activity.Type, limit int) (string, error) {
	if !t.Valid() {
		return "", fmt.Errorf("unknown activity type %q", t)
	}
	recs := e.q.ListByType(ctx, t, limit)
	now := e.clock.Now().UTC()
	key := fmt.Sprintf("records/%s/%s.json", t, now.Format("20060102T150405Z"))
	return key, e.put(ctx, key, RecordsSnapshot{GeneratedAt: now, Type: t, Records: recs})
}

func (e *Exporter) put(ctx context.Context, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := e.store.Put(ctx, key, bytes.NewReader(b), int64(len(b)), "application/json"); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	logger.Infof("archive: stored %s (%d bytes)", key, len(b))
	return nil
}

func bound(t *time.Time, open string) string {
	if t == nil {
		return open
	}
	return t.UTC().Format("2006-01-02")
}
