package activity

import (
	"context"
	"sort"
	"time"

	"github.com/tourneyhub/tourneyhub/client-core/pkg/logger"
	"github.com/tourneyhub/tourneyhub/client-core/pkg/metrics"
)

// Default over-fetch multipliers for the listing tiers.
const (
	DefaultPrimaryFactor  = 3
	DefaultFallbackFactor = 5
)

type AggregatorOption func(*Aggregator)

// WithOverFetch overrides the over-fetch multipliers; non-positive values keep
// the defaults.
func WithOverFetch(primary, fallback int) AggregatorOption {
	return func(a *Aggregator) {
		if primary > 0 {
			a.primaryFactor = primary
		}
		if fallback > 0 {
			a.fallbackFactor = fallback
		}
	}
}

// Aggregator lists and summarizes activity records. Failures never propagate:
// listings degrade to an empty slice and statistics to nil.
type Aggregator struct {
	repo           Repository
	primaryFactor  int
	fallbackFactor int
	plan           queryPlan
}

func NewAggregator(repo Repository, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{repo: repo, primaryFactor: DefaultPrimaryFactor, fallbackFactor: DefaultFallbackFactor}
	for _, o := range opts {
		o(a)
	}
	a.plan = newListingPlan(repo, a.primaryFactor, a.fallbackFactor)
	return a
}

// ListByType returns up to limit records of type t, newest first. Only
// records with a user id and an email (direct or in metadata) qualify.
func (a *Aggregator) ListByType(ctx context.Context, t Type, limit int) []Record {
	if !t.Valid() || limit <= 0 {
		return []Record{}
	}
	recs, tier, failures, err := a.plan.run(ctx, limit)
	for _, f := range failures {
		metrics.ActivityQueries.WithLabelValues(f.tier, "error").Inc()
		logger.Warnf("activity: %s query for %s failed: %v", f.tier, t, f.err)
	}
	if err != nil {
		logger.Warnf("activity: listing %s degraded to empty: %v", t, err)
		return []Record{}
	}
	metrics.ActivityQueries.WithLabelValues(tier, "ok").Inc()
	return selectRecords(recs, t, limit)
}

// selectRecords dedupes, filters, sorts newest first and truncates.
func selectRecords(recs []Record, t Type, limit int) []Record {
	seen := make(map[string]struct{}, len(recs))
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		if r.ID != "" {
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
		}
		if r.ActivityType != t || r.UserID == "" || r.ContactEmail() == "" {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, _ := out[i].EffectiveTime()
		tj, _ := out[j].EffectiveTime()
		return ti.After(tj)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ComputeStats aggregates every record whose effective time falls in
// [start, end). Nil bounds are open. Records without a resolvable time are
// skipped. Returns nil when the store cannot be read.
func (a *Aggregator) ComputeStats(ctx context.Context, start, end *time.Time) *Stats {
	recs, err := a.repo.Scan(ctx, 0)
	if err != nil {
		metrics.ActivityStats.WithLabelValues("error").Inc()
		logger.Warnf("activity: stats unavailable: %v", err)
		return nil
	}
	metrics.ActivityStats.WithLabelValues("ok").Inc()
	return aggregate(recs, start, end)
}

func aggregate(recs []Record, start, end *time.Time) *Stats {
	stats := &Stats{ByDate: map[string]DayStats{}}
	users := map[string]struct{}{}
	seen := map[string]struct{}{}

	for _, r := range recs {
		if r.ID != "" {
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
		}
		ts, ok := r.EffectiveTime()
		if !ok {
			logger.Debugf("activity: skipping record %q without timestamp", r.ID)
			continue
		}
		if start != nil && ts.Before(*start) {
			continue
		}
		if end != nil && !ts.Before(*end) {
			continue
		}

		day := ts.UTC().Format("2006-01-02")
		d := stats.ByDate[day]
		switch r.ActivityType {
		case TypeLogin:
			stats.TotalLogins++
			d.Logins++
		case TypeSignup:
			stats.TotalSignups++
			d.Signups++
		case TypeLogout:
			stats.TotalLogouts++
			d.Logouts++
		}
		stats.ByDate[day] = d
		if r.UserID != "" {
			users[r.UserID] = struct{}{}
		}
	}
	stats.UniqueUsers = len(users)
	return stats
}
