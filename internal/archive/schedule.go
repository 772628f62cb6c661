package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tourneyhub/tourneyhub/client-core/pkg/logger"
)

// Scheduler runs periodic statistics exports. Expressions include a seconds
// field, e.g. "0 5 0 * * *" for 00:05:00 every day.
type Scheduler struct {
	exp  *Exporter
	cron *cron.Cron
}

func NewScheduler(exp *Exporter) *Scheduler {
	return &Scheduler{
		exp:  exp,
		cron: cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
	}
}

// AddDailyStats schedules an export of the previous UTC day at each trigger.
func (s *Scheduler) AddDailyStats(ctx context.Context, spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.exportPreviousDay(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	logger.Infof("archive: daily statistics export scheduled (%s)", spec)
	return nil
}

func (s *Scheduler) exportPreviousDay(ctx context.Context) (string, error) {
	end := s.exp.clock.Now().UTC().Truncate(24 * time.Hour)
	start := end.Add(-24 * time.Hour)
	key, err := s.exp.ExportStats(ctx, &start, &end)
	if err != nil {
		logger.Warnf("archive: scheduled export for %s failed: %v", start.Format("2006-01-02"), err)
	}
	return key, err
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for a running export to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logger.Warnf("archive: scheduler stop timed out")
	}
}
