package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/tourneyhub/tourneyhub/client-core/internal/activity"
	"github.com/tourneyhub/tourneyhub/client-core/internal/archive"
	"github.com/tourneyhub/tourneyhub/client-core/pkg/logger"
)

func newActivityCmd() *cobra.Command {
	activityCmd := &cobra.Command{
		Use:   "activity",
		Short: "Read and append the auth activity log",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the newest records of one activity type",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, _ := cmd.Flags().GetString("type")
			limit, _ := cmd.Flags().GetInt("limit")
			repo, closeFn, err := openActivity(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			recs := newAggregator(repo).ListByType(cmd.Context(), activity.Type(t), limit)
			return renderRecords(cmd, recs)
		},
	}
	listCmd.Flags().StringP("type", "t", string(activity.TypeLogin), "activity type (login, signup, logout, role_change)")
	listCmd.Flags().IntP("limit", "l", 20, "maximum records")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate activity over [start, end)",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := dateFlag(cmd, "start")
			if err != nil {
				return err
			}
			end, err := dateFlag(cmd, "end")
			if err != nil {
				return err
			}
			repo, closeFn, err := openActivity(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			stats := newAggregator(repo).ComputeStats(cmd.Context(), start, end)
			if stats == nil {
				return errors.New("activity statistics unavailable")
			}
			return renderStats(cmd, stats)
		},
	}
	statsCmd.Flags().String("start", "", "inclusive start (YYYY-MM-DD or RFC 3339)")
	statsCmd.Flags().String("end", "", "exclusive end (YYYY-MM-DD or RFC 3339)")

	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Append an activity record",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			email, _ := cmd.Flags().GetString("email")
			t, _ := cmd.Flags().GetString("type")
			repo, closeFn, err := openActivity(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			rec, err := activity.NewRecorder(repo).Record(cmd.Context(), user, email, activity.Type(t), nil)
			if err != nil {
				return err
			}
			return renderRecords(cmd, []activity.Record{*rec})
		},
	}
	recordCmd.Flags().String("user", "", "user id")
	recordCmd.Flags().String("email", "", "user email")
	recordCmd.Flags().StringP("type", "t", string(activity.TypeLogin), "activity type")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Archive statistics (or a typed listing with --type) to object storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := dateFlag(cmd, "start")
			if err != nil {
				return err
			}
			end, err := dateFlag(cmd, "end")
			if err != nil {
				return err
			}
			t, _ := cmd.Flags().GetString("type")
			limit, _ := cmd.Flags().GetInt("limit")

			store, err := archiveStoreFactory(cmd)
			if err != nil {
				return err
			}
			repo, closeFn, err := openActivity(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			exp := archive.NewExporter(newAggregator(repo), store)
			var key string
			if t != "" {
				key, err = exp.ExportRecords(cmd.Context(), activity.Type(t), limit)
			} else {
				key, err = exp.ExportStats(cmd.Context(), start, end)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			if p, ok := store.(presigner); ok {
				u, err := p.PresignedURL(cmd.Context(), key, cfg.Archive.URLExpiry)
				if err != nil {
					logger.Warnf("presign %s: %v", key, err)
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), u)
			}
			return nil
		},
	}
	exportCmd.Flags().String("start", "", "inclusive start (YYYY-MM-DD or RFC 3339)")
	exportCmd.Flags().String("end", "", "exclusive end (YYYY-MM-DD or RFC 3339)")
	exportCmd.Flags().StringP("type", "t", "", "export a listing of this activity type instead of statistics")
	exportCmd.Flags().IntP("limit", "l", 500, "maximum records for a listing export")

	activityCmd.AddCommand(listCmd, statsCmd, recordCmd, exportCmd)
	return activityCmd
}

// activityRepoFactory is replaced in tests.
var activityRepoFactory = func(cmd *cobra.Command) (activity.Repository, func(), error) {
	db, closeFn, err := openDatabase(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	return activity.NewMongoRepository(db.Collection(cfg.MongoDB.ActivityCollection)), closeFn, nil
}

type presigner interface {
	PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// archiveStoreFactory is replaced in tests.
var archiveStoreFactory = func(cmd *cobra.Command) (archive.ObjectStore, error) {
	return archive.NewMinIOStore(cmd.Context(), archive.MinIOConfig{
		Endpoint:  cfg.Archive.Endpoint,
		AccessKey: cfg.Archive.AccessKey,
		SecretKey: cfg.Archive.SecretKey,
		UseSSL:    cfg.Archive.UseSSL,
		Bucket:    cfg.Archive.Bucket,
	})
}

func openActivity(cmd *cobra.Command) (activity.Repository, func(), error) {
	return activityRepoFactory(cmd)
}

func newAggregator(repo activity.Repository) *activity.Aggregator {
	return activity.NewAggregator(repo, activity.WithOverFetch(cfg.Activity.PrimaryFactor, cfg.Activity.FallbackFactor))
}

func dateFlag(cmd *cobra.Command, name string) (*time.Time, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid --%s %q", name, s)
}

func renderRecords(cmd *cobra.Command, recs []activity.Record) error {
	return render(cmd, recs, func(w io.Writer) {
		fmt.Fprintf(w, "TIME\tTYPE\tUSER\tEMAIL\n")
		for _, r := range recs {
			ts := "-"
			if t, ok := r.EffectiveTime(); ok {
				ts = t.Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ts, r.ActivityType, r.UserID, r.ContactEmail())
		}
	})
}

func renderStats(cmd *cobra.Command, s *activity.Stats) error {
	return render(cmd, s, func(w io.Writer) {
		fmt.Fprintf(w, "DATE\tLOGINS\tSIGNUPS\tLOGOUTS\n")
		days := make([]string, 0, len(s.ByDate))
		for d := range s.ByDate {
			days = append(days, d)
		}
		sort.Strings(days)
		for _, d := range days {
			ds := s.ByDate[d]
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", d, ds.Logins, ds.Signups, ds.Logouts)
		}
		fmt.Fprintf(w, "TOTAL\t%d\t%d\t%d\n", s.TotalLogins, s.TotalSignups, s.TotalLogouts)
		fmt.Fprintf(w, "UNIQUE USERS\t%d\t\t\n", s.UniqueUsers)
	})
}
