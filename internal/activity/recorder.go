package activity

import (
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Recorder appends activity records for auth events.
type Recorder struct {
	repo  Repository
	clock clockwork.Clock
}

type RecorderOption func(*Recorder)

// WithRecorderClock stamps records with c instead of the wall clock.
func WithRecorderClock(c clockwork.Clock) RecorderOption {
	return func(r *Recorder) { r.clock = c }
}

func NewRecorder(repo Repository, opts ...RecorderOption) *Recorder {
	r := &Recorder{repo: repo, clock: clockwork.NewRealClock()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Record stores a new record for userID and returns it.
func (r *Recorder) Record(ctx context.Context, userID, email string, t Type, metadata map[string]interface{}) (*Record, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown activity type %q", t)
	}
	if userID == "" {
		return nil, errors.New("activity record requires a user id")
	}
	now := r.clock.Now().UTC()
	rec := &Record{
		ID:           uuid.NewString(),
		UserID:       userID,
		Email:        email,
		ActivityType: t,
		Metadata:     metadata,
		Timestamp:    &now,
		CreatedAt:    now.Format(isoLayout),
	}
	if err := r.repo.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("append %s activity: %w", t, err)
	}
	return rec, nil
}
