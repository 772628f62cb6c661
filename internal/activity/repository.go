package activity

import (
	"context"
	"errors"
)

// ErrMissingIndex marks a query the store refused because a required index
// (or similar precondition) is missing.
var ErrMissingIndex = errors.New("activity query precondition failed: missing index")

// Repository stores activity records.
type Repository interface {
	Append(ctx context.Context, rec *Record) error
	// Recent returns up to limit records ordered by createdAt, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)
	// Scan returns up to limit records in store order; limit <= 0 means all.
	Scan(ctx context.Context, limit int) ([]Record, error)
}
