package activity

import (
	"context"
	"errors"
	"fmt"
)

// queryAttempt is one tier of the listing strategy.
type queryAttempt struct {
	tier   string
	factor int
	fetch  func(ctx context.Context, limit int) ([]Record, error)
	// fallThrough reports whether a failure lets the next tier run.
	fallThrough func(error) bool
}

// queryPlan runs its attempts in order until one succeeds. The shared
// post-filter is applied by the caller.
type queryPlan []queryAttempt

// errPlanExhausted is returned when every attempt failed or a failure was not
// eligible for fallback.
var errPlanExhausted = errors.New("activity query plan exhausted")

type attemptFailure struct {
	tier string
	err  error
}

// run returns the records of the first successful attempt and its tier. The
// failures slice lists the attempts that failed before it.
func (p queryPlan) run(ctx context.Context, limit int) ([]Record, string, []attemptFailure, error) {
	var failures []attemptFailure
	for i, a := range p {
		recs, err := a.fetch(ctx, limit*a.factor)
		if err == nil {
			return recs, a.tier, failures, nil
		}
		failures = append(failures, attemptFailure{tier: a.tier, err: err})
		last := i == len(p)-1
		if last || a.fallThrough == nil || !a.fallThrough(err) {
			break
		}
	}
	return nil, "", failures, fmt.Errorf("%w after %d attempt(s)", errPlanExhausted, len(failures))
}

func isMissingIndex(err error) bool {
	return errors.Is(err, ErrMissingIndex)
}

// newListingPlan builds the ordered-then-unordered plan over repo.
func newListingPlan(repo Repository, primaryFactor, fallbackFactor int) queryPlan {
	return queryPlan{
		{tier: "ordered", factor: primaryFactor, fetch: repo.Recent, fallThrough: isMissingIndex},
		{tier: "unordered", factor: fallbackFactor, fetch: repo.Scan},
	}
}
