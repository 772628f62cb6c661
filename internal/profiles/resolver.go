package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tourneyhub/tourneyhub/client-core/internal/models"
)

// ErrProfileNotFound marks an identity whose profile record does not exist.
var ErrProfileNotFound = errors.New("profile not found")

// Outcome classifies a profile fetch.
type Outcome int

const (
	Found Outcome = iota
	NotFound
	Transient
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case Transient:
		return "transient"
	}
	return "unknown"
}

// Result is the outcome of Resolve. Profile is set for Found, Err for
// NotFound (ErrProfileNotFound) and Transient.
type Result struct {
	Outcome Outcome
	Profile *models.Profile
	Err     error
}

// Resolver fetches the profile belonging to an identity.
type Resolver struct {
	repo    Repository
	timeout time.Duration
}

// NewResolver creates a resolver. A zero timeout leaves the caller's deadline alone.
func NewResolver(r Repository, timeout time.Duration) *Resolver {
	return &Resolver{repo: r, timeout: timeout}
}

// Resolve fetches and classifies the profile for identityID. A missing record
// is NotFound; any other failure (network, permission, deadline) is Transient
// unless its message says the record was not found.
func (s *Resolver) Resolve(ctx context.Context, identityID string) Result {
	if identityID == "" {
		return Result{Outcome: NotFound, Err: ErrProfileNotFound}
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	p, err := s.repo.GetByID(ctx, identityID)
	if err != nil {
		if isNotFound(err) {
			return Result{Outcome: NotFound, Err: fmt.Errorf("%w: %v", ErrProfileNotFound, err)}
		}
		return Result{Outcome: Transient, Err: fmt.Errorf("fetch profile %s: %w", identityID, err)}
	}
	if p == nil {
		return Result{Outcome: NotFound, Err: ErrProfileNotFound}
	}
	if p.ID == "" {
		p.ID = identityID
	}
	return Result{Outcome: Found, Profile: p}
}

func isNotFound(err error) bool {
	if errors.Is(err, ErrProfileNotFound) {
		return true
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "not-found")
}
