package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tourneyhub/tourneyhub/client-core/internal/models"
	"github.com/tourneyhub/tourneyhub/client-core/internal/prefs"
	"github.com/tourneyhub/tourneyhub/client-core/pkg/logger"
)

// Listener receives identity changes. A nil identity with a nil error means
// signed out; a non-nil error is a fault of the notification channel itself.
type Listener func(id *models.Identity, err error)

// Provider is the identity-provider contract the session controller depends on.
type Provider interface {
	// Subscribe registers l and returns a func that removes it.
	Subscribe(l Listener) (unsubscribe func())
	SignOut(ctx context.Context) error
}

// TokenProvider is a Provider driven by verified id tokens. The raw token is
// persisted in a prefs.Store so a restarted client can restore the identity.
type TokenProvider struct {
	verifier Verifier
	tokens   prefs.Store

	mu        sync.Mutex
	current   *models.Identity
	known     bool
	nextID    int
	listeners map[int]Listener
}

// NewTokenProvider creates a provider. tokens may be nil to disable persistence.
func NewTokenProvider(v Verifier, tokens prefs.Store) *TokenProvider {
	return &TokenProvider{verifier: v, tokens: tokens, listeners: make(map[int]Listener)}
}

// Subscribe registers l. Once the current state is known (after Restore,
// SignIn or SignOut) it is delivered to l immediately.
func (p *TokenProvider) Subscribe(l Listener) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = l
	known, cur := p.known, copyIdentity(p.current)
	p.mu.Unlock()

	if known {
		l(cur, nil)
	}
	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// Current returns the signed-in identity or nil.
func (p *TokenProvider) Current() *models.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyIdentity(p.current)
}

// Restore replays the persisted token. A missing or rejected token resolves
// to signed out; a verifier or storage fault is reported to listeners as a
// channel error.
func (p *TokenProvider) Restore(ctx context.Context) {
	if p.tokens == nil {
		p.publish(nil, nil)
		return
	}
	raw, ok, err := p.tokens.Get(ctx, prefs.IDTokenKey)
	if err != nil {
		p.fault(fmt.Errorf("read persisted token: %w", err))
		return
	}
	if !ok || raw == "" {
		p.publish(nil, nil)
		return
	}
	id, _, err := p.verify(ctx, raw)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			logger.Infof("identity: dropping persisted token: %v", err)
			_ = p.tokens.Delete(ctx, prefs.IDTokenKey)
			p.publish(nil, nil)
			return
		}
		p.fault(fmt.Errorf("verify persisted token: %w", err))
		return
	}
	p.publish(id, nil)
}

// SignIn verifies rawIDToken and makes its subject the current identity.
// Verification failures are returned to the caller and do not notify listeners.
func (p *TokenProvider) SignIn(ctx context.Context, rawIDToken string) (*models.Identity, error) {
	id, exp, err := p.verify(ctx, rawIDToken)
	if err != nil {
		return nil, err
	}
	if p.tokens != nil {
		var ttl time.Duration
		if !exp.IsZero() {
			ttl = time.Until(exp)
			if ttl <= 0 {
				return nil, fmt.Errorf("%w: token already expired", ErrInvalidToken)
			}
		}
		if err := p.tokens.Set(ctx, prefs.IDTokenKey, rawIDToken, ttl); err != nil {
			logger.Warnf("identity: failed to persist token for %s: %v", id.ID, err)
		}
	}
	p.publish(id, nil)
	return copyIdentity(id), nil
}

// SignOut forgets the current identity. Listeners are notified even when the
// persisted token could not be removed; that failure is returned.
func (p *TokenProvider) SignOut(ctx context.Context) error {
	var err error
	if p.tokens != nil {
		if derr := p.tokens.Delete(ctx, prefs.IDTokenKey); derr != nil {
			err = fmt.Errorf("delete persisted token: %w", derr)
		}
	}
	p.publish(nil, nil)
	return err
}

func (p *TokenProvider) verify(ctx context.Context, raw string) (*models.Identity, time.Time, error) {
	if p.verifier == nil {
		return nil, time.Time{}, errors.New("no identity verifier configured")
	}
	tok, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, time.Time{}, err
	}
	return parseClaims(tok)
}

func (p *TokenProvider) publish(id *models.Identity, err error) {
	p.mu.Lock()
	if err == nil {
		p.current = copyIdentity(id)
		p.known = true
	}
	ls := make([]Listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		ls = append(ls, l)
	}
	p.mu.Unlock()

	for _, l := range ls {
		l(copyIdentity(id), err)
	}
}

func (p *TokenProvider) fault(err error) {
	logger.Warnf("identity: channel fault: %v", err)
	p.publish(nil, err)
}

func copyIdentity(id *models.Identity) *models.Identity {
	if id == nil {
		return nil
	}
	cp := *id
	return &cp
}
