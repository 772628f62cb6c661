package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tourneyhub/tourneyhub/client-core/internal/identity"
	"github.com/tourneyhub/tourneyhub/client-core/internal/models"
	"github.com/tourneyhub/tourneyhub/client-core/internal/profiles"
	"github.com/tourneyhub/tourneyhub/client-core/internal/roles"
	"github.com/tourneyhub/tourneyhub/client-core/pkg/logger"
	"github.com/tourneyhub/tourneyhub/client-core/pkg/metrics"
)

// DefaultBootstrapTimeout bounds how long the controller waits for the first
// identity notification.
const DefaultBootstrapTimeout = 5 * time.Second

// ErrAlreadyStarted is returned by Start while a previous handle is still active.
var ErrAlreadyStarted = errors.New("session controller already started")

// ProfileResolver fetches and classifies the profile of an identity.
type ProfileResolver interface {
	Resolve(ctx context.Context, identityID string) profiles.Result
}

type Option func(*Controller)

// WithClock replaces the clock driving the bootstrap timeout.
func WithClock(c clockwork.Clock) Option {
	return func(ctrl *Controller) { ctrl.clock = c }
}

// WithTimeout overrides DefaultBootstrapTimeout.
func WithTimeout(d time.Duration) Option {
	return func(ctrl *Controller) {
		if d > 0 {
			ctrl.timeout = d
		}
	}
}

// Controller observes identity changes, resolves profiles and writes the
// outcome into the role store. One observation is active at a time.
type Controller struct {
	store    *roles.Store
	resolver ProfileResolver
	provider identity.Provider
	clock    clockwork.Clock
	timeout  time.Duration

	// applyMu serializes store writes with the phase transition they cause,
	// so the run loop and SelectRole never interleave.
	applyMu sync.Mutex

	mu      sync.Mutex
	running bool
	phase   roles.Phase
	emitted bool
	notify  func(roles.Phase)
}

func NewController(store *roles.Store, resolver ProfileResolver, provider identity.Provider, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		resolver: resolver,
		provider: provider,
		clock:    clockwork.NewRealClock(),
		timeout:  DefaultBootstrapTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Handle cancels an observation started by Start.
type Handle struct {
	once   sync.Once
	cancel func()
}

// Cancel stops the bootstrap timer and unsubscribes from the provider.
// Safe to call more than once.
func (h *Handle) Cancel() {
	if h == nil {
		return
	}
	h.once.Do(h.cancel)
}

// Start begins observing identity changes. onPhaseChange (may be nil) is
// called on every phase change, starting with Initializing. It runs under the
// controller's state lock and must not call SelectRole or Reevaluate.
// A controller without provider or resolver ends in Failed and the returned
// handle is inert.
func (c *Controller) Start(ctx context.Context, onPhaseChange func(roles.Phase)) (*Handle, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	c.running = true
	c.emitted = false
	c.notify = onPhaseChange
	c.mu.Unlock()

	if c.provider == nil || c.resolver == nil {
		logger.Errorf("session: cannot bootstrap without identity provider and profile resolver")
		c.clearTo(roles.PhaseFailed, metrics.OutcomeSetupFailed)
		c.setRunning(false)
		return &Handle{cancel: func() {}}, nil
	}

	c.clearTo(roles.PhaseInitializing, "")

	ctx, cancel := context.WithCancel(ctx)
	timer := c.clock.NewTimer(c.timeout)
	mb := newMailbox()
	go c.run(ctx, mb, timer)

	unsubscribe := c.provider.Subscribe(func(id *models.Identity, err error) {
		mb.push(notification{identity: id, err: err})
	})

	return &Handle{cancel: func() {
		cancel()
		timer.Stop()
		unsubscribe()
		c.setRunning(false)
	}}, nil
}

// Phase returns the last emitted phase.
func (c *Controller) Phase() roles.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// SelectRole selects a granted role and re-evaluates the phase. It returns
// false when role is not granted.
func (c *Controller) SelectRole(role string) bool {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	if !c.store.SelectRole(role) {
		return false
	}
	c.reevaluate()
	return true
}

// Reevaluate recomputes the phase from the store for a signed-in session.
func (c *Controller) Reevaluate() {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	c.reevaluate()
}

// reevaluate requires applyMu.
func (c *Controller) reevaluate() {
	switch c.Phase() {
	case roles.PhaseNeedsRoleSelection, roles.PhaseAuthenticated:
		c.transition(c.store.Snapshot().ResolvePhase(), "")
	}
}

// clearTo empties the store and moves to p in one step.
func (c *Controller) clearTo(p roles.Phase, outcome string) {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	c.store.Clear()
	c.transition(p, outcome)
}

func (c *Controller) setRunning(v bool) {
	c.mu.Lock()
	c.running = v
	c.mu.Unlock()
}

func (c *Controller) run(ctx context.Context, mb *mailbox, timer clockwork.Timer) {
	settled := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.Chan():
			if settled {
				continue
			}
			settled = true
			logger.Warnf("session: no identity notification within %s, continuing unauthenticated", c.timeout)
			c.clearTo(roles.PhaseUnauthenticated, metrics.OutcomeTimeout)
		case <-mb.signal:
			for _, n := range mb.drain() {
				if ctx.Err() != nil {
					return
				}
				if !settled {
					settled = true
					timer.Stop()
				}
				c.handle(ctx, n)
			}
		}
	}
}

func (c *Controller) handle(ctx context.Context, n notification) {
	switch {
	case n.err != nil:
		logger.Warnf("session: identity channel fault: %v", n.err)
		c.clearTo(roles.PhaseUnauthenticated, metrics.OutcomeChannelFault)
	case n.identity == nil:
		c.clearTo(roles.PhaseUnauthenticated, metrics.OutcomeSignedOut)
	default:
		c.bootstrap(ctx, n.identity)
	}
}

// bootstrap resolves the profile of id and applies the outcome.
func (c *Controller) bootstrap(ctx context.Context, id *models.Identity) {
	res := c.resolver.Resolve(ctx, id.ID)
	if ctx.Err() != nil {
		return
	}

	switch res.Outcome {
	case profiles.Found:
		c.applyMu.Lock()
		defer c.applyMu.Unlock()
		c.store.SetIdentity(id)
		c.store.SetProfile(res.Profile)
		snap := c.store.Snapshot()
		logger.Infof("session: profile loaded for %s roles=%v", id.ID, snap.Roles)
		c.transition(snap.ResolvePhase(), metrics.OutcomeProfileFound)

	case profiles.NotFound:
		logger.Warnf("session: identity %s has no profile, signing out", id.ID)
		if err := c.provider.SignOut(ctx); err != nil {
			logger.Warnf("session: sign-out of orphaned identity %s failed: %v", id.ID, err)
		}
		c.clearTo(roles.PhaseUnauthenticated, metrics.OutcomeProfileNotFound)

	default:
		// TODO: split permission-denied from network faults once the profile
		// store exposes typed errors; both currently land on spectator.
		logger.Warnf("session: profile fetch for %s failed, continuing as %s: %v", id.ID, models.RoleSpectator, res.Err)
		c.applyMu.Lock()
		defer c.applyMu.Unlock()
		c.store.SetIdentity(id)
		c.store.SetProfile(nil)
		c.store.SetRoles([]string{models.RoleSpectator})
		c.transition(roles.PhaseAuthenticated, metrics.OutcomeProfileFallback)
	}
}

// transition records p and notifies the observer when it differs from the
// last emitted phase. Callers hold applyMu.
func (c *Controller) transition(p roles.Phase, outcome string) {
	if outcome != "" {
		metrics.BootstrapOutcomes.WithLabelValues(outcome).Inc()
	}
	c.store.SetPhase(p)

	c.mu.Lock()
	changed := !c.emitted || c.phase != p
	c.phase = p
	c.emitted = true
	notify := c.notify
	c.mu.Unlock()

	if !changed {
		return
	}
	logger.Infof("session: phase %s", p)
	if notify != nil {
		notify(p)
	}
}
