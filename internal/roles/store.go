package roles

import (
	"slices"
	"sync"

	"github.com/tourneyhub/tourneyhub/client-core/internal/models"
)

// Session is the derived client session. SelectedRole is empty when no role
// is selected.
type Session struct {
	Identity     *models.Identity
	Profile      *models.Profile
	Roles        []string
	SelectedRole string
	// RoleConfirmed is set once the user picked SelectedRole explicitly.
	RoleConfirmed bool
	Phase         Phase
}

// ResolvePhase derives the navigable phase from the session content.
// A single granted role counts as confirmed since there is nothing to pick.
func (s Session) ResolvePhase() Phase {
	if s.Identity == nil {
		return PhaseUnauthenticated
	}
	if len(s.Roles) > 1 && !s.RoleConfirmed {
		return PhaseNeedsRoleSelection
	}
	return PhaseAuthenticated
}

// HasRole reports whether role is granted.
func (s Session) HasRole(role string) bool {
	return slices.Contains(s.Roles, role)
}

func (s Session) clone() Session {
	out := s
	out.Roles = slices.Clone(s.Roles)
	if s.Identity != nil {
		id := *s.Identity
		out.Identity = &id
	}
	if s.Profile != nil {
		p := *s.Profile
		p.Roles = slices.Clone(s.Profile.Roles)
		out.Profile = &p
	}
	return out
}

// Store is the in-memory container for the session. Every mutation keeps:
//   - SelectedRole, when set, is an element of Roles
//   - a nil Identity means no profile, no roles and no selection
type Store struct {
	mu        sync.RWMutex
	sess      Session
	nextID    int
	listeners map[int]func(Session)
}

func NewStore() *Store {
	return &Store{
		sess:      Session{Phase: PhaseInitializing},
		listeners: make(map[int]func(Session)),
	}
}

// Snapshot returns a deep copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.clone()
}

// Subscribe registers fn to receive a snapshot after each effective mutation.
// The returned func removes the subscription.
func (s *Store) Subscribe(fn func(Session)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// mutate applies fn under the write lock and notifies listeners when fn
// reports a change.
func (s *Store) mutate(fn func(*Session) bool) bool {
	s.mu.Lock()
	changed := fn(&s.sess)
	var snap Session
	var fns []func(Session)
	if changed {
		snap = s.sess.clone()
		for _, l := range s.listeners {
			fns = append(fns, l)
		}
	}
	s.mu.Unlock()
	for _, l := range fns {
		l(snap)
	}
	return changed
}

// SetIdentity stores the identity. A nil identity resets the session to the
// clean logout state. Switching to a different identity drops the previous
// user's profile and roles.
func (s *Store) SetIdentity(id *models.Identity) {
	s.mutate(func(sess *Session) bool {
		if id == nil {
			resetSession(sess)
			return true
		}
		if sess.Identity != nil && sess.Identity.ID != id.ID {
			resetSession(sess)
		}
		cp := *id
		sess.Identity = &cp
		return true
	})
}

// SetProfile stores the profile and derives the role set from it. The first
// role is selected only when nothing was selected before. Rejected while no
// identity is set.
func (s *Store) SetProfile(p *models.Profile) bool {
	return s.mutate(func(sess *Session) bool {
		if sess.Identity == nil {
			return false
		}
		if p == nil {
			sess.Profile = nil
			applyRoles(sess, nil)
			return true
		}
		cp := *p
		cp.Roles = normalizeRoles(p)
		cp.Role = ""
		sess.Profile = &cp
		applyRoles(sess, cp.Roles)
		return true
	})
}

// SetRoles replaces the role set, reselecting when the current selection is
// no longer granted. Rejected while no identity is set.
func (s *Store) SetRoles(roles []string) bool {
	return s.mutate(func(sess *Session) bool {
		if sess.Identity == nil {
			return false
		}
		applyRoles(sess, dedupe(roles))
		return true
	})
}

// SelectRole selects a granted role. It returns false and leaves the session
// untouched when role is not in the current role set.
func (s *Store) SelectRole(role string) bool {
	return s.mutate(func(sess *Session) bool {
		if role == "" || !slices.Contains(sess.Roles, role) {
			return false
		}
		sess.SelectedRole = role
		sess.RoleConfirmed = true
		return true
	})
}

// AddRole grants role. Adding an already granted role is a no-op. The added
// role becomes selected when nothing was selected.
func (s *Store) AddRole(role string) bool {
	return s.mutate(func(sess *Session) bool {
		if sess.Identity == nil || role == "" {
			return false
		}
		if slices.Contains(sess.Roles, role) {
			return false
		}
		sess.Roles = append(sess.Roles, role)
		if sess.SelectedRole == "" {
			sess.SelectedRole = role
			sess.RoleConfirmed = false
		}
		return true
	})
}

// SetPhase records the bootstrap phase. Only the session controller calls it.
func (s *Store) SetPhase(p Phase) {
	s.mutate(func(sess *Session) bool {
		if sess.Phase == p {
			return false
		}
		sess.Phase = p
		return true
	})
}

// Clear resets to the clean logout state. The phase is left to the caller.
func (s *Store) Clear() {
	s.mutate(func(sess *Session) bool {
		resetSession(sess)
		return true
	})
}

func resetSession(sess *Session) {
	phase := sess.Phase
	*sess = Session{Phase: phase}
}

func applyRoles(sess *Session, roles []string) {
	sess.Roles = roles
	if len(roles) == 0 {
		sess.SelectedRole = ""
		sess.RoleConfirmed = false
		return
	}
	if sess.SelectedRole == "" || !slices.Contains(roles, sess.SelectedRole) {
		sess.SelectedRole = roles[0]
		sess.RoleConfirmed = false
	}
}

// normalizeRoles reads the role list from a profile, falling back to the
// legacy singular role field.
func normalizeRoles(p *models.Profile) []string {
	if len(p.Roles) > 0 {
		return dedupe(p.Roles)
	}
	if p.Role != "" {
		return []string{p.Role}
	}
	return nil
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, r := range in {
		if r == "" || slices.Contains(out, r) {
			continue
		}
		out = append(out, r)
	}
	return out
}
