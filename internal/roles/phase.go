package roles

// Phase is the bootstrap state of the client session.
type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseUnauthenticated
	PhaseNeedsRoleSelection
	PhaseAuthenticated
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseNeedsRoleSelection:
		return "needs_role_selection"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}

// RequiresSignIn reports whether the UI should show the sign-in screens.
// Failed behaves like Unauthenticated.
func (p Phase) RequiresSignIn() bool {
	return p == PhaseUnauthenticated || p == PhaseFailed
}
