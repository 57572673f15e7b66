package auth

// State is where the manager is in the session lifecycle.
type State int

const (
	Unauthenticated State = iota
	Validating
	Authenticated
	Refreshing
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Validating:
		return "validating"
	case Authenticated:
		return "authenticated"
	case Refreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// HasSession reports whether a token pair is held in this state.
func (s State) HasSession() bool {
	return s != Unauthenticated
}
