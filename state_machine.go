package auth

import (
	"fmt"
)

// SessionStatus is the tag of the session state.
type SessionStatus string

const (
	StatusSignedOut             SessionStatus = "signed_out"
	StatusAuthenticating        SessionStatus = "authenticating"
	StatusSignedIn              SessionStatus = "signed_in"
	StatusAwaitingRoleSelection SessionStatus = "awaiting_role_selection"
)

func (s SessionStatus) String() string {
	return string(s)
}

// State is the tagged session state. Fields not meaningful for a status are
// always nil; build states only through the constructors below.
type State struct {
	status   SessionStatus
	identity *Identity
	user     *ApplicationUser
	pending  *PendingFederatedSignup
}

// SignedOutState builds the signed out state.
func SignedOutState() State {
	return State{status: StatusSignedOut}
}

func authenticatingState() State {
	return State{status: StatusAuthenticating}
}

// SignedInState builds a signed in state. Both identity and user are
// required.
func SignedInState(identity *Identity, user *ApplicationUser) State {
	if identity == nil || user == nil {
		return SignedOutState()
	}
	return State{status: StatusSignedIn, identity: identity.Clone(), user: user.Clone()}
}

// AwaitingRoleState builds the role selection state for pending.
func AwaitingRoleState(pending PendingFederatedSignup) State {
	return State{status: StatusAwaitingRoleSelection, pending: &pending}
}

// Status returns the state tag.
func (s State) Status() SessionStatus {
	if s.status == "" {
		return StatusSignedOut
	}
	return s.status
}

// Identity returns a copy of the signed in identity, nil otherwise.
func (s State) Identity() *Identity {
	return s.identity.Clone()
}

// User returns a copy of the backend record, nil unless signed in.
func (s State) User() *ApplicationUser {
	return s.user.Clone()
}

// Pending returns the federated signup awaiting a role, nil otherwise.
func (s State) Pending() *PendingFederatedSignup {
	if s.pending == nil {
		return nil
	}
	p := *s.pending
	return &p
}

// SessionView is the derived presentation state.
type SessionView struct {
	Status   SessionStatus
	Identity *Identity
	Role     Role
	Verified bool
	Pending  *PendingFederatedSignup
}

// View derives what the presentation layer needs from the state.
func (s State) View() SessionView {
	v := SessionView{Status: s.Status(), Identity: s.Identity(), Pending: s.Pending()}
	if s.user != nil {
		v.Role = s.user.Role
		v.Verified = s.user.IsEmailVerified && (s.identity == nil || s.identity.EmailVerified)
	}
	return v
}

// Route returns the view a session in this state is routed to.
func (s State) Route() View {
	switch s.Status() {
	case StatusSignedIn:
		return s.user.Role.HomeView()
	case StatusAwaitingRoleSelection:
		return ViewChooseRole
	default:
		return ViewSignIn
	}
}

func (s State) String() string {
	switch s.Status() {
	case StatusSignedIn:
		return fmt.Sprintf("%s(%s,%s)", s.status, s.identity.SubjectID, s.user.Role)
	case StatusAwaitingRoleSelection:
		return fmt.Sprintf("%s(%s)", s.status, s.pending.SubjectID)
	default:
		return string(s.Status())
	}
}

var sessionTransitions = map[SessionStatus]map[SessionStatus]struct{}{
	StatusSignedOut: {
		StatusAuthenticating: {},
	},
	StatusAuthenticating: {
		StatusSignedIn:              {},
		StatusSignedOut:             {},
		StatusAwaitingRoleSelection: {},
	},
	StatusSignedIn: {
		StatusSignedOut: {},
	},
	StatusAwaitingRoleSelection: {
		StatusAuthenticating: {},
		StatusSignedOut:      {},
	},
}

// CanTransition reports whether the session may move from one status to
// another. Staying in the same status is always allowed.
func CanTransition(from, to SessionStatus) bool {
	if from == to {
		return true
	}
	_, ok := sessionTransitions[from][to]
	return ok
}

func validateTransition(from, to SessionStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
