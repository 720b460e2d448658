package authsession

import "github.com/dmitrymomot/storefront/pkg/api"

// Status is the lifecycle position of the session.
type Status string

const (
	StatusUninitialized   Status = "uninitialized"
	StatusAuthenticating  Status = "authenticating"
	StatusUnauthenticated Status = "unauthenticated"
	StatusAuthenticated   Status = "authenticated"
)

// Ready reports whether s is a settled state.
func (s Status) Ready() bool {
	return s == StatusAuthenticated || s == StatusUnauthenticated
}

// State is the observable session view model.
type State struct {
	Status Status
	User   *api.User
	Token  string
	// IsAuthenticated is true whenever a token is held, even before the
	// profile has been loaded.
	IsAuthenticated bool
	IsLoading       bool
	// LastError is the failure of the most recent login, registration or
	// profile refresh, nil after a successful one.
	LastError error
}

func authenticated(token string, u *api.User) State {
	return State{Status: StatusAuthenticated, Token: token, User: u, IsAuthenticated: true}
}

func unauthenticated() State {
	return State{Status: StatusUnauthenticated}
}
