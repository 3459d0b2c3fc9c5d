package sessions

import (
	"github.com/jrsteele09/dojotv/users"
)

// Status is the session lifecycle position.
type Status int

const (
	StatusUninitialized Status = iota
	StatusRestoring
	StatusUnauthenticated
	StatusAuthenticating
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusRestoring:
		return "restoring"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// State is a snapshot of the session. User is non-nil exactly when Status is StatusAuthenticated.
type State struct {
	Status      Status
	User        *users.CurrentUser
	LastError   string
	Initialized bool
	Role        users.RoleType
}

func (s State) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

// Loading reports whether a restore or login is under way.
func (s State) Loading() bool {
	return s.Status == StatusRestoring || s.Status == StatusAuthenticating
}

func (s State) clone() State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
