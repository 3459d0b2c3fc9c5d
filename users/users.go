package users

import (
	"encoding/json"
	"strings"

	apperrors "github.com/jrsteele09/dojotv/internal/errors"
	"github.com/pkg/errors"
)

// RoleType is the screen-set chosen before login. It only decides which UI the client shows
// after authentication; the CRM authorises on its own.
type RoleType string

const (
	RoleStudent RoleType = "student"
	RoleDojo    RoleType = "dojo"
	RoleAdmin   RoleType = "admin"
)

var InvalidRoleErr = apperrors.ErrInvalidRole

// ParseRole normalises and validates a role name.
func ParseRole(s string) (RoleType, error) {
	role := RoleType(strings.ToLower(strings.TrimSpace(s)))
	if !role.Valid() {
		return "", errors.Wrapf(InvalidRoleErr, "%q", s)
	}
	return role, nil
}

func (r RoleType) Valid() bool {
	switch r {
	case RoleStudent, RoleDojo, RoleAdmin:
		return true
	}
	return false
}

func (r RoleType) String() string {
	return string(r)
}

// User is the CRM user record as returned by login and current-user.
type User struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email"`
	Country   string `json:"country,omitempty"`
}

// Role is the CRM role attached to a user.
type Role struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	IsSubRole bool   `json:"isSubRole,omitempty"`
}

type UserRole struct {
	ID   string `json:"_id"`
	Role Role   `json:"role"`
}

// CurrentUser is the authenticated identity held by the session.
type CurrentUser struct {
	User         User      `json:"user"`
	UserRole     *UserRole `json:"userRole,omitempty"`
	AccessToken  string    `json:"accessToken,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
}

// Profile is the minimal user record kept in the credential store.
type Profile struct {
	ID        string `json:"_id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
}

func (u User) Profile() Profile {
	return Profile{ID: u.ID, Email: u.Email, FirstName: u.FirstName}
}

func (p Profile) User() User {
	return User{ID: p.ID, Email: p.Email, FirstName: p.FirstName}
}

func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// MarshalProfile encodes the profile for the user_data slot.
func MarshalProfile(p Profile) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", errors.Wrap(err, "[MarshalProfile] json.Marshal")
	}
	return string(b), nil
}

// UnmarshalProfile decodes the user_data slot. A profile without an id or an email is
// rejected as corrupt.
func UnmarshalProfile(data string) (Profile, error) {
	var p Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return Profile{}, errors.Wrap(err, "[UnmarshalProfile] json.Unmarshal")
	}
	if p.ID == "" && p.Email == "" {
		return Profile{}, errors.New("[UnmarshalProfile] profile has no id or email")
	}
	return p, nil
}
