package errors

import (
	"errors"
)

// Common error values shared by the session and CRM client packages
var (
	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrLoginInProgress  = errors.New("login already in progress")
	ErrLoginSuperseded  = errors.New("login superseded by logout or reset")

	// Credential errors
	ErrNoToken     = errors.New("no access token stored")
	ErrUnknownSlot = errors.New("unknown credential slot")
	ErrCorruptData = errors.New("stored credential data is corrupt")

	// Input errors
	ErrInvalidRole = errors.New("invalid role")

	ErrUnsupported = errors.New("unsupported operation")
)
