package sessions

import (
	apperrors "github.com/jrsteele09/dojotv/internal/errors"
)

var (
	ErrNotAuthenticated = apperrors.ErrNotAuthenticated
	// ErrLoginInProgress rejects a login while another is pending.
	ErrLoginInProgress = apperrors.ErrLoginInProgress
	// ErrLoginSuperseded is returned by a login whose result arrived after a logout or reset.
	ErrLoginSuperseded = apperrors.ErrLoginSuperseded
	ErrInvalidRole     = apperrors.ErrInvalidRole
)
