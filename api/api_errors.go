package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies an Error.
type ErrorKind int

const (
	// KindNetwork is a transport failure; no response was received and StatusCode is 0.
	KindNetwork ErrorKind = iota
	// KindHTTP is a non-2xx response.
	KindHTTP
	// KindServer is a 2xx response whose envelope reports a failure.
	KindServer
	// KindDecode is a response body that could not be decoded.
	KindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	}
	return "unknown"
}

const (
	genericErrorMessage = "Something went wrong. Please try again."
	networkErrorMessage = "Unable to reach the server. Please check your connection."
)

// ErrAuthorizationExpired matches any Error carrying HTTP 401.
var ErrAuthorizationExpired = errors.New("authorization expired")

// Error is the single failure type returned by the client.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Code       string // envelope errorCode, when the server sent one
	RawBody    []byte
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("api %s error: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("api %s error (%d): %s", e.Kind, e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrAuthorizationExpired) detect 401 responses.
func (e *Error) Is(target error) bool {
	return target == ErrAuthorizationExpired && e.StatusCode == http.StatusUnauthorized
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrAuthorizationExpired)
}

// Message extracts a user-facing message from err, falling back to fallback.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err != nil && fallback == "" {
		return err.Error()
	}
	return fallback
}
