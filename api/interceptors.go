package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/dojotv/credentials"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const HeaderRequestID = "X-Request-ID"

// RoundTripFunc adapts a function to http.RoundTripper.
type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Interceptor wraps a round trip to act before the request is sent and after the response
// arrives.
type Interceptor func(next RoundTripFunc) RoundTripFunc

// SessionResetter is told to drop the local session when the API rejects the credential.
type SessionResetter interface {
	Reset(ctx context.Context) error
}

// ChainInterceptors wraps base so that mw[0] runs first on the way out and last on the way
// back.
func ChainInterceptors(base RoundTripFunc, mw ...Interceptor) RoundTripFunc {
	chained := base
	for i := len(mw) - 1; i >= 0; i-- {
		chained = mw[i](chained)
	}
	return chained
}

// RequestIDInterceptor tags each request with a fresh X-Request-ID unless one is set.
func RequestIDInterceptor() Interceptor {
	return func(next RoundTripFunc) RoundTripFunc {
		return func(r *http.Request) (*http.Response, error) {
			if r.Header.Get(HeaderRequestID) != "" {
				return next(r)
			}
			r = r.Clone(r.Context())
			r.Header.Set(HeaderRequestID, uuid.NewString())
			return next(r)
		}
	}
}

// LoggingInterceptor logs method, path, status and duration at debug level.
func LoggingInterceptor() Interceptor {
	return func(next RoundTripFunc) RoundTripFunc {
		return func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next(r)
			if err != nil {
				log.Warn().Err(err).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("request_id", r.Header.Get(HeaderRequestID)).
					Dur("duration", time.Since(start)).
					Msg("API request failed")
				return resp, err
			}
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("request_id", r.Header.Get(HeaderRequestID)).
				Int("status", resp.StatusCode).
				Dur("duration", time.Since(start)).
				Msg("API request")
			return resp, nil
		}
	}
}

// CredentialsInterceptor attaches the stored access token, or the token pinned on the request
// context with WithAccessToken. Without a token, or when the store cannot be read, the request
// goes out unauthenticated.
func CredentialsInterceptor(store credentials.Store, scheme string) Interceptor {
	return func(next RoundTripFunc) RoundTripFunc {
		return func(r *http.Request) (*http.Response, error) {
			var src oauth2.TokenSource = credentials.TokenSource(r.Context(), store, scheme)
			if pinned, ok := r.Context().Value(accessTokenKey{}).(string); ok {
				src = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: pinned, TokenType: scheme})
			}
			tok, err := src.Token()
			if err == nil && tok.AccessToken == "" {
				err = credentials.ErrNoToken
			}
			switch {
			case errors.Is(err, credentials.ErrNoToken):
				return next(r)
			case err != nil:
				log.Err(err).Str("path", r.URL.Path).Msg("Error reading token, sending unauthenticated")
				return next(r)
			}

			r = r.Clone(r.Context())
			if scheme == "" {
				r.Header.Set("Authorization", tok.AccessToken)
			} else {
				tok.SetAuthHeader(r)
			}
			return next(r)
		}
	}
}

// UnauthorizedInterceptor purges the credential store and resets the session on a 401. The
// response is passed on untouched so the caller still sees the failure.
func UnauthorizedInterceptor(store credentials.Store, resetter func() SessionResetter) Interceptor {
	return func(next RoundTripFunc) RoundTripFunc {
		return func(r *http.Request) (*http.Response, error) {
			resp, err := next(r)
			if err != nil || resp.StatusCode != http.StatusUnauthorized || skipSessionReset(r.Context()) {
				return resp, err
			}

			ctx := context.WithoutCancel(r.Context())
			log.Info().Str("path", r.URL.Path).Msg("Authorization rejected, clearing session")
			if err := store.ClearAll(ctx); err != nil {
				log.Err(err).Msg("Failed to clear credentials on 401")
			}
			if rs := resetter(); rs != nil {
				if err := rs.Reset(ctx); err != nil {
					log.Err(err).Msg("Failed to reset session on 401")
				}
			} else {
				log.Warn().Msg("No session resetter registered")
			}
			return resp, nil
		}
	}
}

type skipResetKey struct{}

type accessTokenKey struct{}

// WithAccessToken pins the token sent with requests made under ctx, so a call can outlive
// the credentials it was issued with.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

func withSkipSessionReset(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipResetKey{}, true)
}

func skipSessionReset(ctx context.Context) bool {
	skip, _ := ctx.Value(skipResetKey{}).(bool)
	return skip
}
