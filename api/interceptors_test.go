package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/dojotv/api"
	"github.com/jrsteele09/dojotv/credentials"
	"github.com/jrsteele09/dojotv/credentials/repofake"
	"github.com/stretchr/testify/require"
)

func TestChainInterceptorsOrder(t *testing.T) {
	var order []string
	mark := func(name string) api.Interceptor {
		return func(next api.RoundTripFunc) api.RoundTripFunc {
			return func(r *http.Request) (*http.Response, error) {
				order = append(order, name+">")
				resp, err := next(r)
				order = append(order, "<"+name)
				return resp, err
			}
		}
	}
	base := func(r *http.Request) (*http.Response, error) {
		order = append(order, "send")
		return httptest.NewRecorder().Result(), nil
	}

	rt := api.ChainInterceptors(base, mark("a"), mark("b"))
	_, err := rt.RoundTrip(httptest.NewRequest(http.MethodGet, "/", nil))

	require.NoError(t, err)
	require.Equal(t, []string{"a>", "b>", "send", "<b", "<a"}, order)
}

func TestRequestIDKeepsExistingValue(t *testing.T) {
	var seen string
	rt := api.ChainInterceptors(func(r *http.Request) (*http.Response, error) {
		seen = r.Header.Get(api.HeaderRequestID)
		return httptest.NewRecorder().Result(), nil
	}, api.RequestIDInterceptor())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(api.HeaderRequestID, "abc")
	_, err := rt.RoundTrip(req)

	require.NoError(t, err)
	require.Equal(t, "abc", seen)
}

func TestPinnedTokenOverridesStore(t *testing.T) {
	store := repofake.NewFakeCredentialStore()
	store.Seed(credentials.SlotAccessToken, "stored")

	var seen []string
	rt := api.ChainInterceptors(func(r *http.Request) (*http.Response, error) {
		seen = append(seen, r.Header.Get("Authorization"))
		return httptest.NewRecorder().Result(), nil
	}, api.CredentialsInterceptor(store, ""))

	_, err := rt.RoundTrip(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err = rt.RoundTrip(req.WithContext(api.WithAccessToken(context.Background(), "pinned")))
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	_, err = rt.RoundTrip(req.WithContext(api.WithAccessToken(context.Background(), "")))
	require.NoError(t, err)

	require.Equal(t, []string{"stored", "pinned", ""}, seen)
}
