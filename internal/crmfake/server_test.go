package crmfake_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jrsteele09/dojotv/api"
	"github.com/jrsteele09/dojotv/internal/crmfake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Error   bool            `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupTestFixture(t *testing.T, options ...crmfake.Option) *crmfake.Server {
	t.Helper()
	options = append([]crmfake.Option{crmfake.WithAccount(crmfake.StudentAccount())}, options...)
	srv := crmfake.New(options...)
	t.Cleanup(srv.Close)
	return srv
}

func send(t *testing.T, method, url, token string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestLoginIssuesUsableToken(t *testing.T) {
	srv := setupTestFixture(t)
	acct := crmfake.StudentAccount()

	status, env := send(t, http.MethodPost, srv.URL()+api.EndpointLogin, "", map[string]any{
		"userName": acct.UserName,
		"password": acct.Password,
	})
	require.Equal(t, http.StatusOK, status)
	require.True(t, env.Success)

	var data struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.AccessToken)

	status, _ = send(t, http.MethodGet, srv.URL()+api.EndpointCurrentUser, data.AccessToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = send(t, http.MethodGet, srv.URL()+api.EndpointCurrentUser, "Bearer "+data.AccessToken, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, srv.Calls(api.EndpointLogin))
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv := setupTestFixture(t)

	status, env := send(t, http.MethodPost, srv.URL()+api.EndpointLogin, "", map[string]any{
		"userName": crmfake.StudentAccount().UserName,
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.True(t, env.Error)
	assert.Equal(t, "Invalid username or password", env.Message)
}

func TestExpiredTokensAreRejected(t *testing.T) {
	srv := setupTestFixture(t)
	tok, err := srv.IssueToken(crmfake.StudentAccount().UserName)
	require.NoError(t, err)

	srv.ExpireTokens()

	status, _ := send(t, http.MethodGet, srv.URL()+api.EndpointCurrentUser, tok, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestTokenTTLIsEnforced(t *testing.T) {
	srv := setupTestFixture(t, crmfake.WithTokenTTL(-time.Minute))
	tok, err := srv.IssueToken(crmfake.StudentAccount().UserName)
	require.NoError(t, err)

	status, _ := send(t, http.MethodGet, srv.URL()+api.EndpointPrograms, tok, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLogoutRevokesToken(t *testing.T) {
	srv := setupTestFixture(t)
	tok, err := srv.IssueToken(crmfake.StudentAccount().UserName)
	require.NoError(t, err)

	status, _ := send(t, http.MethodGet, srv.URL()+api.EndpointLogout, tok, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = send(t, http.MethodGet, srv.URL()+api.EndpointCurrentUser, tok, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestStudyContentPagination(t *testing.T) {
	srv := setupTestFixture(t)
	tok, err := srv.IssueToken(crmfake.StudentAccount().UserName)
	require.NoError(t, err)

	status, env := send(t, http.MethodGet, srv.URL()+api.EndpointStudyContentForContact+"?limit=3&page=2", tok, nil)
	require.Equal(t, http.StatusOK, status)

	var listing struct {
		Items      []map[string]any `json:"items"`
		Total      int              `json:"total"`
		TotalPages int              `json:"totalPages"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &listing))
	assert.Len(t, listing.Items, 1)
	assert.Equal(t, 4, listing.Total)
	assert.Equal(t, 2, listing.TotalPages)
}

func TestGateHoldsLogin(t *testing.T) {
	srv := setupTestFixture(t)
	acct := crmfake.StudentAccount()
	gate := srv.GateLogin()

	done := make(chan int, 1)
	go func() {
		status, _ := send(t, http.MethodPost, srv.URL()+api.EndpointLogin, "", map[string]any{
			"userName": acct.UserName,
			"password": acct.Password,
		})
		done <- status
	}()

	<-gate.Entered()
	select {
	case <-done:
		t.Fatal("login answered before the gate was released")
	case <-time.After(50 * time.Millisecond):
	}

	gate.Release()
	assert.Equal(t, http.StatusOK, <-done)
}
