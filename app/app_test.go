package app_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/dojotv/api"
	"github.com/jrsteele09/dojotv/app"
	"github.com/jrsteele09/dojotv/credentials"
	"github.com/jrsteele09/dojotv/internal/config"
	"github.com/jrsteele09/dojotv/internal/crmfake"
	apperrors "github.com/jrsteele09/dojotv/internal/errors"
	"github.com/jrsteele09/dojotv/sessions"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	crm *crmfake.Server
	v   *viper.Viper
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	crm := crmfake.New(crmfake.WithAccount(crmfake.StudentAccount()))
	t.Cleanup(crm.Close)

	v := viper.New()
	v.Set("base_url", crm.URL())
	v.Set("storage.backend", config.StorageBackendFile)
	v.Set("storage.dir", t.TempDir())
	v.Set("storage.secret", "test-secret")
	return &testFixture{crm: crm, v: v}
}

func (f *testFixture) newApp(t *testing.T) *app.App {
	t.Helper()
	a, err := app.New(context.Background(), config.NewFromViper(f.v))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestStartWithoutSession(t *testing.T) {
	f := setupTestFixture(t)
	a := f.newApp(t)

	st := a.Start(context.Background())

	assert.Equal(t, sessions.StatusUnauthenticated, st.Status)
	assert.True(t, st.Initialized)
	assert.Equal(t, 0, f.crm.Calls(api.EndpointCurrentUser))
}

func TestSessionSurvivesRestart(t *testing.T) {
	f := setupTestFixture(t)
	acct := crmfake.StudentAccount()

	first := f.newApp(t)
	first.Start(context.Background())
	_, err := first.Session.Login(context.Background(), acct.UserName, acct.Password)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := f.newApp(t)
	st := second.Start(context.Background())
	require.Equal(t, sessions.StatusAuthenticated, st.Status)
	assert.Equal(t, acct.User.FirstName, st.User.User.FirstName)

	programs, err := second.Catalog.GetPrograms(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, programs)
}

func TestCloseWaitsForRemoteLogout(t *testing.T) {
	f := setupTestFixture(t)
	acct := crmfake.StudentAccount()

	a := f.newApp(t)
	a.Start(context.Background())
	_, err := a.Session.Login(context.Background(), acct.UserName, acct.Password)
	require.NoError(t, err)

	require.NoError(t, a.Session.Logout(context.Background()))
	require.NoError(t, a.Close())

	assert.Equal(t, 1, f.crm.Calls(api.EndpointLogout))
	assert.Equal(t, 0, f.crm.ActiveTokens())
}

func TestExpiredSessionResetsThroughClient(t *testing.T) {
	f := setupTestFixture(t)
	acct := crmfake.StudentAccount()
	a := f.newApp(t)
	a.Start(context.Background())
	_, err := a.Session.Login(context.Background(), acct.UserName, acct.Password)
	require.NoError(t, err)

	f.crm.ExpireTokens()
	_, err = a.Catalog.GetStudyCategories(context.Background(), nil)
	require.ErrorIs(t, err, api.ErrAuthorizationExpired)

	assert.Equal(t, sessions.StatusUnauthenticated, a.Session.State().Status)
	_, found, err := a.Credentials.Get(context.Background(), credentials.SlotAccessToken)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisBackend(t *testing.T) {
	f := setupTestFixture(t)
	mr := miniredis.RunT(t)
	f.v.Set("storage.backend", config.StorageBackendRedis)
	f.v.Set("redis.url", "redis://"+mr.Addr()+"/0")

	a := f.newApp(t)
	a.Start(context.Background())
	acct := crmfake.StudentAccount()
	_, err := a.Session.Login(context.Background(), acct.UserName, acct.Password)
	require.NoError(t, err)

	assert.True(t, mr.Exists("dojotv:credentials:access_token"))
}

func TestMemoryBackend(t *testing.T) {
	f := setupTestFixture(t)
	f.v.Set("storage.backend", config.StorageBackendMemory)

	a := f.newApp(t)
	st := a.Start(context.Background())
	assert.Equal(t, sessions.StatusUnauthenticated, st.Status)
}

func TestUnknownBackend(t *testing.T) {
	f := setupTestFixture(t)
	f.v.Set("storage.backend", "keychain")

	_, err := app.New(context.Background(), config.NewFromViper(f.v))
	require.ErrorIs(t, err, apperrors.ErrUnsupported)
}
