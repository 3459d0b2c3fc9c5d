package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/dojotv/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := config.NewFromViper(viper.New())

	require.Equal(t, "Dojo TV", c.GetAppName())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, config.DefaultBaseURL, c.GetBaseURL())
	require.Equal(t, 30*time.Second, c.GetRequestTimeout())
	require.Equal(t, 5*time.Second, c.GetLogoutTimeout())
	require.Equal(t, "", c.GetAuthScheme())
	require.Equal(t, config.StorageBackendFile, c.GetStorageBackend())
	require.NotEmpty(t, c.GetStorageDir())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("DOJOTV_BASE_URL", "http://localhost:9999/api/v1/")
	t.Setenv("DOJOTV_REQUEST_TIMEOUT", "2s")
	t.Setenv("DOJOTV_STORAGE_BACKEND", "Redis")
	t.Setenv("DOJOTV_ENV", "prod")

	c := config.NewFromViper(viper.New())

	require.Equal(t, "http://localhost:9999/api/v1", c.GetBaseURL())
	require.Equal(t, 2*time.Second, c.GetRequestTimeout())
	require.Equal(t, config.StorageBackendRedis, c.GetStorageBackend())
	require.Equal(t, "PROD", c.GetEnv())
}

func TestInvalidDurationFallsBack(t *testing.T) {
	v := viper.New()
	v.Set("logout_timeout", "not-a-duration")
	c := config.NewFromViper(v)

	require.Equal(t, 5*time.Second, c.GetLogoutTimeout())
}

func TestNewWithoutConfigFiles(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, config.DefaultBaseURL, c.GetBaseURL())
}

func TestNewReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dojotv.yaml"), []byte("env: staging\n"), 0o600))

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, "STAGING", c.GetEnv())
}

func TestNewRejectsBrokenConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dojotv.yaml"), []byte("base_url: [unclosed\n"), 0o600))

	_, err := config.New()
	require.ErrorContains(t, err, "ReadInConfig")
}

func TestNewRejectsUnreadableEnvFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".env"), 0o700))

	_, err := config.New()
	require.ErrorContains(t, err, "godotenv.Load")
}

// chdir switches the working directory for the duration of the test (testing.T.Chdir needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(prev)) })
}
