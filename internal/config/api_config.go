package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultBaseURL is the staging CRM API shared with the kiosk app.
const DefaultBaseURL = "https://staging-api.managemydojo.com/api/v1"

const (
	baseURLKey        = "base_url"
	requestTimeoutKey = "request_timeout"
	logoutTimeoutKey  = "logout_timeout"
	authSchemeKey     = "auth_scheme"
)

type APIConfig interface {
	GetBaseURL() string
	GetRequestTimeout() time.Duration
	GetLogoutTimeout() time.Duration
	GetAuthScheme() string
}

type API struct {
	v *viper.Viper
}

var _ APIConfig = API{}

func (a API) GetBaseURL() string {
	return strings.TrimRight(a.v.GetString(baseURLKey), "/")
}

func (a API) GetRequestTimeout() time.Duration {
	return durationOr(a.v.GetDuration(requestTimeoutKey), 30*time.Second)
}

// GetLogoutTimeout bounds the best-effort remote logout call.
func (a API) GetLogoutTimeout() time.Duration {
	return durationOr(a.v.GetDuration(logoutTimeoutKey), 5*time.Second)
}

// GetAuthScheme is the Authorization header scheme. Empty sends the raw token, which is
// what the CRM expects.
func (a API) GetAuthScheme() string {
	return strings.TrimSpace(a.v.GetString(authSchemeKey))
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
