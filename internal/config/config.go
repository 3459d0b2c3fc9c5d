package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const envPrefix = "DOJOTV"

type Config interface {
	EnvConfig
	APIConfig
	StorageConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	API
	Storage
}

// New loads an optional .env file and dojotv.yaml, then layers DOJOTV_* environment
// variables over the defaults. Either file may be missing; one that exists but cannot be
// read or parsed is an error.
func New() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "[config.New] godotenv.Load")
	}

	v := viper.New()
	v.SetConfigName("dojotv")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/dojotv")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "[config.New] ReadInConfig")
		}
	}

	return NewFromViper(v), nil
}

// NewFromViper builds a Config over an existing viper instance. Defaults and env
// bindings are applied to v.
func NewFromViper(v *viper.Viper) Config {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return mainConfig{
		EnvVars: EnvVars{v: v},
		API:     API{v: v},
		Storage: Storage{v: v},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(appNameKey, "Dojo TV")
	v.SetDefault(envKey, "DEV")
	v.SetDefault(logLevelKey, "info")
	v.SetDefault(baseURLKey, DefaultBaseURL)
	v.SetDefault(requestTimeoutKey, "30s")
	v.SetDefault(logoutTimeoutKey, "5s")
	v.SetDefault(authSchemeKey, "")
	v.SetDefault(storageBackendKey, StorageBackendFile)
	v.SetDefault(storageDirKey, defaultStorageDir())
	v.SetDefault(storageSecretKey, "")
	v.SetDefault(redisURLKey, "redis://localhost:6379/0")
	v.SetDefault(redisKeyPrefixKey, "dojotv:credentials")
}
