package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	StorageBackendFile   = "file"
	StorageBackendRedis  = "redis"
	StorageBackendMemory = "memory"
)

const (
	storageBackendKey = "storage.backend"
	storageDirKey     = "storage.dir"
	storageSecretKey  = "storage.secret"
	redisURLKey       = "redis.url"
	redisKeyPrefixKey = "redis.key_prefix"
)

type StorageConfig interface {
	GetStorageBackend() string
	GetStorageDir() string
	GetStorageSecret() string
	GetRedisURL() string
	GetRedisKeyPrefix() string
}

type Storage struct {
	v *viper.Viper
}

var _ StorageConfig = Storage{}

func (s Storage) GetStorageBackend() string {
	return strings.ToLower(strings.TrimSpace(s.v.GetString(storageBackendKey)))
}

func (s Storage) GetStorageDir() string {
	return s.v.GetString(storageDirKey)
}

// GetStorageSecret is the secret the file store derives its sealing key from. When empty
// the store generates and keeps its own key file.
func (s Storage) GetStorageSecret() string {
	return s.v.GetString(storageSecretKey)
}

func (s Storage) GetRedisURL() string {
	return s.v.GetString(redisURLKey)
}

func (s Storage) GetRedisKeyPrefix() string {
	return s.v.GetString(redisKeyPrefixKey)
}

func defaultStorageDir() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".", "data", "credentials")
	}
	return filepath.Join(dir, "dojotv", "credentials")
}
