// Package redisstore keeps credential slots in Redis, for kiosk deployments where several
// screens share one signed-in account.
package redisstore

import (
	"context"
	"time"

	"github.com/jrsteele09/dojotv/credentials"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ credentials.Store = (*Store)(nil)

type Store struct {
	client *redis.Client
	prefix string
}

// NewClient returns a configured go-redis client from URL (e.g., redis://localhost:6379/0)
// after checking the server answers.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("[redisstore.NewClient] empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "[redisstore.NewClient] redis.ParseURL")
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, credentials.NewStorageError("open", "", err)
	}
	return client, nil
}

func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "dojotv:credentials"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Set(ctx context.Context, slot credentials.Slot, value string) error {
	if err := credentials.CheckSlot("set", slot); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(slot), value, 0).Err(); err != nil {
		return credentials.NewStorageError("set", slot, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, slot credentials.Slot) (string, bool, error) {
	if err := credentials.CheckSlot("get", slot); err != nil {
		return "", false, err
	}
	v, err := s.client.Get(ctx, s.key(slot)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, credentials.NewStorageError("get", slot, err)
	}
	return v, true, nil
}

func (s *Store) Delete(ctx context.Context, slot credentials.Slot) error {
	if err := credentials.CheckSlot("delete", slot); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.key(slot)).Err(); err != nil {
		return credentials.NewStorageError("delete", slot, err)
	}
	return nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	keys := make([]string, 0, len(credentials.AllSlots))
	for _, slot := range credentials.AllSlots {
		keys = append(keys, s.key(slot))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return credentials.NewStorageError("clear", "", err)
	}
	return nil
}

func (s *Store) key(slot credentials.Slot) string {
	return s.prefix + ":" + string(slot)
}
