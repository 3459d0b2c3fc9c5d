package redisstore_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/dojotv/credentials"
	"github.com/jrsteele09/dojotv/credentials/redisstore"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := redisstore.NewClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return redisstore.New(client, "test"), mr
}

func TestSetGetClear(t *testing.T) {
	ctx := context.Background()
	store, mr := setupStore(t)

	require.NoError(t, store.Set(ctx, credentials.SlotAccessToken, "T1"))
	require.NoError(t, store.Set(ctx, credentials.SlotSelectedRole, "dojo"))

	got, err := mr.Get("test:access_token")
	require.NoError(t, err)
	require.Equal(t, "T1", got)

	v, found, err := store.Get(ctx, credentials.SlotSelectedRole)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "dojo", v)

	require.NoError(t, store.ClearAll(ctx))
	_, found, err = store.Get(ctx, credentials.SlotAccessToken)
	require.NoError(t, err)
	require.False(t, found)
	require.False(t, mr.Exists("test:selected_role"))
}

func TestGetMissingIsAbsent(t *testing.T) {
	store, _ := setupStore(t)

	_, found, err := store.Get(context.Background(), credentials.SlotRefreshToken)
	require.NoError(t, err)
	require.False(t, found)
}

func TestServerFailureIsStorageError(t *testing.T) {
	ctx := context.Background()
	store, mr := setupStore(t)
	mr.SetError("ERR simulated failure")

	var storageErr *credentials.StorageError
	_, _, err := store.Get(ctx, credentials.SlotAccessToken)
	require.ErrorAs(t, err, &storageErr)
	require.ErrorAs(t, store.Set(ctx, credentials.SlotAccessToken, "x"), &storageErr)
	require.ErrorAs(t, store.ClearAll(ctx), &storageErr)
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := redisstore.NewClient(context.Background(), "")
	require.Error(t, err)

	_, err = redisstore.NewClient(context.Background(), "not a url")
	require.Error(t, err)
}

func TestDeleteRemovesOneSlot(t *testing.T) {
	ctx := context.Background()
	store, mr := setupStore(t)

	require.NoError(t, store.Set(ctx, credentials.SlotRefreshToken, "R1"))
	require.NoError(t, store.Set(ctx, credentials.SlotSelectedRole, "dojo"))

	require.NoError(t, store.Delete(ctx, credentials.SlotRefreshToken))
	require.NoError(t, store.Delete(ctx, credentials.SlotRefreshToken))

	require.False(t, mr.Exists("test:refresh_token"))
	require.True(t, mr.Exists("test:selected_role"))
}
