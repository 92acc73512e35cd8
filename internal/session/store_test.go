package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edupay-dashboard/internal/models"
)

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoIdentity)

	require.NoError(t, store.Save(ctx, models.Identity{Token: "tok", User: testUser}))
	info, err := os.Stat(filepath.Join(dir, identityFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", loaded.Token)
	assert.Equal(t, testUser, loaded.User)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestFileStoreCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, identityFile), []byte("{not json"), 0o600))
	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, ErrCorrupt)

	require.NoError(t, os.WriteFile(filepath.Join(dir, identityFile), []byte(`{"token":"tok"}`), 0o600))
	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSessionInitWipesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, identityFile), []byte(`{"user":{"id":"u"}}`), 0o600))

	s := New(store, nil)
	require.NoError(t, s.Init(context.Background()))

	_, err = os.Stat(filepath.Join(dir, identityFile))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

type fakeRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	value, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			n++
		}
		delete(f.values, key)
		delete(f.ttls, key)
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	client := newFakeRedis()
	store := NewRedisStore(client, "")
	ctx := context.Background()

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoIdentity)

	require.NoError(t, store.Save(ctx, models.Identity{Token: "opaque", User: testUser}))
	assert.Equal(t, time.Duration(0), client.ttls["dashboard:identity"])

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "opaque", loaded.Token)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestRedisStoreTTLFollowsTokenExpiry(t *testing.T) {
	client := newFakeRedis()
	store := NewRedisStore(client, "edupay:identity")
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	token := signedToken(t, now.Add(90*time.Minute))
	require.NoError(t, store.Save(context.Background(), models.Identity{Token: token, User: testUser}))
	assert.Equal(t, 90*time.Minute, client.ttls["edupay:identity"])

	expired := signedToken(t, now.Add(-time.Second))
	assert.Error(t, store.Save(context.Background(), models.Identity{Token: expired, User: testUser}))
}

func TestRedisStoreErrors(t *testing.T) {
	client := newFakeRedis()
	client.values["dashboard:identity"] = "garbage"
	store := NewRedisStore(client, "")

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrCorrupt)

	client.err = errors.New("connection refused")
	_, err = store.Load(context.Background())
	assert.ErrorContains(t, err, "connection refused")
	assert.False(t, errors.Is(err, ErrNoIdentity))
	assert.Error(t, store.Clear(context.Background()))
}
