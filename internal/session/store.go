package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/edupay-dashboard/internal/models"
	"github.com/noah-isme/edupay-dashboard/pkg/storage"
)

const identityFile = "identity.json"

// FileStore keeps the identity as a JSON file on local disk.
type FileStore struct {
	files *storage.LocalStorage
}

// NewFileStore creates the session directory with owner-only file permissions.
func NewFileStore(dir string) (*FileStore, error) {
	files, err := storage.NewLocalStorage(dir, 0o600)
	if err != nil {
		return nil, err
	}
	return &FileStore{files: files}, nil
}

// Load reads the persisted identity.
func (s *FileStore) Load(_ context.Context) (*models.Identity, error) {
	raw, err := s.files.Read(identityFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoIdentity
		}
		return nil, err
	}
	return decodeIdentity(raw)
}

// Save overwrites the persisted identity.
func (s *FileStore) Save(_ context.Context, identity models.Identity) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	_, err = s.files.Save(identityFile, raw)
	return err
}

// Clear removes the persisted identity.
func (s *FileStore) Clear(_ context.Context) error {
	return s.files.Delete(identityFile)
}

// redisCommands is the subset of *redis.Client the store needs.
type redisCommands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps the identity under a single Redis key, expiring it with the token.
type RedisStore struct {
	client redisCommands
	key    string
	now    func() time.Time
}

// NewRedisStore wraps a Redis client.
func NewRedisStore(client redisCommands, key string) *RedisStore {
	if key == "" {
		key = "dashboard:identity"
	}
	return &RedisStore{client: client, key: key, now: time.Now}
}

// Load reads the persisted identity.
func (s *RedisStore) Load(ctx context.Context) (*models.Identity, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoIdentity
		}
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return decodeIdentity(raw)
}

// Save overwrites the persisted identity. JWTs carrying exp get a matching TTL.
func (s *RedisStore) Save(ctx context.Context, identity models.Identity) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	var ttl time.Duration
	if exp, ok := tokenExpiry(identity.Token); ok {
		ttl = exp.Sub(s.now())
		if ttl <= 0 {
			return fmt.Errorf("refusing to persist expired token")
		}
	}
	if err := s.client.Set(ctx, s.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

// Clear removes the persisted identity.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", s.key, err)
	}
	return nil
}

func decodeIdentity(raw []byte) (*models.Identity, error) {
	var identity models.Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if !identity.Valid() {
		return nil, ErrCorrupt
	}
	return &identity, nil
}
