package session

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	redisTokenKey    = "medvault:session:token"
	redisIdentityKey = "medvault:session:identity"
)

// RedisStore keeps the two session slots in redis, for shared or kiosk
// deployments where the client state must outlive a single host.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr, password string, useTLS bool) *RedisStore {
	opts := &redis.Options{Addr: addr, Password: password}
	if useTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return &RedisStore{client: redis.NewClient(opts)}
}

// NewRedisStoreFromClient wraps an existing client; used by tests.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Load(ctx context.Context) (string, []byte, error) {
	token, err := s.client.Get(ctx, redisTokenKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", nil, fmt.Errorf("session: read token slot: %w", err)
	}
	identity, err := s.client.Get(ctx, redisIdentityKey).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", nil, fmt.Errorf("session: read identity slot: %w", err)
	}
	if errors.Is(err, redis.Nil) {
		identity = nil
	}
	return token, identity, nil
}

func (s *RedisStore) Save(ctx context.Context, token string, identity []byte) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisTokenKey, token, 0)
	pipe.Set(ctx, redisIdentityKey, identity, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session: write slots: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, redisTokenKey, redisIdentityKey).Err(); err != nil {
		return fmt.Errorf("session: clear slots: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
