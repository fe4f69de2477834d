package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisClientKeyPrefix = "oauth:client:"
	redisCodeKeyPrefix   = "oauth:code:"
)

// RedisClientStore keeps registered clients in Redis so every replica sees them.
// Clients never expire.
type RedisClientStore struct {
	client redis.Cmdable
}

// NewRedisClientStore creates a client store on top of a Redis client
func NewRedisClientStore(client redis.Cmdable) *RedisClientStore {
	return &RedisClientStore{client: client}
}

// Save stores or replaces a client
func (s *RedisClientStore) Save(ctx context.Context, c *RegisteredClient) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal client: %w", err)
	}
	if err := s.client.Set(ctx, redisClientKeyPrefix+c.ClientID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save client: %w", err)
	}
	return nil
}

// Get loads a client, returning ErrClientNotFound when absent
func (s *RedisClientStore) Get(ctx context.Context, clientID string) (*RegisteredClient, error) {
	data, err := s.client.Get(ctx, redisClientKeyPrefix+clientID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	var c RegisteredClient
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal client: %w", err)
	}
	return &c, nil
}

// RedisCodeVault stores authorization codes with a Redis TTL and consumes
// them with GETDEL, which is atomic on the server.
type RedisCodeVault struct {
	client redis.Cmdable
	cipher *PayloadCipher
	now    func() time.Time
}

// NewRedisCodeVault creates a vault. A nil or disabled cipher stores records
// as plain JSON.
func NewRedisCodeVault(client redis.Cmdable, cipher *PayloadCipher) *RedisCodeVault {
	return &RedisCodeVault{
		client: client,
		cipher: cipher,
		now:    time.Now,
	}
}

// Put stores record until its ExpiresAt
func (v *RedisCodeVault) Put(ctx context.Context, code string, record *AuthorizationCode) error {
	ttl := record.ExpiresAt.Sub(v.now())
	if ttl <= 0 {
		return fmt.Errorf("authorization code already expired")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal authorization code: %w", err)
	}
	sealed, err := v.cipher.Seal(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt authorization code: %w", err)
	}

	if err := v.client.Set(ctx, redisCodeKeyPrefix+code, sealed, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save authorization code: %w", err)
	}
	return nil
}

// Consume atomically fetches and deletes the record for code
func (v *RedisCodeVault) Consume(ctx context.Context, code string) (*AuthorizationCode, error) {
	sealed, err := v.client.GetDel(ctx, redisCodeKeyPrefix+code).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume authorization code: %w", err)
	}

	data, err := v.cipher.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt authorization code: %w", err)
	}

	var record AuthorizationCode
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal authorization code: %w", err)
	}
	if record.Expired(v.now()) {
		return nil, ErrCodeNotFound
	}
	return &record, nil
}
