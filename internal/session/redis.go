package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// RedisStore keeps sessions in Redis with a key TTL, so expiry needs no
// sweeping and sessions survive restarts.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

func (s *RedisStore) Issue(ctx context.Context, id Identity) (Session, error) {
	body, err := json.Marshal(id)
	if err != nil {
		return Session{}, fmt.Errorf("marshal identity: %w", err)
	}

	sess := Session{
		Token:     uuid.NewString(),
		Identity:  id,
		ExpiresAt: s.now().UTC().Add(s.ttl),
	}
	if err := s.client.Set(ctx, keyPrefix+sess.Token, body, s.ttl).Err(); err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

func (s *RedisStore) Resolve(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrSessionNotFound
	}
	body, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Identity{}, ErrSessionNotFound
		}
		return Identity{}, fmt.Errorf("load session: %w", err)
	}

	var id Identity
	if err := json.Unmarshal(body, &id); err != nil {
		return Identity{}, fmt.Errorf("decode session: %w", err)
	}
	return id, nil
}

func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}
