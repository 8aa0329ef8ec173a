package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/stock-reconciler/internal/core/domain"
)

const (
	claimKeyPrefix  = "claim:"
	defaultClaimTTL = 24 * time.Hour
)

// releaseClaimScript deletes the claim only when it still holds the
// caller's token, so an expired and re-taken claim is left alone.
var releaseClaimScript = redis.NewScript(`
local key = KEYS[1]
local token = ARGV[1]

local current = redis.call('GET', key)
if current == token then
	redis.call('DEL', key)
	return 1
end

return 0
`)

// RedisAdapter guards source documents against concurrent or repeated
// processing.
type RedisAdapter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAdapter(client *redis.Client, ttl time.Duration) *RedisAdapter {
	if ttl <= 0 {
		ttl = defaultClaimTTL
	}
	return &RedisAdapter{client: client, ttl: ttl}
}

func claimKey(source string) string {
	return claimKeyPrefix + source
}

func (r *RedisAdapter) Claim(ctx context.Context, source string) (string, bool, error) {
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, claimKey(source), token, r.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("claim %q: %w: %w", source, domain.ErrStorageUnavailable, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (r *RedisAdapter) Release(ctx context.Context, source, token string) error {
	if _, err := releaseClaimScript.Run(ctx, r.client, []string{claimKey(source)}, token).Int(); err != nil {
		return fmt.Errorf("release %q: %w: %w", source, domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}
