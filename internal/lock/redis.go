package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "lock:"

// releaseScript deletes the key only if it still carries our token, so a
// holder whose TTL expired cannot release somebody else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Redis is a Locker backed by SET NX PX, shared by every replica.
type Redis struct {
	rdb  *redis.Client
	ttl  time.Duration
	wait time.Duration
}

// NewRedis returns a Redis locker. ttl bounds how long a crashed holder keeps
// the key; wait bounds how long Lock polls a contended key.
func NewRedis(rdb *redis.Client, ttl, wait time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl, wait: wait}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(r.wait)

	for {
		ok, err := r.rdb.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("lock: set %s: %w", redisKey, err)
		}
		if ok {
			return func() {
				// Release must run even if the attempt's context was cancelled.
				relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := releaseScript.Run(relCtx, r.rdb, []string{redisKey}, token).Err(); err != nil {
					log.Warn().Err(err).Str("key", redisKey).Msg("lock: release failed, key will expire")
				}
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrBusy
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
}
