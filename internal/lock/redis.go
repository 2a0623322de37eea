// README: Redis-backed Locker (SET NX PX with an owner token) for multi-instance deployments.
package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "lock:"

// releaseScript deletes the key only while it still holds our token, so an
// expired-and-retaken lock is never released by its previous owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type RedisLocker struct {
	redis *redis.Client
	ttl   time.Duration
	poll  time.Duration
}

// NewRedisLocker returns a locker whose leases expire after ttl so a crashed
// holder cannot block a key forever.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisLocker{redis: client, ttl: ttl, poll: 20 * time.Millisecond}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	k := keyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := l.redis.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		timer := time.NewTimer(l.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return func() {
		// the caller's ctx may already be cancelled; release must still reach redis
		rctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		// on failure the lease expiry reclaims the key
		_ = releaseScript.Run(rctx, l.redis, []string{k}, token).Err()
	}, nil
}
