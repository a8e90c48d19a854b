package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/config"
)

// ErrRedisDisabled is returned by every call when no address was configured.
var ErrRedisDisabled = errors.New("redis client not configured")

// unlockScript deletes the key only if this holder still owns it.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration. An empty address yields a disabled wrapper.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if cfg.Addr == "" {
		logger.Info("REDIS_ADDR not provided; sweep locking disabled")
		return &Redis{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return ErrRedisDisabled
	}
	return r.Client.Ping(ctx).Err()
}

// TryLock acquires key for ttl if no one else holds it. The returned release
// func is safe to call after the lease has expired.
func (r *Redis) TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, func(context.Context) error, error) {
	if r == nil || r.Client == nil {
		return false, nil, ErrRedisDisabled
	}
	ok, err := r.Client.SetNX(ctx, key, owner, ttl).Result()
	if err != nil || !ok {
		return false, nil, err
	}
	release := func(ctx context.Context) error {
		return unlockScript.Run(ctx, r.Client, []string{key}, owner).Err()
	}
	return true, release, nil
}
