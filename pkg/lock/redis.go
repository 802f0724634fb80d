package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Connect opens a Redis client and checks that the server answers.
func Connect(ctx context.Context, cfg RedisConfig, logger ectologger.Logger) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logger.Infof("Connected to Redis at %s", addr)
	return rdb, nil
}

// RedisLocker takes schema locks with SET NX. A lock expires after ttl so a
// crashed run cannot block the schema forever.
type RedisLocker struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger ectologger.Logger
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration, logger ectologger.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisLocker{rdb: rdb, ttl: ttl, logger: logger}
}

func (l *RedisLocker) Acquire(ctx context.Context, schema string) (Lock, error) {
	key := Key(schema)
	token := uuid.New().String()

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	l.logger.WithContext(ctx).Debugf("Acquired lock: %s", key)
	return &redisLock{locker: l, key: key, token: token}, nil
}

type redisLock struct {
	locker *RedisLocker
	key    string
	token  string
}

func (r *redisLock) Key() string {
	return r.key
}

// Release deletes the key only while it still carries this lock's token.
func (r *redisLock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, r.locker.rdb, []string{r.key}, r.token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release %s: %w", r.key, err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}

	r.locker.logger.WithContext(ctx).Debugf("Released lock: %s", r.key)
	return nil
}

// Extend resets the expiry of a held lock.
func (r *redisLock) Extend(ctx context.Context, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, r.locker.rdb, []string{r.key}, r.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to extend %s: %w", r.key, err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}
