package emergency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker 保证同一科室同一时间只有一个红色警报流程在执行
type Locker interface {
	Acquire(ctx context.Context, departmentID int64) (release func(ctx context.Context) error, err error)
}

// 只有持有者才能释放锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		rdb: rdb,
		ttl: ttl,
	}
}

func lockKey(departmentID int64) string {
	return fmt.Sprintf("red_alert:lock:%d", departmentID)
}

func (l *RedisLocker) Acquire(ctx context.Context, departmentID int64) (func(ctx context.Context) error, error) {
	key := lockKey(departmentID)
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("emergency: acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrRedAlertInProgress
	}

	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
	}, nil
}
