package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// 加锁：SET key value NX EX timeout
// 解锁：Lua 脚本先比对 value 再删除，避免误删他人在锁过期后重新获取的锁

var (
	ErrLockFailed = errors.New("获取分布式锁失败")
)

const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string // 持有者标识
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

func (l *DistributedLock) Key() string {
	return l.key
}

// TryLock 非阻塞获取锁
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Lock 带重试的获取锁，重试用尽返回 ErrLockFailed
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁，返回是否真的删除了自己持有的锁
func (l *DistributedLock) Unlock(ctx context.Context) (bool, error) {
	n, err := l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// NewCheckoutLock 按买家维度加锁，同一买家的结账请求串行
func NewCheckoutLock(client *redis.Client, userID int64, token string, expiration time.Duration) *DistributedLock {
	return NewDistributedLock(client, CheckoutLockKey(userID), token, expiration)
}

func CheckoutLockKey(userID int64) string {
	return fmt.Sprintf("checkout:lock:user:%d", userID)
}
