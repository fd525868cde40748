// internal/pkg/redis/lock.go
package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

const (
	releaseLockScriptName = "release_lock"
	lockRetryInterval     = 50 * time.Millisecond
)

var ErrLockTimeout = errors.New("timeout waiting for redis lock")

// 只有持有者（value 相同）才能删除锁，避免误删别人重新获取的锁
var releaseLockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`

// Lock 是基于 SET NX + TTL 的互斥锁。一个 Lock 实例只应在一个 goroutine 中使用。
type Lock struct {
	client *Client
	key    string
	value  string
	ttl    time.Duration
}

// NewLock 创建一个锁实例，key 会加上 "lock:" 前缀。
func (c *Client) NewLock(key string, ttl time.Duration) (*Lock, error) {
	c.mu.RLock()
	_, loaded := c.scripts[releaseLockScriptName]
	c.mu.RUnlock()
	if !loaded {
		if err := c.LoadScriptFromContent(releaseLockScriptName, releaseLockScript); err != nil {
			return nil, err
		}
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return &Lock{
		client: c,
		key:    "lock:" + key,
		value:  hex.EncodeToString(b),
		ttl:    ttl,
	}, nil
}

// TryAcquire 尝试获取一次锁，不阻塞。
func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.client.rdb.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}
	return ok, nil
}

// Acquire 在 wait 时间内轮询获取锁，超时返回 ErrLockTimeout。
func (l *Lock) Acquire(ctx context.Context, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	for {
		ok, err := l.TryAcquire(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

// Release 释放锁（仅当仍然持有时）。
func (l *Lock) Release(ctx context.Context) error {
	_, err := l.client.RunScript(ctx, releaseLockScriptName, []string{l.key}, l.value)
	return err
}
