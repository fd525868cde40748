// internal/service/intelligence/infrastructure/venue_locker.go
package infrastructure

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"promo-intelligence/internal/pkg/redis"
	"promo-intelligence/internal/service/intelligence/domain"
	"promo-intelligence/internal/zookeeper"
)

const venueLockPrefix = "venue:"

// RedisVenueLocker 基于 SET NX 的场馆锁，适合多实例部署。
type RedisVenueLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

func NewRedisVenueLocker(client *redis.Client, ttl, wait time.Duration) *RedisVenueLocker {
	return &RedisVenueLocker{client: client, ttl: ttl, wait: wait}
}

func (l *RedisVenueLocker) LockVenue(ctx context.Context, venueID string) (func(context.Context) error, error) {
	lock, err := l.client.NewLock(venueLockPrefix+venueID, l.ttl)
	if err != nil {
		return nil, errors.Wrap(err, "create redis lock")
	}
	if err := lock.Acquire(ctx, l.wait); err != nil {
		if errors.Is(err, redis.ErrLockTimeout) {
			return nil, errors.Wrapf(domain.ErrLockNotAcquired, "venue %s", venueID)
		}
		return nil, errors.Wrapf(err, "acquire redis lock for venue %s", venueID)
	}
	return lock.Release, nil
}

// ZookeeperVenueLocker 基于临时顺序节点的公平锁，会话断开时锁自动释放。
type ZookeeperVenueLocker struct {
	conn    *zookeeper.Conn
	timeout time.Duration
}

func NewZookeeperVenueLocker(conn *zookeeper.Conn, timeout time.Duration) *ZookeeperVenueLocker {
	return &ZookeeperVenueLocker{conn: conn, timeout: timeout}
}

func (l *ZookeeperVenueLocker) LockVenue(ctx context.Context, venueID string) (func(context.Context) error, error) {
	lock, err := zookeeper.NewDistributedLock(l.conn, venueID, l.timeout)
	if err != nil {
		return nil, errors.Wrap(err, "create zookeeper lock")
	}
	if err := lock.Lock(ctx); err != nil {
		if errors.Is(err, zookeeper.ErrLockTimeout) {
			return nil, errors.Wrapf(domain.ErrLockNotAcquired, "venue %s", venueID)
		}
		return nil, errors.Wrapf(err, "acquire zookeeper lock for venue %s", venueID)
	}
	return func(context.Context) error { return lock.Unlock() }, nil
}

// LocalVenueLocker 进程内的场馆锁，单实例部署和测试使用。
type LocalVenueLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
	wait  time.Duration
}

func NewLocalVenueLocker(wait time.Duration) *LocalVenueLocker {
	return &LocalVenueLocker{slots: make(map[string]chan struct{}), wait: wait}
}

func (l *LocalVenueLocker) slot(venueID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[venueID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[venueID] = ch
	}
	return ch
}

func (l *LocalVenueLocker) LockVenue(ctx context.Context, venueID string) (func(context.Context) error, error) {
	ch := l.slot(venueID)

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
	case <-timer.C:
		return nil, errors.Wrapf(domain.ErrLockNotAcquired, "venue %s", venueID)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { <-ch })
		return nil
	}, nil
}
