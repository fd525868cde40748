// internal/zookeeper/lock.go
package zookeeper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
)

const (
	lockRoot = "/promo_intelligence_locks" // 所有分布式锁的根节点
)

var ErrLockTimeout = errors.New("timeout waiting for zookeeper lock")

// DistributedLock 是基于临时顺序节点的公平锁：序号最小的节点持有锁，其余节点监听前一个节点。
type DistributedLock struct {
	conn     *Conn
	path     string // 锁路径，例如 /promo_intelligence_locks/venue-123
	lockNode string // 获取锁后自己创建的节点
	timeout  time.Duration
}

// NewDistributedLock 为某个资源创建锁实例，并确保锁路径存在。
func NewDistributedLock(conn *Conn, resourceID string, timeout time.Duration) (*DistributedLock, error) {
	if err := conn.ensurePath(lockRoot); err != nil {
		return nil, err
	}
	lockPath := lockRoot + "/" + resourceID
	if err := conn.ensurePath(lockPath); err != nil {
		return nil, err
	}
	return &DistributedLock{conn: conn, path: lockPath, timeout: timeout}, nil
}

// Lock 阻塞直到获取锁、超时或 ctx 取消。
func (l *DistributedLock) Lock(ctx context.Context) error {
	nodePath, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/lock-", []byte(""), zk.WorldACL(zk.PermAll))
	if err != nil {
		return fmt.Errorf("failed to create sequential node: %w", err)
	}
	l.lockNode = nodePath
	myNodeName := strings.TrimPrefix(nodePath, l.path+"/")

	deadline := time.NewTimer(l.timeout)
	defer deadline.Stop()

	for {
		children, _, err := l.conn.Children(l.path)
		if err != nil {
			l.abandon()
			return fmt.Errorf("failed to get children nodes: %w", err)
		}
		sortBySequence(children)

		idx := indexOf(children, myNodeName)
		if idx < 0 {
			l.abandon()
			return errors.New("own lock node disappeared")
		}
		if idx == 0 {
			return nil
		}

		prevNodePath := l.path + "/" + children[idx-1]
		exists, _, eventChan, err := l.conn.ExistsW(prevNodePath)
		if err != nil {
			l.abandon()
			return fmt.Errorf("failed to watch previous node: %w", err)
		}
		if !exists {
			continue
		}

		select {
		case <-eventChan:
			// 前一个节点发生变化（通常是删除），重新检查
		case <-deadline.C:
			l.abandon()
			return ErrLockTimeout
		case <-ctx.Done():
			l.abandon()
			return ctx.Err()
		}
	}
}

// Unlock 释放锁
func (l *DistributedLock) Unlock() error {
	if l.lockNode == "" {
		return errors.New("no lock to unlock")
	}
	err := l.conn.Delete(l.lockNode, -1)
	if err != nil && err != zk.ErrNoNode {
		return fmt.Errorf("failed to delete lock node: %w", err)
	}
	l.lockNode = ""
	return nil
}

func (l *DistributedLock) abandon() {
	if l.lockNode != "" {
		_ = l.conn.Delete(l.lockNode, -1)
		l.lockNode = ""
	}
}

// CreateProtectedEphemeralSequential 生成的节点名带有 "_c_<guid>-" 前缀，
// 因此必须按末尾的序号排序，而不是按整个字符串排序。
func sortBySequence(children []string) {
	sort.Slice(children, func(i, j int) bool {
		return sequenceOf(children[i]) < sequenceOf(children[j])
	})
}

func sequenceOf(node string) string {
	if i := strings.LastIndex(node, "lock-"); i >= 0 {
		return node[i+len("lock-"):]
	}
	return node
}

func indexOf(children []string, name string) int {
	for i, child := range children {
		if child == name {
			return i
		}
	}
	return -1
}
