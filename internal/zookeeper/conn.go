// internal/zookeeper/conn.go
package zookeeper

import (
	"fmt"
	"time"

	"github.com/go-zookeeper/zk"

	"promo-intelligence/internal/pkg/logger"
)

// Conn 封装了 zk.Conn，方便在锁实现中替换和扩展。
type Conn struct {
	*zk.Conn
}

// Connect 连接 ZooKeeper 集群。
func Connect(servers []string, sessionTimeout time.Duration) (*Conn, error) {
	c, _, err := zk.Connect(servers, sessionTimeout, zk.WithLogInfo(false))
	if err != nil {
		return nil, fmt.Errorf("failed to connect zookeeper %v: %w", servers, err)
	}
	logger.L().Info().Strs("servers", servers).Msg("✅ Connected to ZooKeeper")
	return &Conn{Conn: c}, nil
}

// ensurePath 创建持久节点，已存在时忽略。
func (c *Conn) ensurePath(path string) error {
	exists, _, err := c.Exists(path)
	if err != nil {
		return fmt.Errorf("failed to check node %s: %w", path, err)
	}
	if exists {
		return nil
	}
	_, err = c.Create(path, []byte(""), 0, zk.WorldACL(zk.PermAll))
	if err != nil && err != zk.ErrNodeExists {
		return fmt.Errorf("failed to create node %s: %w", path, err)
	}
	return nil
}
