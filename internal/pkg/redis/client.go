// internal/pkg/redis/client.go
package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"

	goredis "github.com/redis/go-redis/v9"
)

// Client 封装了 go-redis 的 UniversalClient：单个地址时为单机模式，多个地址时为集群模式。
// 同时维护一个 Lua 脚本注册表，脚本在服务启动时加载，运行时按名称调用。
type Client struct {
	rdb     goredis.UniversalClient
	scripts map[string]*goredis.Script
	mu      sync.RWMutex
}

// NewClient 根据 "host1:port1,host2:port2" 格式的地址创建客户端并做一次 PING 检查。
func NewClient(addrs string) (*Client, error) {
	list := strings.Split(addrs, ",")
	rdb := goredis.NewUniversalClient(&goredis.UniversalOptions{Addrs: list})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis %s: %w", addrs, err)
	}
	return NewFromUniversal(rdb), nil
}

// NewFromUniversal 用已有的连接构造 Client（测试中配合 miniredis 使用）。
func NewFromUniversal(rdb goredis.UniversalClient) *Client {
	return &Client{rdb: rdb, scripts: make(map[string]*goredis.Script)}
}

// GetClient 返回底层连接，用于 pipeline 等高级操作。
func (c *Client) GetClient() goredis.UniversalClient {
	return c.rdb
}

// LoadScriptFromContent 注册一个 Lua 脚本，并预先 SCRIPT LOAD 到服务端。
func (c *Client) LoadScriptFromContent(name, content string) error {
	script := goredis.NewScript(content)
	if err := script.Load(context.Background(), c.rdb).Err(); err != nil {
		return fmt.Errorf("failed to load lua script %s: %w", name, err)
	}
	c.mu.Lock()
	c.scripts[name] = script
	c.mu.Unlock()
	return nil
}

// RunScript 按名称执行已注册的脚本。EvalSha 未命中时 go-redis 会自动回退到 Eval。
func (c *Client) RunScript(ctx context.Context, name string, keys []string, args ...interface{}) (interface{}, error) {
	c.mu.RLock()
	script, ok := c.scripts[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("lua script %s not loaded", name)
	}
	return script.Run(ctx, c.rdb, keys, args...).Result()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
