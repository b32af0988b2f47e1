package ws

import (
	"sync"
	"sync/atomic"
)

// pool 传输层连接池
//
// 只负责容量限制与关闭时的遍历；在线状态的权威记录在 presence.Registry。
// 连接 ID 由核心在注册时分配，因此容量先原子预留，拿到 ID 后再绑定。
type pool struct {
	clients  sync.Map     // connectionID -> *Client
	count    atomic.Int64 // 连接数（含已预留未绑定）
	maxConns int          // 最大连接数
}

func newPool(maxConns int) *pool {
	return &pool{maxConns: maxConns}
}

// reserve 原子预留一个连接名额
func (p *pool) reserve() error {
	newCount := p.count.Add(1)
	if int(newCount) > p.maxConns {
		// 超过限制，回滚
		p.count.Add(-1)
		return ErrTooManyConnections
	}
	return nil
}

// release 归还一个未绑定的名额
func (p *pool) release() {
	p.count.Add(-1)
}

// bind 将客户端绑定到核心分配的连接 ID
func (p *pool) bind(connID string, client *Client) {
	p.clients.Store(connID, client)
}

// remove 移除客户端并归还名额
func (p *pool) remove(connID string) {
	if _, loaded := p.clients.LoadAndDelete(connID); loaded {
		p.count.Add(-1)
	}
}

// size 当前连接数
func (p *pool) size() int {
	return int(p.count.Load())
}

// each 遍历所有客户端
func (p *pool) each(f func(*Client) bool) {
	p.clients.Range(func(key, value any) bool {
		client, ok := value.(*Client)
		if !ok {
			return true
		}
		return f(client)
	})
}
