package presence

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// entry 一条活跃连接记录
type entry struct {
	id          string
	userUUID    string
	displayName string
	createdAt   time.Time
	seq         uint64 // 注册序号，user_uuid 冲突时最近注册者胜出
	peer        Peer
}

func (e *entry) identity() Identity {
	return Identity{ConnectionID: e.id, UserUUID: e.userUUID, DisplayName: e.displayName}
}

// Registry 连接注册表
//
// 进程内唯一权威的活跃连接表。身份可变：user_uuid 默认为 connection_id，
// display_name 默认为由 connection_id 派生的占位名，二者均可被
// SetIdentity 覆盖。user_uuid 不要求全局唯一（掉线重连会短暂并存），
// 按 user_uuid 查询时确定性地返回最近注册的活跃连接。
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*entry
	seq   uint64
}

// NewRegistry 创建连接注册表
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*entry)}
}

// Register 登记一条新连接并生成初始身份
func (r *Registry) Register(peer Peer) Identity {
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	e := &entry{
		id:          id,
		userUUID:    id,
		displayName: placeholderName(id),
		createdAt:   time.Now(),
		seq:         r.seq,
		peer:        peer,
	}
	r.conns[id] = e
	return e.identity()
}

// SetIdentity 部分更新身份，空字段保持原值，可重复调用
//
// 未知 connection_id 返回 ErrUnknownConnection（调用方按 no-op 处理）。
func (r *Registry) SetIdentity(connID, userUUID, displayName string) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return Identity{}, ErrUnknownConnection
	}
	if userUUID != "" {
		e.userUUID = userUUID
	}
	if displayName != "" {
		e.displayName = displayName
	}
	return e.identity(), nil
}

// LookupByID 按连接 ID 查询身份
func (r *Registry) LookupByID(connID string) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[connID]
	if !ok {
		return Identity{}, false
	}
	return e.identity(), true
}

// LookupByUser 按 user_uuid 查询活跃连接，最近注册者胜出
//
// 线性扫描在单进程规模下足够；更大规模应维护 user_uuid -> connection_id
// 的二级索引并随身份变更与断开原子更新。
func (r *Registry) LookupByUser(userUUID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *entry
	for _, e := range r.conns {
		if e.userUUID != userUUID {
			continue
		}
		if best == nil || e.seq > best.seq {
			best = e
		}
	}
	if best == nil {
		return "", false
	}
	return best.id, true
}

// Unregister 移除连接记录
//
// 调用方（Broadcaster 的断开级联）负责先完成房间清理，保证不留悬挂成员。
func (r *Registry) Unregister(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connID]; !ok {
		return false
	}
	delete(r.conns, connID)
	return true
}

// Count 活跃连接数
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Identities 全部活跃身份快照
func (r *Registry) Identities() []Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Identity, 0, len(r.conns))
	for _, e := range r.conns {
		out = append(out, e.identity())
	}
	return out
}

// peerOf 取连接的交付端点
func (r *Registry) peerOf(connID string) (Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[connID]
	if !ok {
		return nil, false
	}
	return e.peer, true
}

// peersExcept 除指定连接外所有端点的快照
func (r *Registry) peersExcept(connID string) []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Peer, 0, len(r.conns))
	for id, e := range r.conns {
		if id == connID {
			continue
		}
		out = append(out, e.peer)
	}
	return out
}

// placeholderName 由连接 ID 派生默认显示名
func placeholderName(connID string) string {
	short := connID
	if len(short) > 8 {
		short = short[:8]
	}
	return "user-" + short
}
