package presence

import "sync"

// MembershipPolicy 房间成员策略，构造时固定
//
// 多房间成员行为不靠隐式推断：要么允许同时加入多个房间，要么每次
// 加入时自动退出旧房间，策略显式暴露为构造参数。
type MembershipPolicy int

const (
	// PolicyMultiRoom 连接可同时加入多个房间
	PolicyMultiRoom MembershipPolicy = iota
	// PolicySingleRoom 加入新房间时先退出当前所有房间
	PolicySingleRoom
)

// Directory 房间目录
//
// 维护 room -> 成员集合 与 connection -> 已加入房间集合 两个互逆映射，
// 所有变更在同一把锁内成对进行，目录内不变量由构造保证：
//   - 出现在目录中的房间至少有一个成员，空房间即刻删除
//   - 任一连接的 RoomsOf 恰好是 "成员集合包含该连接的房间" 的逆像
type Directory struct {
	mu      sync.RWMutex
	policy  MembershipPolicy
	members map[string]map[string]struct{} // room -> connID 集合
	joined  map[string]map[string]struct{} // connID -> room 集合
}

// NewDirectory 创建房间目录
func NewDirectory(policy MembershipPolicy) *Directory {
	return &Directory{
		policy:  policy,
		members: make(map[string]map[string]struct{}),
		joined:  make(map[string]map[string]struct{}),
	}
}

// Policy 返回构造时固定的成员策略
func (d *Directory) Policy() MembershipPolicy {
	return d.policy
}

// Join 加入房间，房间不存在时隐式创建
//
// 返回值 left 是因单房间策略被自动退出的房间（供调用方补发离开通知），
// already 表示此前已是成员：成员关系不变，但调用方按约定仍重发入房通知。
func (d *Directory) Join(connID, room string) (left []string, already bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if set, ok := d.members[room]; ok {
		if _, in := set[connID]; in {
			return nil, true
		}
	}

	if d.policy == PolicySingleRoom {
		left = d.purgeLocked(connID)
	}

	set, ok := d.members[room]
	if !ok {
		set = make(map[string]struct{})
		d.members[room] = set
	}
	set[connID] = struct{}{}

	rooms, ok := d.joined[connID]
	if !ok {
		rooms = make(map[string]struct{})
		d.joined[connID] = rooms
	}
	rooms[room] = struct{}{}

	return left, false
}

// Leave 离开房间，非成员时静默无操作
//
// 返回是否确实移除了成员关系。成员清空的房间随即删除。
func (d *Directory) Leave(connID, room string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.leaveLocked(connID, room)
}

func (d *Directory) leaveLocked(connID, room string) bool {
	set, ok := d.members[room]
	if !ok {
		return false
	}
	if _, in := set[connID]; !in {
		return false
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(d.members, room)
	}

	if rooms, ok := d.joined[connID]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(d.joined, connID)
		}
	}
	return true
}

// MembersOf 房间成员快照，未知房间返回空切片
func (d *Directory) MembersOf(room string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	set := d.members[room]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// Contains 判断连接是否为房间成员
func (d *Directory) Contains(room, connID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	set, ok := d.members[room]
	if !ok {
		return false
	}
	_, in := set[connID]
	return in
}

// RoomsOf 连接已加入的房间快照
func (d *Directory) RoomsOf(connID string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rooms := d.joined[connID]
	out := make([]string, 0, len(rooms))
	for room := range rooms {
		out = append(out, room)
	}
	return out
}

// Purge 将连接从其所有房间移除，返回被移除的房间列表（用于补发通知）
func (d *Directory) Purge(connID string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.purgeLocked(connID)
}

func (d *Directory) purgeLocked(connID string) []string {
	rooms := d.joined[connID]
	if len(rooms) == 0 {
		return nil
	}
	out := make([]string, 0, len(rooms))
	for room := range rooms {
		out = append(out, room)
	}
	for _, room := range out {
		d.leaveLocked(connID, room)
	}
	return out
}

// RoomCount 当前房间数量
func (d *Directory) RoomCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.members)
}
