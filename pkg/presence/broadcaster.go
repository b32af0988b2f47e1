package presence

import (
	"time"

	"go.uber.org/zap"
)

// Broadcaster 在线状态广播器
//
// 负责 join/leave/online/offline 四类通知与在线查询，并驱动断开级联。
// 通知类方法由 State 在其临界区内调用；OnlineUsers 为只读查询，可独立使用。
type Broadcaster struct {
	s *State
}

// OnlineUsers 在线身份查询
//
// room 非空时解析该房间成员并映射为身份，与断开竞态时静默跳过已注销
// 的连接；未知房间返回空列表而非错误。room 为空时返回全部在线身份。
func (b *Broadcaster) OnlineUsers(room string) []Identity {
	if room == "" {
		return b.s.registry.Identities()
	}

	members := b.s.rooms.MembersOf(room)
	out := make([]Identity, 0, len(members))
	for _, connID := range members {
		if identity, ok := b.s.registry.LookupByID(connID); ok {
			out = append(out, identity)
		}
	}
	return out
}

// onConnect 向其他所有在线连接广播 user_online
func (b *Broadcaster) onConnect(identity Identity) {
	frame, err := encodeNotify(EventUserOnline, PresenceData{
		UserUUID:    identity.UserUUID,
		DisplayName: identity.DisplayName,
	})
	if err != nil {
		b.s.log.Error("encode user_online", zap.Error(err))
		return
	}
	for _, peer := range b.s.registry.peersExcept(identity.ConnectionID) {
		b.s.deliver(peer, frame)
	}
}

// onIdentityChange 仅向连接本身回执 identity_set，不重播上线状态
func (b *Broadcaster) onIdentityChange(identity Identity) {
	b.s.emitTo(identity.ConnectionID, EventIdentitySet, IdentitySetData{
		UserUUID:    identity.UserUUID,
		DisplayName: identity.DisplayName,
	})
}

// onJoin 处理入房：目录变更、成员通知、入房确认
func (b *Broadcaster) onJoin(connID, room string) {
	identity, ok := b.s.registry.LookupByID(connID)
	if !ok {
		return // 与断开竞态：no-op
	}
	if room == "" {
		b.s.emitError(connID, "room is required")
		return
	}

	left, already := b.s.rooms.Join(connID, room)

	// 单房间策略下被自动退出的房间按显式离开补发通知
	for _, r := range left {
		b.notifyRoomLeft(identity, r)
		b.s.bus.Publish(BusEvent{Topic: TopicRoomLeft, ConnectionID: connID, Room: r, Time: time.Now()})
	}

	// 重复加入时成员关系不变，但约定仍重发入房通知
	b.notifyRoom(room, connID, EventUserJoined, RoomEventData{
		UserUUID:    identity.UserUUID,
		DisplayName: identity.DisplayName,
		Room:        room,
	})

	// 入房确认：当前成员列表（含自己）
	b.s.emitTo(connID, EventRoomJoined, RoomJoinedData{
		Room:  room,
		Users: b.OnlineUsers(room),
	})

	if !already {
		b.s.metrics.SetRoomCount(b.s.rooms.RoomCount())
		b.s.bus.Publish(BusEvent{Topic: TopicRoomJoined, ConnectionID: connID, Room: room, Time: time.Now()})
	}
	b.s.log.Debug("room joined",
		zap.String("connection_id", connID),
		zap.String("room", room),
		zap.Bool("rejoin", already))
}

// onLeave 处理离房：非成员静默无操作
func (b *Broadcaster) onLeave(connID, room string) {
	identity, ok := b.s.registry.LookupByID(connID)
	if !ok {
		return
	}
	if !b.s.rooms.Leave(connID, room) {
		return
	}

	b.notifyRoomLeft(identity, room)
	b.s.metrics.SetRoomCount(b.s.rooms.RoomCount())
	b.s.bus.Publish(BusEvent{Topic: TopicRoomLeft, ConnectionID: connID, Room: room, Time: time.Now()})
}

// onDisconnect 断开级联
//
// 顺序不变量：先对每个曾加入的房间恰好发一次 user_left，再注销连接，
// 最后全局广播恰好一次 user_offline。对已注销连接幂等，返回 false。
func (b *Broadcaster) onDisconnect(connID string) bool {
	identity, ok := b.s.registry.LookupByID(connID)
	if !ok {
		return false
	}

	for _, room := range b.s.rooms.Purge(connID) {
		b.notifyRoomLeft(identity, room)
	}

	b.s.registry.Unregister(connID)

	frame, err := encodeNotify(EventUserOffline, PresenceData{
		UserUUID:    identity.UserUUID,
		DisplayName: identity.DisplayName,
	})
	if err != nil {
		b.s.log.Error("encode user_offline", zap.Error(err))
		return true
	}
	for _, peer := range b.s.registry.peersExcept(connID) {
		b.s.deliver(peer, frame)
	}
	return true
}

// onOnlineUsersRequest 回复在线用户查询
func (b *Broadcaster) onOnlineUsersRequest(connID, room string) {
	b.s.emitTo(connID, EventOnlineUsers, OnlineUsersData{
		Users: b.OnlineUsers(room),
		Room:  room,
	})
}

// notifyRoomLeft 向房间剩余成员发 user_left
func (b *Broadcaster) notifyRoomLeft(identity Identity, room string) {
	b.notifyRoom(room, identity.ConnectionID, EventUserLeft, RoomEventData{
		UserUUID:    identity.UserUUID,
		DisplayName: identity.DisplayName,
		Room:        room,
	})
}

// notifyRoom 向房间除 exclude 外的成员广播一个事件
func (b *Broadcaster) notifyRoom(room, exclude, event string, data any) {
	members := b.s.rooms.MembersOf(room)
	if len(members) == 0 {
		return
	}
	frame, err := encodeNotify(event, data)
	if err != nil {
		b.s.log.Error("encode room notify", zap.String("event", event), zap.Error(err))
		return
	}
	for _, memberID := range members {
		if memberID == exclude {
			continue
		}
		peer, ok := b.s.registry.peerOf(memberID)
		if !ok {
			continue // 成员刚好注销，跳过
		}
		b.s.deliver(peer, frame)
	}
}
