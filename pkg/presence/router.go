package presence

import (
	"time"

	"go.uber.org/zap"
)

// Router 消息路由器
//
// 把一次发送请求解析为接收方集合（房间扇出或用户直投），完成投递并向
// 发送方回执确认。投递是尽力而为、至多一次：单个接收方失败只记录，
// 既不中断对其余成员的投递，也不影响发送方的确认。
type Router struct {
	s *State
}

// send 处理一条发送命令，由 State 在其临界区内调用
func (r *Router) send(senderID, room, toUserUUID, body string) {
	// 校验：目的地二选一且消息体非空，违规只通知发送方，不触碰任何状态
	if (room == "") == (toUserUUID == "") {
		r.reject(senderID, ErrInvalidDestination, "destination")
		return
	}
	if body == "" {
		r.reject(senderID, ErrEmptyBody, "empty_body")
		return
	}

	sender, ok := r.s.registry.LookupByID(senderID)
	if !ok {
		return // 与断开竞态：no-op
	}

	if room != "" {
		r.sendToRoom(sender, room, body)
		return
	}
	r.sendDirect(sender, toUserUUID, body)
}

// sendToRoom 房间路径：要求发送方是成员，扇出给除发送方外的全部成员
func (r *Router) sendToRoom(sender Identity, room, body string) {
	if !r.s.rooms.Contains(room, sender.ConnectionID) {
		r.reject(sender.ConnectionID, ErrNotInRoom, "not_in_room")
		return
	}

	msg := r.newMessage(sender, body)
	msg.Room = room

	frame, err := encodeNotify(EventNewMessage, msg)
	if err != nil {
		r.s.log.Error("encode new_message", zap.Error(err))
		return
	}

	for _, memberID := range r.s.rooms.MembersOf(room) {
		if memberID == sender.ConnectionID {
			continue // 发送方本地已有内容，只收确认
		}
		peer, ok := r.s.registry.peerOf(memberID)
		if !ok {
			continue
		}
		r.s.deliver(peer, frame)
	}

	r.ack(sender.ConnectionID, msg.ID, "")
	r.s.metrics.IncrementMessagesRouted("room")
	r.s.bus.Publish(BusEvent{
		Topic:        TopicMessageRouted,
		ConnectionID: sender.ConnectionID,
		Room:         room,
		Data:         msg,
		Time:         time.Now(),
	})
}

// sendDirect 直投路径：按 user_uuid 解析唯一活跃连接
func (r *Router) sendDirect(sender Identity, toUserUUID, body string) {
	targetID, ok := r.s.registry.LookupByUser(toUserUUID)
	if !ok {
		r.reject(sender.ConnectionID, ErrTargetOffline, "target_offline")
		return
	}
	peer, ok := r.s.registry.peerOf(targetID)
	if !ok {
		r.reject(sender.ConnectionID, ErrTargetOffline, "target_offline")
		return
	}

	msg := r.newMessage(sender, body)
	msg.ToUserUUID = toUserUUID

	frame, err := encodeNotify(EventNewMessage, msg)
	if err != nil {
		r.s.log.Error("encode new_message", zap.Error(err))
		return
	}
	r.s.deliver(peer, frame)

	r.ack(sender.ConnectionID, msg.ID, toUserUUID)
	r.s.metrics.IncrementMessagesRouted("direct")
	r.s.bus.Publish(BusEvent{
		Topic:        TopicMessageRouted,
		ConnectionID: sender.ConnectionID,
		Data:         msg,
		Time:         time.Now(),
	})
}

// newMessage 构造带进程内唯一 ID 的路由消息
func (r *Router) newMessage(sender Identity, body string) *RoutedMessage {
	return &RoutedMessage{
		ID:              generateMessageID(),
		Body:            body,
		FromUserUUID:    sender.UserUUID,
		FromDisplayName: sender.DisplayName,
		Timestamp:       time.Now().UnixMilli(),
	}
}

// ack 向发送方回执 message_sent
func (r *Router) ack(senderID, msgID, to string) {
	r.s.emitTo(senderID, EventMessageSent, MessageSentData{ID: msgID, To: to})
}

// reject 拒绝发送：仅向发送方发一条 error 事件
func (r *Router) reject(senderID string, err error, reason string) {
	r.s.metrics.IncrementRejectedSends(reason)
	r.s.emitError(senderID, clientMessage(err))
}
