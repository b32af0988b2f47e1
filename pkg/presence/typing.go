package presence

import "go.uber.org/zap"

// Relay 输入提示转发器
//
// 完全无状态的尽力转发：无确认、无持久化。输入提示是低价值的瞬态
// 信号，任何不满足条件的情况（非成员、目标离线、载荷不合法）都静默
// 丢弃，不向发送方下发 error。
type Relay struct {
	s *State
}

// notifyTyping 转发一条输入提示，由 State 在其临界区内调用
func (t *Relay) notifyTyping(senderID, room, toUserUUID string) {
	if (room == "") == (toUserUUID == "") {
		return // 目的地不合法，静默丢弃
	}

	sender, ok := t.s.registry.LookupByID(senderID)
	if !ok {
		return
	}

	data := TypingData{
		FromUserUUID:    sender.UserUUID,
		FromDisplayName: sender.DisplayName,
		Room:            room,
	}
	frame, err := encodeNotify(EventTyping, data)
	if err != nil {
		t.s.log.Error("encode typing", zap.Error(err))
		return
	}

	if room != "" {
		// 房间路径：仅当发送方是成员时转发
		if !t.s.rooms.Contains(room, senderID) {
			return
		}
		for _, memberID := range t.s.rooms.MembersOf(room) {
			if memberID == senderID {
				continue
			}
			peer, ok := t.s.registry.peerOf(memberID)
			if !ok {
				continue
			}
			t.s.deliver(peer, frame)
		}
		t.s.metrics.IncrementTypingRelays()
		return
	}

	// 直投路径：目标解析不到活跃连接时静默丢弃
	targetID, ok := t.s.registry.LookupByUser(toUserUUID)
	if !ok {
		return
	}
	peer, ok := t.s.registry.peerOf(targetID)
	if !ok {
		return
	}
	t.s.deliver(peer, frame)
	t.s.metrics.IncrementTypingRelays()
}
