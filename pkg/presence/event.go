package presence

import (
	"encoding/json"
	"time"
)

// MessageType 帧类型
type MessageType string

const (
	// MessageTypeRequest 客户端请求帧
	MessageTypeRequest MessageType = "request"
	// MessageTypeNotify 服务端推送帧
	MessageTypeNotify MessageType = "notify"
	// MessageTypeError 服务端错误帧
	MessageTypeError MessageType = "error"
)

// 客户端 → 核心事件名
const (
	CmdEventSetIdentity        = "set_identity"
	CmdEventJoinRoom           = "join_room"
	CmdEventLeaveRoom          = "leave_room"
	CmdEventSendMessage        = "send_message"
	CmdEventTyping             = "typing"
	CmdEventRequestOnlineUsers = "request_online_users"
)

// 核心 → 客户端事件名
const (
	EventIdentitySet = "identity_set"
	EventRoomJoined  = "room_joined"
	EventUserJoined  = "user_joined"
	EventUserLeft    = "user_left"
	EventNewMessage  = "new_message"
	EventMessageSent = "message_sent"
	EventTyping      = "typing"
	EventOnlineUsers = "online_users"
	EventUserOnline  = "user_online"
	EventUserOffline = "user_offline"
	EventError       = "error"
)

// Envelope 双向通用的 JSON 帧
type Envelope struct {
	// Type 帧类型
	Type MessageType `json:"type"`

	// Event 事件名称（如 "join_room", "new_message"）
	Event string `json:"event"`

	// Data 事件数据（JSON）
	Data json.RawMessage `json:"data,omitempty"`

	// Timestamp Unix 毫秒时间戳
	Timestamp int64 `json:"timestamp"`
}

// Identity 连接身份快照
type Identity struct {
	ConnectionID string `json:"connection_id"`
	UserUUID     string `json:"user_uuid"`
	DisplayName  string `json:"display_name"`
}

// Peer 传输层交付端点
//
// 两个方法都必须是非阻塞的：入队失败立即返回错误，由核心记录并丢弃，
// 绝不允许单个慢对端拖住整个房间的投递。
type Peer interface {
	// Deliver 普通投递（房间广播、消息推送）
	Deliver(data []byte) error
	// DeliverHigh 高优先级投递（确认、错误、身份回执）
	DeliverHigh(data []byte) error
}

// RoutedMessage 一次成功路由的消息，仅存活于投递过程
type RoutedMessage struct {
	ID              string `json:"id"`
	Body            string `json:"body"`
	FromUserUUID    string `json:"from_user_uuid"`
	FromDisplayName string `json:"from_display_name"`
	Room            string `json:"room,omitempty"`
	ToUserUUID      string `json:"to_user_uuid,omitempty"`
	Timestamp       int64  `json:"timestamp"`
}

// IdentitySetData identity_set 事件数据
type IdentitySetData struct {
	UserUUID    string `json:"user_uuid"`
	DisplayName string `json:"display_name"`
}

// RoomJoinedData room_joined 事件数据（入房确认，携带当前成员列表）
type RoomJoinedData struct {
	Room  string     `json:"room"`
	Users []Identity `json:"users"`
}

// RoomEventData user_joined / user_left 事件数据
type RoomEventData struct {
	UserUUID    string `json:"user_uuid"`
	DisplayName string `json:"display_name"`
	Room        string `json:"room"`
}

// MessageSentData message_sent 事件数据
type MessageSentData struct {
	ID string `json:"id"`
	To string `json:"to,omitempty"`
}

// TypingData typing 事件数据
type TypingData struct {
	FromUserUUID    string `json:"from_user_uuid"`
	FromDisplayName string `json:"from_display_name"`
	Room            string `json:"room,omitempty"`
}

// OnlineUsersData online_users 事件数据
type OnlineUsersData struct {
	Users []Identity `json:"users"`
	Room  string     `json:"room,omitempty"`
}

// PresenceData user_online / user_offline 事件数据
type PresenceData struct {
	UserUUID    string `json:"user_uuid"`
	DisplayName string `json:"display_name"`
}

// ErrorData error 事件数据
type ErrorData struct {
	Message string `json:"message"`
}

// encodeNotify 编码推送帧；data 由本包内部构造，编码失败视为编程错误
func encodeNotify(event string, data any) ([]byte, error) {
	return encodeEnvelope(MessageTypeNotify, event, data)
}

// NewErrorFrame 编码错误帧，供核心与传输层共用
func NewErrorFrame(message string) ([]byte, error) {
	return encodeEnvelope(MessageTypeError, EventError, ErrorData{Message: message})
}

func encodeEnvelope(typ MessageType, event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		Type:      typ,
		Event:     event,
		Data:      raw,
		Timestamp: time.Now().UnixMilli(),
	})
}
