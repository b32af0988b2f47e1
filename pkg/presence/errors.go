package presence

import "errors"

// 错误定义
var (
	// 连接相关错误
	ErrUnknownConnection = errors.New("presence: unknown connection")

	// 房间相关错误
	ErrNotInRoom = errors.New("presence: not in room")

	// 消息相关错误
	ErrInvalidDestination = errors.New("presence: exactly one of room or to_user_uuid is required")
	ErrEmptyBody          = errors.New("presence: empty message body")
	ErrTargetOffline      = errors.New("presence: user not found or offline")
	ErrUnknownEvent       = errors.New("presence: unknown event")
	ErrInvalidPayload     = errors.New("presence: invalid payload")
)

// 客户端可见错误文案，与 error 事件的 message 字段保持稳定
const (
	msgNotInRoom          = "not in room"
	msgTargetOffline      = "user not found or offline"
	msgInvalidDestination = "exactly one of room or to_user_uuid is required"
	msgEmptyBody          = "empty message body"
)

// clientMessage 将内部错误映射为下发给客户端的文案
func clientMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotInRoom):
		return msgNotInRoom
	case errors.Is(err, ErrTargetOffline):
		return msgTargetOffline
	case errors.Is(err, ErrInvalidDestination):
		return msgInvalidDestination
	case errors.Is(err, ErrEmptyBody):
		return msgEmptyBody
	default:
		return "internal error"
	}
}
