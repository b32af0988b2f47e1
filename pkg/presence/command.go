package presence

import (
	"encoding/json"
	"fmt"
)

// CommandKind 入站命令种类
type CommandKind int

const (
	// CmdSetIdentity 声明身份
	CmdSetIdentity CommandKind = iota + 1
	// CmdJoinRoom 加入房间
	CmdJoinRoom
	// CmdLeaveRoom 离开房间
	CmdLeaveRoom
	// CmdSendMessage 发送消息
	CmdSendMessage
	// CmdTyping 输入提示
	CmdTyping
	// CmdRequestOnlineUsers 查询在线用户
	CmdRequestOnlineUsers
)

// Command 入站命令（标签联合）
//
// 所有客户端事件统一解码为一个 Command，由 State.Dispatch 的单个穷举
// switch 处理，新增事件种类时漏分支会在编译期/评审期暴露。
type Command struct {
	Kind CommandKind

	// CmdSetIdentity
	UserUUID    string
	DisplayName string

	// CmdJoinRoom / CmdLeaveRoom / CmdSendMessage / CmdTyping / CmdRequestOnlineUsers
	Room string

	// CmdSendMessage / CmdTyping
	ToUserUUID string

	// CmdSendMessage
	Body string
}

type setIdentityPayload struct {
	UserUUID    string `json:"user_uuid"`
	DisplayName string `json:"display_name"`
}

type roomPayload struct {
	Room string `json:"room"`
}

type sendMessagePayload struct {
	Body       string `json:"body"`
	Room       string `json:"room"`
	ToUserUUID string `json:"to_user_uuid"`
}

type typingPayload struct {
	Room       string `json:"room"`
	ToUserUUID string `json:"to_user_uuid"`
}

type onlineUsersPayload struct {
	Room string `json:"room"`
}

// ParseCommand 解析一个入站帧为 Command
//
// 未知事件名返回 ErrUnknownEvent，数据不可解析返回 ErrInvalidPayload；
// 载荷内容的业务校验（目的地互斥、空消息体等）留给 Dispatch 阶段。
func ParseCommand(frame []byte) (Command, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	decode := func(v any) error {
		if len(env.Data) == 0 {
			return nil
		}
		if err := json.Unmarshal(env.Data, v); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return nil
	}

	switch env.Event {
	case CmdEventSetIdentity:
		var p setIdentityPayload
		if err := decode(&p); err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdSetIdentity, UserUUID: p.UserUUID, DisplayName: p.DisplayName}, nil

	case CmdEventJoinRoom:
		var p roomPayload
		if err := decode(&p); err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdJoinRoom, Room: p.Room}, nil

	case CmdEventLeaveRoom:
		var p roomPayload
		if err := decode(&p); err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdLeaveRoom, Room: p.Room}, nil

	case CmdEventSendMessage:
		var p sendMessagePayload
		if err := decode(&p); err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdSendMessage, Room: p.Room, ToUserUUID: p.ToUserUUID, Body: p.Body}, nil

	case CmdEventTyping:
		var p typingPayload
		if err := decode(&p); err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdTyping, Room: p.Room, ToUserUUID: p.ToUserUUID}, nil

	case CmdEventRequestOnlineUsers:
		var p onlineUsersPayload
		if err := decode(&p); err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdRequestOnlineUsers, Room: p.Room}, nil

	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}
