package history

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tokmz/liao/pkg/presence"
)

// Mirror 消息镜像
//
// 订阅核心观察总线的 message.routed 事件并异步落盘。对核心而言完全是
// 旁路：落盘失败只记日志，从不阻塞或回滚内存中的投递。
type Mirror struct {
	store   *Store
	log     *zap.Logger
	timeout time.Duration
}

// NewMirror 创建消息镜像
func NewMirror(store *Store, log *zap.Logger) *Mirror {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mirror{
		store:   store,
		log:     log,
		timeout: 3 * time.Second,
	}
}

// Attach 挂载到观察总线
func (m *Mirror) Attach(bus *presence.Bus) {
	bus.Subscribe(presence.TopicMessageRouted, m.onMessageRouted)
}

func (m *Mirror) onMessageRouted(event presence.BusEvent) {
	msg, ok := event.Data.(*presence.RoutedMessage)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	if err := m.store.SaveMessage(ctx, msg); err != nil {
		m.log.Warn("history mirror failed",
			zap.String("message_id", msg.ID),
			zap.Error(err))
	}
}
