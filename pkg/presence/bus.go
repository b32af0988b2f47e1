package presence

import (
	"sync"
	"sync/atomic"
	"time"
)

// Topic 观察事件主题
type Topic string

const (
	// TopicConnectionOpened 连接建立
	TopicConnectionOpened Topic = "connection.opened"
	// TopicConnectionClosed 连接断开
	TopicConnectionClosed Topic = "connection.closed"
	// TopicRoomJoined 加入房间
	TopicRoomJoined Topic = "room.joined"
	// TopicRoomLeft 离开房间
	TopicRoomLeft Topic = "room.left"
	// TopicMessageRouted 消息完成路由
	TopicMessageRouted Topic = "message.routed"
	// TopicDeliveryDropped 单个接收方投递失败
	TopicDeliveryDropped Topic = "delivery.dropped"
)

// BusEvent 观察事件
type BusEvent struct {
	Topic        Topic
	ConnectionID string
	Room         string
	Data         any
	Time         time.Time
}

// BusHandler 观察事件处理器
type BusHandler func(BusEvent)

// Bus 异步观察总线
//
// 仅用于旁路消费（指标、历史镜像等），面向客户端的通知顺序从不依赖它。
// 队列满时丢弃事件并计数，慢消费者不能反压核心路径。
type Bus struct {
	handlers map[Topic][]BusHandler
	mu       sync.RWMutex
	workerCh chan func()
	stopCh   chan struct{}
	wg       sync.WaitGroup
	closed   atomic.Bool
	dropped  atomic.Int64
}

// NewBus 创建观察总线
func NewBus(workers, queueSize int) *Bus {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 1024
	}
	b := &Bus{
		handlers: make(map[Topic][]BusHandler),
		workerCh: make(chan func(), queueSize),
		stopCh:   make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	return b
}

func (b *Bus) worker() {
	defer b.wg.Done()
	for {
		select {
		case task := <-b.workerCh:
			task()
		case <-b.stopCh:
			return
		}
	}
}

// Subscribe 订阅主题
func (b *Bus) Subscribe(topic Topic, handler BusHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}

// Publish 异步发布事件
//
// 入队永不阻塞：发布方通常持有核心的临界区，总线饱和时只能丢事件计数，
// 不能把慢消费者的压力传导回分发路径。
func (b *Bus) Publish(event BusEvent) {
	if b.closed.Load() {
		return
	}

	b.mu.RLock()
	handlers := b.handlers[event.Topic]
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	for _, handler := range handlers {
		h := handler
		select {
		case b.workerCh <- func() { h(event) }:
		default:
			b.dropped.Add(1)
		}
	}
}

// Close 关闭总线
//
// 不关闭 workerCh，避免并发 Publish 触发 panic；残留事件直接丢弃。
func (b *Bus) Close() {
	if b.closed.Swap(true) {
		return
	}
	close(b.stopCh)
	b.wg.Wait()
}

// DroppedEvents 累计丢弃的事件数
func (b *Bus) DroppedEvents() int64 {
	return b.dropped.Load()
}
