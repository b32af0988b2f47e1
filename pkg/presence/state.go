package presence

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Options 核心配置
type Options struct {
	// Policy 房间成员策略
	Policy MembershipPolicy
	// Logger 日志器，默认 zap.NewNop()
	Logger *zap.Logger
	// Metrics 监控实现，默认 NoopMetrics
	Metrics Metrics
	// BusWorkers 观察总线 worker 数量
	BusWorkers int
	// BusQueueSize 观察总线队列大小
	BusQueueSize int
}

// Option 配置选项
type Option func(*Options)

// WithPolicy 设置房间成员策略
func WithPolicy(policy MembershipPolicy) Option {
	return func(o *Options) { o.Policy = policy }
}

// WithLogger 设置日志器
func WithLogger(log *zap.Logger) Option {
	return func(o *Options) { o.Logger = log }
}

// WithMetrics 设置监控实现
func WithMetrics(metrics Metrics) Option {
	return func(o *Options) { o.Metrics = metrics }
}

// WithBusQueue 设置观察总线规模
func WithBusQueue(workers, queueSize int) Option {
	return func(o *Options) {
		o.BusWorkers = workers
		o.BusQueueSize = queueSize
	}
}

// State 核心状态对象
//
// 显式构造、显式销毁，持有注册表与房间目录并串行化所有复合变更：
// 多步操作（入房通知快照、断开级联）在同一个临界区内完成，保证
// "先房间退房通知、后全局下线通知、且恰好一次" 的顺序不变量。
// 单条连接的命令由其传输层读循环同步送入 Dispatch，天然保持到达顺序。
type State struct {
	mu sync.Mutex

	registry *Registry
	rooms    *Directory
	bus      *Bus

	broadcaster *Broadcaster
	router      *Router
	relay       *Relay

	metrics Metrics
	log     *zap.Logger
}

// New 创建核心状态
func New(opts ...Option) *State {
	options := &Options{
		Policy:  PolicyMultiRoom,
		Logger:  zap.NewNop(),
		Metrics: &NoopMetrics{},
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.Metrics == nil {
		options.Metrics = &NoopMetrics{}
	}

	s := &State{
		registry: NewRegistry(),
		rooms:    NewDirectory(options.Policy),
		bus:      NewBus(options.BusWorkers, options.BusQueueSize),
		metrics:  options.Metrics,
		log:      options.Logger,
	}
	s.broadcaster = &Broadcaster{s: s}
	s.router = &Router{s: s}
	s.relay = &Relay{s: s}
	return s
}

// Close 销毁核心状态，停止观察总线
func (s *State) Close() {
	s.bus.Close()
}

// Registry 连接注册表
func (s *State) Registry() *Registry { return s.registry }

// Rooms 房间目录
func (s *State) Rooms() *Directory { return s.rooms }

// Broadcaster 在线状态广播器
func (s *State) Broadcaster() *Broadcaster { return s.broadcaster }

// Router 消息路由器
func (s *State) Router() *Router { return s.router }

// Typing 输入提示转发器
func (s *State) Typing() *Relay { return s.relay }

// Bus 观察总线，供旁路消费者（指标、历史镜像）订阅
func (s *State) Bus() *Bus { return s.bus }

// Connect 登记一条新连接并广播上线通知
func (s *State) Connect(peer Peer) Identity {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity := s.registry.Register(peer)
	s.broadcaster.onConnect(identity)

	s.metrics.IncrementConnections()
	s.metrics.SetConnectionCount(s.registry.Count())
	s.bus.Publish(BusEvent{Topic: TopicConnectionOpened, ConnectionID: identity.ConnectionID, Time: time.Now()})
	s.log.Debug("connection opened",
		zap.String("connection_id", identity.ConnectionID))
	return identity
}

// Disconnect 执行断开级联：退房通知、注销、下线广播
//
// 对已注销的连接幂等；整个级联在一个临界区内完成。
func (s *State) Disconnect(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.broadcaster.onDisconnect(connID) {
		return
	}

	s.metrics.DecrementConnections()
	s.metrics.SetConnectionCount(s.registry.Count())
	s.metrics.SetRoomCount(s.rooms.RoomCount())
	s.bus.Publish(BusEvent{Topic: TopicConnectionClosed, ConnectionID: connID, Time: time.Now()})
	s.log.Debug("connection closed", zap.String("connection_id", connID))
}

// Dispatch 处理一条入站命令
//
// 单一穷举分发点：所有客户端事件种类在此处集中处理。引用已注销连接的
// 命令（与断开竞态）一律按 no-op 处理，绝不造成崩溃。
func (s *State) Dispatch(connID string, cmd Command) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch cmd.Kind {
	case CmdSetIdentity:
		identity, err := s.registry.SetIdentity(connID, cmd.UserUUID, cmd.DisplayName)
		if err != nil {
			return // UnknownConnection: no-op
		}
		s.broadcaster.onIdentityChange(identity)

	case CmdJoinRoom:
		s.broadcaster.onJoin(connID, cmd.Room)

	case CmdLeaveRoom:
		s.broadcaster.onLeave(connID, cmd.Room)

	case CmdSendMessage:
		s.router.send(connID, cmd.Room, cmd.ToUserUUID, cmd.Body)

	case CmdTyping:
		s.relay.notifyTyping(connID, cmd.Room, cmd.ToUserUUID)

	case CmdRequestOnlineUsers:
		s.broadcaster.onOnlineUsersRequest(connID, cmd.Room)

	default:
		s.log.Warn("unknown command kind",
			zap.Int("kind", int(cmd.Kind)),
			zap.String("connection_id", connID))
	}
}

// deliver 普通投递，失败记录并丢弃
func (s *State) deliver(peer Peer, data []byte) {
	if err := peer.Deliver(data); err != nil {
		s.onDeliveryFailure(err)
	}
}

// deliverHigh 高优先级投递（确认、错误、回执）
func (s *State) deliverHigh(peer Peer, data []byte) {
	if err := peer.DeliverHigh(data); err != nil {
		s.onDeliveryFailure(err)
	}
}

// onDeliveryFailure 单接收方投递失败：计数、记日志，从不向上冒泡
func (s *State) onDeliveryFailure(err error) {
	s.metrics.IncrementDeliveryDrops()
	s.bus.Publish(BusEvent{Topic: TopicDeliveryDropped, Time: time.Now()})
	s.log.Warn("delivery dropped", zap.Error(err))
}

// emitTo 编码并高优先级投递单个事件
func (s *State) emitTo(connID, event string, data any) {
	peer, ok := s.registry.peerOf(connID)
	if !ok {
		return
	}
	frame, err := encodeNotify(event, data)
	if err != nil {
		s.log.Error("encode notify", zap.String("event", event), zap.Error(err))
		return
	}
	s.deliverHigh(peer, frame)
}

// emitError 向单个连接下发 error 事件
func (s *State) emitError(connID, message string) {
	peer, ok := s.registry.peerOf(connID)
	if !ok {
		return
	}
	frame, err := NewErrorFrame(message)
	if err != nil {
		s.log.Error("encode error event", zap.Error(err))
		return
	}
	s.deliverHigh(peer, frame)
}
