package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tokmz/liao/pkg/presence"
)

// Gateway WebSocket 网关
//
// 把传输层生命周期绑定到 presence 核心：升级成功即在核心登记连接，
// 传输层关闭（读错误、心跳超时、对端断开）恰好触发一次断开级联。
type Gateway struct {
	state    *presence.State
	pool     *pool
	upgrader *websocket.Upgrader

	config *Config
	log    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewGateway 创建网关
func NewGateway(state *presence.State, opts ...Option) (*Gateway, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Gateway{
		state:    state,
		pool:     newPool(config.MaxConnections),
		upgrader: newUpgrader(config.UpgraderConfig),
		config:   config,
		log:      zap.NewNop(),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// SetLogger 设置日志器
func (g *Gateway) SetLogger(log *zap.Logger) {
	if log != nil {
		g.log = log
	}
}

// ClientCount 当前连接数
func (g *Gateway) ClientCount() int {
	return g.pool.size()
}

// HandleUpgrade 处理一次 WebSocket 升级
func (g *Gateway) HandleUpgrade(w http.ResponseWriter, r *http.Request) error {
	// 先预留名额，避免升级后才发现超限
	if err := g.pool.reserve(); err != nil {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return err
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.pool.release()
		return err
	}

	client := newClient(conn, g)

	// 在核心登记：分配连接 ID 并向其他连接广播上线
	identity := g.state.Connect(client)
	client.id = identity.ConnectionID
	g.pool.bind(client.id, client)

	g.log.Debug("client connected",
		zap.String("connection_id", client.id),
		zap.String("remote_addr", client.RemoteAddr()))

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		client.run()
	}()
	return nil
}

// handleFrame 处理一条入站帧，返回 false 表示应断开连接
func (g *Gateway) handleFrame(c *Client, data []byte) bool {
	cmd, err := presence.ParseCommand(data)
	if err != nil {
		count := c.invalidFrames.Add(1)
		if count > g.config.MaxInvalidFrames {
			g.log.Warn("too many invalid frames, closing",
				zap.String("connection_id", c.id),
				zap.Int32("count", count))
			return false
		}
		if frame, encErr := presence.NewErrorFrame("invalid message format"); encErr == nil {
			_ = c.DeliverHigh(frame)
		}
		return true
	}
	c.invalidFrames.Store(0)

	g.state.Dispatch(c.id, cmd)
	return true
}

// onClientClose 传输层关闭回调：驱动核心断开级联并回收名额
func (g *Gateway) onClientClose(c *Client) {
	if c.id != "" {
		g.state.Disconnect(c.id)
		g.pool.remove(c.id)
	} else {
		g.pool.release()
	}
	g.log.Debug("client closed", zap.String("connection_id", c.id))
}

// Shutdown 优雅关闭：并发关闭所有客户端并等待读写泵退出
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.cancel()

	var closeWg sync.WaitGroup
	g.pool.each(func(c *Client) bool {
		closeWg.Add(1)
		go func(client *Client) {
			defer closeWg.Done()
			client.close()
		}(c)
		return true
	})

	done := make(chan struct{})
	go func() {
		closeWg.Wait()
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
