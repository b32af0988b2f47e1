package ws

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Client 一条 WebSocket 连接的传输层封装
//
// 实现 presence.Peer：两个投递方法都是非阻塞入队，队列满返回
// ErrSendQueueFull，由核心计数后丢弃。
type Client struct {
	id   string
	conn *websocket.Conn
	gw   *Gateway

	// 发送队列
	send     chan []byte
	sendHigh chan []byte // 高优先级队列（确认、错误、回执）

	// 生命周期
	ctx       context.Context
	cancel    context.CancelFunc
	closed    atomic.Bool
	closeOnce sync.Once
	writeDone chan struct{} // 标记 writePump 已退出

	// 限流
	invalidFrames atomic.Int32 // 无效帧计数

	config *Config
}

func newClient(conn *websocket.Conn, gw *Gateway) *Client {
	ctx, cancel := context.WithCancel(gw.ctx)
	return &Client{
		conn:      conn,
		gw:        gw,
		send:      make(chan []byte, gw.config.SendQueueSize),
		sendHigh:  make(chan []byte, gw.config.HighSendQueueSize),
		ctx:       ctx,
		cancel:    cancel,
		writeDone: make(chan struct{}),
		config:    gw.config,
	}
}

// ID 核心分配的连接 ID
func (c *Client) ID() string {
	return c.id
}

// RemoteAddr 远程地址
func (c *Client) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Deliver 普通投递（presence.Peer）
func (c *Client) Deliver(data []byte) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// DeliverHigh 高优先级投递（presence.Peer）
func (c *Client) DeliverHigh(data []byte) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	select {
	case c.sendHigh <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// run 运行读写泵，任一退出即关闭连接
func (c *Client) run() {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		c.readPump()
	}()
	go func() {
		defer wg.Done()
		c.writePump()
	}()

	wg.Wait()
	c.close()
}

// readPump 读取入站帧并逐条同步分发，保持单连接内的到达顺序
func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.config.HeartbeatTimeout)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.config.HeartbeatTimeout))
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				return
			}
			if !c.gw.handleFrame(c, data) {
				return
			}
		}
	}
}

// writePump 排空发送队列并维持心跳
func (c *Client) writePump() {
	ticker := time.NewTicker(c.config.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		close(c.writeDone)
	}()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case data, ok := <-c.sendHigh:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(data); err != nil {
				return
			}

		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(data); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// close 幂等关闭：触发核心断开级联并回收传输资源
func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.cancel()

		c.gw.onClientClose(c)

		// 关闭底层连接（促使 writePump 退出）
		c.conn.Close()

		// 等 writePump 退出后再关闭通道，超时保护 writePump 未启动的情况
		go func() {
			select {
			case <-c.writeDone:
			case <-time.After(5 * time.Second):
			}
			close(c.send)
			close(c.sendHigh)
		}()
	})
}
