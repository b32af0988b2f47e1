package presence

// Metrics 监控接口
type Metrics interface {
	// 连接指标
	IncrementConnections()
	DecrementConnections()
	SetConnectionCount(count int)

	// 房间指标
	SetRoomCount(count int)

	// 消息指标
	IncrementMessagesRouted(kind string) // "room" | "direct"
	IncrementRejectedSends(reason string)
	IncrementTypingRelays()

	// 投递指标
	IncrementDeliveryDrops()
}

// NoopMetrics 空实现（默认）
type NoopMetrics struct{}

func (m *NoopMetrics) IncrementConnections()                {}
func (m *NoopMetrics) DecrementConnections()                {}
func (m *NoopMetrics) SetConnectionCount(count int)         {}
func (m *NoopMetrics) SetRoomCount(count int)               {}
func (m *NoopMetrics) IncrementMessagesRouted(kind string)  {}
func (m *NoopMetrics) IncrementRejectedSends(reason string) {}
func (m *NoopMetrics) IncrementTypingRelays()               {}
func (m *NoopMetrics) IncrementDeliveryDrops()              {}
