package presence

import (
	"sync/atomic"
	"testing"
	"time"
)

// TestBus_PublishSubscribe 测试订阅与异步投递
func TestBus_PublishSubscribe(t *testing.T) {
	b := NewBus(2, 16)
	defer b.Close()

	received := make(chan BusEvent, 1)
	b.Subscribe(TopicMessageRouted, func(event BusEvent) {
		received <- event
	})

	b.Publish(BusEvent{Topic: TopicMessageRouted, Room: "general", Time: time.Now()})

	select {
	case event := <-received:
		if event.Room != "general" {
			t.Errorf("Room: got %q, want %q", event.Room, "general")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

// TestBus_NoSubscriber 测试无订阅者时发布不入队
func TestBus_NoSubscriber(t *testing.T) {
	b := NewBus(1, 1)
	defer b.Close()

	for i := 0; i < 100; i++ {
		b.Publish(BusEvent{Topic: TopicRoomJoined})
	}
	if got := b.DroppedEvents(); got != 0 {
		t.Errorf("DroppedEvents: got %d, want 0", got)
	}
}

// TestBus_DropOnFull 测试慢消费者不反压：队列满即丢并计数
func TestBus_DropOnFull(t *testing.T) {
	b := NewBus(1, 1)
	defer b.Close()

	block := make(chan struct{})
	b.Subscribe(TopicDeliveryDropped, func(BusEvent) { <-block })

	for i := 0; i < 50; i++ {
		b.Publish(BusEvent{Topic: TopicDeliveryDropped})
	}
	close(block)

	if b.DroppedEvents() == 0 {
		t.Error("expected drops with saturated queue")
	}
}

// TestBus_PublishNeverBlocks 测试总线饱和时发布立即返回
//
// 发布方持有核心临界区，任何主题都不允许等待队列腾空。
func TestBus_PublishNeverBlocks(t *testing.T) {
	b := NewBus(1, 1)
	defer b.Close()

	block := make(chan struct{})
	b.Subscribe(TopicConnectionOpened, func(BusEvent) { <-block })
	b.Subscribe(TopicConnectionClosed, func(BusEvent) { <-block })

	start := time.Now()
	for i := 0; i < 100; i++ {
		b.Publish(BusEvent{Topic: TopicConnectionOpened})
		b.Publish(BusEvent{Topic: TopicConnectionClosed})
	}
	elapsed := time.Since(start)
	close(block)

	if elapsed > time.Second {
		t.Errorf("publish blocked on saturated queue: %v", elapsed)
	}
	if b.DroppedEvents() == 0 {
		t.Error("expected drops with saturated queue")
	}
}

// TestBus_CloseIdempotent 测试关闭后的发布与重复关闭
func TestBus_CloseIdempotent(t *testing.T) {
	b := NewBus(1, 4)

	var calls atomic.Int64
	b.Subscribe(TopicConnectionOpened, func(BusEvent) { calls.Add(1) })

	b.Close()
	b.Close()
	b.Publish(BusEvent{Topic: TopicConnectionOpened})

	time.Sleep(50 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("handler called after Close: %d", calls.Load())
	}
}
