package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/liao/pkg/presence"
)

// TestMirror_PersistsRoutedMessages 测试镜像订阅总线并落盘
func TestMirror_PersistsRoutedMessages(t *testing.T) {
	store := openTestStore(t)

	bus := presence.NewBus(1, 16)
	defer bus.Close()
	NewMirror(store, nil).Attach(bus)

	bus.Publish(presence.BusEvent{
		Topic: presence.TopicMessageRouted,
		Room:  "general",
		Data:  routed("msg-1", "general", "hello"),
		Time:  time.Now(),
	})

	// 非 RoutedMessage 载荷被忽略
	bus.Publish(presence.BusEvent{Topic: presence.TopicMessageRouted, Data: "garbage"})

	var records []MessageRecord
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		var err error
		records, err = store.ListMessages(context.Background(), "general", 10)
		require.NoError(t, err)
		if len(records) > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	require.Len(t, records, 1)
	assert.Equal(t, "msg-1", records[0].ID)
	assert.Equal(t, "hello", records[0].Body)
}
