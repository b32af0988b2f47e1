package presence

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

// messageIDCounter 消息 ID 计数器
var messageIDCounter atomic.Uint64

// generateID 生成进程内唯一 ID
func generateID(prefix string, counter *atomic.Uint64) string {
	// 时间戳 + 计数器 + 随机数
	timestamp := time.Now().UnixNano()
	count := counter.Add(1)

	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// 降级到纯计数器
		return fmt.Sprintf("%s_%d_%d", prefix, timestamp, count)
	}

	return fmt.Sprintf("%s_%d_%d_%s", prefix, timestamp, count, hex.EncodeToString(b))
}

// generateMessageID 生成消息 ID
func generateMessageID() string {
	return generateID("msg", &messageIDCounter)
}
