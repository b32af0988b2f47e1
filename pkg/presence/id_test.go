package presence

import (
	"strings"
	"testing"
)

// TestGenerateMessageID 测试消息 ID 的前缀与进程内唯一性
func TestGenerateMessageID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 10000; i++ {
		id := generateMessageID()
		if !strings.HasPrefix(id, "msg") {
			t.Fatalf("missing prefix: %q", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id after %d generations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}
