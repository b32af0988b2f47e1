package ws

import (
	"errors"
	"sync"
	"testing"
)

// TestPool_ReserveLimit 测试容量预留与回滚
func TestPool_ReserveLimit(t *testing.T) {
	p := newPool(2)

	if err := p.reserve(); err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	if err := p.reserve(); err != nil {
		t.Fatalf("second reserve: %v", err)
	}
	if err := p.reserve(); !errors.Is(err, ErrTooManyConnections) {
		t.Fatalf("third reserve: got %v, want ErrTooManyConnections", err)
	}
	if p.size() != 2 {
		t.Errorf("size after failed reserve: got %d, want 2", p.size())
	}

	p.release()
	if err := p.reserve(); err != nil {
		t.Errorf("reserve after release: %v", err)
	}
}

// TestPool_BindRemove 测试绑定与移除的名额核算
func TestPool_BindRemove(t *testing.T) {
	p := newPool(10)

	if err := p.reserve(); err != nil {
		t.Fatal(err)
	}
	p.bind("conn-1", &Client{})
	if p.size() != 1 {
		t.Errorf("size: got %d, want 1", p.size())
	}

	p.remove("conn-1")
	if p.size() != 0 {
		t.Errorf("size after remove: got %d, want 0", p.size())
	}

	// 对未绑定 ID 的移除不扣名额
	p.remove("conn-1")
	if p.size() != 0 {
		t.Errorf("size after double remove: got %d, want 0", p.size())
	}
}

// TestPool_ConcurrentReserve 测试并发预留不会超卖
func TestPool_ConcurrentReserve(t *testing.T) {
	const limit = 50
	p := newPool(limit)

	var wg sync.WaitGroup
	granted := make(chan struct{}, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if p.reserve() == nil {
				granted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(granted)

	if got := len(granted); got != limit {
		t.Errorf("granted: got %d, want %d", got, limit)
	}
	if p.size() != limit {
		t.Errorf("size: got %d, want %d", p.size(), limit)
	}
}
