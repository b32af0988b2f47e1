package presence

import (
	"strings"
	"testing"
)

type nopPeer struct{}

func (nopPeer) Deliver(data []byte) error     { return nil }
func (nopPeer) DeliverHigh(data []byte) error { return nil }

// TestRegister_Defaults 测试注册后的初始身份
func TestRegister_Defaults(t *testing.T) {
	r := NewRegistry()

	identity := r.Register(nopPeer{})
	if identity.ConnectionID == "" {
		t.Fatal("ConnectionID is empty")
	}
	if identity.UserUUID != identity.ConnectionID {
		t.Errorf("UserUUID defaults to ConnectionID: got %q, want %q", identity.UserUUID, identity.ConnectionID)
	}
	if !strings.HasPrefix(identity.DisplayName, "user-") {
		t.Errorf("DisplayName has placeholder prefix: got %q", identity.DisplayName)
	}
	if r.Count() != 1 {
		t.Errorf("Count: got %d, want 1", r.Count())
	}

	other := r.Register(nopPeer{})
	if other.ConnectionID == identity.ConnectionID {
		t.Error("connection IDs must be unique")
	}
}

// TestSetIdentity_Partial 测试部分更新：空字段保持原值，可重复调用
func TestSetIdentity_Partial(t *testing.T) {
	r := NewRegistry()
	identity := r.Register(nopPeer{})

	updated, err := r.SetIdentity(identity.ConnectionID, "user-42", "")
	if err != nil {
		t.Fatalf("SetIdentity: %v", err)
	}
	if updated.UserUUID != "user-42" {
		t.Errorf("UserUUID: got %q, want %q", updated.UserUUID, "user-42")
	}
	if updated.DisplayName != identity.DisplayName {
		t.Errorf("DisplayName changed by empty field: got %q, want %q", updated.DisplayName, identity.DisplayName)
	}

	updated, err = r.SetIdentity(identity.ConnectionID, "", "Alice")
	if err != nil {
		t.Fatalf("SetIdentity: %v", err)
	}
	if updated.UserUUID != "user-42" {
		t.Errorf("UserUUID changed by empty field: got %q, want %q", updated.UserUUID, "user-42")
	}
	if updated.DisplayName != "Alice" {
		t.Errorf("DisplayName: got %q, want %q", updated.DisplayName, "Alice")
	}

	// 重复调用同样的值不是错误
	if _, err := r.SetIdentity(identity.ConnectionID, "user-42", "Alice"); err != nil {
		t.Errorf("repeated SetIdentity: %v", err)
	}
}

// TestSetIdentity_UnknownConnection 测试未知连接返回 ErrUnknownConnection
func TestSetIdentity_UnknownConnection(t *testing.T) {
	r := NewRegistry()
	if _, err := r.SetIdentity("missing", "u", "n"); err != ErrUnknownConnection {
		t.Errorf("got %v, want ErrUnknownConnection", err)
	}
}

// TestLookupByUser_MostRecentWins 测试 user_uuid 冲突时最近注册者胜出
func TestLookupByUser_MostRecentWins(t *testing.T) {
	r := NewRegistry()
	first := r.Register(nopPeer{})
	second := r.Register(nopPeer{})

	if _, err := r.SetIdentity(first.ConnectionID, "shared", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := r.SetIdentity(second.ConnectionID, "shared", ""); err != nil {
		t.Fatal(err)
	}

	connID, ok := r.LookupByUser("shared")
	if !ok {
		t.Fatal("user not found")
	}
	if connID != second.ConnectionID {
		t.Errorf("got %q, want most recently registered %q", connID, second.ConnectionID)
	}

	// 最近的连接注销后回退到更早的注册
	r.Unregister(second.ConnectionID)
	connID, ok = r.LookupByUser("shared")
	if !ok {
		t.Fatal("user not found after unregister")
	}
	if connID != first.ConnectionID {
		t.Errorf("got %q, want %q", connID, first.ConnectionID)
	}

	r.Unregister(first.ConnectionID)
	if _, ok := r.LookupByUser("shared"); ok {
		t.Error("user still resolvable after all connections unregistered")
	}
}

// TestUnregister_Idempotent 测试重复注销
func TestUnregister_Idempotent(t *testing.T) {
	r := NewRegistry()
	identity := r.Register(nopPeer{})

	if !r.Unregister(identity.ConnectionID) {
		t.Error("first Unregister: got false, want true")
	}
	if r.Unregister(identity.ConnectionID) {
		t.Error("second Unregister: got true, want false")
	}
	if r.Count() != 0 {
		t.Errorf("Count: got %d, want 0", r.Count())
	}
	if _, ok := r.LookupByID(identity.ConnectionID); ok {
		t.Error("LookupByID still resolves unregistered connection")
	}
}
