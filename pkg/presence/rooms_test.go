package presence

import (
	"sort"
	"testing"
)

// TestDirectory_JoinLeave 测试成员关系的双向一致性
func TestDirectory_JoinLeave(t *testing.T) {
	d := NewDirectory(PolicyMultiRoom)

	left, already := d.Join("c1", "general")
	if len(left) != 0 || already {
		t.Fatalf("first join: left=%v already=%v", left, already)
	}
	d.Join("c1", "random")
	d.Join("c2", "general")

	if !d.Contains("general", "c1") || !d.Contains("general", "c2") {
		t.Error("general members incomplete")
	}
	rooms := d.RoomsOf("c1")
	sort.Strings(rooms)
	if len(rooms) != 2 || rooms[0] != "general" || rooms[1] != "random" {
		t.Errorf("RoomsOf(c1): got %v", rooms)
	}

	if !d.Leave("c1", "general") {
		t.Error("Leave: got false, want true")
	}
	if d.Contains("general", "c1") {
		t.Error("c1 still member of general after leave")
	}
	if rooms := d.RoomsOf("c1"); len(rooms) != 1 || rooms[0] != "random" {
		t.Errorf("RoomsOf(c1) after leave: got %v", rooms)
	}

	// 非成员离开是静默无操作
	if d.Leave("c1", "general") {
		t.Error("leave of non-member: got true, want false")
	}
	if d.Leave("c9", "nowhere") {
		t.Error("leave of unknown room: got true, want false")
	}
}

// TestDirectory_Rejoin 测试重复加入：成员关系不变，already 置位
func TestDirectory_Rejoin(t *testing.T) {
	d := NewDirectory(PolicyMultiRoom)
	d.Join("c1", "general")

	_, already := d.Join("c1", "general")
	if !already {
		t.Error("rejoin: already=false, want true")
	}
	if got := len(d.MembersOf("general")); got != 1 {
		t.Errorf("members after rejoin: got %d, want 1", got)
	}
}

// TestDirectory_EmptyRoomDeleted 测试最后一个成员离开后房间即刻删除
func TestDirectory_EmptyRoomDeleted(t *testing.T) {
	d := NewDirectory(PolicyMultiRoom)
	d.Join("c1", "general")
	d.Join("c2", "general")

	d.Leave("c1", "general")
	if d.RoomCount() != 1 {
		t.Fatalf("RoomCount: got %d, want 1", d.RoomCount())
	}
	d.Leave("c2", "general")
	if d.RoomCount() != 0 {
		t.Errorf("RoomCount after last leave: got %d, want 0", d.RoomCount())
	}
	if got := d.MembersOf("general"); len(got) != 0 {
		t.Errorf("MembersOf deleted room: got %v, want empty", got)
	}
}

// TestDirectory_Purge 测试断开清理：返回曾加入的全部房间
func TestDirectory_Purge(t *testing.T) {
	d := NewDirectory(PolicyMultiRoom)
	d.Join("c1", "general")
	d.Join("c1", "random")
	d.Join("c2", "general")

	purged := d.Purge("c1")
	sort.Strings(purged)
	if len(purged) != 2 || purged[0] != "general" || purged[1] != "random" {
		t.Errorf("Purge: got %v", purged)
	}
	if len(d.RoomsOf("c1")) != 0 {
		t.Error("c1 still joined after purge")
	}
	if !d.Contains("general", "c2") {
		t.Error("purge removed unrelated member")
	}
	if d.RoomCount() != 1 {
		t.Errorf("RoomCount: got %d, want 1 (random deleted, general kept)", d.RoomCount())
	}

	if got := d.Purge("c1"); len(got) != 0 {
		t.Errorf("second purge: got %v, want empty", got)
	}
}

// TestDirectory_SingleRoomPolicy 测试单房间策略：加入新房间自动退出旧房间
func TestDirectory_SingleRoomPolicy(t *testing.T) {
	d := NewDirectory(PolicySingleRoom)
	if d.Policy() != PolicySingleRoom {
		t.Fatal("policy not fixed at construction")
	}

	d.Join("c1", "general")
	left, _ := d.Join("c1", "random")
	if len(left) != 1 || left[0] != "general" {
		t.Errorf("auto-left rooms: got %v, want [general]", left)
	}
	if d.Contains("general", "c1") {
		t.Error("c1 still member of general under single-room policy")
	}
	if rooms := d.RoomsOf("c1"); len(rooms) != 1 || rooms[0] != "random" {
		t.Errorf("RoomsOf: got %v, want [random]", rooms)
	}

	// 重复加入当前房间不触发自动退出
	left, already := d.Join("c1", "random")
	if len(left) != 0 || !already {
		t.Errorf("rejoin current room: left=%v already=%v", left, already)
	}
}
