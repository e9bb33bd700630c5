package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kunduachyut/linkfro-chat-relay/internal/domain"
	"github.com/kunduachyut/linkfro-chat-relay/pkg/database"
)

func newTestStore(t *testing.T) *GormMessageStore {
	t.Helper()

	db, err := database.New(&database.Config{
		Driver:   "sqlite",
		FilePath: filepath.Join(t.TempDir(), "relay.db"),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.AutoMigrate(db, &domain.ChatModel{}, &domain.MessageModel{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	s := NewGormMessageStore(db)
	t.Cleanup(func() { s.Close() })
	return s
}

func appendMsg(t *testing.T, s *GormMessageStore, purchaseID string, role domain.Role, content string, ts time.Time) *domain.Message {
	t.Helper()

	stored, err := s.Append(context.Background(), &domain.Message{
		PurchaseID: purchaseID,
		Sender:     "user-" + string(role),
		SenderRole: role,
		Content:    content,
		Timestamp:  ts,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	return stored
}

func TestAppendCreatesChatLazily(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stored := appendMsg(t, s, "P1", domain.RoleConsumer, "hello", time.Now().UTC())
	if stored.Seq != 1 {
		t.Fatalf("first message seq = %d, want 1", stored.Seq)
	}

	messages, err := s.ListMessages(ctx, "P1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}
	if messages[0].Content != "hello" || messages[0].Read {
		t.Fatalf("unexpected message: %+v", messages[0])
	}
}

func TestListMessagesNoChat(t *testing.T) {
	s := newTestStore(t)

	messages, err := s.ListMessages(context.Background(), "missing")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("got %d messages for unknown purchase, want 0", len(messages))
	}
}

func TestAppendAssignsSequentialOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i, content := range []string{"first", "second", "third"} {
		appendMsg(t, s, "P1", domain.RoleConsumer, content, base.Add(time.Duration(i)*time.Millisecond))
	}
	// An unrelated purchase gets its own sequence.
	other := appendMsg(t, s, "P2", domain.RoleSuperAdmin, "elsewhere", base)
	if other.Seq != 1 {
		t.Fatalf("other purchase seq = %d, want 1", other.Seq)
	}

	messages, err := s.ListMessages(ctx, "P1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(messages))
	}
	for i, msg := range messages {
		if msg.Seq != uint64(i+1) {
			t.Fatalf("message %d seq = %d, want %d", i, msg.Seq, i+1)
		}
	}
	if messages[0].Content != "first" || messages[2].Content != "third" {
		t.Fatalf("messages out of order: %+v", messages)
	}
}

func TestMarkReadExcludesReaderRole(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	appendMsg(t, s, "P1", domain.RoleConsumer, "from consumer", base)
	appendMsg(t, s, "P1", domain.RoleSuperAdmin, "from admin early", base.Add(1*time.Millisecond))
	appendMsg(t, s, "P1", domain.RoleContentManager, "from cm early", base.Add(2*time.Millisecond))
	appendMsg(t, s, "P1", domain.RoleSuperAdmin, "from admin late", base.Add(10*time.Millisecond))

	updated, err := s.MarkRead(ctx, "P1", base.Add(5*time.Millisecond), domain.RoleConsumer)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if updated != 2 {
		t.Fatalf("updated = %d, want 2", updated)
	}

	messages, err := s.ListMessages(ctx, "P1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	want := map[string]bool{
		"from consumer":    false, // reader's own messages untouched
		"from admin early": true,
		"from cm early":    true,
		"from admin late":  false, // after the cutoff
	}
	for _, msg := range messages {
		if msg.Read != want[msg.Content] {
			t.Errorf("%q read = %v, want %v", msg.Content, msg.Read, want[msg.Content])
		}
	}
}

func TestMarkReadIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	appendMsg(t, s, "P1", domain.RoleSuperAdmin, "hello", now)

	if updated, err := s.MarkRead(ctx, "P1", now, domain.RoleConsumer); err != nil || updated != 1 {
		t.Fatalf("first mark read = (%d, %v), want (1, nil)", updated, err)
	}
	if updated, err := s.MarkRead(ctx, "P1", now, domain.RoleConsumer); err != nil || updated != 0 {
		t.Fatalf("second mark read = (%d, %v), want (0, nil)", updated, err)
	}
}

func TestMarkReadScopedToPurchase(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	appendMsg(t, s, "P1", domain.RoleSuperAdmin, "p1 message", now)
	appendMsg(t, s, "P2", domain.RoleSuperAdmin, "p2 message", now)

	if _, err := s.MarkRead(ctx, "P1", now, domain.RoleConsumer); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	other, err := s.ListMessages(ctx, "P2")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if other[0].Read {
		t.Fatal("mark read leaked into another purchase")
	}
}
