package store

import (
	"context"
	"time"

	"github.com/kunduachyut/linkfro-chat-relay/internal/domain"
)

// MessageStore is the durable, ordered, append-only message log keyed by
// purchase. It is the single source of truth for chat history; the in-memory
// connection registry is never authoritative.
type MessageStore interface {
	// Append creates the chat for the purchase if none exists, assigns the
	// next sequence number, appends the message, and bumps the chat's
	// last_updated. There is no partial success.
	Append(ctx context.Context, msg *domain.Message) (*domain.Message, error)

	// ListMessages returns the full history in append order. An empty slice
	// means no chat exists yet; that is not an error.
	ListMessages(ctx context.Context, purchaseID string) ([]domain.Message, error)

	// MarkRead flags every message with a sender role other than
	// excludingRole and a timestamp at or before upTo as read. Returns the
	// number of messages updated.
	MarkRead(ctx context.Context, purchaseID string, upTo time.Time, excludingRole domain.Role) (int64, error)

	Close() error
}
