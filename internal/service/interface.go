package service

import (
	"context"
	"time"

	"github.com/kunduachyut/linkfro-chat-relay/internal/domain"
	"github.com/kunduachyut/linkfro-chat-relay/internal/hub"
)

// RelayService is the public contract of the purchase chat relay.
type RelayService interface {
	// Connect validates the purchase and role, registers a connection handle
	// bound to them, and returns it. History is not replayed; clients fetch
	// it through History.
	Connect(ctx context.Context, purchaseID, role, sender string) (*hub.Client, error)

	// Send admits one raw payload from a connection: parse, validate against
	// the connection's bound role, timestamp, persist, then broadcast to the
	// other connections of the same purchase. Returns the persisted message.
	Send(ctx context.Context, client *hub.Client, raw []byte) (*domain.Message, error)

	// Disconnect deregisters a connection. Idempotent, never an error.
	Disconnect(ctx context.Context, client *hub.Client)

	// MarkRead acknowledges every peer message up to upTo for readerRole and
	// returns the number of messages updated.
	MarkRead(ctx context.Context, purchaseID string, upTo time.Time, readerRole domain.Role) (int64, error)

	// History returns the full ordered message log for a purchase.
	History(ctx context.Context, purchaseID string) ([]domain.Message, error)
}
