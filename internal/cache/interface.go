package cache

import (
	"context"
	"errors"
	"time"

	"github.com/kunduachyut/linkfro-chat-relay/internal/domain"
)

// ErrCacheMiss is returned when a history entry is not cached.
var ErrCacheMiss = errors.New("cache miss")

// MessageCache is a read-through cache for per-purchase chat history. Entries
// are invalidated whenever the underlying log changes (append or mark-read),
// so a cached history never serves stale read flags past the TTL window.
type MessageCache interface {
	Get(ctx context.Context, purchaseID string) ([]domain.Message, error)
	Set(ctx context.Context, purchaseID string, messages []domain.Message, ttl time.Duration) error
	Invalidate(ctx context.Context, purchaseID string) error
	Close() error
}
