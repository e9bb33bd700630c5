package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/kunduachyut/linkfro-chat-relay/internal/audit"
	"github.com/kunduachyut/linkfro-chat-relay/internal/cache"
	"github.com/kunduachyut/linkfro-chat-relay/internal/directory"
	"github.com/kunduachyut/linkfro-chat-relay/internal/domain"
	"github.com/kunduachyut/linkfro-chat-relay/internal/hub"
	"github.com/kunduachyut/linkfro-chat-relay/internal/store"
	"github.com/kunduachyut/linkfro-chat-relay/pkg/log"
)

// purchaseState serializes message admission for one purchase and tracks the
// last assigned timestamp so server-assigned timestamps stay strictly
// increasing even within clock resolution.
type purchaseState struct {
	mu     sync.Mutex
	lastTS time.Time
}

type relayService struct {
	hub       *hub.Hub
	store     store.MessageStore
	directory directory.Directory
	cache     cache.MessageCache
	cacheTTL  time.Duration
	sf        singleflight.Group

	mu        sync.Mutex
	admission map[string]*purchaseState
}

// NewRelayService wires the relay contract over the hub, message store,
// purchase directory and history cache. cache may be nil when caching is
// disabled (tests, single-box deployments without Redis).
func NewRelayService(
	h *hub.Hub,
	msgStore store.MessageStore,
	dir directory.Directory,
	msgCache cache.MessageCache,
	cacheTTL time.Duration,
) RelayService {
	return &relayService{
		hub:       h,
		store:     msgStore,
		directory: dir,
		cache:     msgCache,
		cacheTTL:  cacheTTL,
		admission: make(map[string]*purchaseState),
	}
}

func (s *relayService) purchaseLock(purchaseID string) *purchaseState {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.admission[purchaseID]
	if !ok {
		ps = &purchaseState{}
		s.admission[purchaseID] = ps
	}
	return ps
}

func (s *relayService) Connect(ctx context.Context, purchaseID, roleStr, sender string) (*hub.Client, error) {
	role, ok := domain.ParseRole(roleStr)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRole, roleStr)
	}

	resolution, err := s.directory.Resolve(ctx, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("resolve purchase: %w", err)
	}
	if !resolution.Exists {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPurchase, purchaseID)
	}
	if !resolution.Permits(role) {
		return nil, fmt.Errorf("%w: %q not permitted for purchase", domain.ErrInvalidRole, roleStr)
	}

	client := hub.NewClient(uuid.New().String(), purchaseID, role, sender, s.hub, nil, s.hub.WebSocketConfig())
	s.hub.Register(client)

	audit.Log(ctx, audit.ActionConnect, purchaseID, sender, "participant connected")
	return client, nil
}

func (s *relayService) Send(ctx context.Context, client *hub.Client, raw []byte) (*domain.Message, error) {
	var frame domain.MessageFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)
	}

	content := strings.TrimSpace(frame.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty content", domain.ErrMalformedMessage)
	}

	role, ok := domain.ParseRole(frame.Role)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRole, frame.Role)
	}
	if role != client.Role {
		return nil, fmt.Errorf("%w: asserted %q, connected as %q", domain.ErrRoleMismatch, role, client.Role)
	}

	// Single sequential admission point per purchase: assign the timestamp,
	// persist, then enqueue the broadcast, all under the purchase lock, so
	// broadcast order always equals append order.
	ps := s.purchaseLock(client.PurchaseID)
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ts := time.Now().UTC()
	if !ts.After(ps.lastTS) {
		ts = ps.lastTS.Add(time.Microsecond)
	}
	ps.lastTS = ts

	msg := &domain.Message{
		PurchaseID: client.PurchaseID,
		Sender:     client.Identity,
		SenderRole: client.Role,
		Content:    content,
		Timestamp:  ts,
		Read:       false,
	}

	stored, err := s.store.Append(ctx, msg)
	if err != nil {
		// Aborts this message only; the connection stays usable.
		return nil, err
	}

	s.invalidateHistory(client.PurchaseID)

	if err := s.hub.BroadcastToPurchase(client.PurchaseID, domain.MessageOut(stored), client.ID); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldPurchaseID, client.PurchaseID).Msg("broadcast enqueue failed")
	}

	audit.Log(ctx, audit.ActionSend, client.PurchaseID, client.Identity, "message relayed")
	return stored, nil
}

func (s *relayService) Disconnect(ctx context.Context, client *hub.Client) {
	s.hub.Unregister(client)
	audit.Log(ctx, audit.ActionDisconnect, client.PurchaseID, client.Identity, "participant disconnected")
}

func (s *relayService) MarkRead(ctx context.Context, purchaseID string, upTo time.Time, readerRole domain.Role) (int64, error) {
	if _, ok := domain.ParseRole(string(readerRole)); !ok {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidRole, readerRole)
	}

	updated, err := s.store.MarkRead(ctx, purchaseID, upTo, readerRole)
	if err != nil {
		return 0, err
	}

	if updated > 0 {
		s.invalidateHistory(purchaseID)
		receipt := &domain.ReadReceiptFrame{
			Type:       domain.FrameTypeReadReceipt,
			PurchaseID: purchaseID,
			ReaderRole: readerRole,
			UpTo:       upTo,
		}
		if err := s.hub.BroadcastToPurchase(purchaseID, receipt, ""); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldPurchaseID, purchaseID).Msg("read receipt enqueue failed")
		}
	}

	audit.LogWithDetail(ctx, audit.ActionMarkRead, purchaseID, "", string(readerRole), "messages acknowledged")
	return updated, nil
}

func (s *relayService) History(ctx context.Context, purchaseID string) ([]domain.Message, error) {
	if s.cache == nil {
		return s.store.ListMessages(ctx, purchaseID)
	}

	// Coalesce concurrent history reads for the same purchase.
	result, err, _ := s.sf.Do(purchaseID, func() (interface{}, error) {
		cached, err := s.cache.Get(ctx, purchaseID)
		if err == nil {
			return cached, nil
		}
		if err != cache.ErrCacheMiss {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldPurchaseID, purchaseID).Msg("history cache get error")
		}

		messages, err := s.store.ListMessages(ctx, purchaseID)
		if err != nil {
			return nil, err
		}

		// Cache write happens off the request path.
		go func() {
			cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := s.cache.Set(cacheCtx, purchaseID, messages, s.cacheTTL); err != nil {
				l := log.L()
				l.Warn().Err(err).Str(log.FieldPurchaseID, purchaseID).Msg("history cache set error")
			}
		}()

		return messages, nil
	})
	if err != nil {
		return nil, err
	}

	messages, ok := result.([]domain.Message)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	return messages, nil
}

func (s *relayService) invalidateHistory(purchaseID string) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.cache.Invalidate(ctx, purchaseID); err != nil {
		l := log.L()
		l.Warn().Err(err).Str(log.FieldPurchaseID, purchaseID).Msg("history cache invalidate error")
	}
}
