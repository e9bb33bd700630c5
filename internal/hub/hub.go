package hub

import (
	"encoding/json"
	"sync"

	"github.com/kunduachyut/linkfro-chat-relay/internal/config"
	"github.com/kunduachyut/linkfro-chat-relay/pkg/log"
)

// Hub mediates all real-time traffic for the active purchase chats of one
// process. A connection is bound to exactly one purchase for its lifetime, so
// registration joins the purchase set directly and fan-out never crosses
// purchase boundaries.
type Hub struct {
	clients   map[string]*Client            // connID -> client
	purchases map[string]map[string]*Client // purchaseID -> connID -> client
	broadcast chan *purchaseBroadcast
	mu        sync.RWMutex
	config    config.WebSocketConfig
}

type purchaseBroadcast struct {
	purchaseID string
	payload    []byte
	exclude    string // conn ID to exclude
}

// NewHub creates a hub. Run must be started for broadcasts to flow.
func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients:   make(map[string]*Client),
		purchases: make(map[string]map[string]*Client),
		broadcast: make(chan *purchaseBroadcast, 256),
		config:    cfg,
	}
}

// Run drains the broadcast queue in FIFO order, which preserves per-purchase
// delivery order as long as producers enqueue in admission order.
func (h *Hub) Run() {
	for msg := range h.broadcast {
		h.mu.RLock()
		peers := h.purchases[msg.purchaseID]
		for connID, client := range peers {
			if connID == msg.exclude {
				continue
			}
			select {
			case client.Send <- msg.payload:
			default:
				// Peer cannot keep up; drop it rather than stall the hub.
				go h.Unregister(client)
			}
		}
		h.mu.RUnlock()
	}
}

// Register adds a client to the registry under its purchase.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	peers, ok := h.purchases[client.PurchaseID]
	if !ok {
		peers = make(map[string]*Client)
		h.purchases[client.PurchaseID] = peers
	}
	peers[client.ID] = client

	l := log.L()
	l.Debug().
		Str(log.FieldConnID, client.ID).
		Str(log.FieldPurchaseID, client.PurchaseID).
		Str(log.FieldRole, string(client.Role)).
		Msg("client registered")
}

// Unregister removes a client and signals its write pump to shut down. The
// send channel itself stays open so concurrent writers (the read goroutine
// answering a frame, an in-flight broadcast) can never hit a closed channel.
// Disconnecting a client that was never registered, or twice, is a no-op.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)

	if peers, ok := h.purchases[client.PurchaseID]; ok {
		delete(peers, client.ID)
		if len(peers) == 0 {
			delete(h.purchases, client.PurchaseID)
		}
	}
	close(client.done)

	l := log.L()
	l.Debug().
		Str(log.FieldConnID, client.ID).
		Str(log.FieldPurchaseID, client.PurchaseID).
		Msg("client unregistered")
}

// BroadcastToPurchase fans a frame out to every other registered connection
// of the purchase. Delivery to disconnected peers is not retried; they catch
// up through the history endpoint.
func (h *Hub) BroadcastToPurchase(purchaseID string, frame interface{}, excludeConnID string) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	h.broadcast <- &purchaseBroadcast{
		purchaseID: purchaseID,
		payload:    data,
		exclude:    excludeConnID,
	}
	return nil
}

// WebSocketConfig exposes the transport settings clients are built with.
func (h *Hub) WebSocketConfig() config.WebSocketConfig {
	return h.config
}

// PurchaseClientCount returns the number of live connections for a purchase.
func (h *Hub) PurchaseClientCount(purchaseID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.purchases[purchaseID])
}

// IsRegistered reports whether a connection is currently in the registry.
func (h *Hub) IsRegistered(connID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[connID]
	return ok
}
