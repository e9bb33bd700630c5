package hub

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kunduachyut/linkfro-chat-relay/internal/config"
	"github.com/kunduachyut/linkfro-chat-relay/internal/domain"
	"github.com/kunduachyut/linkfro-chat-relay/pkg/log"
)

// Client is an ephemeral handle to one live transport session. Purchase, role
// and identity are bound at connect time and cannot change for the lifetime
// of the connection.
type Client struct {
	ID         string
	PurchaseID string
	Role       domain.Role
	Identity   string
	Hub        *Hub
	Conn       *websocket.Conn
	Send       chan []byte
	done       chan struct{}
	config     config.WebSocketConfig
}

// NewClient returns a client handle with a buffered send channel.
func NewClient(id, purchaseID string, role domain.Role, identity string, hub *Hub, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	buffer := cfg.SendBuffer
	if buffer <= 0 {
		buffer = 256
	}
	return &Client{
		ID:         id,
		PurchaseID: purchaseID,
		Role:       role,
		Identity:   identity,
		Hub:        hub,
		Conn:       conn,
		Send:       make(chan []byte, buffer),
		done:       make(chan struct{}),
		config:     cfg,
	}
}

// ReadPump reads inbound frames and hands them to the handler. A transport
// error deregisters this connection only.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				l := log.L()
				l.Warn().Err(err).Str(log.FieldConnID, c.ID).Msg("websocket read error")
			}
			break
		}

		handler(c, message)
	}
}

// WritePump drains the send channel onto the wire and keeps the connection
// alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// SendFrame marshals a frame onto this client's send channel. A full buffer
// drops the frame rather than blocking the caller. The channel is never
// closed, so writing to an already-deregistered handle is safe; the frame is
// simply never delivered.
func (c *Client) SendFrame(frame interface{}) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	select {
	case c.Send <- data:
	default:
	}
	return nil
}
