package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/kunduachyut/linkfro-chat-relay/internal/domain"
	"github.com/kunduachyut/linkfro-chat-relay/internal/hub"
	"github.com/kunduachyut/linkfro-chat-relay/internal/service"
	"github.com/kunduachyut/linkfro-chat-relay/pkg/log"
	"github.com/kunduachyut/linkfro-chat-relay/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler serves the relay websocket endpoint. Identity and role arrive as
// query parameters asserted by the already-authenticated upstream caller.
type WSHandler struct {
	relay service.RelayService
}

// NewWSHandler creates a websocket handler over the relay service.
func NewWSHandler(relay service.RelayService) *WSHandler {
	return &WSHandler{relay: relay}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.HandleWebSocket)
}

// HandleWebSocket validates the connect parameters, registers the connection
// and starts the read/write pumps. Validation failures are rejected before
// anything is registered.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	ctx := c.Request.Context()
	purchaseID := c.Query("purchase_id")
	role := c.Query("role")
	sender := c.Query("sender")

	if purchaseID == "" || role == "" || sender == "" {
		response.BadRequest(c, domain.ErrCodeMalformedMessage, "purchase_id, role and sender are required")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client, err := h.relay.Connect(ctx, purchaseID, role, sender)
	if err != nil {
		h.rejectConn(conn, err)
		return
	}
	client.Conn = conn

	client.SendFrame(&domain.ConnectedFrame{
		Type:       domain.FrameTypeConnected,
		PurchaseID: client.PurchaseID,
		Role:       client.Role,
		ConnID:     client.ID,
	})

	go client.WritePump()
	go client.ReadPump(h.handleFrame)
}

// rejectConn reports a connect failure to the offending peer and closes the
// transport; nothing was registered.
func (h *WSHandler) rejectConn(conn *websocket.Conn, err error) {
	frame := domain.NewErrorFrame(domain.ErrorCode(err), err.Error())
	if data, merr := json.Marshal(frame); merr == nil {
		conn.WriteMessage(websocket.TextMessage, data)
	}
	conn.Close()
}

// handleFrame dispatches one inbound frame. Errors are reported to the
// sending connection only and never affect other participants.
func (h *WSHandler) handleFrame(client *hub.Client, raw []byte) {
	ctx := log.WithLogger(context.Background(), log.L().With().
		Str(log.FieldConnID, client.ID).
		Str(log.FieldPurchaseID, client.PurchaseID).
		Logger())

	var base domain.BaseFrame
	if err := json.Unmarshal(raw, &base); err != nil {
		client.SendFrame(domain.NewErrorFrame(domain.ErrCodeMalformedMessage, "invalid frame"))
		return
	}

	switch base.Type {
	case domain.FrameTypeMessage:
		stored, err := h.relay.Send(ctx, client, raw)
		if err != nil {
			client.SendFrame(domain.NewErrorFrame(domain.ErrorCode(err), err.Error()))
			return
		}
		client.SendFrame(&domain.MessageSentFrame{
			Type:      domain.FrameTypeMessageSent,
			Seq:       stored.Seq,
			Timestamp: stored.Timestamp,
		})

	case domain.FrameTypeMarkRead:
		var frame domain.MarkReadFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			client.SendFrame(domain.NewErrorFrame(domain.ErrCodeMalformedMessage, "invalid mark_read frame"))
			return
		}
		if _, err := h.relay.MarkRead(ctx, client.PurchaseID, frame.UpTo, client.Role); err != nil {
			client.SendFrame(domain.NewErrorFrame(domain.ErrorCode(err), err.Error()))
		}

	case domain.FrameTypePing:
		client.SendFrame(&domain.BaseFrame{Type: domain.FrameTypePong})

	default:
		client.SendFrame(domain.NewErrorFrame(domain.ErrCodeMalformedMessage, "unknown frame type"))
	}
}
