package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kunduachyut/linkfro-chat-relay/internal/domain"
	"github.com/kunduachyut/linkfro-chat-relay/internal/service"
	"github.com/kunduachyut/linkfro-chat-relay/pkg/response"
)

// HTTPHandler serves the pull side of the relay: chat history and read
// acknowledgements.
type HTTPHandler struct {
	relay service.RelayService
}

// NewHTTPHandler creates the REST handler over the relay service.
func NewHTTPHandler(relay service.RelayService) *HTTPHandler {
	return &HTTPHandler{relay: relay}
}

// RegisterRoutes mounts the REST endpoints.
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.GET("/purchases/:purchase_id/messages", h.GetMessages)
		api.POST("/purchases/:purchase_id/read", h.MarkRead)
	}

	r.GET("/health", h.HealthCheck)
}

// GetMessages returns the full ordered history for a purchase. This is how a
// connecting or reconnecting client reconciles missed messages.
func (h *HTTPHandler) GetMessages(c *gin.Context) {
	purchaseID := c.Param("purchase_id")
	if purchaseID == "" {
		response.BadRequest(c, domain.ErrCodeMalformedMessage, "purchase_id is required")
		return
	}

	messages, err := h.relay.History(c.Request.Context(), purchaseID)
	if err != nil {
		response.InternalError(c, domain.ErrorCode(err), "failed to get chat history")
		return
	}

	response.Success(c, domain.ChatHistoryResponse{
		PurchaseID: purchaseID,
		Messages:   messages,
	})
}

type markReadRequest struct {
	ReaderRole string    `json:"reader_role" binding:"required"`
	UpTo       time.Time `json:"up_to" binding:"required"`
}

type markReadResponse struct {
	Updated int64 `json:"updated"`
}

// MarkRead acknowledges every peer message up to the given timestamp.
func (h *HTTPHandler) MarkRead(c *gin.Context) {
	purchaseID := c.Param("purchase_id")
	if purchaseID == "" {
		response.BadRequest(c, domain.ErrCodeMalformedMessage, "purchase_id is required")
		return
	}

	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, domain.ErrCodeMalformedMessage, "reader_role and up_to are required")
		return
	}

	role, ok := domain.ParseRole(req.ReaderRole)
	if !ok {
		response.BadRequest(c, domain.ErrCodeInvalidRole, "reader_role must be consumer, superadmin or contentmanager")
		return
	}

	updated, err := h.relay.MarkRead(c.Request.Context(), purchaseID, req.UpTo, role)
	if err != nil {
		if errors.Is(err, domain.ErrPersistence) {
			response.InternalError(c, domain.ErrCodePersistence, "failed to mark messages read")
			return
		}
		response.Error(c, http.StatusBadRequest, domain.ErrorCode(err), err.Error())
		return
	}

	response.Success(c, markReadResponse{Updated: updated})
}

// HealthCheck reports liveness.
func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
