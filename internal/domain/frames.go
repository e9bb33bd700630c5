package domain

import "time"

// WebSocket frame types from client.
const (
	FrameTypeMessage  = "message"
	FrameTypeMarkRead = "mark_read"
	FrameTypePing     = "ping"
)

// WebSocket frame types to client.
const (
	FrameTypeConnected   = "connected"
	FrameTypeMessageSent = "message_sent"
	FrameTypeReadReceipt = "read_receipt"
	FrameTypeError       = "error"
	FrameTypePong        = "pong"
)

// BaseFrame is the base structure for all WebSocket frames.
type BaseFrame struct {
	Type string `json:"type"`
}

// Client -> Hub frames

// MessageFrame carries an outbound chat message. The role must match the one
// bound at connect time; a per-frame role claim is never trusted on its own.
type MessageFrame struct {
	Type    string `json:"type"`
	Role    string `json:"role"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// MarkReadFrame acknowledges every peer message up to and including UpTo.
type MarkReadFrame struct {
	Type string    `json:"type"`
	UpTo time.Time `json:"up_to"`
}

// Hub -> Client frames

// ConnectedFrame confirms a registered connection. History is not replayed;
// clients fetch it through the history endpoint.
type ConnectedFrame struct {
	Type       string `json:"type"`
	PurchaseID string `json:"purchase_id"`
	Role       Role   `json:"role"`
	ConnID     string `json:"conn_id"`
}

// MessageOutFrame mirrors a persisted message.
type MessageOutFrame struct {
	Type       string    `json:"type"`
	Sender     string    `json:"sender"`
	SenderRole Role      `json:"sender_role"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Read       bool      `json:"read"`
}

// MessageSentFrame acknowledges a durably persisted message to its sender.
type MessageSentFrame struct {
	Type      string    `json:"type"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadReceiptFrame notifies live peers that a participant acknowledged
// messages up to UpTo.
type ReadReceiptFrame struct {
	Type       string    `json:"type"`
	PurchaseID string    `json:"purchase_id"`
	ReaderRole Role      `json:"reader_role"`
	UpTo       time.Time `json:"up_to"`
}

// ErrorFrame reports a failure to the offending connection only.
type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorFrame builds an error frame.
func NewErrorFrame(code, message string) *ErrorFrame {
	return &ErrorFrame{
		Type:    FrameTypeError,
		Code:    code,
		Message: message,
	}
}

// MessageOut converts a persisted message to its outbound frame.
func MessageOut(msg *Message) *MessageOutFrame {
	return &MessageOutFrame{
		Type:       FrameTypeMessage,
		Sender:     msg.Sender,
		SenderRole: msg.SenderRole,
		Content:    msg.Content,
		Timestamp:  msg.Timestamp,
		Read:       msg.Read,
	}
}
