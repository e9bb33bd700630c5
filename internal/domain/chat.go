package domain

import "time"

// Role identifies a chat participant class.
type Role string

const (
	RoleConsumer       Role = "consumer"
	RoleSuperAdmin     Role = "superadmin"
	RoleContentManager Role = "contentmanager"
)

// ParseRole validates a role string against the permitted participant classes.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleConsumer, RoleSuperAdmin, RoleContentManager:
		return Role(s), true
	}
	return "", false
}

// Message is a single persisted chat message. Timestamp and Seq are assigned
// at persistence time; the client-supplied values are never trusted.
type Message struct {
	PurchaseID string    `json:"purchase_id"`
	Seq        uint64    `json:"seq"`
	Sender     string    `json:"sender"`
	SenderRole Role      `json:"sender_role"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Read       bool      `json:"read"`
}

// Chat is the per-purchase conversation head. The message log itself is
// append-only and ordered by Seq.
type Chat struct {
	PurchaseID  string    `json:"purchase_id"`
	LastSeq     uint64    `json:"last_seq"`
	LastUpdated time.Time `json:"last_updated"`
}

// ChatHistoryResponse is the payload of the history read path.
type ChatHistoryResponse struct {
	PurchaseID string    `json:"purchase_id"`
	Messages   []Message `json:"messages"`
}
