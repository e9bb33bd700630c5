package audit

import (
	"context"

	"github.com/kunduachyut/linkfro-chat-relay/pkg/log"
)

// Audit actions for the purchase chat relay.
const (
	ActionConnect    = "relay.connect"
	ActionDisconnect = "relay.disconnect"
	ActionSend       = "relay.send_message"
	ActionMarkRead   = "relay.mark_read"
	ActionHistory    = "relay.history"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action, purchaseID, sender, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldPurchaseID, purchaseID).
		Str(log.FieldSender, sender).
		Msg(msg)
}

// LogWithDetail emits an audit log with an extra detail field.
func LogWithDetail(ctx context.Context, action, purchaseID, sender, detail, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldPurchaseID, purchaseID).
		Str(log.FieldSender, sender).
		Str(FieldDetail, detail).
		Msg(msg)
}
