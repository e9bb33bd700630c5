package domain

import "errors"

// Relay error taxonomy. Validation errors are reported to the offending
// connection only; a persistence error aborts the offending call and leaves
// the connection open. None of these are fatal to the hub.
var (
	ErrInvalidPurchase  = errors.New("purchase not found")
	ErrInvalidRole      = errors.New("role not permitted")
	ErrMalformedMessage = errors.New("malformed message")
	ErrRoleMismatch     = errors.New("role does not match connection")
	ErrPersistence      = errors.New("persistence failure")
)

// Error codes carried on error frames and HTTP error envelopes.
const (
	ErrCodeInvalidPurchase  = "INVALID_PURCHASE"
	ErrCodeInvalidRole      = "INVALID_ROLE"
	ErrCodeMalformedMessage = "MALFORMED_MESSAGE"
	ErrCodeRoleMismatch     = "ROLE_MISMATCH"
	ErrCodePersistence      = "PERSISTENCE_ERROR"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// ErrorCode maps a relay error to its wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidPurchase):
		return ErrCodeInvalidPurchase
	case errors.Is(err, ErrInvalidRole):
		return ErrCodeInvalidRole
	case errors.Is(err, ErrMalformedMessage):
		return ErrCodeMalformedMessage
	case errors.Is(err, ErrRoleMismatch):
		return ErrCodeRoleMismatch
	case errors.Is(err, ErrPersistence):
		return ErrCodePersistence
	default:
		return ErrCodeInternalError
	}
}
