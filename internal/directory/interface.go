package directory

import (
	"context"

	"github.com/kunduachyut/linkfro-chat-relay/internal/domain"
)

// Resolution is the directory's answer for a purchase lookup.
type Resolution struct {
	Exists         bool
	PermittedRoles []domain.Role
}

// Permits reports whether the purchase admits the given role.
func (r Resolution) Permits(role domain.Role) bool {
	for _, permitted := range r.PermittedRoles {
		if permitted == role {
			return true
		}
	}
	return false
}

// Directory resolves purchase identifiers to their participant roles. The
// purchase lifecycle itself is owned by the main application; the relay only
// consumes lookups.
type Directory interface {
	Resolve(ctx context.Context, purchaseID string) (Resolution, error)
}
