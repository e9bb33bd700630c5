package directory

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/kunduachyut/linkfro-chat-relay/internal/domain"
	"github.com/kunduachyut/linkfro-chat-relay/pkg/log"
)

// purchaseRow maps the main application's purchases table. The table is
// migrated and written by the main application; the relay only reads it.
type purchaseRow struct {
	ID string `gorm:"column:id"`
}

func (purchaseRow) TableName() string {
	return "purchases"
}

// GormDirectory resolves purchases against the shared application database.
type GormDirectory struct {
	db *gorm.DB
}

// NewGormDirectory creates a directory backed by the application database.
func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

// Resolve looks up a purchase by id. An existing purchase admits all three
// participant roles; role-to-identity binding is asserted upstream by the
// authenticated caller.
func (d *GormDirectory) Resolve(ctx context.Context, purchaseID string) (Resolution, error) {
	var row purchaseRow
	res := d.db.WithContext(ctx).Select("id").Where("id = ?", purchaseID).First(&row)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return Resolution{Exists: false}, nil
		}
		l := log.Ctx(ctx)
		l.Error().Err(res.Error).Str(log.FieldPurchaseID, purchaseID).Msg("purchase lookup failed")
		return Resolution{}, res.Error
	}

	return Resolution{
		Exists: true,
		PermittedRoles: []domain.Role{
			domain.RoleConsumer,
			domain.RoleSuperAdmin,
			domain.RoleContentManager,
		},
	}, nil
}
