package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kunduachyut/linkfro-chat-relay/internal/domain"
	"github.com/kunduachyut/linkfro-chat-relay/pkg/log"
)

// GormMessageStore implements MessageStore using GORM.
type GormMessageStore struct {
	db *gorm.DB
}

// NewGormMessageStore creates a new GORM-based message store.
func NewGormMessageStore(db *gorm.DB) *GormMessageStore {
	return &GormMessageStore{db: db}
}

// Append persists a message inside one transaction: the chat row is created
// lazily on first message, the per-purchase sequence is bumped, and the
// message is inserted with the assigned sequence. Any failure rolls the whole
// append back and is reported as a persistence error.
func (s *GormMessageStore) Append(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	l := log.Ctx(ctx)

	stored := *msg
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chat domain.ChatModel
		res := tx.Where("purchase_id = ?", msg.PurchaseID).First(&chat)
		if res.Error != nil {
			if !errors.Is(res.Error, gorm.ErrRecordNotFound) {
				return res.Error
			}
			chat = domain.ChatModel{PurchaseID: msg.PurchaseID}
		}

		chat.LastSeq++
		chat.LastUpdated = msg.Timestamp
		if err := tx.Save(&chat).Error; err != nil {
			return err
		}

		stored.Seq = chat.LastSeq
		model := domain.MessageToModel(&stored)
		return tx.Create(model).Error
	})
	if err != nil {
		l.Error().Err(err).Str(log.FieldPurchaseID, msg.PurchaseID).Msg("failed to append message")
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	l.Debug().
		Str(log.FieldPurchaseID, stored.PurchaseID).
		Uint64("seq", stored.Seq).
		Msg("message appended")
	return &stored, nil
}

// ListMessages returns the full history for a purchase in append order.
func (s *GormMessageStore) ListMessages(ctx context.Context, purchaseID string) ([]domain.Message, error) {
	l := log.Ctx(ctx)

	var models []domain.MessageModel
	res := s.db.WithContext(ctx).
		Where("purchase_id = ?", purchaseID).
		Order("seq ASC").
		Find(&models)
	if res.Error != nil {
		l.Error().Err(res.Error).Str(log.FieldPurchaseID, purchaseID).Msg("failed to list messages")
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, res.Error)
	}

	messages := make([]domain.Message, len(models))
	for i, model := range models {
		messages[i] = *model.ToDomain()
	}
	return messages, nil
}

// MarkRead flips the read flag on every peer message at or before upTo.
// Messages sent by excludingRole itself are untouched.
func (s *GormMessageStore) MarkRead(ctx context.Context, purchaseID string, upTo time.Time, excludingRole domain.Role) (int64, error) {
	l := log.Ctx(ctx)

	res := s.db.WithContext(ctx).Model(&domain.MessageModel{}).
		Where("purchase_id = ? AND sender_role <> ? AND timestamp <= ? AND is_read = ?",
			purchaseID, string(excludingRole), upTo, false).
		Update("is_read", true)
	if res.Error != nil {
		l.Error().Err(res.Error).Str(log.FieldPurchaseID, purchaseID).Msg("failed to mark messages read")
		return 0, fmt.Errorf("%w: %v", domain.ErrPersistence, res.Error)
	}

	l.Debug().
		Str(log.FieldPurchaseID, purchaseID).
		Str(log.FieldRole, string(excludingRole)).
		Int64("updated", res.RowsAffected).
		Msg("messages marked read")
	return res.RowsAffected, nil
}

// Close closes the underlying database connection.
func (s *GormMessageStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
