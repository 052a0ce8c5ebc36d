package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

type CartRepo interface {
	Create(ctx context.Context, tx *gorm.DB, cart *types.Cart) (*types.Cart, error)
	GetByToken(ctx context.Context, tx *gorm.DB, token uuid.UUID) (*types.Cart, error)
	GetByTokenForUpdate(ctx context.Context, tx *gorm.DB, token uuid.UUID) (*types.Cart, error)
	GetByID(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) (*types.Cart, error)
	Update(ctx context.Context, tx *gorm.DB, cartID uuid.UUID, fields map[string]any) error
	ReplaceItems(ctx context.Context, tx *gorm.DB, cartID uuid.UUID, items []*types.CartItem) error
	ReplaceAttendees(ctx context.Context, tx *gorm.DB, cartID uuid.UUID, attendees []*types.CartAttendee) error
	ListExpired(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*types.Cart, error)
	CountByStatus(ctx context.Context, tx *gorm.DB) (map[string]int64, error)
}

type cartRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCartRepo(db *gorm.DB, baseLog *logger.Logger) CartRepo {
	repoLog := baseLog.With("repo", "CartRepo")
	return &cartRepo{db: db, log: repoLog}
}

func (cr *cartRepo) Create(ctx context.Context, tx *gorm.DB, cart *types.Cart) (*types.Cart, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if err := transaction.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

func (cr *cartRepo) GetByToken(ctx context.Context, tx *gorm.DB, token uuid.UUID) (*types.Cart, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var result types.Cart
	if err := transaction.WithContext(ctx).
		Preload("Items").
		Preload("Attendees", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_attendee.idx ASC")
		}).
		Where("token = ?", token).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

// GetByTokenForUpdate locks the cart row for the duration of a
// mutation transaction. Items/attendees are loaded separately after
// the lock is held.
func (cr *cartRepo) GetByTokenForUpdate(ctx context.Context, tx *gorm.DB, token uuid.UUID) (*types.Cart, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var result types.Cart
	if err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token = ?", token).
		First(&result).Error; err != nil {
		return nil, err
	}

	if err := transaction.WithContext(ctx).
		Where("cart_id = ?", result.ID).
		Find(&result.Items).Error; err != nil {
		return nil, err
	}
	if err := transaction.WithContext(ctx).
		Where("cart_id = ?", result.ID).
		Order("idx ASC").
		Find(&result.Attendees).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (cr *cartRepo) GetByID(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) (*types.Cart, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var result types.Cart
	if err := transaction.WithContext(ctx).
		Preload("Items").
		Preload("Attendees").
		Where("id = ?", cartID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (cr *cartRepo) Update(ctx context.Context, tx *gorm.DB, cartID uuid.UUID, fields map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if len(fields) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Cart{}).
		Where("id = ?", cartID).
		Updates(fields).Error
}

// ReplaceItems swaps the full item set; the review step always sends
// the complete selection.
func (cr *cartRepo) ReplaceItems(ctx context.Context, tx *gorm.DB, cartID uuid.UUID, items []*types.CartItem) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if err := transaction.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&types.CartItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&items).Error
}

func (cr *cartRepo) ReplaceAttendees(ctx context.Context, tx *gorm.DB, cartID uuid.UUID, attendees []*types.CartAttendee) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if err := transaction.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&types.CartAttendee{}).Error; err != nil {
		return err
	}
	if len(attendees) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&attendees).Error
}

// ListExpired returns open carts past their deadline. Locked carts
// are skipped; their fate is decided by the Stripe session outcome.
func (cr *cartRepo) ListExpired(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*types.Cart, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.Cart
	if err := transaction.WithContext(ctx).
		Where("status = ? AND expires_at < ?", types.CartOpen, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *cartRepo) CountByStatus(ctx context.Context, tx *gorm.DB) (map[string]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var rows []struct {
		Status string
		Count  int64
	}
	if err := transaction.WithContext(ctx).
		Model(&types.Cart{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
