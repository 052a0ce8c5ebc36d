package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

// ListFilter narrows the admin order listing.
type ListFilter struct {
	Status string
	Search string // matches order number or email, case-insensitive
	Limit  int
	Offset int
}

type OrderRepo interface {
	Create(ctx context.Context, tx *gorm.DB, order *types.Order) (*types.Order, error)
	GetByID(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*types.Order, error)
	GetByNumber(ctx context.Context, tx *gorm.DB, number string) (*types.Order, error)
	GetByStripeSessionID(ctx context.Context, tx *gorm.DB, sessionID string) (*types.Order, error)
	GetByStripeSessionIDForUpdate(ctx context.Context, tx *gorm.DB, sessionID string) (*types.Order, error)
	List(ctx context.Context, tx *gorm.DB, filter ListFilter) ([]*types.Order, int64, error)
	ListByAccountID(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) ([]*types.Order, error)
	ListPaidSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]*types.Order, error)
	Update(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, fields map[string]any) error
	RevenueCentsSince(ctx context.Context, tx *gorm.DB, since time.Time) (int64, error)
	ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Order, error)
	CountByStatus(ctx context.Context, tx *gorm.DB) (map[string]int64, error)
}

type orderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrderRepo(db *gorm.DB, baseLog *logger.Logger) OrderRepo {
	repoLog := baseLog.With("repo", "OrderRepo")
	return &orderRepo{db: db, log: repoLog}
}

func (or *orderRepo) Create(ctx context.Context, tx *gorm.DB, order *types.Order) (*types.Order, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	if err := transaction.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (or *orderRepo) GetByID(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*types.Order, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	var result types.Order
	if err := transaction.WithContext(ctx).
		Preload("Tickets").
		Where("id = ?", orderID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (or *orderRepo) GetByNumber(ctx context.Context, tx *gorm.DB, number string) (*types.Order, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	var result types.Order
	if err := transaction.WithContext(ctx).
		Preload("Tickets").
		Where("number = ?", number).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (or *orderRepo) GetByStripeSessionID(ctx context.Context, tx *gorm.DB, sessionID string) (*types.Order, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	var result types.Order
	if err := transaction.WithContext(ctx).
		Preload("Tickets").
		Where("stripe_session_id = ?", sessionID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

// GetByStripeSessionIDForUpdate locks the order row so concurrent
// webhook deliveries for the same session serialize.
func (or *orderRepo) GetByStripeSessionIDForUpdate(ctx context.Context, tx *gorm.DB, sessionID string) (*types.Order, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	var result types.Order
	if err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("stripe_session_id = ?", sessionID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (or *orderRepo) List(ctx context.Context, tx *gorm.DB, filter ListFilter) ([]*types.Order, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	query := transaction.WithContext(ctx).Model(&types.Order{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		needle := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(number) LIKE ? OR LOWER(email) LIKE ?", needle, needle)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var results []*types.Order
	if err := query.
		Preload("Tickets").
		Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (or *orderRepo) ListByAccountID(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) ([]*types.Order, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	var results []*types.Order
	if err := transaction.WithContext(ctx).
		Preload("Tickets").
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (or *orderRepo) ListPaidSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]*types.Order, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	var results []*types.Order
	if err := transaction.WithContext(ctx).
		Where("status = ? AND paid_at >= ?", types.OrderPaid, since).
		Order("paid_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (or *orderRepo) Update(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, fields map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	if len(fields) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Order{}).
		Where("id = ?", orderID).
		Updates(fields).Error
}

func (or *orderRepo) RevenueCentsSince(ctx context.Context, tx *gorm.DB, since time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	var total *int64
	if err := transaction.WithContext(ctx).
		Model(&types.Order{}).
		Select("SUM(total_cents)").
		Where("status = ? AND paid_at >= ?", types.OrderPaid, since).
		Scan(&total).Error; err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (or *orderRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Order, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}
	if limit <= 0 {
		limit = 10
	}

	var results []*types.Order
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (or *orderRepo) CountByStatus(ctx context.Context, tx *gorm.DB) (map[string]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	var rows []struct {
		Status string
		Count  int64
	}
	if err := transaction.WithContext(ctx).
		Model(&types.Order{}).
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
