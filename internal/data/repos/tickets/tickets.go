package tickets

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

// ErrSoldOut is returned by ReserveSold when capacity can't cover the
// requested quantity.
var ErrSoldOut = errors.New("ticket type sold out")

type TicketTypeRepo interface {
	Create(ctx context.Context, tx *gorm.DB, ticketType *types.TicketType) (*types.TicketType, error)
	GetByID(ctx context.Context, tx *gorm.DB, ticketTypeID uuid.UUID) (*types.TicketType, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ticketTypeIDs []uuid.UUID) ([]*types.TicketType, error)
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, ticketTypeID uuid.UUID) (*types.TicketType, error)
	ListActive(ctx context.Context, tx *gorm.DB) ([]*types.TicketType, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.TicketType, error)
	Update(ctx context.Context, tx *gorm.DB, ticketTypeID uuid.UUID, fields map[string]any) error
	ReserveSold(ctx context.Context, tx *gorm.DB, ticketTypeID uuid.UUID, quantity int) error
	ReleaseSold(ctx context.Context, tx *gorm.DB, ticketTypeID uuid.UUID, quantity int) error
}

type ticketTypeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTicketTypeRepo(db *gorm.DB, baseLog *logger.Logger) TicketTypeRepo {
	repoLog := baseLog.With("repo", "TicketTypeRepo")
	return &ticketTypeRepo{db: db, log: repoLog}
}

func (tr *ticketTypeRepo) Create(ctx context.Context, tx *gorm.DB, ticketType *types.TicketType) (*types.TicketType, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	if err := transaction.WithContext(ctx).Create(ticketType).Error; err != nil {
		return nil, err
	}
	return ticketType, nil
}

func (tr *ticketTypeRepo) GetByID(ctx context.Context, tx *gorm.DB, ticketTypeID uuid.UUID) (*types.TicketType, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var result types.TicketType
	if err := transaction.WithContext(ctx).
		Where("id = ?", ticketTypeID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (tr *ticketTypeRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ticketTypeIDs []uuid.UUID) ([]*types.TicketType, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.TicketType
	if len(ticketTypeIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ticketTypeIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetByIDForUpdate takes a row lock; callers must pass a transaction.
func (tr *ticketTypeRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, ticketTypeID uuid.UUID) (*types.TicketType, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var result types.TicketType
	if err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", ticketTypeID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (tr *ticketTypeRepo) ListActive(ctx context.Context, tx *gorm.DB) ([]*types.TicketType, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.TicketType
	if err := transaction.WithContext(ctx).
		Where("active = ?", true).
		Order("sort_order ASC, price_cents ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (tr *ticketTypeRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.TicketType, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.TicketType
	if err := transaction.WithContext(ctx).
		Order("sort_order ASC, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (tr *ticketTypeRepo) Update(ctx context.Context, tx *gorm.DB, ticketTypeID uuid.UUID, fields map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	if len(fields) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.TicketType{}).
		Where("id = ?", ticketTypeID).
		Updates(fields).Error
}

// ReserveSold bumps the sold counter with a capacity guard in the
// WHERE clause, so two concurrent finalizations can't oversell.
func (tr *ticketTypeRepo) ReserveSold(ctx context.Context, tx *gorm.DB, ticketTypeID uuid.UUID, quantity int) error {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.TicketType{}).
		Where("id = ? AND sold + ? <= capacity", ticketTypeID, quantity).
		Update("sold", gorm.Expr("sold + ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSoldOut
	}
	return nil
}

func (tr *ticketTypeRepo) ReleaseSold(ctx context.Context, tx *gorm.DB, ticketTypeID uuid.UUID, quantity int) error {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	return transaction.WithContext(ctx).
		Model(&types.TicketType{}).
		Where("id = ?", ticketTypeID).
		Update("sold", gorm.Expr("GREATEST(sold - ?, 0)", quantity)).Error
}
