package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

type TicketRepo interface {
	Create(ctx context.Context, tx *gorm.DB, tickets []*types.Ticket) ([]*types.Ticket, error)
	GetByCode(ctx context.Context, tx *gorm.DB, code uuid.UUID) (*types.Ticket, error)
	ListByOrderID(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]*types.Ticket, error)
	ListValid(ctx context.Context, tx *gorm.DB) ([]*types.Ticket, error)
	UpdateStatusByOrderID(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, status string) error
	CheckIn(ctx context.Context, tx *gorm.DB, ticketID uuid.UUID, at time.Time) (bool, error)
	CountCheckedIn(ctx context.Context, tx *gorm.DB) (int64, error)
}

type ticketRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTicketRepo(db *gorm.DB, baseLog *logger.Logger) TicketRepo {
	repoLog := baseLog.With("repo", "TicketRepo")
	return &ticketRepo{db: db, log: repoLog}
}

func (tr *ticketRepo) Create(ctx context.Context, tx *gorm.DB, tickets []*types.Ticket) ([]*types.Ticket, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	if len(tickets) == 0 {
		return []*types.Ticket{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

func (tr *ticketRepo) GetByCode(ctx context.Context, tx *gorm.DB, code uuid.UUID) (*types.Ticket, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var result types.Ticket
	if err := transaction.WithContext(ctx).
		Where("code = ?", code).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (tr *ticketRepo) ListByOrderID(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]*types.Ticket, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.Ticket
	if err := transaction.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (tr *ticketRepo) ListValid(ctx context.Context, tx *gorm.DB) ([]*types.Ticket, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.Ticket
	if err := transaction.WithContext(ctx).
		Where("status = ?", types.TicketValid).
		Order("attendee_name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (tr *ticketRepo) UpdateStatusByOrderID(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Ticket{}).
		Where("order_id = ?", orderID).
		Update("status", status).Error
}

// CheckIn stamps the ticket once; the guarded WHERE makes a repeat
// scan report false instead of moving the timestamp.
func (tr *ticketRepo) CheckIn(ctx context.Context, tx *gorm.DB, ticketID uuid.UUID, at time.Time) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.Ticket{}).
		Where("id = ? AND checked_in_at IS NULL AND status = ?", ticketID, types.TicketValid).
		Update("checked_in_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (tr *ticketRepo) CountCheckedIn(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Ticket{}).
		Where("checked_in_at IS NOT NULL").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
