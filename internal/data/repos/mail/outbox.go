package mail

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

type OutboxRepo interface {
	Enqueue(ctx context.Context, tx *gorm.DB, emails []*types.EmailOutbox) ([]*types.EmailOutbox, error)
	ClaimDue(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*types.EmailOutbox, error)
	MarkSent(ctx context.Context, tx *gorm.DB, emailID uuid.UUID, messageID string, at time.Time) error
	MarkRetry(ctx context.Context, tx *gorm.DB, emailID uuid.UUID, attempts int, nextAttemptAt time.Time, lastError string) error
	MarkFailed(ctx context.Context, tx *gorm.DB, emailID uuid.UUID, attempts int, lastError string) error
	RequeueStuck(ctx context.Context, tx *gorm.DB, olderThan time.Time) (int64, error)
	CountByStatus(ctx context.Context, tx *gorm.DB) (map[string]int64, error)
	ListRecent(ctx context.Context, tx *gorm.DB, status string, limit int) ([]*types.EmailOutbox, error)
	GetByID(ctx context.Context, tx *gorm.DB, emailID uuid.UUID) (*types.EmailOutbox, error)
}

type outboxRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOutboxRepo(db *gorm.DB, baseLog *logger.Logger) OutboxRepo {
	repoLog := baseLog.With("repo", "OutboxRepo")
	return &outboxRepo{db: db, log: repoLog}
}

func (or *outboxRepo) Enqueue(ctx context.Context, tx *gorm.DB, emails []*types.EmailOutbox) ([]*types.EmailOutbox, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	if len(emails) == 0 {
		return []*types.EmailOutbox{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&emails).Error; err != nil {
		return nil, err
	}
	return emails, nil
}

// ClaimDue locks and flips due pending rows to sending in one
// transaction, so concurrent workers never pick the same email.
// SKIP LOCKED keeps a second worker from blocking on the first's
// claim.
func (or *outboxRepo) ClaimDue(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*types.EmailOutbox, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	var claimed []*types.EmailOutbox
	err := transaction.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		if err := txn.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND next_attempt_at <= ?", types.MailPending, now).
			Order("next_attempt_at ASC").
			Limit(limit).
			Find(&claimed).Error; err != nil {
			return err
		}
		if len(claimed) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, 0, len(claimed))
		for _, email := range claimed {
			ids = append(ids, email.ID)
		}
		return txn.
			Model(&types.EmailOutbox{}).
			Where("id IN ?", ids).
			Update("status", types.MailSending).Error
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (or *outboxRepo) MarkSent(ctx context.Context, tx *gorm.DB, emailID uuid.UUID, messageID string, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}
	return transaction.WithContext(ctx).
		Model(&types.EmailOutbox{}).
		Where("id = ?", emailID).
		Updates(map[string]any{
			"status":     types.MailSent,
			"message_id": messageID,
			"sent_at":    at,
			"last_error": "",
		}).Error
}

func (or *outboxRepo) MarkRetry(ctx context.Context, tx *gorm.DB, emailID uuid.UUID, attempts int, nextAttemptAt time.Time, lastError string) error {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}
	return transaction.WithContext(ctx).
		Model(&types.EmailOutbox{}).
		Where("id = ?", emailID).
		Updates(map[string]any{
			"status":          types.MailPending,
			"attempts":        attempts,
			"next_attempt_at": nextAttemptAt,
			"last_error":      lastError,
		}).Error
}

func (or *outboxRepo) MarkFailed(ctx context.Context, tx *gorm.DB, emailID uuid.UUID, attempts int, lastError string) error {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}
	return transaction.WithContext(ctx).
		Model(&types.EmailOutbox{}).
		Where("id = ?", emailID).
		Updates(map[string]any{
			"status":     types.MailFailed,
			"attempts":   attempts,
			"last_error": lastError,
		}).Error
}

// RequeueStuck rescues rows abandoned mid-send by a crashed worker.
func (or *outboxRepo) RequeueStuck(ctx context.Context, tx *gorm.DB, olderThan time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.EmailOutbox{}).
		Where("status = ? AND updated_at < ?", types.MailSending, olderThan).
		Update("status", types.MailPending)
	return res.RowsAffected, res.Error
}

func (or *outboxRepo) CountByStatus(ctx context.Context, tx *gorm.DB) (map[string]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	var rows []struct {
		Status string
		Count  int64
	}
	if err := transaction.WithContext(ctx).
		Model(&types.EmailOutbox{}).
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

func (or *outboxRepo) ListRecent(ctx context.Context, tx *gorm.DB, status string, limit int) ([]*types.EmailOutbox, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	query := transaction.WithContext(ctx)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit <= 0 {
		limit = 100
	}

	var results []*types.EmailOutbox
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (or *outboxRepo) GetByID(ctx context.Context, tx *gorm.DB, emailID uuid.UUID) (*types.EmailOutbox, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	var result types.EmailOutbox
	if err := transaction.WithContext(ctx).
		Where("id = ?", emailID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}
