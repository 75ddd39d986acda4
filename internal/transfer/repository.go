package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicateProviderID = errors.New("provider transaction id already recorded")
)

type ListFilter struct {
	Status *TransactionStatus
	Limit  int
	Offset int
}

// Repository persists transfers. TransitionStatus is the only way a stored
// status changes and only ever moves a PENDING row.
type Repository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetUserTransaction(ctx context.Context, userID, id string) (*Transaction, error)
	GetTransactionByProviderID(ctx context.Context, providerID string) (*Transaction, error)
	ListUserTransactions(ctx context.Context, userID string, filter ListFilter) ([]Transaction, int64, error)
	TransitionStatus(ctx context.Context, providerID string, to TransactionStatus, errorMessage *string, at time.Time) (bool, error)
	ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]Transaction, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateTransaction(ctx context.Context, tx *Transaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateProviderID
		}
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (r *repository) GetUserTransaction(ctx context.Context, userID, id string) (*Transaction, error) {
	return r.first(ctx, "id = ? AND user_id = ?", id, userID)
}

func (r *repository) GetTransactionByProviderID(ctx context.Context, providerID string) (*Transaction, error) {
	return r.first(ctx, "provider_transaction_id = ?", providerID)
}

func (r *repository) first(ctx context.Context, query string, args ...interface{}) (*Transaction, error) {
	var tx Transaction
	if err := r.db.WithContext(ctx).Where(query, args...).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	return &tx, nil
}

func (r *repository) ListUserTransactions(ctx context.Context, userID string, filter ListFilter) ([]Transaction, int64, error) {
	q := r.db.WithContext(ctx).Model(&Transaction{}).Where("user_id = ?", userID)
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	txs := []Transaction{}
	err := q.Order("created_at desc").
		Order("id desc").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&txs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return txs, count, nil
}

func (r *repository) TransitionStatus(ctx context.Context, providerID string, to TransactionStatus, errorMessage *string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Transaction{}).
		Where("provider_transaction_id = ? AND status = ?", providerID, TransactionPending).
		Updates(map[string]interface{}{
			"status":        to,
			"error_message": errorMessage,
			"updated_at":    at,
		})
	if res.Error != nil {
		return false, fmt.Errorf("transition transaction status: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]Transaction, error) {
	var txs []Transaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", TransactionPending, before).
		Order("created_at asc").
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("list pending transactions: %w", err)
	}
	return txs, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
