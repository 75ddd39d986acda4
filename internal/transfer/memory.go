package transfer

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps transfers in process memory. It honours the same
// compare-and-set contract as the database repository.
type MemoryRepository struct {
	mu         sync.RWMutex
	byID       map[string]Transaction
	byProvider map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:       make(map[string]Transaction),
		byProvider: make(map[string]string),
	}
}

func (m *MemoryRepository) CreateTransaction(ctx context.Context, tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byProvider[tx.ProviderTransactionID]; exists {
		return ErrDuplicateProviderID
	}
	now := time.Now().UTC()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	if tx.UpdatedAt.IsZero() {
		tx.UpdatedAt = tx.CreatedAt
	}
	m.byID[tx.ID] = cloneTransaction(*tx)
	m.byProvider[tx.ProviderTransactionID] = tx.ID
	return nil
}

func (m *MemoryRepository) GetTransactionByID(ctx context.Context, id string) (*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tx, ok := m.byID[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	out := cloneTransaction(tx)
	return &out, nil
}

func (m *MemoryRepository) GetUserTransaction(ctx context.Context, userID, id string) (*Transaction, error) {
	tx, err := m.GetTransactionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.UserID != userID {
		return nil, ErrTransactionNotFound
	}
	return tx, nil
}

func (m *MemoryRepository) GetTransactionByProviderID(ctx context.Context, providerID string) (*Transaction, error) {
	m.mu.RLock()
	id, ok := m.byProvider[providerID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrTransactionNotFound
	}
	return m.GetTransactionByID(ctx, id)
}

func (m *MemoryRepository) ListUserTransactions(ctx context.Context, userID string, filter ListFilter) ([]Transaction, int64, error) {
	m.mu.RLock()
	var matched []Transaction
	for _, tx := range m.byID {
		if tx.UserID != userID {
			continue
		}
		if filter.Status != nil && tx.Status != *filter.Status {
			continue
		}
		matched = append(matched, cloneTransaction(tx))
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	start := filter.Offset
	if start < 0 {
		start = 0
	}
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return append([]Transaction{}, matched[start:end]...), total, nil
}

func (m *MemoryRepository) TransitionStatus(ctx context.Context, providerID string, to TransactionStatus, errorMessage *string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byProvider[providerID]
	if !ok {
		return false, nil
	}
	tx := m.byID[id]
	if tx.Status != TransactionPending {
		return false, nil
	}

	tx.Status = to
	tx.ErrorMessage = copyString(errorMessage)
	tx.UpdatedAt = at
	m.byID[id] = tx
	return true, nil
}

func (m *MemoryRepository) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]Transaction, error) {
	m.mu.RLock()
	var out []Transaction
	for _, tx := range m.byID {
		if tx.Status == TransactionPending && tx.CreatedAt.Before(before) {
			out = append(out, cloneTransaction(tx))
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneTransaction(tx Transaction) Transaction {
	tx.ErrorMessage = copyString(tx.ErrorMessage)
	return tx
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
