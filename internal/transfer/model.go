package transfer

import (
	"time"
)

type WalletKind string

const (
	WalletWave      WalletKind = "WAVE"
	WalletOrange    WalletKind = "ORANGE"
	WalletFreeMoney WalletKind = "FREE_MONEY"
)

var SupportedWallets = []WalletKind{
	WalletWave,
	WalletOrange,
	WalletFreeMoney,
}

func (w WalletKind) IsSupported() bool {
	for _, s := range SupportedWallets {
		if w == s {
			return true
		}
	}
	return false
}

type TransactionStatus string

const (
	TransactionPending TransactionStatus = "PENDING"
	TransactionSuccess TransactionStatus = "SUCCESS"
	TransactionFailed  TransactionStatus = "FAILED"
)

func (s TransactionStatus) IsValid() bool {
	return s == TransactionPending || s == TransactionSuccess || s == TransactionFailed
}

// IsTerminal reports whether no further transition is allowed out of s.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionSuccess || s == TransactionFailed
}

type Transaction struct {
	ID                    string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID                string            `gorm:"type:varchar(36);not null;index:idx_transactions_user_created,priority:1" json:"user_id"`
	ProviderTransactionID string            `gorm:"not null;uniqueIndex" json:"provider_transaction_id"`
	SourceWallet          WalletKind        `gorm:"type:varchar(20);not null" json:"source_wallet"`
	DestinationWallet     WalletKind        `gorm:"type:varchar(20);not null" json:"destination_wallet"`
	DestinationPhone      string            `gorm:"type:varchar(20);not null" json:"destination_phone"`
	Amount                int64             `gorm:"not null" json:"amount"`
	Status                TransactionStatus `gorm:"type:varchar(10);not null;index" json:"status"`
	ErrorMessage          *string           `json:"error_message,omitempty"`
	CreatedAt             time.Time         `gorm:"index:idx_transactions_user_created,priority:2" json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// UpdateSource names the path a provider status update arrived through.
type UpdateSource string

const (
	SourcePoll      UpdateSource = "poll"
	SourceWebhook   UpdateSource = "webhook"
	SourceReconcile UpdateSource = "reconcile"
)

type CreateTransferInput struct {
	SourceWallet      WalletKind
	DestinationWallet WalletKind
	DestinationPhone  string
	Amount            int64
}

type ProviderUpdate struct {
	ProviderTransactionID string
	Status                TransactionStatus
	ErrorMessage          string
	Source                UpdateSource
}

type ListParams struct {
	Page     int
	PageSize int
	Status   *TransactionStatus
}

type TransactionPage struct {
	Items      []Transaction `json:"items"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalPages int           `json:"totalPages"`
}
