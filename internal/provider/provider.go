// Package provider abstracts the external mobile-money network that executes
// transfers and reports their status.
package provider

import (
	"context"
	"errors"
)

var (
	ErrUnavailable = errors.New("provider unavailable")
	ErrRejected    = errors.New("provider rejected request")
	ErrNotFound    = errors.New("provider has no such transfer")
)

// Status values mirror the local transaction statuses.
const (
	StatusPending = "PENDING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

type TransferRequest struct {
	SourceWallet      string `json:"source_wallet"`
	DestinationWallet string `json:"destination_wallet"`
	DestinationPhone  string `json:"destination_phone"`
	Amount            int64  `json:"amount"`
}

type TransferResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
}

type StatusResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
}

type Client interface {
	InitiateTransfer(ctx context.Context, req TransferRequest) (*TransferResponse, error)
	QueryStatus(ctx context.Context, providerID string) (*StatusResponse, error)
}
