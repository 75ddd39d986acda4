package provider

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Stub is a deterministic in-memory provider. Tests drive it through Resolve.
// With SettleAfter set, pending transfers report SUCCESS once that much time
// has passed since initiation, so local runs settle through polling.
type Stub struct {
	mu            sync.Mutex
	seq           int
	InitialStatus string
	SettleAfter   time.Duration
	transfers     map[string]StatusResponse
	initiatedAt   map[string]time.Time
	requests      []TransferRequest
	now           func() time.Time

	InitiateErr error
	QueryErr    error
}

func NewStub() *Stub {
	return &Stub{
		InitialStatus: StatusPending,
		transfers:     make(map[string]StatusResponse),
		initiatedAt:   make(map[string]time.Time),
		now:           time.Now,
	}
}

func (s *Stub) InitiateTransfer(ctx context.Context, req TransferRequest) (*TransferResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	if s.InitiateErr != nil {
		return nil, s.InitiateErr
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.seq++
	id := fmt.Sprintf("INT%06d", s.seq)
	s.transfers[id] = StatusResponse{TransactionID: id, Status: s.InitialStatus}
	s.initiatedAt[id] = s.now()

	message := "Transfer initiated successfully"
	if s.InitialStatus == StatusFailed {
		message = "Insufficient balance"
	}
	return &TransferResponse{
		TransactionID: id,
		Status:        s.InitialStatus,
		Message:       message,
	}, nil
}

func (s *Stub) QueryStatus(ctx context.Context, providerID string) (*StatusResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.QueryErr != nil {
		return nil, s.QueryErr
	}
	st, ok := s.transfers[providerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, providerID)
	}
	if st.Status == StatusPending && s.SettleAfter > 0 && s.now().Sub(s.initiatedAt[providerID]) >= s.SettleAfter {
		st = StatusResponse{TransactionID: providerID, Status: StatusSuccess, Message: "Transfer completed successfully"}
		s.transfers[providerID] = st
	}
	return &st, nil
}

// Resolve sets the status the stub reports for providerID.
func (s *Stub) Resolve(providerID, status, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers[providerID] = StatusResponse{TransactionID: providerID, Status: status, Message: message}
}

// Calls returns how many InitiateTransfer calls the stub has seen.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
