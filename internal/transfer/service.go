package transfer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/zjoart/go-intouch-transfer/internal/provider"
	"github.com/zjoart/go-intouch-transfer/pkg/apperr"
	"github.com/zjoart/go-intouch-transfer/pkg/events"
	"github.com/zjoart/go-intouch-transfer/pkg/id"
	"github.com/zjoart/go-intouch-transfer/pkg/logger"
	"github.com/zjoart/go-intouch-transfer/pkg/utils"
)

const defaultFailureMessage = "Transaction failed"

var phonePattern = regexp.MustCompile(`^[0-9]{12}$`)

type Options struct {
	ProviderTimeout time.Duration
	PhonePrefix     string
	MaxPageSize     int
}

// Service owns the transfer lifecycle. Every status change, whether it comes
// from a client poll, a webhook or the reconciler, goes through
// ApplyProviderUpdate.
type Service struct {
	repo      Repository
	provider  provider.Client
	publisher events.Publisher
	opts      Options
	now       func() time.Time
}

func NewService(repo Repository, client provider.Client, publisher events.Publisher, opts Options) *Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = 10 * time.Second
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 100
	}
	return &Service{
		repo:      repo,
		provider:  client,
		publisher: publisher,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (s *Service) validateTransfer(in CreateTransferInput) []FieldError {
	var errs []FieldError
	if !in.SourceWallet.IsSupported() {
		errs = append(errs, FieldError{Field: "sourceWallet", Message: "Invalid source wallet"})
	}
	if !in.DestinationWallet.IsSupported() {
		errs = append(errs, FieldError{Field: "destinationWallet", Message: "Invalid destination wallet"})
	}
	if !phonePattern.MatchString(in.DestinationPhone) || !strings.HasPrefix(in.DestinationPhone, s.opts.PhonePrefix) {
		msg := "Phone must be 12 digits"
		if s.opts.PhonePrefix != "" {
			msg = fmt.Sprintf("Phone must be 12 digits starting with %s", s.opts.PhonePrefix)
		}
		errs = append(errs, FieldError{Field: "destinationPhone", Message: msg})
	}
	if in.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "Amount must be greater than 0"})
	}
	return errs
}

func (s *Service) CreateTransfer(ctx context.Context, userID string, in CreateTransferInput) (*Transaction, error) {
	if fieldErrs := s.validateTransfer(in); len(fieldErrs) > 0 {
		err := apperr.Validation("Validation failed")
		err.Details = fieldErrs
		return nil, err
	}

	pctx, cancel := context.WithTimeout(ctx, s.opts.ProviderTimeout)
	defer cancel()

	resp, err := s.provider.InitiateTransfer(pctx, provider.TransferRequest{
		SourceWallet:      string(in.SourceWallet),
		DestinationWallet: string(in.DestinationWallet),
		DestinationPhone:  in.DestinationPhone,
		Amount:            in.Amount,
	})
	if err != nil {
		logger.Warn("Provider refused transfer initiation", logger.Merge(
			logger.Fields{logger.UserIdKey: userID, "amount": in.Amount},
			logger.WithError(err),
		))
		return nil, providerError(err)
	}

	status := TransactionStatus(resp.Status)
	if resp.TransactionID == "" || !status.IsValid() {
		return nil, apperr.Internal(fmt.Errorf("malformed provider response: id=%q status=%q", resp.TransactionID, resp.Status))
	}

	now := s.now()
	tx := &Transaction{
		ID:                    id.Generate(),
		UserID:                userID,
		ProviderTransactionID: resp.TransactionID,
		SourceWallet:          in.SourceWallet,
		DestinationWallet:     in.DestinationWallet,
		DestinationPhone:      in.DestinationPhone,
		Amount:                in.Amount,
		Status:                status,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if status == TransactionFailed {
		tx.ErrorMessage = failureMessage(resp.Message)
	}

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		logger.Error("Provider accepted transfer but it could not be recorded", logger.Fields{
			logger.ProviderIDKey: resp.TransactionID,
			logger.UserIdKey:     userID,
			logger.ErrorKey:      err.Error(),
		})
		if errors.Is(err, ErrDuplicateProviderID) {
			return nil, apperr.Conflict("Provider transaction already recorded")
		}
		return nil, apperr.Internal(err)
	}

	logger.Info("Transfer created", logger.Fields{
		logger.TransactionIDKey: tx.ID,
		logger.ProviderIDKey:    tx.ProviderTransactionID,
		logger.UserIdKey:        userID,
		logger.StatusKey:        tx.Status,
	})
	s.publish(ctx, tx, events.TransferCreated, "", "")

	return tx, nil
}

// GetTransactionStatus returns the caller's transaction, refreshed from the
// provider when it is still pending. Refresh failures fall back to the stored
// record.
func (s *Service) GetTransactionStatus(ctx context.Context, userID, transactionID string) (*Transaction, error) {
	if !id.IsValid(transactionID) {
		return nil, apperr.NotFound("Transaction not found")
	}

	tx, err := s.repo.GetUserTransaction(ctx, userID, transactionID)
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			return nil, apperr.NotFound("Transaction not found")
		}
		return nil, apperr.Internal(err)
	}

	if tx.Status != TransactionPending || tx.ProviderTransactionID == "" {
		return tx, nil
	}
	return s.reconcile(ctx, tx, SourcePoll), nil
}

func (s *Service) reconcile(ctx context.Context, tx *Transaction, source UpdateSource) *Transaction {
	pctx, cancel := context.WithTimeout(ctx, s.opts.ProviderTimeout)
	defer cancel()

	st, err := s.provider.QueryStatus(pctx, tx.ProviderTransactionID)
	if err != nil {
		logger.Warn("Status reconciliation failed, serving stored record", logger.Fields{
			logger.TransactionIDKey: tx.ID,
			logger.ProviderIDKey:    tx.ProviderTransactionID,
			logger.ErrorKey:         err.Error(),
		})
		return tx
	}

	reported := TransactionStatus(st.Status)
	if reported == tx.Status {
		return tx
	}

	updated, err := s.ApplyProviderUpdate(ctx, ProviderUpdate{
		ProviderTransactionID: tx.ProviderTransactionID,
		Status:                reported,
		ErrorMessage:          st.Message,
		Source:                source,
	})
	if err != nil {
		logger.Warn("Could not apply reconciled status, serving stored record", logger.Fields{
			logger.TransactionIDKey: tx.ID,
			"reported_status":       st.Status,
			logger.ErrorKey:         err.Error(),
		})
		return tx
	}
	return updated
}

// ApplyProviderUpdate moves a PENDING transaction to the reported status.
// Updates for terminal transactions are ignored and the stored record is
// returned, so redelivered notifications are harmless.
func (s *Service) ApplyProviderUpdate(ctx context.Context, update ProviderUpdate) (*Transaction, error) {
	if update.ProviderTransactionID == "" {
		return nil, apperr.Validation("Provider transaction id is required")
	}
	if !update.Status.IsValid() {
		return nil, apperr.Validation(fmt.Sprintf("Invalid status: %s", update.Status))
	}

	tx, err := s.repo.GetTransactionByProviderID(ctx, update.ProviderTransactionID)
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			return nil, apperr.NotFound("Transaction not found")
		}
		return nil, apperr.Internal(err)
	}

	if tx.Status.IsTerminal() {
		if tx.Status != update.Status {
			logger.Warn("Ignoring status update for settled transaction", logger.Fields{
				logger.TransactionIDKey: tx.ID,
				logger.StatusKey:        tx.Status,
				"reported_status":       update.Status,
				"source":                update.Source,
			})
		}
		return tx, nil
	}
	if update.Status == TransactionPending {
		return tx, nil
	}

	var msg *string
	if update.Status == TransactionFailed {
		msg = failureMessage(update.ErrorMessage)
	}
	at := s.now()

	moved, err := s.repo.TransitionStatus(ctx, update.ProviderTransactionID, update.Status, msg, at)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !moved {
		// another update settled the row first
		current, err := s.repo.GetTransactionByProviderID(ctx, update.ProviderTransactionID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		return current, nil
	}

	tx.Status = update.Status
	tx.ErrorMessage = msg
	tx.UpdatedAt = at

	logger.Info("Transaction status updated", logger.Fields{
		logger.TransactionIDKey: tx.ID,
		logger.ProviderIDKey:    tx.ProviderTransactionID,
		logger.StatusKey:        tx.Status,
		"source":                update.Source,
	})
	s.publish(ctx, tx, events.TransferStatusChanged, TransactionPending, update.Source)

	return tx, nil
}

func (s *Service) ListUserTransactions(ctx context.Context, userID string, params ListParams) (*TransactionPage, error) {
	if params.Page < 1 {
		return nil, apperr.Validation("page must be at least 1")
	}
	if params.PageSize < 1 {
		return nil, apperr.Validation("pageSize must be greater than 0")
	}
	if params.PageSize > s.opts.MaxPageSize {
		params.PageSize = s.opts.MaxPageSize
	}
	if params.Page > utils.MaxPage(params.PageSize) {
		return nil, apperr.Validation("page is out of range")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, apperr.Validation(fmt.Sprintf("Invalid status filter: %s", *params.Status))
	}

	page := utils.Pagination{Page: params.Page, PageSize: params.PageSize}
	items, total, err := s.repo.ListUserTransactions(ctx, userID, ListFilter{
		Status: params.Status,
		Limit:  page.PageSize,
		Offset: page.Offset(),
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return &TransactionPage{
		Items:      items,
		Total:      total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: utils.TotalPages(total, page.PageSize),
	}, nil
}

func (s *Service) publish(ctx context.Context, tx *Transaction, name string, previous TransactionStatus, source UpdateSource) {
	event := events.TransactionEvent{
		Event:                 name,
		TransactionID:         tx.ID,
		ProviderTransactionID: tx.ProviderTransactionID,
		UserID:                tx.UserID,
		Status:                string(tx.Status),
		PreviousStatus:        string(previous),
		Amount:                tx.Amount,
		Source:                string(source),
		Timestamp:             tx.UpdatedAt,
	}
	if tx.ErrorMessage != nil {
		event.ErrorMessage = *tx.ErrorMessage
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Error("Failed to publish transaction event", logger.Fields{
			"event":                 name,
			logger.TransactionIDKey: tx.ID,
			logger.ErrorKey:         err.Error(),
		})
	}
}

func providerError(err error) error {
	switch {
	case provider.IsRetryable(err):
		return apperr.ProviderUnavailable(err)
	case errors.Is(err, provider.ErrRejected), errors.Is(err, provider.ErrNotFound):
		return apperr.ProviderRejected(err)
	default:
		return apperr.ProviderUnavailable(err)
	}
}

func failureMessage(msg string) *string {
	if strings.TrimSpace(msg) == "" {
		msg = defaultFailureMessage
	}
	return &msg
}
