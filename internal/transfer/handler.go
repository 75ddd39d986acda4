package transfer

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/zjoart/go-intouch-transfer/internal/user"
	"github.com/zjoart/go-intouch-transfer/internal/webhook"
	"github.com/zjoart/go-intouch-transfer/pkg/apperr"
	"github.com/zjoart/go-intouch-transfer/pkg/config"
	"github.com/zjoart/go-intouch-transfer/pkg/logger"
	"github.com/zjoart/go-intouch-transfer/pkg/utils"
)

type Handler struct {
	Config  config.Config
	Service *Service
	Auth    *webhook.Authenticator
}

func NewHandler(cfg config.Config, service *Service, auth *webhook.Authenticator) *Handler {
	return &Handler{Config: cfg, Service: service, Auth: auth}
}

type CreateTransferRequest struct {
	SourceWallet      string `json:"sourceWallet"`
	DestinationWallet string `json:"destinationWallet"`
	DestinationPhone  string `json:"destinationPhone"`
	Amount            int64  `json:"amount"`
}

type transferSummary struct {
	ID                    string            `json:"id"`
	Status                TransactionStatus `json:"status"`
	ProviderTransactionID string            `json:"providerTransactionId"`
	SourceWallet          WalletKind        `json:"sourceWallet"`
	DestinationWallet     WalletKind        `json:"destinationWallet"`
	Amount                int64             `json:"amount"`
	CreatedAt             time.Time         `json:"createdAt"`
}

type statusView struct {
	ID                    string            `json:"id"`
	Status                TransactionStatus `json:"status"`
	ProviderTransactionID string            `json:"providerTransactionId"`
	ErrorMessage          *string           `json:"errorMessage,omitempty"`
	UpdatedAt             time.Time         `json:"updatedAt"`
}

type listItem struct {
	ID                string            `json:"id"`
	SourceWallet      WalletKind        `json:"sourceWallet"`
	DestinationWallet WalletKind        `json:"destinationWallet"`
	Amount            int64             `json:"amount"`
	Status            TransactionStatus `json:"status"`
	CreatedAt         time.Time         `json:"createdAt"`
}

type paginationView struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

func currentUser(r *http.Request) (user.User, bool) {
	usr, ok := r.Context().Value(utils.UserKey).(user.User)
	return usr, ok && usr.ID != ""
}

func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	usr, ok := currentUser(r)
	if !ok {
		utils.WriteError(w, r, apperr.Unauthorized("User not authenticated"))
		return
	}

	var req CreateTransferRequest
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "VALIDATION_ERROR", "Invalid request body", map[string]string{"error": err.Error()})
		return
	}

	tx, err := h.Service.CreateTransfer(r.Context(), usr.ID, CreateTransferInput{
		SourceWallet:      WalletKind(strings.ToUpper(req.SourceWallet)),
		DestinationWallet: WalletKind(strings.ToUpper(req.DestinationWallet)),
		DestinationPhone:  req.DestinationPhone,
		Amount:            req.Amount,
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	utils.BuildSuccessResponse(w, http.StatusCreated, "Transfer initiated", map[string]interface{}{
		"transaction": transferSummary{
			ID:                    tx.ID,
			Status:                tx.Status,
			ProviderTransactionID: tx.ProviderTransactionID,
			SourceWallet:          tx.SourceWallet,
			DestinationWallet:     tx.DestinationWallet,
			Amount:                tx.Amount,
			CreatedAt:             tx.CreatedAt,
		},
	})
}

func (h *Handler) GetTransferStatus(w http.ResponseWriter, r *http.Request) {
	usr, ok := currentUser(r)
	if !ok {
		utils.WriteError(w, r, apperr.Unauthorized("User not authenticated"))
		return
	}

	tx, err := h.Service.GetTransactionStatus(r.Context(), usr.ID, mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Transfer status retrieved", map[string]interface{}{
		"transaction": statusView{
			ID:                    tx.ID,
			Status:                tx.Status,
			ProviderTransactionID: tx.ProviderTransactionID,
			ErrorMessage:          tx.ErrorMessage,
			UpdatedAt:             tx.UpdatedAt,
		},
	})
}

func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	usr, ok := currentUser(r)
	if !ok {
		utils.WriteError(w, r, apperr.Unauthorized("User not authenticated"))
		return
	}

	pagination := utils.GetPaginationDetails(r, h.Config.DefaultPageSize, h.Config.MaxPageSize)
	params := ListParams{Page: pagination.Page, PageSize: pagination.PageSize}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := TransactionStatus(strings.ToUpper(raw))
		params.Status = &status
	}

	page, err := h.Service.ListUserTransactions(r.Context(), usr.ID, params)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	items := make([]listItem, 0, len(page.Items))
	for _, tx := range page.Items {
		items = append(items, listItem{
			ID:                tx.ID,
			SourceWallet:      tx.SourceWallet,
			DestinationWallet: tx.DestinationWallet,
			Amount:            tx.Amount,
			Status:            tx.Status,
			CreatedAt:         tx.CreatedAt,
		})
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Transaction History", map[string]interface{}{
		"transactions": items,
		"pagination": paginationView{
			Total:      page.Total,
			Page:       page.Page,
			PageSize:   page.PageSize,
			TotalPages: page.TotalPages,
		},
	})
}

func (h *Handler) IntouchWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := utils.ReadBody(w, r)
	if err != nil {
		logger.Warn("Webhook: failed to read body", logger.Fields{"remote_addr": r.RemoteAddr, logger.ErrorKey: err.Error()})
		utils.WriteError(w, r, apperr.Unauthorized("Invalid signature"))
		return
	}

	payload, err := h.Auth.Authenticate(body)
	if err != nil {
		logger.Warn("Webhook: rejected unauthenticated callback", logger.Fields{
			"remote_addr": r.RemoteAddr,
			"size":        len(body),
		})
		utils.WriteError(w, r, apperr.Unauthorized("Invalid signature"))
		return
	}

	tx, err := h.Service.ApplyProviderUpdate(r.Context(), ProviderUpdate{
		ProviderTransactionID: payload.TransactionID,
		Status:                TransactionStatus(strings.ToUpper(payload.Status)),
		ErrorMessage:          payload.Message,
		Source:                SourceWebhook,
	})
	if err != nil {
		logger.Warn("Webhook: update not applied", logger.Fields{
			logger.ProviderIDKey: payload.TransactionID,
			logger.ErrorKey:      err.Error(),
		})
		if apperr.Is(err, apperr.KindNotFound) {
			utils.BuildErrorResponse(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
			return
		}
		utils.WriteError(w, r, err)
		return
	}

	logger.Info("Webhook processed", logger.Fields{
		logger.ProviderIDKey:    payload.TransactionID,
		logger.TransactionIDKey: tx.ID,
		logger.StatusKey:        tx.Status,
	})
	utils.BuildSuccessResponse(w, http.StatusOK, "Webhook processed successfully", nil)
}
