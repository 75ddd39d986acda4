package auth

import (
	"net/http"

	"github.com/zjoart/go-intouch-transfer/pkg/utils"
)

type Handler struct {
	Service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{Service: service}
}

type VerifyOTPRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterInput
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "VALIDATION_ERROR", "Invalid request body", map[string]string{"error": err.Error()})
		return
	}

	userID, err := h.Service.Register(r.Context(), req)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	utils.BuildSuccessResponse(w, http.StatusCreated, "OTP sent to phone", map[string]string{"userId": userID})
}

func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "VALIDATION_ERROR", "Invalid request body", map[string]string{"error": err.Error()})
		return
	}

	session, err := h.Service.VerifyOTP(r.Context(), req.Phone, req.Code)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Phone verified", session)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "VALIDATION_ERROR", "Invalid request body", map[string]string{"error": err.Error()})
		return
	}

	session, err := h.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Login successful", session)
}
