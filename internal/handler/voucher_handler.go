package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"voucher-api/internal/model"
	"voucher-api/internal/service"

	"github.com/rs/zerolog"
)

// VoucherHandler handles the public voucher HTTP endpoints.
type VoucherHandler struct {
	service service.VoucherService
	logger  zerolog.Logger
}

// NewVoucherHandler creates a new voucher handler.
func NewVoucherHandler(service service.VoucherService, logger zerolog.Logger) *VoucherHandler {
	return &VoucherHandler{
		service: service,
		logger:  logger.With().Str("handler", "voucher").Logger(),
	}
}

// Active handles GET /api/vouchers/active requests.
func (h *VoucherHandler) Active(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, model.ErrCodeInternalError, "method not allowed", h.logger)
		return
	}

	vouchers, err := h.service.ListActive(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	if vouchers == nil {
		vouchers = []model.Voucher{}
	}

	writeJSON(w, http.StatusOK, vouchers)
}

// Validate handles POST /api/vouchers/validate requests. The check is a dry
// run; no quota is consumed.
func (h *VoucherHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, model.ErrCodeInternalError, "method not allowed", h.logger)
		return
	}

	var req model.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	if strings.TrimSpace(req.Code) == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "code is required", h.logger)
		return
	}
	if req.OrderAmount.IsNegative() {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "orderAmount must not be negative", h.logger)
		return
	}

	verdict, err := h.service.Validate(r.Context(), req.Code, req.OrderAmount)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, verdict)
}

// Claim handles POST /api/vouchers/claim requests. Replays of a settled
// (code, orderId) key return the recorded outcome with idempotent=true.
func (h *VoucherHandler) Claim(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, model.ErrCodeInternalError, "method not allowed", h.logger)
		return
	}

	var req model.ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	if strings.TrimSpace(req.Code) == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "code is required", h.logger)
		return
	}
	if strings.TrimSpace(req.OrderID) == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "orderId is required", h.logger)
		return
	}
	if req.OrderAmount.IsNegative() {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "orderAmount must not be negative", h.logger)
		return
	}

	outcome, idempotent, err := h.service.Claim(r.Context(), req.Code, req.OrderID, req.OrderAmount)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, model.ClaimResponse{
		ClaimOutcome: *outcome,
		Idempotent:   idempotent,
	})
}
