package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/loyaltyhub/points-ledger/internal/api/middleware"
	"github.com/loyaltyhub/points-ledger/internal/api/response"
	"github.com/loyaltyhub/points-ledger/internal/api/validation"
	"github.com/loyaltyhub/points-ledger/internal/ledger"
)

// earnRequest is the request body for POST /loyalty/earn.
type earnRequest struct {
	MemberID       string `json:"memberId"`
	Amount         int64  `json:"amount"`
	SourceRef      string `json:"sourceRef"`
	IdempotencyKey string `json:"idempotencyKey"`
	TTLDays        int    `json:"ttlDays"`
}

// redeemRequest is the request body for POST /loyalty/redeem.
type redeemRequest struct {
	MemberID       string `json:"memberId"`
	Amount         int64  `json:"amount"`
	SourceRef      string `json:"sourceRef"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// adminAdjustRequest is the request body for POST /loyalty/admin-adjust.
type adminAdjustRequest struct {
	MemberID       string `json:"memberId"`
	Amount         int64  `json:"amount"`
	ActorID        string `json:"actorId"`
	Reason         string `json:"reason"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// mutationResponse is the API representation of a committed mutation.
type mutationResponse struct {
	TransactionID string `json:"transactionId"`
	Kind          string `json:"kind"`
	Amount        int64  `json:"amount"`
	Balance       int64  `json:"balance"`
	Tier          string `json:"tier"`
	Applied       bool   `json:"applied"`
}

// balanceResponse is the API representation of a member's standing.
type balanceResponse struct {
	MemberID        string  `json:"memberId"`
	Balance         int64   `json:"balance"`
	Version         int64   `json:"version"`
	Tier            string  `json:"tier"`
	AsOf            string  `json:"asOf"`
	NextTier        *string `json:"nextTier"`
	PointsToNext    *int64  `json:"pointsToNextTier"`
	ProgressPercent int64   `json:"progressPercent"`
}

// transactionResponse is the API representation of a ledger entry.
type transactionResponse struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"`
	Amount    int64   `json:"amount"`
	SourceRef string  `json:"sourceRef"`
	ActorID   string  `json:"actorId"`
	Note      string  `json:"note,omitempty"`
	ExpiresAt *string `json:"expiresAt,omitempty"`
	CreatedAt string  `json:"createdAt"`
}

// sweepResponse is the API representation of a sweep pass.
type sweepResponse struct {
	MembersSwept   int   `json:"membersSwept"`
	EntriesExpired int   `json:"entriesExpired"`
	PointsExpired  int64 `json:"pointsExpired"`
}

const timeFormat = "2006-01-02T15:04:05Z"

func toMutationResponse(res *ledger.MutationResult) mutationResponse {
	return mutationResponse{
		TransactionID: res.Entry.ID.String(),
		Kind:          string(res.Entry.Kind),
		Amount:        res.Entry.Amount,
		Balance:       res.Balance,
		Tier:          res.Tier,
		Applied:       res.Applied,
	}
}

func toTransactionResponse(t *ledger.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:        t.ID.String(),
		Kind:      string(t.Kind),
		Amount:    t.Amount,
		SourceRef: t.SourceRef,
		ActorID:   t.ActorID,
		Note:      t.Note,
		CreatedAt: t.CreatedAt.UTC().Format(timeFormat),
	}
	if t.ExpiresAt != nil {
		s := t.ExpiresAt.UTC().Format(timeFormat)
		resp.ExpiresAt = &s
	}
	return resp
}

// LoyaltyHandler handles the ledger mutation and read endpoints.
type LoyaltyHandler struct {
	svc *ledger.Service
}

// NewLoyaltyHandler creates a new LoyaltyHandler.
func NewLoyaltyHandler(svc *ledger.Service) *LoyaltyHandler {
	return &LoyaltyHandler{svc: svc}
}

// Earn handles POST /loyalty/earn.
func (h *LoyaltyHandler) Earn(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req earnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateEarnRequest(validation.EarnRequest{
		MemberID:       req.MemberID,
		Amount:         req.Amount,
		SourceRef:      req.SourceRef,
		IdempotencyKey: req.IdempotencyKey,
		TTLDays:        req.TTLDays,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	res, err := h.svc.Earn(r.Context(), ledger.EarnParams{
		MemberID:       uuid.MustParse(req.MemberID),
		Amount:         req.Amount,
		SourceRef:      req.SourceRef,
		IdempotencyKey: req.IdempotencyKey,
		TTLDays:        req.TTLDays,
	})
	if err != nil {
		h.writeMutationError(w, err, requestID)
		return
	}

	status := http.StatusCreated
	if !res.Applied {
		status = http.StatusOK
	}
	response.Success(w, status, toMutationResponse(res), requestID)
}

// Redeem handles POST /loyalty/redeem.
func (h *LoyaltyHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateRedeemRequest(validation.RedeemRequest{
		MemberID:       req.MemberID,
		Amount:         req.Amount,
		SourceRef:      req.SourceRef,
		IdempotencyKey: req.IdempotencyKey,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	res, err := h.svc.Redeem(r.Context(), ledger.RedeemParams{
		MemberID:       uuid.MustParse(req.MemberID),
		Amount:         req.Amount,
		SourceRef:      req.SourceRef,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.writeMutationError(w, err, requestID)
		return
	}

	status := http.StatusCreated
	if !res.Applied {
		status = http.StatusOK
	}
	response.Success(w, status, toMutationResponse(res), requestID)
}

// AdminAdjust handles POST /loyalty/admin-adjust.
func (h *LoyaltyHandler) AdminAdjust(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req adminAdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateAdminAdjustRequest(validation.AdminAdjustRequest{
		MemberID:       req.MemberID,
		Amount:         req.Amount,
		ActorID:        req.ActorID,
		Reason:         req.Reason,
		IdempotencyKey: req.IdempotencyKey,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	res, err := h.svc.AdminAdjust(r.Context(), ledger.AdjustParams{
		MemberID:       uuid.MustParse(req.MemberID),
		Amount:         req.Amount,
		ActorID:        req.ActorID,
		Reason:         req.Reason,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.writeMutationError(w, err, requestID)
		return
	}

	status := http.StatusCreated
	if !res.Applied {
		status = http.StatusOK
	}
	response.Success(w, status, toMutationResponse(res), requestID)
}

// Balance handles GET /loyalty/balance/{memberId}.
func (h *LoyaltyHandler) Balance(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	memberID, err := uuid.Parse(chi.URLParam(r, "memberId"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "VALIDATION_ERROR", "memberId must be a valid UUID", requestID)
		return
	}

	status, err := h.svc.BalanceFor(r.Context(), memberID)
	if err != nil {
		slog.Error("failed to read balance", "memberId", memberID, "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read balance", requestID)
		return
	}

	response.Success(w, http.StatusOK, balanceResponse{
		MemberID:        status.MemberID.String(),
		Balance:         status.Balance,
		Version:         status.Version,
		Tier:            status.Tier,
		AsOf:            status.AsOf.UTC().Format(timeFormat),
		NextTier:        status.Progress.NextTier,
		PointsToNext:    status.Progress.PointsToNext,
		ProgressPercent: status.Progress.ProgressPercent,
	}, requestID)
}

// History handles GET /loyalty/history/{memberId}.
func (h *LoyaltyHandler) History(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	memberID, err := uuid.Parse(chi.URLParam(r, "memberId"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "VALIDATION_ERROR", "memberId must be a valid UUID", requestID)
		return
	}

	page := ledger.Page{
		Number: queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", ledger.DefaultHistoryLimit),
	}.Normalize()

	entries, total, err := h.svc.History(r.Context(), memberID, page)
	if err != nil {
		slog.Error("failed to list history", "memberId", memberID, "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list history", requestID)
		return
	}

	out := make([]transactionResponse, 0, len(entries))
	for i := range entries {
		out = append(out, toTransactionResponse(&entries[i]))
	}

	response.SuccessList(w, http.StatusOK, out, total, page.Number, page.Limit, requestID)
}

// Tiers handles GET /loyalty/tiers.
func (h *LoyaltyHandler) Tiers(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	response.Success(w, http.StatusOK, h.svc.Tiers(), requestID)
}

// SweepExpired handles POST /loyalty/sweep-expired.
func (h *LoyaltyHandler) SweepExpired(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	result, err := h.svc.SweepExpired(r.Context())
	if err != nil {
		slog.Error("sweep failed", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Sweep failed", requestID)
		return
	}

	response.Success(w, http.StatusOK, sweepResponse{
		MembersSwept:   result.MembersSwept,
		EntriesExpired: result.EntriesExpired,
		PointsExpired:  result.PointsExpired,
	}, requestID)
}

// writeMutationError maps service errors onto the envelope taxonomy.
func (h *LoyaltyHandler) writeMutationError(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		response.Err(w, http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE", "Balance is insufficient for this operation", requestID)
	case errors.Is(err, ledger.ErrBusy):
		response.Err(w, http.StatusConflict, "BUSY", "Member ledger is busy, retry with the same idempotency key", requestID)
	case errors.Is(err, ledger.ErrLockTimeout):
		response.Err(w, http.StatusServiceUnavailable, "BUSY", "Timed out waiting for the member ledger, retry with the same idempotency key", requestID)
	case errors.Is(err, ledger.ErrInvalidAdjustment):
		response.Err(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), requestID)
	default:
		slog.Error("mutation failed", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Mutation failed", requestID)
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
