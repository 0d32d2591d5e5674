package validation

import (
	"strings"

	"github.com/google/uuid"
)

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func validateMemberID(errs []FieldError, memberID string) []FieldError {
	if memberID == "" {
		return append(errs, FieldError{Field: "memberId", Message: "memberId is required"})
	}
	if _, err := uuid.Parse(memberID); err != nil {
		return append(errs, FieldError{Field: "memberId", Message: "memberId must be a valid UUID"})
	}
	return errs
}

func validateIdempotencyKey(errs []FieldError, key string) []FieldError {
	key = strings.TrimSpace(key)
	if key == "" {
		return append(errs, FieldError{Field: "idempotencyKey", Message: "idempotencyKey is required"})
	}
	if len(key) > 255 {
		return append(errs, FieldError{Field: "idempotencyKey", Message: "idempotencyKey must be at most 255 characters"})
	}
	return errs
}

// EarnRequest mirrors the fields needed for earn validation.
type EarnRequest struct {
	MemberID       string
	Amount         int64
	SourceRef      string
	IdempotencyKey string
	TTLDays        int
}

// ValidateEarnRequest validates the fields of an earn request.
func ValidateEarnRequest(req EarnRequest) []FieldError {
	var errs []FieldError

	errs = validateMemberID(errs, req.MemberID)
	errs = validateIdempotencyKey(errs, req.IdempotencyKey)

	if req.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "amount must be positive"})
	}
	if strings.TrimSpace(req.SourceRef) == "" {
		errs = append(errs, FieldError{Field: "sourceRef", Message: "sourceRef is required"})
	}
	if req.TTLDays < 0 {
		errs = append(errs, FieldError{Field: "ttlDays", Message: "ttlDays must not be negative"})
	}

	return errs
}

// RedeemRequest mirrors the fields needed for redeem validation.
type RedeemRequest struct {
	MemberID       string
	Amount         int64
	SourceRef      string
	IdempotencyKey string
}

// ValidateRedeemRequest validates the fields of a redeem request.
func ValidateRedeemRequest(req RedeemRequest) []FieldError {
	var errs []FieldError

	errs = validateMemberID(errs, req.MemberID)
	errs = validateIdempotencyKey(errs, req.IdempotencyKey)

	if req.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "amount must be positive"})
	}
	if strings.TrimSpace(req.SourceRef) == "" {
		errs = append(errs, FieldError{Field: "sourceRef", Message: "sourceRef is required"})
	}

	return errs
}

// AdminAdjustRequest mirrors the fields needed for admin adjust validation.
type AdminAdjustRequest struct {
	MemberID       string
	Amount         int64
	ActorID        string
	Reason         string
	IdempotencyKey string
}

// ValidateAdminAdjustRequest validates the fields of an admin adjustment.
func ValidateAdminAdjustRequest(req AdminAdjustRequest) []FieldError {
	var errs []FieldError

	errs = validateMemberID(errs, req.MemberID)
	errs = validateIdempotencyKey(errs, req.IdempotencyKey)

	if req.Amount == 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "amount must be non-zero"})
	}
	if strings.TrimSpace(req.ActorID) == "" {
		errs = append(errs, FieldError{Field: "actorId", Message: "actorId is required"})
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		errs = append(errs, FieldError{Field: "reason", Message: "reason is required"})
	} else if len(reason) > 1000 {
		errs = append(errs, FieldError{Field: "reason", Message: "reason must be at most 1000 characters"})
	}

	return errs
}
