package validation_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/loyaltyhub/points-ledger/internal/api/validation"
)

func fieldNames(errs []validation.FieldError) []string {
	names := make([]string, 0, len(errs))
	for _, e := range errs {
		names = append(names, e.Field)
	}
	return names
}

func TestValidateEarnRequest(t *testing.T) {
	t.Parallel()

	valid := validation.EarnRequest{
		MemberID:       uuid.NewString(),
		Amount:         100,
		SourceRef:      "stay-42",
		IdempotencyKey: "key-1",
		TTLDays:        30,
	}

	tests := []struct {
		name       string
		mutate     func(*validation.EarnRequest)
		wantFields []string
	}{
		{
			name:   "valid request",
			mutate: func(r *validation.EarnRequest) {},
		},
		{
			name:       "missing member id",
			mutate:     func(r *validation.EarnRequest) { r.MemberID = "" },
			wantFields: []string{"memberId"},
		},
		{
			name:       "malformed member id",
			mutate:     func(r *validation.EarnRequest) { r.MemberID = "abc" },
			wantFields: []string{"memberId"},
		},
		{
			name:       "zero amount",
			mutate:     func(r *validation.EarnRequest) { r.Amount = 0 },
			wantFields: []string{"amount"},
		},
		{
			name:       "negative amount",
			mutate:     func(r *validation.EarnRequest) { r.Amount = -10 },
			wantFields: []string{"amount"},
		},
		{
			name:       "blank source ref",
			mutate:     func(r *validation.EarnRequest) { r.SourceRef = "   " },
			wantFields: []string{"sourceRef"},
		},
		{
			name:       "missing idempotency key",
			mutate:     func(r *validation.EarnRequest) { r.IdempotencyKey = "" },
			wantFields: []string{"idempotencyKey"},
		},
		{
			name:       "oversized idempotency key",
			mutate:     func(r *validation.EarnRequest) { r.IdempotencyKey = strings.Repeat("x", 256) },
			wantFields: []string{"idempotencyKey"},
		},
		{
			name:       "negative ttl",
			mutate:     func(r *validation.EarnRequest) { r.TTLDays = -1 },
			wantFields: []string{"ttlDays"},
		},
		{
			name: "multiple failures reported together",
			mutate: func(r *validation.EarnRequest) {
				r.MemberID = ""
				r.Amount = 0
			},
			wantFields: []string{"memberId", "amount"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)

			errs := validation.ValidateEarnRequest(req)
			assert.ElementsMatch(t, tt.wantFields, fieldNames(errs))
		})
	}
}

func TestValidateRedeemRequest(t *testing.T) {
	t.Parallel()

	errs := validation.ValidateRedeemRequest(validation.RedeemRequest{
		MemberID:       uuid.NewString(),
		Amount:         50,
		SourceRef:      "booking-7",
		IdempotencyKey: "key-1",
	})
	assert.Empty(t, errs)

	errs = validation.ValidateRedeemRequest(validation.RedeemRequest{})
	assert.ElementsMatch(t, []string{"memberId", "amount", "sourceRef", "idempotencyKey"}, fieldNames(errs))
}

func TestValidateAdminAdjustRequest(t *testing.T) {
	t.Parallel()

	valid := validation.AdminAdjustRequest{
		MemberID:       uuid.NewString(),
		Amount:         -40,
		ActorID:        "admin-7",
		Reason:         "fraud reversal",
		IdempotencyKey: "key-1",
	}
	assert.Empty(t, validation.ValidateAdminAdjustRequest(valid))

	zeroAmount := valid
	zeroAmount.Amount = 0
	assert.ElementsMatch(t, []string{"amount"}, fieldNames(validation.ValidateAdminAdjustRequest(zeroAmount)))

	noActor := valid
	noActor.ActorID = " "
	assert.ElementsMatch(t, []string{"actorId"}, fieldNames(validation.ValidateAdminAdjustRequest(noActor)))

	noReason := valid
	noReason.Reason = ""
	assert.ElementsMatch(t, []string{"reason"}, fieldNames(validation.ValidateAdminAdjustRequest(noReason)))

	longReason := valid
	longReason.Reason = strings.Repeat("r", 1001)
	assert.ElementsMatch(t, []string{"reason"}, fieldNames(validation.ValidateAdminAdjustRequest(longReason)))
}
