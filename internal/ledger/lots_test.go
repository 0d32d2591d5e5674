package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lotBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func earnEntry(amount int64, createdOffset, ttl time.Duration) Transaction {
	created := lotBase.Add(createdOffset)
	expires := created.Add(ttl)
	return Transaction{
		ID:        uuid.New(),
		MemberID:  uuid.New(),
		Kind:      KindEarn,
		Amount:    amount,
		CreatedAt: created,
		ExpiresAt: &expires,
	}
}

func debitEntry(kind Kind, amount int64, createdOffset time.Duration) Transaction {
	return Transaction{
		ID:        uuid.New(),
		Kind:      kind,
		Amount:    -amount,
		CreatedAt: lotBase.Add(createdOffset),
	}
}

func TestReplayLots_EarnOnly(t *testing.T) {
	t.Parallel()

	e := earnEntry(100, 0, 24*time.Hour)
	lots := ReplayLots([]Transaction{e})

	require.Len(t, lots, 1)
	assert.Equal(t, int64(100), lots[0].Remaining)
}

func TestReplayLots_RedeemConsumesOldestFirst(t *testing.T) {
	t.Parallel()

	first := earnEntry(100, 0, 24*time.Hour)
	second := earnEntry(100, time.Hour, 24*time.Hour)
	redeem := debitEntry(KindRedeem, 130, 2*time.Hour)

	lots := ReplayLots([]Transaction{first, second, redeem})

	require.Len(t, lots, 2)
	assert.Equal(t, int64(0), lots[0].Remaining)
	assert.Equal(t, int64(70), lots[1].Remaining)
}

func TestReplayLots_AdminDeductConsumesLikeRedeem(t *testing.T) {
	t.Parallel()

	e := earnEntry(100, 0, 24*time.Hour)
	deduct := debitEntry(KindAdminDeduct, 40, time.Hour)

	lots := ReplayLots([]Transaction{e, deduct})

	require.Len(t, lots, 1)
	assert.Equal(t, int64(60), lots[0].Remaining)
}

func TestReplayLots_ExpireClosesNamedLot(t *testing.T) {
	t.Parallel()

	e := earnEntry(100, 0, time.Hour)
	expire := Transaction{
		ID:        uuid.New(),
		Kind:      KindExpire,
		Amount:    -100,
		SourceRef: e.ID.String(),
		CreatedAt: lotBase.Add(2 * time.Hour),
	}

	lots := ReplayLots([]Transaction{e, expire})

	require.Len(t, lots, 1)
	assert.Equal(t, int64(0), lots[0].Remaining)
}

func TestReplayLots_AdminAwardOpensLot(t *testing.T) {
	t.Parallel()

	award := Transaction{ID: uuid.New(), Kind: KindAdminAward, Amount: 50, CreatedAt: lotBase}
	redeem := debitEntry(KindRedeem, 20, time.Hour)

	lots := ReplayLots([]Transaction{award, redeem})

	require.Len(t, lots, 1)
	assert.Equal(t, int64(30), lots[0].Remaining)
}

func TestExpirableLots_PartiallyConsumed(t *testing.T) {
	t.Parallel()

	// Earn 100 with a short TTL, redeem 60 before expiry: only the
	// remaining 40 is expirable.
	e := earnEntry(100, 0, 24*time.Hour)
	redeem := debitEntry(KindRedeem, 60, time.Hour)

	lots := ReplayLots([]Transaction{e, redeem})
	expirable := ExpirableLots(lots, lotBase.Add(25*time.Hour))

	require.Len(t, expirable, 1)
	assert.Equal(t, int64(40), expirable[0].Remaining)
}

func TestExpirableLots_FullyConsumedProducesNothing(t *testing.T) {
	t.Parallel()

	e := earnEntry(100, 0, 24*time.Hour)
	redeem := debitEntry(KindRedeem, 100, time.Hour)

	lots := ReplayLots([]Transaction{e, redeem})
	assert.Empty(t, ExpirableLots(lots, lotBase.Add(25*time.Hour)))
}

func TestExpirableLots_NotYetExpired(t *testing.T) {
	t.Parallel()

	e := earnEntry(100, 0, 24*time.Hour)
	lots := ReplayLots([]Transaction{e})

	assert.Empty(t, ExpirableLots(lots, lotBase.Add(time.Hour)))
	// The expiry instant itself is inclusive.
	assert.Len(t, ExpirableLots(lots, lotBase.Add(24*time.Hour)), 1)
}

func TestExpirableLots_AdminAwardNeverExpires(t *testing.T) {
	t.Parallel()

	award := Transaction{ID: uuid.New(), Kind: KindAdminAward, Amount: 50, CreatedAt: lotBase}
	lots := ReplayLots([]Transaction{award})

	assert.Empty(t, ExpirableLots(lots, lotBase.Add(1000*time.Hour)))
}

func TestReplayLots_ExpireNeverExceedsRemaining(t *testing.T) {
	t.Parallel()

	// An expire amount larger than the lot clamps at zero instead of going
	// negative.
	e := earnEntry(100, 0, time.Hour)
	over := Transaction{
		ID:        uuid.New(),
		Kind:      KindExpire,
		Amount:    -150,
		SourceRef: e.ID.String(),
		CreatedAt: lotBase.Add(2 * time.Hour),
	}

	lots := ReplayLots([]Transaction{e, over})
	require.Len(t, lots, 1)
	assert.Equal(t, int64(0), lots[0].Remaining)
}
