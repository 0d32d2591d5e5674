package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loyaltyhub/points-ledger/internal/event"
	"github.com/loyaltyhub/points-ledger/internal/metrics"
	"github.com/loyaltyhub/points-ledger/internal/tier"
)

// ErrBusy is returned when a mutation exhausted its optimistic retries.
// Transient; the caller may resubmit with the same idempotency key.
var ErrBusy = errors.New("member ledger busy, retry")

// ErrInvalidAdjustment is returned when an admin adjustment is missing its
// audit fields.
var ErrInvalidAdjustment = errors.New("invalid adjustment")

// maxVersionRetries bounds the optimistic retry loop. Under the member lock
// one attempt should suffice; the bound keeps the contract observable.
const maxVersionRetries = 3

// Namespaces for deriving deterministic entry ids. Idempotency keys map to
// the same transaction id on every retry; an earn lot maps to exactly one
// expire entry id, so a racing second sweeper hits the primary key instead
// of double-expiring.
var (
	idempotencyNamespace = uuid.MustParse("8a4e88cc-3e73-4cc0-9a39-7f51a8c21a0b")
	expireNamespace      = uuid.MustParse("c4d11f08-65cf-41b3-a07b-2ef71d3c96b4")
)

// TransactionID derives the ledger entry id from the member and the
// caller-supplied idempotency key. The member id is part of the name, so
// equal keys from different members never collide.
func TransactionID(memberID uuid.UUID, idempotencyKey string) uuid.UUID {
	name := make([]byte, 0, len(memberID)+len(idempotencyKey))
	name = append(name, memberID[:]...)
	name = append(name, idempotencyKey...)
	return uuid.NewSHA1(idempotencyNamespace, name)
}

// expireID derives the id of the expire entry closing the given earn lot.
func expireID(earnID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(expireNamespace, []byte(earnID.String()))
}

// ServiceConfig holds the tunables the service loads once at startup.
type ServiceConfig struct {
	Tiers       []tier.Definition
	EarnTTL     time.Duration
	LockTimeout time.Duration
	Now         func() time.Time
}

// Service implements the ledger mutation and read operations. All mutations
// for a member are serialized through the member lock before touching
// storage; reads go straight to the repository.
type Service struct {
	repo        Repository
	pub         event.Publisher
	locker      *MemberLocker
	tiers       []tier.Definition
	earnTTL     time.Duration
	lockTimeout time.Duration
	now         func() time.Time
}

// NewService creates a Service. An empty or invalid tier ladder falls back
// to the built-in defaults, so tier computation always has at least one tier
// to land on.
func NewService(repo Repository, pub event.Publisher, cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	lockTimeout := cfg.LockTimeout
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	tiers := cfg.Tiers
	if err := tier.ValidateDefinitions(tiers); err != nil {
		slog.Warn("invalid tier ladder, using built-in defaults", "error", err)
		tiers = tier.DefaultDefinitions()
	}
	return &Service{
		repo:        repo,
		pub:         pub,
		locker:      NewMemberLocker(),
		tiers:       tiers,
		earnTTL:     cfg.EarnTTL,
		lockTimeout: lockTimeout,
		now:         now,
	}
}

// Tiers returns the configured tier ladder.
func (s *Service) Tiers() []tier.Definition {
	return s.tiers
}

// MutationResult is the outcome of a committed (or replayed) mutation.
type MutationResult struct {
	Entry   *Transaction
	Balance int64
	Version int64
	Tier    string
	Applied bool // false when replayed from a previously applied key
}

// EarnParams are the inputs for crediting points.
type EarnParams struct {
	MemberID       uuid.UUID
	Amount         int64 // base amount before the tier multiplier
	SourceRef      string
	IdempotencyKey string
	TTLDays        int // 0 means the configured default
}

// Earn credits points to a member. The base amount is scaled by the member's
// current-tier multiplier (rounded down) and the resulting entry carries an
// expiry timestamp.
func (s *Service) Earn(ctx context.Context, p EarnParams) (*MutationResult, error) {
	if p.Amount <= 0 {
		return nil, fmt.Errorf("%w: earn amount must be positive", ErrInvalidAdjustment)
	}

	ttl := s.earnTTL
	if p.TTLDays > 0 {
		ttl = time.Duration(p.TTLDays) * 24 * time.Hour
	}

	return s.mutate(ctx, p.MemberID, p.IdempotencyKey, func(bal *Balance) (*Transaction, error) {
		currentTier := tier.Compute(bal.CurrentBalance, s.tiers)
		amount := int64(math.Floor(float64(p.Amount) * tier.MultiplierFor(currentTier, s.tiers)))
		expiresAt := s.now().Add(ttl)
		return &Transaction{
			ID:        TransactionID(p.MemberID, p.IdempotencyKey),
			MemberID:  p.MemberID,
			Kind:      KindEarn,
			Amount:    amount,
			SourceRef: p.SourceRef,
			ActorID:   p.MemberID.String(),
			ExpiresAt: &expiresAt,
		}, nil
	})
}

// RedeemParams are the inputs for spending points.
type RedeemParams struct {
	MemberID       uuid.UUID
	Amount         int64
	SourceRef      string
	IdempotencyKey string
}

// Redeem debits points from a member. Returns ErrInsufficientBalance when
// the member does not hold enough points; nothing is committed in that case.
func (s *Service) Redeem(ctx context.Context, p RedeemParams) (*MutationResult, error) {
	if p.Amount <= 0 {
		return nil, fmt.Errorf("%w: redeem amount must be positive", ErrInvalidAdjustment)
	}

	return s.mutate(ctx, p.MemberID, p.IdempotencyKey, func(bal *Balance) (*Transaction, error) {
		if bal.CurrentBalance-p.Amount < 0 {
			return nil, ErrInsufficientBalance
		}
		return &Transaction{
			ID:        TransactionID(p.MemberID, p.IdempotencyKey),
			MemberID:  p.MemberID,
			Kind:      KindRedeem,
			Amount:    -p.Amount,
			SourceRef: p.SourceRef,
			ActorID:   p.MemberID.String(),
		}, nil
	})
}

// AdjustParams are the inputs for an administrator-initiated adjustment.
type AdjustParams struct {
	MemberID       uuid.UUID
	Amount         int64 // signed: positive awards, negative deducts
	ActorID        string
	Reason         string
	IdempotencyKey string
}

// AdminAdjust records an administrative award or deduction. It follows the
// same append path and invariants as member-initiated mutations; the tier
// multiplier does not apply.
func (s *Service) AdminAdjust(ctx context.Context, p AdjustParams) (*MutationResult, error) {
	if p.Amount == 0 {
		return nil, fmt.Errorf("%w: amount must be non-zero", ErrInvalidAdjustment)
	}
	if strings.TrimSpace(p.Reason) == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidAdjustment)
	}
	if strings.TrimSpace(p.ActorID) == "" {
		return nil, fmt.Errorf("%w: actor id is required", ErrInvalidAdjustment)
	}

	kind := KindAdminAward
	if p.Amount < 0 {
		kind = KindAdminDeduct
	}

	return s.mutate(ctx, p.MemberID, p.IdempotencyKey, func(bal *Balance) (*Transaction, error) {
		if bal.CurrentBalance+p.Amount < 0 {
			return nil, ErrInsufficientBalance
		}
		return &Transaction{
			ID:        TransactionID(p.MemberID, p.IdempotencyKey),
			MemberID:  p.MemberID,
			Kind:      kind,
			Amount:    p.Amount,
			SourceRef: "admin",
			ActorID:   p.ActorID,
			Note:      p.Reason,
		}, nil
	})
}

// mutate runs one serialized mutation: acquire the member lock, replay a
// duplicate key if present, otherwise build the entry against the current
// balance and append with a bounded optimistic retry.
func (s *Service) mutate(ctx context.Context, memberID uuid.UUID, idempotencyKey string, build func(*Balance) (*Transaction, error)) (*MutationResult, error) {
	if strings.TrimSpace(idempotencyKey) == "" {
		return nil, fmt.Errorf("%w: idempotency key is required", ErrInvalidAdjustment)
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	release, err := s.locker.Acquire(lockCtx, memberID)
	if err != nil {
		return nil, err
	}
	defer release()

	start := s.now()

	if res, err := s.replayDuplicate(ctx, memberID, idempotencyKey); err != nil || res != nil {
		return res, err
	}

	for attempt := 0; attempt < maxVersionRetries; attempt++ {
		bal, err := s.currentBalance(ctx, memberID)
		if err != nil {
			return nil, err
		}
		oldTier := tier.Compute(bal.CurrentBalance, s.tiers)

		entry, err := build(bal)
		if err != nil {
			return nil, err
		}

		newBal, err := s.repo.Append(ctx, entry, bal.Version)
		if errors.Is(err, ErrStaleVersion) {
			metrics.VersionConflicts.Inc()
			continue
		}
		if errors.Is(err, ErrDuplicateTransaction) {
			return s.replayDuplicate(ctx, memberID, idempotencyKey)
		}
		if err != nil {
			return nil, err
		}

		newTier := tier.Compute(newBal.CurrentBalance, s.tiers)
		s.emitTierChange(memberID, oldTier, newTier, newBal.CurrentBalance)

		metrics.TransactionsTotal.WithLabelValues(string(entry.Kind)).Inc()
		metrics.MutationDuration.WithLabelValues(string(entry.Kind)).Observe(s.now().Sub(start).Seconds())

		return &MutationResult{
			Entry:   entry,
			Balance: newBal.CurrentBalance,
			Version: newBal.Version,
			Tier:    newTier,
			Applied: true,
		}, nil
	}

	return nil, ErrBusy
}

// replayDuplicate returns the prior outcome when the idempotency key was
// already applied, or (nil, nil) when it was not.
func (s *Service) replayDuplicate(ctx context.Context, memberID uuid.UUID, idempotencyKey string) (*MutationResult, error) {
	entry, err := s.repo.FindTransaction(ctx, TransactionID(memberID, idempotencyKey))
	if errors.Is(err, ErrTransactionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	bal, err := s.currentBalance(ctx, memberID)
	if err != nil {
		return nil, err
	}

	metrics.DuplicateSubmissions.Inc()
	slog.Info("replaying already-applied mutation",
		"memberId", memberID,
		"transactionId", entry.ID,
		"kind", entry.Kind,
	)

	return &MutationResult{
		Entry:   entry,
		Balance: bal.CurrentBalance,
		Version: bal.Version,
		Tier:    tier.Compute(bal.CurrentBalance, s.tiers),
		Applied: false,
	}, nil
}

// currentBalance reads the cached balance, treating an unknown member as a
// zero balance at version 0.
func (s *Service) currentBalance(ctx context.Context, memberID uuid.UUID) (*Balance, error) {
	bal, err := s.repo.GetBalance(ctx, memberID)
	if errors.Is(err, ErrMemberNotFound) {
		return &Balance{MemberID: memberID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading current balance: %w", err)
	}
	return bal, nil
}

func (s *Service) emitTierChange(memberID uuid.UUID, oldTier, newTier string, balance int64) {
	if oldTier == newTier || s.pub == nil {
		return
	}
	metrics.TierChanges.Inc()
	s.pub.PublishTierChanged(event.TierChanged{
		MemberID:   memberID,
		OldTier:    oldTier,
		NewTier:    newTier,
		Balance:    balance,
		OccurredAt: s.now(),
	})
}

// SweepResult summarizes an expiration sweep pass.
type SweepResult struct {
	MembersSwept   int
	EntriesExpired int
	PointsExpired  int64
}

// SweepExpired expires the remaining portion of every earn entry past its
// TTL, across all members. Safe to repeat: fully expired lots produce no
// further entries.
func (s *Service) SweepExpired(ctx context.Context) (*SweepResult, error) {
	now := s.now()

	members, err := s.repo.MembersWithExpirable(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("listing members with expirable entries: %w", err)
	}

	result := &SweepResult{}
	for _, memberID := range members {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		entries, points, err := s.sweepMember(ctx, memberID, now)
		if err != nil {
			slog.Error("sweep failed for member", "memberId", memberID, "error", err)
			continue
		}
		if entries > 0 {
			result.MembersSwept++
			result.EntriesExpired += entries
			result.PointsExpired += points
		}
	}

	metrics.SweepRuns.Inc()
	metrics.SweptPoints.Add(float64(result.PointsExpired))
	return result, nil
}

// sweepMember expires the member's stale lots under the same lock as live
// mutations, so a concurrent redemption cannot consume a lot mid-expiry.
func (s *Service) sweepMember(ctx context.Context, memberID uuid.UUID, now time.Time) (int, int64, error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	release, err := s.locker.Acquire(lockCtx, memberID)
	if err != nil {
		return 0, 0, err
	}
	defer release()

	history, err := s.repo.ReplayByMember(ctx, memberID)
	if err != nil {
		return 0, 0, err
	}

	expirable := ExpirableLots(ReplayLots(history), now)
	if len(expirable) == 0 {
		return 0, 0, nil
	}

	bal, err := s.currentBalance(ctx, memberID)
	if err != nil {
		return 0, 0, err
	}
	oldTier := tier.Compute(bal.CurrentBalance, s.tiers)

	var entries int
	var points int64
	version := bal.Version
	balance := bal.CurrentBalance

	for _, lot := range expirable {
		entry := &Transaction{
			ID:        expireID(lot.Entry.ID),
			MemberID:  memberID,
			Kind:      KindExpire,
			Amount:    -lot.Remaining,
			SourceRef: lot.Entry.ID.String(),
			ActorID:   "sweeper",
		}

		newBal, err := s.repo.Append(ctx, entry, version)
		if errors.Is(err, ErrDuplicateTransaction) {
			// Another sweeper already closed this lot.
			continue
		}
		if err != nil {
			return entries, points, fmt.Errorf("appending expire entry: %w", err)
		}

		version = newBal.Version
		balance = newBal.CurrentBalance
		entries++
		points += lot.Remaining
		metrics.TransactionsTotal.WithLabelValues(string(KindExpire)).Inc()
	}

	newTier := tier.Compute(balance, s.tiers)
	s.emitTierChange(memberID, oldTier, newTier, balance)

	slog.Info("swept expired points",
		"memberId", memberID,
		"entries", entries,
		"points", points,
	)
	return entries, points, nil
}

// BalanceStatus is the read-side view of a member's standing.
type BalanceStatus struct {
	MemberID uuid.UUID
	Balance  int64
	Version  int64
	Tier     string
	Progress tier.Progress
	AsOf     time.Time
}

// BalanceFor returns the member's current balance, tier, and progress toward
// the next tier. Members with no history read as zero balance in the lowest
// tier. No lock is taken.
func (s *Service) BalanceFor(ctx context.Context, memberID uuid.UUID) (*BalanceStatus, error) {
	bal, err := s.currentBalance(ctx, memberID)
	if err != nil {
		return nil, err
	}
	asOf := bal.UpdatedAt
	if asOf.IsZero() {
		asOf = s.now()
	}
	return &BalanceStatus{
		MemberID: memberID,
		Balance:  bal.CurrentBalance,
		Version:  bal.Version,
		Tier:     tier.Compute(bal.CurrentBalance, s.tiers),
		Progress: tier.NextProgress(bal.CurrentBalance, s.tiers),
		AsOf:     asOf,
	}, nil
}

// History returns the member's ledger entries newest-first. No lock is taken.
func (s *Service) History(ctx context.Context, memberID uuid.UUID, page Page) ([]Transaction, int, error) {
	return s.repo.ListByMember(ctx, memberID, page)
}
