package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository implements Repository in process memory. It honors the
// same contract as the Postgres implementation (idempotent append, version
// check, non-negative balance) and backs tests and local development.
type MemoryRepository struct {
	mu       sync.Mutex
	entries  map[uuid.UUID]Transaction
	order    map[uuid.UUID][]uuid.UUID // per member, commit order
	balances map[uuid.UUID]Balance
	now      func() time.Time
}

// NewMemoryRepository creates an empty in-memory ledger.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		entries:  make(map[uuid.UUID]Transaction),
		order:    make(map[uuid.UUID][]uuid.UUID),
		balances: make(map[uuid.UUID]Balance),
		now:      time.Now,
	}
}

// SetClock overrides the commit timestamp source.
func (r *MemoryRepository) SetClock(now func() time.Time) {
	r.now = now
}

// Append commits the entry and the balance delta atomically.
func (r *MemoryRepository) Append(_ context.Context, entry *Transaction, expectedVersion int64) (*Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Mirrors the schema's kind CHECK constraint.
	if !entry.Kind.Valid() {
		return nil, fmt.Errorf("invalid transaction kind %q", entry.Kind)
	}

	if _, exists := r.entries[entry.ID]; exists {
		return nil, ErrDuplicateTransaction
	}

	bal, ok := r.balances[entry.MemberID]
	if !ok {
		bal = Balance{MemberID: entry.MemberID}
	}
	if bal.Version != expectedVersion {
		return nil, ErrStaleVersion
	}
	if bal.CurrentBalance+entry.Amount < 0 {
		return nil, ErrInsufficientBalance
	}

	entry.CreatedAt = r.now()
	r.entries[entry.ID] = *entry
	r.order[entry.MemberID] = append(r.order[entry.MemberID], entry.ID)

	bal.CurrentBalance += entry.Amount
	bal.Version++
	bal.UpdatedAt = entry.CreatedAt
	r.balances[entry.MemberID] = bal

	out := bal
	return &out, nil
}

// FindTransaction retrieves a single ledger entry by id.
func (r *MemoryRepository) FindTransaction(_ context.Context, id uuid.UUID) (*Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	return &entry, nil
}

// ListByMember retrieves the member's entries newest-first with a total count.
func (r *MemoryRepository) ListByMember(_ context.Context, memberID uuid.UUID, page Page) ([]Transaction, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	page = page.Normalize()
	ids := r.order[memberID]
	total := len(ids)

	out := []Transaction{}
	for i := total - 1 - page.Offset(); i >= 0 && len(out) < page.Limit; i-- {
		out = append(out, r.entries[ids[i]])
	}
	return out, total, nil
}

// ReplayByMember retrieves every entry for the member oldest-first.
func (r *MemoryRepository) ReplayByMember(_ context.Context, memberID uuid.UUID) ([]Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.order[memberID]
	out := make([]Transaction, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.entries[id])
	}
	return out, nil
}

// GetBalance retrieves the member's cached balance.
func (r *MemoryRepository) GetBalance(_ context.Context, memberID uuid.UUID) (*Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bal, ok := r.balances[memberID]
	if !ok {
		return nil, ErrMemberNotFound
	}
	return &bal, nil
}

// MembersWithExpirable finds members holding earn entries past expiry that
// no expire entry references yet.
func (r *MemoryRepository) MembersWithExpirable(_ context.Context, now time.Time) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	expired := make(map[string]bool)
	for _, e := range r.entries {
		if e.Kind == KindExpire {
			expired[e.SourceRef] = true
		}
	}

	seen := make(map[uuid.UUID]bool)
	var members []uuid.UUID
	for _, e := range r.entries {
		if e.Kind != KindEarn || e.ExpiresAt == nil || e.ExpiresAt.After(now) {
			continue
		}
		if expired[e.ID.String()] || seen[e.MemberID] {
			continue
		}
		seen[e.MemberID] = true
		members = append(members, e.MemberID)
	}
	return members, nil
}
