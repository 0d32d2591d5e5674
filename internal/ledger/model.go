package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies a ledger entry. The set is closed: every consumer switches
// exhaustively so a new kind cannot be silently ignored.
type Kind string

const (
	KindEarn        Kind = "earn"
	KindRedeem      Kind = "redeem"
	KindExpire      Kind = "expire"
	KindAdminAward  Kind = "admin_award"
	KindAdminDeduct Kind = "admin_deduct"
)

// Valid reports whether k is one of the defined transaction kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindEarn, KindRedeem, KindExpire, KindAdminAward, KindAdminDeduct:
		return true
	}
	return false
}

// Credits reports whether entries of this kind add points to the balance.
// Credit kinds open a consumable lot; debit kinds deplete lots FIFO.
func (k Kind) Credits() bool {
	switch k {
	case KindEarn, KindAdminAward:
		return true
	case KindRedeem, KindExpire, KindAdminDeduct:
		return false
	}
	return false
}

// Transaction is an immutable row in the points ledger. Once written it is
// never updated or deleted; corrections are new compensating entries.
type Transaction struct {
	ID        uuid.UUID
	MemberID  uuid.UUID
	Kind      Kind
	Amount    int64 // signed: credits positive, debits negative
	SourceRef string
	ActorID   string
	Note      string
	ExpiresAt *time.Time // set only for earn entries
	CreatedAt time.Time
}

// Balance is the cached per-member aggregate. Version is a monotonic counter
// incremented on every committed mutation; it backs the optimistic write check.
type Balance struct {
	MemberID       uuid.UUID
	CurrentBalance int64
	Version        int64
	UpdatedAt      time.Time
}

// Page holds pagination parameters for history queries.
type Page struct {
	Number int
	Limit  int
}

// DefaultHistoryLimit is the history page size when the caller does not ask
// for one. MaxHistoryLimit caps what a caller may request.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

// Normalize clamps a Page to valid bounds.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultHistoryLimit
	}
	if p.Limit > MaxHistoryLimit {
		p.Limit = MaxHistoryLimit
	}
	return p
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}
