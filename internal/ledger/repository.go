package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateTransaction is returned when an entry with the same id was
// already committed. Callers treat it as "already applied", not a failure.
var ErrDuplicateTransaction = errors.New("transaction already applied")

// ErrTransactionNotFound is returned when a ledger entry does not exist.
var ErrTransactionNotFound = errors.New("transaction not found")

// ErrMemberNotFound is returned when a member has no balance row yet.
var ErrMemberNotFound = errors.New("member not found")

// ErrStaleVersion is returned when the balance row changed between read and
// write. Transient; the service retries under the member lock.
var ErrStaleVersion = errors.New("stale balance version")

// ErrInsufficientBalance is returned when a debit would drive the balance
// negative. Business rule violation, never retried.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Repository provides durable, append-only access to the points ledger and
// the cached balance row that is maintained in the same unit of work.
type Repository interface {
	// Append commits the entry and the balance delta atomically. The balance
	// row is locked for the duration of the transaction; expectedVersion must
	// match the stored version or ErrStaleVersion is returned. A member with
	// no balance row yet has expectedVersion 0. Appending an id that already
	// exists returns ErrDuplicateTransaction and changes nothing.
	Append(ctx context.Context, entry *Transaction, expectedVersion int64) (*Balance, error)

	// FindTransaction returns the entry with the given id, or
	// ErrTransactionNotFound.
	FindTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// ListByMember returns the member's entries newest-first along with the
	// total entry count for pagination.
	ListByMember(ctx context.Context, memberID uuid.UUID, page Page) ([]Transaction, int, error)

	// ReplayByMember returns every entry for the member oldest-first, the
	// order required for FIFO lot replay.
	ReplayByMember(ctx context.Context, memberID uuid.UUID) ([]Transaction, error)

	// GetBalance returns the member's cached balance, or ErrMemberNotFound.
	GetBalance(ctx context.Context, memberID uuid.UUID) (*Balance, error)

	// MembersWithExpirable returns ids of members holding at least one earn
	// entry past its expiry that has no expire entry referencing it yet. The
	// result may overreport (a referenced earn may turn out fully consumed);
	// the sweep replay settles the exact remaining amount per lot.
	MembersWithExpirable(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}
