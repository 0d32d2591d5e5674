package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrLockTimeout is returned when a mutation gives up waiting for the member
// lock. Nothing was committed; the caller may retry the whole request.
var ErrLockTimeout = errors.New("timed out waiting for member lock")

// MemberLocker serializes mutations per member. Mutations for different
// members proceed in parallel; within one member the commit order is exactly
// the lock acquisition order. Reads never take this lock.
type MemberLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*memberLock
}

type memberLock struct {
	sem  chan struct{}
	refs int
}

// NewMemberLocker creates an empty lock table.
func NewMemberLocker() *MemberLocker {
	return &MemberLocker{locks: make(map[uuid.UUID]*memberLock)}
}

// Acquire blocks until the member's exclusive section is held or ctx is
// done. On success it returns the release function; on timeout it returns
// ErrLockTimeout and the member's lock state is unchanged.
func (l *MemberLocker) Acquire(ctx context.Context, memberID uuid.UUID) (func(), error) {
	l.mu.Lock()
	ml, ok := l.locks[memberID]
	if !ok {
		ml = &memberLock{sem: make(chan struct{}, 1)}
		l.locks[memberID] = ml
	}
	ml.refs++
	l.mu.Unlock()

	select {
	case ml.sem <- struct{}{}:
		return func() {
			<-ml.sem
			l.put(memberID, ml)
		}, nil
	case <-ctx.Done():
		l.put(memberID, ml)
		return nil, fmt.Errorf("%w: %w", ErrLockTimeout, ctx.Err())
	}
}

// put drops one reference and removes the entry once nobody holds or waits.
func (l *MemberLocker) put(memberID uuid.UUID, ml *memberLock) {
	l.mu.Lock()
	ml.refs--
	if ml.refs == 0 {
		delete(l.locks, memberID)
	}
	l.mu.Unlock()
}
