package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberLocker_MutualExclusion(t *testing.T) {
	t.Parallel()

	locker := NewMemberLocker()
	memberID := uuid.New()
	ctx := context.Background()

	var inSection int
	var maxInSection int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			release, err := locker.Acquire(ctx, memberID)
			require.NoError(t, err)
			defer release()

			mu.Lock()
			inSection++
			if inSection > maxInSection {
				maxInSection = inSection
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inSection--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInSection)
}

func TestMemberLocker_DifferentMembersDoNotBlock(t *testing.T) {
	t.Parallel()

	locker := NewMemberLocker()
	ctx := context.Background()

	releaseA, err := locker.Acquire(ctx, uuid.New())
	require.NoError(t, err)
	defer releaseA()

	// A second member acquires immediately even while the first is held.
	ctxB, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	releaseB, err := locker.Acquire(ctxB, uuid.New())
	require.NoError(t, err)
	releaseB()
}

func TestMemberLocker_TimeoutWhileHeld(t *testing.T) {
	t.Parallel()

	locker := NewMemberLocker()
	memberID := uuid.New()

	release, err := locker.Acquire(context.Background(), memberID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = locker.Acquire(ctx, memberID)
	assert.ErrorIs(t, err, ErrLockTimeout)

	// The holder is unaffected and the lock is reusable after release.
	release()
	release2, err := locker.Acquire(context.Background(), memberID)
	require.NoError(t, err)
	release2()
}

func TestMemberLocker_AcquisitionOrderIsServed(t *testing.T) {
	t.Parallel()

	locker := NewMemberLocker()
	memberID := uuid.New()
	ctx := context.Background()

	release, err := locker.Acquire(ctx, memberID)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		r, err := locker.Acquire(ctx, memberID)
		assert.NoError(t, err)
		r()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	release()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock after release")
	}
}
