package processor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanPoolBoundsConcurrency(t *testing.T) {
	pool := NewScanPool(2)
	ctx := context.Background()

	require.NoError(t, pool.Acquire(ctx))
	require.NoError(t, pool.Acquire(ctx))
	assert.Equal(t, 2, pool.Active())
	assert.Equal(t, 2, pool.Capacity())

	// The pool is full; a third acquire must wait until its context ends.
	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := pool.Acquire(waitCtx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	pool.Release()
	assert.Equal(t, 1, pool.Active())
	require.NoError(t, pool.Acquire(ctx))
}

func TestScanPoolCancelledContext(t *testing.T) {
	pool := NewScanPool(1)
	require.NoError(t, pool.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pool.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanPoolMinimumCapacity(t *testing.T) {
	pool := NewScanPool(0)
	assert.Equal(t, 1, pool.Capacity())
}

func TestScanPoolReleaseWithoutAcquire(t *testing.T) {
	pool := NewScanPool(1)
	// Must not panic or block.
	pool.Release()
	assert.Equal(t, 0, pool.Active())
}
