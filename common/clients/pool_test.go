package clients

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolBorrowReturn(t *testing.T) {
	var built int32
	pool, err := NewPool(2, func() (int, error) {
		return int(atomic.AddInt32(&built, 1)), nil
	}, nil)
	require.NoError(t, err)
	defer pool.Close()

	assert.EqualValues(t, 2, built)

	a, err := pool.Borrow(context.Background())
	require.NoError(t, err)
	b, err := pool.Borrow(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	pool.Return(a)
	pool.Return(b)
}

func TestPoolBorrowBlocksUntilReturn(t *testing.T) {
	pool, err := NewPool(1, func() (string, error) { return "client", nil }, nil)
	require.NoError(t, err)
	defer pool.Close()

	item, err := pool.Borrow(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pool.Borrow(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	pool.Return(item)
	got, err := pool.Borrow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "client", got)
	pool.Return(got)
}

func TestPoolDoReturnsOnError(t *testing.T) {
	pool, err := NewPool(1, func() (string, error) { return "client", nil }, nil)
	require.NoError(t, err)
	defer pool.Close()

	boom := errors.New("boom")
	require.ErrorIs(t, pool.Do(context.Background(), func(string) error { return boom }), boom)

	// the instance must be back despite the error
	got, err := pool.Borrow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "client", got)
	pool.Return(got)
}

func TestPoolDoUnderContention(t *testing.T) {
	pool, err := NewPool(3, func() (int, error) { return 0, nil }, nil)
	require.NoError(t, err)
	defer pool.Close()

	var inFlight, maxInFlight int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.Do(context.Background(), func(int) error {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					old := atomic.LoadInt32(&maxInFlight)
					if n <= old || atomic.CompareAndSwapInt32(&maxInFlight, old, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(3))
}

func TestPoolCloseTearsDown(t *testing.T) {
	var closed int32
	pool, err := NewPool(2, func() (int, error) { return 7, nil }, func(int) {
		atomic.AddInt32(&closed, 1)
	})
	require.NoError(t, err)

	item, err := pool.Borrow(context.Background())
	require.NoError(t, err)

	pool.Close()
	assert.EqualValues(t, 1, closed)

	// a late return tears the instance down instead of re-pooling it
	pool.Return(item)
	assert.EqualValues(t, 2, closed)
}

func TestPoolRejectsNonPositiveSize(t *testing.T) {
	_, err := NewPool(0, func() (int, error) { return 0, nil }, nil)
	require.Error(t, err)
}
