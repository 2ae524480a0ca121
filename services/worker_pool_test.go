package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallPoolBoundsConcurrency(t *testing.T) {
	pool := NewCallPool(2)
	defer pool.Close()

	var current, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = pool.Do(context.Background(), func(ctx context.Context) (string, error) {
				n := atomic.AddInt32(&current, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&current, -1)
				return "ok", nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestCallPoolReturnsResult(t *testing.T) {
	pool := NewCallPool(1)
	defer pool.Close()

	got, err := pool.Do(context.Background(), func(ctx context.Context) (string, error) {
		return "kết quả", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "kết quả", got)
}

func TestCallPoolContextCancelledWhileWaiting(t *testing.T) {
	pool := NewCallPool(1)
	defer pool.Close()

	release := make(chan struct{})
	go pool.Do(context.Background(), func(ctx context.Context) (string, error) {
		<-release
		return "", nil
	})
	time.Sleep(10 * time.Millisecond) // chờ call đầu chiếm slot

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := pool.Do(ctx, func(ctx context.Context) (string, error) {
		return "không chạy", nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

func TestCallPoolCloseWaitsForInFlight(t *testing.T) {
	pool := NewCallPool(2)

	var done int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Do(context.Background(), func(ctx context.Context) (string, error) {
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&done, 1)
				return "", nil
			})
		}()
	}
	time.Sleep(5 * time.Millisecond)

	pool.Close()
	assert.Equal(t, int32(2), atomic.LoadInt32(&done))
	wg.Wait()
}
