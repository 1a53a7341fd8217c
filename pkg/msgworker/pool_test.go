package msgworker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startPool(t *testing.T, workers, queue int) *PublishWorkerPool {
	t.Helper()
	pool := NewPublishWorkerPool(workers, queue)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	t.Cleanup(func() {
		pool.Stop()
		cancel()
	})
	return pool
}

// TryDispatch no debe bloquear al caller aunque el job tarde
func TestPool_DispatchNonBlocking(t *testing.T) {
	pool := startPool(t, 2, 10)

	start := time.Now()
	ok := pool.TryDispatch(PublishJob{
		Key:   "a.jpg",
		JobID: "job-1",
		Handler: func(ctx context.Context) error {
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	})
	elapsed := time.Since(start)

	assert.True(t, ok)
	assert.Less(t, elapsed, 10*time.Millisecond, "dispatch must not wait for the handler")
}

// Jobs con la misma key se ejecutan en orden
func TestPool_SameKeySequentialProcessing(t *testing.T) {
	pool := startPool(t, 4, 100)

	var mu sync.Mutex
	var results []int
	for i := 1; i <= 5; i++ {
		val := i
		require.True(t, pool.TryDispatch(PublishJob{
			Key:   "campaign-1",
			JobID: fmt.Sprintf("job-%d", val),
			Handler: func(ctx context.Context) error {
				time.Sleep(10 * time.Millisecond)
				mu.Lock()
				results = append(results, val)
				mu.Unlock()
				return nil
			},
		}))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(results) == 5
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3, 4, 5}, results)
}

func TestPool_RespectsMaxWorkers(t *testing.T) {
	maxWorkers := 3
	pool := startPool(t, maxWorkers, 100)

	var active, maxActive, done int32
	for i := 0; i < 10; i++ {
		pool.TryDispatch(PublishJob{
			Key:   fmt.Sprintf("media-%d.jpg", i),
			JobID: fmt.Sprintf("job-%d", i),
			Handler: func(ctx context.Context) error {
				current := atomic.AddInt32(&active, 1)
				for {
					seen := atomic.LoadInt32(&maxActive)
					if current <= seen || atomic.CompareAndSwapInt32(&maxActive, seen, current) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				atomic.AddInt32(&done, 1)
				return nil
			},
		})
	}

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&done) == 10 }, 2*time.Second, 10*time.Millisecond)
	assert.LessOrEqual(t, atomic.LoadInt32(&maxActive), int32(maxWorkers))
}

// Stop debe esperar a que terminen los jobs en curso
func TestPool_GracefulShutdown(t *testing.T) {
	pool := NewPublishWorkerPool(2, 10)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	var completed int32
	var sawCancel atomic.Bool
	for i := 0; i < 2; i++ {
		pool.TryDispatch(PublishJob{
			Key:   fmt.Sprintf("k%d", i),
			JobID: fmt.Sprintf("job-%d", i),
			Handler: func(ctx context.Context) error {
				time.Sleep(50 * time.Millisecond)
				if ctx.Err() != nil {
					sawCancel.Store(true)
				}
				atomic.AddInt32(&completed, 1)
				return nil
			},
		})
	}
	time.Sleep(10 * time.Millisecond)

	cancel()
	pool.Stop()

	assert.Equal(t, int32(2), atomic.LoadInt32(&completed))
	assert.False(t, sawCancel.Load(), "in-flight publishes are not cancelled")
	assert.False(t, pool.TryDispatch(PublishJob{Key: "late", Handler: func(context.Context) error { return nil }}))
}

func TestPool_StatsAndHooks(t *testing.T) {
	pool := NewPublishWorkerPool(1, 5)
	var ended atomic.Int32
	pool.OnJobEnd = func(workerID int, job PublishJob, err error) {
		if err != nil {
			ended.Add(1)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop()

	pool.TryDispatch(PublishJob{Key: "x", JobID: "fail", Handler: func(context.Context) error { return errors.New("boom") }})
	pool.TryDispatch(PublishJob{Key: "x", JobID: "panic", Handler: func(context.Context) error { panic("bad client") }})

	assert.Eventually(t, func() bool { return pool.GetStats().TotalProcessed == 2 }, time.Second, 10*time.Millisecond)
	stats := pool.GetStats()
	assert.Equal(t, int64(2), stats.TotalDispatched)
	assert.Equal(t, int64(2), stats.TotalErrors)
	assert.Equal(t, int32(1), ended.Load())
	assert.Len(t, stats.WorkerStats, 1)
}

func TestPool_QueueFullDrops(t *testing.T) {
	pool := startPool(t, 1, 1)
	release := make(chan struct{})
	block := func(context.Context) error { <-release; return nil }

	require.True(t, pool.TryDispatch(PublishJob{Key: "k", JobID: "1", Handler: block}))
	assert.Eventually(t, func() bool { return pool.GetStats().ActiveWorkers == 1 }, time.Second, 5*time.Millisecond)
	require.True(t, pool.TryDispatch(PublishJob{Key: "k", JobID: "2", Handler: block}))
	assert.False(t, pool.TryDispatch(PublishJob{Key: "k", JobID: "3", Handler: block}))
	close(release)

	assert.Equal(t, int64(1), pool.GetStats().TotalDropped)
}

func TestPool_ConsistentHashing(t *testing.T) {
	pool := NewPublishWorkerPool(4, 100)
	first := pool.shardFor("schedule-123")
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, pool.shardFor("schedule-123"))
	}
	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, 4)
}

func TestPool_FairDistribution(t *testing.T) {
	pool := NewPublishWorkerPool(4, 100)
	counts := make(map[int]int)
	for i := 0; i < 400; i++ {
		counts[pool.shardFor(fmt.Sprintf("media-%d.jpg", i))]++
	}
	for shard, count := range counts {
		assert.Greater(t, count, 60, "worker %d is starved", shard)
		assert.Less(t, count, 140, "worker %d is overloaded", shard)
	}
}
