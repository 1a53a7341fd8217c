package msgworker

import (
	"context"
	"sync"

	coreconfig "github.com/AzielCF/az-social/core/config"
	"github.com/sirupsen/logrus"
)

var (
	globalPool     *PublishWorkerPool
	globalPoolOnce sync.Once
	globalCancel   context.CancelFunc
)

// GetGlobalPool returns the process-wide publish pool, sized from core config.
func GetGlobalPool() *PublishWorkerPool {
	globalPoolOnce.Do(func() {
		var ctx context.Context
		ctx, globalCancel = context.WithCancel(context.Background())

		size, queue := 4, 100
		if cfg := coreconfig.Global; cfg != nil {
			if cfg.WorkerPool.Size > 0 {
				size = cfg.WorkerPool.Size
			}
			if cfg.WorkerPool.QueueSize > 0 {
				queue = cfg.WorkerPool.QueueSize
			}
		}

		globalPool = NewPublishWorkerPool(size, queue)
		globalPool.Start(ctx)
		logrus.Infof("[PUBLISH_POOL] Global instance started with %d workers and queue size %d", size, queue)
	})
	return globalPool
}

// StopGlobalPool drains and stops the global pool if it was started.
func StopGlobalPool() {
	if globalPool != nil {
		globalPool.Stop()
	}
	if globalCancel != nil {
		globalCancel()
	}
}
