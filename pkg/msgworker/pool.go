package msgworker

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// PublishJob es un trabajo de publicación manual ("Post Now"). Jobs con la misma Key se
// ejecutan en orden en el mismo worker.
type PublishJob struct {
	Key     string
	JobID   string
	Handler func(ctx context.Context) error
}

// PoolStats son las métricas en tiempo real del pool
type PoolStats struct {
	NumWorkers      int            `json:"num_workers"`
	QueueSize       int            `json:"queue_size"`
	ActiveWorkers   int            `json:"active_workers"`
	TotalDispatched int64          `json:"total_dispatched"`
	TotalProcessed  int64          `json:"total_processed"`
	TotalDropped    int64          `json:"total_dropped"`
	TotalErrors     int64          `json:"total_errors"`
	Uptime          string         `json:"uptime"`
	WorkerStats     []WorkerStats  `json:"worker_stats"`
	ActiveKeys      map[string]int `json:"active_keys"` // key -> worker_id
}

type WorkerStats struct {
	WorkerID      int   `json:"worker_id"`
	QueueDepth    int   `json:"queue_depth"`
	IsProcessing  bool  `json:"is_processing"`
	JobsProcessed int64 `json:"jobs_processed"`
}

type activeKeyEntry struct {
	workerID  int
	updatedAt time.Time
}

// activeKeyTTL es lo que una key sigue visible en las stats tras su último dispatch.
const activeKeyTTL = 2 * time.Second

// PublishWorkerPool reparte jobs de publicación entre workers por hash de la key.
type PublishWorkerPool struct {
	numWorkers int
	queueSize  int
	workers    []*worker
	wg         sync.WaitGroup
	stopOnce   sync.Once
	stopped    atomic.Bool
	stopCh     chan struct{}

	totalDispatched atomic.Int64
	totalProcessed  atomic.Int64
	totalDropped    atomic.Int64
	totalErrors     atomic.Int64
	activeKeysMu    sync.Mutex
	activeKeys      map[string]activeKeyEntry
	startTime       time.Time

	OnJobStart func(workerID int, job PublishJob)
	OnJobEnd   func(workerID int, job PublishJob, err error)
}

type worker struct {
	id            int
	jobQueue      chan PublishJob
	ctx           context.Context
	cancel        context.CancelFunc
	isProcessing  atomic.Bool
	jobsProcessed atomic.Int64
	pool          *PublishWorkerPool
}

func NewPublishWorkerPool(numWorkers, queueSize int) *PublishWorkerPool {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &PublishWorkerPool{
		numWorkers: numWorkers,
		queueSize:  queueSize,
		workers:    make([]*worker, numWorkers),
		activeKeys: make(map[string]activeKeyEntry),
		stopCh:     make(chan struct{}),
		startTime:  time.Now(),
	}
}

// Start arranca los workers y el limpiador de keys activas.
func (p *PublishWorkerPool) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			case now := <-ticker.C:
				p.pruneActiveKeys(now)
			}
		}
	}()

	for i := 0; i < p.numWorkers; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		w := &worker{
			id:       i,
			jobQueue: make(chan PublishJob, p.queueSize),
			ctx:      workerCtx,
			cancel:   cancel,
			pool:     p,
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run(&p.wg)
	}

	logrus.Infof("[PUBLISH_POOL] Started with %d workers, queue size: %d", p.numWorkers, p.queueSize)
}

// TryDispatch encola el job sin bloquear. Devuelve false si la cola del worker está
// llena o el pool ya se detuvo, para aplicar backpressure en la API.
func (p *PublishWorkerPool) TryDispatch(job PublishJob) bool {
	if p.stopped.Load() {
		p.totalDropped.Add(1)
		return false
	}

	shard := p.shardFor(job.Key)
	p.totalDispatched.Add(1)

	p.activeKeysMu.Lock()
	p.activeKeys[job.Key] = activeKeyEntry{workerID: shard, updatedAt: time.Now()}
	p.activeKeysMu.Unlock()

	sent := func() (ok bool) {
		// Stop puede cerrar la cola entre la comprobación y el envío.
		defer func() {
			if r := recover(); r != nil {
				ok = false
			}
		}()
		select {
		case p.workers[shard].jobQueue <- job:
			return true
		default:
			return false
		}
	}()
	if sent {
		return true
	}

	p.activeKeysMu.Lock()
	delete(p.activeKeys, job.Key)
	p.activeKeysMu.Unlock()

	p.totalDropped.Add(1)
	logrus.Warnf("[PUBLISH_POOL] Worker %d queue full (or stopped), dropping job %s", shard, job.JobID)
	return false
}

// Stop detiene el pool esperando a que terminen los jobs en curso.
func (p *PublishWorkerPool) Stop() {
	p.stopOnce.Do(func() {
		p.stopped.Store(true)
		close(p.stopCh)
		logrus.Info("[PUBLISH_POOL] Stopping workers...")

		for _, w := range p.workers {
			if w == nil {
				continue
			}
			w.cancel()
			close(w.jobQueue)
		}
		p.wg.Wait()

		logrus.Info("[PUBLISH_POOL] All workers stopped")
	})
}

func (p *PublishWorkerPool) shardFor(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.numWorkers))
}

func (p *PublishWorkerPool) pruneActiveKeys(now time.Time) {
	p.activeKeysMu.Lock()
	defer p.activeKeysMu.Unlock()
	for k, v := range p.activeKeys {
		if now.Sub(v.updatedAt) > activeKeyTTL {
			delete(p.activeKeys, k)
		}
	}
}

func (p *PublishWorkerPool) GetStats() PoolStats {
	workerStats := make([]WorkerStats, 0, len(p.workers))
	activeWorkers := 0
	for _, w := range p.workers {
		if w == nil {
			continue
		}
		busy := w.isProcessing.Load()
		if busy {
			activeWorkers++
		}
		workerStats = append(workerStats, WorkerStats{
			WorkerID:      w.id,
			QueueDepth:    len(w.jobQueue),
			IsProcessing:  busy,
			JobsProcessed: w.jobsProcessed.Load(),
		})
	}

	p.pruneActiveKeys(time.Now())
	p.activeKeysMu.Lock()
	active := make(map[string]int, len(p.activeKeys))
	for k, v := range p.activeKeys {
		active[k] = v.workerID
	}
	p.activeKeysMu.Unlock()

	return PoolStats{
		NumWorkers:      p.numWorkers,
		QueueSize:       p.queueSize,
		ActiveWorkers:   activeWorkers,
		TotalDispatched: p.totalDispatched.Load(),
		TotalProcessed:  p.totalProcessed.Load(),
		TotalDropped:    p.totalDropped.Load(),
		TotalErrors:     p.totalErrors.Load(),
		Uptime:          time.Since(p.startTime).Round(time.Second).String(),
		WorkerStats:     workerStats,
		ActiveKeys:      active,
	}
}

func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()
	logrus.Debugf("[PUBLISH_POOL] Worker %d started", w.id)

	for {
		select {
		case job, ok := <-w.jobQueue:
			if !ok {
				logrus.Debugf("[PUBLISH_POOL] Worker %d shutting down", w.id)
				return
			}
			w.process(job)
		case <-w.ctx.Done():
			// Contexto cancelado: vaciar la cola antes de salir
			logrus.Debugf("[PUBLISH_POOL] Worker %d context cancelled, draining queue...", w.id)
			for {
				select {
				case job, ok := <-w.jobQueue:
					if !ok {
						return
					}
					w.process(job)
				default:
					return
				}
			}
		}
	}
}

func (w *worker) process(job PublishJob) {
	var err error
	if w.pool.OnJobStart != nil {
		w.pool.OnJobStart(w.id, job)
	}
	w.isProcessing.Store(true)
	defer func() {
		if r := recover(); r != nil {
			w.pool.totalErrors.Add(1)
			logrus.Errorf("[PUBLISH_POOL] Worker %d panic in job %s: %v", w.id, job.JobID, r)
		}
		if w.pool.OnJobEnd != nil {
			w.pool.OnJobEnd(w.id, job, err)
		}
		w.isProcessing.Store(false)
		w.jobsProcessed.Add(1)
		w.pool.totalProcessed.Add(1)
	}()

	// Publishing must finish even while the pool drains.
	err = job.Handler(context.WithoutCancel(w.ctx))
	if err != nil {
		w.pool.totalErrors.Add(1)
		logrus.WithError(err).Errorf("[PUBLISH_POOL] Worker %d job %s failed", w.id, job.JobID)
	}
}
