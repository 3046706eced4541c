package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Incia94/mongoose-storage-driver-preempt/metric"
)

// defaultPollInterval bounds how long an idle worker blocks on the queue
// before re-reading the lifecycle state.
const defaultPollInterval = 50 * time.Millisecond

// entry is one schedulable unit on the queue: either a single work item or
// a pre-formed, owned batch.
type entry[T any] struct {
	single  T
	batch   []T
	isBatch bool
}

// Pool is a fixed-size worker pool draining a shared bounded queue in
// batches of up to batchSize entries per worker iteration.
type Pool[T any] struct {
	// Configuration
	workers      int
	queueSize    int
	batchSize    int
	action       func(T)
	batchAction  func([]T)
	pollInterval time.Duration
	logger       *slog.Logger

	// Runtime state
	queue   chan entry[T]
	state   atomic.Int32
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	done    chan struct{}
	metrics *poolMetrics

	// Lifecycle management
	lifecycleMu sync.Mutex
	started     bool

	// Counters (atomic)
	active    atomic.Int32
	scheduled atomic.Int64
	completed atomic.Int64
	dropped   atomic.Int64

	// Metrics configuration
	metricsRegistry *metric.MetricsRegistry
	metricsPrefix   string
}

// poolMetrics holds Prometheus metrics for pool monitoring
type poolMetrics struct {
	queueDepth    prometheus.Gauge
	utilization   prometheus.Gauge
	activeWorkers prometheus.Gauge
	scheduled     prometheus.Counter
	completed     prometheus.Counter
	dropped       prometheus.Counter
	panics        prometheus.Counter
	batchSize     prometheus.Histogram
}

// Option represents a configuration option for the pool
type Option[T any] func(*Pool[T])

// WithMetricsRegistry configures the pool to register metrics with the
// given registry under the given prefix
func WithMetricsRegistry[T any](registry *metric.MetricsRegistry, prefix string) Option[T] {
	return func(p *Pool[T]) {
		p.metricsRegistry = registry
		p.metricsPrefix = prefix
	}
}

// WithLogger sets the pool logger
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(p *Pool[T]) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPollInterval overrides how long an idle worker blocks before
// re-checking the lifecycle state
func WithPollInterval[T any](d time.Duration) Option[T] {
	return func(p *Pool[T]) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// NewPool creates a pool of workers goroutines draining a queue of queueSize
// entries, coalescing up to batchSize entries per worker iteration. action
// handles one item, batchAction handles several in arrival order.
func NewPool[T any](workers, queueSize, batchSize int, action func(T), batchAction func([]T), opts ...Option[T]) *Pool[T] {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1000
	}
	if batchSize < 1 {
		batchSize = 1
	}
	if action == nil || batchAction == nil {
		panic(ErrNilAction)
	}

	pool := &Pool[T]{
		workers:      workers,
		queueSize:    queueSize,
		batchSize:    batchSize,
		action:       action,
		batchAction:  batchAction,
		pollInterval: defaultPollInterval,
		logger:       slog.Default(),
		queue:        make(chan entry[T], queueSize),
		done:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(pool)
	}

	if pool.metricsRegistry != nil && pool.metricsPrefix != "" {
		pool.initializeMetrics()
	}

	return pool
}

// initializeMetrics creates and registers metrics with the registry
func (p *Pool[T]) initializeMetrics() {
	prefix := p.metricsPrefix

	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: prefix + "_queue_depth",
		Help: "Current pool queue depth",
	})
	utilization := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: prefix + "_utilization",
		Help: "Pool queue utilization (0-1)",
	})
	activeWorkers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: prefix + "_active_workers",
		Help: "Workers currently executing work",
	})
	scheduled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: prefix + "_scheduled_total",
		Help: "Total work entries accepted onto the queue",
	})
	completed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: prefix + "_completed_total",
		Help: "Total work entries finished by workers",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: prefix + "_dropped_total",
		Help: "Total submissions rejected due to a full queue",
	})
	panics := prometheus.NewCounter(prometheus.CounterOpts{
		Name: prefix + "_action_panics_total",
		Help: "Total panics recovered from work actions",
	})
	batchSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    prefix + "_batch_size",
		Help:    "Number of items dispatched per batch action call",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	serviceName := "worker_pool"
	p.metricsRegistry.RegisterGauge(serviceName, prefix+"_queue_depth", queueDepth)
	p.metricsRegistry.RegisterGauge(serviceName, prefix+"_utilization", utilization)
	p.metricsRegistry.RegisterGauge(serviceName, prefix+"_active_workers", activeWorkers)
	p.metricsRegistry.RegisterCounter(serviceName, prefix+"_scheduled_total", scheduled)
	p.metricsRegistry.RegisterCounter(serviceName, prefix+"_completed_total", completed)
	p.metricsRegistry.RegisterCounter(serviceName, prefix+"_dropped_total", dropped)
	p.metricsRegistry.RegisterCounter(serviceName, prefix+"_action_panics_total", panics)
	p.metricsRegistry.RegisterHistogram(serviceName, prefix+"_batch_size", batchSize)

	p.metrics = &poolMetrics{
		queueDepth:    queueDepth,
		utilization:   utilization,
		activeWorkers: activeWorkers,
		scheduled:     scheduled,
		completed:     completed,
		dropped:       dropped,
		panics:        panics,
		batchSize:     batchSize,
	}
}

// State returns a relaxed snapshot of the lifecycle state. It may lag a
// concurrent transition by one worker iteration.
func (p *Pool[T]) State() State {
	return State(p.state.Load())
}

// Start launches all workers eagerly. ctx cancellation forces termination
// the same way Stop does.
func (p *Pool[T]) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	switch p.State() {
	case StateInitial:
	case StateStarted:
		return ErrPoolAlreadyStarted
	default:
		return ErrPoolStopped
	}

	p.runCtx, p.cancel = context.WithCancel(ctx)
	p.state.Store(int32(StateStarted))
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	if p.metrics != nil {
		go p.metricsUpdater()
	}

	go func() {
		p.wg.Wait()
		close(p.done)
	}()

	p.logger.Debug("pool started", "workers", p.workers, "queue_size", p.queueSize, "batch_size", p.batchSize)
	return nil
}

// Submit places one work item on the queue without blocking. ErrQueueFull
// means the queue is at capacity and the submission may be retried;
// ErrPoolNotStarted and ErrPoolStopped are terminal.
func (p *Pool[T]) Submit(v T) error {
	if err := p.acceptable(); err != nil {
		return err
	}

	select {
	case p.queue <- entry[T]{single: v}:
		p.scheduled.Add(1)
		if p.metrics != nil {
			p.metrics.scheduled.Inc()
		}
		return nil
	default:
		p.dropped.Add(1)
		if p.metrics != nil {
			p.metrics.dropped.Inc()
		}
		return ErrQueueFull
	}
}

// SubmitBatch places a pre-formed batch on the queue as one entry. The
// batch is dispatched to the batch action exactly as given, never coalesced
// with other entries. The pool takes ownership of the slice; callers must
// not reuse it.
func (p *Pool[T]) SubmitBatch(vs []T) error {
	if err := p.acceptable(); err != nil {
		return err
	}

	select {
	case p.queue <- entry[T]{batch: vs, isBatch: true}:
		p.scheduled.Add(1)
		if p.metrics != nil {
			p.metrics.scheduled.Inc()
		}
		return nil
	default:
		p.dropped.Add(1)
		if p.metrics != nil {
			p.metrics.dropped.Inc()
		}
		return ErrQueueFull
	}
}

// acceptable reports whether submissions are currently allowed
func (p *Pool[T]) acceptable() error {
	switch p.State() {
	case StateStarted:
		return nil
	case StateInitial:
		return ErrPoolNotStarted
	default:
		return ErrPoolStopped
	}
}

// Shutdown stops intake and discards every queued-but-undispatched entry.
// Workers finish entries they have already drained and exit once the queue
// is empty. Discarded entries are never executed and never counted
// completed.
func (p *Pool[T]) Shutdown() {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.state.CompareAndSwap(int32(StateStarted), int32(StateShutdown)) {
		return
	}

	discarded := 0
	for {
		select {
		case <-p.queue:
			discarded++
		default:
			p.logger.Debug("pool shut down", "discarded", discarded)
			return
		}
	}
}

// Stop forces termination: the state moves to Stopped and the run context
// is cancelled so idle workers wake immediately. Workers still execute
// entries they had already drained. Stop then waits up to timeout for all
// workers to exit, returning ErrStopTimeout if they do not. If ctx is
// cancelled while waiting the force has already been applied and the
// context error is returned to the caller.
func (p *Pool[T]) Stop(ctx context.Context, timeout time.Duration) error {
	p.lifecycleMu.Lock()
	if !p.started {
		p.state.Store(int32(StateStopped))
		p.lifecycleMu.Unlock()
		return nil
	}
	p.state.Store(int32(StateStopped))
	p.cancel()
	p.lifecycleMu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.done:
		p.logger.Debug("pool stopped")
		return nil
	case <-timer.C:
		p.logger.Warn("workers did not stop in time", "timeout", timeout)
		return ErrStopTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Await blocks until all workers have exited or the timeout elapses,
// reporting whether termination completed in time.
func (p *Pool[T]) Await(timeout time.Duration) bool {
	p.lifecycleMu.Lock()
	started := p.started
	p.lifecycleMu.Unlock()
	if !started {
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.done:
		return true
	case <-timer.C:
		return false
	}
}

// Active returns the number of workers currently executing work
func (p *Pool[T]) Active() int {
	return int(p.active.Load())
}

// Scheduled returns the cumulative number of entries accepted onto the
// queue, including entries later discarded by Shutdown
func (p *Pool[T]) Scheduled() int64 {
	return p.scheduled.Load()
}

// Completed returns the cumulative number of entries finished by workers
func (p *Pool[T]) Completed() int64 {
	return p.completed.Load()
}

// IsIdle reports whether zero workers are currently executing. Queued but
// undispatched entries do not count.
func (p *Pool[T]) IsIdle() bool {
	return p.active.Load() == 0
}

// QueueDepth returns the number of entries currently queued
func (p *Pool[T]) QueueDepth() int {
	return len(p.queue)
}

// Stats returns a snapshot of the pool counters
func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Workers:    p.workers,
		QueueSize:  p.queueSize,
		BatchSize:  p.batchSize,
		QueueDepth: len(p.queue),
		Active:     int(p.active.Load()),
		Scheduled:  p.scheduled.Load(),
		Completed:  p.completed.Load(),
		Dropped:    p.dropped.Load(),
	}
}

// PoolStats represents pool counters at one instant
type PoolStats struct {
	Workers    int   `json:"workers"`
	QueueSize  int   `json:"queue_size"`
	BatchSize  int   `json:"batch_size"`
	QueueDepth int   `json:"queue_depth"`
	Active     int   `json:"active"`
	Scheduled  int64 `json:"scheduled"`
	Completed  int64 `json:"completed"`
	Dropped    int64 `json:"dropped"`
}

// worker runs the drain-and-batch loop until told to stop
func (p *Pool[T]) worker(id int) {
	defer p.wg.Done()

	log := p.logger.With("worker", id)
	log.Debug("worker started")

	buf := make([]entry[T], 0, p.batchSize)
	for {
		if p.runCtx.Err() != nil {
			// Forced stop: finish what was already pulled off the queue so
			// drained work is not silently lost.
			p.dispatch(buf)
			log.Debug("worker interrupted")
			return
		}

		state := p.State()
		buf = p.drain(buf)
		n := len(buf)

		if state == StateShutdown && n == 0 {
			log.Debug("shutdown requested and nothing left to do, exiting")
			return
		}
		if state != StateInitial && state != StateStarted && state != StateShutdown {
			p.dispatch(buf)
			log.Debug("worker exiting", "state", state.String())
			return
		}

		if n == 0 {
			// Idle: block for the first entry, bounded so lifecycle
			// transitions are observed within one poll interval.
			select {
			case e := <-p.queue:
				buf = append(buf, e)
			case <-p.runCtx.Done():
			case <-time.After(p.pollInterval):
			}
			continue
		}

		p.dispatch(buf)
		buf = buf[:0]
	}
}

// drain performs non-blocking receives until buf holds batchSize entries or
// the queue is momentarily empty. Channel receive semantics guarantee no
// entry is delivered to two workers.
func (p *Pool[T]) drain(buf []entry[T]) []entry[T] {
	for len(buf) < p.batchSize {
		select {
		case e := <-p.queue:
			buf = append(buf, e)
		default:
			return buf
		}
	}
	return buf
}

// dispatch executes drained entries in arrival order. Consecutive single
// items are coalesced: one item goes to the single action, several to the
// batch action. Pre-formed batches always go to the batch action alone.
func (p *Pool[T]) dispatch(entries []entry[T]) {
	if len(entries) == 0 {
		return
	}

	p.active.Add(1)
	defer p.active.Add(-1)

	singles := make([]T, 0, len(entries))
	flush := func() {
		switch len(singles) {
		case 0:
			return
		case 1:
			p.invoke(func() { p.action(singles[0]) })
		default:
			if p.metrics != nil {
				p.metrics.batchSize.Observe(float64(len(singles)))
			}
			p.invoke(func() { p.batchAction(singles) })
		}
		p.completed.Add(int64(len(singles)))
		if p.metrics != nil {
			p.metrics.completed.Add(float64(len(singles)))
		}
		singles = singles[:0]
	}

	for _, e := range entries {
		if e.isBatch {
			flush()
			batch := e.batch
			if p.metrics != nil {
				p.metrics.batchSize.Observe(float64(len(batch)))
			}
			p.invoke(func() { p.batchAction(batch) })
			p.completed.Add(1)
			if p.metrics != nil {
				p.metrics.completed.Inc()
			}
			continue
		}
		singles = append(singles, e.single)
	}
	flush()
}

// invoke runs one action call, logging and swallowing panics so a bad work
// item never kills the worker
func (p *Pool[T]) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("unexpected worker failure", "panic", r)
			if p.metrics != nil {
				p.metrics.panics.Inc()
			}
		}
	}()
	fn()
}

// metricsUpdater periodically refreshes gauge metrics
func (p *Pool[T]) metricsUpdater() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-p.runCtx.Done():
			return
		case <-ticker.C:
			depth := float64(len(p.queue))
			p.metrics.queueDepth.Set(depth)
			p.metrics.utilization.Set(depth / float64(p.queueSize))
			p.metrics.activeWorkers.Set(float64(p.active.Load()))
		}
	}
}
