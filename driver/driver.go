package driver

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/Incia94/mongoose-storage-driver-preempt/errors"
	"github.com/Incia94/mongoose-storage-driver-preempt/metric"
	"github.com/Incia94/mongoose-storage-driver-preempt/op"
	"github.com/Incia94/mongoose-storage-driver-preempt/pkg/worker"
)

// BatchModeInputOpCountLimit is the absolute ceiling on the product of the
// queue capacity and the batch size. Exceeding it risks out-of-memory;
// construction warns but does not reject.
const BatchModeInputOpCountLimit = 1_000_000

// defaultStopWait bounds how long Close waits for workers before reporting
// a forced stop.
const defaultStopWait = time.Second

// Sentinel errors for the submission path
var (
	// ErrClosed indicates the driver accepts no further operations: it was
	// never started, or it has been shut down or stopped. Producers must
	// stop submitting.
	ErrClosed = stderrors.New("driver closed")

	// ErrQueueFull indicates the submission queue is at capacity. Pure
	// backpressure; producers may retry.
	ErrQueueFull = worker.ErrQueueFull
)

// Protocol supplies the storage-specific behavior the dispatcher is generic
// over. Implementations perform the actual I/O and own every status
// transition except the preparation-failure mark.
type Protocol interface {
	// Prepare validates and primes an operation before execution. A false
	// return means "do not execute, mark failed".
	Prepare(o *op.Operation) bool

	// IsBatch decides whether a submitted range should become one batch
	// work item
	IsBatch(ops []*op.Operation) bool

	// Execute performs one operation and eventually marks its completion
	// status. Expected failures are signaled via the status, never by
	// panicking; a panic is treated as a programming error, logged by the
	// worker and swallowed.
	Execute(o *op.Operation)

	// ExecuteBatch performs a batch of operations in order, marking each
	// operation's completion status
	ExecuteBatch(ops []*op.Operation)
}

// Config carries the capacity parameters, all fixed at construction
type Config struct {
	// WorkerCount is the fixed number of workers, required > 0
	WorkerCount int
	// QueueCapacity bounds the submission queue, required > 0
	QueueCapacity int
	// DownstreamCapacity is the capacity of the downstream result queue.
	// Used only for the overflow-risk warning, not enforced.
	DownstreamCapacity int
	// BatchSize is the maximum number of work items a worker drains per
	// iteration, required >= 1
	BatchSize int
}

// validate checks the hard requirements; capacity-product overflow is
// warned about separately
func (c Config) validate() error {
	if c.WorkerCount <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "driver", "New", "worker count must be positive")
	}
	if c.QueueCapacity <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "driver", "New", "queue capacity must be positive")
	}
	if c.BatchSize < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "driver", "New", "batch size must be at least 1")
	}
	return nil
}

// task is one schedulable unit: an operation plus the outcome of its
// preparation. A prep-failed task is a no-op that only marks the failure
// status when a worker dequeues it.
type task struct {
	op         *op.Operation
	prepFailed bool
}

// Driver dispatches submitted operations to the worker pool and exposes
// lifecycle control and counters
type Driver struct {
	name     string
	protocol Protocol
	cfg      Config
	pool     *worker.Pool[task]
	logger   *slog.Logger
}

// Option configures optional driver features
type Option func(*options)

type options struct {
	registry *metric.MetricsRegistry
	poolOpts []worker.Option[task]
}

// WithMetricsRegistry registers the pool metrics under the driver name
func WithMetricsRegistry(registry *metric.MetricsRegistry) Option {
	return func(o *options) {
		o.registry = registry
	}
}

// WithPollInterval overrides the idle worker poll interval
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.poolOpts = append(o.poolOpts, worker.WithPollInterval[task](d))
	}
}

// New constructs a driver over the given protocol. The capacity parameters
// are validated; an overflow-prone combination is warned about but
// accepted.
func New(name string, protocol Protocol, cfg Config, logger *slog.Logger, opts ...Option) (*Driver, error) {
	if protocol == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "driver", "New", "protocol must not be nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("driver", name)

	maxOpCount := cfg.QueueCapacity * cfg.BatchSize
	if cfg.DownstreamCapacity > 0 && maxOpCount > cfg.DownstreamCapacity {
		logger.Warn("the product of the batch size and queue capacity exceeds the downstream queue capacity, "+
			"which may cause result handling failures, consider tuning",
			"max_op_count", maxOpCount, "downstream_capacity", cfg.DownstreamCapacity)
	}
	if maxOpCount > BatchModeInputOpCountLimit {
		logger.Warn("the product of the batch size and queue capacity may cause out of memory, consider tuning",
			"max_op_count", maxOpCount, "limit", BatchModeInputOpCountLimit)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	d := &Driver{
		name:     name,
		protocol: protocol,
		cfg:      cfg,
		logger:   logger,
	}

	poolOpts := append(o.poolOpts, worker.WithLogger[task](logger))
	if o.registry != nil {
		poolOpts = append(poolOpts, worker.WithMetricsRegistry[task](o.registry, name))
	}
	d.pool = worker.NewPool(cfg.WorkerCount, cfg.QueueCapacity, cfg.BatchSize,
		d.runOne, d.runMany, poolOpts...)

	return d, nil
}

// runOne executes a single drained task
func (d *Driver) runOne(t task) {
	if t.prepFailed {
		t.op.SetStatus(op.StatusFailUnknown)
		return
	}
	d.protocol.Execute(t.op)
}

// runMany executes a drained batch: coalesced singles may include
// prep-failed no-ops, which are marked and skipped
func (d *Driver) runMany(ts []task) {
	ops := make([]*op.Operation, 0, len(ts))
	for _, t := range ts {
		if t.prepFailed {
			t.op.SetStatus(op.StatusFailUnknown)
			continue
		}
		ops = append(ops, t.op)
	}
	switch len(ops) {
	case 0:
	case 1:
		d.protocol.Execute(ops[0])
	default:
		d.protocol.ExecuteBatch(ops)
	}
}

// Start launches all workers eagerly
func (d *Driver) Start(ctx context.Context) error {
	if err := d.pool.Start(ctx); err != nil {
		return errors.Wrap(err, "driver", "Start", "start worker pool")
	}
	d.logger.Debug("started")
	return nil
}

// Submit prepares one operation and enqueues it without blocking.
// ErrQueueFull is soft backpressure; ErrClosed is terminal. A preparation
// failure still consumes the submission: a no-op work item is accepted
// that marks the operation StatusFailUnknown when dequeued.
func (d *Driver) Submit(o *op.Operation) error {
	t := task{op: o, prepFailed: !d.protocol.Prepare(o)}
	return d.mapSubmitErr(d.pool.Submit(t))
}

// SubmitRange submits the half-open sub-range ops[from:to]. If the
// protocol reports the range batch-eligible, the whole range is
// snapshotted and enqueued as one batch work item and the full range
// counts accepted; otherwise elements are enqueued individually up to the
// first queue-full rejection. The returned count is how many operations
// were accepted; the caller is expected to retry the remainder. ErrClosed
// is returned only when the driver is not accepting work at all, checked
// once up front.
func (d *Driver) SubmitRange(ops []*op.Operation, from, to int) (int, error) {
	if from < 0 || to > len(ops) || from > to {
		return 0, errors.WrapInvalid(errors.ErrInvalidOperation, "driver", "SubmitRange", "range out of bounds")
	}
	if d.pool.State() != worker.StateStarted {
		return 0, ErrClosed
	}
	if from == to {
		return 0, nil
	}

	rng := ops[from:to]
	if d.protocol.IsBatch(rng) {
		// Snapshot the range: the caller may reuse or clear its slice as
		// soon as this call returns.
		batch := make([]task, 0, len(rng))
		for _, o := range rng {
			d.protocol.Prepare(o)
			batch = append(batch, task{op: o})
		}
		if err := d.pool.SubmitBatch(batch); err != nil {
			return 0, d.softenMidRange(err)
		}
		return len(rng), nil
	}

	n := 0
	for _, o := range rng {
		if err := d.Submit(o); err != nil {
			// The up-front state check passed; rejections mid-loop are
			// reported through the accepted count, not as an error.
			break
		}
		n++
	}
	return n, nil
}

// SubmitAll submits the entire slice as one range
func (d *Driver) SubmitAll(ops []*op.Operation) (int, error) {
	return d.SubmitRange(ops, 0, len(ops))
}

// mapSubmitErr translates pool sentinels into the driver's submission
// taxonomy
func (d *Driver) mapSubmitErr(err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, worker.ErrQueueFull):
		return ErrQueueFull
	default:
		return ErrClosed
	}
}

// softenMidRange suppresses queue-full errors after the up-front terminal
// check, so a range submission reports them via the accepted count
func (d *Driver) softenMidRange(err error) error {
	if stderrors.Is(err, worker.ErrQueueFull) {
		return nil
	}
	return ErrClosed
}

// Shutdown stops intake and discards queued-but-undispatched work items.
// Best-effort: only work already drained by a worker finishes.
func (d *Driver) Shutdown() {
	d.pool.Shutdown()
	d.logger.Debug("shut down")
}

// Stop forces worker termination and waits up to timeout for them to exit.
// A cancellation of ctx while waiting is propagated after the force has
// been applied.
func (d *Driver) Stop(ctx context.Context, timeout time.Duration) error {
	d.logger.Debug("interrupting")
	err := d.pool.Stop(ctx, timeout)
	if err != nil {
		return errors.Wrap(err, "driver", "Stop", "stop worker pool")
	}
	d.logger.Debug("interrupted")
	return nil
}

// Close shuts the driver down and stops it with the default bounded wait
func (d *Driver) Close(ctx context.Context) error {
	d.Shutdown()
	return d.Stop(ctx, defaultStopWait)
}

// Await blocks until all workers have exited or the timeout elapses,
// reporting whether termination completed in time
func (d *Driver) Await(timeout time.Duration) bool {
	return d.pool.Await(timeout)
}

// ActiveOpCount returns the number of workers currently executing
func (d *Driver) ActiveOpCount() int {
	return d.pool.Active()
}

// ScheduledOpCount returns the cumulative number of work items accepted,
// including prep-failed no-ops and items later discarded by Shutdown. A
// batch range counts as one work item.
func (d *Driver) ScheduledOpCount() int64 {
	return d.pool.Scheduled()
}

// CompletedOpCount returns the cumulative number of work items finished by
// workers. A batch range counts as one work item.
func (d *Driver) CompletedOpCount() int64 {
	return d.pool.Completed()
}

// IsIdle reports whether zero workers are currently executing. Queued but
// undispatched work does not count.
func (d *Driver) IsIdle() bool {
	return d.pool.IsIdle()
}

// QueueDepth returns the number of work items currently queued
func (d *Driver) QueueDepth() int {
	return d.pool.QueueDepth()
}
