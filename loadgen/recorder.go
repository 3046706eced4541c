package loadgen

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Incia94/mongoose-storage-driver-preempt/op"
)

// Recorder is the downstream result queue: a bounded channel of completed
// operations and a consumer tallying their terminal statuses. Offer is the
// protocol's completion hook; when the queue is full the completion is
// counted as overflow rather than blocking a worker.
type Recorder struct {
	queue    chan *op.Operation
	logger   *slog.Logger
	overflow atomic.Int64

	mu       sync.Mutex
	byStatus map[op.Status]int64
	total    int64
}

// NewRecorder creates a recorder with the given queue capacity
func NewRecorder(capacity int, logger *slog.Logger) *Recorder {
	if capacity < 1 {
		capacity = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		queue:    make(chan *op.Operation, capacity),
		logger:   logger.With("component", "recorder"),
		byStatus: make(map[op.Status]int64),
	}
}

// Offer enqueues a completed operation without blocking. Overflowed
// completions are counted but otherwise dropped.
func (r *Recorder) Offer(o *op.Operation) {
	select {
	case r.queue <- o:
	default:
		r.overflow.Add(1)
	}
}

// Run consumes completions until ctx is cancelled, then drains whatever is
// still queued
func (r *Recorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case o := <-r.queue:
			r.tally(o)
		case <-ticker.C:
			r.logProgress()
		case <-ctx.Done():
			r.drain()
			return ctx.Err()
		}
	}
}

func (r *Recorder) tally(o *op.Operation) {
	r.mu.Lock()
	r.byStatus[o.Status()]++
	r.total++
	r.mu.Unlock()
}

func (r *Recorder) drain() {
	for {
		select {
		case o := <-r.queue:
			r.tally(o)
		default:
			return
		}
	}
}

func (r *Recorder) logProgress() {
	snapshot := r.Snapshot()
	r.logger.Info("completions",
		"total", snapshot.Total,
		"succeeded", snapshot.ByStatus[op.StatusSucc],
		"overflow", snapshot.Overflow)
}

// Summary is a snapshot of the recorded completion tallies
type Summary struct {
	Total    int64
	ByStatus map[op.Status]int64
	Overflow int64
}

// Snapshot returns a copy of the current tallies
func (r *Recorder) Snapshot() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	byStatus := make(map[op.Status]int64, len(r.byStatus))
	for s, n := range r.byStatus {
		byStatus[s] = n
	}
	return Summary{
		Total:    r.total,
		ByStatus: byStatus,
		Overflow: r.overflow.Load(),
	}
}

// Pending returns how many completions are queued but not yet tallied
func (r *Recorder) Pending() int {
	return len(r.queue)
}
