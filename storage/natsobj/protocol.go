package natsobj

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/Incia94/mongoose-storage-driver-preempt/errors"
	"github.com/Incia94/mongoose-storage-driver-preempt/metric"
	"github.com/Incia94/mongoose-storage-driver-preempt/op"
	"github.com/Incia94/mongoose-storage-driver-preempt/storage"
)

// CompletionFunc observes every operation after its terminal status is set
type CompletionFunc func(*op.Operation)

// Protocol adapts a storage.Store to the driver's execution hooks. It owns
// every status transition of the operations it executes.
type Protocol struct {
	driverName string
	store      storage.Store
	baseCtx    context.Context
	opTimeout  time.Duration
	logger     *slog.Logger
	onComplete CompletionFunc
	metrics    *metric.Metrics
}

// ProtocolOption configures optional protocol features
type ProtocolOption func(*Protocol)

// WithOpTimeout bounds each storage call, 0 meaning unbounded
func WithOpTimeout(d time.Duration) ProtocolOption {
	return func(p *Protocol) {
		p.opTimeout = d
	}
}

// WithBaseContext sets the context storage calls derive from, so stopping
// the process interrupts in-flight I/O
func WithBaseContext(ctx context.Context) ProtocolOption {
	return func(p *Protocol) {
		if ctx != nil {
			p.baseCtx = ctx
		}
	}
}

// WithLogger sets the protocol logger
func WithLogger(logger *slog.Logger) ProtocolOption {
	return func(p *Protocol) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithCompletionFunc registers a callback invoked after every operation
// reaches a terminal status
func WithCompletionFunc(fn CompletionFunc) ProtocolOption {
	return func(p *Protocol) {
		p.onComplete = fn
	}
}

// WithMetrics records completions into the core metrics
func WithMetrics(registry *metric.MetricsRegistry) ProtocolOption {
	return func(p *Protocol) {
		if registry != nil {
			p.metrics = registry.CoreMetrics()
		}
	}
}

// NewProtocol creates a protocol executing operations against the store
func NewProtocol(driverName string, store storage.Store, opts ...ProtocolOption) *Protocol {
	p := &Protocol{
		driverName: driverName,
		store:      store,
		baseCtx:    context.Background(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Prepare validates an operation before it is queued. Operations that
// cannot possibly succeed are rejected here rather than wasting a worker
// iteration on them.
func (p *Protocol) Prepare(o *op.Operation) bool {
	if o == nil {
		return false
	}
	switch o.Type {
	case op.TypeNoop, op.TypeList:
		return true
	case op.TypeCreate, op.TypeUpdate:
		return o.ItemName != "" && (o.Size == 0 || o.Payload != nil)
	case op.TypeRead, op.TypeDelete:
		return o.ItemName != ""
	default:
		return false
	}
}

// IsBatch reports whether a submitted range should run as one batch work
// item: several operations, all of the same type
func (p *Protocol) IsBatch(ops []*op.Operation) bool {
	if len(ops) < 2 {
		return false
	}
	t := ops[0].Type
	for _, o := range ops[1:] {
		if o.Type != t {
			return false
		}
	}
	return true
}

// Execute performs one operation and marks its terminal status
func (p *Protocol) Execute(o *op.Operation) {
	ctx := p.baseCtx
	if p.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opTimeout)
		defer cancel()
	}

	o.MarkStarted()

	var err error
	switch o.Type {
	case op.TypeNoop:
	case op.TypeCreate, op.TypeUpdate:
		err = p.store.Put(ctx, o.ItemName, o.Payload)
	case op.TypeRead:
		var data []byte
		data, err = p.store.Get(ctx, o.ItemName)
		if err == nil {
			o.Size = int64(len(data))
		}
	case op.TypeDelete:
		err = p.store.Delete(ctx, o.ItemName)
	case op.TypeList:
		_, err = p.store.List(ctx, o.ItemName)
	default:
		o.MarkFailed(op.StatusUnsupported)
		p.finish(o)
		return
	}

	if err != nil {
		o.MarkFailed(failureStatus(err))
		p.logger.Debug("operation failed",
			"op", o.Type.String(), "item", o.ItemName, "status", o.Status().String(), "error", err)
	} else {
		o.MarkSucceeded()
	}
	p.finish(o)
}

// ExecuteBatch performs a batch of operations in order
func (p *Protocol) ExecuteBatch(ops []*op.Operation) {
	for _, o := range ops {
		p.Execute(o)
	}
}

// finish records the terminal outcome and notifies the completion listener
func (p *Protocol) finish(o *op.Operation) {
	if p.metrics != nil {
		status := o.Status()
		p.metrics.RecordOpCompleted(p.driverName, o.Type.String(), status.String())
		p.metrics.ObserveOpDuration(p.driverName, o.Type.String(), o.Duration())
		if status.Succeeded() && o.Size > 0 {
			switch o.Type {
			case op.TypeCreate, op.TypeRead, op.TypeUpdate:
				p.metrics.RecordBytesTransferred(p.driverName, o.Type.String(), o.Size)
			}
		}
	}
	if p.onComplete != nil {
		p.onComplete(o)
	}
}

// failureStatus maps an execution error to the operation status taxonomy
func failureStatus(err error) op.Status {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return op.StatusFailTimeout
	case stderrors.Is(err, context.Canceled):
		return op.StatusInterrupted
	case stderrors.Is(err, errors.ErrItemNotFound):
		return op.StatusFailIO
	default:
		return op.StatusFailIO
	}
}
