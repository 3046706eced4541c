package loadgen

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Incia94/mongoose-storage-driver-preempt/driver"
	"github.com/Incia94/mongoose-storage-driver-preempt/errors"
	"github.com/Incia94/mongoose-storage-driver-preempt/op"
)

// backpressureWait is how long the generator backs off after a fully
// rejected range before trying again
const backpressureWait = 5 * time.Millisecond

// recentNamesCap bounds the ring of created item names reads, updates and
// deletes target
const recentNamesCap = 1024

// Submitter accepts ranges of operations. *driver.Driver satisfies it.
type Submitter interface {
	SubmitRange(ops []*op.Operation, from, to int) (int, error)
}

// Mix weights the operation types in the generated stream. Zero-weight
// types are never generated.
type Mix struct {
	Create int
	Read   int
	Update int
	Delete int
}

func (m Mix) total() int {
	return m.Create + m.Read + m.Update + m.Delete
}

// Config shapes the generated load
type Config struct {
	// OpCount is the total number of operations to generate, 0 to run
	// until the context is cancelled
	OpCount int64
	// RatePerSecond caps the submission rate, 0 for unpaced
	RatePerSecond float64
	// RangeSize is how many operations go into each range submission
	RangeSize int
	// ItemPrefix namespaces generated item names
	ItemPrefix string
	// PayloadSize is the size in bytes of create and update payloads
	PayloadSize int64
	// Mix weights the operation types
	Mix Mix
}

// Generator produces a paced stream of operations and feeds them to a
// submitter, retrying soft rejections and stopping on terminal ones
type Generator struct {
	cfg       Config
	submitter Submitter
	logger    *slog.Logger
	limiter   *rate.Limiter
	payload   []byte

	generated atomic.Int64
	submitted atomic.Int64

	mu     sync.Mutex
	recent []string
	next   int
}

// New creates a generator over the submitter
func New(cfg Config, submitter Submitter, logger *slog.Logger) (*Generator, error) {
	if submitter == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "loadgen", "New", "submitter must not be nil")
	}
	if cfg.RangeSize < 1 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "loadgen", "New", "range size must be at least 1")
	}
	if cfg.Mix.total() <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "loadgen", "New", "mix must have positive total weight")
	}
	if cfg.ItemPrefix == "" {
		cfg.ItemPrefix = "item"
	}
	if logger == nil {
		logger = slog.Default()
	}

	g := &Generator{
		cfg:       cfg,
		submitter: submitter,
		logger:    logger.With("component", "loadgen"),
		payload:   make([]byte, cfg.PayloadSize),
		recent:    make([]string, 0, recentNamesCap),
	}
	for i := range g.payload {
		g.payload[i] = byte(rand.IntN(256))
	}
	if cfg.RatePerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RangeSize)
	}
	return g, nil
}

// Generated returns how many operations have been generated so far
func (g *Generator) Generated() int64 {
	return g.generated.Load()
}

// Submitted returns how many operations have been accepted by the
// submitter so far
func (g *Generator) Submitted() int64 {
	return g.submitted.Load()
}

// Run generates and submits operations until the configured count is
// reached, the submitter closes, or ctx is cancelled. A closed submitter
// is a normal way to finish and returns nil.
func (g *Generator) Run(ctx context.Context) error {
	g.logger.Info("load generation started",
		"op_count", g.cfg.OpCount, "rate", g.cfg.RatePerSecond, "range_size", g.cfg.RangeSize)

	for {
		n := g.cfg.RangeSize
		if g.cfg.OpCount > 0 {
			remaining := g.cfg.OpCount - g.generated.Load()
			if remaining <= 0 {
				g.logger.Info("load generation finished", "submitted", g.submitted.Load())
				return nil
			}
			if int64(n) > remaining {
				n = int(remaining)
			}
		}

		if g.limiter != nil {
			if err := g.limiter.WaitN(ctx, n); err != nil {
				return err
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		ops := g.makeRange(n)
		g.generated.Add(int64(n))

		if err := g.submitRange(ctx, ops); err != nil {
			if stderrors.Is(err, driver.ErrClosed) {
				g.logger.Info("submitter closed, stopping load generation",
					"submitted", g.submitted.Load())
				return nil
			}
			return err
		}
	}
}

// submitRange pushes one range through the submitter, waiting out soft
// backpressure until every operation is accepted
func (g *Generator) submitRange(ctx context.Context, ops []*op.Operation) error {
	from := 0
	for from < len(ops) {
		accepted, err := g.submitter.SubmitRange(ops, from, len(ops))
		if err != nil {
			return err
		}
		from += accepted
		g.submitted.Add(int64(accepted))

		if from < len(ops) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backpressureWait):
			}
		}
	}
	return nil
}

// makeRange builds the next range of operations per the configured mix
func (g *Generator) makeRange(n int) []*op.Operation {
	ops := make([]*op.Operation, n)
	for i := range ops {
		ops[i] = g.makeOp()
	}
	return ops
}

func (g *Generator) makeOp() *op.Operation {
	switch g.pickType() {
	case op.TypeCreate:
		name := fmt.Sprintf("%s-%s", g.cfg.ItemPrefix, uuid.NewString())
		o := op.New(op.TypeCreate, name, g.cfg.PayloadSize)
		o.Payload = g.payload
		g.remember(name)
		return o
	case op.TypeRead:
		return op.New(op.TypeRead, g.pickName(), 0)
	case op.TypeUpdate:
		o := op.New(op.TypeUpdate, g.pickName(), g.cfg.PayloadSize)
		o.Payload = g.payload
		return o
	default:
		return op.New(op.TypeDelete, g.pickName(), 0)
	}
}

// pickType draws an operation type per the mix weights
func (g *Generator) pickType() op.Type {
	m := g.cfg.Mix
	r := rand.IntN(m.total())
	if r < m.Create {
		return op.TypeCreate
	}
	r -= m.Create
	if r < m.Read {
		return op.TypeRead
	}
	r -= m.Read
	if r < m.Update {
		return op.TypeUpdate
	}
	return op.TypeDelete
}

// remember keeps a bounded ring of created item names
func (g *Generator) remember(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.recent) < recentNamesCap {
		g.recent = append(g.recent, name)
		return
	}
	g.recent[g.next] = name
	g.next = (g.next + 1) % recentNamesCap
}

// pickName returns a previously created item name when one exists, so
// reads, updates and deletes mostly hit real objects
func (g *Generator) pickName() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.recent) == 0 {
		return fmt.Sprintf("%s-%s", g.cfg.ItemPrefix, uuid.NewString())
	}
	return g.recent[rand.IntN(len(g.recent))]
}
