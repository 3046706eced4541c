// Package worker provides a generic, bounded worker pool that drains its
// queue in batches.
//
// # Overview
//
// The pool manages a fixed number of goroutines pulling work items from one
// shared bounded channel. Each worker opportunistically drains up to a
// configured batch size per iteration and dispatches either the single-item
// action or the batch action, reducing per-item overhead when producers
// submit faster than a single item can be turned around.
//
//   - Generic type support for type-safe work processing
//   - Bounded queue with non-blocking submit (backpressure via ErrQueueFull)
//   - Pre-formed batch work items executed as-is, never coalesced further
//   - Four-state lifecycle with graceful shutdown and forced stop
//   - Always-on atomic counters + optional Prometheus metrics
//
// # Lifecycle
//
// The pool moves through Initial → Started → Shutdown → Stopped:
//
//   - Start launches all workers eagerly.
//   - Shutdown stops intake and discards queued-but-undispatched items;
//     workers finish what they have already drained, then exit once the
//     queue is empty.
//   - Stop forces termination: workers execute anything already drained and
//     exit without waiting for the queue to empty. If the caller's context
//     is cancelled while waiting, Stop returns the context error after the
//     force has been applied.
//
// Workers read the lifecycle state as a relaxed atomic snapshot once per
// iteration. A worker may observe a stale state for at most one iteration;
// this is deliberate and keeps the submit path free of locks.
//
// # Dispatch rules
//
// Per iteration a worker drains up to batchSize queued entries. Consecutive
// single items are coalesced: one drained item invokes the single action,
// several invoke the batch action with the items in arrival order. An entry
// that is already a batch (SubmitBatch) always goes to the batch action
// alone, exactly as submitted. A panic from either action is logged and
// swallowed; the worker moves on to the next iteration.
//
// Idle workers block on the queue with a poll timeout rather than spinning,
// so lifecycle transitions are observed within one poll interval.
//
// # Usage
//
//	pool := worker.NewPool(4, 100, 16, execOne, execMany)
//	if err := pool.Start(ctx); err != nil {
//	    return err
//	}
//	if err := pool.Submit(item); errors.Is(err, worker.ErrQueueFull) {
//	    // back off and retry
//	}
//	pool.Shutdown()
//	_ = pool.Stop(ctx, time.Second)
package worker
