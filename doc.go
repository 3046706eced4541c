// Package preempt implements the execution engine beneath a preemptive
// storage load driver: a bounded, batching worker pool that dispatches
// storage I/O operations from producers to a fixed set of workers.
//
// # Architecture
//
// The module is layered, leaves first:
//
//	┌─────────────────────────────────────┐
//	│           Load Generator            │  paced producer, retries
//	│            (loadgen)                │  backpressure, tallies results
//	└─────────────────────────────────────┘
//	           ↓ submits operations
//	┌─────────────────────────────────────┐
//	│         Driver (dispatcher)         │  Submit/SubmitRange/SubmitAll,
//	│             (driver)                │  prepare + batch-eligibility hooks
//	└─────────────────────────────────────┘
//	           ↓ enqueues work items
//	┌─────────────────────────────────────┐
//	│     Drain-and-batch worker pool     │  bounded queue, fixed workers,
//	│           (pkg/worker)              │  lifecycle state machine
//	└─────────────────────────────────────┘
//	           ↓ invokes execution hooks
//	┌─────────────────────────────────────┐
//	│          Storage backend            │  NATS JetStream ObjectStore
//	│         (storage/natsobj)           │  or any driver.Protocol
//	└─────────────────────────────────────┘
//
// Producers hand the driver operations; the driver guarantees each accepted
// operation reaches the execution hook exactly once, or is explicitly failed,
// and exposes backpressure and liveness signals so producers can throttle.
//
// # Backpressure contract
//
// Submission never blocks. A full queue is a soft signal (retry later); a
// driver that was never started or has been shut down is a hard signal (stop
// submitting). The two are distinct error values, see the driver package.
//
// # Shutdown semantics
//
// Shutdown stops intake and discards queued-but-undispatched work items;
// only work a worker has already drained is finished. Callers that need a
// full drain must stop submitting, wait for IsIdle, and only then shut down.
package preempt
