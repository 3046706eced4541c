// Package driver implements the dispatcher of the preempt execution engine:
// the submission API, capacity validation, lifecycle control, and counters
// over the drain-and-batch worker pool.
//
// # Submission contract
//
// All three entry points are non-blocking:
//
//   - Submit(op) prepares one operation and enqueues it. A full queue
//     returns ErrQueueFull (retry later); a driver that is not accepting
//     work returns ErrClosed (stop submitting). If preparation fails the
//     operation is still accepted: a no-op work item is enqueued that marks
//     the operation failed when dequeued, so producer accounting stays
//     symmetric.
//   - SubmitRange(ops, from, to) asks the protocol whether the range is one
//     batch. If so the range is snapshotted into a driver-owned buffer and
//     enqueued as a single batch work item; the caller may reuse its slice
//     immediately. Otherwise elements are submitted individually until the
//     first rejection, and the count accepted so far is returned.
//   - SubmitAll(ops) is SubmitRange over the whole slice.
//
// # Error taxonomy
//
// ErrQueueFull is soft backpressure. ErrClosed is terminal: the driver was
// never started, or Shutdown/Stop has been called. Producers must
// distinguish the two; only the former is retryable.
package driver
