package op

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Type identifies the kind of storage I/O an operation performs
type Type int

// Operation types
const (
	TypeNoop Type = iota
	TypeCreate
	TypeRead
	TypeUpdate
	TypeDelete
	TypeList
)

// String returns a string representation of the operation type
func (t Type) String() string {
	switch t {
	case TypeNoop:
		return "noop"
	case TypeCreate:
		return "create"
	case TypeRead:
		return "read"
	case TypeUpdate:
		return "update"
	case TypeDelete:
		return "delete"
	case TypeList:
		return "list"
	default:
		return "unknown"
	}
}

// Status is the enumerated outcome of an operation
type Status int32

// Operation statuses. Pending and Active are non-terminal; everything else
// is terminal.
const (
	StatusPending Status = iota
	StatusActive
	StatusSucc
	StatusFailUnknown
	StatusFailIO
	StatusFailTimeout
	StatusUnsupported
	StatusInterrupted
	StatusCancelled
)

// String returns a string representation of the status
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusSucc:
		return "succ"
	case StatusFailUnknown:
		return "fail_unknown"
	case StatusFailIO:
		return "fail_io"
	case StatusFailTimeout:
		return "fail_timeout"
	case StatusUnsupported:
		return "unsupported"
	case StatusInterrupted:
		return "interrupted"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is a final outcome
func (s Status) Terminal() bool {
	return s != StatusPending && s != StatusActive
}

// Succeeded reports whether the status is the success outcome
func (s Status) Succeeded() bool {
	return s == StatusSucc
}

// Operation is a single storage I/O unit. The immutable fields are set at
// construction; only the status and timing marks mutate afterwards.
type Operation struct {
	// ID uniquely identifies the operation
	ID string
	// Type is the kind of I/O to perform
	Type Type
	// ItemName is the storage key the operation targets
	ItemName string
	// Size is the payload size in bytes (create/update) or the expected
	// transfer size (read)
	Size int64
	// Payload carries the data for create/update operations
	Payload []byte

	status   atomic.Int32
	started  atomic.Int64 // unix nanos, 0 until MarkStarted
	finished atomic.Int64 // unix nanos, 0 until a terminal mark
}

// New creates a pending operation targeting the named item
func New(t Type, itemName string, size int64) *Operation {
	return &Operation{
		ID:       uuid.NewString(),
		Type:     t,
		ItemName: itemName,
		Size:     size,
	}
}

// Status returns the current status snapshot
func (o *Operation) Status() Status {
	return Status(o.status.Load())
}

// SetStatus overwrites the status
func (o *Operation) SetStatus(s Status) {
	o.status.Store(int32(s))
}

// MarkStarted transitions the operation to active and records the start time
func (o *Operation) MarkStarted() {
	o.status.Store(int32(StatusActive))
	o.started.Store(time.Now().UnixNano())
}

// MarkSucceeded records a successful terminal outcome
func (o *Operation) MarkSucceeded() {
	o.finish(StatusSucc)
}

// MarkFailed records a failed terminal outcome. Non-terminal statuses are
// coerced to StatusFailUnknown.
func (o *Operation) MarkFailed(s Status) {
	if !s.Terminal() {
		s = StatusFailUnknown
	}
	o.finish(s)
}

func (o *Operation) finish(s Status) {
	o.status.Store(int32(s))
	o.finished.Store(time.Now().UnixNano())
}

// Duration returns the wall time between start and finish, or zero if the
// operation has not finished
func (o *Operation) Duration() time.Duration {
	start := o.started.Load()
	end := o.finished.Load()
	if start == 0 || end == 0 || end < start {
		return 0
	}
	return time.Duration(end - start)
}
