// Package op defines the unit of work submitted to the preempt driver: a
// storage operation with a type, a target item, and a mutable terminal
// status.
//
// Operations are owned by the producer. The driver core only reads an
// operation to decide preparation success and writes a failure status when
// preparation fails; execution hooks own all other status transitions. The
// status field is atomic so the producer may observe it while workers are
// still running.
package op
