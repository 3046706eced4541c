// Package errors provides standardized error handling for the preempt
// driver components.
//
// # Overview
//
// The package implements a three-class error classification: Transient
// (temporary, retryable), Invalid (bad input or configuration, do not
// retry), and Fatal (unrecoverable, stop processing). Classification lets
// producers decide between backing off and aborting without string matching
// on error text.
//
// # Quick Start
//
// Return standard variables for known conditions:
//
//	if !d.started {
//	    return errors.ErrNotStarted
//	}
//
// Wrap third-party errors with component context:
//
//	if err := store.Put(ctx, key, data); err != nil {
//	    return errors.WrapTransient(err, "natsobj", "Execute", "put object")
//	}
//
// Check classification for retry logic:
//
//	if errors.IsTransient(err) {
//	    // back off and retry
//	}
//
// # Error Wrapping Pattern
//
// All wrapping follows the format "component.method: action failed: %w".
// Classification is preserved through errors.Is/errors.As chains.
package errors
