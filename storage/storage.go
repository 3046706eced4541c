// Package storage provides the pluggable backend interface storage
// protocols are built over.
package storage

import "context"

// Store is the backend interface a storage protocol performs its I/O
// against.
//
// Keys are item names, values are opaque binary payloads. All
// implementations must be safe for concurrent use from multiple worker
// goroutines; the driver dispatches operations from every worker at once.
//
// Example implementations:
//   - natsobj.Store: NATS JetStream ObjectStore backend
//   - memstore (tests): in-memory map backend
type Store interface {
	// Put stores binary data at the specified key, overwriting any
	// existing object
	Put(ctx context.Context, key string, data []byte) error

	// Get retrieves the binary data for the specified key. A missing key
	// is reported via errors.ErrItemNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns all keys matching the specified prefix, an empty
	// prefix listing everything
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the specified key. A missing key is
	// reported via errors.ErrItemNotFound.
	Delete(ctx context.Context, key string) error
}
