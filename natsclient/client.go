// Package natsclient manages the NATS connection the storage backend runs
// over, exposing JetStream and object store handles.
package natsclient

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Incia94/mongoose-storage-driver-preempt/errors"
	"github.com/Incia94/mongoose-storage-driver-preempt/metric"
)

// ConnectionStatus represents the state of the NATS connection
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusClosed
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client owns one NATS connection and its JetStream context
type Client struct {
	url    string
	status atomic.Int32
	logger *slog.Logger

	mu   sync.RWMutex
	conn *nats.Conn
	js   jetstream.JetStream

	// Connection options
	clientName     string
	maxReconnects  int
	reconnectWait  time.Duration
	connectTimeout time.Duration
	drainTimeout   time.Duration
	username       string
	password       string
	token          string

	metrics *metric.Metrics

	closeMu sync.Mutex
	closed  atomic.Bool
}

// NewClient creates a client for the given server URL. The URL may list
// several servers separated by commas, as the nats library accepts.
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	if url == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Client", "NewClient", "url must not be empty")
	}

	c := &Client{
		url:            url,
		logger:         slog.Default(),
		clientName:     "preempt-driver",
		maxReconnects:  10,
		reconnectWait:  2 * time.Second,
		connectTimeout: 5 * time.Second,
		drainTimeout:   30 * time.Second,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}

	return c, nil
}

// URL returns the configured server URL
func (c *Client) URL() string {
	return c.url
}

// Status returns the current connection status
func (c *Client) Status() ConnectionStatus {
	return ConnectionStatus(c.status.Load())
}

// IsConnected reports whether the underlying connection is up
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && c.conn.IsConnected()
}

// Connect establishes the connection and initializes JetStream. ctx bounds
// the whole attempt.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return errors.WrapInvalid(errors.ErrNoConnection, "Client", "Connect", "client is closed")
	}

	c.status.Store(int32(StatusConnecting))
	c.logger.Info("connecting to NATS", "url", c.url)

	connectDone := make(chan error, 1)
	go func() {
		conn, err := nats.Connect(c.url, c.connectionOptions()...)
		if err != nil {
			connectDone <- err
			return
		}

		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			connectDone <- fmt.Errorf("initialize jetstream: %w", err)
			return
		}

		c.mu.Lock()
		c.conn = conn
		c.js = js
		c.mu.Unlock()
		connectDone <- nil
	}()

	select {
	case err := <-connectDone:
		if err != nil {
			c.status.Store(int32(StatusDisconnected))
			c.recordConnected(false)
			return errors.WrapTransient(err, "Client", "Connect", "establish connection")
		}
	case <-ctx.Done():
		c.status.Store(int32(StatusDisconnected))
		c.recordConnected(false)
		return errors.WrapTransient(ctx.Err(), "Client", "Connect", "connection cancelled")
	}

	c.status.Store(int32(StatusConnected))
	c.recordConnected(true)
	c.logger.Info("connected to NATS", "url", c.url)
	return nil
}

// connectionOptions assembles the nats.go options from the client settings
func (c *Client) connectionOptions() []nats.Option {
	opts := []nats.Option{
		nats.Name(c.clientName),
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.Timeout(c.connectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.status.Store(int32(StatusReconnecting))
			c.recordConnected(false)
			c.logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			c.status.Store(int32(StatusConnected))
			c.recordConnected(true)
			if c.metrics != nil {
				c.metrics.RecordNATSReconnect()
			}
			c.logger.Info("NATS reconnected", "url", conn.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if !c.closed.Load() {
				c.status.Store(int32(StatusDisconnected))
				c.recordConnected(false)
				c.logger.Warn("NATS connection closed unexpectedly")
			}
		}),
	}

	if c.username != "" {
		opts = append(opts, nats.UserInfo(c.username, c.password))
	}
	if c.token != "" {
		opts = append(opts, nats.Token(c.token))
	}

	return opts
}

func (c *Client) recordConnected(connected bool) {
	if c.metrics != nil {
		c.metrics.RecordNATSStatus(connected)
	}
}

// JetStream returns the JetStream context
func (c *Client) JetStream() (jetstream.JetStream, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.js == nil {
		return nil, errors.WrapTransient(errors.ErrNoConnection, "Client", "JetStream", "not connected")
	}
	return c.js, nil
}

// EnsureObjectStore returns the named object store bucket, creating it if
// it does not exist
func (c *Client) EnsureObjectStore(ctx context.Context, cfg jetstream.ObjectStoreConfig) (jetstream.ObjectStore, error) {
	js, err := c.JetStream()
	if err != nil {
		return nil, err
	}

	store, err := js.CreateOrUpdateObjectStore(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "Client", "EnsureObjectStore",
			fmt.Sprintf("create object store bucket %s", cfg.Bucket))
	}
	return store, nil
}

// ObjectStore returns an existing object store bucket
func (c *Client) ObjectStore(ctx context.Context, bucket string) (jetstream.ObjectStore, error) {
	js, err := c.JetStream()
	if err != nil {
		return nil, err
	}

	store, err := js.ObjectStore(ctx, bucket)
	if err != nil {
		return nil, errors.Wrap(err, "Client", "ObjectStore",
			fmt.Sprintf("open object store bucket %s", bucket))
	}
	return store, nil
}

// RTT measures the round-trip time to the server, updating the metric when
// one is configured
func (c *Client) RTT() (time.Duration, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return 0, errors.WrapTransient(errors.ErrNoConnection, "Client", "RTT", "not connected")
	}

	rtt, err := conn.RTT()
	if err != nil {
		return 0, errors.WrapTransient(err, "Client", "RTT", "measure round-trip time")
	}
	if c.metrics != nil {
		c.metrics.RecordNATSRTT(rtt)
	}
	return rtt, nil
}

// Close drains and closes the connection. Safe to call more than once.
func (c *Client) Close(ctx context.Context) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed.Load() {
		return nil
	}
	c.closed.Store(true)
	c.status.Store(int32(StatusClosed))
	c.recordConnected(false)

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.js = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	drainTimeout := c.drainTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 && remaining < drainTimeout {
			drainTimeout = remaining
		}
	}

	drainDone := make(chan error, 1)
	go func() {
		drainDone <- conn.Drain()
	}()

	select {
	case err := <-drainDone:
		if err != nil {
			conn.Close()
			return errors.Wrap(err, "Client", "Close", "drain connection")
		}
	case <-time.After(drainTimeout):
		conn.Close()
		c.logger.Warn("drain timed out, connection closed hard", "timeout", drainTimeout)
	}

	c.logger.Info("NATS connection closed")
	return nil
}
