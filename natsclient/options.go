package natsclient

import (
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/Incia94/mongoose-storage-driver-preempt/metric"
)

// ClientOption configures the client at construction
type ClientOption func(*Client) error

// WithLogger sets the client logger
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) error {
		if logger == nil {
			return stderrors.New("logger must not be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithName sets the client name reported to the server
func WithName(name string) ClientOption {
	return func(c *Client) error {
		if name == "" {
			return stderrors.New("name must not be empty")
		}
		c.clientName = name
		return nil
	}
}

// WithMaxReconnects sets the reconnect attempt limit, -1 for unlimited
func WithMaxReconnects(n int) ClientOption {
	return func(c *Client) error {
		if n < -1 {
			return stderrors.New("max reconnects must be >= -1")
		}
		c.maxReconnects = n
		return nil
	}
}

// WithReconnectWait sets the delay between reconnect attempts
func WithReconnectWait(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d <= 0 {
			return stderrors.New("reconnect wait must be positive")
		}
		c.reconnectWait = d
		return nil
	}
}

// WithConnectTimeout bounds the initial connection attempt
func WithConnectTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d <= 0 {
			return stderrors.New("connect timeout must be positive")
		}
		c.connectTimeout = d
		return nil
	}
}

// WithDrainTimeout bounds how long Close waits for the drain
func WithDrainTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d <= 0 {
			return stderrors.New("drain timeout must be positive")
		}
		c.drainTimeout = d
		return nil
	}
}

// WithCredentials sets username and password authentication
func WithCredentials(username, password string) ClientOption {
	return func(c *Client) error {
		c.username = username
		c.password = password
		return nil
	}
}

// WithToken sets token authentication
func WithToken(token string) ClientOption {
	return func(c *Client) error {
		c.token = token
		return nil
	}
}

// WithMetrics wires connection events into the core metrics
func WithMetrics(registry *metric.MetricsRegistry) ClientOption {
	return func(c *Client) error {
		if registry == nil {
			return stderrors.New("registry must not be nil")
		}
		c.metrics = registry.CoreMetrics()
		return nil
	}
}
