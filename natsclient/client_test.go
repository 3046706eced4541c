package natsclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Incia94/mongoose-storage-driver-preempt/metric"
)

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	assert.Equal(t, "nats://localhost:4222", c.URL())
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.Equal(t, "preempt-driver", c.clientName)
	assert.Equal(t, 10, c.maxReconnects)
	assert.Equal(t, 2*time.Second, c.reconnectWait)
	assert.False(t, c.IsConnected())
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)

	_, err = NewClient("nats://localhost:4222", WithName(""))
	assert.Error(t, err)

	_, err = NewClient("nats://localhost:4222", WithMaxReconnects(-2))
	assert.Error(t, err)

	_, err = NewClient("nats://localhost:4222", WithReconnectWait(0))
	assert.Error(t, err)

	_, err = NewClient("nats://localhost:4222", WithLogger(nil))
	assert.Error(t, err)

	_, err = NewClient("nats://localhost:4222", WithMetrics(nil))
	assert.Error(t, err)
}

func TestNewClientOptions(t *testing.T) {
	registry := metric.NewMetricsRegistry()

	c, err := NewClient("nats://nats-1:4222",
		WithName("bench-client"),
		WithMaxReconnects(-1),
		WithReconnectWait(500*time.Millisecond),
		WithConnectTimeout(time.Second),
		WithDrainTimeout(2*time.Second),
		WithCredentials("user", "pass"),
		WithToken("secret"),
		WithMetrics(registry),
	)
	require.NoError(t, err)

	assert.Equal(t, "bench-client", c.clientName)
	assert.Equal(t, -1, c.maxReconnects)
	assert.Equal(t, 500*time.Millisecond, c.reconnectWait)
	assert.Equal(t, time.Second, c.connectTimeout)
	assert.Equal(t, 2*time.Second, c.drainTimeout)
	assert.Equal(t, "user", c.username)
	assert.Equal(t, "secret", c.token)
	assert.NotNil(t, c.metrics)
}

func TestConnectionStatusString(t *testing.T) {
	assert.Equal(t, "disconnected", StatusDisconnected.String())
	assert.Equal(t, "connecting", StatusConnecting.String())
	assert.Equal(t, "connected", StatusConnected.String())
	assert.Equal(t, "reconnecting", StatusReconnecting.String())
	assert.Equal(t, "closed", StatusClosed.String())
	assert.Equal(t, "unknown", ConnectionStatus(99).String())
}

func TestJetStreamBeforeConnect(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	_, err = c.JetStream()
	assert.Error(t, err)

	_, err = c.RTT()
	assert.Error(t, err)
}

func TestCloseWithoutConnect(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	assert.NoError(t, c.Close(context.Background()))
	assert.Equal(t, StatusClosed, c.Status())

	// Idempotent
	assert.NoError(t, c.Close(context.Background()))

	// A closed client refuses to connect
	assert.Error(t, c.Connect(context.Background()))
}
