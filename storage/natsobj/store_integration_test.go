package natsobj

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Incia94/mongoose-storage-driver-preempt/driver"
	"github.com/Incia94/mongoose-storage-driver-preempt/errors"
	"github.com/Incia94/mongoose-storage-driver-preempt/loadgen"
	"github.com/Incia94/mongoose-storage-driver-preempt/natsclient"
	"github.com/Incia94/mongoose-storage-driver-preempt/op"
)

// startNATSContainer starts a JetStream-enabled NATS server in a container
func startNATSContainer(ctx context.Context, t *testing.T) (testcontainers.Container, string) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "nats:latest",
		ExposedPorts: []string{"4222/tcp"},
		WaitingFor:   wait.ForListeningPort("4222/tcp"),
		Cmd:          []string{"-js"}, // Enable JetStream
	}

	natsContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := natsContainer.Host(ctx)
	require.NoError(t, err)
	port, err := natsContainer.MappedPort(ctx, "4222")
	require.NoError(t, err)

	return natsContainer, fmt.Sprintf("nats://%s:%s", host, port.Port())
}

func setupStore(ctx context.Context, t *testing.T) (*natsclient.Client, *Store) {
	t.Helper()

	natsContainer, url := startNATSContainer(ctx, t)
	t.Cleanup(func() { _ = natsContainer.Terminate(ctx) })

	client, err := natsclient.NewClient(url)
	require.NoError(t, err)
	require.NoError(t, client.Connect(ctx))
	t.Cleanup(func() { _ = client.Close(ctx) })

	bucket, err := client.EnsureObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket: "it-store",
	})
	require.NoError(t, err)

	return client, NewStore("it-store", bucket)
}

func TestIntegration_StoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	_, store := setupStore(ctx, t)

	payload := []byte("object store payload")
	require.NoError(t, store.Put(ctx, "items/alpha", payload))
	require.NoError(t, store.Put(ctx, "items/beta", []byte("second")))
	require.NoError(t, store.Put(ctx, "other/gamma", []byte("third")))

	got, err := store.Get(ctx, "items/alpha")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	keys, err := store.List(ctx, "items/")
	require.NoError(t, err)
	assert.Equal(t, []string{"items/alpha", "items/beta"}, keys)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, store.Delete(ctx, "items/alpha"))
	_, err = store.Get(ctx, "items/alpha")
	assert.ErrorIs(t, err, errors.ErrItemNotFound)

	err = store.Delete(ctx, "never-existed")
	assert.ErrorIs(t, err, errors.ErrItemNotFound)
}

func TestIntegration_ProtocolAgainstRealStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	_, store := setupStore(ctx, t)

	p := NewProtocol("it", store,
		WithBaseContext(ctx),
		WithOpTimeout(10*time.Second),
	)

	payload := []byte("roundtrip payload")
	create := op.New(op.TypeCreate, "it-item", int64(len(payload)))
	create.Payload = payload
	require.True(t, p.Prepare(create))
	p.Execute(create)
	assert.Equal(t, op.StatusSucc, create.Status())

	read := op.New(op.TypeRead, "it-item", 0)
	p.Execute(read)
	assert.Equal(t, op.StatusSucc, read.Status())
	assert.EqualValues(t, len(payload), read.Size)

	del := op.New(op.TypeDelete, "it-item", 0)
	p.Execute(del)
	assert.Equal(t, op.StatusSucc, del.Status())

	readMissing := op.New(op.TypeRead, "it-item", 0)
	p.Execute(readMissing)
	assert.Equal(t, op.StatusFailIO, readMissing.Status())
}

func TestIntegration_DriverEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	_, store := setupStore(ctx, t)

	recorder := loadgen.NewRecorder(10_000, nil)
	p := NewProtocol("e2e", store,
		WithBaseContext(ctx),
		WithOpTimeout(10*time.Second),
		WithCompletionFunc(recorder.Offer),
	)

	drv, err := driver.New("e2e", p, driver.Config{
		WorkerCount:   4,
		QueueCapacity: 256,
		BatchSize:     8,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, drv.Start(ctx))

	recorderCtx, stopRecorder := context.WithCancel(context.Background())
	recorderDone := make(chan struct{})
	go func() {
		_ = recorder.Run(recorderCtx)
		close(recorderDone)
	}()

	generator, err := loadgen.New(loadgen.Config{
		OpCount:     500,
		RangeSize:   16,
		ItemPrefix:  "e2e",
		PayloadSize: 256,
		Mix:         loadgen.Mix{Create: 2, Read: 1},
	}, drv, nil)
	require.NoError(t, err)
	require.NoError(t, generator.Run(ctx))

	// Drain the queue, then stop everything
	require.Eventually(t, func() bool {
		return drv.QueueDepth() == 0 && drv.IsIdle()
	}, 30*time.Second, 50*time.Millisecond)
	drv.Shutdown()
	require.NoError(t, drv.Stop(ctx, 5*time.Second))

	require.Eventually(t, func() bool {
		return recorder.Pending() == 0
	}, 5*time.Second, 10*time.Millisecond)
	stopRecorder()
	<-recorderDone

	snapshot := recorder.Snapshot()
	assert.EqualValues(t, 500, generator.Submitted())
	assert.EqualValues(t, 500, snapshot.Total)
	assert.Positive(t, snapshot.ByStatus[op.StatusSucc])
	assert.Zero(t, snapshot.Overflow)
}
