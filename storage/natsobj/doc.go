// Package natsobj implements the storage backend and execution protocol
// over a NATS JetStream object store bucket.
//
// The package has two layers. Store is a thin storage.Store adapter over a
// jetstream.ObjectStore handle, translating object store errors into the
// shared error taxonomy. Protocol sits on top of any storage.Store and
// implements the hooks the driver dispatches through: preparation,
// batch eligibility, and execution with status marking.
//
// Batch eligibility requires a homogeneous range: the object store has no
// multi-object call, so a batch is executed as an ordered sequence, and
// mixing types in one batch would only obscure per-type accounting.
//
// Typical wiring:
//
//	client, _ := natsclient.NewClient(url)
//	_ = client.Connect(ctx)
//	bucket, _ := client.EnsureObjectStore(ctx, jetstream.ObjectStoreConfig{Bucket: "preempt"})
//	store := natsobj.NewStore("preempt", bucket)
//	protocol := natsobj.NewProtocol("nats", store,
//	    natsobj.WithBaseContext(ctx),
//	    natsobj.WithOpTimeout(10*time.Second),
//	    natsobj.WithCompletionFunc(results.Offer),
//	)
//	drv, _ := driver.New("nats", protocol, cfg, logger)
package natsobj
