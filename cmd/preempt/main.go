// Command preempt runs the batching storage driver against a NATS
// JetStream object store, generating load per the configured mix and
// reporting completion tallies on exit.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"

	"github.com/Incia94/mongoose-storage-driver-preempt/config"
	"github.com/Incia94/mongoose-storage-driver-preempt/driver"
	"github.com/Incia94/mongoose-storage-driver-preempt/loadgen"
	"github.com/Incia94/mongoose-storage-driver-preempt/metric"
	"github.com/Incia94/mongoose-storage-driver-preempt/natsclient"
	"github.com/Incia94/mongoose-storage-driver-preempt/op"
	"github.com/Incia94/mongoose-storage-driver-preempt/pkg/retry"
	"github.com/Incia94/mongoose-storage-driver-preempt/storage/natsobj"
)

var version = "dev"

type cliConfig struct {
	configPath  string
	logLevel    string
	logFormat   string
	validate    bool
	showVersion bool
}

func parseFlags() *cliConfig {
	cfg := &cliConfig{}

	flag.StringVar(&cfg.configPath, "config",
		os.Getenv("PREEMPT_CONFIG"),
		"Path to YAML configuration file (env: PREEMPT_CONFIG)")
	flag.StringVar(&cfg.logLevel, "log-level", "",
		"Override configured log level: debug, info, warn, error")
	flag.StringVar(&cfg.logFormat, "log-format", "",
		"Override configured log format: json, text")
	flag.BoolVar(&cfg.validate, "validate", false,
		"Validate configuration and exit")
	flag.BoolVar(&cfg.showVersion, "version", false,
		"Show version information")

	flag.Parse()
	return cfg
}

func main() {
	cli := parseFlags()

	if cli.showVersion {
		fmt.Printf("preempt %s\n", version)
		return
	}

	if err := run(cli); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cli *cliConfig) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	if cli.validate {
		fmt.Println("configuration valid")
		return nil
	}

	logger, err := buildLogger(cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	logger.Info("starting", "version", version, "driver", cfg.Driver.Name)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Observability
	registry := metric.NewMetricsRegistry()
	var metricsServer *metric.Server
	if cfg.Metrics.Enabled {
		metricsServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Stop(shutdownCtx)
		}()
	}

	// Storage backend
	client, err := natsclient.NewClient(strings.Join(cfg.Storage.NATS.URLs, ","),
		natsclient.WithLogger(logger),
		natsclient.WithName(cfg.Storage.NATS.Name),
		natsclient.WithMaxReconnects(cfg.Storage.NATS.MaxReconnects),
		natsclient.WithReconnectWait(cfg.Storage.NATS.ReconnectWait.Std()),
		natsclient.WithConnectTimeout(cfg.Storage.NATS.ConnectTimeout.Std()),
		natsclient.WithCredentials(cfg.Storage.NATS.Username, cfg.Storage.NATS.Password),
		natsclient.WithToken(cfg.Storage.NATS.Token),
		natsclient.WithMetrics(registry),
	)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = client.Close(closeCtx)
	}()

	if err := retry.Do(ctx, retry.Quick(), func() error {
		return client.Connect(ctx)
	}); err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}

	bucket, err := client.EnsureObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:   cfg.Storage.Bucket,
		Replicas: cfg.Storage.Replicas,
		MaxBytes: cfg.Storage.MaxBytes,
	})
	if err != nil {
		return err
	}
	store := natsobj.NewStore(cfg.Storage.Bucket, bucket)

	// Completion side
	recorder := loadgen.NewRecorder(cfg.Driver.DownstreamCapacity, logger)

	protocol := natsobj.NewProtocol(cfg.Driver.Name, store,
		natsobj.WithBaseContext(ctx),
		natsobj.WithLogger(logger),
		natsobj.WithCompletionFunc(recorder.Offer),
		natsobj.WithMetrics(registry),
	)

	// Driver
	driverOpts := []driver.Option{driver.WithMetricsRegistry(registry)}
	if cfg.Driver.PollInterval > 0 {
		driverOpts = append(driverOpts, driver.WithPollInterval(cfg.Driver.PollInterval.Std()))
	}
	drv, err := driver.New(cfg.Driver.Name, protocol, driver.Config{
		WorkerCount:        cfg.Driver.WorkerCount,
		QueueCapacity:      cfg.Driver.QueueCapacity,
		DownstreamCapacity: cfg.Driver.DownstreamCapacity,
		BatchSize:          cfg.Driver.BatchSize,
	}, logger, driverOpts...)
	if err != nil {
		return err
	}
	if err := drv.Start(ctx); err != nil {
		return err
	}

	// Load generation
	generator, err := loadgen.New(loadgen.Config{
		OpCount:       cfg.Load.OpCount,
		RatePerSecond: cfg.Load.RatePerSecond,
		RangeSize:     cfg.Load.RangeSize,
		ItemPrefix:    cfg.Load.ItemPrefix,
		PayloadSize:   cfg.Load.PayloadSize,
		Mix: loadgen.Mix{
			Create: cfg.Load.Mix.Create,
			Read:   cfg.Load.Mix.Read,
			Update: cfg.Load.Mix.Update,
			Delete: cfg.Load.Mix.Delete,
		},
	}, drv, logger)
	if err != nil {
		return err
	}

	recorderCtx, stopRecorder := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := recorder.Run(recorderCtx)
		if err != nil && recorderCtx.Err() != nil {
			return nil // asked to stop
		}
		return err
	})
	group.Go(func() error {
		defer stopRecorder()

		if err := generator.Run(groupCtx); err != nil {
			drv.Shutdown()
			_ = drv.Stop(context.Background(), cfg.Driver.StopTimeout.Std())
			return err
		}

		// All generated: stop intake, let drained work finish, then wait
		// for the queue to empty before forcing termination.
		logger.Info("generation complete, draining", "submitted", generator.Submitted())
		waitForIdle(groupCtx, drv)
		drv.Shutdown()
		if err := drv.Stop(context.Background(), cfg.Driver.StopTimeout.Std()); err != nil {
			logger.Warn("driver stop", "error", err)
		}
		return nil
	})

	runErr := group.Wait()

	printSummary(logger, generator, drv, recorder)
	return runErr
}

// waitForIdle polls until every accepted work item has been executed or
// the context is cancelled
func waitForIdle(ctx context.Context, drv *driver.Driver) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if drv.QueueDepth() == 0 && drv.IsIdle() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func loadConfig(cli *cliConfig) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if cli.configPath != "" {
		cfg, err = config.Load(cli.configPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}

	if cli.logLevel != "" {
		cfg.Log.Level = cli.logLevel
	}
	if cli.logFormat != "" {
		cfg.Log.Format = cli.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printSummary(logger *slog.Logger, g *loadgen.Generator, drv *driver.Driver, r *loadgen.Recorder) {
	snapshot := r.Snapshot()
	logger.Info("run summary",
		"generated", g.Generated(),
		"submitted", g.Submitted(),
		"work_items_scheduled", drv.ScheduledOpCount(),
		"work_items_completed", drv.CompletedOpCount(),
		"completions", snapshot.Total,
		"succeeded", snapshot.ByStatus[op.StatusSucc],
		"failed_io", snapshot.ByStatus[op.StatusFailIO],
		"failed_timeout", snapshot.ByStatus[op.StatusFailTimeout],
		"overflow", snapshot.Overflow,
	)
}
