package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Incia94/mongoose-storage-driver-preempt/errors"
)

// Duration wraps time.Duration with YAML decoding from strings like "50ms"
type Duration time.Duration

// UnmarshalYAML decodes a duration from either a Go duration string or a
// plain integer number of nanoseconds
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration at line %d", value.Line)
	}
	*d = Duration(n)
	return nil
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the complete application configuration
type Config struct {
	Driver  DriverConfig  `yaml:"driver"`
	Storage StorageConfig `yaml:"storage"`
	Load    LoadConfig    `yaml:"load"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// DriverConfig carries the dispatcher capacity parameters
type DriverConfig struct {
	// Name labels the driver in logs and metrics
	Name string `yaml:"name"`
	// WorkerCount is the fixed number of workers
	WorkerCount int `yaml:"worker_count"`
	// QueueCapacity bounds the submission queue
	QueueCapacity int `yaml:"queue_capacity"`
	// DownstreamCapacity sizes the completion queue consumed by the load
	// generator
	DownstreamCapacity int `yaml:"downstream_capacity"`
	// BatchSize is the maximum number of work items drained per worker
	// iteration
	BatchSize int `yaml:"batch_size"`
	// PollInterval bounds how long an idle worker blocks between state
	// checks
	PollInterval Duration `yaml:"poll_interval"`
	// StopTimeout bounds how long Stop waits for workers to exit
	StopTimeout Duration `yaml:"stop_timeout"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	NATS NATSConfig `yaml:"nats"`
	// Bucket is the object store bucket operations target
	Bucket string `yaml:"bucket"`
	// Replicas is the object store replication factor
	Replicas int `yaml:"replicas"`
	// MaxBytes caps the bucket size, 0 for unlimited
	MaxBytes int64 `yaml:"max_bytes"`
}

// NATSConfig defines the NATS connection settings
type NATSConfig struct {
	URLs           []string `yaml:"urls"`
	Name           string   `yaml:"name"`
	MaxReconnects  int      `yaml:"max_reconnects"`
	ReconnectWait  Duration `yaml:"reconnect_wait"`
	ConnectTimeout Duration `yaml:"connect_timeout"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
}

// LoadConfig shapes the generated operation stream
type LoadConfig struct {
	// OpCount is the total number of operations to generate, 0 to run
	// until stopped
	OpCount int64 `yaml:"op_count"`
	// RatePerSecond caps the submission rate, 0 for unpaced
	RatePerSecond float64 `yaml:"rate_per_second"`
	// RangeSize is how many operations are submitted per range call
	RangeSize int `yaml:"range_size"`
	// ItemPrefix namespaces generated item names
	ItemPrefix string `yaml:"item_prefix"`
	// PayloadSize is the size in bytes of create and update payloads
	PayloadSize int64 `yaml:"payload_size"`
	// Mix weights the generated operation types; zero-weight types are
	// never generated
	Mix MixConfig `yaml:"mix"`
}

// MixConfig weights the operation types in the generated stream
type MixConfig struct {
	Create int `yaml:"create"`
	Read   int `yaml:"read"`
	Update int `yaml:"update"`
	Delete int `yaml:"delete"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// LogConfig configures the process logger
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
	// Format is json or text
	Format string `yaml:"format"`
}

// SlogLevel maps the configured level to a slog.Level
func (c LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, errors.WrapInvalid(errors.ErrInvalidConfig, "config", "SlogLevel",
			fmt.Sprintf("unknown log level %q", c.Level))
	}
}

// Default returns the configuration used when no file is supplied
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads, expands and validates a YAML configuration file.
// ${VAR} references are expanded from the environment before parsing, so
// credentials can stay out of the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "config", "Load", fmt.Sprintf("read config file %s", path))
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.WrapInvalid(err, "config", "Load", fmt.Sprintf("parse config file %s", path))
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills every unset field with its default
func (c *Config) ApplyDefaults() {
	if c.Driver.Name == "" {
		c.Driver.Name = "nats"
	}
	if c.Driver.WorkerCount == 0 {
		c.Driver.WorkerCount = 4
	}
	if c.Driver.QueueCapacity == 0 {
		c.Driver.QueueCapacity = 1000
	}
	if c.Driver.DownstreamCapacity == 0 {
		c.Driver.DownstreamCapacity = 1_000_000
	}
	if c.Driver.BatchSize == 0 {
		c.Driver.BatchSize = 32
	}
	if c.Driver.StopTimeout == 0 {
		c.Driver.StopTimeout = Duration(time.Second)
	}

	if len(c.Storage.NATS.URLs) == 0 {
		c.Storage.NATS.URLs = []string{"nats://localhost:4222"}
	}
	if c.Storage.NATS.Name == "" {
		c.Storage.NATS.Name = "preempt-driver"
	}
	if c.Storage.NATS.MaxReconnects == 0 {
		c.Storage.NATS.MaxReconnects = 10
	}
	if c.Storage.NATS.ReconnectWait == 0 {
		c.Storage.NATS.ReconnectWait = Duration(2 * time.Second)
	}
	if c.Storage.NATS.ConnectTimeout == 0 {
		c.Storage.NATS.ConnectTimeout = Duration(5 * time.Second)
	}
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = "preempt"
	}
	if c.Storage.Replicas == 0 {
		c.Storage.Replicas = 1
	}

	if c.Load.RangeSize == 0 {
		c.Load.RangeSize = 32
	}
	if c.Load.ItemPrefix == "" {
		c.Load.ItemPrefix = "item"
	}
	if c.Load.PayloadSize == 0 {
		c.Load.PayloadSize = 4096
	}
	if c.Load.Mix == (MixConfig{}) {
		c.Load.Mix = MixConfig{Create: 1}
	}

	if c.Metrics.Port == 0 {
		c.Metrics.Port = 9090
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate checks the configuration for hard errors. Tuning concerns such
// as an oversized queue-capacity and batch-size product are the driver's
// to warn about, not validation failures.
func (c *Config) Validate() error {
	if c.Driver.WorkerCount < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"driver.worker_count must be positive")
	}
	if c.Driver.QueueCapacity < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"driver.queue_capacity must be positive")
	}
	if c.Driver.BatchSize < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"driver.batch_size must be at least 1")
	}
	if c.Driver.DownstreamCapacity < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"driver.downstream_capacity must not be negative")
	}

	for _, u := range c.Storage.NATS.URLs {
		if !strings.Contains(u, "://") {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
				fmt.Sprintf("storage.nats.urls entry %q is not a URL", u))
		}
	}
	if c.Storage.Replicas < 1 || c.Storage.Replicas > 5 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"storage.replicas must be between 1 and 5")
	}

	if c.Load.OpCount < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"load.op_count must not be negative")
	}
	if c.Load.RatePerSecond < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"load.rate_per_second must not be negative")
	}
	if c.Load.RangeSize < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"load.range_size must be at least 1")
	}
	if c.Load.PayloadSize < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"load.payload_size must not be negative")
	}
	mix := c.Load.Mix
	if mix.Create < 0 || mix.Read < 0 || mix.Update < 0 || mix.Delete < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"load.mix weights must not be negative")
	}
	if mix.Create+mix.Read+mix.Update+mix.Delete == 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"load.mix must give at least one operation type a positive weight")
	}

	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"metrics.port out of range")
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("log.format must be json or text, got %q", c.Log.Format))
	}

	return nil
}
