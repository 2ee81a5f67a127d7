// Package di provides dependency injection container
package di

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/ssargent/logbuf/pkg/api" //nolint:depguard
	"github.com/ssargent/logbuf/pkg/config"
	"github.com/ssargent/logbuf/pkg/logging"
	"github.com/ssargent/logbuf/pkg/metrics"
	"github.com/ssargent/logbuf/pkg/printk"
	"github.com/ssargent/logbuf/pkg/sink"
	"github.com/ssargent/logbuf/pkg/store"
	"go.uber.org/zap"
)

// ServerStarter runs the API server until ctx is cancelled
type ServerStarter func(ctx context.Context, s *api.Server, gatherer prometheus.Gatherer) error

// Container holds all the dependencies for the application
type Container struct {
	config         *config.Config
	logger         *zap.Logger
	registry       *prometheus.Registry
	decoderMetrics *metrics.DecoderMetrics
	apiMetrics     *api.Metrics
	serverStarter  ServerStarter
}

// NewContainer creates a new dependency injection container. Init must be
// called before the container is used.
func NewContainer() *Container {
	return &Container{
		serverStarter: api.StartServer,
	}
}

// Init builds the logger and metrics for cfg
func (c *Container) Init(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c.config = cfg
	c.logger = logger
	c.registry = registry
	c.decoderMetrics = metrics.NewDecoderMetrics(registry)
	c.apiMetrics = api.NewMetrics(registry)
	return nil
}

// Config returns the active configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the application logger
func (c *Container) Logger() *zap.Logger {
	if c.logger == nil {
		return zap.NewNop()
	}
	return c.logger
}

// Registry returns the Prometheus registry shared by all metrics
func (c *Container) Registry() *prometheus.Registry {
	return c.registry
}

// DecoderMetrics returns the decoder observer
func (c *Container) DecoderMetrics() *metrics.DecoderMetrics {
	return c.decoderMetrics
}

// ReaderConfig returns the log reader configuration for the capture at path
func (c *Container) ReaderConfig(path string, startOffset int64) store.LogReaderConfig {
	return store.LogReaderConfig{
		FilePath:      path,
		StartOffset:   startOffset,
		ByteOrder:     c.config.ByteOrder(),
		MaxRecordSize: c.config.Decoder.MaxRecordSize,
		Compression:   c.config.Compression(),
	}
}

// OpenReader opens the capture at path with the configured decoder options
// and metrics attached
func (c *Container) OpenReader(path string, startOffset int64) (*store.LogReader, error) {
	if c.config == nil {
		return nil, fmt.Errorf("dependency container not initialized")
	}
	return store.NewLogReader(c.ReaderConfig(path, startOffset), printk.WithObserver(c.decoderMetrics))
}

// NewRecordStore creates a record store with the configured capacity
func (c *Container) NewRecordStore() *store.RecordStore {
	return store.NewRecordStore(c.config.Store.Capacity)
}

// NewSink creates the configured output sink
func (c *Container) NewSink(w io.Writer) (sink.Sink, error) {
	return sink.New(c.config.Output.Format, w)
}

// OpenArchive opens the configured pebble archive
func (c *Container) OpenArchive() (*sink.Archive, error) {
	return sink.OpenArchive(c.config.Archive.Dir)
}

// NewServer creates the API server for a decoded capture
func (c *Container) NewServer(records api.RecordReader, pass api.PassSummary) *api.Server {
	cfg := api.ServerConfig{
		Bind:   c.config.Server.Bind,
		Port:   c.config.Server.Port,
		APIKey: c.config.Server.APIKey,
	}
	return api.NewServer(records, pass, cfg, c.apiMetrics, c.Logger().Named("api"))
}

// StartServer runs s with the registered server starter
func (c *Container) StartServer(ctx context.Context, s *api.Server) error {
	return c.serverStarter(ctx, s, c.registry)
}

// SetServerStarter allows overriding how the server is started (for testing)
func (c *Container) SetServerStarter(starter ServerStarter) {
	c.serverStarter = starter
}
