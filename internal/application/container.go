// Package application provides application-level services and dependency injection.
package application

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/jbctechsolutions/medsync/internal/adapters/remote"
	"github.com/jbctechsolutions/medsync/internal/adapters/sqlite"
	"github.com/jbctechsolutions/medsync/internal/application/engine"
	"github.com/jbctechsolutions/medsync/internal/application/policy"
	"github.com/jbctechsolutions/medsync/internal/application/ports"
	appResilience "github.com/jbctechsolutions/medsync/internal/application/resilience"
	"github.com/jbctechsolutions/medsync/internal/infrastructure/config"
	"github.com/jbctechsolutions/medsync/internal/infrastructure/logging"
	"github.com/jbctechsolutions/medsync/internal/infrastructure/storage"
	"github.com/jbctechsolutions/medsync/internal/infrastructure/storageprobe"
	"github.com/jbctechsolutions/medsync/internal/infrastructure/tracing"
)

// Container holds all application dependencies and provides a central
// point for dependency injection. It manages the lifecycle of services
// and ensures proper initialization order.
type Container struct {
	// Configuration
	config  *config.Config
	verbose bool // Override log level to debug when true

	// Database connection
	dbConn *sqlite.Connection
	db     *sql.DB

	// Repositories
	queueRepo      ports.QueueStoragePort
	resilienceRepo ports.ResilienceStoragePort

	// Adapters
	remoteClient *remote.Client
	probe        ports.StorageProbePort

	// Application services
	syncEngine    *engine.Engine
	tracker       *appResilience.Tracker
	policyManager *policy.Manager

	// Observability
	logger *logging.Logger
	tracer *tracing.Tracer

	// Background service lifecycle
	runCancel context.CancelFunc
}

// NewContainer creates a new dependency injection container with all services
// initialized based on the provided configuration.
func NewContainer(cfg *config.Config, verbose bool) (*Container, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	c := &Container{
		config:  cfg,
		verbose: verbose,
	}

	if err := c.initObservability(); err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	if err := c.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	c.initRepositories()

	if err := c.initPolicy(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize resolution policy: %w", err)
	}

	c.initServices()

	return c, nil
}

// initObservability initializes logging and tracing.
func (c *Container) initObservability() error {
	logLevel := logging.Level(c.config.Logging.Level)
	if c.verbose {
		logLevel = logging.LevelDebug
	}
	logFormat := logging.FormatText
	if c.config.Logging.Format == "json" {
		logFormat = logging.FormatJSON
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logLevel
	logCfg.Format = logFormat
	c.logger = logging.New(logCfg)

	if c.config.Observability.Tracing.Enabled {
		tracer, err := tracing.New(context.Background(), tracing.Config{
			Enabled:      true,
			ExporterType: tracing.ExporterType(c.config.Observability.Tracing.ExporterType),
			OTLPEndpoint: c.config.Observability.Tracing.OTLPEndpoint,
			ServiceName:  c.config.Observability.Tracing.ServiceName,
			Environment:  "production",
			SampleRate:   c.config.Observability.Tracing.SampleRate,
		})
		if err != nil {
			return fmt.Errorf("failed to create tracer: %w", err)
		}
		c.tracer = tracer
	} else {
		c.tracer = tracing.Default()
	}

	return nil
}

// initDatabase initializes the SQLite database connection.
func (c *Container) initDatabase() error {
	// Empty path means ~/.medsync/medsync.db
	conn, err := sqlite.NewConnection(c.config.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	if err := conn.Open(); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db, err := conn.DB()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to get database handle: %w", err)
	}

	c.dbConn = conn
	c.db = db
	return nil
}

// initRepositories initializes all storage repositories.
func (c *Container) initRepositories() {
	c.queueRepo = storage.NewQueueRepository(c.db)
	c.resilienceRepo = storage.NewResilienceRepository(c.db)
}

// initPolicy loads the conflict resolution policy and, when configured,
// starts watching the policy file for changes.
func (c *Container) initPolicy() error {
	manager, err := policy.NewManager(c.config.Policy.File, c.logger)
	if err != nil {
		return err
	}
	c.policyManager = manager

	if c.config.Policy.WatchReload && c.config.Policy.File != "" {
		if err := manager.Watch(); err != nil {
			// Hot reload is optional; the loaded policy still applies.
			c.logger.Warn("failed to watch policy file", "error", err.Error())
		}
	}
	return nil
}

// initServices wires the engine, transport and the resilience tracker.
func (c *Container) initServices() {
	clientOpts := []remote.ClientOption{}
	if c.config.Remote.BaseURL != "" {
		clientOpts = append(clientOpts, remote.WithBaseURL(c.config.Remote.BaseURL))
	}
	if c.config.Remote.APIKey != "" {
		clientOpts = append(clientOpts, remote.WithAPIKey(c.config.Remote.APIKey))
	}
	if c.config.Remote.Timeout > 0 {
		clientOpts = append(clientOpts, remote.WithTimeout(c.config.Remote.Timeout))
	}
	c.remoteClient = remote.NewClient(clientOpts...)

	dataDir := c.config.Storage.DataDir
	if dataDir == "" {
		dataDir = filepath.Dir(c.dbConn.Path())
	}
	c.probe = storageprobe.New(dataDir)

	c.syncEngine = engine.NewEngine(c.queueRepo, c.remoteClient, engine.Config{
		Workers:         c.config.Queue.Workers,
		BatchSize:       c.config.Queue.BatchSize,
		PollInterval:    c.config.Queue.PollInterval,
		DeliveryTimeout: c.config.Queue.DeliveryTimeout,
	}, c.logger, c.tracer)
	c.syncEngine.SetReconciler(engine.NewReconciler(c.remoteClient, c.policyManager, c.logger, c.tracer))

	c.tracker = appResilience.NewTracker(c.resilienceRepo, c.queueRepo, c.probe, appResilience.Config{
		SnapshotInterval: c.config.Resilience.SnapshotInterval,
		ReportWindow:     c.config.Resilience.ReportWindow,
	}, c.logger)
	c.syncEngine.SetAttemptRecorder(c.tracker)
}

// Start launches the delivery workers and the snapshot loop.
func (c *Container) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	c.runCancel = cancel

	c.syncEngine.Start(runCtx)
	go c.tracker.Run(runCtx)
}

// Close releases all resources held by the container. Workers drain
// before the database closes underneath them.
func (c *Container) Close() error {
	if c.runCancel != nil {
		c.runCancel()
		c.runCancel = nil
	}
	if c.syncEngine != nil {
		c.syncEngine.Stop()
	}

	if c.policyManager != nil {
		_ = c.policyManager.Close()
	}

	if c.tracer != nil {
		_ = c.tracer.Shutdown(context.Background())
	}

	if c.dbConn != nil {
		return c.dbConn.Close()
	}
	return nil
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// DB returns the underlying database handle.
func (c *Container) DB() *sql.DB {
	return c.db
}

// Engine returns the synchronization engine.
func (c *Container) Engine() *engine.Engine {
	return c.syncEngine
}

// Tracker returns the offline resilience tracker.
func (c *Container) Tracker() *appResilience.Tracker {
	return c.tracker
}

// QueueRepository returns the durable queue store.
func (c *Container) QueueRepository() ports.QueueStoragePort {
	return c.queueRepo
}

// ResilienceRepository returns the resilience metrics store.
func (c *Container) ResilienceRepository() ports.ResilienceStoragePort {
	return c.resilienceRepo
}

// PolicyManager returns the conflict resolution policy manager.
func (c *Container) PolicyManager() *policy.Manager {
	return c.policyManager
}

// Logger returns the application logger.
func (c *Container) Logger() *logging.Logger {
	return c.logger
}

// Tracer returns the application tracer.
func (c *Container) Tracer() *tracing.Tracer {
	return c.tracer
}
