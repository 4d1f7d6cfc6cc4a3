package container

import (
	"context"
	"fmt"
	"log"

	"pvcapacity/adapters/csvsink"
	"pvcapacity/adapters/errorconfig"
	"pvcapacity/adapters/excel"
	"pvcapacity/adapters/postgres"
	"pvcapacity/adapters/rng"
	"pvcapacity/domain/core"
	"pvcapacity/domain/montecarlo"
	"pvcapacity/domain/run"
	"pvcapacity/domain/sitelist"
	"pvcapacity/internal"
	"pvcapacity/internal/api"
	"pvcapacity/internal/cache"
	"pvcapacity/internal/config"
	"pvcapacity/internal/errors"
	"pvcapacity/internal/migration"
	"pvcapacity/internal/simulation"
	"pvcapacity/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB    *sqlx.DB
	Cache *cache.Store

	// Inputs
	SiteLists    ports.SiteListSource
	ErrorConfigs ports.ErrorConfigSource
	RNG          ports.RNGPort

	// Outputs
	Sink       ports.SampleSink
	Samples    ports.SampleSource
	SampleRepo ports.SampleRepository

	RunsHandler *api.RunsHandler
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
	internal.DefaultLogger.SetLevel(logger.GetLevel())

	store := cache.New(cfg.Data.CacheDir)

	siteCfg := excel.DefaultSiteListConfig()
	siteCfg.FilePath = cfg.Data.SiteListFile
	siteCfg.RowLimit = cfg.Data.RowLimit
	siteCfg.CutoffMW = cfg.Simulation.DomesticCutoffMW

	reader := csvsink.NewReader(cfg.Output.Dir)

	c := &Container{
		Config:       cfg,
		Logger:       logger,
		Cache:        store,
		SiteLists:    excel.NewSiteListLoader(siteCfg, store),
		ErrorConfigs: errorconfig.NewLoader(),
		RNG:          rng.NewPCGAdapter(),
		Sink:         csvsink.New(cfg.Output.Dir),
		Samples:      reader,
		RunsHandler:  api.NewRunsHandler(reader),
	}
	return c, nil
}

// InitWithDatabase connects the optional result store and migrates it
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	c.DB = db

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}

	c.SampleRepo = postgres.NewSampleRepository(db)

	log.Printf("Container initialized successfully with database connection")
	return nil
}

// Inputs loads the base site list and the error configuration named by the
// config, and hashes both for the manifest.
type Inputs struct {
	Base         *sitelist.SiteList
	ErrorConfig  *montecarlo.ErrorConfig
	SiteListHash core.SiteListHash
	SpecHash     core.SpecHash
}

// LoadInputs reads and hashes the configured inputs
func (c *Container) LoadInputs() (*Inputs, error) {
	if err := c.Config.RequireInputs(); err != nil {
		return nil, err
	}
	base, err := c.SiteLists.LoadSiteList(c.Config.Data.SiteListFile)
	if err != nil {
		return nil, err
	}
	ec, err := c.ErrorConfigs.LoadErrorConfig(c.Config.Data.ErrorConfigFile)
	if err != nil {
		return nil, err
	}

	slHash, err := core.HashJSON(base.Records)
	if err != nil {
		return nil, err
	}
	specHash, err := core.HashJSON(ec)
	if err != nil {
		return nil, err
	}
	return &Inputs{
		Base:         base,
		ErrorConfig:  ec,
		SiteListHash: core.SiteListHash(slHash),
		SpecHash:     core.SpecHash(specHash),
	}, nil
}

// NewRunner builds a simulation runner for the loaded error configuration
func (c *Container) NewRunner(ec *montecarlo.ErrorConfig) (*simulation.Runner, error) {
	opts := simulation.RunnerOptions{
		Bands:            ec.UnreportedBands,
		Engine:           simulation.DefaultEngineOptions(),
		JohnsonSURetries: c.Config.Simulation.JohnsonSURetries,
	}
	opts.Engine.Verbose = c.Config.Simulation.Verbose
	return simulation.NewRunner(&ec.Spec, c.RNG, opts, c.Logger.With("simulation"))
}

// NewDriver builds a driver writing to the container's sink
func (c *Container) NewDriver(runner *simulation.Runner, in *Inputs, opts simulation.DriverOptions) *simulation.Driver {
	if opts.BatchSize == 0 {
		opts.BatchSize = c.Config.Simulation.BatchSize
	}
	if opts.Workers == 0 {
		opts.Workers = c.Config.Simulation.Workers
	}
	opts.CutoffMW = c.Config.Simulation.DomesticCutoffMW
	return simulation.NewDriver(runner, in.Base, c.Sink, in.SiteListHash, in.SpecHash, opts, c.Logger.With("driver"))
}

// ConnectDatabase opens DATABASE_URL and initializes the result store
func (c *Container) ConnectDatabase(ctx context.Context) error {
	if c.Config.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", c.Config.Database.URL)
	if err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}
	return c.InitWithDatabase(ctx, db)
}

// Upload copies a completed output (manifest and samples) into the result
// store. Uploading the same simulation twice is an output collision.
func (c *Container) Upload(ctx context.Context, name string) (*run.Manifest, error) {
	if c.SampleRepo == nil {
		return nil, errors.ConfigInvalid("no database connected")
	}
	m, err := c.Samples.ReadManifest(name)
	if err != nil {
		return nil, errors.Wrapf(err, "read manifest %s", name)
	}
	samples, err := c.Samples.ReadSamples(name)
	if err != nil {
		return nil, errors.Wrapf(err, "read samples %s", name)
	}
	if len(samples) != m.Runs {
		c.Logger.Warn("output %s holds %d of %d runs", name, len(samples), m.Runs)
	}
	if err := c.SampleRepo.SaveRun(ctx, m); err != nil {
		return nil, err
	}
	if err := c.SampleRepo.SaveSamples(ctx, m.SimulationID, samples); err != nil {
		return nil, err
	}
	c.Logger.Info("uploaded %s: simulation %s, %d samples", name, m.SimulationID, len(samples))
	return m, nil
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
