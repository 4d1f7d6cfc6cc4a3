package migration

import (
	"context"

	"pvcapacity/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Tables lists the managed tables in dependency order
var Tables = []string{"monte_carlo_runs", "monte_carlo_samples", "monte_carlo_site_lists"}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	for _, step := range Statements() {
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			return errors.Wrap(err, "failed to "+step.Name)
		}
	}
	return nil
}

// Step is one idempotent schema statement
type Step struct {
	Name string
	SQL  string
}

// Statements returns the schema statements in execution order
func Statements() []Step {
	return []Step{
		{"create monte_carlo_runs table", `
		CREATE TABLE IF NOT EXISTS monte_carlo_runs (
			simulation_id UUID PRIMARY KEY,
			output_name VARCHAR(255) UNIQUE NOT NULL,
			runs INTEGER NOT NULL,
			seed_source VARCHAR(20) NOT NULL,
			cutoff_mw DOUBLE PRECISION NOT NULL,
			stage_order TEXT NOT NULL,
			site_count INTEGER NOT NULL,
			code_version VARCHAR(100) NOT NULL,
			fingerprint VARCHAR(64) NOT NULL,
			manifest JSONB NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			uploaded_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`},
		{"create monte_carlo_samples table", `
		CREATE TABLE IF NOT EXISTS monte_carlo_samples (
			simulation_id UUID NOT NULL REFERENCES monte_carlo_runs(simulation_id) ON DELETE CASCADE,
			sample_index INTEGER NOT NULL,
			seed BIGINT NOT NULL,
			national_capacity_mw DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (simulation_id, sample_index)
		)`},
		{"create monte_carlo_site_lists table", `
		CREATE TABLE IF NOT EXISTS monte_carlo_site_lists (
			simulation_id UUID NOT NULL REFERENCES monte_carlo_runs(simulation_id) ON DELETE CASCADE,
			label VARCHAR(50) NOT NULL,
			site_id VARCHAR(255) NOT NULL,
			capacity DOUBLE PRECISION NOT NULL,
			system_type VARCHAR(20) NOT NULL,
			unreported VARCHAR(20) NOT NULL,
			decommissioned BOOLEAN NOT NULL,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			PRIMARY KEY (simulation_id, label, site_id)
		)`},
		{"create indexes", `
		CREATE INDEX IF NOT EXISTS idx_monte_carlo_samples_seed ON monte_carlo_samples(seed);
		CREATE INDEX IF NOT EXISTS idx_monte_carlo_runs_fingerprint ON monte_carlo_runs(fingerprint)`},
	}
}
