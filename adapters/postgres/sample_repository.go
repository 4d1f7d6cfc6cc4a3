package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"pvcapacity/domain/core"
	"pvcapacity/domain/montecarlo"
	"pvcapacity/domain/run"
	"pvcapacity/domain/sitelist"
	"pvcapacity/internal/errors"
	"pvcapacity/ports"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// uniqueViolation is the postgres SQLSTATE for a duplicate key
const uniqueViolation = "23505"

// insertChunk bounds the rows per multi-row insert; postgres caps bind
// parameters at 65535.
const insertChunk = 5000

// SampleRepositoryImpl implements SampleRepository for PostgreSQL
type SampleRepositoryImpl struct {
	db *sqlx.DB
}

// NewSampleRepository creates a new PostgreSQL sample repository
func NewSampleRepository(db *sqlx.DB) ports.SampleRepository {
	return &SampleRepositoryImpl{db: db}
}

type runRow struct {
	SimulationID string    `db:"simulation_id"`
	OutputName   string    `db:"output_name"`
	Runs         int       `db:"runs"`
	SeedSource   string    `db:"seed_source"`
	CutoffMW     float64   `db:"cutoff_mw"`
	StageOrder   string    `db:"stage_order"`
	SiteCount    int       `db:"site_count"`
	CodeVersion  string    `db:"code_version"`
	Fingerprint  string    `db:"fingerprint"`
	Manifest     string    `db:"manifest"`
	CreatedAt    time.Time `db:"created_at"`
}

// SaveRun inserts the manifest of a simulation. Uploading the same
// simulation twice is a collision.
func (r *SampleRepositoryImpl) SaveRun(ctx context.Context, m *run.Manifest) error {
	manifestJSON, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "failed to encode manifest")
	}
	row := runRow{
		SimulationID: m.SimulationID.String(),
		OutputName:   m.OutputName,
		Runs:         m.Runs,
		SeedSource:   m.SeedSource,
		CutoffMW:     m.CutoffMW,
		StageOrder:   m.Fingerprint.StageOrder,
		SiteCount:    m.SiteCount,
		CodeVersion:  m.CodeVersion,
		Fingerprint:  string(m.Fingerprint.Fingerprint),
		Manifest:     string(manifestJSON),
		CreatedAt:    m.CreatedAt.Time(),
	}

	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO monte_carlo_runs (
			simulation_id, output_name, runs, seed_source, cutoff_mw, stage_order,
			site_count, code_version, fingerprint, manifest, created_at
		) VALUES (
			:simulation_id, :output_name, :runs, :seed_source, :cutoff_mw, :stage_order,
			:site_count, :code_version, :fingerprint, :manifest, :created_at
		)`, row)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return core.NewOutputCollisionError(m.OutputName)
		}
		return errors.DatabaseError("failed to save run", err)
	}
	return nil
}

type sampleRow struct {
	SimulationID string `db:"simulation_id"`
	montecarlo.Sample
}

// SaveSamples inserts samples in one transaction
func (r *SampleRepositoryImpl) SaveSamples(ctx context.Context, id core.SimulationID, samples []montecarlo.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	rows := make([]sampleRow, len(samples))
	for i, s := range samples {
		rows[i] = sampleRow{SimulationID: id.String(), Sample: s}
	}

	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		for start := 0; start < len(rows); start += insertChunk {
			end := start + insertChunk
			if end > len(rows) {
				end = len(rows)
			}
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO monte_carlo_samples (simulation_id, sample_index, seed, national_capacity_mw)
				VALUES (:simulation_id, :sample_index, :seed, :national_capacity_mw)`, rows[start:end]); err != nil {
				return errors.DatabaseError("failed to save samples", err)
			}
		}
		return nil
	})
}

// ListSamples returns the samples of a simulation ordered by index
func (r *SampleRepositoryImpl) ListSamples(ctx context.Context, id core.SimulationID) ([]montecarlo.Sample, error) {
	var samples []montecarlo.Sample
	err := r.db.SelectContext(ctx, &samples, `
		SELECT sample_index, seed, national_capacity_mw
		FROM monte_carlo_samples
		WHERE simulation_id = $1
		ORDER BY sample_index`, id.String())
	if err != nil {
		return nil, errors.DatabaseError("failed to list samples", err)
	}
	if len(samples) == 0 {
		return nil, errors.NotFound("simulation " + id.String())
	}
	return samples, nil
}

type siteRow struct {
	SimulationID   string          `db:"simulation_id"`
	Label          string          `db:"label"`
	SiteID         string          `db:"site_id"`
	Capacity       float64         `db:"capacity"`
	SystemType     string          `db:"system_type"`
	Unreported     string          `db:"unreported"`
	Decommissioned bool            `db:"decommissioned"`
	Latitude       sql.NullFloat64 `db:"latitude"`
	Longitude      sql.NullFloat64 `db:"longitude"`
}

func nullable(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

// SaveSiteList stores a realized site list under label, e.g. a percentile
func (r *SampleRepositoryImpl) SaveSiteList(ctx context.Context, id core.SimulationID, label string, records []sitelist.Record) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]siteRow, len(records))
	for i, rec := range records {
		rows[i] = siteRow{
			SimulationID:   id.String(),
			Label:          label,
			SiteID:         rec.SiteID,
			Capacity:       rec.Capacity,
			SystemType:     string(rec.SystemType),
			Unreported:     string(rec.Unreported),
			Decommissioned: rec.Decommissioned,
			Latitude:       nullable(rec.Location.Latitude),
			Longitude:      nullable(rec.Location.Longitude),
		}
	}

	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		for start := 0; start < len(rows); start += insertChunk {
			end := start + insertChunk
			if end > len(rows) {
				end = len(rows)
			}
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO monte_carlo_site_lists (
					simulation_id, label, site_id, capacity, system_type,
					unreported, decommissioned, latitude, longitude
				) VALUES (
					:simulation_id, :label, :site_id, :capacity, :system_type,
					:unreported, :decommissioned, :latitude, :longitude
				)`, rows[start:end]); err != nil {
				return errors.DatabaseError("failed to save site list", err)
			}
		}
		return nil
	})
}

func (r *SampleRepositoryImpl) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit", err)
	}
	return nil
}
