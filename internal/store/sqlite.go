package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mattn/go-sqlite3"

	apperrors "aquaculture-risk/internal/errors"
	"aquaculture-risk/internal/models"
)

// SQLiteStore implements RunStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based run store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- One row per finished run
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		generated_at DATETIME NOT NULL,
		simulation_type TEXT NOT NULL,
		n_simulations INTEGER NOT NULL,
		time_horizon_days INTEGER NOT NULL,
		time_steps INTEGER NOT NULL,
		seed TEXT NOT NULL,
		workers INTEGER NOT NULL,
		site_id INTEGER NOT NULL,
		species TEXT NOT NULL,
		parameters TEXT NOT NULL,
		summary TEXT NOT NULL,
		mean_profit REAL NOT NULL,
		var_95 REAL NOT NULL,
		prob_loss REAL NOT NULL,
		sharpe_ratio REAL NOT NULL,
		duration INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Per-trial outcomes; raw paths are not kept
	CREATE TABLE IF NOT EXISTS scenarios (
		run_id TEXT NOT NULL,
		simulation_id INTEGER NOT NULL,
		site_id INTEGER NOT NULL,
		species TEXT NOT NULL,
		survival_rate REAL NOT NULL,
		n_mortality_events INTEGER NOT NULL,
		final_price REAL NOT NULL,
		final_weight_kg REAL NOT NULL,
		total_biomass_kg REAL NOT NULL,
		surviving_fish INTEGER NOT NULL,
		revenue REAL NOT NULL,
		total_cost REAL NOT NULL,
		profit REAL NOT NULL,
		roi REAL NOT NULL,
		profit_margin REAL NOT NULL,
		PRIMARY KEY (run_id, simulation_id),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_runs_generated_at ON runs(generated_at);
	CREATE INDEX IF NOT EXISTS idx_runs_site ON runs(site_id, species);
	`

	_, err := s.db.Exec(schema)
	return err
}

// IsTransient reports whether err is a lock conflict that may clear on retry.
func IsTransient(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun stores a run and its scenarios in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *models.RunRecord, scenarios []models.Scenario) error {
	if run == nil || run.Metadata.RunID == "" {
		return fmt.Errorf("%w: run id is required", apperrors.ErrDatabaseError)
	}

	params, err := json.Marshal(run.Parameters)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	m := run.Metadata
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, generated_at, simulation_type, n_simulations, time_horizon_days, time_steps, seed, workers, site_id, species, parameters, summary, mean_profit, var_95, prob_loss, sharpe_ratio, duration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.RunID, m.GeneratedAt.UTC(), m.SimulationType, m.NSimulations, m.TimeHorizonDays, m.TimeSteps,
		strconv.FormatUint(m.Seed, 10), m.Workers, m.SiteID, m.Species, string(params), string(summary),
		run.Summary.MeanProfit, run.Summary.VaR95, run.Summary.ProbLoss, run.Summary.SharpeRatio,
		run.Duration.Nanoseconds())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scenarios (run_id, simulation_id, site_id, species, survival_rate, n_mortality_events, final_price, final_weight_kg, total_biomass_kg, surviving_fish, revenue, total_cost, profit, roi, profit_margin)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, sc := range scenarios {
		_, err := stmt.ExecContext(ctx, m.RunID, sc.SimulationID, sc.SiteID, sc.Species, sc.SurvivalRate,
			sc.NMortalityEvents, sc.FinalPrice, sc.FinalWeightKg, sc.TotalBiomassKg, sc.SurvivingFish,
			sc.Revenue, sc.TotalCost, sc.Profit, sc.ROI, sc.ProfitMargin)
		if err != nil {
			return fmt.Errorf("failed to insert scenario %d: %w", sc.SimulationID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

const runColumns = "id, generated_at, simulation_type, n_simulations, time_horizon_days, time_steps, seed, workers, site_id, species, parameters, summary, duration"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*models.RunRecord, error) {
	var r models.RunRecord
	var seed, paramsJSON, summaryJSON string
	var duration int64

	err := row.Scan(&r.Metadata.RunID, &r.Metadata.GeneratedAt, &r.Metadata.SimulationType,
		&r.Metadata.NSimulations, &r.Metadata.TimeHorizonDays, &r.Metadata.TimeSteps, &seed,
		&r.Metadata.Workers, &r.Metadata.SiteID, &r.Metadata.Species, &paramsJSON, &summaryJSON, &duration)
	if err != nil {
		return nil, err
	}

	if r.Metadata.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
		return nil, fmt.Errorf("failed to decode seed: %w", err)
	}
	if err := json.Unmarshal([]byte(paramsJSON), &r.Parameters); err != nil {
		return nil, fmt.Errorf("failed to decode parameters: %w", err)
	}
	if err := json.Unmarshal([]byte(summaryJSON), &r.Summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}
	r.Duration = time.Duration(duration)

	return &r, nil
}

// GetRun retrieves a run by id.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*models.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]models.RunRecord, error) {
	query := "SELECT " + runColumns + " FROM runs WHERE 1=1"
	args := []interface{}{}

	if filter.SiteID != nil {
		query += " AND site_id = ?"
		args = append(args, *filter.SiteID)
	}
	if filter.Species != "" {
		query += " AND species = ?"
		args = append(args, filter.Species)
	}
	if !filter.StartDate.IsZero() {
		query += " AND generated_at >= ?"
		args = append(args, filter.StartDate.UTC())
	}
	if !filter.EndDate.IsZero() {
		query += " AND generated_at <= ?"
		args = append(args, filter.EndDate.UTC())
	}

	query += " ORDER BY generated_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetScenarios retrieves the scenarios of a run ordered by simulation id.
func (s *SQLiteStore) GetScenarios(ctx context.Context, runID string) ([]models.Scenario, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT simulation_id, site_id, species, survival_rate, n_mortality_events, final_price, final_weight_kg, total_biomass_kg, surviving_fish, revenue, total_cost, profit, roi, profit_margin
		FROM scenarios WHERE run_id = ? ORDER BY simulation_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenarios: %w", err)
	}
	defer rows.Close()

	var scenarios []models.Scenario
	for rows.Next() {
		var sc models.Scenario
		err := rows.Scan(&sc.SimulationID, &sc.SiteID, &sc.Species, &sc.SurvivalRate, &sc.NMortalityEvents,
			&sc.FinalPrice, &sc.FinalWeightKg, &sc.TotalBiomassKg, &sc.SurvivingFish, &sc.Revenue,
			&sc.TotalCost, &sc.Profit, &sc.ROI, &sc.ProfitMargin)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scenario: %w", err)
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, rows.Err()
}

// DeleteRun removes a run and its scenarios.
func (s *SQLiteStore) DeleteRun(ctx context.Context, runID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM scenarios WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("failed to delete scenarios: %w", err)
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrRunNotFound, runID)
	}

	return tx.Commit()
}
