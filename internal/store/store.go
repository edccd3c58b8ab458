// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"aquaculture-risk/internal/models"
)

// RunStore defines the interface for the local run history.
type RunStore interface {
	// Runs
	SaveRun(ctx context.Context, run *models.RunRecord, scenarios []models.Scenario) error
	GetRun(ctx context.Context, runID string) (*models.RunRecord, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]models.RunRecord, error)
	DeleteRun(ctx context.Context, runID string) error

	// Scenarios
	GetScenarios(ctx context.Context, runID string) ([]models.Scenario, error)

	// Lifecycle
	Close() error
}

// RunFilter represents filters for listing runs.
type RunFilter struct {
	SiteID    *int
	Species   string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}
