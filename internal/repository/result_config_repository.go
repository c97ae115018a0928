package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-result-engine/internal/models"
)

// ResultConfigRepository reads per school and session result rules.
type ResultConfigRepository struct {
	db *sqlx.DB
}

// NewResultConfigRepository constructs the repository.
func NewResultConfigRepository(db *sqlx.DB) *ResultConfigRepository {
	return &ResultConfigRepository{db: db}
}

// FindBySchoolAndSession loads the configuration with its grading scale, components and periods.
// Periods come back numbered 1..n in schedule order. Returns sql.ErrNoRows when the
// session has no configuration.
func (r *ResultConfigRepository) FindBySchoolAndSession(ctx context.Context, schoolID, sessionID string) (*models.ResultConfiguration, error) {
	const query = `
SELECT id, school_id, session_id, cumulative_enabled, cumulative_method, progressive_weights
FROM result_configurations
WHERE school_id = $1 AND session_id = $2`
	var cfg models.ResultConfiguration
	if err := r.db.GetContext(ctx, &cfg, query, schoolID, sessionID); err != nil {
		return nil, err
	}

	const scaleQuery = `
SELECT id, configuration_id, min_score, max_score, grade, remark, position
FROM grading_scale_entries
WHERE configuration_id = $1
ORDER BY position ASC, min_score DESC`
	if err := r.db.SelectContext(ctx, &cfg.GradingScale, scaleQuery, cfg.ID); err != nil {
		return nil, fmt.Errorf("list grading scale: %w", err)
	}

	const componentQuery = `
SELECT id, configuration_id, name, max_score, position
FROM assessment_components
WHERE configuration_id = $1
ORDER BY position ASC`
	if err := r.db.SelectContext(ctx, &cfg.Components, componentQuery, cfg.ID); err != nil {
		return nil, fmt.Errorf("list assessment components: %w", err)
	}

	const periodQuery = `
SELECT id, configuration_id, name, sequence, weight
FROM result_periods
WHERE configuration_id = $1
ORDER BY sequence ASC, start_date ASC NULLS LAST, id ASC`
	if err := r.db.SelectContext(ctx, &cfg.Periods, periodQuery, cfg.ID); err != nil {
		return nil, fmt.Errorf("list result periods: %w", err)
	}
	cfg.NormalizePeriods()

	return &cfg, nil
}
