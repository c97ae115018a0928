package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-result-engine/internal/models"
)

// TemplateRepository reads school-authored report card templates.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository constructs the repository.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// FindFirst returns the most recently updated template matching the criteria, or nil when none does.
// A nil level or period in the criteria leaves that column unconstrained.
func (r *TemplateRepository) FindFirst(ctx context.Context, schoolID string, criteria models.TemplateCriteria) (*models.ResultTemplate, error) {
	where := []string{"school_id = $1"}
	args := []interface{}{schoolID}
	if criteria.LevelID != nil {
		args = append(args, *criteria.LevelID)
		where = append(where, fmt.Sprintf("level_id = $%d", len(args)))
	}
	if criteria.PeriodID != nil {
		args = append(args, *criteria.PeriodID)
		where = append(where, fmt.Sprintf("period_id = $%d", len(args)))
	}
	if criteria.DefaultOnly {
		where = append(where, "is_default = TRUE")
	}

	query := fmt.Sprintf(`SELECT id, school_id, name, level_id, period_id, is_default, content, created_at, updated_at
FROM result_templates
WHERE %s
ORDER BY updated_at DESC, id ASC
LIMIT 1`, strings.Join(where, " AND "))

	var tpl models.ResultTemplate
	if err := r.db.GetContext(ctx, &tpl, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find result template: %w", err)
	}
	return &tpl, nil
}
