package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-result-engine/internal/models"
	appErrors "github.com/noah-isme/sma-result-engine/pkg/errors"
)

type templateFinder interface {
	FindFirst(ctx context.Context, schoolID string, criteria models.TemplateCriteria) (*models.ResultTemplate, error)
}

type templateTier struct {
	name     string
	criteria func(levelID, periodID string) (models.TemplateCriteria, bool)
}

// templateTiers are tried top to bottom; the first tier yielding a template wins.
var templateTiers = []templateTier{
	{name: "level_period", criteria: func(levelID, periodID string) (models.TemplateCriteria, bool) {
		return models.TemplateCriteria{LevelID: &levelID, PeriodID: &periodID}, levelID != "" && periodID != ""
	}},
	{name: "level", criteria: func(levelID, _ string) (models.TemplateCriteria, bool) {
		return models.TemplateCriteria{LevelID: &levelID}, levelID != ""
	}},
	{name: "period", criteria: func(_, periodID string) (models.TemplateCriteria, bool) {
		return models.TemplateCriteria{PeriodID: &periodID}, periodID != ""
	}},
	{name: "default", criteria: func(_, _ string) (models.TemplateCriteria, bool) {
		return models.TemplateCriteria{DefaultOnly: true}, true
	}},
	{name: "any", criteria: func(_, _ string) (models.TemplateCriteria, bool) {
		return models.TemplateCriteria{}, true
	}},
}

// TemplateResolver picks the most specific report card template of a school.
type TemplateResolver struct {
	templates templateFinder
	logger    *zap.Logger
}

// NewTemplateResolver constructs TemplateResolver.
func NewTemplateResolver(templates templateFinder, logger *zap.Logger) *TemplateResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateResolver{templates: templates, logger: logger}
}

// Resolve returns the best match or nil when the school has no templates at all.
func (r *TemplateResolver) Resolve(ctx context.Context, schoolID, levelID, periodID string) (*models.ResultTemplate, error) {
	for _, tier := range templateTiers {
		criteria, ok := tier.criteria(levelID, periodID)
		if !ok {
			continue
		}
		tpl, err := r.templates.FindFirst(ctx, schoolID, criteria)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, appErrors.Internal(err, "failed to resolve report template")
		}
		if tpl != nil {
			r.logger.Debug("report template resolved", zap.String("template_id", tpl.ID), zap.String("tier", tier.name))
			return tpl, nil
		}
	}
	return nil, nil
}
