package service

import (
	"fmt"
	"math"

	"github.com/noah-isme/sma-result-engine/internal/models"
	appErrors "github.com/noah-isme/sma-result-engine/pkg/errors"
)

// ResolveGrade returns the first scale entry whose inclusive range contains total.
// An uncovered total is a configuration defect and surfaces as ErrNoMatchingGrade.
func ResolveGrade(total float64, scale []models.GradingScaleEntry) (models.GradingScaleEntry, error) {
	for _, entry := range scale {
		if entry.MinScore <= total && total <= entry.MaxScore {
			return entry, nil
		}
	}
	if len(scale) == 0 {
		return models.GradingScaleEntry{}, appErrors.Clone(appErrors.ErrNoMatchingGrade, "grading scale is empty")
	}
	return models.GradingScaleEntry{}, appErrors.Clone(appErrors.ErrNoMatchingGrade, fmt.Sprintf("no grade covers total %.2f", total))
}

// ResolveSummaryGrade classifies a fractional summary figure such as a report
// average. Whole-mark scales leave gaps (89.5 between 80-89 and 90-100), so a miss
// is retried with the figure rounded to the nearest mark. ok is false when the
// scale still has no band for it.
func ResolveSummaryGrade(average float64, scale []models.GradingScaleEntry) (models.GradingScaleEntry, bool) {
	if entry, err := ResolveGrade(average, scale); err == nil {
		return entry, true
	}
	if entry, err := ResolveGrade(math.Round(average), scale); err == nil {
		return entry, true
	}
	return models.GradingScaleEntry{}, false
}
