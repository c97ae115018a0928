package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/noah-isme/sma-result-engine/internal/models"
	appErrors "github.com/noah-isme/sma-result-engine/pkg/errors"
)

// CumulativeInput carries the period totals folded into a cumulative figure.
type CumulativeInput struct {
	Enabled            bool
	Method             models.CumulativeMethod
	Current            models.PeriodTotal
	Previous           []models.PeriodTotal
	ProgressiveWeights []float64
}

// CumulativeCalculator folds a student's period totals within a session.
type CumulativeCalculator struct {
	progressiveWeights []float64
	roundingMode       func(float64) float64
}

// NewCumulativeCalculator builds a calculator; progressiveWeights is the default
// term schedule used when a configuration does not carry its own.
func NewCumulativeCalculator(progressiveWeights []float64) *CumulativeCalculator {
	return &CumulativeCalculator{
		progressiveWeights: progressiveWeights,
		roundingMode:       roundHalfEven,
	}
}

// Compute returns the cumulative figure for the input. Disabled aggregation or a
// session with no earlier periods yields the current total.
func (c *CumulativeCalculator) Compute(in CumulativeInput) (float64, error) {
	if !in.Enabled || len(in.Previous) == 0 {
		return in.Current.Total, nil
	}
	periods := make([]models.PeriodTotal, 0, len(in.Previous)+1)
	periods = append(periods, in.Previous...)
	periods = append(periods, in.Current)

	switch in.Method {
	case models.CumulativeSimpleAverage, "":
		return c.roundingMode(simpleAverage(periods)), nil
	case models.CumulativeWeightedAverage:
		weights := make([]float64, len(periods))
		for i, p := range periods {
			weights[i] = models.ResultPeriod{Weight: p.Weight}.EffectiveWeight()
		}
		return c.roundingMode(weightedAverage(periods, weights, in.Current.Total)), nil
	case models.CumulativeProgressiveAverage:
		schedule := in.ProgressiveWeights
		if len(schedule) == 0 {
			schedule = c.progressiveWeights
		}
		if len(schedule) == 0 {
			return c.roundingMode(simpleAverage(periods)), nil
		}
		sort.SliceStable(periods, func(i, j int) bool { return periods[i].Sequence < periods[j].Sequence })
		weights := make([]float64, len(periods))
		for i, p := range periods {
			if p.Sequence < 1 {
				return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("period %s has no schedule position", p.PeriodID))
			}
			weights[i] = progressiveWeight(schedule, p.Sequence)
		}
		return c.roundingMode(weightedAverage(periods, weights, in.Current.Total)), nil
	default:
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported cumulative method %q", in.Method))
	}
}

func simpleAverage(periods []models.PeriodTotal) float64 {
	sum := 0.0
	for _, p := range periods {
		sum += p.Total
	}
	return sum / float64(len(periods))
}

func weightedAverage(periods []models.PeriodTotal, weights []float64, fallback float64) float64 {
	sum, totalWeight := 0.0, 0.0
	for i, p := range periods {
		sum += p.Total * weights[i]
		totalWeight += weights[i]
	}
	if totalWeight == 0 {
		return fallback
	}
	return sum / totalWeight
}

// progressiveWeight picks the schedule slot of a 1-based sequence. Slots past the
// end reuse the last one.
func progressiveWeight(schedule []float64, sequence int) float64 {
	slot := sequence - 1
	if slot >= len(schedule) {
		slot = len(schedule) - 1
	}
	return schedule[slot]
}

func roundHalfEven(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

type periodTotalsLoader func(ctx context.Context, key models.ResultKey, periodIDs []string) ([]models.PeriodTotal, error)

// priorPeriodTotals loads the totals of the periods scheduled before key's period
// and stamps each with the configured sequence and weight. Totals for periods the
// configuration does not schedule earlier are dropped.
func priorPeriodTotals(ctx context.Context, config *models.ResultConfiguration, key models.ResultKey, load periodTotalsLoader) ([]models.PeriodTotal, error) {
	prior := config.PeriodsBefore(key.PeriodID)
	if len(prior) == 0 {
		return nil, nil
	}
	ids := make([]string, len(prior))
	byID := make(map[string]models.ResultPeriod, len(prior))
	for i, p := range prior {
		ids[i] = p.ID
		byID[p.ID] = p
	}

	totals, err := load(ctx, key, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.PeriodTotal, 0, len(totals))
	for _, t := range totals {
		period, ok := byID[t.PeriodID]
		if !ok {
			continue
		}
		t.Sequence, t.Weight = period.Sequence, period.Weight
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}
