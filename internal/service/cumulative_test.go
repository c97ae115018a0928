package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-result-engine/internal/models"
	appErrors "github.com/noah-isme/sma-result-engine/pkg/errors"
)

func ptrFloat(v float64) *float64 {
	return &v
}

func TestCumulativeDisabledReturnsCurrentTotal(t *testing.T) {
	calc := NewCumulativeCalculator(nil)
	got, err := calc.Compute(CumulativeInput{
		Enabled:  false,
		Method:   models.CumulativeWeightedAverage,
		Current:  models.PeriodTotal{Total: 95},
		Previous: []models.PeriodTotal{{Total: 10}},
	})
	require.NoError(t, err)
	assert.Equal(t, 95.0, got)

	got, err = calc.Compute(CumulativeInput{Enabled: true, Method: models.CumulativeSimpleAverage, Current: models.PeriodTotal{Total: 61}})
	require.NoError(t, err)
	assert.Equal(t, 61.0, got)
}

func TestCumulativeWeightedAverageMatchesScenario(t *testing.T) {
	calc := NewCumulativeCalculator(nil)
	got, err := calc.Compute(CumulativeInput{
		Enabled: true,
		Method:  models.CumulativeWeightedAverage,
		Current: models.PeriodTotal{Sequence: 3, Weight: ptrFloat(1), Total: 90},
		Previous: []models.PeriodTotal{
			{Sequence: 1, Weight: ptrFloat(1), Total: 70},
			{Sequence: 2, Weight: ptrFloat(1), Total: 80},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 80.0, got)
}

func TestWeightedWithUnitWeightsEqualsSimple(t *testing.T) {
	calc := NewCumulativeCalculator(nil)
	previous := []models.PeriodTotal{{Total: 63.5}, {Total: 71.25, Weight: ptrFloat(1)}}
	current := models.PeriodTotal{Total: 88}

	simple, err := calc.Compute(CumulativeInput{Enabled: true, Method: models.CumulativeSimpleAverage, Current: current, Previous: previous})
	require.NoError(t, err)
	weighted, err := calc.Compute(CumulativeInput{Enabled: true, Method: models.CumulativeWeightedAverage, Current: current, Previous: previous})
	require.NoError(t, err)
	assert.Equal(t, simple, weighted)
}

func TestCumulativeWeightedHonoursWeights(t *testing.T) {
	calc := NewCumulativeCalculator(nil)
	got, err := calc.Compute(CumulativeInput{
		Enabled:  true,
		Method:   models.CumulativeWeightedAverage,
		Current:  models.PeriodTotal{Weight: ptrFloat(2), Total: 90},
		Previous: []models.PeriodTotal{{Total: 60}},
	})
	require.NoError(t, err)
	assert.Equal(t, 80.0, got)

	got, err = calc.Compute(CumulativeInput{
		Enabled:  true,
		Method:   models.CumulativeWeightedAverage,
		Current:  models.PeriodTotal{Weight: ptrFloat(0), Total: 75},
		Previous: []models.PeriodTotal{{Weight: ptrFloat(0), Total: 60}},
	})
	require.NoError(t, err)
	assert.Equal(t, 75.0, got)
}

func TestCumulativeProgressiveUsesTermSchedule(t *testing.T) {
	calc := NewCumulativeCalculator([]float64{30, 30, 40})
	in := CumulativeInput{
		Enabled: true,
		Method:  models.CumulativeProgressiveAverage,
		Current: models.PeriodTotal{Sequence: 3, Total: 90},
		Previous: []models.PeriodTotal{
			{Sequence: 2, Total: 80},
			{Sequence: 1, Total: 70},
		},
	}
	got, err := calc.Compute(in)
	require.NoError(t, err)
	// (70*30 + 80*30 + 90*40) / 100
	assert.Equal(t, 81.0, got)

	simple, err := calc.Compute(CumulativeInput{Enabled: true, Method: models.CumulativeSimpleAverage, Current: in.Current, Previous: in.Previous})
	require.NoError(t, err)
	assert.NotEqual(t, simple, got)

	in.ProgressiveWeights = []float64{1, 1, 2}
	got, err = calc.Compute(in)
	require.NoError(t, err)
	assert.Equal(t, 82.5, got)
}

func TestCumulativeProgressiveWithoutScheduleIsSimple(t *testing.T) {
	calc := NewCumulativeCalculator(nil)
	got, err := calc.Compute(CumulativeInput{
		Enabled:  true,
		Method:   models.CumulativeProgressiveAverage,
		Current:  models.PeriodTotal{Sequence: 2, Total: 50},
		Previous: []models.PeriodTotal{{Sequence: 1, Total: 41}},
	})
	require.NoError(t, err)
	assert.Equal(t, 45.5, got)
}

func TestCumulativeRejectsUnknownMethod(t *testing.T) {
	calc := NewCumulativeCalculator(nil)
	_, err := calc.Compute(CumulativeInput{
		Enabled:  true,
		Method:   "median",
		Current:  models.PeriodTotal{Total: 50},
		Previous: []models.PeriodTotal{{Total: 40}},
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestCumulativeProgressiveRejectsUnscheduledPeriods(t *testing.T) {
	calc := NewCumulativeCalculator([]float64{30, 30, 40})
	_, err := calc.Compute(CumulativeInput{
		Enabled:  true,
		Method:   models.CumulativeProgressiveAverage,
		Current:  models.PeriodTotal{PeriodID: "term-2", Sequence: 2, Total: 80},
		Previous: []models.PeriodTotal{{PeriodID: "term-x", Sequence: 0, Total: 60}},
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
