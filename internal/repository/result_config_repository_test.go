package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-result-engine/internal/models"
)

func TestResultConfigRepositoryFindBySchoolAndSession(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewResultConfigRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM result_configurations")).
		WithArgs("school-1", "sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "school_id", "session_id", "cumulative_enabled", "cumulative_method", "progressive_weights"}).
			AddRow("cfg-1", "school-1", "sess-1", true, "progressive_average", []byte(`[20,30,50]`)))
	mock.ExpectQuery(regexp.QuoteMeta("FROM grading_scale_entries")).
		WithArgs("cfg-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "configuration_id", "min_score", "max_score", "grade", "remark", "position"}).
			AddRow("g-1", "cfg-1", 70.0, 100.0, "A", "Excellent", 1).
			AddRow("g-2", "cfg-1", 0.0, 69.99, "B", "Good", 2))
	mock.ExpectQuery(regexp.QuoteMeta("FROM assessment_components")).
		WithArgs("cfg-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "configuration_id", "name", "max_score", "position"}).
			AddRow("ca1", "cfg-1", "CA1", 40.0, 1).
			AddRow("exam", "cfg-1", "Exam", 60.0, 2))
	mock.ExpectQuery(regexp.QuoteMeta("FROM result_periods")).
		WithArgs("cfg-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "configuration_id", "name", "sequence", "weight"}).
			AddRow("term-x", "cfg-1", "Holiday Test", 0, nil).
			AddRow("term-1", "cfg-1", "First Term", 1, nil).
			AddRow("term-2", "cfg-1", "Second Term", 2, 1.5))

	cfg, err := repo.FindBySchoolAndSession(context.Background(), "school-1", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, models.CumulativeProgressiveAverage, cfg.CumulativeMethod)
	assert.Equal(t, models.FloatList{20, 30, 50}, cfg.ProgressiveWeights)
	assert.Len(t, cfg.GradingScale, 2)
	assert.Len(t, cfg.Components, 2)
	period, ok := cfg.Period("term-2")
	require.True(t, ok)
	assert.Equal(t, 1.5, period.EffectiveWeight())
	assert.Equal(t, 2, period.Sequence)
	unscheduled, ok := cfg.Period("term-x")
	require.True(t, ok)
	assert.Equal(t, 3, unscheduled.Sequence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultConfigRepositoryMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewResultConfigRepository(db)

	mock.ExpectQuery("FROM result_configurations").
		WithArgs("school-1", "sess-9").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindBySchoolAndSession(context.Background(), "school-1", "sess-9")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}
