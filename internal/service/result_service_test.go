package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-result-engine/internal/models"
	appErrors "github.com/noah-isme/sma-result-engine/pkg/errors"
	"github.com/noah-isme/sma-result-engine/pkg/events"
)

type mockResultStore struct {
	mu        sync.Mutex
	results   map[models.ResultKey]models.Result
	previous  []models.PeriodTotal
	published models.ResultScope
	saveErr   map[string]error
}

func newMockResultStore() *mockResultStore {
	return &mockResultStore{results: map[models.ResultKey]models.Result{}, saveErr: map[string]error{}}
}

func (m *mockResultStore) FindByKey(ctx context.Context, key models.ResultKey) (*models.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result, ok := m.results[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &result, nil
}

func (m *mockResultStore) ReplaceAndRecompute(ctx context.Context, result *models.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.saveErr[result.StudentID]; err != nil {
		return err
	}
	if result.ID == "" {
		result.ID = "result-" + result.StudentID + "-" + result.SubjectID
	}
	m.results[result.Key()] = *result
	return nil
}

func (m *mockResultStore) ListPriorPeriodTotals(ctx context.Context, key models.ResultKey, periodIDs []string) ([]models.PeriodTotal, error) {
	return m.previous, nil
}

func (m *mockResultStore) Publish(ctx context.Context, scope models.ResultScope) (int64, error) {
	m.published = scope
	return 3, nil
}

type mockConfigReader struct {
	config *models.ResultConfiguration
}

func (m *mockConfigReader) FindBySchoolAndSession(ctx context.Context, schoolID, sessionID string) (*models.ResultConfiguration, error) {
	if m.config == nil || m.config.SessionID != sessionID {
		return nil, sql.ErrNoRows
	}
	return m.config, nil
}

type mockStudentEnrollments struct{}

func (mockStudentEnrollments) FindByStudentAndSession(ctx context.Context, studentID, sessionID string) (*models.Enrollment, error) {
	if studentID == "ghost" {
		return nil, sql.ErrNoRows
	}
	return &models.Enrollment{StudentID: studentID, SessionID: sessionID, ClassID: "class-1"}, nil
}

type mockAssignments struct {
	allowed map[string]bool
}

func (m *mockAssignments) CanGrade(ctx context.Context, teacherID, classID, subjectID, sessionID string) (bool, error) {
	return m.allowed[teacherID+":"+subjectID], nil
}

type mockInvalidator struct {
	calls []string
}

func (m *mockInvalidator) Invalidate(ctx context.Context, classID, sessionID, periodID string) {
	m.calls = append(m.calls, classID+":"+sessionID+":"+periodID)
}

type mockNotifier struct {
	events []events.ResultsPublished
	err    error
}

func (m *mockNotifier) PublishResults(ctx context.Context, event events.ResultsPublished) error {
	m.events = append(m.events, event)
	return m.err
}

func sessionConfig(enabled bool, method models.CumulativeMethod) *models.ResultConfiguration {
	return &models.ResultConfiguration{
		ID:                "cfg-1",
		SchoolID:          "school-1",
		SessionID:         "sess-1",
		CumulativeEnabled: enabled,
		CumulativeMethod:  method,
		GradingScale:      standardScale(),
		Components: []models.AssessmentComponent{
			{ID: "ca1", Name: "CA1", MaxScore: 20},
			{ID: "ca2", Name: "CA2", MaxScore: 20},
			{ID: "exam", Name: "Exam", MaxScore: 60},
		},
		Periods: []models.ResultPeriod{
			{ID: "term-1", Name: "First Term", Sequence: 1},
			{ID: "term-2", Name: "Second Term", Sequence: 2},
			{ID: "term-3", Name: "Third Term", Sequence: 3},
		},
	}
}

func submission(student string, ca1, ca2, exam float64) SubmitResultRequest {
	return SubmitResultRequest{
		StudentID: student,
		SubjectID: "math",
		PeriodID:  "term-3",
		SessionID: "sess-1",
		Scores: []ComponentScoreInput{
			{ComponentID: "ca1", Score: ca1},
			{ComponentID: "ca2", Score: ca2},
			{ComponentID: "exam", Score: exam},
		},
	}
}

var adminActor = models.Actor{UserID: "admin-1", Role: models.RoleAdmin, SchoolID: "school-1"}

func newTestResultService(store *mockResultStore, config *models.ResultConfiguration) (*ResultService, *mockInvalidator, *mockNotifier) {
	invalidator := &mockInvalidator{}
	notifier := &mockNotifier{}
	svc := NewResultService(
		store,
		&mockConfigReader{config: config},
		mockStudentEnrollments{},
		&mockAssignments{allowed: map[string]bool{"teacher-1:math": true}},
		NewCumulativeCalculator([]float64{30, 30, 40}),
		invalidator,
		notifier,
		nil,
		nil,
		zap.NewNop(),
		ResultServiceConfig{BatchConcurrency: 2},
	)
	return svc, invalidator, notifier
}

func TestResultServiceSubmitComputesGrade(t *testing.T) {
	store := newMockResultStore()
	svc, _, _ := newTestResultService(store, sessionConfig(false, models.CumulativeSimpleAverage))

	result, err := svc.Submit(context.Background(), adminActor, submission("stu-1", 20, 20, 55))
	require.NoError(t, err)
	assert.Equal(t, 95.0, result.Total)
	assert.Equal(t, "A", result.Grade)
	assert.Equal(t, "Excellent", result.Remark)
	assert.Equal(t, 95.0, result.CumulativeAverage)
	assert.Equal(t, "class-1", result.ClassID)
	assert.Len(t, result.Scores, 3)
}

func TestResultServiceResubmitReplacesScores(t *testing.T) {
	store := newMockResultStore()
	svc, _, _ := newTestResultService(store, sessionConfig(false, models.CumulativeSimpleAverage))

	first, err := svc.Submit(context.Background(), adminActor, submission("stu-1", 20, 20, 55))
	require.NoError(t, err)

	req := submission("stu-1", 10, 10, 25)
	req.Scores = req.Scores[:2]
	second, err := svc.Submit(context.Background(), adminActor, req)
	require.NoError(t, err)

	stored, err := store.FindByKey(context.Background(), req.key())
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.Len(t, stored.Scores, 2)
	assert.Equal(t, 20.0, stored.Total)
	assert.Equal(t, "F", stored.Grade)
	sum := 0.0
	for _, score := range stored.Scores {
		sum += score.Score
	}
	assert.Equal(t, sum, stored.Total)
	assert.Equal(t, second.Total, stored.Total)
}

func TestResultServiceSubmitWeightedCumulative(t *testing.T) {
	store := newMockResultStore()
	store.previous = []models.PeriodTotal{
		{PeriodID: "term-1", Sequence: 1, Weight: ptrFloat(1), Total: 70},
		{PeriodID: "term-2", Sequence: 2, Weight: ptrFloat(1), Total: 80},
	}
	svc, _, _ := newTestResultService(store, sessionConfig(true, models.CumulativeWeightedAverage))

	result, err := svc.Submit(context.Background(), adminActor, submission("stu-1", 20, 20, 50))
	require.NoError(t, err)
	assert.Equal(t, 90.0, result.Total)
	assert.Equal(t, 80.0, result.CumulativeAverage)
}

func TestResultServiceSubmitIgnoresLaterPeriods(t *testing.T) {
	store := newMockResultStore()
	store.previous = []models.PeriodTotal{
		{PeriodID: "term-1", Total: 70},
		{PeriodID: "term-3", Total: 40},
	}
	svc, _, _ := newTestResultService(store, sessionConfig(true, models.CumulativeSimpleAverage))

	req := submission("stu-1", 20, 20, 40)
	req.PeriodID = "term-2"
	result, err := svc.Submit(context.Background(), adminActor, req)
	require.NoError(t, err)
	assert.Equal(t, 80.0, result.Total)
	assert.Equal(t, 75.0, result.CumulativeAverage)

	req.PeriodID = "term-1"
	result, err = svc.Submit(context.Background(), adminActor, req)
	require.NoError(t, err)
	assert.Equal(t, 80.0, result.CumulativeAverage)
}

func TestResultServiceSubmitErrors(t *testing.T) {
	store := newMockResultStore()
	svc, _, _ := newTestResultService(store, sessionConfig(false, models.CumulativeSimpleAverage))
	teacher := models.Actor{UserID: "teacher-2", Role: models.RoleTeacher, SchoolID: "school-1"}

	_, err := svc.Submit(context.Background(), teacher, submission("stu-1", 20, 20, 55))
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)

	assigned := models.Actor{UserID: "teacher-1", Role: models.RoleTeacher, SchoolID: "school-1"}
	_, err = svc.Submit(context.Background(), assigned, submission("stu-1", 20, 20, 55))
	assert.NoError(t, err)

	req := submission("stu-1", 20, 20, 55)
	req.PeriodID = "term-9"
	_, err = svc.Submit(context.Background(), adminActor, req)
	assert.ErrorIs(t, err, appErrors.ErrPeriodNotFound)

	req = submission("stu-1", 20, 20, 55)
	req.SessionID = "sess-9"
	_, err = svc.Submit(context.Background(), adminActor, req)
	assert.ErrorIs(t, err, appErrors.ErrConfigurationNotFound)

	_, err = svc.Submit(context.Background(), adminActor, submission("stu-1", 20, 20, 70))
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	gappy := sessionConfig(false, models.CumulativeSimpleAverage)
	gappy.GradingScale = gappy.GradingScale[:1]
	svc, _, _ = newTestResultService(store, gappy)
	_, err = svc.Submit(context.Background(), adminActor, submission("stu-1", 10, 10, 10))
	assert.ErrorIs(t, err, appErrors.ErrNoMatchingGrade)
}

func TestResultServiceBatchReportsPerItem(t *testing.T) {
	store := newMockResultStore()
	store.saveErr["stu-3"] = errors.New("connection reset")
	svc, _, _ := newTestResultService(store, sessionConfig(false, models.CumulativeSimpleAverage))

	report, err := svc.BatchSubmit(context.Background(), adminActor, BatchSubmitRequest{Items: []SubmitResultRequest{
		submission("stu-1", 20, 20, 55),
		submission("ghost", 20, 20, 55),
		submission("stu-3", 20, 20, 55),
		submission("stu-4", 15, 15, 40),
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, report.SuccessCount)
	assert.Equal(t, 2, report.FailureCount)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, 1, report.Failures[0].Index)
	assert.Equal(t, appErrors.ErrNotFound.Code, report.Failures[0].Code)
	assert.Equal(t, 2, report.Failures[1].Index)
	assert.Equal(t, appErrors.ErrInternal.Code, report.Failures[1].Code)
	assert.Equal(t, "stu-1", report.Results[0].StudentID)
	assert.Equal(t, "stu-4", report.Results[1].StudentID)

	_, err = store.FindByKey(context.Background(), submission("stu-4", 0, 0, 0).key())
	assert.NoError(t, err)
}

func TestResultServicePublish(t *testing.T) {
	store := newMockResultStore()
	svc, invalidator, notifier := newTestResultService(store, sessionConfig(false, models.CumulativeSimpleAverage))
	req := PublishResultsRequest{ClassID: "class-1", SessionID: "sess-1", PeriodID: "term-1"}

	teacher := models.Actor{UserID: "teacher-1", Role: models.RoleTeacher, SchoolID: "school-1"}
	_, err := svc.Publish(context.Background(), teacher, req)
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)

	notifier.err = errors.New("broker down")
	summary, err := svc.Publish(context.Background(), adminActor, req)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Published)
	assert.Equal(t, "school-1", store.published.SchoolID)
	assert.Equal(t, []string{"class-1:sess-1:term-1"}, invalidator.calls)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, "admin-1", notifier.events[0].PublishedBy)
}
