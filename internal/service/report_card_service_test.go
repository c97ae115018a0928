package service

import (
	"bytes"
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-result-engine/internal/models"
	appErrors "github.com/noah-isme/sma-result-engine/pkg/errors"
	"github.com/noah-isme/sma-result-engine/pkg/reportcard"
)

type mockDirectory struct {
	guardians map[string]string
}

func (m *mockDirectory) FindSchool(ctx context.Context, id string) (*models.School, error) {
	return &models.School{ID: id, Name: "Unity College", Address: "12 Lagos Road"}, nil
}

func (m *mockDirectory) FindStudent(ctx context.Context, id string) (*models.Student, error) {
	if id == "missing" {
		return nil, sql.ErrNoRows
	}
	return &models.Student{ID: id, SchoolID: "school-1", FullName: "Ada O'Brien", AdmissionNo: "UC/001"}, nil
}

func (m *mockDirectory) FindSession(ctx context.Context, id string) (*models.AcademicSession, error) {
	return &models.AcademicSession{ID: id, Name: "2025/2026"}, nil
}

func (m *mockDirectory) IsGuardian(ctx context.Context, parentID, studentID string) (bool, error) {
	return m.guardians[parentID] == studentID, nil
}

type mockReportResults struct {
	published map[string][]models.Result
	previous  map[string][]models.PeriodTotal
	requested [][]string
}

func (m *mockReportResults) ListPublishedForStudent(ctx context.Context, studentID, sessionID, periodID string) ([]models.Result, error) {
	return m.published[studentID], nil
}

func (m *mockReportResults) ListPublishedPriorPeriodTotals(ctx context.Context, key models.ResultKey, periodIDs []string) ([]models.PeriodTotal, error) {
	m.requested = append(m.requested, periodIDs)
	return m.previous[key.SubjectID], nil
}

type mockClassTeachers struct {
	teaches map[string]bool
}

func (m *mockClassTeachers) TeachesClass(ctx context.Context, teacherID, classID, sessionID string) (bool, error) {
	return m.teaches[teacherID+":"+classID], nil
}

type mockAttendance struct{}

func (mockAttendance) Summary(ctx context.Context, studentID, sessionID, periodID string) (*models.AttendanceSummary, error) {
	return &models.AttendanceSummary{DaysOpened: 60, Present: 58, Absent: 2}, nil
}

type capturingRenderer struct {
	tpl  *models.ResultTemplate
	data *models.RenderData
}

func (c *capturingRenderer) Render(ctx context.Context, tpl *models.ResultTemplate, data *models.RenderData) (*reportcard.Document, error) {
	c.tpl, c.data = tpl, data
	return &reportcard.Document{Data: []byte("%PDF-1.3"), Layout: reportcard.LayoutFallback}, nil
}

func publishedMath(student string, total float64, grade string) models.Result {
	return models.Result{
		ID:             "res-" + student,
		StudentID:      student,
		SubjectID:      "math",
		SubjectName:    "Mathematics",
		PeriodID:       "term-3",
		SessionID:      "sess-1",
		Total:          total,
		Grade:          grade,
		Published:      true,
		TeacherComment: "Steady progress.",
		Affective:      models.JSONMap{"Punctuality": "A"},
		Scores: []models.ComponentScore{
			{ComponentID: "ca1", ComponentName: "CA1", Score: 20},
			{ComponentID: "exam", ComponentName: "Exam", Score: total - 20},
		},
	}
}

func newReportCardFixture(renderer reportRenderer, cfg *models.ResultConfiguration) (*ReportCardService, *mockReportResults) {
	results := &mockReportResults{
		published: map[string][]models.Result{"S1": {publishedMath("S1", 85, "B")}},
		previous:  map[string][]models.PeriodTotal{},
	}
	totals := &mockTotalsReader{totals: []models.StudentTotal{
		{StudentID: "S1", SubjectID: "math", Total: 85},
		{StudentID: "S2", SubjectID: "math", Total: 92},
		{StudentID: "S3", SubjectID: "math", Total: 78},
	}}
	ranking := NewRankingService(totals, &mockEnrollmentCounter{count: 4}, nil, CompetitionRanking{}, 0, zap.NewNop())
	svc := NewReportCardService(ReportCardDeps{
		Directory:   &mockDirectory{guardians: map[string]string{"parent-1": "S1"}},
		Results:     results,
		Configs:     &mockConfigReader{config: cfg},
		Enrollments: mockStudentEnrollments{},
		Teachers:    &mockClassTeachers{teaches: map[string]bool{"teacher-1:class-1": true}},
		Ranking:     ranking,
		Attendance:  mockAttendance{},
		Templates:   NewTemplateResolver(&memoryTemplates{}, nil),
		Renderer:    renderer,
		Cumulative:  NewCumulativeCalculator([]float64{30, 30, 40}),
		Logger:      zap.NewNop(),
	})
	return svc, results
}

func TestReportCardServiceBuildsRenderData(t *testing.T) {
	renderer := &capturingRenderer{}
	svc, results := newReportCardFixture(renderer, sessionConfig(true, models.CumulativeSimpleAverage))
	results.previous["math"] = []models.PeriodTotal{
		{PeriodID: "term-1", Sequence: 1, Total: 70},
		{PeriodID: "term-2", Sequence: 2, Total: 75},
	}

	card, err := svc.Generate(context.Background(), adminActor, ReportCardRequest{StudentID: "S1", SessionID: "sess-1", PeriodID: "term-3"})
	require.NoError(t, err)
	assert.Equal(t, "Unity_College_Ada_O_Brien_Report.pdf", card.Filename)
	assert.Equal(t, "application/pdf", card.ContentType)
	assert.Nil(t, renderer.tpl)

	data := renderer.data
	require.NotNil(t, data)
	assert.Equal(t, 2, data.Summary.Position)
	assert.Equal(t, 4, data.Summary.StudentsInClass)
	assert.Equal(t, 85.0, data.Summary.TotalScore)
	assert.Equal(t, 85.0, data.Summary.Average)
	assert.Equal(t, "B", data.Summary.OverallGrade)
	require.Len(t, data.Subjects, 1)
	assert.Equal(t, 65.0, data.Subjects[0].Scores["Exam"])
	assert.Equal(t, 76.67, data.Subjects[0].CumulativeAverage)
	assert.Equal(t, 3, data.Cumulative.TermCount)
	assert.Equal(t, 145.0, data.Cumulative.PreviousTotal)
	assert.Equal(t, 58, data.Attendance.Present)
	assert.Equal(t, "Steady progress.", data.Comments.Teacher)
	assert.Equal(t, "A", data.Affective["Punctuality"])
}

func TestReportCardServiceCumulativeUsesEarlierPeriodsOnly(t *testing.T) {
	renderer := &capturingRenderer{}
	svc, results := newReportCardFixture(renderer, sessionConfig(true, models.CumulativeSimpleAverage))
	first := publishedMath("S1", 80, "B")
	first.PeriodID = "term-1"
	results.published["S1"] = []models.Result{first}
	results.previous["math"] = []models.PeriodTotal{{PeriodID: "term-3", Total: 40}}

	_, err := svc.Generate(context.Background(), adminActor, ReportCardRequest{StudentID: "S1", SessionID: "sess-1", PeriodID: "term-1"})
	require.NoError(t, err)
	require.Len(t, renderer.data.Subjects, 1)
	assert.Equal(t, 80.0, renderer.data.Subjects[0].CumulativeAverage)
	assert.Equal(t, 0, renderer.data.Cumulative.TermCount)
	assert.Empty(t, results.requested)

	results.published["S1"] = []models.Result{publishedMath("S1", 85, "B")}
	_, err = svc.Generate(context.Background(), adminActor, ReportCardRequest{StudentID: "S1", SessionID: "sess-1", PeriodID: "term-3"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"term-1", "term-2"}}, results.requested)
}

func TestReportCardServiceAverageBetweenGradeBands(t *testing.T) {
	renderer := &capturingRenderer{}
	cfg := sessionConfig(false, models.CumulativeSimpleAverage)
	cfg.GradingScale = []models.GradingScaleEntry{
		{MinScore: 90, MaxScore: 100, Grade: "A"},
		{MinScore: 80, MaxScore: 89, Grade: "B"},
		{MinScore: 0, MaxScore: 79, Grade: "C"},
	}
	svc, results := newReportCardFixture(renderer, cfg)
	english := publishedMath("S1", 90, "A")
	english.SubjectID, english.SubjectName = "eng", "English"
	results.published["S1"] = []models.Result{publishedMath("S1", 89, "B"), english}

	_, err := svc.Generate(context.Background(), adminActor, ReportCardRequest{StudentID: "S1", SessionID: "sess-1", PeriodID: "term-3"})
	require.NoError(t, err)
	assert.Equal(t, 89.5, renderer.data.Summary.Average)
	assert.Equal(t, "A", renderer.data.Summary.OverallGrade)

	cfg.GradingScale = []models.GradingScaleEntry{{MinScore: 95, MaxScore: 100, Grade: "A"}}
	_, err = svc.Generate(context.Background(), adminActor, ReportCardRequest{StudentID: "S1", SessionID: "sess-1", PeriodID: "term-3"})
	require.NoError(t, err)
	assert.Equal(t, "-", renderer.data.Summary.OverallGrade)
}

func TestReportCardServiceRendersPDF(t *testing.T) {
	svc, _ := newReportCardFixture(reportcard.NewRenderer(nil, reportcard.Options{}, nil), sessionConfig(false, models.CumulativeSimpleAverage))

	card, err := svc.Generate(context.Background(), models.Actor{UserID: "parent-1", Role: models.RoleParent, SchoolID: "school-1"},
		ReportCardRequest{StudentID: "S1", SessionID: "sess-1", PeriodID: "term-3"})
	require.NoError(t, err)
	assert.Equal(t, reportcard.LayoutFallback, card.Layout)
	assert.True(t, bytes.HasPrefix(card.Data, []byte("%PDF")))
}

func TestReportCardServiceErrors(t *testing.T) {
	svc, _ := newReportCardFixture(&capturingRenderer{}, sessionConfig(false, models.CumulativeSimpleAverage))
	ctx := context.Background()
	req := ReportCardRequest{StudentID: "S1", SessionID: "sess-1", PeriodID: "term-3"}

	_, err := svc.Generate(ctx, models.Actor{UserID: "other-parent", Role: models.RoleParent, SchoolID: "school-1"}, req)
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)

	_, err = svc.Generate(ctx, models.Actor{UserID: "teacher-9", Role: models.RoleTeacher, SchoolID: "school-1"}, req)
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)

	_, err = svc.Generate(ctx, models.Actor{UserID: "teacher-1", Role: models.RoleTeacher, SchoolID: "school-1"}, req)
	assert.NoError(t, err)

	_, err = svc.Generate(ctx, models.Actor{Role: models.RoleAdmin, SchoolID: "school-2"}, req)
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)

	_, err = svc.Generate(ctx, models.Actor{Role: models.RoleStudent, StudentID: "S1", SchoolID: "school-1"}, req)
	assert.NoError(t, err)

	_, err = svc.Generate(ctx, adminActor, ReportCardRequest{StudentID: "S2", SessionID: "sess-1", PeriodID: "term-3"})
	assert.ErrorIs(t, err, appErrors.ErrNoPublishedResults)

	_, err = svc.Generate(ctx, adminActor, ReportCardRequest{StudentID: "S1", SessionID: "sess-1", PeriodID: "term-7"})
	assert.ErrorIs(t, err, appErrors.ErrPeriodNotFound)

	_, err = svc.Generate(ctx, adminActor, ReportCardRequest{StudentID: "S1", SessionID: "sess-2", PeriodID: "term-3"})
	assert.ErrorIs(t, err, appErrors.ErrConfigurationNotFound)

	_, err = svc.Generate(ctx, adminActor, ReportCardRequest{StudentID: "missing", SessionID: "sess-1", PeriodID: "term-3"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestReportFilename(t *testing.T) {
	assert.Equal(t, "Unity_College_Ada_Obi_Report.pdf", ReportFilename("Unity College", "Ada  Obi"))
	assert.Equal(t, "St_Mary_s_Unknown_Report.pdf", ReportFilename("St. Mary's", "  "))
}
