package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-result-engine/internal/models"
	appErrors "github.com/noah-isme/sma-result-engine/pkg/errors"
	"github.com/noah-isme/sma-result-engine/pkg/reportcard"
)

type reportContextReader interface {
	FindSchool(ctx context.Context, id string) (*models.School, error)
	FindStudent(ctx context.Context, id string) (*models.Student, error)
	FindSession(ctx context.Context, id string) (*models.AcademicSession, error)
	IsGuardian(ctx context.Context, parentID, studentID string) (bool, error)
}

type reportResultReader interface {
	ListPublishedForStudent(ctx context.Context, studentID, sessionID, periodID string) ([]models.Result, error)
	ListPublishedPriorPeriodTotals(ctx context.Context, key models.ResultKey, periodIDs []string) ([]models.PeriodTotal, error)
}

type classTeacherChecker interface {
	TeachesClass(ctx context.Context, teacherID, classID, sessionID string) (bool, error)
}

type positionReader interface {
	Position(ctx context.Context, classID, sessionID, periodID, studentID string) (int, int, error)
}

type attendanceReader interface {
	Summary(ctx context.Context, studentID, sessionID, periodID string) (*models.AttendanceSummary, error)
}

type reportTemplateResolver interface {
	Resolve(ctx context.Context, schoolID, levelID, periodID string) (*models.ResultTemplate, error)
}

type reportRenderer interface {
	Render(ctx context.Context, tpl *models.ResultTemplate, data *models.RenderData) (*reportcard.Document, error)
}

// ReportCardRequest identifies the report card to produce.
type ReportCardRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
	PeriodID  string `json:"period_id" validate:"required"`
}

// ReportCard is a rendered document ready to be served.
type ReportCard struct {
	Filename    string
	ContentType string
	Layout      reportcard.Layout
	Data        []byte
}

// ReportCardService assembles report data and renders the document.
type ReportCardService struct {
	directory   reportContextReader
	results     reportResultReader
	configs     resultConfigReader
	enrollments studentEnrollmentReader
	teachers    classTeacherChecker
	ranking     positionReader
	attendance  attendanceReader
	templates   reportTemplateResolver
	renderer    reportRenderer
	cumulative  *CumulativeCalculator
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// ReportCardDeps groups the collaborators of ReportCardService.
type ReportCardDeps struct {
	Directory   reportContextReader
	Results     reportResultReader
	Configs     resultConfigReader
	Enrollments studentEnrollmentReader
	Teachers    classTeacherChecker
	Ranking     positionReader
	Attendance  attendanceReader
	Templates   reportTemplateResolver
	Renderer    reportRenderer
	Cumulative  *CumulativeCalculator
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// NewReportCardService constructs ReportCardService.
func NewReportCardService(deps ReportCardDeps) *ReportCardService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Cumulative == nil {
		deps.Cumulative = NewCumulativeCalculator(nil)
	}
	return &ReportCardService{
		directory:   deps.Directory,
		results:     deps.Results,
		configs:     deps.Configs,
		enrollments: deps.Enrollments,
		teachers:    deps.Teachers,
		ranking:     deps.Ranking,
		attendance:  deps.Attendance,
		templates:   deps.Templates,
		renderer:    deps.Renderer,
		cumulative:  deps.Cumulative,
		metrics:     deps.Metrics,
		validator:   deps.Validator,
		logger:      deps.Logger,
	}
}

// Generate produces the report card of one student for a session and period.
func (s *ReportCardService) Generate(ctx context.Context, actor models.Actor, req ReportCardRequest) (*ReportCard, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report card request")
	}

	student, err := s.directory.FindStudent(ctx, req.StudentID)
	if err != nil {
		return nil, notFoundOrInternal(err, "student not found", "failed to load student")
	}
	enrollment, err := s.enrollments.FindByStudentAndSession(ctx, req.StudentID, req.SessionID)
	if err != nil {
		return nil, notFoundOrInternal(err, "student is not enrolled for the session", "failed to load enrollment")
	}
	if err := s.authorize(ctx, actor, student, enrollment); err != nil {
		return nil, err
	}

	config, err := s.configs.FindBySchoolAndSession(ctx, student.SchoolID, req.SessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConfigurationNotFound, fmt.Sprintf("no result configuration for session %s", req.SessionID))
		}
		return nil, appErrors.Internal(err, "failed to load result configuration")
	}
	period, ok := config.Period(req.PeriodID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrPeriodNotFound, fmt.Sprintf("period %s is not configured for session %s", req.PeriodID, req.SessionID))
	}

	results, err := s.results.ListPublishedForStudent(ctx, req.StudentID, req.SessionID, req.PeriodID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load published results")
	}
	if len(results) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoPublishedResults, "no published results for this student and period")
	}

	position, classSize, err := s.ranking.Position(ctx, enrollment.ClassID, req.SessionID, req.PeriodID, req.StudentID)
	if err != nil {
		return nil, err
	}

	data, err := s.buildRenderData(ctx, config, *period, student, enrollment, results)
	if err != nil {
		return nil, err
	}
	data.Summary.Position = position
	data.Summary.StudentsInClass = classSize

	tpl, err := s.templates.Resolve(ctx, data.School.ID, enrollment.LevelID, period.ID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	doc, err := s.renderer.Render(ctx, tpl, data)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render report card")
	}
	s.metrics.RecordRender(string(doc.Layout), time.Since(start))

	return &ReportCard{
		Filename:    ReportFilename(data.School.Name, student.FullName),
		ContentType: "application/pdf",
		Layout:      doc.Layout,
		Data:        doc.Data,
	}, nil
}

func (s *ReportCardService) authorize(ctx context.Context, actor models.Actor, student *models.Student, enrollment *models.Enrollment) error {
	if actor.Role != models.RoleSuperAdmin && actor.SchoolID != student.SchoolID {
		return appErrors.Clone(appErrors.ErrPermissionDenied, "student belongs to another school")
	}
	switch actor.Role {
	case models.RoleSuperAdmin, models.RoleAdmin:
		return nil
	case models.RoleStudent:
		if actor.StudentID == student.ID {
			return nil
		}
	case models.RoleParent:
		ok, err := s.directory.IsGuardian(ctx, actor.UserID, student.ID)
		if err != nil {
			return appErrors.Internal(err, "failed to check guardian link")
		}
		if ok {
			return nil
		}
	case models.RoleTeacher:
		ok, err := s.teachers.TeachesClass(ctx, actor.UserID, enrollment.ClassID, enrollment.SessionID)
		if err != nil {
			return appErrors.Internal(err, "failed to check teaching assignment")
		}
		if ok {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrPermissionDenied, "not allowed to view this report card")
}

func (s *ReportCardService) buildRenderData(ctx context.Context, config *models.ResultConfiguration, period models.ResultPeriod, student *models.Student, enrollment *models.Enrollment, results []models.Result) (*models.RenderData, error) {
	school, err := s.directory.FindSchool(ctx, student.SchoolID)
	if err != nil {
		return nil, notFoundOrInternal(err, "school not found", "failed to load school")
	}
	session, err := s.directory.FindSession(ctx, enrollment.SessionID)
	if err != nil {
		return nil, notFoundOrInternal(err, "academic session not found", "failed to load academic session")
	}

	data := &models.RenderData{
		School:       *school,
		Student:      *student,
		Class:        *enrollment,
		Session:      *session,
		Period:       period,
		Components:   config.Components,
		GradingScale: config.GradingScale,
	}

	terms := map[string]struct{}{period.ID: {}}
	cumulativeSum := 0.0
	for _, result := range results {
		subject := models.RenderSubject{
			SubjectID:   result.SubjectID,
			SubjectName: result.SubjectName,
			Scores:      make(map[string]float64, len(result.Scores)),
			Total:       result.Total,
			Grade:       result.Grade,
			Remark:      result.Remark,
		}
		for _, score := range result.Scores {
			name := score.ComponentName
			if component, ok := config.Component(score.ComponentID); ok {
				name = component.Name
			}
			subject.Scores[name] = score.Score
		}

		previous, err := priorPeriodTotals(ctx, config, result.Key(), s.results.ListPublishedPriorPeriodTotals)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load previous period totals")
		}
		subject.CumulativeAverage, err = s.cumulative.Compute(CumulativeInput{
			Enabled:            config.CumulativeEnabled,
			Method:             config.CumulativeMethod,
			Current:            models.PeriodTotal{PeriodID: period.ID, Sequence: period.Sequence, Weight: period.Weight, Total: result.Total},
			Previous:           previous,
			ProgressiveWeights: config.ProgressiveWeights,
		})
		if err != nil {
			return nil, err
		}
		if config.CumulativeEnabled {
			for _, p := range previous {
				data.Cumulative.PreviousTotal += p.Total
				terms[p.PeriodID] = struct{}{}
			}
		}
		cumulativeSum += subject.CumulativeAverage

		data.Summary.TotalScore += result.Total
		data.Subjects = append(data.Subjects, subject)
		mergeTraits(&data.Affective, result.Affective)
		mergeTraits(&data.Psychomotor, result.Psychomotor)
		if data.Comments.Teacher == "" {
			data.Comments.Teacher = result.TeacherComment
		}
		if data.Comments.Principal == "" {
			data.Comments.Principal = result.AdminComment
		}
	}

	n := float64(len(results))
	data.Summary.TotalScore = roundHalfEven(data.Summary.TotalScore)
	data.Summary.Average = roundHalfEven(data.Summary.TotalScore / n)
	if overall, ok := ResolveSummaryGrade(data.Summary.Average, config.GradingScale); ok {
		data.Summary.OverallGrade = overall.Grade
		data.Summary.OverallRemark = overall.Remark
	} else {
		data.Summary.OverallGrade = "-"
		s.logger.Warn("no grade band for report average",
			zap.String("student_id", student.ID),
			zap.Float64("average", data.Summary.Average))
	}

	if config.CumulativeEnabled && len(terms) > 1 {
		data.Cumulative.PreviousTotal = roundHalfEven(data.Cumulative.PreviousTotal)
		data.Cumulative.TermCount = len(terms)
		data.Cumulative.Average = roundHalfEven(cumulativeSum / n)
	}

	if s.attendance != nil {
		summary, err := s.attendance.Summary(ctx, student.ID, enrollment.SessionID, period.ID)
		switch {
		case err == nil && summary != nil:
			data.Attendance = *summary
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			s.logger.Warn("attendance summary unavailable", zap.String("student_id", student.ID), zap.Error(err))
		}
	}
	return data, nil
}

func mergeTraits(dst *models.JSONMap, src models.JSONMap) {
	for k, v := range src {
		if *dst == nil {
			*dst = models.JSONMap{}
		}
		if _, exists := (*dst)[k]; !exists {
			(*dst)[k] = v
		}
	}
}

var filenameUnsafe = regexp.MustCompile(`[^A-Za-z0-9]+`)

// ReportFilename builds <School>_<Student>_Report.pdf with unsafe characters collapsed to underscores.
func ReportFilename(school, student string) string {
	clean := func(v string) string {
		v = strings.Trim(filenameUnsafe.ReplaceAllString(v, "_"), "_")
		if v == "" {
			return "Unknown"
		}
		return v
	}
	return fmt.Sprintf("%s_%s_Report.pdf", clean(school), clean(student))
}

func notFoundOrInternal(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Internal(err, internal)
}
