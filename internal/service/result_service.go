package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-result-engine/internal/models"
	appErrors "github.com/noah-isme/sma-result-engine/pkg/errors"
	"github.com/noah-isme/sma-result-engine/pkg/events"
)

type resultStore interface {
	FindByKey(ctx context.Context, key models.ResultKey) (*models.Result, error)
	ReplaceAndRecompute(ctx context.Context, result *models.Result) error
	ListPriorPeriodTotals(ctx context.Context, key models.ResultKey, periodIDs []string) ([]models.PeriodTotal, error)
	Publish(ctx context.Context, scope models.ResultScope) (int64, error)
}

type resultConfigReader interface {
	FindBySchoolAndSession(ctx context.Context, schoolID, sessionID string) (*models.ResultConfiguration, error)
}

type studentEnrollmentReader interface {
	FindByStudentAndSession(ctx context.Context, studentID, sessionID string) (*models.Enrollment, error)
}

type gradingAssignmentChecker interface {
	CanGrade(ctx context.Context, teacherID, classID, subjectID, sessionID string) (bool, error)
}

type rankingInvalidator interface {
	Invalidate(ctx context.Context, classID, sessionID, periodID string)
}

type resultsNotifier interface {
	PublishResults(ctx context.Context, event events.ResultsPublished) error
}

// ComponentScoreInput is one submitted component score.
type ComponentScoreInput struct {
	ComponentID string  `json:"component_id" validate:"required"`
	Score       float64 `json:"score" validate:"gte=0"`
}

// SubmitResultRequest carries the scores of one student for one subject and period.
type SubmitResultRequest struct {
	StudentID      string                `json:"student_id" validate:"required"`
	SubjectID      string                `json:"subject_id" validate:"required"`
	PeriodID       string                `json:"period_id" validate:"required"`
	SessionID      string                `json:"session_id" validate:"required"`
	ClassID        string                `json:"class_id"`
	Scores         []ComponentScoreInput `json:"scores" validate:"required,min=1,dive"`
	Affective      map[string]string     `json:"affective"`
	Psychomotor    map[string]string     `json:"psychomotor"`
	CustomFields   map[string]string     `json:"custom_fields"`
	TeacherComment string                `json:"teacher_comment" validate:"max=1000"`
	AdminComment   string                `json:"admin_comment" validate:"max=1000"`
}

func (r SubmitResultRequest) key() models.ResultKey {
	return models.ResultKey{StudentID: r.StudentID, SubjectID: r.SubjectID, PeriodID: r.PeriodID, SessionID: r.SessionID}
}

// BatchSubmitRequest holds independently applied submissions.
type BatchSubmitRequest struct {
	Items []SubmitResultRequest `json:"items" validate:"required,min=1"`
}

// BatchResult reports the outcome of a batch submission.
type BatchResult struct {
	SuccessCount int             `json:"success_count"`
	FailureCount int             `json:"failure_count"`
	Results      []models.Result `json:"results,omitempty"`
	Failures     []BatchFailure  `json:"failures,omitempty"`
}

// BatchFailure captures why a single batch item was rejected.
type BatchFailure struct {
	Index  int              `json:"index"`
	Key    models.ResultKey `json:"key"`
	Code   string           `json:"code"`
	Reason string           `json:"reason"`
}

// PublishResultsRequest selects the results to publish.
type PublishResultsRequest struct {
	ClassID   string `json:"class_id" validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
	PeriodID  string `json:"period_id" validate:"required"`
	SubjectID string `json:"subject_id"`
}

// PublishSummary reports how many results were published.
type PublishSummary struct {
	Published int64 `json:"published"`
}

// ResultServiceConfig tunes ResultService.
type ResultServiceConfig struct {
	BatchConcurrency int
}

// ResultService owns the lifecycle of Result records.
type ResultService struct {
	results     resultStore
	configs     resultConfigReader
	enrollments studentEnrollmentReader
	assignments gradingAssignmentChecker
	cumulative  *CumulativeCalculator
	ranking     rankingInvalidator
	notifier    resultsNotifier
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         ResultServiceConfig
	now         func() time.Time
}

// NewResultService constructs ResultService.
func NewResultService(
	results resultStore,
	configs resultConfigReader,
	enrollments studentEnrollmentReader,
	assignments gradingAssignmentChecker,
	cumulative *CumulativeCalculator,
	ranking rankingInvalidator,
	notifier resultsNotifier,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ResultServiceConfig,
) *ResultService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cumulative == nil {
		cumulative = NewCumulativeCalculator(nil)
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 4
	}
	return &ResultService{
		results:     results,
		configs:     configs,
		enrollments: enrollments,
		assignments: assignments,
		cumulative:  cumulative,
		ranking:     ranking,
		notifier:    notifier,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Submit creates or replaces the result identified by the request key. Component
// scores are replaced wholesale and total, grade and cumulative average are
// recomputed and stored together.
func (s *ResultService) Submit(ctx context.Context, actor models.Actor, req SubmitResultRequest) (*models.Result, error) {
	result, err := s.submit(ctx, actor, req)
	if err != nil {
		s.metrics.RecordSubmission("failed")
		return nil, err
	}
	s.metrics.RecordSubmission("applied")
	return result, nil
}

func (s *ResultService) submit(ctx context.Context, actor models.Actor, req SubmitResultRequest) (*models.Result, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid result payload")
	}

	config, err := s.configs.FindBySchoolAndSession(ctx, actor.SchoolID, req.SessionID)
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

	classID, err := s.resolveClass(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, classID, req.SubjectID, req.SessionID); err != nil {
		return nil, err
	}

	scores, total, err := s.scoreSet(config, req.Scores)
	if err != nil {
		return nil, err
	}
	entry, err := ResolveGrade(total, config.GradingScale)
	if err != nil {
		return nil, err
	}

	key := req.key()
	previous, err := priorPeriodTotals(ctx, config, key, s.results.ListPriorPeriodTotals)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load previous period totals")
	}
	cumulative, err := s.cumulative.Compute(CumulativeInput{
		Enabled:            config.CumulativeEnabled,
		Method:             config.CumulativeMethod,
		Current:            models.PeriodTotal{PeriodID: period.ID, Sequence: period.Sequence, Weight: period.Weight, Total: total},
		Previous:           previous,
		ProgressiveWeights: config.ProgressiveWeights,
	})
	if err != nil {
		return nil, err
	}

	existing, err := s.results.FindByKey(ctx, key)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to load result")
	}

	result := &models.Result{
		SchoolID:          actor.SchoolID,
		ClassID:           classID,
		StudentID:         req.StudentID,
		SubjectID:         req.SubjectID,
		PeriodID:          req.PeriodID,
		SessionID:         req.SessionID,
		Total:             total,
		Grade:             entry.Grade,
		Remark:            entry.Remark,
		CumulativeAverage: cumulative,
		Affective:         models.JSONMap(req.Affective),
		Psychomotor:       models.JSONMap(req.Psychomotor),
		CustomFields:      models.JSONMap(req.CustomFields),
		TeacherComment:    req.TeacherComment,
		AdminComment:      req.AdminComment,
		Scores:            scores,
	}
	if existing != nil {
		result.ID = existing.ID
		result.Published = existing.Published
		result.CreatedAt = existing.CreatedAt
	}
	if err := s.results.ReplaceAndRecompute(ctx, result); err != nil {
		return nil, appErrors.Internal(err, "failed to save result")
	}
	if result.Published && s.ranking != nil {
		s.ranking.Invalidate(ctx, classID, req.SessionID, req.PeriodID)
	}
	return result, nil
}

// BatchSubmit applies every item independently with bounded concurrency. A failing
// item never rolls back the others; the returned report lists failures by input index.
func (s *ResultService) BatchSubmit(ctx context.Context, actor models.Actor, req BatchSubmitRequest) (*BatchResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}

	applied := make([]*models.Result, len(req.Items))
	failed := make([]error, len(req.Items))

	var g errgroup.Group
	g.SetLimit(s.cfg.BatchConcurrency)
	for i := range req.Items {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				failed[i] = err
				return nil
			}
			result, err := s.Submit(ctx, actor, req.Items[i])
			if err != nil {
				failed[i] = err
				return nil
			}
			applied[i] = result
			return nil
		})
	}
	_ = g.Wait()
	s.metrics.ObserveBatch(len(req.Items))

	report := &BatchResult{}
	for i, item := range req.Items {
		if failed[i] != nil {
			appErr := appErrors.FromError(failed[i])
			report.Failures = append(report.Failures, BatchFailure{
				Index:  i,
				Key:    item.key(),
				Code:   appErr.Code,
				Reason: appErr.Message,
			})
			s.logger.Warn("batch result item rejected",
				zap.Int("index", i),
				zap.String("student_id", item.StudentID),
				zap.String("subject_id", item.SubjectID),
				zap.Error(failed[i]))
			continue
		}
		report.Results = append(report.Results, *applied[i])
	}
	report.SuccessCount = len(report.Results)
	report.FailureCount = len(report.Failures)
	return report, nil
}

// Publish marks the scope's results as published, drops cached rankings and
// notifies subscribers. Notification failures are logged only.
func (s *ResultService) Publish(ctx context.Context, actor models.Actor, req PublishResultsRequest) (*PublishSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid publish payload")
	}
	if !actor.Role.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrPermissionDenied, "only administrators can publish results")
	}

	count, err := s.results.Publish(ctx, models.ResultScope{
		SchoolID:  actor.SchoolID,
		ClassID:   req.ClassID,
		SessionID: req.SessionID,
		PeriodID:  req.PeriodID,
		SubjectID: req.SubjectID,
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to publish results")
	}
	if s.ranking != nil {
		s.ranking.Invalidate(ctx, req.ClassID, req.SessionID, req.PeriodID)
	}
	if s.notifier != nil && count > 0 {
		event := events.ResultsPublished{
			SchoolID:    actor.SchoolID,
			ClassID:     req.ClassID,
			SessionID:   req.SessionID,
			PeriodID:    req.PeriodID,
			SubjectID:   req.SubjectID,
			Count:       count,
			PublishedBy: actor.UserID,
			PublishedAt: s.now().UTC(),
		}
		if err := s.notifier.PublishResults(ctx, event); err != nil {
			s.logger.Warn("results event not delivered", zap.String("class_id", req.ClassID), zap.Error(err))
		}
	}
	return &PublishSummary{Published: count}, nil
}

func (s *ResultService) resolveClass(ctx context.Context, req SubmitResultRequest) (string, error) {
	enrollment, err := s.enrollments.FindByStudentAndSession(ctx, req.StudentID, req.SessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled for the session")
		}
		return "", appErrors.Internal(err, "failed to load enrollment")
	}
	if req.ClassID != "" && req.ClassID != enrollment.ClassID {
		return "", appErrors.Clone(appErrors.ErrValidation, "student is not enrolled in the given class")
	}
	return enrollment.ClassID, nil
}

func (s *ResultService) authorize(ctx context.Context, actor models.Actor, classID, subjectID, sessionID string) error {
	if actor.Role.IsAdmin() {
		return nil
	}
	if actor.Role != models.RoleTeacher {
		return appErrors.Clone(appErrors.ErrPermissionDenied, "role cannot submit results")
	}
	ok, err := s.assignments.CanGrade(ctx, actor.UserID, classID, subjectID, sessionID)
	if err != nil {
		return appErrors.Internal(err, "failed to check teaching assignment")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrPermissionDenied, "teacher is not assigned to this class and subject")
	}
	return nil
}

func (s *ResultService) scoreSet(config *models.ResultConfiguration, inputs []ComponentScoreInput) ([]models.ComponentScore, float64, error) {
	seen := make(map[string]struct{}, len(inputs))
	scores := make([]models.ComponentScore, 0, len(inputs))
	total := 0.0
	for _, in := range inputs {
		component, ok := config.Component(in.ComponentID)
		if !ok {
			return nil, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown assessment component %s", in.ComponentID))
		}
		if _, dup := seen[in.ComponentID]; dup {
			return nil, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("component %s submitted twice", component.Name))
		}
		seen[in.ComponentID] = struct{}{}
		if component.MaxScore > 0 && in.Score > component.MaxScore {
			return nil, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s score %.2f exceeds maximum %.2f", component.Name, in.Score, component.MaxScore))
		}
		scores = append(scores, models.ComponentScore{ComponentID: component.ID, ComponentName: component.Name, Score: in.Score})
		total += in.Score
	}
	return scores, roundHalfEven(total), nil
}
