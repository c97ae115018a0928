package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-result-engine/internal/models"
	appErrors "github.com/noah-isme/sma-result-engine/pkg/errors"
)

type classTotalsReader interface {
	ListPublishedTotals(ctx context.Context, classID, sessionID, periodID string) ([]models.StudentTotal, error)
}

type enrollmentCounter interface {
	CountByClassAndSession(ctx context.Context, classID, sessionID string) (int, error)
}

// RankingService computes peer-relative positions within a class. It only reads
// published results, so concurrent calls need no coordination.
type RankingService struct {
	totals      classTotalsReader
	enrollments enrollmentCounter
	cache       *CacheService
	policy      RankingPolicy
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewRankingService constructs RankingService.
func NewRankingService(totals classTotalsReader, enrollments enrollmentCounter, cache *CacheService, policy RankingPolicy, cacheTTL time.Duration, logger *zap.Logger) *RankingService {
	if policy == nil {
		policy = CompetitionRanking{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RankingService{
		totals:      totals,
		enrollments: enrollments,
		cache:       cache,
		policy:      policy,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// ClassRanking returns every student with published results ordered by average.
// StudentsInClass counts enrollment rows, including students without results.
func (s *RankingService) ClassRanking(ctx context.Context, classID, sessionID, periodID string) (*models.ClassRanking, error) {
	if classID == "" || sessionID == "" || periodID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class, session and period required")
	}
	key := RankingCacheKey(classID, sessionID, periodID)
	var cached models.ClassRanking
	if s.cache.Get(ctx, key, &cached) && cached.Policy == s.policy.Name() {
		return &cached, nil
	}

	totals, err := s.totals.ListPublishedTotals(ctx, classID, sessionID, periodID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load class results")
	}
	enrolled, err := s.enrollments.CountByClassAndSession(ctx, classID, sessionID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count class enrollment")
	}
	ranking := &models.ClassRanking{
		ClassID:         classID,
		SessionID:       sessionID,
		PeriodID:        periodID,
		Policy:          s.policy.Name(),
		StudentsInClass: enrolled,
		Ranks:           RankStudents(totals, s.policy),
	}
	s.cache.Set(ctx, key, ranking, s.cacheTTL)
	return ranking, nil
}

// Position returns the student's 1-based position (0 when unranked) and the class size.
func (s *RankingService) Position(ctx context.Context, classID, sessionID, periodID, studentID string) (int, int, error) {
	ranking, err := s.ClassRanking(ctx, classID, sessionID, periodID)
	if err != nil {
		return 0, 0, err
	}
	rank, ok := ranking.Find(studentID)
	if !ok {
		s.logger.Debug("student not ranked", zap.String("student_id", studentID), zap.String("class_id", classID))
		return 0, ranking.StudentsInClass, nil
	}
	return rank.Position, ranking.StudentsInClass, nil
}

// Invalidate drops cached rankings for a class; an empty period clears every period.
func (s *RankingService) Invalidate(ctx context.Context, classID, sessionID, periodID string) {
	if periodID == "" {
		periodID = "*"
	}
	if classID == "" {
		classID = "*"
	}
	s.cache.Invalidate(ctx, RankingCacheKey(classID, sessionID, periodID))
}
