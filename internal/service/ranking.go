package service

import (
	"math"
	"sort"

	"github.com/noah-isme/sma-result-engine/internal/models"
	"github.com/noah-isme/sma-result-engine/pkg/config"
)

// RankingPolicy assigns positions to ranks already sorted by average descending.
type RankingPolicy interface {
	Name() string
	Assign(ranks []models.StudentRank)
}

// CompetitionRanking gives tied averages the same position and skips the next ones (1, 2, 2, 4).
type CompetitionRanking struct{}

// Name implements RankingPolicy.
func (CompetitionRanking) Name() string { return config.RankingPolicyCompetition }

// Assign implements RankingPolicy.
func (CompetitionRanking) Assign(ranks []models.StudentRank) {
	for i := range ranks {
		if i > 0 && ranks[i].Average == ranks[i-1].Average {
			ranks[i].Position = ranks[i-1].Position
			continue
		}
		ranks[i].Position = i + 1
	}
}

// SequentialRanking gives every student a distinct position, ties broken by input order.
type SequentialRanking struct{}

// Name implements RankingPolicy.
func (SequentialRanking) Name() string { return config.RankingPolicySequential }

// Assign implements RankingPolicy.
func (SequentialRanking) Assign(ranks []models.StudentRank) {
	for i := range ranks {
		ranks[i].Position = i + 1
	}
}

// NewRankingPolicy resolves a configured policy name, defaulting to competition ranking.
func NewRankingPolicy(name string) RankingPolicy {
	if name == config.RankingPolicySequential {
		return SequentialRanking{}
	}
	return CompetitionRanking{}
}

// RankStudents averages each student's published subject totals and orders them.
// Students keep their first-appearance order when averages tie. Ordering and ties
// use the exact average; the values returned are rounded for display.
func RankStudents(totals []models.StudentTotal, policy RankingPolicy) []models.StudentRank {
	if policy == nil {
		policy = CompetitionRanking{}
	}
	index := make(map[string]int)
	ranks := make([]models.StudentRank, 0)
	cents := make([]int64, 0)
	for _, t := range totals {
		i, ok := index[t.StudentID]
		if !ok {
			i = len(ranks)
			index[t.StudentID] = i
			ranks = append(ranks, models.StudentRank{StudentID: t.StudentID, StudentName: t.StudentName})
			cents = append(cents, 0)
		}
		// totals are stored to two decimals; summing in cents keeps equal sums equal
		cents[i] += int64(math.Round(t.Total * 100))
		ranks[i].Subjects++
	}
	for i := range ranks {
		ranks[i].SubjectSum = float64(cents[i]) / 100
		ranks[i].Average = float64(cents[i]) / float64(ranks[i].Subjects) / 100
	}
	sort.SliceStable(ranks, func(i, j int) bool { return ranks[i].Average > ranks[j].Average })
	policy.Assign(ranks)
	for i := range ranks {
		ranks[i].Average = roundHalfEven(ranks[i].Average)
	}
	return ranks
}
