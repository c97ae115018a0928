package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-result-engine/internal/models"
	"github.com/noah-isme/sma-result-engine/pkg/database"
)

const resultColumns = `r.id, r.school_id, r.class_id, r.student_id, r.subject_id, r.period_id, r.session_id,
       r.total, r.grade, r.remark, r.cumulative_average, r.published,
       r.affective, r.psychomotor, r.custom_fields, r.teacher_comment, r.admin_comment,
       r.created_at, r.updated_at`

// ResultRepository persists results and their component scores.
type ResultRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewResultRepository constructs the repository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db, now: time.Now}
}

// FindByKey loads a result with its component scores. Returns sql.ErrNoRows when absent.
func (r *ResultRepository) FindByKey(ctx context.Context, key models.ResultKey) (*models.Result, error) {
	query := `SELECT ` + resultColumns + `
FROM results r
WHERE r.student_id = $1 AND r.subject_id = $2 AND r.period_id = $3 AND r.session_id = $4`
	var result models.Result
	if err := r.db.GetContext(ctx, &result, query, key.StudentID, key.SubjectID, key.PeriodID, key.SessionID); err != nil {
		return nil, err
	}
	results := []models.Result{result}
	if err := r.attachScores(ctx, results); err != nil {
		return nil, err
	}
	return &results[0], nil
}

// ReplaceAndRecompute upserts the result row and swaps its component scores in one transaction.
// The derived fields on result must already be computed from result.Scores.
func (r *ResultRepository) ReplaceAndRecompute(ctx context.Context, result *models.Result) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	now := r.now().UTC()
	if result.CreatedAt.IsZero() {
		result.CreatedAt = now
	}
	result.UpdatedAt = now

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const upsert = `INSERT INTO results (id, school_id, class_id, student_id, subject_id, period_id, session_id,
	total, grade, remark, cumulative_average, published, affective, psychomotor, custom_fields,
	teacher_comment, admin_comment, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
ON CONFLICT (student_id, subject_id, period_id, session_id) DO UPDATE SET
	class_id = EXCLUDED.class_id,
	total = EXCLUDED.total,
	grade = EXCLUDED.grade,
	remark = EXCLUDED.remark,
	cumulative_average = EXCLUDED.cumulative_average,
	affective = EXCLUDED.affective,
	psychomotor = EXCLUDED.psychomotor,
	custom_fields = EXCLUDED.custom_fields,
	teacher_comment = EXCLUDED.teacher_comment,
	admin_comment = EXCLUDED.admin_comment,
	updated_at = EXCLUDED.updated_at
RETURNING id`
		var id string
		err := tx.QueryRowxContext(ctx, upsert,
			result.ID, result.SchoolID, result.ClassID, result.StudentID, result.SubjectID, result.PeriodID, result.SessionID,
			result.Total, result.Grade, result.Remark, result.CumulativeAverage, result.Published,
			result.Affective, result.Psychomotor, result.CustomFields,
			result.TeacherComment, result.AdminComment, result.CreatedAt, result.UpdatedAt,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("upsert result: %w", err)
		}
		result.ID = id

		if _, err := tx.ExecContext(ctx, `DELETE FROM component_scores WHERE result_id = $1`, id); err != nil {
			return fmt.Errorf("clear component scores: %w", err)
		}

		const insert = `INSERT INTO component_scores (id, result_id, component_id, score) VALUES ($1, $2, $3, $4)`
		for i := range result.Scores {
			score := &result.Scores[i]
			score.ID = uuid.NewString()
			score.ResultID = id
			if _, err := tx.ExecContext(ctx, insert, score.ID, id, score.ComponentID, score.Score); err != nil {
				return fmt.Errorf("insert component score %s: %w", score.ComponentID, err)
			}
		}
		return nil
	})
}

// ListPriorPeriodTotals returns the student's totals for the same subject in the
// given earlier periods of the session, published or not.
func (r *ResultRepository) ListPriorPeriodTotals(ctx context.Context, key models.ResultKey, periodIDs []string) ([]models.PeriodTotal, error) {
	return r.listPeriodTotals(ctx, key, periodIDs, false)
}

// ListPublishedPriorPeriodTotals is ListPriorPeriodTotals restricted to published results.
func (r *ResultRepository) ListPublishedPriorPeriodTotals(ctx context.Context, key models.ResultKey, periodIDs []string) ([]models.PeriodTotal, error) {
	return r.listPeriodTotals(ctx, key, periodIDs, true)
}

// listPeriodTotals leaves sequence and weight unset; the configuration owns the schedule.
func (r *ResultRepository) listPeriodTotals(ctx context.Context, key models.ResultKey, periodIDs []string, publishedOnly bool) ([]models.PeriodTotal, error) {
	if len(periodIDs) == 0 {
		return nil, nil
	}
	query := `
SELECT r.period_id, r.total
FROM results r
WHERE r.student_id = $1 AND r.subject_id = $2 AND r.session_id = $3 AND r.period_id = ANY($4)`
	if publishedOnly {
		query += ` AND r.published = TRUE`
	}
	var totals []models.PeriodTotal
	if err := r.db.SelectContext(ctx, &totals, query, key.StudentID, key.SubjectID, key.SessionID, pq.Array(periodIDs)); err != nil {
		return nil, fmt.Errorf("list prior period totals: %w", err)
	}
	return totals, nil
}

// ListPublishedForStudent returns the published results of a student for one period, ordered by subject name.
func (r *ResultRepository) ListPublishedForStudent(ctx context.Context, studentID, sessionID, periodID string) ([]models.Result, error) {
	query := `SELECT ` + resultColumns + `, s.name AS subject_name
FROM results r
JOIN subjects s ON s.id = r.subject_id
WHERE r.student_id = $1 AND r.session_id = $2 AND r.period_id = $3 AND r.published = TRUE
ORDER BY s.name ASC`
	var results []models.Result
	if err := r.db.SelectContext(ctx, &results, query, studentID, sessionID, periodID); err != nil {
		return nil, fmt.Errorf("list published results: %w", err)
	}
	if err := r.attachScores(ctx, results); err != nil {
		return nil, err
	}
	return results, nil
}

// ListPublishedTotals returns every published subject total of a class for one period.
func (r *ResultRepository) ListPublishedTotals(ctx context.Context, classID, sessionID, periodID string) ([]models.StudentTotal, error) {
	const query = `
SELECT r.student_id, st.full_name AS student_name, r.subject_id, s.name AS subject_name, r.total
FROM results r
JOIN students st ON st.id = r.student_id
JOIN subjects s ON s.id = r.subject_id
WHERE r.class_id = $1 AND r.session_id = $2 AND r.period_id = $3 AND r.published = TRUE
ORDER BY st.full_name ASC, s.name ASC`
	var totals []models.StudentTotal
	if err := r.db.SelectContext(ctx, &totals, query, classID, sessionID, periodID); err != nil {
		return nil, fmt.Errorf("list published totals: %w", err)
	}
	return totals, nil
}

// Publish flags the unpublished results of the scope and returns how many changed.
func (r *ResultRepository) Publish(ctx context.Context, scope models.ResultScope) (int64, error) {
	var (
		conditions = []string{"school_id = $2", "class_id = $3", "session_id = $4", "period_id = $5", "published = FALSE"}
		args       = []interface{}{r.now().UTC(), scope.SchoolID, scope.ClassID, scope.SessionID, scope.PeriodID}
	)
	if scope.SubjectID != "" {
		args = append(args, scope.SubjectID)
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)))
	}
	query := "UPDATE results SET published = TRUE, updated_at = $1 WHERE " + strings.Join(conditions, " AND ")
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("publish results: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count published results: %w", err)
	}
	return affected, nil
}

func (r *ResultRepository) attachScores(ctx context.Context, results []models.Result) error {
	if len(results) == 0 {
		return nil
	}
	ids := make([]string, len(results))
	index := make(map[string]int, len(results))
	for i := range results {
		ids[i] = results[i].ID
		index[results[i].ID] = i
	}

	const query = `
SELECT cs.id, cs.result_id, cs.component_id, ac.name AS component_name, cs.score
FROM component_scores cs
JOIN assessment_components ac ON ac.id = cs.component_id
WHERE cs.result_id = ANY($1)
ORDER BY ac.position ASC`
	var scores []models.ComponentScore
	if err := r.db.SelectContext(ctx, &scores, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("list component scores: %w", err)
	}
	for _, score := range scores {
		if i, ok := index[score.ResultID]; ok {
			results[i].Scores = append(results[i].Scores, score)
		}
	}
	return nil
}
