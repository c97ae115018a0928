package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-result-engine/internal/models"
)

// EnrollmentRepository reads class placements of students per session.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByStudentAndSession returns the active enrollment of a student. Returns sql.ErrNoRows when absent.
func (r *EnrollmentRepository) FindByStudentAndSession(ctx context.Context, studentID, sessionID string) (*models.Enrollment, error) {
	const query = `
SELECT e.id, e.student_id, e.class_id, e.session_id, c.level_id, c.name AS class_name
FROM enrollments e
JOIN classes c ON c.id = e.class_id
WHERE e.student_id = $1 AND e.session_id = $2 AND e.status = 'ACTIVE'
LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, sessionID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// CountByClassAndSession returns the number of students placed in the class for the session.
func (r *EnrollmentRepository) CountByClassAndSession(ctx context.Context, classID, sessionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE class_id = $1 AND session_id = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, classID, sessionID); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}
