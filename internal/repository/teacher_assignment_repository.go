package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TeacherAssignmentRepository answers grading permission questions from teacher assignments.
type TeacherAssignmentRepository struct {
	db *sqlx.DB
}

// NewTeacherAssignmentRepository constructs the repository.
func NewTeacherAssignmentRepository(db *sqlx.DB) *TeacherAssignmentRepository {
	return &TeacherAssignmentRepository{db: db}
}

// CanGrade reports whether the teacher teaches the subject to the class in the session.
func (r *TeacherAssignmentRepository) CanGrade(ctx context.Context, teacherID, classID, subjectID, sessionID string) (bool, error) {
	const query = `SELECT EXISTS (
	SELECT 1 FROM teacher_assignments
	WHERE teacher_id = $1 AND class_id = $2 AND subject_id = $3 AND session_id = $4
)`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, teacherID, classID, subjectID, sessionID); err != nil {
		return false, fmt.Errorf("check grading assignment: %w", err)
	}
	return ok, nil
}

// TeachesClass reports whether the teacher holds any assignment in the class, homeroom included.
func (r *TeacherAssignmentRepository) TeachesClass(ctx context.Context, teacherID, classID, sessionID string) (bool, error) {
	const query = `SELECT EXISTS (
	SELECT 1 FROM teacher_assignments
	WHERE teacher_id = $1 AND class_id = $2 AND session_id = $3
)`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, teacherID, classID, sessionID); err != nil {
		return false, fmt.Errorf("check class assignment: %w", err)
	}
	return ok, nil
}
