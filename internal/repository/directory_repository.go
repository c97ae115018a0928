package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-result-engine/internal/models"
)

// DirectoryRepository reads the school, student, session and class records printed on report cards.
// Find methods return sql.ErrNoRows unwrapped so callers can map it to a not found error.
type DirectoryRepository struct {
	db *sqlx.DB
}

// NewDirectoryRepository constructs the repository.
func NewDirectoryRepository(db *sqlx.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

func (r *DirectoryRepository) FindSchool(ctx context.Context, id string) (*models.School, error) {
	const query = `SELECT id, name, address, motto, phone, email, logo_ref, primary_color FROM schools WHERE id = $1`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		return nil, err
	}
	return &school, nil
}

func (r *DirectoryRepository) FindStudent(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, school_id, admission_no, full_name, gender, date_of_birth, photo_ref FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *DirectoryRepository) FindSession(ctx context.Context, id string) (*models.AcademicSession, error) {
	const query = `SELECT id, school_id, name FROM academic_sessions WHERE id = $1`
	var session models.AcademicSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *DirectoryRepository) FindClass(ctx context.Context, id string) (*models.Class, error) {
	const query = `
SELECT c.id, c.school_id, c.name, c.level_id, l.name AS level_name
FROM classes c
JOIN class_levels l ON l.id = c.level_id
WHERE c.id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// IsGuardian reports whether the parent account is linked to the student.
func (r *DirectoryRepository) IsGuardian(ctx context.Context, parentID, studentID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM student_guardians WHERE parent_id = $1 AND student_id = $2)`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, parentID, studentID); err != nil {
		return false, fmt.Errorf("check guardian link: %w", err)
	}
	return ok, nil
}
