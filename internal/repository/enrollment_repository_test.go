package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollmentRepositoryFindByStudentAndSession(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.student_id = $1 AND e.session_id = $2")).
		WithArgs("stu-1", "sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "class_id", "session_id", "level_id", "class_name"}).
			AddRow("enr-1", "stu-1", "class-1", "sess-1", "jss1", "JSS1 A"))

	enrollment, err := repo.FindByStudentAndSession(context.Background(), "stu-1", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "class-1", enrollment.ClassID)
	assert.Equal(t, "jss1", enrollment.LevelID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCountByClassAndSession(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE class_id = $1 AND session_id = $2")).
		WithArgs("class-1", "sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountByClassAndSession(context.Background(), "class-1", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
