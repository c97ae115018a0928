package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-result-engine/internal/models"
)

// AttendanceRepository aggregates daily attendance for report cards.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Summary counts the days recorded for the student inside the period's date range.
// Late arrivals count as present; excused and sick days count as absent.
func (r *AttendanceRepository) Summary(ctx context.Context, studentID, sessionID, periodID string) (*models.AttendanceSummary, error) {
	const query = `
SELECT COUNT(da.id) AS days_opened,
       COUNT(da.id) FILTER (WHERE da.status IN ('PRESENT', 'LATE')) AS present,
       COUNT(da.id) FILTER (WHERE da.status IN ('ABSENT', 'EXCUSED', 'SICK')) AS absent
FROM daily_attendance da
JOIN enrollments e ON e.id = da.enrollment_id
JOIN result_periods p ON p.id = $3
WHERE e.student_id = $1 AND e.session_id = $2
  AND da.date BETWEEN p.start_date AND p.end_date`
	var summary models.AttendanceSummary
	if err := r.db.GetContext(ctx, &summary, query, studentID, sessionID, periodID); err != nil {
		return nil, fmt.Errorf("summarise attendance: %w", err)
	}
	return &summary, nil
}
