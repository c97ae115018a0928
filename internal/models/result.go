package models

import "time"

// ResultKey uniquely identifies a Result.
type ResultKey struct {
	StudentID string `db:"student_id" json:"student_id"`
	SubjectID string `db:"subject_id" json:"subject_id"`
	PeriodID  string `db:"period_id" json:"period_id"`
	SessionID string `db:"session_id" json:"session_id"`
}

// Result is one student's finalized score for a subject in a period.
type Result struct {
	ID                string           `db:"id" json:"id"`
	SchoolID          string           `db:"school_id" json:"school_id"`
	ClassID           string           `db:"class_id" json:"class_id"`
	StudentID         string           `db:"student_id" json:"student_id"`
	SubjectID         string           `db:"subject_id" json:"subject_id"`
	PeriodID          string           `db:"period_id" json:"period_id"`
	SessionID         string           `db:"session_id" json:"session_id"`
	Total             float64          `db:"total" json:"total"`
	Grade             string           `db:"grade" json:"grade"`
	Remark            string           `db:"remark" json:"remark"`
	CumulativeAverage float64          `db:"cumulative_average" json:"cumulative_average"`
	Published         bool             `db:"published" json:"published"`
	Affective         JSONMap          `db:"affective" json:"affective,omitempty"`
	Psychomotor       JSONMap          `db:"psychomotor" json:"psychomotor,omitempty"`
	CustomFields      JSONMap          `db:"custom_fields" json:"custom_fields,omitempty"`
	TeacherComment    string           `db:"teacher_comment" json:"teacher_comment"`
	AdminComment      string           `db:"admin_comment" json:"admin_comment"`
	SubjectName       string           `db:"subject_name" json:"subject_name,omitempty"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
	Scores            []ComponentScore `db:"-" json:"scores"`
}

// Key returns the four-part identity of the result.
func (r *Result) Key() ResultKey {
	return ResultKey{StudentID: r.StudentID, SubjectID: r.SubjectID, PeriodID: r.PeriodID, SessionID: r.SessionID}
}

// ComponentScore is a single graded input owned by a Result.
type ComponentScore struct {
	ID            string  `db:"id" json:"id"`
	ResultID      string  `db:"result_id" json:"result_id"`
	ComponentID   string  `db:"component_id" json:"component_id"`
	ComponentName string  `db:"component_name" json:"component_name,omitempty"`
	Score         float64 `db:"score" json:"score"`
}

// PeriodTotal is a previously recorded subject total for another period of the session.
type PeriodTotal struct {
	PeriodID string   `db:"period_id" json:"period_id"`
	Sequence int      `db:"sequence" json:"sequence"`
	Weight   *float64 `db:"weight" json:"weight,omitempty"`
	Total    float64  `db:"total" json:"total"`
}

// ResultScope narrows publish and listing operations.
type ResultScope struct {
	SchoolID  string
	ClassID   string
	SessionID string
	PeriodID  string
	SubjectID string
}

// StudentTotal is one published subject total of a student, used for ranking.
type StudentTotal struct {
	StudentID   string  `db:"student_id" json:"student_id"`
	StudentName string  `db:"student_name" json:"student_name"`
	SubjectID   string  `db:"subject_id" json:"subject_id"`
	SubjectName string  `db:"subject_name" json:"subject_name"`
	Total       float64 `db:"total" json:"total"`
}

// StudentRank is a student's position within the class.
type StudentRank struct {
	StudentID   string  `json:"student_id"`
	StudentName string  `json:"student_name"`
	SubjectSum  float64 `json:"subject_sum"`
	Subjects    int     `json:"subjects"`
	Average     float64 `json:"average"`
	Position    int     `json:"position"`
}

// ClassRanking is the ordered ranking of a class for a session+period.
type ClassRanking struct {
	ClassID         string        `json:"class_id"`
	SessionID       string        `json:"session_id"`
	PeriodID        string        `json:"period_id"`
	Policy          string        `json:"policy"`
	StudentsInClass int           `json:"students_in_class"`
	Ranks           []StudentRank `json:"ranks"`
}

// Find returns the rank entry of a student.
func (r *ClassRanking) Find(studentID string) (StudentRank, bool) {
	if r == nil {
		return StudentRank{}, false
	}
	for _, rank := range r.Ranks {
		if rank.StudentID == studentID {
			return rank, true
		}
	}
	return StudentRank{}, false
}
