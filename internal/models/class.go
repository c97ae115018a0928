package models

// Class groups students of one level (e.g. JSS1 A).
type Class struct {
	ID        string `db:"id" json:"id"`
	SchoolID  string `db:"school_id" json:"school_id"`
	Name      string `db:"name" json:"name"`
	LevelID   string `db:"level_id" json:"level_id"`
	LevelName string `db:"level_name" json:"level_name"`
}

// Enrollment places a student in a class for an academic session.
type Enrollment struct {
	ID        string `db:"id" json:"id"`
	StudentID string `db:"student_id" json:"student_id"`
	ClassID   string `db:"class_id" json:"class_id"`
	SessionID string `db:"session_id" json:"session_id"`
	LevelID   string `db:"level_id" json:"level_id"`
	ClassName string `db:"class_name" json:"class_name"`
}

// Subject is a taught course within a school.
type Subject struct {
	ID       string `db:"id" json:"id"`
	SchoolID string `db:"school_id" json:"school_id"`
	Name     string `db:"name" json:"name"`
	Code     string `db:"code" json:"code"`
}

// AcademicSession is a school year (e.g. 2025/2026) split into result periods.
type AcademicSession struct {
	ID       string `db:"id" json:"id"`
	SchoolID string `db:"school_id" json:"school_id"`
	Name     string `db:"name" json:"name"`
}
