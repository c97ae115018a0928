package models

// RenderData is everything a report card needs; built per request and discarded.
type RenderData struct {
	School       School
	Student      Student
	Class        Enrollment
	Session      AcademicSession
	Period       ResultPeriod
	Subjects     []RenderSubject
	Components   []AssessmentComponent
	GradingScale []GradingScaleEntry
	Summary      ReportSummary
	Cumulative   CumulativeSummary
	Attendance   AttendanceSummary
	Affective    JSONMap
	Psychomotor  JSONMap
	Comments     ReportComments
}

// RenderSubject is one subject row on the report card.
type RenderSubject struct {
	SubjectID         string
	SubjectName       string
	Scores            map[string]float64
	Total             float64
	Grade             string
	Remark            string
	CumulativeAverage float64
}

// ReportSummary aggregates the period performance of the student.
type ReportSummary struct {
	TotalScore      float64
	Average         float64
	OverallGrade    string
	OverallRemark   string
	Position        int
	StudentsInClass int
}

// CumulativeSummary folds earlier periods of the session into the report.
type CumulativeSummary struct {
	PreviousTotal float64
	TermCount     int
	Average       float64
}

// ReportComments are the free-text remarks printed at the bottom of the card.
type ReportComments struct {
	Teacher   string
	Principal string
}
