package models

import "time"

// School carries the branding printed on report cards.
type School struct {
	ID           string  `db:"id" json:"id"`
	Name         string  `db:"name" json:"name"`
	Address      string  `db:"address" json:"address"`
	Motto        string  `db:"motto" json:"motto"`
	Phone        string  `db:"phone" json:"phone"`
	Email        string  `db:"email" json:"email"`
	LogoRef      *string `db:"logo_ref" json:"logo_ref,omitempty"`
	PrimaryColor string  `db:"primary_color" json:"primary_color"`
}

// Student represents a learner registered in a school.
type Student struct {
	ID          string     `db:"id" json:"id"`
	SchoolID    string     `db:"school_id" json:"school_id"`
	AdmissionNo string     `db:"admission_no" json:"admission_no"`
	FullName    string     `db:"full_name" json:"full_name"`
	Gender      string     `db:"gender" json:"gender"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	PhotoRef    *string    `db:"photo_ref" json:"photo_ref,omitempty"`
}

// AttendanceSummary aggregates daily attendance for a student in a period.
type AttendanceSummary struct {
	DaysOpened int `db:"days_opened" json:"days_opened"`
	Present    int `db:"present" json:"present"`
	Absent     int `db:"absent" json:"absent"`
}
