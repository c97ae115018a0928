package reportcard

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/sma-result-engine/internal/models"
)

// UnknownFieldError reports a binding that names no dynamic field.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown dynamic field %q", e.Field)
}

type fieldFunc func(d *models.RenderData) string

var staticFields = map[string]fieldFunc{
	"student.name":              func(d *models.RenderData) string { return d.Student.FullName },
	"student.admission_no":      func(d *models.RenderData) string { return d.Student.AdmissionNo },
	"student.gender":            func(d *models.RenderData) string { return d.Student.Gender },
	"student.date_of_birth":     studentDOB,
	"school.name":               func(d *models.RenderData) string { return d.School.Name },
	"school.address":            func(d *models.RenderData) string { return d.School.Address },
	"school.motto":              func(d *models.RenderData) string { return d.School.Motto },
	"school.phone":              func(d *models.RenderData) string { return d.School.Phone },
	"school.email":              func(d *models.RenderData) string { return d.School.Email },
	"class.name":                func(d *models.RenderData) string { return d.Class.ClassName },
	"session.name":              func(d *models.RenderData) string { return d.Session.Name },
	"period.name":               func(d *models.RenderData) string { return d.Period.Name },
	"summary.total_score":       func(d *models.RenderData) string { return formatScore(d.Summary.TotalScore) },
	"summary.average":           func(d *models.RenderData) string { return formatScore(d.Summary.Average) },
	"summary.grade":             func(d *models.RenderData) string { return d.Summary.OverallGrade },
	"summary.remark":            func(d *models.RenderData) string { return d.Summary.OverallRemark },
	"summary.position":          func(d *models.RenderData) string { return Ordinal(d.Summary.Position) },
	"summary.students_in_class": func(d *models.RenderData) string { return strconv.Itoa(d.Summary.StudentsInClass) },
	"summary.subjects_offered":  func(d *models.RenderData) string { return strconv.Itoa(len(d.Subjects)) },
	"cumulative.previous_total": func(d *models.RenderData) string { return formatScore(d.Cumulative.PreviousTotal) },
	"cumulative.term_count":     func(d *models.RenderData) string { return strconv.Itoa(d.Cumulative.TermCount) },
	"cumulative.average":        func(d *models.RenderData) string { return formatScore(d.Cumulative.Average) },
	"attendance.days_opened":    func(d *models.RenderData) string { return strconv.Itoa(d.Attendance.DaysOpened) },
	"attendance.present":        func(d *models.RenderData) string { return strconv.Itoa(d.Attendance.Present) },
	"attendance.absent":         func(d *models.RenderData) string { return strconv.Itoa(d.Attendance.Absent) },
	"comments.teacher":          func(d *models.RenderData) string { return d.Comments.Teacher },
	"comments.principal":        func(d *models.RenderData) string { return d.Comments.Principal },
	"grading.key":               gradingKey,
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.\- ]+?)\s*\}\}`)

// ResolveField returns the printable value of a dynamic field.
//
// Besides the fixed names, three families are keyed at render time:
// affective.<trait>, psychomotor.<skill> and subject.<subject>.<column>, where
// column is total, grade, remark, cumulative or a component name.
func ResolveField(data *models.RenderData, name string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if fn, ok := staticFields[key]; ok {
		return fn(data), nil
	}
	switch {
	case strings.HasPrefix(key, "affective."):
		return mapValue(data.Affective, strings.TrimPrefix(key, "affective.")), nil
	case strings.HasPrefix(key, "psychomotor."):
		return mapValue(data.Psychomotor, strings.TrimPrefix(key, "psychomotor.")), nil
	case strings.HasPrefix(key, "subject."):
		return subjectValue(data, strings.TrimPrefix(key, "subject."), name)
	}
	return "", &UnknownFieldError{Field: name}
}

// ExpandText replaces {{field}} placeholders inside free text.
func ExpandText(data *models.RenderData, text string) (string, error) {
	var firstErr error
	out := placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		if firstErr != nil {
			return match
		}
		name := placeholderPattern.FindStringSubmatch(match)[1]
		value, err := ResolveField(data, name)
		if err != nil {
			firstErr = err
			return match
		}
		return value
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

func mapValue(values models.JSONMap, key string) string {
	for k, v := range values {
		if strings.ToLower(k) == key {
			return v
		}
	}
	// Traits without a rating for this student print blank.
	return ""
}

func subjectValue(data *models.RenderData, rest, original string) (string, error) {
	idx := strings.LastIndex(rest, ".")
	if idx <= 0 {
		return "", &UnknownFieldError{Field: original}
	}
	subjectKey, column := rest[:idx], rest[idx+1:]
	for _, subject := range data.Subjects {
		if strings.ToLower(subject.SubjectID) != subjectKey && strings.ToLower(subject.SubjectName) != subjectKey {
			continue
		}
		switch column {
		case "total":
			return formatScore(subject.Total), nil
		case "grade":
			return subject.Grade, nil
		case "remark":
			return subject.Remark, nil
		case "cumulative":
			return formatScore(subject.CumulativeAverage), nil
		}
		for component, score := range subject.Scores {
			if strings.ToLower(component) == column {
				return formatScore(score), nil
			}
		}
		return "", &UnknownFieldError{Field: original}
	}
	return "", &UnknownFieldError{Field: original}
}

func studentDOB(d *models.RenderData) string {
	if d.Student.DateOfBirth == nil {
		return ""
	}
	return d.Student.DateOfBirth.Format("02 Jan 2006")
}

func gradingKey(d *models.RenderData) string {
	scale := append([]models.GradingScaleEntry(nil), d.GradingScale...)
	sort.SliceStable(scale, func(i, j int) bool { return scale[i].MinScore > scale[j].MinScore })
	parts := make([]string, 0, len(scale))
	for _, entry := range scale {
		parts = append(parts, fmt.Sprintf("%s (%s-%s) %s", entry.Grade, formatScore(entry.MinScore), formatScore(entry.MaxScore), entry.Remark))
	}
	return strings.Join(parts, "; ")
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Ordinal formats a class position such as 1st, 2nd or 23rd. Zero prints "-".
func Ordinal(n int) string {
	if n <= 0 {
		return "-"
	}
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}
