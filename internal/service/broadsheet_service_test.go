package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-result-engine/internal/models"
	appErrors "github.com/noah-isme/sma-result-engine/pkg/errors"
)

type mockClasses struct{}

func (mockClasses) FindClass(ctx context.Context, id string) (*models.Class, error) {
	return &models.Class{ID: id, SchoolID: "school-1", Name: "JSS1 A", LevelID: "jss1"}, nil
}

func newBroadsheetFixture(totals []models.StudentTotal) *BroadsheetService {
	reader := &mockTotalsReader{totals: totals}
	ranking := NewRankingService(reader, &mockEnrollmentCounter{count: 3}, nil, CompetitionRanking{}, 0, zap.NewNop())
	return NewBroadsheetService(mockClasses{}, reader, ranking, &mockClassTeachers{teaches: map[string]bool{"teacher-1:class-1": true}}, nil, zap.NewNop())
}

func classTotals() []models.StudentTotal {
	return []models.StudentTotal{
		{StudentID: "S1", StudentName: "Ada Obi", SubjectID: "math", SubjectName: "Mathematics", Total: 90},
		{StudentID: "S1", StudentName: "Ada Obi", SubjectID: "eng", SubjectName: "English", Total: 80},
		{StudentID: "S2", StudentName: "Tunde Bello", SubjectID: "math", SubjectName: "Mathematics", Total: 70},
		{StudentID: "S2", StudentName: "Tunde Bello", SubjectID: "eng", SubjectName: "English", Total: 60},
	}
}

func TestBroadsheetServiceCSV(t *testing.T) {
	svc := newBroadsheetFixture(classTotals())

	sheet, err := svc.Export(context.Background(), adminActor, BroadsheetRequest{ClassID: "class-1", SessionID: "sess-1", PeriodID: "term-1", Format: BroadsheetCSV})
	require.NoError(t, err)
	assert.Equal(t, "JSS1_A_Broadsheet.csv", sheet.Filename)
	assert.Equal(t, "text/csv", sheet.ContentType)
	body, hasBOM := strings.CutPrefix(string(sheet.Data), "\ufeff")
	assert.True(t, hasBOM)
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Position,Student,English,Mathematics,Total,Average", lines[0])
	assert.Equal(t, "1st,Ada Obi,80,90,170,85", lines[1])
	assert.Equal(t, "2nd,Tunde Bello,60,70,130,65", lines[2])
}

func TestBroadsheetServiceXLSX(t *testing.T) {
	svc := newBroadsheetFixture(classTotals())
	teacher := models.Actor{UserID: "teacher-1", Role: models.RoleTeacher, SchoolID: "school-1"}

	sheet, err := svc.Export(context.Background(), teacher, BroadsheetRequest{ClassID: "class-1", SessionID: "sess-1", PeriodID: "term-1"})
	require.NoError(t, err)
	assert.Equal(t, "JSS1_A_Broadsheet.xlsx", sheet.Filename)

	f, err := excelize.OpenReader(bytes.NewReader(sheet.Data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("JSS1 A")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Tunde Bello", rows[2][1])
}

func TestBroadsheetServiceErrors(t *testing.T) {
	svc := newBroadsheetFixture(nil)
	req := BroadsheetRequest{ClassID: "class-1", SessionID: "sess-1", PeriodID: "term-1"}

	_, err := svc.Export(context.Background(), adminActor, req)
	assert.ErrorIs(t, err, appErrors.ErrNoPublishedResults)

	_, err = svc.Export(context.Background(), models.Actor{UserID: "teacher-2", Role: models.RoleTeacher, SchoolID: "school-1"}, req)
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)

	req.Format = "pdf"
	_, err = svc.Export(context.Background(), adminActor, req)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
