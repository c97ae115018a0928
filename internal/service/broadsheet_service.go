package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-result-engine/internal/models"
	appErrors "github.com/noah-isme/sma-result-engine/pkg/errors"
	"github.com/noah-isme/sma-result-engine/pkg/export"
	"github.com/noah-isme/sma-result-engine/pkg/reportcard"
)

// Broadsheet formats.
const (
	BroadsheetXLSX = "xlsx"
	BroadsheetCSV  = "csv"
)

type classFinder interface {
	FindClass(ctx context.Context, id string) (*models.Class, error)
}

type classRankingReader interface {
	ClassRanking(ctx context.Context, classID, sessionID, periodID string) (*models.ClassRanking, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// BroadsheetRequest selects the class sheet to export.
type BroadsheetRequest struct {
	ClassID   string `json:"class_id" validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
	PeriodID  string `json:"period_id" validate:"required"`
	Format    string `json:"format" validate:"omitempty,oneof=xlsx csv"`
}

// Broadsheet is an exported class result sheet.
type Broadsheet struct {
	Filename    string
	ContentType string
	Data        []byte
}

// BroadsheetService exports a class's published results, one row per ranked student.
type BroadsheetService struct {
	classes   classFinder
	totals    classTotalsReader
	ranking   classRankingReader
	teachers  classTeacherChecker
	renderers map[string]datasetRenderer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBroadsheetService constructs BroadsheetService with CSV and XLSX exporters.
func NewBroadsheetService(classes classFinder, totals classTotalsReader, ranking classRankingReader, teachers classTeacherChecker, validate *validator.Validate, logger *zap.Logger) *BroadsheetService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BroadsheetService{
		classes:  classes,
		totals:   totals,
		ranking:  ranking,
		teachers: teachers,
		renderers: map[string]datasetRenderer{
			BroadsheetXLSX: export.NewXLSXExporter(),
			BroadsheetCSV:  export.NewCSVExporter(export.WithBOM()),
		},
		validator: validate,
		logger:    logger,
	}
}

// Export renders the broadsheet in the requested format (xlsx by default).
func (s *BroadsheetService) Export(ctx context.Context, actor models.Actor, req BroadsheetRequest) (*Broadsheet, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid broadsheet request")
	}
	if req.Format == "" {
		req.Format = BroadsheetXLSX
	}

	class, err := s.classes.FindClass(ctx, req.ClassID)
	if err != nil {
		return nil, notFoundOrInternal(err, "class not found", "failed to load class")
	}
	if err := s.authorize(ctx, actor, class, req.SessionID); err != nil {
		return nil, err
	}

	ranking, err := s.ranking.ClassRanking(ctx, req.ClassID, req.SessionID, req.PeriodID)
	if err != nil {
		return nil, err
	}
	if len(ranking.Ranks) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoPublishedResults, "no published results for this class and period")
	}
	totals, err := s.totals.ListPublishedTotals(ctx, req.ClassID, req.SessionID, req.PeriodID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load class results")
	}

	data := buildBroadsheet(class.Name, ranking, totals)
	out, err := s.renderers[req.Format].Render(data)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to export broadsheet")
	}
	s.logger.Info("broadsheet exported",
		zap.String("class_id", req.ClassID),
		zap.String("format", req.Format),
		zap.Int("students", len(ranking.Ranks)))

	contentType := "text/csv"
	if req.Format == BroadsheetXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return &Broadsheet{
		Filename:    fmt.Sprintf("%s_Broadsheet.%s", filenameUnsafe.ReplaceAllString(class.Name, "_"), req.Format),
		ContentType: contentType,
		Data:        out,
	}, nil
}

func (s *BroadsheetService) authorize(ctx context.Context, actor models.Actor, class *models.Class, sessionID string) error {
	if actor.Role != models.RoleSuperAdmin && actor.SchoolID != class.SchoolID {
		return appErrors.Clone(appErrors.ErrPermissionDenied, "class belongs to another school")
	}
	if actor.Role.IsAdmin() {
		return nil
	}
	if actor.Role == models.RoleTeacher {
		ok, err := s.teachers.TeachesClass(ctx, actor.UserID, class.ID, sessionID)
		if err != nil {
			return appErrors.Internal(err, "failed to check teaching assignment")
		}
		if ok {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrPermissionDenied, "not allowed to export this broadsheet")
}

func buildBroadsheet(title string, ranking *models.ClassRanking, totals []models.StudentTotal) export.Dataset {
	subjectNames := map[string]string{}
	scores := map[string]map[string]float64{}
	for _, t := range totals {
		name := t.SubjectName
		if name == "" {
			name = t.SubjectID
		}
		subjectNames[t.SubjectID] = name
		if scores[t.StudentID] == nil {
			scores[t.StudentID] = map[string]float64{}
		}
		scores[t.StudentID][t.SubjectID] = t.Total
	}
	subjects := make([]string, 0, len(subjectNames))
	for id := range subjectNames {
		subjects = append(subjects, id)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjectNames[subjects[i]] < subjectNames[subjects[j]] })

	headers := []string{"Position", "Student"}
	for _, id := range subjects {
		headers = append(headers, subjectNames[id])
	}
	headers = append(headers, "Total", "Average")

	rows := make([]map[string]string, 0, len(ranking.Ranks))
	for _, rank := range ranking.Ranks {
		row := map[string]string{
			"Position": reportcard.Ordinal(rank.Position),
			"Student":  rank.StudentName,
			"Total":    formatNumber(rank.SubjectSum),
			"Average":  formatNumber(rank.Average),
		}
		if row["Student"] == "" {
			row["Student"] = rank.StudentID
		}
		for _, id := range subjects {
			if v, ok := scores[rank.StudentID][id]; ok {
				row[subjectNames[id]] = formatNumber(v)
			}
		}
		rows = append(rows, row)
	}
	return export.Dataset{Title: title, Headers: headers, Rows: rows}
}

func formatNumber(v float64) string {
	return fmt.Sprintf("%g", v)
}
