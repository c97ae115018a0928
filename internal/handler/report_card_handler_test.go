package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-result-engine/internal/middleware"
	"github.com/noah-isme/sma-result-engine/internal/models"
	"github.com/noah-isme/sma-result-engine/internal/service"
	appErrors "github.com/noah-isme/sma-result-engine/pkg/errors"
	"github.com/noah-isme/sma-result-engine/pkg/reportcard"
)

type reportCardMock struct {
	req  service.ReportCardRequest
	card *service.ReportCard
	err  error
}

func (m *reportCardMock) Generate(ctx context.Context, actor models.Actor, req service.ReportCardRequest) (*service.ReportCard, error) {
	m.req = req
	return m.card, m.err
}

type broadsheetMock struct {
	req   service.BroadsheetRequest
	sheet *service.Broadsheet
}

func (m *broadsheetMock) Export(ctx context.Context, actor models.Actor, req service.BroadsheetRequest) (*service.Broadsheet, error) {
	m.req = req
	return m.sheet, nil
}

func withParent(c *gin.Context) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "parent-1", Role: models.RoleParent, SchoolID: "school-1"})
}

func TestReportCardHandlerStudentReportCard(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reports := &reportCardMock{card: &service.ReportCard{
		Filename:    "Bright_Future_College_Ada_Obi_Report.pdf",
		ContentType: "application/pdf",
		Layout:      reportcard.LayoutFallback,
		Data:        []byte("%PDF-1.3"),
	}}
	handler := NewReportCardHandler(reports, nil)

	c, w := newGinContext(http.MethodGet, "/report-cards/students/stu-1?sessionId=sess-1&periodId=term-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}
	withParent(c)

	handler.StudentReportCard(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Bright_Future_College_Ada_Obi_Report.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, string(reportcard.LayoutFallback), w.Header().Get(LayoutHeader))
	assert.Equal(t, "%PDF-1.3", w.Body.String())
	assert.Equal(t, service.ReportCardRequest{StudentID: "stu-1", SessionID: "sess-1", PeriodID: "term-1"}, reports.req)
}

func TestReportCardHandlerStudentReportCardErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := NewReportCardHandler(&reportCardMock{err: appErrors.Clone(appErrors.ErrNoPublishedResults, "nothing published yet")}, nil)
	c, w := newGinContext(http.MethodGet, "/report-cards/students/stu-1", nil)
	withParent(c)
	handler.StudentReportCard(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	handler = NewReportCardHandler(&reportCardMock{err: errors.New("boom")}, nil)
	c, w = newGinContext(http.MethodGet, "/report-cards/students/stu-1", nil)
	withParent(c)
	handler.StudentReportCard(c)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	c, w = newGinContext(http.MethodGet, "/report-cards/students/stu-1", nil)
	handler.StudentReportCard(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReportCardHandlerClassBroadsheetDefaultsToXLSX(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sheets := &broadsheetMock{sheet: &service.Broadsheet{Filename: "JSS1_A_Broadsheet.xlsx", ContentType: "application/octet-stream", Data: []byte("PK")}}
	handler := NewReportCardHandler(nil, sheets)

	c, w := newGinContext(http.MethodGet, "/report-cards/classes/class-1/broadsheet?sessionId=sess-1&periodId=term-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}
	withTeacher(c)

	handler.ClassBroadsheet(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.BroadsheetXLSX, sheets.req.Format)
	assert.Equal(t, "class-1", sheets.req.ClassID)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "JSS1_A_Broadsheet.xlsx")
}
