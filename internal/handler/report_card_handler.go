package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-result-engine/internal/models"
	"github.com/noah-isme/sma-result-engine/internal/service"
	appErrors "github.com/noah-isme/sma-result-engine/pkg/errors"
	"github.com/noah-isme/sma-result-engine/pkg/response"
)

// LayoutHeader tells clients whether the school template or the generic layout was used.
const LayoutHeader = "X-Report-Layout"

type reportCardGenerator interface {
	Generate(ctx context.Context, actor models.Actor, req service.ReportCardRequest) (*service.ReportCard, error)
}

type broadsheetExporter interface {
	Export(ctx context.Context, actor models.Actor, req service.BroadsheetRequest) (*service.Broadsheet, error)
}

// ReportCardHandler serves rendered report cards and class broadsheets.
type ReportCardHandler struct {
	reports     reportCardGenerator
	broadsheets broadsheetExporter
}

// NewReportCardHandler constructs handler.
func NewReportCardHandler(reports reportCardGenerator, broadsheets broadsheetExporter) *ReportCardHandler {
	return &ReportCardHandler{reports: reports, broadsheets: broadsheets}
}

// StudentReportCard godoc
// @Summary Download a student's report card
// @Tags ReportCards
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Param sessionId query string true "Session ID"
// @Param periodId query string true "Period ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /report-cards/students/{id} [get]
func (h *ReportCardHandler) StudentReportCard(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	req := service.ReportCardRequest{
		StudentID: c.Param("id"),
		SessionID: c.Query("sessionId"),
		PeriodID:  c.Query("periodId"),
	}
	card, err := h.reports.Generate(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header(LayoutHeader, string(card.Layout))
	response.Attachment(c, card.Filename, card.ContentType, card.Data)
}

// ClassBroadsheet godoc
// @Summary Download the result broadsheet of a class
// @Tags ReportCards
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce text/csv
// @Param id path string true "Class ID"
// @Param sessionId query string true "Session ID"
// @Param periodId query string true "Period ID"
// @Param format query string false "xlsx or csv"
// @Success 200 {file} file
// @Router /report-cards/classes/{id}/broadsheet [get]
func (h *ReportCardHandler) ClassBroadsheet(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	req := service.BroadsheetRequest{
		ClassID:   c.Param("id"),
		SessionID: c.Query("sessionId"),
		PeriodID:  c.Query("periodId"),
		Format:    c.DefaultQuery("format", service.BroadsheetXLSX),
	}
	sheet, err := h.broadsheets.Export(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, sheet.Filename, sheet.ContentType, sheet.Data)
}
