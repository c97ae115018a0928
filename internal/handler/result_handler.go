package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-result-engine/internal/models"
	"github.com/noah-isme/sma-result-engine/internal/service"
	appErrors "github.com/noah-isme/sma-result-engine/pkg/errors"
	"github.com/noah-isme/sma-result-engine/pkg/response"
)

type resultSubmitter interface {
	Submit(ctx context.Context, actor models.Actor, req service.SubmitResultRequest) (*models.Result, error)
	BatchSubmit(ctx context.Context, actor models.Actor, req service.BatchSubmitRequest) (*service.BatchResult, error)
	Publish(ctx context.Context, actor models.Actor, req service.PublishResultsRequest) (*service.PublishSummary, error)
}

type classRanker interface {
	ClassRanking(ctx context.Context, classID, sessionID, periodID string) (*models.ClassRanking, error)
}

// ResultHandler exposes result submission, publication and ranking endpoints.
type ResultHandler struct {
	results resultSubmitter
	ranking classRanker
}

// NewResultHandler constructs handler.
func NewResultHandler(results resultSubmitter, ranking classRanker) *ResultHandler {
	return &ResultHandler{results: results, ranking: ranking}
}

// Submit godoc
// @Summary Submit component scores for one result
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body service.SubmitResultRequest true "Result payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /results [post]
func (h *ResultHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SubmitResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	result, err := h.results.Submit(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Batch godoc
// @Summary Submit many results; each item is applied independently
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body service.BatchSubmitRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Success 207 {object} response.Envelope
// @Router /results/batch [post]
func (h *ResultHandler) Batch(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.BatchSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	report, err := h.results.BatchSubmit(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if report.FailureCount > 0 {
		status = http.StatusMultiStatus
	}
	response.JSON(c, status, report, map[string]interface{}{
		"success_count": report.SuccessCount,
		"failure_count": report.FailureCount,
	})
}

// Publish godoc
// @Summary Publish the results of a class for a period
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body service.PublishResultsRequest true "Publish scope"
// @Success 200 {object} response.Envelope
// @Router /results/publish [post]
func (h *ResultHandler) Publish(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.PublishResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	summary, err := h.results.Publish(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// Ranking godoc
// @Summary Class ranking for a session and period
// @Tags Results
// @Produce json
// @Param id path string true "Class ID"
// @Param sessionId query string true "Session ID"
// @Param periodId query string true "Period ID"
// @Success 200 {object} response.Envelope
// @Router /results/classes/{id}/ranking [get]
func (h *ResultHandler) Ranking(c *gin.Context) {
	sessionID := c.Query("sessionId")
	periodID := c.Query("periodId")
	if sessionID == "" || periodID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "sessionId and periodId required"))
		return
	}
	ranking, err := h.ranking.ClassRanking(c.Request.Context(), c.Param("id"), sessionID, periodID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ranking)
}
