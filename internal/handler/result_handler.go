package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/export"
	"github.com/stemsi/exam-portal/internal/middleware"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/service"
	"github.com/stemsi/exam-portal/internal/validator"
)

// ResultHandler serves stored results to students and staff.
type ResultHandler struct {
	resultService *service.ResultService
	log           zerolog.Logger
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(resultService *service.ResultService, log zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		resultService: resultService,
		log:           log.With().Str("component", "result_handler").Logger(),
	}
}

// ListOwn godoc
// GET /api/v1/student/results
func (h *ResultHandler) ListOwn(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, perPage := pageParams(c)
	results, pagination, err := h.resultService.ListOwn(c.Request.Context(), claims.UserID, page, perPage)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, pagination)
}

// ListByExam godoc
// GET /api/v1/staff/exams/:id/results
func (h *ResultHandler) ListByExam(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, perPage := pageParams(c)
	results, pagination, err := h.resultService.ListByExam(c.Request.Context(), examID, page, perPage)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, pagination)
}

// GetResult godoc
// GET /api/v1/staff/results/:id
func (h *ResultHandler) GetResult(c *gin.Context) {
	resultID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	res, err := h.resultService.GetByID(c.Request.Context(), resultID)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": res})
}

// Regrade godoc
// PUT /api/v1/staff/results/:id/grade
// Overrides per-question scores and recomputes the total.
func (h *ResultHandler) Regrade(c *gin.Context) {
	resultID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.RegradeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.resultService.Regrade(c.Request.Context(), resultID, &req)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": res})
}

// Export godoc
// GET /api/v1/staff/exams/:id/results/export
// Streams every result of the exam as an .xlsx attachment.
func (h *ResultHandler) Export(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	data, name, err := h.resultService.Export(c.Request.Context(), examID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, export.ContentTypeXLSX, data)
}

func (h *ResultHandler) fail(c *gin.Context, err error) {
	status, code := mapError(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Result request failed")
	}
	response.Fail(c, status, code)
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	return page, perPage
}
