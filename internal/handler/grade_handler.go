package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/coursemark/coursemark-api/internal/service"
	appErrors "github.com/coursemark/coursemark-api/pkg/errors"
	"github.com/coursemark/coursemark-api/pkg/response"
)

// GradeHandler exposes grade projection endpoints.
type GradeHandler struct {
	grades *service.GradeService
	export *service.ExportService
}

// NewGradeHandler constructs handler.
func NewGradeHandler(grades *service.GradeService, export *service.ExportService) *GradeHandler {
	return &GradeHandler{grades: grades, export: export}
}

// Overall godoc
// @Summary Current overall grade for an enrollment
// @Tags Grades
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/{id}/grade [get]
func (h *GradeHandler) Overall(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	grade, err := h.grades.OverallGrade(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// RequiredMark godoc
// @Summary Mark needed on the last remaining assessment to hit a target
// @Tags Grades
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param target query number false "Target overall grade (defaults to the pass mark)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/{id}/required-mark [get]
func (h *GradeHandler) RequiredMark(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	target := 0.0
	if raw := c.Query("target"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "target must be a number"))
			return
		}
		target = parsed
	}
	result, err := h.grades.RequiredMark(c.Request.Context(), claims.UserID, c.Param("id"), target)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ExportSummary godoc
// @Summary Export the caller's grade summary
// @Tags Grades
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Security BearerAuth
// @Router /grades/summary/export [get]
func (h *GradeHandler) ExportSummary(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.export.GradeSummary(c.Request.Context(), claims.UserID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+result.FileName)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
