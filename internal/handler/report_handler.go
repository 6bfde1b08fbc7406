package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unicampus/registrar-api/internal/service"
	"github.com/unicampus/registrar-api/pkg/response"
)

// ReportHandler exposes admin reporting endpoints.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Statistics godoc
// @Summary Registration statistics
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/statistics [get]
func (h *ReportHandler) Statistics(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.reports.Statistics(c.Request.Context()), nil)
}

// CourseSummary godoc
// @Summary Per-course enrollment summary
// @Tags Reports
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/courses/{id} [get]
func (h *ReportHandler) CourseSummary(c *gin.Context) {
	summary, err := h.reports.CourseSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// SystemMetrics godoc
// @Summary Runtime metrics snapshot
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/system [get]
func (h *ReportHandler) SystemMetrics(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.reports.SystemMetrics(c.Request.Context()), nil)
}

// Export godoc
// @Summary Export registrations
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string true "csv or pdf"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /reports/registrations/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	result, err := h.reports.ExportRegistrations(c.Request.Context(), c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+result.FileName)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
