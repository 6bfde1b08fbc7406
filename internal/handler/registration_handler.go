package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unicampus/registrar-api/internal/models"
	"github.com/unicampus/registrar-api/internal/service"
	appErrors "github.com/unicampus/registrar-api/pkg/errors"
	"github.com/unicampus/registrar-api/pkg/response"
)

// RegistrationHandler exposes enrollment endpoints.
type RegistrationHandler struct {
	registrations *service.RegistrationService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registrations *service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations}
}

// bindEnrollRequest decodes the payload and pins the student id to the
// caller's own student number unless the caller is an administrator.
func bindEnrollRequest(c *gin.Context) (service.EnrollRequest, error) {
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
	}
	claims := currentClaims(c)
	if claims != nil && claims.Role != models.RoleAdministrator {
		req.StudentID = claims.StudentNumber
	}
	return req, nil
}

// Enroll godoc
// @Summary Enroll a student in a course
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body service.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /registrations [post]
func (h *RegistrationHandler) Enroll(c *gin.Context) {
	req, err := bindEnrollRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	reg, err := h.registrations.Enroll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reg)
}

// Drop godoc
// @Summary Drop a course
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body service.EnrollRequest true "Drop payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /registrations/drop [post]
func (h *RegistrationHandler) Drop(c *gin.Context) {
	req, err := bindEnrollRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	reg, err := h.registrations.Drop(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reg, nil)
}

// ReEnroll godoc
// @Summary Reverse a drop
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body service.EnrollRequest true "Re-enroll payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /registrations/re-enroll [post]
func (h *RegistrationHandler) ReEnroll(c *gin.Context) {
	req, err := bindEnrollRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	reg, err := h.registrations.ReEnroll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reg, nil)
}

// Get godoc
// @Summary Get a registration
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /registrations/{id} [get]
func (h *RegistrationHandler) Get(c *gin.Context) {
	reg, err := h.registrations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	claims := currentClaims(c)
	if claims != nil && claims.Role != models.RoleAdministrator && reg.StudentID != claims.StudentNumber {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	response.JSON(c, http.StatusOK, reg, nil)
}

// SetStatus godoc
// @Summary Override a registration's status
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param payload body service.StatusUpdateRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /registrations/{id}/status [put]
func (h *RegistrationHandler) SetStatus(c *gin.Context) {
	var req service.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	reg, err := h.registrations.SetStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reg, nil)
}

// SetGrade godoc
// @Summary Record a grade
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param payload body service.GradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /registrations/{id}/grade [put]
func (h *RegistrationHandler) SetGrade(c *gin.Context) {
	var req service.GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	reg, err := h.registrations.SetGrade(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reg, nil)
}

// AddNote godoc
// @Summary Append a note
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param payload body service.NoteRequest true "Note payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /registrations/{id}/notes [post]
func (h *RegistrationHandler) AddNote(c *gin.Context) {
	var req service.NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	reg, err := h.registrations.AddNote(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reg, nil)
}

// ForStudent godoc
// @Summary List a student's registrations
// @Tags Registrations
// @Produce json
// @Param studentId path string true "Student number"
// @Param active query bool false "Only active registrations"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{studentId}/registrations [get]
func (h *RegistrationHandler) ForStudent(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	regs, err := h.registrations.ForStudent(c.Request.Context(), c.Param("studentId"), activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, regs, nil)
}

// Timetable godoc
// @Summary A student's weekly timetable
// @Tags Registrations
// @Produce json
// @Param studentId path string true "Student number"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{studentId}/timetable [get]
func (h *RegistrationHandler) Timetable(c *gin.Context) {
	entries, err := h.registrations.Timetable(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// ForCourse godoc
// @Summary List a course's registrations
// @Tags Registrations
// @Produce json
// @Param id path string true "Course ID"
// @Param active query bool false "Only active registrations"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/registrations [get]
func (h *RegistrationHandler) ForCourse(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	regs, err := h.registrations.ForCourse(c.Request.Context(), c.Param("id"), activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, regs, nil)
}
