package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sf10-api/internal/middleware"
	"github.com/noah-isme/sf10-api/internal/models"
	"github.com/noah-isme/sf10-api/internal/service"
	appErrors "github.com/noah-isme/sf10-api/pkg/errors"
	"github.com/noah-isme/sf10-api/pkg/response"
)

// SectionHandler exposes section management endpoints.
type SectionHandler struct {
	sections *service.SectionService
	exports  *service.ExportService
}

// NewSectionHandler constructs SectionHandler.
func NewSectionHandler(sections *service.SectionService, exports *service.ExportService) *SectionHandler {
	return &SectionHandler{sections: sections, exports: exports}
}

// List godoc
// @Summary List sections
// @Tags Sections
// @Produce json
// @Param grade query int false "Filter by grade level"
// @Param sy query int false "Filter by school year start"
// @Param teacher query string false "Filter by assigned teacher"
// @Success 200 {object} response.Envelope
// @Router /sections [get]
func (h *SectionHandler) List(c *gin.Context) {
	var filter models.SectionFilter
	if grade, err := strconv.Atoi(c.Query("grade")); err == nil {
		filter.GradeLevel = grade
	}
	if sy, err := strconv.Atoi(c.Query("sy")); err == nil {
		filter.SYStart = sy
	}
	filter.TeacherID = c.Query("teacher")

	sections, err := h.sections.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, nil)
}

// Get godoc
// @Summary Get a section
// @Tags Sections
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id} [get]
func (h *SectionHandler) Get(c *gin.Context) {
	section, err := h.sections.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// Create godoc
// @Summary Create a section
// @Tags Sections
// @Accept json
// @Produce json
// @Param payload body service.CreateSectionRequest true "Section payload"
// @Success 201 {object} response.Envelope
// @Router /sections [post]
func (h *SectionHandler) Create(c *gin.Context) {
	var req service.CreateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	section, err := h.sections.Create(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, section)
}

// Update godoc
// @Summary Update a section
// @Tags Sections
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body service.UpdateSectionRequest true "Section payload"
// @Success 200 {object} response.Envelope
// @Router /sections/{id} [put]
func (h *SectionHandler) Update(c *gin.Context) {
	var req service.UpdateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	section, err := h.sections.Update(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// AssignAdviser godoc
// @Summary Assign the section adviser
// @Tags Sections
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body service.AssignTeacherRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/adviser [post]
func (h *SectionHandler) AssignAdviser(c *gin.Context) {
	h.assign(c, h.sections.AssignAdviser)
}

// UnassignAdviser godoc
// @Summary Unassign the section adviser
// @Tags Sections
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body service.AssignTeacherRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/adviser [delete]
func (h *SectionHandler) UnassignAdviser(c *gin.Context) {
	h.assign(c, h.sections.UnassignAdviser)
}

// AssignSubjectTeacher godoc
// @Summary Assign a subject teacher to a learning area
// @Tags Sections
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body service.AssignTeacherRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/teacher [post]
func (h *SectionHandler) AssignSubjectTeacher(c *gin.Context) {
	h.assign(c, h.sections.AssignSubjectTeacher)
}

// UnassignSubjectTeacher godoc
// @Summary Unassign a subject teacher from a learning area
// @Tags Sections
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body service.AssignTeacherRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/teacher [delete]
func (h *SectionHandler) UnassignSubjectTeacher(c *gin.Context) {
	h.assign(c, h.sections.UnassignSubjectTeacher)
}

// RemoveStudent godoc
// @Summary Remove a student from the section
// @Tags Sections
// @Produce json
// @Param id path string true "Section ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/{studentId} [post]
func (h *SectionHandler) RemoveStudent(c *gin.Context) {
	section, err := h.sections.RemoveStudent(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// Delete godoc
// @Summary Delete a section
// @Tags Sections
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id} [delete]
func (h *SectionHandler) Delete(c *gin.Context) {
	section, err := h.sections.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// DownloadSF1 godoc
// @Summary Download the SF1 school register
// @Tags Downloads
// @Produce text/csv
// @Param id path string true "Section ID"
// @Success 200 {file} binary
// @Router /sections/{id}/downloads/sf1 [get]
func (h *SectionHandler) DownloadSF1(c *gin.Context) {
	result, err := h.exports.SF1(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

func (h *SectionHandler) assign(c *gin.Context, op func(ctx context.Context, claims *models.JWTClaims, sectionID string, req service.AssignTeacherRequest) (*models.Section, error)) {
	var req service.AssignTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	section, err := op(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}
