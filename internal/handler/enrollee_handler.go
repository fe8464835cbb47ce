package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sf10-api/internal/middleware"
	"github.com/noah-isme/sf10-api/internal/service"
	appErrors "github.com/noah-isme/sf10-api/pkg/errors"
	"github.com/noah-isme/sf10-api/pkg/response"
)

// EnrolleeHandler exposes enrollment endpoints.
type EnrolleeHandler struct {
	enrollees *service.EnrolleeService
}

// NewEnrolleeHandler constructs EnrolleeHandler.
func NewEnrolleeHandler(enrollees *service.EnrolleeService) *EnrolleeHandler {
	return &EnrolleeHandler{enrollees: enrollees}
}

// Enroll godoc
// @Summary Enroll a learner
// @Tags Enrollees
// @Accept json
// @Produce json
// @Param payload body service.EnrollRequest true "Enrollee payload"
// @Success 201 {object} response.Envelope
// @Router /enroll [post]
func (h *EnrolleeHandler) Enroll(c *gin.Context) {
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollee, err := h.enrollees.Enroll(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollee)
}

// Unenroll godoc
// @Summary Remove an enrollee by LRN
// @Tags Enrollees
// @Produce json
// @Param lrn path int true "Learner reference number"
// @Success 200 {object} response.Envelope
// @Router /enroll/{lrn} [delete]
func (h *EnrolleeHandler) Unenroll(c *gin.Context) {
	lrn, err := strconv.ParseInt(c.Param("lrn"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "learner reference number must be numeric"))
		return
	}
	enrollee, err := h.enrollees.Unenroll(c.Request.Context(), middleware.CurrentUser(c), lrn)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollee, nil)
}
