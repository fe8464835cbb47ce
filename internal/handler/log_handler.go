package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sf10-api/internal/middleware"
	"github.com/noah-isme/sf10-api/internal/service"
	"github.com/noah-isme/sf10-api/pkg/response"
)

// LogHandler exposes the audit trail endpoints.
type LogHandler struct {
	audits *service.AuditService
}

// NewLogHandler constructs LogHandler.
func NewLogHandler(audits *service.AuditService) *LogHandler {
	return &LogHandler{audits: audits}
}

// Recent godoc
// @Summary List the most recent audit entries
// @Tags Logs
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /logs [get]
func (h *LogHandler) Recent(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	name := ""
	if claims != nil {
		name = claims.Name
	}
	entries, err := h.audits.ListRecent(c.Request.Context(), name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Own godoc
// @Summary List the account's own audit entries
// @Tags Logs
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} response.Envelope
// @Router /logs/{id} [get]
func (h *LogHandler) Own(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	name := ""
	if claims != nil {
		name = claims.Name
	}
	entries, err := h.audits.ListOwn(c.Request.Context(), c.Param("id"), name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
