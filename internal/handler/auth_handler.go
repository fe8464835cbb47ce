package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sf10-api/internal/middleware"
	"github.com/noah-isme/sf10-api/internal/models"
	"github.com/noah-isme/sf10-api/internal/service"
	appErrors "github.com/noah-isme/sf10-api/pkg/errors"
	"github.com/noah-isme/sf10-api/pkg/response"
)

// AuthHandler exposes login and logout endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login godoc
// @Summary Authenticate a teacher
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Router /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("x-auth-token", result.Token)
	response.JSON(c, http.StatusOK, result, nil)
}

// Logout godoc
// @Summary Record a logout
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /login [delete]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.auth.Logout(c.Request.Context(), middleware.CurrentUser(c))
	response.JSON(c, http.StatusOK, gin.H{"message": "logged out"}, nil)
}
