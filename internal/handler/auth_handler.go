package handler

import (
	"net/http"

	"medi-kart/internal/model"
	"medi-kart/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AuthHandler handles registration, login and profile requests.
type AuthHandler struct {
	service service.AccountService
	logger  zerolog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(service service.AccountService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("handler", "auth").Logger(),
	}
}

// Register godoc
// @Summary Register an account
// @Tags auth
// @Accept json
// @Produce json
// @Param input body model.RegisterRequest true "Account details"
// @Success 201 {object} model.Response{data=model.AuthResponse}
// @Failure 400 {object} model.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err, h.logger)
		return
	}

	resp, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err, h.logger)
		return
	}

	writeData(c, http.StatusCreated, "User registered successfully", resp)
}

// Login godoc
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param input body model.LoginRequest true "Credentials"
// @Success 200 {object} model.Response{data=model.AuthResponse}
// @Failure 401 {object} model.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err, h.logger)
		return
	}

	resp, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err, h.logger)
		return
	}

	writeData(c, http.StatusOK, "Login successful", resp)
}

// Profile godoc
// @Summary Current user's profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Response{data=model.User}
// @Failure 401 {object} model.ErrorResponse
// @Router /auth/profile [get]
func (h *AuthHandler) Profile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	user, err := h.service.Profile(c.Request.Context(), p)
	if err != nil {
		writeError(c, err, h.logger)
		return
	}

	writeData(c, http.StatusOK, "", user)
}
