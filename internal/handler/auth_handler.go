package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/vozsegura-api/internal/models"
	appErrors "github.com/noah-isme/vozsegura-api/pkg/errors"
	"github.com/noah-isme/vozsegura-api/pkg/response"
)

type authService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	LoginAdmin(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	ChangePassword(ctx context.Context, principal *models.Principal, req models.ChangePasswordRequest) (*models.AuthResponse, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Register godoc
// @Summary Register an estudiante account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/registro [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid registration payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	mirrorSession(c, res)
	response.Created(c, "usuario registrado", res)
}

// Login godoc
// @Summary Authenticate estudiante or docente
// @Description Authenticate a usuario by email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	h.login(c, h.service.Login)
}

// LoginAdmin godoc
// @Summary Authenticate administrador
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/admin/login [post]
func (h *AuthHandler) LoginAdmin(c *gin.Context) {
	h.login(c, h.service.LoginAdmin)
}

func (h *AuthHandler) login(c *gin.Context, authenticate func(context.Context, models.LoginRequest) (*models.AuthResponse, error)) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := authenticate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	mirrorSession(c, res)
	response.JSON(c, http.StatusOK, res, nil)
}

// Me godoc
// @Summary Current principal
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.Mirror(c, "usuario", principal)
	response.JSON(c, http.StatusOK, principal, nil)
}

// ChangePassword godoc
// @Summary Change password
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ChangePasswordRequest true "Password payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/cambiar-password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid password payload"))
		return
	}

	res, err := h.service.ChangePassword(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	mirrorSession(c, res)
	response.Message(c, http.StatusOK, "password actualizado", res)
}

func mirrorSession(c *gin.Context, res *models.AuthResponse) {
	response.Mirror(c, "token", res.Token)
	response.Mirror(c, "usuario", res.Usuario)
}
