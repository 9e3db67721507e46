package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/vozsegura-api/internal/dto"
	"github.com/noah-isme/vozsegura-api/internal/models"
	"github.com/noah-isme/vozsegura-api/pkg/response"
)

type usuarioService interface {
	List(ctx context.Context, query dto.UsuarioListQuery) ([]models.Usuario, *models.Pagination, error)
	Get(ctx context.Context, id int64) (*models.Usuario, error)
	Update(ctx context.Context, principal *models.Principal, id int64, req dto.UpdateUsuarioRequest) (*models.Usuario, error)
}

// UsuarioHandler exposes admin user management.
type UsuarioHandler struct {
	service usuarioService
}

// NewUsuarioHandler constructs a UsuarioHandler.
func NewUsuarioHandler(svc usuarioService) *UsuarioHandler {
	return &UsuarioHandler{service: svc}
}

// List godoc
// @Summary List usuarios
// @Tags Usuarios
// @Produce json
// @Security BearerAuth
// @Param rol query string false "estudiante or docente"
// @Param activo query bool false "Active flag"
// @Param q query string false "Name or email search"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /usuarios [get]
func (h *UsuarioHandler) List(c *gin.Context) {
	var query dto.UsuarioListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid filters"))
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Usuario detail
// @Tags Usuarios
// @Produce json
// @Security BearerAuth
// @Param id path int true "Usuario ID"
// @Success 200 {object} response.Envelope
// @Router /usuarios/{id} [get]
func (h *UsuarioHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	usuario, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, usuario, nil)
}

// Update godoc
// @Summary Change role or active flag of a usuario
// @Tags Usuarios
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Usuario ID"
// @Param payload body dto.UpdateUsuarioRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /usuarios/{id} [patch]
func (h *UsuarioHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateUsuarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid usuario payload"))
		return
	}
	usuario, err := h.service.Update(c.Request.Context(), principalFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "usuario actualizado", usuario)
}
