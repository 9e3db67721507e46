package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/vozsegura-api/internal/dto"
	"github.com/noah-isme/vozsegura-api/internal/middleware"
	"github.com/noah-isme/vozsegura-api/internal/models"
	"github.com/noah-isme/vozsegura-api/pkg/response"
)

type catalogoService interface {
	ListInstituciones(ctx context.Context) ([]models.Institucion, bool, error)
	GetInstitucion(ctx context.Context, id int64) (*models.Institucion, error)
	ListFacultadesByInstitucion(ctx context.Context, institucionID int64) ([]models.Facultad, bool, error)
	CreateInstitucion(ctx context.Context, principal *models.Principal, req dto.InstitucionRequest) (*models.Institucion, error)
	UpdateInstitucion(ctx context.Context, principal *models.Principal, id int64, req dto.InstitucionRequest) (*models.Institucion, error)
	ListFacultades(ctx context.Context) ([]models.Facultad, bool, error)
	GetFacultad(ctx context.Context, id int64) (*models.Facultad, error)
	FacultadStatistics(ctx context.Context, id int64) (*models.FacultadEstadisticas, error)
	CreateFacultad(ctx context.Context, principal *models.Principal, req dto.FacultadRequest) (*models.Facultad, error)
	UpdateFacultad(ctx context.Context, principal *models.Principal, id int64, req dto.FacultadRequest) (*models.Facultad, error)
	ListRecursos(ctx context.Context) ([]models.Recurso, bool, error)
	GetRecurso(ctx context.Context, id int64) (*models.Recurso, error)
	CreateRecurso(ctx context.Context, principal *models.Principal, req dto.RecursoRequest) (*models.Recurso, error)
	UpdateRecurso(ctx context.Context, principal *models.Principal, id int64, req dto.RecursoRequest) (*models.Recurso, error)
}

// CatalogoHandler serves instituciones, facultades and recursos.
type CatalogoHandler struct {
	service catalogoService
}

// NewCatalogoHandler constructs a CatalogoHandler.
func NewCatalogoHandler(svc catalogoService) *CatalogoHandler {
	return &CatalogoHandler{service: svc}
}

// ListInstituciones godoc
// @Summary List institutions
// @Tags Catalogo
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalogo/instituciones [get]
func (h *CatalogoHandler) ListInstituciones(c *gin.Context) {
	items, hit, err := h.service.ListInstituciones(c.Request.Context())
	respondCachedList(c, items, hit, err)
}

// GetInstitucion godoc
// @Summary Institution detail
// @Tags Catalogo
// @Produce json
// @Param id path int true "Institution ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /catalogo/instituciones/{id} [get]
func (h *CatalogoHandler) GetInstitucion(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.service.GetInstitucion(c.Request.Context(), id)
	respondItem(c, item, err)
}

// ListFacultadesByInstitucion godoc
// @Summary Faculties of an institution
// @Tags Catalogo
// @Produce json
// @Param id path int true "Institution ID"
// @Success 200 {object} response.Envelope
// @Router /catalogo/instituciones/{id}/facultades [get]
func (h *CatalogoHandler) ListFacultadesByInstitucion(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	items, hit, err := h.service.ListFacultadesByInstitucion(c.Request.Context(), id)
	respondCachedList(c, items, hit, err)
}

// CreateInstitucion godoc
// @Summary Create an institution
// @Tags Catalogo
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.InstitucionRequest true "Institution"
// @Success 201 {object} response.Envelope
// @Router /catalogo/instituciones [post]
func (h *CatalogoHandler) CreateInstitucion(c *gin.Context) {
	var req dto.InstitucionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid institucion payload"))
		return
	}
	item, err := h.service.CreateInstitucion(c.Request.Context(), principalFromContext(c), req)
	respondCreated(c, "institución creada", item, err)
}

// UpdateInstitucion godoc
// @Summary Update an institution
// @Tags Catalogo
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Institution ID"
// @Param payload body dto.InstitucionRequest true "Institution"
// @Success 200 {object} response.Envelope
// @Router /catalogo/instituciones/{id} [put]
func (h *CatalogoHandler) UpdateInstitucion(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.InstitucionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid institucion payload"))
		return
	}
	item, err := h.service.UpdateInstitucion(c.Request.Context(), principalFromContext(c), id, req)
	respondItem(c, item, err)
}

// ListFacultades godoc
// @Summary List active faculties
// @Tags Catalogo
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalogo/facultades [get]
func (h *CatalogoHandler) ListFacultades(c *gin.Context) {
	items, hit, err := h.service.ListFacultades(c.Request.Context())
	respondCachedList(c, items, hit, err)
}

// GetFacultad godoc
// @Summary Faculty detail
// @Tags Catalogo
// @Produce json
// @Param id path int true "Faculty ID"
// @Success 200 {object} response.Envelope
// @Router /catalogo/facultades/{id} [get]
func (h *CatalogoHandler) GetFacultad(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.service.GetFacultad(c.Request.Context(), id)
	respondItem(c, item, err)
}

// FacultadStatistics godoc
// @Summary Report counts of a faculty
// @Tags Catalogo
// @Produce json
// @Security BearerAuth
// @Param id path int true "Faculty ID"
// @Success 200 {object} response.Envelope
// @Router /catalogo/facultades/{id}/estadisticas [get]
func (h *CatalogoHandler) FacultadStatistics(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	stats, err := h.service.FacultadStatistics(c.Request.Context(), id)
	respondItem(c, stats, err)
}

// CreateFacultad godoc
// @Summary Create a faculty
// @Tags Catalogo
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.FacultadRequest true "Faculty"
// @Success 201 {object} response.Envelope
// @Router /catalogo/facultades [post]
func (h *CatalogoHandler) CreateFacultad(c *gin.Context) {
	var req dto.FacultadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid facultad payload"))
		return
	}
	item, err := h.service.CreateFacultad(c.Request.Context(), principalFromContext(c), req)
	respondCreated(c, "facultad creada", item, err)
}

// UpdateFacultad godoc
// @Summary Update a faculty
// @Tags Catalogo
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Faculty ID"
// @Param payload body dto.FacultadRequest true "Faculty"
// @Success 200 {object} response.Envelope
// @Router /catalogo/facultades/{id} [put]
func (h *CatalogoHandler) UpdateFacultad(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.FacultadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid facultad payload"))
		return
	}
	item, err := h.service.UpdateFacultad(c.Request.Context(), principalFromContext(c), id, req)
	respondItem(c, item, err)
}

// ListRecursos godoc
// @Summary List active help resources
// @Tags Catalogo
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalogo/recursos [get]
func (h *CatalogoHandler) ListRecursos(c *gin.Context) {
	items, hit, err := h.service.ListRecursos(c.Request.Context())
	respondCachedList(c, items, hit, err)
}

// GetRecurso godoc
// @Summary Help resource detail
// @Tags Catalogo
// @Produce json
// @Param id path int true "Resource ID"
// @Success 200 {object} response.Envelope
// @Router /catalogo/recursos/{id} [get]
func (h *CatalogoHandler) GetRecurso(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.service.GetRecurso(c.Request.Context(), id)
	respondItem(c, item, err)
}

// CreateRecurso godoc
// @Summary Create a help resource
// @Tags Catalogo
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.RecursoRequest true "Resource"
// @Success 201 {object} response.Envelope
// @Router /catalogo/recursos [post]
func (h *CatalogoHandler) CreateRecurso(c *gin.Context) {
	var req dto.RecursoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid recurso payload"))
		return
	}
	item, err := h.service.CreateRecurso(c.Request.Context(), principalFromContext(c), req)
	respondCreated(c, "recurso creado", item, err)
}

// UpdateRecurso godoc
// @Summary Update a help resource
// @Tags Catalogo
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Resource ID"
// @Param payload body dto.RecursoRequest true "Resource"
// @Success 200 {object} response.Envelope
// @Router /catalogo/recursos/{id} [put]
func (h *CatalogoHandler) UpdateRecurso(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.RecursoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid recurso payload"))
		return
	}
	item, err := h.service.UpdateRecurso(c.Request.Context(), principalFromContext(c), id, req)
	respondItem(c, item, err)
}

func respondCachedList(c *gin.Context, items interface{}, hit bool, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, items, nil, middleware.ExtractMeta(c))
}

func respondItem(c *gin.Context, item interface{}, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

func respondCreated(c *gin.Context, message string, item interface{}, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, message, item)
}
