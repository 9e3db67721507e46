package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/vozsegura-api/internal/dto"
	"github.com/noah-isme/vozsegura-api/internal/middleware"
	"github.com/noah-isme/vozsegura-api/internal/models"
	"github.com/noah-isme/vozsegura-api/internal/service"
	"github.com/noah-isme/vozsegura-api/pkg/response"
)

type denunciaService interface {
	Create(ctx context.Context, principal *models.Principal, req dto.CreateDenunciaRequest) (*dto.CreateDenunciaResponse, error)
	GetByCode(ctx context.Context, codigo string) (*models.DenunciaDetail, error)
	Get(ctx context.Context, principal *models.Principal, id int64) (*models.DenunciaDetail, error)
	ListMine(ctx context.Context, principal *models.Principal) ([]models.DenunciaResumen, error)
	List(ctx context.Context, query dto.DenunciaListQuery) ([]models.DenunciaResumen, error)
	TransitionStatus(ctx context.Context, principal *models.Principal, id int64, req dto.UpdateEstadoRequest) (*models.Seguimiento, error)
	Update(ctx context.Context, principal *models.Principal, id int64, req dto.UpdateDenunciaRequest) (*models.DenunciaDetail, error)
	AssignResources(ctx context.Context, principal *models.Principal, id int64, req dto.AsignarRecursosRequest) (*models.DenunciaDetail, error)
	RecordAttention(ctx context.Context, principal *models.Principal, id int64, req dto.AtencionRequest) (*models.Atencion, error)
	Delete(ctx context.Context, principal *models.Principal, id int64) error
	Statistics(ctx context.Context) (*models.Estadisticas, bool, error)
	Export(ctx context.Context, query dto.DenunciaListQuery) (*service.ExportResult, error)
}

type attachmentLinker interface {
	SignLinks(archivos []models.Archivo)
}

// DenunciaHandler exposes report endpoints.
type DenunciaHandler struct {
	service denunciaService
	links   attachmentLinker
}

// NewDenunciaHandler constructs a DenunciaHandler. links may be nil.
func NewDenunciaHandler(svc denunciaService, links attachmentLinker) *DenunciaHandler {
	return &DenunciaHandler{service: svc, links: links}
}

// Create godoc
// @Summary File a report
// @Description Anonymous when no valid token is sent
// @Tags Denuncias
// @Accept json
// @Produce json
// @Param payload body dto.CreateDenunciaRequest true "Report payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /denuncias [post]
func (h *DenunciaHandler) Create(c *gin.Context) {
	var req dto.CreateDenunciaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid denuncia payload"))
		return
	}
	res, err := h.service.Create(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Mirror(c, "codigo", res.Codigo)
	response.Mirror(c, "denuncia", res.Denuncia)
	response.Created(c, "denuncia registrada", res)
}

// GetByCode godoc
// @Summary Look up a report by its public code
// @Tags Denuncias
// @Produce json
// @Param codigo path string true "Report code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /denuncias/consultar/{codigo} [get]
func (h *DenunciaHandler) GetByCode(c *gin.Context) {
	detail, err := h.service.GetByCode(c.Request.Context(), c.Param("codigo"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Mirror(c, "denuncia", detail)
	response.JSON(c, http.StatusOK, detail, nil)
}

// Get godoc
// @Summary Report detail
// @Tags Denuncias
// @Produce json
// @Security BearerAuth
// @Param id path int true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /denuncias/{id} [get]
func (h *DenunciaHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.service.Get(c.Request.Context(), principalFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.links != nil {
		h.links.SignLinks(detail.Archivos)
	}
	response.Mirror(c, "denuncia", detail)
	response.JSON(c, http.StatusOK, detail, nil)
}

// ListMine godoc
// @Summary Reports filed by the caller
// @Tags Denuncias
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /denuncias/mis-denuncias [get]
func (h *DenunciaHandler) ListMine(c *gin.Context) {
	items, err := h.service.ListMine(c.Request.Context(), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	mirrorList(c, items)
	response.JSON(c, http.StatusOK, items, nil)
}

// List godoc
// @Summary List reports
// @Tags Denuncias
// @Produce json
// @Security BearerAuth
// @Param estado query string false "Status"
// @Param gravedad query string false "Severity"
// @Param facultad_id query int false "Faculty"
// @Param limite query int false "Max rows (<= 500)"
// @Success 200 {object} response.Envelope
// @Router /denuncias [get]
func (h *DenunciaHandler) List(c *gin.Context) {
	var query dto.DenunciaListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid filters"))
		return
	}
	items, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "total", len(items))
	mirrorList(c, items)
	response.JSON(c, http.StatusOK, items, nil, middleware.ExtractMeta(c))
}

// UpdateStatus godoc
// @Summary Move a report to a new status
// @Tags Denuncias
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Report ID"
// @Param payload body dto.UpdateEstadoRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /denuncias/{id}/estado [put]
func (h *DenunciaHandler) UpdateStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateEstadoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid status payload"))
		return
	}
	entry, err := h.service.TransitionStatus(c.Request.Context(), principalFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Mirror(c, "seguimiento", entry)
	response.Message(c, http.StatusOK, "estado actualizado", entry)
}

// Update godoc
// @Summary Edit a report
// @Tags Denuncias
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Report ID"
// @Param payload body dto.UpdateDenunciaRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /denuncias/{id} [put]
func (h *DenunciaHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateDenunciaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid denuncia payload"))
		return
	}
	detail, err := h.service.Update(c.Request.Context(), principalFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Mirror(c, "denuncia", detail)
	response.Message(c, http.StatusOK, "denuncia actualizada", detail)
}

// AssignResources godoc
// @Summary Replace the help resources of a report
// @Tags Denuncias
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Report ID"
// @Param payload body dto.AsignarRecursosRequest true "Resource IDs"
// @Success 200 {object} response.Envelope
// @Router /denuncias/{id}/recursos [post]
func (h *DenunciaHandler) AssignResources(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.AsignarRecursosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid recursos payload"))
		return
	}
	detail, err := h.service.AssignResources(c.Request.Context(), principalFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "recursos asignados", detail)
}

// RecordAttention godoc
// @Summary Record an intervention on a report
// @Tags Denuncias
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Report ID"
// @Param payload body dto.AtencionRequest true "Attention payload"
// @Success 201 {object} response.Envelope
// @Router /denuncias/{id}/atencion [post]
func (h *DenunciaHandler) RecordAttention(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.AtencionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid atencion payload"))
		return
	}
	atencion, err := h.service.RecordAttention(c.Request.Context(), principalFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "atención registrada", atencion)
}

// Delete godoc
// @Summary Delete a report
// @Tags Denuncias
// @Security BearerAuth
// @Param id path int true "Report ID"
// @Success 204
// @Router /denuncias/{id} [delete]
func (h *DenunciaHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), principalFromContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Statistics godoc
// @Summary Report counts per status
// @Tags Denuncias
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /denuncias/estadisticas/general [get]
func (h *DenunciaHandler) Statistics(c *gin.Context) {
	stats, cacheHit, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.Mirror(c, "estadisticas", stats)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export reports
// @Tags Denuncias
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param formato query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /denuncias/exportar [get]
func (h *DenunciaHandler) Export(c *gin.Context) {
	var query dto.DenunciaListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid filters"))
		return
	}
	result, err := h.service.Export(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

func mirrorList(c *gin.Context, items []models.DenunciaResumen) {
	response.Mirror(c, "total", len(items))
	response.Mirror(c, "denuncias", items)
}
