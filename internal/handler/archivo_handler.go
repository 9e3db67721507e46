package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/vozsegura-api/internal/dto"
	"github.com/noah-isme/vozsegura-api/internal/models"
	"github.com/noah-isme/vozsegura-api/internal/service"
	appErrors "github.com/noah-isme/vozsegura-api/pkg/errors"
	"github.com/noah-isme/vozsegura-api/pkg/response"
)

type attachmentService interface {
	Upload(ctx context.Context, principal *models.Principal, denunciaID int64, upload service.AttachmentUpload) (*dto.ArchivoResponse, error)
	Download(ctx context.Context, token string) (*service.AttachmentDownload, error)
}

// ArchivoHandler handles evidence uploads and signed downloads.
type ArchivoHandler struct {
	service attachmentService
}

// NewArchivoHandler constructs an ArchivoHandler.
func NewArchivoHandler(svc attachmentService) *ArchivoHandler {
	return &ArchivoHandler{service: svc}
}

// Upload godoc
// @Summary Attach evidence to a report
// @Tags Archivos
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param id path int true "Report ID"
// @Param archivo formData file true "Evidence file"
// @Success 201 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /denuncias/{id}/archivos [post]
func (h *ArchivoHandler) Upload(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	fileHeader, err := c.FormFile("archivo")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "archivo is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unable to read archivo"))
		return
	}
	defer file.Close() //nolint:errcheck

	res, err := h.service.Upload(c.Request.Context(), principalFromContext(c), id, service.AttachmentUpload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Content:  file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "archivo subido", res)
}

// Download godoc
// @Summary Download evidence through a signed link
// @Tags Archivos
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /archivos/descargar/{token} [get]
func (h *ArchivoHandler) Download(c *gin.Context) {
	result, err := h.service.Download(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, result.SizeBytes, result.MimeType, result.File, nil)
}
