package service

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/vozsegura-api/internal/models"
	appErrors "github.com/noah-isme/vozsegura-api/pkg/errors"
	"github.com/noah-isme/vozsegura-api/pkg/export"
)

// Supported export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var denunciaExportHeaders = []string{
	"codigo", "fecha_creacion", "fecha", "tipo", "gravedad", "estado",
	"facultad", "institucion", "denunciante", "descripcion",
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult is a rendered file ready to be streamed.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders report listings as CSV or PDF.
type ExportService struct {
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter(true)
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{csv: csv, pdf: pdf, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Denuncias renders the given reports in format.
func (s *ExportService) Denuncias(items []models.DenunciaResumen, format string) (*ExportResult, error) {
	if format == "" {
		format = ExportFormatCSV
	}
	dataset := denunciaDataset(items)
	stamp := s.now().Format("20060102-150405")

	var (
		data        []byte
		err         error
		contentType string
	)
	switch format {
	case ExportFormatCSV:
		data, err = s.csv.Render(dataset)
		contentType = "text/csv; charset=utf-8"
	case ExportFormatPDF:
		data, err = s.pdf.Render(dataset, "Denuncias")
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Internal(err, "render export")
	}

	s.logger.Info("denuncias exported", zap.String("format", format), zap.Int("rows", len(items)))
	return &ExportResult{
		Filename:    fmt.Sprintf("denuncias-%s.%s", stamp, format),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func denunciaDataset(items []models.DenunciaResumen) export.Dataset {
	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		denunciante := "Anónimo"
		if item.UsuarioNombre != nil {
			denunciante = *item.UsuarioNombre
		} else if item.UsuarioID != nil {
			denunciante = "#" + strconv.FormatInt(*item.UsuarioID, 10)
		}
		rows = append(rows, map[string]string{
			"codigo":         item.Codigo,
			"fecha_creacion": item.FechaCreacion.Format(time.RFC3339),
			"fecha":          item.FechaIncidente.String(),
			"tipo":           item.Tipo,
			"gravedad":       string(item.Gravedad),
			"estado":         string(item.Estado),
			"facultad":       item.FacultadNombre,
			"institucion":    item.InstitucionNombre,
			"denunciante":    denunciante,
			"descripcion":    item.Descripcion,
		})
	}
	return export.Dataset{Headers: denunciaExportHeaders, Rows: rows}
}
