package dto

import "github.com/noah-isme/vozsegura-api/internal/models"

// CreateDenunciaRequest captures POST /denuncias. Anonymity is derived from
// the caller and any client supplied flag is ignored.
type CreateDenunciaRequest struct {
	Tipo        string          `json:"tipo" validate:"required,max=100"`
	Descripcion string          `json:"descripcion" validate:"required,min=10"`
	Fecha       string          `json:"fecha" validate:"required,datetime=2006-01-02"`
	Gravedad    models.Severity `json:"gravedad" validate:"omitempty,oneof=baja media alta"`
	FacultadID  int64           `json:"facultad_id" validate:"required,gt=0"`
}

// CreateDenunciaResponse is returned after filing a report; the code is the
// only handle an anonymous reporter gets.
type CreateDenunciaResponse struct {
	Codigo   string           `json:"codigo"`
	Denuncia *models.Denuncia `json:"denuncia"`
}

// UpdateDenunciaRequest changes the editable fields; omitted fields are kept.
type UpdateDenunciaRequest struct {
	Tipo        *string          `json:"tipo" validate:"omitempty,min=1,max=100"`
	Descripcion *string          `json:"descripcion" validate:"omitempty,min=10"`
	Fecha       *string          `json:"fecha" validate:"omitempty,datetime=2006-01-02"`
	Gravedad    *models.Severity `json:"gravedad" validate:"omitempty,oneof=baja media alta"`
	FacultadID  *int64           `json:"facultad_id" validate:"omitempty,gt=0"`
}

// UpdateEstadoRequest captures PUT /denuncias/:id/estado.
type UpdateEstadoRequest struct {
	Estado     models.ReportStatus `json:"estado" validate:"required,oneof=recibida en_proceso resuelta rechazada"`
	Comentario string              `json:"comentario" validate:"max=2000"`
}

// AsignarRecursosRequest replaces the resources assigned to a report.
type AsignarRecursosRequest struct {
	RecursosIDs []int64 `json:"recursos_ids" validate:"required,dive,gt=0"`
}

// AtencionRequest records an administrator's intervention.
type AtencionRequest struct {
	TipoAtencion string           `json:"tipo_atencion" validate:"required,max=100"`
	Modalidad    models.Modalidad `json:"modalidad" validate:"omitempty,oneof=presencial virtual telefonica"`
	Descripcion  string           `json:"descripcion" validate:"required"`
}

// DenunciaListQuery holds list filters from the query string.
type DenunciaListQuery struct {
	Estado     string `form:"estado" validate:"omitempty,oneof=recibida en_proceso resuelta rechazada"`
	Gravedad   string `form:"gravedad" validate:"omitempty,oneof=baja media alta"`
	FacultadID int64  `form:"facultad_id" validate:"omitempty,gt=0"`
	Limite     int    `form:"limite" validate:"omitempty,gt=0"`
	Formato    string `form:"formato" validate:"omitempty,oneof=csv pdf"`
}

// ArchivoResponse describes a stored attachment and its download link.
type ArchivoResponse struct {
	Archivo   *models.Archivo `json:"archivo"`
	URL       string          `json:"url"`
	ExpiresAt string          `json:"expires_at"`
}
