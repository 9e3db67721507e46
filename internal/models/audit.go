package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin            = "LOGIN"
	AuditActionRegister         = "REGISTER"
	AuditActionPasswordChange   = "PASSWORD_CHANGE"
	AuditActionUserUpdate       = "USER_UPDATE"
	AuditActionReportUpdate     = "DENUNCIA_UPDATE"
	AuditActionReportStatus     = "DENUNCIA_ESTADO"
	AuditActionReportDelete     = "DENUNCIA_DELETE"
	AuditActionReportResources  = "DENUNCIA_RECURSOS"
	AuditActionReportAttention  = "DENUNCIA_ATENCION"
	AuditActionCatalogWrite     = "CATALOGO_WRITE"
	AuditActionAttachmentUpload = "ARCHIVO_UPLOAD"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID        string    `db:"id" json:"id"`
	ActorID   *int64    `db:"actor_id" json:"actor_id,omitempty"`
	ActorRol  *Role     `db:"actor_rol" json:"actor_rol,omitempty"`
	Accion    string    `db:"accion" json:"accion"`
	Recurso   string    `db:"recurso" json:"recurso"`
	RecursoID *string   `db:"recurso_id" json:"recurso_id,omitempty"`
	Valores   []byte    `db:"valores" json:"valores,omitempty"`
	IPAddress string    `db:"ip_address" json:"ip_address"`
	UserAgent string    `db:"user_agent" json:"user_agent"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
