package models

import (
	"fmt"
	"time"
)

// ReportStatus is the lifecycle state of a denuncia.
type ReportStatus string

const (
	StatusRecibida  ReportStatus = "recibida"
	StatusEnProceso ReportStatus = "en_proceso"
	StatusResuelta  ReportStatus = "resuelta"
	StatusRechazada ReportStatus = "rechazada"
)

// reportTransitions lists the allowed next states for each status.
var reportTransitions = map[ReportStatus][]ReportStatus{
	StatusRecibida:  {StatusEnProceso, StatusRechazada},
	StatusEnProceso: {StatusResuelta, StatusRechazada},
	StatusResuelta:  {},
	StatusRechazada: {},
}

// Valid reports whether s is a known status.
func (s ReportStatus) Valid() bool {
	_, ok := reportTransitions[s]
	return ok
}

// Terminal reports whether no further transitions are allowed from s.
func (s ReportStatus) Terminal() bool {
	return s.Valid() && len(reportTransitions[s]) == 0
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	for _, candidate := range reportTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Severity ranks how serious a reported incident is.
type Severity string

const (
	SeverityBaja  Severity = "baja"
	SeverityMedia Severity = "media"
	SeverityAlta  Severity = "alta"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityBaja, SeverityMedia, SeverityAlta:
		return true
	}
	return false
}

// ReportCodePrefix prefixes every generated report code.
const ReportCodePrefix = "DEN-"

// FormatReportCode renders DEN-<yyyy><nnnnnn>.
func FormatReportCode(year int, seq int64) string {
	return fmt.Sprintf("%s%04d%06d", ReportCodePrefix, year, seq)
}

// Denuncia is a row of the denuncias table.
type Denuncia struct {
	ID                 int64        `db:"id" json:"id"`
	Codigo             string       `db:"codigo" json:"codigo"`
	Tipo               string       `db:"tipo" json:"tipo"`
	Descripcion        string       `db:"descripcion" json:"descripcion"`
	FechaIncidente     Date         `db:"fecha_incidente" json:"fecha"`
	Gravedad           Severity     `db:"gravedad" json:"gravedad"`
	Estado             ReportStatus `db:"estado" json:"estado"`
	FacultadID         int64        `db:"facultad_id" json:"facultad_id"`
	UsuarioID          *int64       `db:"usuario_id" json:"usuario_id,omitempty"`
	Anonima            bool         `db:"anonima" json:"anonima"`
	FechaCreacion      time.Time    `db:"fecha_creacion" json:"fecha_creacion"`
	FechaActualizacion time.Time    `db:"fecha_actualizacion" json:"fecha_actualizacion"`
}

// OwnedBy reports whether the usuario with the given id owns the report.
func (d *Denuncia) OwnedBy(usuarioID int64) bool {
	return d.UsuarioID != nil && *d.UsuarioID == usuarioID
}

// DenunciaResumen is a denuncia joined with its owner and faculty display fields.
type DenunciaResumen struct {
	Denuncia
	UsuarioNombre     *string `db:"usuario_nombre" json:"usuario_nombre,omitempty"`
	UsuarioEmail      *string `db:"usuario_email" json:"usuario_email,omitempty"`
	FacultadNombre    string  `db:"facultad_nombre" json:"facultad_nombre"`
	InstitucionNombre string  `db:"institucion_nombre" json:"institucion_nombre"`
	InstitucionCiudad *string `db:"institucion_ciudad" json:"institucion_ciudad,omitempty"`
}

// DenunciaDetail is the full report view with its child collections.
type DenunciaDetail struct {
	DenunciaResumen
	Archivos    []Archivo     `json:"archivos"`
	Seguimiento []Seguimiento `json:"seguimiento"`
	Atenciones  []Atencion    `json:"atenciones"`
	Recursos    []Recurso     `json:"recursos"`
}

// Redacted returns a copy without owner identity, for lookups by code.
func (d *DenunciaDetail) Redacted() *DenunciaDetail {
	clone := *d
	clone.UsuarioID = nil
	clone.UsuarioNombre = nil
	clone.UsuarioEmail = nil
	return &clone
}

// DenunciaFilter narrows report listings; all set fields must match.
type DenunciaFilter struct {
	Estado     *ReportStatus
	Gravedad   *Severity
	FacultadID *int64
	Limite     int
}

// Seguimiento is an append-only status change entry.
type Seguimiento struct {
	ID             int64         `db:"id" json:"id"`
	DenunciaID     int64         `db:"denuncia_id" json:"denuncia_id"`
	EstadoAnterior *ReportStatus `db:"estado_anterior" json:"estado_anterior,omitempty"`
	EstadoNuevo    ReportStatus  `db:"estado_nuevo" json:"estado_nuevo"`
	Comentario     *string       `db:"comentario" json:"comentario,omitempty"`
	ActorID        int64         `db:"actor_id" json:"actor_id"`
	ActorRol       Role          `db:"actor_rol" json:"actor_rol"`
	ActorNombre    *string       `db:"actor_nombre" json:"actor_nombre,omitempty"`
	Fecha          time.Time     `db:"fecha" json:"fecha"`
}

// Modalidad is the channel through which an attention was delivered.
type Modalidad string

const (
	ModalidadPresencial Modalidad = "presencial"
	ModalidadVirtual    Modalidad = "virtual"
	ModalidadTelefonica Modalidad = "telefonica"
)

// Atencion records an administrator's intervention on a report.
type Atencion struct {
	ID           int64     `db:"id" json:"id"`
	DenunciaID   int64     `db:"denuncia_id" json:"denuncia_id"`
	AdminID      int64     `db:"admin_id" json:"admin_id"`
	AdminNombre  *string   `db:"admin_nombre" json:"admin_nombre,omitempty"`
	TipoAtencion string    `db:"tipo_atencion" json:"tipo_atencion"`
	Modalidad    Modalidad `db:"modalidad" json:"modalidad"`
	Descripcion  string    `db:"descripcion" json:"descripcion"`
	Fecha        time.Time `db:"fecha" json:"fecha"`
}

// Archivo is evidence attached to a report.
type Archivo struct {
	ID          int64     `db:"id" json:"id"`
	DenunciaID  int64     `db:"denuncia_id" json:"denuncia_id"`
	Nombre      string    `db:"nombre" json:"nombre"`
	Tipo        string    `db:"tipo" json:"tipo"`
	Ruta        string    `db:"ruta" json:"-"`
	TamanoBytes int64     `db:"tamano_bytes" json:"tamano_bytes"`
	FechaSubida time.Time `db:"fecha_subida" json:"fecha_subida"`
	URL         string    `db:"-" json:"url,omitempty"`
}

// Estadisticas aggregates report counts per status.
type Estadisticas struct {
	TotalDenuncias int64 `db:"total_denuncias" json:"total_denuncias"`
	Recibidas      int64 `db:"recibidas" json:"recibidas"`
	EnProceso      int64 `db:"en_proceso" json:"en_proceso"`
	Resueltas      int64 `db:"resueltas" json:"resueltas"`
	Rechazadas     int64 `db:"rechazadas" json:"rechazadas"`
	TotalUsuarios  int64 `db:"total_usuarios" json:"total_usuarios"`
}

// StatusChange describes a status transition requested by a reviewer.
type StatusChange struct {
	DenunciaID int64
	From       ReportStatus
	To         ReportStatus
	ActorID    int64
	ActorRol   Role
	Comentario *string
}
