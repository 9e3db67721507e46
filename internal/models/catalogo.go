package models

import "time"

// Institucion groups faculties.
type Institucion struct {
	ID            int64     `db:"id" json:"id"`
	Nombre        string    `db:"nombre" json:"nombre"`
	Ciudad        *string   `db:"ciudad" json:"ciudad,omitempty"`
	FechaCreacion time.Time `db:"fecha_creacion" json:"fecha_creacion"`
}

// Facultad is the organisational unit a report is attributed to.
type Facultad struct {
	ID                int64     `db:"id" json:"id"`
	InstitucionID     int64     `db:"institucion_id" json:"institucion_id"`
	Nombre            string    `db:"nombre" json:"nombre"`
	Activa            bool      `db:"activa" json:"activa"`
	FechaCreacion     time.Time `db:"fecha_creacion" json:"fecha_creacion"`
	InstitucionNombre string    `db:"institucion_nombre" json:"institucion_nombre,omitempty"`
	Ciudad            *string   `db:"ciudad" json:"ciudad,omitempty"`
}

// FacultadEstadisticas summarises reports filed against one faculty.
type FacultadEstadisticas struct {
	FacultadID        int64  `db:"facultad_id" json:"facultad_id"`
	FacultadNombre    string `db:"facultad_nombre" json:"facultad_nombre"`
	InstitucionNombre string `db:"institucion_nombre" json:"institucion_nombre"`
	TotalDenuncias    int64  `db:"total_denuncias" json:"total_denuncias"`
	Recibidas         int64  `db:"recibidas" json:"recibidas"`
	EnProceso         int64  `db:"en_proceso" json:"en_proceso"`
	Resueltas         int64  `db:"resueltas" json:"resueltas"`
	Rechazadas        int64  `db:"rechazadas" json:"rechazadas"`
}

// Recurso is a help resource that can be assigned to reports.
type Recurso struct {
	ID            int64     `db:"id" json:"id"`
	Titulo        string    `db:"titulo" json:"titulo"`
	Descripcion   *string   `db:"descripcion" json:"descripcion,omitempty"`
	URL           *string   `db:"url" json:"url,omitempty"`
	Activo        bool      `db:"activo" json:"activo"`
	FechaCreacion time.Time `db:"fecha_creacion" json:"fecha_creacion"`
}
