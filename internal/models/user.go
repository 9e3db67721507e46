package models

import "time"

// Role is the closed set of principal roles.
type Role string

const (
	RoleEstudiante Role = "estudiante"
	RoleDocente    Role = "docente"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleEstudiante, RoleDocente, RoleAdmin:
		return true
	}
	return false
}

// IsAdmin reports whether the role belongs to the administradores table.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Usuario is an estudiante or docente account stored in usuarios.
type Usuario struct {
	ID                 int64     `db:"id" json:"id"`
	Nombre             string    `db:"nombre" json:"nombre"`
	Email              string    `db:"email" json:"email"`
	PasswordHash       string    `db:"password_hash" json:"-"`
	Rol                Role      `db:"rol" json:"rol"`
	Activo             bool      `db:"activo" json:"activo"`
	FechaRegistro      time.Time `db:"fecha_registro" json:"fecha_registro"`
	FechaActualizacion time.Time `db:"fecha_actualizacion" json:"fecha_actualizacion"`
}

// Principal returns the identity carried through the request context.
func (u *Usuario) Principal() Principal {
	return Principal{ID: u.ID, Email: u.Email, Nombre: u.Nombre, Role: u.Rol}
}

// Administrador is an operator account stored in administradores.
type Administrador struct {
	ID                 int64     `db:"id" json:"id"`
	Nombre             string    `db:"nombre" json:"nombre"`
	Email              string    `db:"email" json:"email"`
	PasswordHash       string    `db:"password_hash" json:"-"`
	Activo             bool      `db:"activo" json:"activo"`
	FechaCreacion      time.Time `db:"fecha_creacion" json:"fecha_creacion"`
	FechaActualizacion time.Time `db:"fecha_actualizacion" json:"fecha_actualizacion"`
}

func (a *Administrador) Principal() Principal {
	return Principal{ID: a.ID, Email: a.Email, Nombre: a.Nombre, Role: RoleAdmin}
}

// Principal is the resolved caller of a request.
type Principal struct {
	ID     int64  `json:"id"`
	Email  string `json:"email"`
	Nombre string `json:"nombre"`
	Role   Role   `json:"rol"`
}

// UsuarioFilter captures filtering criteria for listing usuarios.
type UsuarioFilter struct {
	Rol      *Role
	Activo   *bool
	Search   string
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
