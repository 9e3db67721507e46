package dto

import "github.com/noah-isme/vozsegura-api/internal/models"

// UsuarioListQuery holds filters for GET /usuarios.
type UsuarioListQuery struct {
	Rol      string `form:"rol" validate:"omitempty,oneof=estudiante docente"`
	Activo   *bool  `form:"activo"`
	Search   string `form:"q"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// UpdateUsuarioRequest changes the role or the active flag of a usuario.
type UpdateUsuarioRequest struct {
	Rol    *models.Role `json:"rol" validate:"omitempty,oneof=estudiante docente"`
	Activo *bool        `json:"activo"`
}
