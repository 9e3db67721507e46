package dto

// InstitucionRequest creates or updates an institution.
type InstitucionRequest struct {
	Nombre string  `json:"nombre" validate:"required,max=200"`
	Ciudad *string `json:"ciudad" validate:"omitempty,max=100"`
}

// FacultadRequest creates or updates a faculty. Activa defaults to true on create.
type FacultadRequest struct {
	InstitucionID int64  `json:"institucion_id" validate:"required,gt=0"`
	Nombre        string `json:"nombre" validate:"required,max=200"`
	Activa        *bool  `json:"activa"`
}

// RecursoRequest creates or updates a help resource.
type RecursoRequest struct {
	Titulo      string  `json:"titulo" validate:"required,max=200"`
	Descripcion *string `json:"descripcion"`
	URL         *string `json:"url" validate:"omitempty,url"`
	Activo      *bool   `json:"activo"`
}
