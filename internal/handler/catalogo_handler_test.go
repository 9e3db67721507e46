package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/vozsegura-api/internal/dto"
	"github.com/noah-isme/vozsegura-api/internal/middleware"
	"github.com/noah-isme/vozsegura-api/internal/models"
	appErrors "github.com/noah-isme/vozsegura-api/pkg/errors"
)

type catalogoServiceMock struct {
	facultades []models.Facultad
	hit        bool
	recurso    *models.Recurso
	created    dto.FacultadRequest
	err        error
}

func (m *catalogoServiceMock) ListInstituciones(context.Context) ([]models.Institucion, bool, error) {
	return []models.Institucion{{ID: 1, Nombre: "Universidad Central"}}, m.hit, m.err
}

func (m *catalogoServiceMock) GetInstitucion(_ context.Context, id int64) (*models.Institucion, error) {
	return &models.Institucion{ID: id}, m.err
}

func (m *catalogoServiceMock) ListFacultadesByInstitucion(context.Context, int64) ([]models.Facultad, bool, error) {
	return m.facultades, m.hit, m.err
}

func (m *catalogoServiceMock) CreateInstitucion(_ context.Context, _ *models.Principal, req dto.InstitucionRequest) (*models.Institucion, error) {
	return &models.Institucion{ID: 2, Nombre: req.Nombre}, m.err
}

func (m *catalogoServiceMock) UpdateInstitucion(_ context.Context, _ *models.Principal, id int64, req dto.InstitucionRequest) (*models.Institucion, error) {
	return &models.Institucion{ID: id, Nombre: req.Nombre}, m.err
}

func (m *catalogoServiceMock) ListFacultades(context.Context) ([]models.Facultad, bool, error) {
	return m.facultades, m.hit, m.err
}

func (m *catalogoServiceMock) GetFacultad(_ context.Context, id int64) (*models.Facultad, error) {
	return &models.Facultad{ID: id}, m.err
}

func (m *catalogoServiceMock) FacultadStatistics(_ context.Context, id int64) (*models.FacultadEstadisticas, error) {
	return &models.FacultadEstadisticas{FacultadID: id}, m.err
}

func (m *catalogoServiceMock) CreateFacultad(_ context.Context, _ *models.Principal, req dto.FacultadRequest) (*models.Facultad, error) {
	m.created = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Facultad{ID: 9, InstitucionID: req.InstitucionID, Nombre: req.Nombre, Activa: true}, nil
}

func (m *catalogoServiceMock) UpdateFacultad(_ context.Context, _ *models.Principal, id int64, req dto.FacultadRequest) (*models.Facultad, error) {
	return &models.Facultad{ID: id, Nombre: req.Nombre}, m.err
}

func (m *catalogoServiceMock) ListRecursos(context.Context) ([]models.Recurso, bool, error) {
	return []models.Recurso{}, m.hit, m.err
}

func (m *catalogoServiceMock) GetRecurso(context.Context, int64) (*models.Recurso, error) {
	return m.recurso, m.err
}

func (m *catalogoServiceMock) CreateRecurso(_ context.Context, _ *models.Principal, req dto.RecursoRequest) (*models.Recurso, error) {
	return &models.Recurso{ID: 3, Titulo: req.Titulo}, m.err
}

func (m *catalogoServiceMock) UpdateRecurso(_ context.Context, _ *models.Principal, id int64, req dto.RecursoRequest) (*models.Recurso, error) {
	return &models.Recurso{ID: id, Titulo: req.Titulo}, m.err
}

func TestCatalogoHandlerListFacultadesReportsCacheHit(t *testing.T) {
	svc := &catalogoServiceMock{facultades: []models.Facultad{{ID: 1, Nombre: "Ingeniería"}}, hit: true}
	handler := NewCatalogoHandler(svc)

	c, w := newJSONContext(http.MethodGet, "/catalogo/facultades", nil)
	handler.ListFacultades(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Contains(t, w.Body.String(), "Ingeniería")
}

func TestCatalogoHandlerGetRecursoNotFound(t *testing.T) {
	handler := NewCatalogoHandler(&catalogoServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "recurso not found")})

	c, w := newJSONContext(http.MethodGet, "/catalogo/recursos/4", nil)
	c.Params = gin.Params{{Key: "id", Value: "4"}}

	handler.GetRecurso(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCatalogoHandlerCreateFacultad(t *testing.T) {
	svc := &catalogoServiceMock{}
	handler := NewCatalogoHandler(svc)

	c, w := newJSONContext(http.MethodPost, "/catalogo/facultades", []byte(`{"institucion_id":1,"nombre":"Derecho"}`))
	c.Set(middleware.ContextPrincipalKey, &models.Principal{ID: 1, Role: models.RoleAdmin})

	handler.CreateFacultad(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Derecho", svc.created.Nombre)
	assert.Nil(t, svc.created.Activa)
}

func TestCatalogoHandlerUpdateInstitucionInvalidID(t *testing.T) {
	handler := NewCatalogoHandler(&catalogoServiceMock{})

	c, w := newJSONContext(http.MethodPut, "/catalogo/instituciones/0", []byte(`{"nombre":"X"}`))
	c.Params = gin.Params{{Key: "id", Value: "0"}}

	handler.UpdateInstitucion(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCatalogoHandlerWriteForbidden(t *testing.T) {
	handler := NewCatalogoHandler(&catalogoServiceMock{err: appErrors.ErrForbidden})

	c, w := newJSONContext(http.MethodPost, "/catalogo/recursos", []byte(`{"titulo":"Línea de ayuda"}`))
	c.Set(middleware.ContextPrincipalKey, &models.Principal{ID: 3, Role: models.RoleDocente})

	handler.CreateRecurso(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
