package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/vozsegura-api/internal/dto"
	"github.com/noah-isme/vozsegura-api/internal/models"
	appErrors "github.com/noah-isme/vozsegura-api/pkg/errors"
)

type fakeCatalogoRepo struct {
	instituciones map[int64]*models.Institucion
	facultades    map[int64]*models.Facultad
	recursos      map[int64]*models.Recurso
	listCalls     int
}

func newFakeCatalogoRepo() *fakeCatalogoRepo {
	return &fakeCatalogoRepo{
		instituciones: map[int64]*models.Institucion{1: {ID: 1, Nombre: "Universidad Central"}},
		facultades: map[int64]*models.Facultad{
			3: {ID: 3, InstitucionID: 1, Nombre: "Ingeniería", Activa: true, InstitucionNombre: "Universidad Central"},
			4: {ID: 4, InstitucionID: 1, Nombre: "Arquitectura", Activa: false, InstitucionNombre: "Universidad Central"},
		},
		recursos: map[int64]*models.Recurso{1: {ID: 1, Titulo: "Línea de apoyo", Activo: true}},
	}
}

func (f *fakeCatalogoRepo) ListInstituciones(context.Context) ([]models.Institucion, error) {
	out := []models.Institucion{}
	for _, item := range f.instituciones {
		out = append(out, *item)
	}
	return out, nil
}

func (f *fakeCatalogoRepo) FindInstitucion(_ context.Context, id int64) (*models.Institucion, error) {
	if item, ok := f.instituciones[id]; ok {
		clone := *item
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCatalogoRepo) CreateInstitucion(_ context.Context, item *models.Institucion) error {
	item.ID = int64(len(f.instituciones) + 1)
	f.instituciones[item.ID] = item
	return nil
}

func (f *fakeCatalogoRepo) UpdateInstitucion(_ context.Context, item *models.Institucion) error {
	if _, ok := f.instituciones[item.ID]; !ok {
		return sql.ErrNoRows
	}
	f.instituciones[item.ID] = item
	return nil
}

func (f *fakeCatalogoRepo) ListFacultadesByInstitucion(_ context.Context, institucionID int64) ([]models.Facultad, error) {
	out := []models.Facultad{}
	for _, item := range f.facultades {
		if item.InstitucionID == institucionID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (f *fakeCatalogoRepo) ListFacultadesActivas(context.Context) ([]models.Facultad, error) {
	f.listCalls++
	out := []models.Facultad{}
	for _, item := range f.facultades {
		if item.Activa {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (f *fakeCatalogoRepo) FindFacultad(_ context.Context, id int64) (*models.Facultad, error) {
	if item, ok := f.facultades[id]; ok {
		clone := *item
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCatalogoRepo) CreateFacultad(_ context.Context, item *models.Facultad) error {
	item.ID = int64(len(f.facultades) + 10)
	f.facultades[item.ID] = item
	return nil
}

func (f *fakeCatalogoRepo) UpdateFacultad(_ context.Context, item *models.Facultad) error {
	if _, ok := f.facultades[item.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *item
	f.facultades[item.ID] = &clone
	return nil
}

func (f *fakeCatalogoRepo) FacultadStatistics(_ context.Context, id int64) (*models.FacultadEstadisticas, error) {
	item, ok := f.facultades[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.FacultadEstadisticas{FacultadID: id, FacultadNombre: item.Nombre, TotalDenuncias: 2, Recibidas: 2}, nil
}

func (f *fakeCatalogoRepo) ListRecursosActivos(context.Context) ([]models.Recurso, error) {
	out := []models.Recurso{}
	for _, item := range f.recursos {
		if item.Activo {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (f *fakeCatalogoRepo) FindRecurso(_ context.Context, id int64) (*models.Recurso, error) {
	if item, ok := f.recursos[id]; ok {
		clone := *item
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCatalogoRepo) CreateRecurso(_ context.Context, item *models.Recurso) error {
	item.ID = int64(len(f.recursos) + 1)
	f.recursos[item.ID] = item
	return nil
}

func (f *fakeCatalogoRepo) UpdateRecurso(_ context.Context, item *models.Recurso) error {
	if _, ok := f.recursos[item.ID]; !ok {
		return sql.ErrNoRows
	}
	f.recursos[item.ID] = item
	return nil
}

func newCatalogoFixture() (*CatalogoService, *fakeCatalogoRepo, *fakeAuditWriter) {
	repo := newFakeCatalogoRepo()
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, zap.NewNop())
	audit := &fakeAuditWriter{}
	return NewCatalogoService(repo, cache, audit, nil, zap.NewNop(), time.Minute), repo, audit
}

func boolPtr(v bool) *bool { return &v }

func TestCatalogoServiceListFacultadesCachesAndInvalidates(t *testing.T) {
	svc, repo, _ := newCatalogoFixture()
	ctx := context.Background()

	items, hit, err := svc.ListFacultades(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, items, 1)
	assert.Equal(t, "Ingeniería", items[0].Nombre)

	_, hit, err = svc.ListFacultades(ctx)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, repo.listCalls)

	_, err = svc.UpdateFacultad(ctx, admin(1), 4, dto.FacultadRequest{InstitucionID: 1, Nombre: "Arquitectura", Activa: boolPtr(true)})
	require.NoError(t, err)

	items, hit, err = svc.ListFacultades(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, items, 2)
}

func TestCatalogoServiceUpdateFacultadKeepsActiveFlagWhenOmitted(t *testing.T) {
	svc, _, audit := newCatalogoFixture()

	item, err := svc.UpdateFacultad(context.Background(), admin(1), 3, dto.FacultadRequest{InstitucionID: 1, Nombre: " Ingeniería Civil "})
	require.NoError(t, err)
	assert.Equal(t, "Ingeniería Civil", item.Nombre)
	assert.True(t, item.Activa)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionCatalogWrite, audit.logs[0].Accion)
}

func TestCatalogoServiceCreateFacultadRequiresInstitucion(t *testing.T) {
	svc, _, _ := newCatalogoFixture()

	_, err := svc.CreateFacultad(context.Background(), admin(1), dto.FacultadRequest{InstitucionID: 9, Nombre: "Medicina"})
	assertCode(t, err, appErrors.ErrNotFound)

	item, err := svc.CreateFacultad(context.Background(), admin(1), dto.FacultadRequest{InstitucionID: 1, Nombre: "Medicina"})
	require.NoError(t, err)
	assert.True(t, item.Activa)
}

func TestCatalogoServiceWritesRequireAdmin(t *testing.T) {
	svc, _, _ := newCatalogoFixture()

	_, err := svc.CreateInstitucion(context.Background(), docente(2), dto.InstitucionRequest{Nombre: "Otra"})
	assertCode(t, err, appErrors.ErrForbidden)

	_, err = svc.CreateInstitucion(context.Background(), admin(1), dto.InstitucionRequest{})
	assertCode(t, err, appErrors.ErrValidation)
}

func TestCatalogoServiceRecursos(t *testing.T) {
	svc, _, _ := newCatalogoFixture()
	ctx := context.Background()

	url := "https://apoyo.example.org"
	created, err := svc.CreateRecurso(ctx, admin(1), dto.RecursoRequest{Titulo: "Guía", URL: &url, Activo: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, created.Activo)

	items, _, err := svc.ListRecursos(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	bad := "not a url"
	_, err = svc.CreateRecurso(ctx, admin(1), dto.RecursoRequest{Titulo: "Guía", URL: &bad})
	assertCode(t, err, appErrors.ErrValidation)

	_, err = svc.GetRecurso(ctx, 42)
	assertCode(t, err, appErrors.ErrNotFound)
}

func TestCatalogoServiceFacultadesByInstitucionAndStatistics(t *testing.T) {
	svc, _, _ := newCatalogoFixture()
	ctx := context.Background()

	items, _, err := svc.ListFacultadesByInstitucion(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, _, err = svc.ListFacultadesByInstitucion(ctx, 9)
	assertCode(t, err, appErrors.ErrNotFound)

	stats, err := svc.FacultadStatistics(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalDenuncias)

	_, err = svc.FacultadStatistics(ctx, 99)
	assertCode(t, err, appErrors.ErrNotFound)
}
