package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/vozsegura-api/internal/dto"
	"github.com/noah-isme/vozsegura-api/internal/models"
	"github.com/noah-isme/vozsegura-api/internal/repository"
	appErrors "github.com/noah-isme/vozsegura-api/pkg/errors"
)

var serviceNow = time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)

type fakeDenunciaRepo struct {
	items       map[int64]*models.DenunciaDetail
	nextID      int64
	collisions  int
	createCalls int
	filters     []models.DenunciaFilter
	resources   map[int64][]int64
	attentions  []*models.Atencion
	staleUpdate bool
	stats       *models.Estadisticas
	statsCalls  int
}

func newFakeDenunciaRepo(items ...*models.DenunciaDetail) *fakeDenunciaRepo {
	repo := &fakeDenunciaRepo{items: map[int64]*models.DenunciaDetail{}, nextID: 1, resources: map[int64][]int64{}}
	for _, item := range items {
		repo.items[item.ID] = item
		if item.ID >= repo.nextID {
			repo.nextID = item.ID + 1
		}
	}
	return repo
}

func (f *fakeDenunciaRepo) Create(_ context.Context, denuncia *models.Denuncia) error {
	f.createCalls++
	if f.collisions > 0 {
		f.collisions--
		return &pq.Error{Code: "23505", Constraint: repository.ReportCodeConstraint}
	}
	denuncia.ID = f.nextID
	denuncia.Codigo = models.FormatReportCode(serviceNow.Year(), f.nextID)
	denuncia.Estado = models.StatusRecibida
	f.nextID++
	f.items[denuncia.ID] = &models.DenunciaDetail{DenunciaResumen: models.DenunciaResumen{Denuncia: *denuncia}}
	return nil
}

func (f *fakeDenunciaRepo) FindByID(_ context.Context, id int64) (*models.DenunciaDetail, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *item
	return &clone, nil
}

func (f *fakeDenunciaRepo) FindIDByCode(_ context.Context, codigo string) (int64, error) {
	for id, item := range f.items {
		if item.Codigo == codigo {
			return id, nil
		}
	}
	return 0, sql.ErrNoRows
}

func (f *fakeDenunciaRepo) ListByOwner(_ context.Context, usuarioID int64) ([]models.DenunciaResumen, error) {
	out := []models.DenunciaResumen{}
	for _, item := range f.items {
		if item.OwnedBy(usuarioID) {
			out = append(out, item.DenunciaResumen)
		}
	}
	return out, nil
}

func (f *fakeDenunciaRepo) List(_ context.Context, filter models.DenunciaFilter) ([]models.DenunciaResumen, error) {
	f.filters = append(f.filters, filter)
	out := []models.DenunciaResumen{}
	for _, item := range f.items {
		if filter.Estado != nil && item.Estado != *filter.Estado {
			continue
		}
		out = append(out, item.DenunciaResumen)
	}
	return out, nil
}

func (f *fakeDenunciaRepo) UpdateStatus(_ context.Context, change models.StatusChange) (*models.Seguimiento, error) {
	item, ok := f.items[change.DenunciaID]
	if !ok || item.Estado != change.From || f.staleUpdate {
		return nil, repository.ErrStaleState
	}
	item.Estado = change.To
	from := change.From
	entry := models.Seguimiento{ID: int64(len(item.Seguimiento) + 1), DenunciaID: change.DenunciaID, EstadoAnterior: &from,
		EstadoNuevo: change.To, Comentario: change.Comentario, ActorID: change.ActorID, ActorRol: change.ActorRol}
	item.Seguimiento = append([]models.Seguimiento{entry}, item.Seguimiento...)
	return &entry, nil
}

func (f *fakeDenunciaRepo) Update(_ context.Context, denuncia *models.Denuncia) error {
	item, ok := f.items[denuncia.ID]
	if !ok {
		return sql.ErrNoRows
	}
	item.Tipo = denuncia.Tipo
	item.Descripcion = denuncia.Descripcion
	item.FechaIncidente = denuncia.FechaIncidente
	item.Gravedad = denuncia.Gravedad
	item.FacultadID = denuncia.FacultadID
	return nil
}

func (f *fakeDenunciaRepo) ReplaceResources(_ context.Context, denunciaID int64, recursoIDs []int64) error {
	f.resources[denunciaID] = recursoIDs
	return nil
}

func (f *fakeDenunciaRepo) RecordAttention(_ context.Context, atencion *models.Atencion) error {
	atencion.ID = int64(len(f.attentions) + 1)
	if atencion.Modalidad == "" {
		atencion.Modalidad = models.ModalidadVirtual
	}
	f.attentions = append(f.attentions, atencion)
	return nil
}

func (f *fakeDenunciaRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.items, id)
	return nil
}

func (f *fakeDenunciaRepo) Statistics(context.Context) (*models.Estadisticas, error) {
	f.statsCalls++
	if f.stats == nil {
		return &models.Estadisticas{}, nil
	}
	return f.stats, nil
}

type fakeCatalog struct {
	facultades map[int64]*models.Facultad
	recursos   map[int64]bool
}

func (f fakeCatalog) FindFacultad(_ context.Context, id int64) (*models.Facultad, error) {
	if item, ok := f.facultades[id]; ok {
		return item, nil
	}
	return nil, sql.ErrNoRows
}

func (f fakeCatalog) CountActiveRecursos(_ context.Context, ids []int64) (int, error) {
	total := 0
	for _, id := range ids {
		if f.recursos[id] {
			total++
		}
	}
	return total, nil
}

type fakeFileRemover struct {
	removed []string
}

func (f *fakeFileRemover) Delete(filename string) error {
	f.removed = append(f.removed, filename)
	return nil
}

type memoryCacheRepo struct {
	mu          sync.Mutex
	values      map[string][]byte
	invalidated []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{values: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.values {
		if strings.HasPrefix(key, prefix) {
			delete(m.values, key)
		}
	}
	return nil
}

func (m *memoryCacheRepo) Ping(context.Context) error { return nil }

type denunciaFixture struct {
	svc     *DenunciaService
	repo    *fakeDenunciaRepo
	files   *fakeFileRemover
	cache   *memoryCacheRepo
	audit   *fakeAuditWriter
	metrics *MetricsService
}

func newDenunciaFixture(t *testing.T, strict bool, items ...*models.DenunciaDetail) denunciaFixture {
	t.Helper()
	repo := newFakeDenunciaRepo(items...)
	catalog := fakeCatalog{
		facultades: map[int64]*models.Facultad{
			3: {ID: 3, Nombre: "Ingeniería", Activa: true},
			4: {ID: 4, Nombre: "Arquitectura", Activa: false},
			5: {ID: 5, Nombre: "Derecho", Activa: true},
		},
		recursos: map[int64]bool{1: true, 2: true},
	}
	files := &fakeFileRemover{}
	cacheRepo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	cache := NewCacheService(cacheRepo, metrics, time.Minute, zap.NewNop())
	audit := &fakeAuditWriter{}
	svc := NewDenunciaService(repo, catalog, files, nil, cache, nil, metrics, audit, nil, zap.NewNop(),
		DenunciaConfig{StrictTransitions: strict, MaxListLimit: 100})
	svc.now = func() time.Time { return serviceNow }
	return denunciaFixture{svc: svc, repo: repo, files: files, cache: cacheRepo, audit: audit, metrics: metrics}
}

func estudiante(id int64) *models.Principal {
	return &models.Principal{ID: id, Email: "e@uni.edu", Nombre: "Est", Role: models.RoleEstudiante}
}

func docente(id int64) *models.Principal {
	return &models.Principal{ID: id, Email: "d@uni.edu", Nombre: "Doc", Role: models.RoleDocente}
}

func admin(id int64) *models.Principal {
	return &models.Principal{ID: id, Email: "a@uni.edu", Nombre: "Admin", Role: models.RoleAdmin}
}

func storedDenuncia(id int64, owner *int64, estado models.ReportStatus) *models.DenunciaDetail {
	nombre := "Ana"
	return &models.DenunciaDetail{DenunciaResumen: models.DenunciaResumen{
		Denuncia: models.Denuncia{
			ID: id, Codigo: models.FormatReportCode(2025, id), Tipo: "acoso", Descripcion: "Comentarios ofensivos",
			FechaIncidente: models.NewDate(serviceNow.AddDate(0, 0, -3)), Gravedad: models.SeverityMedia,
			Estado: estado, FacultadID: 3, UsuarioID: owner, Anonima: owner == nil,
		},
		UsuarioNombre: &nombre,
	}}
}

func validCreateRequest() dto.CreateDenunciaRequest {
	return dto.CreateDenunciaRequest{
		Tipo:        "acoso",
		Descripcion: "Comentarios ofensivos durante la clase",
		Fecha:       "2025-03-01",
		FacultadID:  3,
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestDenunciaServiceCreateAnonymous(t *testing.T) {
	f := newDenunciaFixture(t, true)

	res, err := f.svc.Create(context.Background(), nil, validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, "DEN-2025000001", res.Codigo)
	assert.True(t, res.Denuncia.Anonima)
	assert.Nil(t, res.Denuncia.UsuarioID)
	assert.Equal(t, models.SeverityMedia, res.Denuncia.Gravedad)
	assert.Equal(t, models.StatusRecibida, res.Denuncia.Estado)
	assert.Equal(t, uint64(1), f.metrics.Snapshot().ReportsCreated)
}

func TestDenunciaServiceCreateOwnedByUsuario(t *testing.T) {
	f := newDenunciaFixture(t, true)

	res, err := f.svc.Create(context.Background(), estudiante(8), validCreateRequest())
	require.NoError(t, err)
	assert.False(t, res.Denuncia.Anonima)
	require.NotNil(t, res.Denuncia.UsuarioID)
	assert.Equal(t, int64(8), *res.Denuncia.UsuarioID)
}

func TestDenunciaServiceCreateByAdminHasNoOwner(t *testing.T) {
	f := newDenunciaFixture(t, true)

	res, err := f.svc.Create(context.Background(), admin(1), validCreateRequest())
	require.NoError(t, err)
	assert.False(t, res.Denuncia.Anonima)
	assert.Nil(t, res.Denuncia.UsuarioID)
}

func TestDenunciaServiceCreateValidation(t *testing.T) {
	f := newDenunciaFixture(t, true)

	cases := map[string]func(*dto.CreateDenunciaRequest){
		"short description": func(r *dto.CreateDenunciaRequest) { r.Descripcion = "corta" },
		"missing tipo":      func(r *dto.CreateDenunciaRequest) { r.Tipo = "  " },
		"bad date":          func(r *dto.CreateDenunciaRequest) { r.Fecha = "01/03/2025" },
		"future date":       func(r *dto.CreateDenunciaRequest) { r.Fecha = "2025-03-05" },
		"bad gravedad":      func(r *dto.CreateDenunciaRequest) { r.Gravedad = "critica" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validCreateRequest()
			mutate(&req)
			_, err := f.svc.Create(context.Background(), nil, req)
			assertCode(t, err, appErrors.ErrValidation)
		})
	}
	assert.Zero(t, f.repo.createCalls)
}

func TestDenunciaServiceCreateTodayIsAllowed(t *testing.T) {
	f := newDenunciaFixture(t, true)

	req := validCreateRequest()
	req.Fecha = "2025-03-04"
	_, err := f.svc.Create(context.Background(), nil, req)
	assert.NoError(t, err)
}

func TestDenunciaServiceCreateMeasuresTodayInConfiguredZone(t *testing.T) {
	f := newDenunciaFixture(t, true)
	f.svc.config.Location = time.FixedZone("ECT", -5*60*60)
	// 21:00 on March 4th local time, already March 5th in UTC.
	f.svc.now = func() time.Time { return time.Date(2025, time.March, 5, 2, 0, 0, 0, time.UTC) }

	req := validCreateRequest()
	req.Fecha = "2025-03-05"
	_, err := f.svc.Create(context.Background(), nil, req)
	assertCode(t, err, appErrors.ErrValidation)

	req.Fecha = "2025-03-04"
	_, err = f.svc.Create(context.Background(), nil, req)
	assert.NoError(t, err)
}

func TestDenunciaServiceCreateRequiresActiveFacultad(t *testing.T) {
	f := newDenunciaFixture(t, true)

	for _, id := range []int64{4, 99} {
		req := validCreateRequest()
		req.FacultadID = id
		_, err := f.svc.Create(context.Background(), nil, req)
		assertCode(t, err, appErrors.ErrNotFound)
	}
}

func TestDenunciaServiceCreateRetriesCodeCollision(t *testing.T) {
	f := newDenunciaFixture(t, true)
	f.repo.collisions = 2

	res, err := f.svc.Create(context.Background(), nil, validCreateRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, res.Codigo)
	assert.Equal(t, 3, f.repo.createCalls)
}

func TestDenunciaServiceCreateGivesUpAfterThreeCollisions(t *testing.T) {
	f := newDenunciaFixture(t, true)
	f.repo.collisions = 5

	_, err := f.svc.Create(context.Background(), nil, validCreateRequest())
	assertCode(t, err, appErrors.ErrInternal)
	assert.Equal(t, 3, f.repo.createCalls)
}

func TestDenunciaServiceGetByCodeRedactsOwner(t *testing.T) {
	f := newDenunciaFixture(t, true, storedDenuncia(7, int64Ptr(8), models.StatusRecibida))

	detail, err := f.svc.GetByCode(context.Background(), " den-2025000007 ")
	require.NoError(t, err)
	assert.Equal(t, int64(7), detail.ID)
	assert.Nil(t, detail.UsuarioID)
	assert.Nil(t, detail.UsuarioNombre)

	_, err = f.svc.GetByCode(context.Background(), "DEN-2025999999")
	assertCode(t, err, appErrors.ErrNotFound)
}

func TestDenunciaServiceGetEnforcesOwnership(t *testing.T) {
	f := newDenunciaFixture(t, true, storedDenuncia(7, int64Ptr(8), models.StatusRecibida))
	ctx := context.Background()

	_, err := f.svc.Get(ctx, estudiante(8), 7)
	assert.NoError(t, err)

	_, err = f.svc.Get(ctx, admin(1), 7)
	assert.NoError(t, err)

	_, err = f.svc.Get(ctx, estudiante(9), 7)
	assertCode(t, err, appErrors.ErrForbidden)

	_, err = f.svc.Get(ctx, docente(10), 7)
	assertCode(t, err, appErrors.ErrForbidden)

	_, err = f.svc.Get(ctx, admin(1), 99)
	assertCode(t, err, appErrors.ErrNotFound)
}

func TestDenunciaServiceAdminIDNeverMatchesOwnership(t *testing.T) {
	// Admin ids come from a different table and may collide with usuario ids.
	f := newDenunciaFixture(t, true, storedDenuncia(7, int64Ptr(8), models.StatusRecibida))

	_, err := f.svc.Update(context.Background(), admin(8), 7, dto.UpdateDenunciaRequest{})
	assert.NoError(t, err)
}

func TestDenunciaServiceListMine(t *testing.T) {
	f := newDenunciaFixture(t, true,
		storedDenuncia(1, int64Ptr(8), models.StatusRecibida),
		storedDenuncia(2, int64Ptr(9), models.StatusRecibida),
		storedDenuncia(3, nil, models.StatusRecibida),
	)

	items, err := f.svc.ListMine(context.Background(), estudiante(8))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].ID)

	items, err = f.svc.ListMine(context.Background(), admin(8))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDenunciaServiceListClampsLimit(t *testing.T) {
	f := newDenunciaFixture(t, true)

	_, err := f.svc.List(context.Background(), dto.DenunciaListQuery{Estado: "recibida", Limite: 5000})
	require.NoError(t, err)
	require.Len(t, f.repo.filters, 1)
	assert.Equal(t, 100, f.repo.filters[0].Limite)
	require.NotNil(t, f.repo.filters[0].Estado)
	assert.Equal(t, models.StatusRecibida, *f.repo.filters[0].Estado)

	_, err = f.svc.List(context.Background(), dto.DenunciaListQuery{Estado: "abierta"})
	assertCode(t, err, appErrors.ErrValidation)
}

func TestDenunciaServiceTransitionStatus(t *testing.T) {
	f := newDenunciaFixture(t, true, storedDenuncia(7, nil, models.StatusRecibida))
	require.NoError(t, f.cache.Set(context.Background(), statsCacheKey, &models.Estadisticas{TotalDenuncias: 1}, 0))

	entry, err := f.svc.TransitionStatus(context.Background(), docente(2), 7, dto.UpdateEstadoRequest{Estado: models.StatusEnProceso, Comentario: "revisando"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnProceso, entry.EstadoNuevo)
	require.NotNil(t, entry.Comentario)
	assert.Equal(t, "revisando", *entry.Comentario)
	assert.Equal(t, models.RoleDocente, entry.ActorRol)
	assert.Equal(t, models.StatusEnProceso, f.repo.items[7].Estado)
	assert.NotContains(t, f.cache.values, statsCacheKey)
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionReportStatus, f.audit.logs[0].Accion)
}

func TestDenunciaServiceTransitionStatusStrictGraph(t *testing.T) {
	cases := []struct {
		from models.ReportStatus
		to   models.ReportStatus
		ok   bool
	}{
		{models.StatusRecibida, models.StatusEnProceso, true},
		{models.StatusRecibida, models.StatusRechazada, true},
		{models.StatusRecibida, models.StatusResuelta, false},
		{models.StatusEnProceso, models.StatusResuelta, true},
		{models.StatusEnProceso, models.StatusRecibida, false},
		{models.StatusResuelta, models.StatusEnProceso, false},
		{models.StatusRechazada, models.StatusRecibida, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			f := newDenunciaFixture(t, true, storedDenuncia(7, nil, tc.from))
			_, err := f.svc.TransitionStatus(context.Background(), admin(1), 7, dto.UpdateEstadoRequest{Estado: tc.to})
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assertCode(t, err, appErrors.ErrInvalidTransition)
			assert.Equal(t, tc.from, f.repo.items[7].Estado)
		})
	}
}

func TestDenunciaServiceTransitionStatusLenientMode(t *testing.T) {
	f := newDenunciaFixture(t, false, storedDenuncia(7, nil, models.StatusResuelta))

	_, err := f.svc.TransitionStatus(context.Background(), admin(1), 7, dto.UpdateEstadoRequest{Estado: models.StatusRecibida})
	assert.NoError(t, err)
	assert.Equal(t, models.StatusRecibida, f.repo.items[7].Estado)
}

func TestDenunciaServiceTransitionStatusConcurrentChange(t *testing.T) {
	f := newDenunciaFixture(t, true, storedDenuncia(7, nil, models.StatusRecibida))
	f.repo.staleUpdate = true

	_, err := f.svc.TransitionStatus(context.Background(), admin(1), 7, dto.UpdateEstadoRequest{Estado: models.StatusEnProceso})
	assertCode(t, err, appErrors.ErrConflict)
}

func TestDenunciaServiceTransitionStatusRequiresReviewer(t *testing.T) {
	f := newDenunciaFixture(t, true, storedDenuncia(7, int64Ptr(8), models.StatusRecibida))

	_, err := f.svc.TransitionStatus(context.Background(), estudiante(8), 7, dto.UpdateEstadoRequest{Estado: models.StatusEnProceso})
	assertCode(t, err, appErrors.ErrForbidden)
}

func TestDenunciaServiceUpdateMergesFields(t *testing.T) {
	f := newDenunciaFixture(t, true, storedDenuncia(7, int64Ptr(8), models.StatusEnProceso))

	descripcion := "Descripción ampliada del incidente"
	gravedad := models.SeverityAlta
	detail, err := f.svc.Update(context.Background(), estudiante(8), 7, dto.UpdateDenunciaRequest{
		Descripcion: &descripcion,
		Gravedad:    &gravedad,
		FacultadID:  int64Ptr(5),
	})
	require.NoError(t, err)
	assert.Equal(t, descripcion, detail.Descripcion)
	assert.Equal(t, models.SeverityAlta, detail.Gravedad)
	assert.Equal(t, int64(5), detail.FacultadID)
	assert.Equal(t, "acoso", detail.Tipo)
	assert.Equal(t, models.StatusEnProceso, detail.Estado)
}

func TestDenunciaServiceUpdateRejectsInactiveFacultadAndStrangers(t *testing.T) {
	f := newDenunciaFixture(t, true, storedDenuncia(7, int64Ptr(8), models.StatusRecibida))

	_, err := f.svc.Update(context.Background(), estudiante(8), 7, dto.UpdateDenunciaRequest{FacultadID: int64Ptr(4)})
	assertCode(t, err, appErrors.ErrNotFound)

	_, err = f.svc.Update(context.Background(), estudiante(9), 7, dto.UpdateDenunciaRequest{})
	assertCode(t, err, appErrors.ErrForbidden)
}

func TestDenunciaServiceAssignResources(t *testing.T) {
	f := newDenunciaFixture(t, true, storedDenuncia(7, nil, models.StatusRecibida))

	_, err := f.svc.AssignResources(context.Background(), admin(1), 7, dto.AsignarRecursosRequest{RecursosIDs: []int64{1, 2, 1}})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, f.repo.resources[7])

	_, err = f.svc.AssignResources(context.Background(), admin(1), 7, dto.AsignarRecursosRequest{RecursosIDs: []int64{1, 3}})
	assertCode(t, err, appErrors.ErrNotFound)

	_, err = f.svc.AssignResources(context.Background(), docente(2), 7, dto.AsignarRecursosRequest{RecursosIDs: []int64{1}})
	assertCode(t, err, appErrors.ErrForbidden)
}

func TestDenunciaServiceRecordAttention(t *testing.T) {
	f := newDenunciaFixture(t, true, storedDenuncia(7, nil, models.StatusEnProceso))

	atencion, err := f.svc.RecordAttention(context.Background(), admin(1), 7, dto.AtencionRequest{TipoAtencion: "orientacion", Descripcion: "Llamada de seguimiento"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), atencion.AdminID)
	assert.Equal(t, models.ModalidadVirtual, atencion.Modalidad)

	_, err = f.svc.RecordAttention(context.Background(), admin(1), 99, dto.AtencionRequest{TipoAtencion: "orientacion", Descripcion: "x"})
	assertCode(t, err, appErrors.ErrNotFound)
}

func TestDenunciaServiceDeleteRemovesFiles(t *testing.T) {
	stored := storedDenuncia(7, nil, models.StatusRechazada)
	stored.Archivos = []models.Archivo{{ID: 1, DenunciaID: 7, Ruta: "7/a.png"}, {ID: 2, DenunciaID: 7, Ruta: "7/b.pdf"}}
	f := newDenunciaFixture(t, true, stored)

	require.NoError(t, f.svc.Delete(context.Background(), admin(1), 7))
	assert.NotContains(t, f.repo.items, int64(7))
	assert.Equal(t, []string{"7/a.png", "7/b.pdf"}, f.files.removed)
	assert.Contains(t, f.cache.invalidated, denunciaCachePrefix)

	err := f.svc.Delete(context.Background(), admin(1), 7)
	assertCode(t, err, appErrors.ErrNotFound)
}

func TestDenunciaServiceStatisticsCached(t *testing.T) {
	f := newDenunciaFixture(t, true)
	f.repo.stats = &models.Estadisticas{TotalDenuncias: 3, Recibidas: 1, EnProceso: 1, Resueltas: 1, TotalUsuarios: 4}

	stats, hit, err := f.svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int64(3), stats.TotalDenuncias)

	stats, hit, err = f.svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int64(4), stats.TotalUsuarios)
	assert.Equal(t, 1, f.repo.statsCalls)
}

func TestDenunciaServiceExport(t *testing.T) {
	f := newDenunciaFixture(t, true, storedDenuncia(7, nil, models.StatusRecibida))

	result, err := f.svc.Export(context.Background(), dto.DenunciaListQuery{Formato: "csv"})
	require.NoError(t, err)
	assert.Contains(t, string(result.Data), "DEN-2025000007")
}

func TestNotFoundOrPassesThroughUnexpected(t *testing.T) {
	err := notFoundOr(errors.New("boom"), "missing", "op")
	assertCode(t, err, appErrors.ErrInternal)
}
