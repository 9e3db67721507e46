package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/vozsegura-api/internal/dto"
	"github.com/noah-isme/vozsegura-api/internal/models"
	"github.com/noah-isme/vozsegura-api/internal/policy"
	appErrors "github.com/noah-isme/vozsegura-api/pkg/errors"
)

const (
	catalogCachePrefix       = "catalogo:*"
	catalogInstitucionesKey  = "catalogo:instituciones"
	catalogFacultadesKey     = "catalogo:facultades"
	catalogRecursosKey       = "catalogo:recursos"
	catalogFacultadesInstKey = "catalogo:instituciones:facultades:"
)

type catalogoRepository interface {
	ListInstituciones(ctx context.Context) ([]models.Institucion, error)
	FindInstitucion(ctx context.Context, id int64) (*models.Institucion, error)
	CreateInstitucion(ctx context.Context, item *models.Institucion) error
	UpdateInstitucion(ctx context.Context, item *models.Institucion) error
	ListFacultadesByInstitucion(ctx context.Context, institucionID int64) ([]models.Facultad, error)
	ListFacultadesActivas(ctx context.Context) ([]models.Facultad, error)
	FindFacultad(ctx context.Context, id int64) (*models.Facultad, error)
	CreateFacultad(ctx context.Context, item *models.Facultad) error
	UpdateFacultad(ctx context.Context, item *models.Facultad) error
	FacultadStatistics(ctx context.Context, id int64) (*models.FacultadEstadisticas, error)
	ListRecursosActivos(ctx context.Context) ([]models.Recurso, error)
	FindRecurso(ctx context.Context, id int64) (*models.Recurso, error)
	CreateRecurso(ctx context.Context, item *models.Recurso) error
	UpdateRecurso(ctx context.Context, item *models.Recurso) error
}

// CatalogoService serves institutions, faculties and help resources.
type CatalogoService struct {
	repo      catalogoRepository
	cache     *CacheService
	audit     auditTrail
	validator *validator.Validate
	logger    *zap.Logger
	ttl       time.Duration
}

// NewCatalogoService constructs a CatalogoService.
func NewCatalogoService(repo catalogoRepository, cache *CacheService, audit auditWriter, validate *validator.Validate, logger *zap.Logger, ttl time.Duration) *CatalogoService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CatalogoService{
		repo:      repo,
		cache:     cache,
		audit:     auditTrail{writer: audit, logger: logger},
		validator: validate,
		logger:    logger,
		ttl:       ttl,
	}
}

// ListInstituciones returns every institution.
func (s *CatalogoService) ListInstituciones(ctx context.Context) ([]models.Institucion, bool, error) {
	return cachedList(ctx, s, catalogInstitucionesKey, s.repo.ListInstituciones)
}

// GetInstitucion returns one institution.
func (s *CatalogoService) GetInstitucion(ctx context.Context, id int64) (*models.Institucion, error) {
	item, err := s.repo.FindInstitucion(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "institucion not found", "find institucion")
	}
	return item, nil
}

// ListFacultadesByInstitucion returns the faculties of an institution.
func (s *CatalogoService) ListFacultadesByInstitucion(ctx context.Context, institucionID int64) ([]models.Facultad, bool, error) {
	if _, err := s.GetInstitucion(ctx, institucionID); err != nil {
		return nil, false, err
	}
	key := catalogFacultadesInstKey + strconv.FormatInt(institucionID, 10)
	return cachedList(ctx, s, key, func(ctx context.Context) ([]models.Facultad, error) {
		return s.repo.ListFacultadesByInstitucion(ctx, institucionID)
	})
}

// CreateInstitucion inserts an institution.
func (s *CatalogoService) CreateInstitucion(ctx context.Context, principal *models.Principal, req dto.InstitucionRequest) (*models.Institucion, error) {
	if err := s.checkWrite(principal, req); err != nil {
		return nil, err
	}
	item := &models.Institucion{Nombre: strings.TrimSpace(req.Nombre), Ciudad: trimmedPtr(req.Ciudad)}
	if err := s.repo.CreateInstitucion(ctx, item); err != nil {
		return nil, appErrors.Internal(err, "create institucion")
	}
	s.afterWrite(ctx, principal, "institucion", item.ID, req)
	return item, nil
}

// UpdateInstitucion overwrites an institution.
func (s *CatalogoService) UpdateInstitucion(ctx context.Context, principal *models.Principal, id int64, req dto.InstitucionRequest) (*models.Institucion, error) {
	if err := s.checkWrite(principal, req); err != nil {
		return nil, err
	}
	item, err := s.GetInstitucion(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Nombre = strings.TrimSpace(req.Nombre)
	item.Ciudad = trimmedPtr(req.Ciudad)
	if err := s.repo.UpdateInstitucion(ctx, item); err != nil {
		return nil, notFoundOr(err, "institucion not found", "update institucion")
	}
	s.afterWrite(ctx, principal, "institucion", id, req)
	return item, nil
}

// ListFacultades returns active faculties with their institution.
func (s *CatalogoService) ListFacultades(ctx context.Context) ([]models.Facultad, bool, error) {
	return cachedList(ctx, s, catalogFacultadesKey, s.repo.ListFacultadesActivas)
}

// GetFacultad returns one faculty, active or not.
func (s *CatalogoService) GetFacultad(ctx context.Context, id int64) (*models.Facultad, error) {
	item, err := s.repo.FindFacultad(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "facultad not found", "find facultad")
	}
	return item, nil
}

// FacultadStatistics counts the reports of a faculty per status.
func (s *CatalogoService) FacultadStatistics(ctx context.Context, id int64) (*models.FacultadEstadisticas, error) {
	stats, err := s.repo.FacultadStatistics(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "facultad not found", "facultad statistics")
	}
	return stats, nil
}

// CreateFacultad inserts a faculty under an existing institution.
func (s *CatalogoService) CreateFacultad(ctx context.Context, principal *models.Principal, req dto.FacultadRequest) (*models.Facultad, error) {
	if err := s.checkWrite(principal, req); err != nil {
		return nil, err
	}
	if _, err := s.GetInstitucion(ctx, req.InstitucionID); err != nil {
		return nil, err
	}
	item := &models.Facultad{InstitucionID: req.InstitucionID, Nombre: strings.TrimSpace(req.Nombre), Activa: true}
	if req.Activa != nil {
		item.Activa = *req.Activa
	}
	if err := s.repo.CreateFacultad(ctx, item); err != nil {
		return nil, appErrors.Internal(err, "create facultad")
	}
	s.afterWrite(ctx, principal, "facultad", item.ID, req)
	return s.GetFacultad(ctx, item.ID)
}

// UpdateFacultad overwrites a faculty; an omitted activa keeps the current flag.
func (s *CatalogoService) UpdateFacultad(ctx context.Context, principal *models.Principal, id int64, req dto.FacultadRequest) (*models.Facultad, error) {
	if err := s.checkWrite(principal, req); err != nil {
		return nil, err
	}
	item, err := s.GetFacultad(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.InstitucionID != item.InstitucionID {
		if _, err := s.GetInstitucion(ctx, req.InstitucionID); err != nil {
			return nil, err
		}
	}
	item.InstitucionID = req.InstitucionID
	item.Nombre = strings.TrimSpace(req.Nombre)
	if req.Activa != nil {
		item.Activa = *req.Activa
	}
	if err := s.repo.UpdateFacultad(ctx, item); err != nil {
		return nil, notFoundOr(err, "facultad not found", "update facultad")
	}
	s.afterWrite(ctx, principal, "facultad", id, req)
	return s.GetFacultad(ctx, id)
}

// ListRecursos returns active help resources.
func (s *CatalogoService) ListRecursos(ctx context.Context) ([]models.Recurso, bool, error) {
	return cachedList(ctx, s, catalogRecursosKey, s.repo.ListRecursosActivos)
}

// GetRecurso returns one help resource.
func (s *CatalogoService) GetRecurso(ctx context.Context, id int64) (*models.Recurso, error) {
	item, err := s.repo.FindRecurso(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "recurso not found", "find recurso")
	}
	return item, nil
}

// CreateRecurso inserts a help resource.
func (s *CatalogoService) CreateRecurso(ctx context.Context, principal *models.Principal, req dto.RecursoRequest) (*models.Recurso, error) {
	if err := s.checkWrite(principal, req); err != nil {
		return nil, err
	}
	item := &models.Recurso{
		Titulo:      strings.TrimSpace(req.Titulo),
		Descripcion: trimmedPtr(req.Descripcion),
		URL:         trimmedPtr(req.URL),
		Activo:      true,
	}
	if req.Activo != nil {
		item.Activo = *req.Activo
	}
	if err := s.repo.CreateRecurso(ctx, item); err != nil {
		return nil, appErrors.Internal(err, "create recurso")
	}
	s.afterWrite(ctx, principal, "recurso", item.ID, req)
	return item, nil
}

// UpdateRecurso overwrites a help resource; an omitted activo keeps the current flag.
func (s *CatalogoService) UpdateRecurso(ctx context.Context, principal *models.Principal, id int64, req dto.RecursoRequest) (*models.Recurso, error) {
	if err := s.checkWrite(principal, req); err != nil {
		return nil, err
	}
	item, err := s.GetRecurso(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Titulo = strings.TrimSpace(req.Titulo)
	item.Descripcion = trimmedPtr(req.Descripcion)
	item.URL = trimmedPtr(req.URL)
	if req.Activo != nil {
		item.Activo = *req.Activo
	}
	if err := s.repo.UpdateRecurso(ctx, item); err != nil {
		return nil, notFoundOr(err, "recurso not found", "update recurso")
	}
	s.afterWrite(ctx, principal, "recurso", id, req)
	return item, nil
}

func (s *CatalogoService) checkWrite(principal *models.Principal, req interface{}) error {
	if err := requireCapability(principal, policy.ManageCatalog); err != nil {
		return err
	}
	if err := s.validator.Struct(req); err != nil {
		return InvalidInput(err, "invalid catalog payload")
	}
	return nil
}

func (s *CatalogoService) afterWrite(ctx context.Context, principal *models.Principal, resource string, id int64, values interface{}) {
	_ = s.cache.Invalidate(ctx, catalogCachePrefix)
	s.audit.record(ctx, principal, models.AuditActionCatalogWrite, resource, id, values)
}

func cachedList[T any](ctx context.Context, s *CatalogoService, key string, load func(context.Context) ([]T, error)) ([]T, bool, error) {
	items, hit, err := Remember(ctx, s.cache, key, s.ttl, load)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []T{}, false, nil
		}
		return nil, false, appErrors.Internal(err, "load "+key)
	}
	return items, hit, nil
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
