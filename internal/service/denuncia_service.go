package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/vozsegura-api/internal/dto"
	"github.com/noah-isme/vozsegura-api/internal/models"
	"github.com/noah-isme/vozsegura-api/internal/policy"
	"github.com/noah-isme/vozsegura-api/internal/repository"
	appErrors "github.com/noah-isme/vozsegura-api/pkg/errors"
)

const (
	statsCacheKey       = "denuncias:estadisticas"
	denunciaCachePrefix = "denuncias:*"
	maxCodeAttempts     = 3
)

type denunciaRepository interface {
	Create(ctx context.Context, denuncia *models.Denuncia) error
	FindByID(ctx context.Context, id int64) (*models.DenunciaDetail, error)
	FindIDByCode(ctx context.Context, codigo string) (int64, error)
	ListByOwner(ctx context.Context, usuarioID int64) ([]models.DenunciaResumen, error)
	List(ctx context.Context, filter models.DenunciaFilter) ([]models.DenunciaResumen, error)
	UpdateStatus(ctx context.Context, change models.StatusChange) (*models.Seguimiento, error)
	Update(ctx context.Context, denuncia *models.Denuncia) error
	ReplaceResources(ctx context.Context, denunciaID int64, recursoIDs []int64) error
	RecordAttention(ctx context.Context, atencion *models.Atencion) error
	Delete(ctx context.Context, id int64) error
	Statistics(ctx context.Context) (*models.Estadisticas, error)
}

type denunciaCatalog interface {
	FindFacultad(ctx context.Context, id int64) (*models.Facultad, error)
	CountActiveRecursos(ctx context.Context, ids []int64) (int, error)
}

type fileRemover interface {
	Delete(filename string) error
}

// DenunciaConfig tunes the report lifecycle.
type DenunciaConfig struct {
	StrictTransitions bool
	MaxListLimit      int
	StatsCacheTTL     time.Duration
	// Location is where "today" is measured for incident dates. Defaults to UTC.
	Location *time.Location
}

// DenunciaService implements report submission, triage and administration.
type DenunciaService struct {
	repo      denunciaRepository
	catalog   denunciaCatalog
	files     fileRemover
	exporter  *ExportService
	cache     *CacheService
	events    *EventService
	metrics   *MetricsService
	audit     auditTrail
	validator *validator.Validate
	logger    *zap.Logger
	config    DenunciaConfig
	now       func() time.Time
}

// NewDenunciaService wires a DenunciaService.
func NewDenunciaService(
	repo denunciaRepository,
	catalog denunciaCatalog,
	files fileRemover,
	exporter *ExportService,
	cache *CacheService,
	events *EventService,
	metrics *MetricsService,
	audit auditWriter,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg DenunciaConfig,
) *DenunciaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if exporter == nil {
		exporter = NewExportService(nil, nil, logger)
	}
	if cfg.MaxListLimit <= 0 || cfg.MaxListLimit > repository.MaxReportListLimit {
		cfg.MaxListLimit = repository.MaxReportListLimit
	}
	if cfg.StatsCacheTTL <= 0 {
		cfg.StatsCacheTTL = time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &DenunciaService{
		repo:      repo,
		catalog:   catalog,
		files:     files,
		exporter:  exporter,
		cache:     cache,
		events:    events,
		metrics:   metrics,
		audit:     auditTrail{writer: audit, logger: logger},
		validator: validate,
		logger:    logger,
		config:    cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create files a report. A nil principal files it anonymously.
func (s *DenunciaService) Create(ctx context.Context, principal *models.Principal, req dto.CreateDenunciaRequest) (*dto.CreateDenunciaResponse, error) {
	req.Tipo = strings.TrimSpace(req.Tipo)
	req.Descripcion = strings.TrimSpace(req.Descripcion)
	if err := s.validator.Struct(req); err != nil {
		return nil, InvalidInput(err, "invalid denuncia payload")
	}
	if principal != nil && !policy.Allows(principal.Role, policy.SubmitReport) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot submit reports")
	}

	fecha, err := s.incidentDate(req.Fecha)
	if err != nil {
		return nil, err
	}
	if err := s.ensureActiveFacultad(ctx, req.FacultadID); err != nil {
		return nil, err
	}

	gravedad := req.Gravedad
	if gravedad == "" {
		gravedad = models.SeverityMedia
	}
	denuncia := &models.Denuncia{
		Tipo:           req.Tipo,
		Descripcion:    req.Descripcion,
		FechaIncidente: fecha,
		Gravedad:       gravedad,
		FacultadID:     req.FacultadID,
		Anonima:        principal == nil,
	}
	if principal != nil && policy.OwnsReports(principal.Role) {
		owner := principal.ID
		denuncia.UsuarioID = &owner
	}

	for attempt := 1; ; attempt++ {
		err = s.repo.Create(ctx, denuncia)
		if err == nil {
			break
		}
		if !repository.IsUniqueViolation(err, repository.ReportCodeConstraint) || attempt >= maxCodeAttempts {
			return nil, appErrors.Internal(err, "create denuncia")
		}
		s.logger.Warn("report code collision, retrying", zap.Int("attempt", attempt), zap.String("codigo", denuncia.Codigo))
	}

	s.metrics.RecordReportCreated(denuncia.Anonima)
	s.invalidate(ctx)
	s.events.Publish(EventReportCreated, reportEvent(denuncia, nil))
	s.logger.Info("denuncia created", zap.String("codigo", denuncia.Codigo), zap.Bool("anonima", denuncia.Anonima))

	return &dto.CreateDenunciaResponse{Codigo: denuncia.Codigo, Denuncia: denuncia}, nil
}

// GetByCode returns a report by its public code without owner identity.
func (s *DenunciaService) GetByCode(ctx context.Context, codigo string) (*models.DenunciaDetail, error) {
	codigo = strings.ToUpper(strings.TrimSpace(codigo))
	if codigo == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "codigo is required")
	}
	id, err := s.repo.FindIDByCode(ctx, codigo)
	if err != nil {
		return nil, notFoundOr(err, "denuncia not found", "find denuncia by code")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "denuncia not found", "load denuncia")
	}
	return detail.Redacted(), nil
}

// Get returns a report the principal owns, or any report for administrators.
func (s *DenunciaService) Get(ctx context.Context, principal *models.Principal, id int64) (*models.DenunciaDetail, error) {
	return s.loadAccessible(ctx, principal, id)
}

// ListMine returns the reports filed by the principal, newest first.
func (s *DenunciaService) ListMine(ctx context.Context, principal *models.Principal) ([]models.DenunciaResumen, error) {
	if principal == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	if !policy.OwnsReports(principal.Role) {
		return []models.DenunciaResumen{}, nil
	}
	items, err := s.repo.ListByOwner(ctx, principal.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "list own denuncias")
	}
	return items, nil
}

// List returns reports matching every supplied filter, newest first.
func (s *DenunciaService) List(ctx context.Context, query dto.DenunciaListQuery) ([]models.DenunciaResumen, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, InvalidInput(err, "invalid filters")
	}
	items, err := s.repo.List(ctx, s.filterFrom(query))
	if err != nil {
		return nil, appErrors.Internal(err, "list denuncias")
	}
	return items, nil
}

// TransitionStatus moves a report to a new status and appends a follow-up entry.
func (s *DenunciaService) TransitionStatus(ctx context.Context, principal *models.Principal, id int64, req dto.UpdateEstadoRequest) (*models.Seguimiento, error) {
	if err := requireCapability(principal, policy.ReviewReports); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, InvalidInput(err, "invalid status payload")
	}

	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "denuncia not found", "load denuncia")
	}
	from := detail.Estado
	if s.config.StrictTransitions && !from.CanTransitionTo(req.Estado) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move from %s to %s", from, req.Estado))
	}

	change := models.StatusChange{
		DenunciaID: id,
		From:       from,
		To:         req.Estado,
		ActorID:    principal.ID,
		ActorRol:   principal.Role,
	}
	if comentario := strings.TrimSpace(req.Comentario); comentario != "" {
		change.Comentario = &comentario
	}
	entry, err := s.repo.UpdateStatus(ctx, change)
	if err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "denuncia status changed concurrently, reload and retry")
		}
		return nil, appErrors.Internal(err, "update denuncia status")
	}

	s.metrics.RecordTransition(from, req.Estado)
	s.invalidate(ctx)
	detail.Estado = req.Estado
	s.events.Publish(EventReportStatusChanged, reportEvent(&detail.Denuncia, &from))
	s.audit.record(ctx, principal, models.AuditActionReportStatus, "denuncia", id, map[string]interface{}{
		"estado_anterior": from,
		"estado_nuevo":    req.Estado,
	})
	return entry, nil
}

// Update changes the editable fields of a report; status and code never change here.
func (s *DenunciaService) Update(ctx context.Context, principal *models.Principal, id int64, req dto.UpdateDenunciaRequest) (*models.DenunciaDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, InvalidInput(err, "invalid denuncia payload")
	}
	detail, err := s.loadAccessible(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	denuncia := detail.Denuncia
	if req.Tipo != nil {
		denuncia.Tipo = strings.TrimSpace(*req.Tipo)
	}
	if req.Descripcion != nil {
		denuncia.Descripcion = strings.TrimSpace(*req.Descripcion)
	}
	if req.Fecha != nil {
		fecha, err := s.incidentDate(*req.Fecha)
		if err != nil {
			return nil, err
		}
		denuncia.FechaIncidente = fecha
	}
	if req.Gravedad != nil {
		denuncia.Gravedad = *req.Gravedad
	}
	if req.FacultadID != nil && *req.FacultadID != denuncia.FacultadID {
		if err := s.ensureActiveFacultad(ctx, *req.FacultadID); err != nil {
			return nil, err
		}
		denuncia.FacultadID = *req.FacultadID
	}

	if err := s.repo.Update(ctx, &denuncia); err != nil {
		return nil, notFoundOr(err, "denuncia not found", "update denuncia")
	}
	s.invalidate(ctx)
	s.audit.record(ctx, principal, models.AuditActionReportUpdate, "denuncia", id, req)

	return s.reload(ctx, id)
}

// AssignResources replaces the help resources linked to a report.
func (s *DenunciaService) AssignResources(ctx context.Context, principal *models.Principal, id int64, req dto.AsignarRecursosRequest) (*models.DenunciaDetail, error) {
	if err := requireCapability(principal, policy.ManageReports); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, InvalidInput(err, "invalid recursos payload")
	}
	ids := uniqueIDs(req.RecursosIDs)
	if len(ids) > 0 {
		active, err := s.catalog.CountActiveRecursos(ctx, ids)
		if err != nil {
			return nil, appErrors.Internal(err, "check recursos")
		}
		if active != len(ids) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "one or more recursos do not exist or are inactive")
		}
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, notFoundOr(err, "denuncia not found", "load denuncia")
	}
	if err := s.repo.ReplaceResources(ctx, id, ids); err != nil {
		return nil, appErrors.Internal(err, "assign recursos")
	}
	s.audit.record(ctx, principal, models.AuditActionReportResources, "denuncia", id, map[string]interface{}{"recursos_ids": ids})
	return s.reload(ctx, id)
}

// RecordAttention stores an administrator's intervention on a report.
func (s *DenunciaService) RecordAttention(ctx context.Context, principal *models.Principal, id int64, req dto.AtencionRequest) (*models.Atencion, error) {
	if err := requireCapability(principal, policy.ManageReports); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, InvalidInput(err, "invalid atencion payload")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, notFoundOr(err, "denuncia not found", "load denuncia")
	}

	atencion := &models.Atencion{
		DenunciaID:   id,
		AdminID:      principal.ID,
		TipoAtencion: strings.TrimSpace(req.TipoAtencion),
		Modalidad:    req.Modalidad,
		Descripcion:  strings.TrimSpace(req.Descripcion),
	}
	if err := s.repo.RecordAttention(ctx, atencion); err != nil {
		return nil, appErrors.Internal(err, "record atencion")
	}
	s.audit.record(ctx, principal, models.AuditActionReportAttention, "denuncia", id, req)
	return atencion, nil
}

// Delete removes a report with its children and stored files.
func (s *DenunciaService) Delete(ctx context.Context, principal *models.Principal, id int64) error {
	if err := requireCapability(principal, policy.ManageReports); err != nil {
		return err
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "denuncia not found", "load denuncia")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "denuncia not found", "delete denuncia")
	}
	if s.files != nil {
		for _, archivo := range detail.Archivos {
			if err := s.files.Delete(archivo.Ruta); err != nil {
				s.logger.Warn("failed to remove attachment", zap.String("ruta", archivo.Ruta), zap.Error(err))
			}
		}
	}

	s.invalidate(ctx)
	s.events.Publish(EventReportDeleted, reportEvent(&detail.Denuncia, nil))
	s.audit.record(ctx, principal, models.AuditActionReportDelete, "denuncia", id, map[string]string{"codigo": detail.Codigo})
	return nil
}

// Statistics returns report counts per status, served from cache when possible.
func (s *DenunciaService) Statistics(ctx context.Context) (*models.Estadisticas, bool, error) {
	stats, hit, err := Remember(ctx, s.cache, statsCacheKey, s.config.StatsCacheTTL, s.repo.Statistics)
	if err != nil {
		return nil, false, appErrors.Internal(err, "denuncia statistics")
	}
	return stats, hit, nil
}

// Export renders the filtered report listing as CSV or PDF.
func (s *DenunciaService) Export(ctx context.Context, query dto.DenunciaListQuery) (*ExportResult, error) {
	items, err := s.List(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.exporter.Denuncias(items, query.Formato)
}

func (s *DenunciaService) loadAccessible(ctx context.Context, principal *models.Principal, id int64) (*models.DenunciaDetail, error) {
	if principal == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "denuncia not found", "load denuncia")
	}
	if !policy.CanAccessReport(principal, &detail.Denuncia) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you cannot access this denuncia")
	}
	return detail, nil
}

func (s *DenunciaService) reload(ctx context.Context, id int64) (*models.DenunciaDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "denuncia not found", "reload denuncia")
	}
	return detail, nil
}

func (s *DenunciaService) incidentDate(raw string) (models.Date, error) {
	fecha, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, appErrors.Clone(appErrors.ErrValidation, "fecha must be YYYY-MM-DD")
	}
	if fecha.After(models.NewDate(s.now().In(s.config.Location))) {
		return models.Date{}, appErrors.Clone(appErrors.ErrValidation, "fecha cannot be in the future")
	}
	return fecha, nil
}

func (s *DenunciaService) ensureActiveFacultad(ctx context.Context, id int64) error {
	facultad, err := s.catalog.FindFacultad(ctx, id)
	if err != nil {
		return notFoundOr(err, "facultad not found", "find facultad")
	}
	if !facultad.Activa {
		return appErrors.Clone(appErrors.ErrNotFound, "facultad not found")
	}
	return nil
}

func (s *DenunciaService) filterFrom(query dto.DenunciaListQuery) models.DenunciaFilter {
	filter := models.DenunciaFilter{Limite: query.Limite}
	if query.Estado != "" {
		estado := models.ReportStatus(query.Estado)
		filter.Estado = &estado
	}
	if query.Gravedad != "" {
		gravedad := models.Severity(query.Gravedad)
		filter.Gravedad = &gravedad
	}
	if query.FacultadID > 0 {
		facultadID := query.FacultadID
		filter.FacultadID = &facultadID
	}
	if filter.Limite <= 0 || filter.Limite > s.config.MaxListLimit {
		filter.Limite = s.config.MaxListLimit
	}
	return filter
}

func (s *DenunciaService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, denunciaCachePrefix)
}

// reportEvent is the payload published for lifecycle events. Owner identity is never included.
func reportEvent(denuncia *models.Denuncia, from *models.ReportStatus) map[string]interface{} {
	payload := map[string]interface{}{
		"id":          denuncia.ID,
		"codigo":      denuncia.Codigo,
		"estado":      denuncia.Estado,
		"gravedad":    denuncia.Gravedad,
		"facultad_id": denuncia.FacultadID,
		"anonima":     denuncia.Anonima,
	}
	if from != nil {
		payload["estado_anterior"] = *from
	}
	return payload
}

func requireCapability(principal *models.Principal, capability policy.Capability) error {
	if principal == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	if !policy.Allows(principal.Role, capability) {
		return appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions")
	}
	return nil
}

func notFoundOr(err error, notFound, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Internal(err, op)
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
