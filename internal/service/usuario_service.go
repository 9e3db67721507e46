package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/vozsegura-api/internal/dto"
	"github.com/noah-isme/vozsegura-api/internal/models"
	"github.com/noah-isme/vozsegura-api/internal/policy"
	appErrors "github.com/noah-isme/vozsegura-api/pkg/errors"
)

type usuarioRepository interface {
	List(ctx context.Context, filter models.UsuarioFilter) ([]models.Usuario, int, error)
	FindByID(ctx context.Context, id int64) (*models.Usuario, error)
	UpdateRole(ctx context.Context, id int64, rol models.Role) error
	SetActive(ctx context.Context, id int64, activo bool) error
}

// UsuarioService handles administration of estudiante and docente accounts.
type UsuarioService struct {
	repo      usuarioRepository
	audit     auditTrail
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUsuarioService creates an instance of UsuarioService.
func NewUsuarioService(repo usuarioRepository, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *UsuarioService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &UsuarioService{repo: repo, audit: auditTrail{writer: audit, logger: logger}, validator: validate, logger: logger}
}

// List returns paginated usuarios and pagination metadata.
func (s *UsuarioService) List(ctx context.Context, query dto.UsuarioListQuery) ([]models.Usuario, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, InvalidInput(err, "invalid filters")
	}
	filter := models.UsuarioFilter{
		Activo:   query.Activo,
		Search:   strings.TrimSpace(query.Search),
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if query.Rol != "" {
		rol := models.Role(query.Rol)
		filter.Rol = &rol
	}

	usuarios, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "list usuarios")
	}
	if usuarios == nil {
		usuarios = []models.Usuario{}
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return usuarios, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a usuario by ID.
func (s *UsuarioService) Get(ctx context.Context, id int64) (*models.Usuario, error) {
	usuario, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "usuario not found")
		}
		return nil, appErrors.Internal(err, "load usuario")
	}
	return usuario, nil
}

// Update changes the role and/or active flag of a usuario. Deactivation takes
// effect on the usuario's next authenticated request.
func (s *UsuarioService) Update(ctx context.Context, principal *models.Principal, id int64, req dto.UpdateUsuarioRequest) (*models.Usuario, error) {
	if err := requireCapability(principal, policy.ManageUsers); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, InvalidInput(err, "invalid usuario payload")
	}
	if req.Rol == nil && req.Activo == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rol or activo is required")
	}

	usuario, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	changes := map[string]interface{}{}
	if req.Rol != nil && *req.Rol != usuario.Rol {
		if err := s.repo.UpdateRole(ctx, id, *req.Rol); err != nil {
			return nil, notFoundOr(err, "usuario not found", "update usuario role")
		}
		changes["rol"] = map[string]models.Role{"anterior": usuario.Rol, "nuevo": *req.Rol}
	}
	if req.Activo != nil && *req.Activo != usuario.Activo {
		if err := s.repo.SetActive(ctx, id, *req.Activo); err != nil {
			return nil, notFoundOr(err, "usuario not found", "update usuario status")
		}
		changes["activo"] = *req.Activo
	}

	if len(changes) > 0 {
		s.audit.record(ctx, principal, models.AuditActionUserUpdate, "usuario", id, changes)
		s.logger.Info("usuario updated", zap.Int64("usuario_id", id), zap.Int64("actor_id", principal.ID))
	}
	return s.Get(ctx, id)
}
