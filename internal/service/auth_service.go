package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/vozsegura-api/internal/models"
	"github.com/noah-isme/vozsegura-api/internal/repository"
	appErrors "github.com/noah-isme/vozsegura-api/pkg/errors"
)

type authUsuarioRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Usuario, error)
	FindByID(ctx context.Context, id int64) (*models.Usuario, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, usuario *models.Usuario) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error
}

type authAdministradorRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Administrador, error)
	FindByID(ctx context.Context, id int64) (*models.Administrador, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// AuthService provides registration, login and token verification.
type AuthService struct {
	usuarios  authUsuarioRepository
	admins    authAdministradorRepository
	audit     auditTrail
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(usuarios authUsuarioRepository, admins authAdministradorRepository, audit auditWriter, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if config.Expiration <= 0 {
		config.Expiration = 7 * 24 * time.Hour
	}
	return &AuthService{
		usuarios:  usuarios,
		admins:    admins,
		audit:     auditTrail{writer: audit, logger: logger},
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an estudiante account and returns a token for it.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	req.Nombre = strings.TrimSpace(req.Nombre)
	if err := s.validator.Struct(req); err != nil {
		return nil, InvalidInput(err, "invalid registration payload")
	}

	exists, err := s.usuarios.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Internal(err, "check email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}

	hash, err := repository.HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.Internal(err, "hash password")
	}

	usuario := &models.Usuario{
		Nombre:       req.Nombre,
		Email:        req.Email,
		PasswordHash: hash,
		Rol:          models.RoleEstudiante,
		Activo:       true,
	}
	if err := s.usuarios.Create(ctx, usuario); err != nil {
		if repository.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, appErrors.Internal(err, "create usuario")
	}

	principal := usuario.Principal()
	s.recordAudit(ctx, &principal, models.AuditActionRegister, req.IP, req.UserAgent)
	return s.issue(principal)
}

// Login authenticates an estudiante or docente.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, InvalidInput(err, "invalid login payload")
	}

	usuario, err := s.usuarios.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordLogin("usuario", false)
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Internal(err, "fetch usuario")
	}

	if err := checkCredentials(req.Password, usuario.PasswordHash, usuario.Activo); err != nil {
		s.metrics.RecordLogin("usuario", false)
		return nil, err
	}

	s.metrics.RecordLogin("usuario", true)
	principal := usuario.Principal()
	s.recordAudit(ctx, &principal, models.AuditActionLogin, req.IP, req.UserAgent)
	return s.issue(principal)
}

// LoginAdmin authenticates an administrador.
func (s *AuthService) LoginAdmin(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, InvalidInput(err, "invalid login payload")
	}

	admin, err := s.admins.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordLogin("admin", false)
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Internal(err, "fetch administrador")
	}

	if err := checkCredentials(req.Password, admin.PasswordHash, admin.Activo); err != nil {
		s.metrics.RecordLogin("admin", false)
		return nil, err
	}

	s.metrics.RecordLogin("admin", true)
	principal := admin.Principal()
	s.recordAudit(ctx, &principal, models.AuditActionLogin, req.IP, req.UserAgent)
	return s.issue(principal)
}

// ValidateToken parses and validates a token returning its claims. Expired
// tokens yield ErrTokenExpired, every other failure ErrInvalidToken.
func (s *AuthService) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrTokenExpired.Code, appErrors.ErrTokenExpired.Status, appErrors.ErrTokenExpired.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidToken.Code, appErrors.ErrInvalidToken.Status, appErrors.ErrInvalidToken.Message)
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid || !claims.Rol.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidToken, "invalid token claims")
	}
	return claims, nil
}

// Authenticate verifies a token and resolves the current principal, re-checking
// that the account still exists and is active.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.Principal, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.Rol.IsAdmin() {
		admin, err := s.admins.FindByID(ctx, claims.ID)
		if err != nil {
			return nil, principalLookupError(err)
		}
		if !admin.Activo {
			return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "")
		}
		principal := admin.Principal()
		return &principal, nil
	}

	usuario, err := s.usuarios.FindByID(ctx, claims.ID)
	if err != nil {
		return nil, principalLookupError(err)
	}
	if !usuario.Activo {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "")
	}
	principal := usuario.Principal()
	return &principal, nil
}

// ChangePassword replaces the caller's password after checking the current one
// and returns a freshly issued token.
func (s *AuthService) ChangePassword(ctx context.Context, principal *models.Principal, req models.ChangePasswordRequest) (*models.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, InvalidInput(err, "invalid change password payload")
	}

	var currentHash string
	if principal.Role.IsAdmin() {
		admin, err := s.admins.FindByID(ctx, principal.ID)
		if err != nil {
			return nil, principalLookupError(err)
		}
		currentHash = admin.PasswordHash
	} else {
		usuario, err := s.usuarios.FindByID(ctx, principal.ID)
		if err != nil {
			return nil, principalLookupError(err)
		}
		currentHash = usuario.PasswordHash
	}

	if !repository.VerifyPassword(req.PasswordActual, currentHash) {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "current password is incorrect")
	}

	newHash, err := repository.HashPassword(req.PasswordNuevo)
	if err != nil {
		return nil, appErrors.Internal(err, "hash password")
	}

	if principal.Role.IsAdmin() {
		err = s.admins.UpdatePassword(ctx, principal.ID, newHash, s.now())
	} else {
		err = s.usuarios.UpdatePassword(ctx, principal.ID, newHash, s.now())
	}
	if err != nil {
		return nil, appErrors.Internal(err, "update password")
	}

	s.recordAudit(ctx, principal, models.AuditActionPasswordChange, "", "")
	return s.issue(*principal)
}

func (s *AuthService) issue(principal models.Principal) (*models.AuthResponse, error) {
	token, issuedAt, err := s.generateToken(principal)
	if err != nil {
		return nil, appErrors.Internal(err, "sign token")
	}
	return &models.AuthResponse{
		Token:     token,
		ExpiresIn: int64(s.config.Expiration.Seconds()),
		IssuedAt:  issuedAt,
		Usuario:   principal,
	}, nil
}

func (s *AuthService) generateToken(principal models.Principal) (string, time.Time, error) {
	issuedAt := s.now()
	claims := &models.TokenClaims{
		ID:    principal.ID,
		Email: principal.Email,
		Rol:   principal.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   strconv.FormatInt(principal.ID, 10),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.Expiration)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, issuedAt, nil
}

func (s *AuthService) recordAudit(ctx context.Context, principal *models.Principal, action, ip, userAgent string) {
	if ip != "" || userAgent != "" {
		ctx = WithRequestMeta(ctx, RequestMeta{IP: ip, UserAgent: userAgent})
	}
	s.audit.record(ctx, principal, action, "auth", principal.ID, map[string]string{"status": "success"})
}

// checkCredentials checks the password before the active flag.
func checkCredentials(plain, hash string, active bool) error {
	if !repository.VerifyPassword(plain, hash) {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}
	if !active {
		return appErrors.Clone(appErrors.ErrInactiveAccount, "")
	}
	return nil
}

func principalLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "principal no longer exists")
	}
	return appErrors.Internal(err, "load principal")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
