package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/vozsegura-api/internal/models"
)

const usuarioColumns = `id, nombre, email, password_hash, rol, activo, fecha_registro, fecha_actualizacion`

// UsuarioRepository provides database access for estudiante and docente accounts.
type UsuarioRepository struct {
	db *sqlx.DB
}

// NewUsuarioRepository creates a new instance of UsuarioRepository.
func NewUsuarioRepository(db *sqlx.DB) *UsuarioRepository {
	return &UsuarioRepository{db: db}
}

// FindByEmail returns a usuario by email regardless of the active flag.
func (r *UsuarioRepository) FindByEmail(ctx context.Context, email string) (*models.Usuario, error) {
	query := `SELECT ` + usuarioColumns + ` FROM usuarios WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var usuario models.Usuario
	if err := r.db.GetContext(ctx, &usuario, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find usuario by email: %w", err)
	}
	return &usuario, nil
}

// FindActiveByEmail returns an active usuario by email.
func (r *UsuarioRepository) FindActiveByEmail(ctx context.Context, email string) (*models.Usuario, error) {
	query := `SELECT ` + usuarioColumns + ` FROM usuarios WHERE LOWER(email) = LOWER($1) AND activo = TRUE LIMIT 1`
	var usuario models.Usuario
	if err := r.db.GetContext(ctx, &usuario, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find active usuario by email: %w", err)
	}
	return &usuario, nil
}

// FindByID returns a usuario by identifier.
func (r *UsuarioRepository) FindByID(ctx context.Context, id int64) (*models.Usuario, error) {
	query := `SELECT ` + usuarioColumns + ` FROM usuarios WHERE id = $1 LIMIT 1`
	var usuario models.Usuario
	if err := r.db.GetContext(ctx, &usuario, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find usuario by id: %w", err)
	}
	return &usuario, nil
}

// ExistsByEmail reports whether an account already uses the email.
func (r *UsuarioRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM usuarios WHERE LOWER(email) = LOWER($1))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check usuario email: %w", err)
	}
	return exists, nil
}

// Create inserts a new usuario and fills the generated id and timestamps.
func (r *UsuarioRepository) Create(ctx context.Context, usuario *models.Usuario) error {
	now := time.Now().UTC()
	if usuario.FechaRegistro.IsZero() {
		usuario.FechaRegistro = now
	}
	usuario.FechaActualizacion = now
	if usuario.Rol == "" {
		usuario.Rol = models.RoleEstudiante
	}

	const query = `INSERT INTO usuarios (nombre, email, password_hash, rol, activo, fecha_registro, fecha_actualizacion)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		usuario.Nombre, usuario.Email, usuario.PasswordHash, usuario.Rol, usuario.Activo, usuario.FechaRegistro, usuario.FechaActualizacion,
	).Scan(&usuario.ID); err != nil {
		return fmt.Errorf("create usuario: %w", err)
	}
	return nil
}

// UpdatePassword overwrites the stored password hash.
func (r *UsuarioRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE usuarios SET password_hash = $2, fecha_actualizacion = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update usuario password: %w", err)
	}
	return nil
}

// UpdateRole changes the role of a usuario.
func (r *UsuarioRepository) UpdateRole(ctx context.Context, id int64, rol models.Role) error {
	const query = `UPDATE usuarios SET rol = $2, fecha_actualizacion = $3 WHERE id = $1`
	return r.execOne(ctx, "update usuario role", query, id, rol, time.Now().UTC())
}

// SetActive toggles the active flag; deactivated usuarios are rejected on their next request.
func (r *UsuarioRepository) SetActive(ctx context.Context, id int64, activo bool) error {
	const query = `UPDATE usuarios SET activo = $2, fecha_actualizacion = $3 WHERE id = $1`
	return r.execOne(ctx, "update usuario active flag", query, id, activo, time.Now().UTC())
}

func (r *UsuarioRepository) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns usuarios based on filters with total count.
func (r *UsuarioRepository) List(ctx context.Context, filter models.UsuarioFilter) ([]models.Usuario, int, error) {
	baseQuery := `FROM usuarios WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Rol != nil {
		conditions = append(conditions, fmt.Sprintf("rol = $%d", len(args)+1))
		args = append(args, *filter.Rol)
	}
	if filter.Activo != nil {
		conditions = append(conditions, fmt.Sprintf("activo = $%d", len(args)+1))
		args = append(args, *filter.Activo)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(email) LIKE $%d OR LOWER(nombre) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY fecha_registro DESC LIMIT %d OFFSET %d", usuarioColumns, baseQuery, pageSize, offset)

	var usuarios []models.Usuario
	if err := r.db.SelectContext(ctx, &usuarios, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list usuarios: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count usuarios: %w", err)
	}

	return usuarios, total, nil
}

// Count returns the number of registered usuarios.
func (r *UsuarioRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM usuarios`); err != nil {
		return 0, fmt.Errorf("count usuarios: %w", err)
	}
	return total, nil
}
