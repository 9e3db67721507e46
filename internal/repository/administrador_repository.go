package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/vozsegura-api/internal/models"
)

const administradorColumns = `id, nombre, email, password_hash, activo, fecha_creacion, fecha_actualizacion`

// AdministradorRepository provides database access for administrator accounts.
type AdministradorRepository struct {
	db *sqlx.DB
}

// NewAdministradorRepository creates a new instance of AdministradorRepository.
func NewAdministradorRepository(db *sqlx.DB) *AdministradorRepository {
	return &AdministradorRepository{db: db}
}

// FindByEmail returns an administrator by email regardless of the active flag.
func (r *AdministradorRepository) FindByEmail(ctx context.Context, email string) (*models.Administrador, error) {
	query := `SELECT ` + administradorColumns + ` FROM administradores WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var admin models.Administrador
	if err := r.db.GetContext(ctx, &admin, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find administrador by email: %w", err)
	}
	return &admin, nil
}

// FindByID returns an administrator by identifier.
func (r *AdministradorRepository) FindByID(ctx context.Context, id int64) (*models.Administrador, error) {
	query := `SELECT ` + administradorColumns + ` FROM administradores WHERE id = $1 LIMIT 1`
	var admin models.Administrador
	if err := r.db.GetContext(ctx, &admin, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find administrador by id: %w", err)
	}
	return &admin, nil
}

// UpdatePassword overwrites the stored password hash.
func (r *AdministradorRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE administradores SET password_hash = $2, fecha_actualizacion = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update administrador password: %w", err)
	}
	return nil
}
