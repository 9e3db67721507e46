package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/vozsegura-api/internal/models"
)

const facultadSelect = `SELECT f.id, f.institucion_id, f.nombre, f.activa, f.fecha_creacion,
	i.nombre AS institucion_nombre, i.ciudad
FROM facultades f
JOIN instituciones i ON i.id = f.institucion_id`

const recursoColumns = `id, titulo, descripcion, url, activo, fecha_creacion`

// CatalogoRepository provides access to instituciones, facultades and recursos.
type CatalogoRepository struct {
	db *sqlx.DB
}

// NewCatalogoRepository creates a new instance of CatalogoRepository.
func NewCatalogoRepository(db *sqlx.DB) *CatalogoRepository {
	return &CatalogoRepository{db: db}
}

// ListInstituciones returns every institution ordered by name.
func (r *CatalogoRepository) ListInstituciones(ctx context.Context) ([]models.Institucion, error) {
	items := []models.Institucion{}
	const query = `SELECT id, nombre, ciudad, fecha_creacion FROM instituciones ORDER BY nombre ASC`
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list instituciones: %w", err)
	}
	return items, nil
}

// FindInstitucion returns an institution by id.
func (r *CatalogoRepository) FindInstitucion(ctx context.Context, id int64) (*models.Institucion, error) {
	var item models.Institucion
	const query = `SELECT id, nombre, ciudad, fecha_creacion FROM instituciones WHERE id = $1`
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find institucion: %w", err)
	}
	return &item, nil
}

// CreateInstitucion inserts an institution.
func (r *CatalogoRepository) CreateInstitucion(ctx context.Context, item *models.Institucion) error {
	item.FechaCreacion = time.Now().UTC()
	const query = `INSERT INTO instituciones (nombre, ciudad, fecha_creacion) VALUES ($1, $2, $3) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, item.Nombre, item.Ciudad, item.FechaCreacion).Scan(&item.ID); err != nil {
		return fmt.Errorf("create institucion: %w", err)
	}
	return nil
}

// UpdateInstitucion overwrites name and city.
func (r *CatalogoRepository) UpdateInstitucion(ctx context.Context, item *models.Institucion) error {
	const query = `UPDATE instituciones SET nombre = $2, ciudad = $3 WHERE id = $1`
	return r.execOne(ctx, "update institucion", query, item.ID, item.Nombre, item.Ciudad)
}

// ListFacultadesByInstitucion returns the faculties of an institution, active or not.
func (r *CatalogoRepository) ListFacultadesByInstitucion(ctx context.Context, institucionID int64) ([]models.Facultad, error) {
	items := []models.Facultad{}
	query := facultadSelect + ` WHERE f.institucion_id = $1 ORDER BY f.nombre ASC`
	if err := r.db.SelectContext(ctx, &items, query, institucionID); err != nil {
		return nil, fmt.Errorf("list facultades by institucion: %w", err)
	}
	return items, nil
}

// ListFacultadesActivas returns active faculties with their institution name and city.
func (r *CatalogoRepository) ListFacultadesActivas(ctx context.Context) ([]models.Facultad, error) {
	items := []models.Facultad{}
	query := facultadSelect + ` WHERE f.activa = TRUE ORDER BY i.nombre ASC, f.nombre ASC`
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list facultades activas: %w", err)
	}
	return items, nil
}

// FindFacultad returns a faculty by id regardless of the active flag.
func (r *CatalogoRepository) FindFacultad(ctx context.Context, id int64) (*models.Facultad, error) {
	var item models.Facultad
	if err := r.db.GetContext(ctx, &item, facultadSelect+` WHERE f.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find facultad: %w", err)
	}
	return &item, nil
}

// CreateFacultad inserts a faculty.
func (r *CatalogoRepository) CreateFacultad(ctx context.Context, item *models.Facultad) error {
	item.FechaCreacion = time.Now().UTC()
	const query = `INSERT INTO facultades (institucion_id, nombre, activa, fecha_creacion) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, item.InstitucionID, item.Nombre, item.Activa, item.FechaCreacion).Scan(&item.ID); err != nil {
		return fmt.Errorf("create facultad: %w", err)
	}
	return nil
}

// UpdateFacultad overwrites name, institution and active flag.
func (r *CatalogoRepository) UpdateFacultad(ctx context.Context, item *models.Facultad) error {
	const query = `UPDATE facultades SET institucion_id = $2, nombre = $3, activa = $4 WHERE id = $1`
	return r.execOne(ctx, "update facultad", query, item.ID, item.InstitucionID, item.Nombre, item.Activa)
}

// FacultadStatistics counts the reports of a faculty per status.
func (r *CatalogoRepository) FacultadStatistics(ctx context.Context, id int64) (*models.FacultadEstadisticas, error) {
	const query = `SELECT f.id AS facultad_id, f.nombre AS facultad_nombre, i.nombre AS institucion_nombre,
	COUNT(d.id) AS total_denuncias,
	COUNT(d.id) FILTER (WHERE d.estado = 'recibida') AS recibidas,
	COUNT(d.id) FILTER (WHERE d.estado = 'en_proceso') AS en_proceso,
	COUNT(d.id) FILTER (WHERE d.estado = 'resuelta') AS resueltas,
	COUNT(d.id) FILTER (WHERE d.estado = 'rechazada') AS rechazadas
FROM facultades f
JOIN instituciones i ON i.id = f.institucion_id
LEFT JOIN denuncias d ON d.facultad_id = f.id
WHERE f.id = $1
GROUP BY f.id, f.nombre, i.nombre`
	var stats models.FacultadEstadisticas
	if err := r.db.GetContext(ctx, &stats, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("facultad statistics: %w", err)
	}
	return &stats, nil
}

// ListRecursosActivos returns active help resources.
func (r *CatalogoRepository) ListRecursosActivos(ctx context.Context) ([]models.Recurso, error) {
	items := []models.Recurso{}
	query := `SELECT ` + recursoColumns + ` FROM recursos WHERE activo = TRUE ORDER BY titulo ASC`
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list recursos: %w", err)
	}
	return items, nil
}

// FindRecurso returns a help resource by id.
func (r *CatalogoRepository) FindRecurso(ctx context.Context, id int64) (*models.Recurso, error) {
	var item models.Recurso
	query := `SELECT ` + recursoColumns + ` FROM recursos WHERE id = $1`
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find recurso: %w", err)
	}
	return &item, nil
}

// CountActiveRecursos reports how many of ids reference active resources.
func (r *CatalogoRepository) CountActiveRecursos(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `SELECT COUNT(*) FROM recursos WHERE activo = TRUE AND id = ANY($1)`
	var total int
	if err := r.db.GetContext(ctx, &total, query, pq.Array(ids)); err != nil {
		return 0, fmt.Errorf("count recursos: %w", err)
	}
	return total, nil
}

// CreateRecurso inserts a help resource.
func (r *CatalogoRepository) CreateRecurso(ctx context.Context, item *models.Recurso) error {
	item.FechaCreacion = time.Now().UTC()
	const query = `INSERT INTO recursos (titulo, descripcion, url, activo, fecha_creacion) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, item.Titulo, item.Descripcion, item.URL, item.Activo, item.FechaCreacion).Scan(&item.ID); err != nil {
		return fmt.Errorf("create recurso: %w", err)
	}
	return nil
}

// UpdateRecurso overwrites every editable field of a help resource.
func (r *CatalogoRepository) UpdateRecurso(ctx context.Context, item *models.Recurso) error {
	const query = `UPDATE recursos SET titulo = $2, descripcion = $3, url = $4, activo = $5 WHERE id = $1`
	return r.execOne(ctx, "update recurso", query, item.ID, item.Titulo, item.Descripcion, item.URL, item.Activo)
}

func (r *CatalogoRepository) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
