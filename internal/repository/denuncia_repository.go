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

// MaxReportListLimit bounds every report listing.
const MaxReportListLimit = 500

// ReportCodeConstraint is the unique constraint on denuncias.codigo.
const ReportCodeConstraint = "denuncias_codigo_key"

const denunciaResumenSelect = `SELECT d.id, d.codigo, d.tipo, d.descripcion, d.fecha_incidente, d.gravedad, d.estado,
	d.facultad_id, d.usuario_id, d.anonima, d.fecha_creacion, d.fecha_actualizacion,
	u.nombre AS usuario_nombre, u.email AS usuario_email,
	f.nombre AS facultad_nombre, i.nombre AS institucion_nombre, i.ciudad AS institucion_ciudad
FROM denuncias d
JOIN facultades f ON f.id = d.facultad_id
JOIN instituciones i ON i.id = f.institucion_id
LEFT JOIN usuarios u ON u.id = d.usuario_id`

// DenunciaRepository persists reports and their child records.
type DenunciaRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewDenunciaRepository constructs the repository.
func NewDenunciaRepository(db *sqlx.DB) *DenunciaRepository {
	return &DenunciaRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create allocates the next yearly code and inserts the report as recibida.
// A unique violation on ReportCodeConstraint means the counter lags the stored
// codes: the counter is moved past the highest existing code and the wrapped
// violation is returned, so callers can detect it with IsUniqueViolation and retry.
func (r *DenunciaRepository) Create(ctx context.Context, denuncia *models.Denuncia) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin denuncia transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := r.now()
	year := now.Year()

	const seqQuery = `INSERT INTO denuncia_secuencias (anio, ultimo) VALUES ($1, 1)
ON CONFLICT (anio) DO UPDATE SET ultimo = denuncia_secuencias.ultimo + 1
RETURNING ultimo`
	var seq int64
	if err = tx.QueryRowxContext(ctx, seqQuery, year).Scan(&seq); err != nil {
		return fmt.Errorf("next denuncia sequence: %w", err)
	}

	denuncia.Codigo = models.FormatReportCode(year, seq)
	denuncia.Estado = models.StatusRecibida
	denuncia.FechaCreacion = now
	denuncia.FechaActualizacion = now

	const insertQuery = `INSERT INTO denuncias (codigo, tipo, descripcion, fecha_incidente, gravedad, estado, facultad_id, usuario_id, anonima, fecha_creacion, fecha_actualizacion)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	if err = tx.QueryRowxContext(ctx, insertQuery,
		denuncia.Codigo, denuncia.Tipo, denuncia.Descripcion, denuncia.FechaIncidente, denuncia.Gravedad,
		denuncia.Estado, denuncia.FacultadID, denuncia.UsuarioID, denuncia.Anonima, denuncia.FechaCreacion, denuncia.FechaActualizacion,
	).Scan(&denuncia.ID); err != nil {
		err = fmt.Errorf("insert denuncia: %w", err)
		if IsUniqueViolation(err, ReportCodeConstraint) {
			_ = tx.Rollback()
			if syncErr := r.SyncSequence(ctx, year); syncErr != nil {
				err = errors.Join(err, syncErr)
			}
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit denuncia: %w", err)
	}
	return nil
}

// SyncSequence raises the counter of year to the highest code suffix stored
// for that year. It never lowers the counter.
func (r *DenunciaRepository) SyncSequence(ctx context.Context, year int) error {
	const query = `INSERT INTO denuncia_secuencias (anio, ultimo)
SELECT $1, COALESCE(MAX(CAST(SUBSTRING(codigo FROM 9) AS BIGINT)), 0)
FROM denuncias WHERE codigo LIKE $2
ON CONFLICT (anio) DO UPDATE SET ultimo = GREATEST(denuncia_secuencias.ultimo, EXCLUDED.ultimo)`
	pattern := fmt.Sprintf("%s%04d%%", models.ReportCodePrefix, year)
	if _, err := r.db.ExecContext(ctx, query, year, pattern); err != nil {
		return fmt.Errorf("sync denuncia sequence %d: %w", year, err)
	}
	return nil
}

// FindByID loads the report with its attachments, follow-ups, attentions and resources.
func (r *DenunciaRepository) FindByID(ctx context.Context, id int64) (*models.DenunciaDetail, error) {
	var detail models.DenunciaDetail
	if err := r.db.GetContext(ctx, &detail.DenunciaResumen, denunciaResumenSelect+` WHERE d.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find denuncia: %w", err)
	}

	detail.Archivos = []models.Archivo{}
	const archivosQuery = `SELECT id, denuncia_id, nombre, tipo, ruta, tamano_bytes, fecha_subida
FROM archivos WHERE denuncia_id = $1 ORDER BY fecha_subida ASC, id ASC`
	if err := r.db.SelectContext(ctx, &detail.Archivos, archivosQuery, id); err != nil {
		return nil, fmt.Errorf("list denuncia archivos: %w", err)
	}

	detail.Seguimiento = []models.Seguimiento{}
	const seguimientoQuery = `SELECT s.id, s.denuncia_id, s.estado_anterior, s.estado_nuevo, s.comentario, s.actor_id, s.actor_rol,
	CASE WHEN s.actor_rol = 'admin' THEN a.nombre ELSE u.nombre END AS actor_nombre, s.fecha
FROM seguimiento_denuncia s
LEFT JOIN administradores a ON s.actor_rol = 'admin' AND a.id = s.actor_id
LEFT JOIN usuarios u ON s.actor_rol <> 'admin' AND u.id = s.actor_id
WHERE s.denuncia_id = $1
ORDER BY s.fecha DESC, s.id DESC`
	if err := r.db.SelectContext(ctx, &detail.Seguimiento, seguimientoQuery, id); err != nil {
		return nil, fmt.Errorf("list denuncia seguimiento: %w", err)
	}

	detail.Atenciones = []models.Atencion{}
	const atencionesQuery = `SELECT at.id, at.denuncia_id, at.admin_id, a.nombre AS admin_nombre, at.tipo_atencion, at.modalidad, at.descripcion, at.fecha
FROM atenciones at
LEFT JOIN administradores a ON a.id = at.admin_id
WHERE at.denuncia_id = $1
ORDER BY at.fecha DESC, at.id DESC`
	if err := r.db.SelectContext(ctx, &detail.Atenciones, atencionesQuery, id); err != nil {
		return nil, fmt.Errorf("list denuncia atenciones: %w", err)
	}

	detail.Recursos = []models.Recurso{}
	const recursosQuery = `SELECT r.id, r.titulo, r.descripcion, r.url, r.activo, r.fecha_creacion
FROM denuncia_recurso dr
JOIN recursos r ON r.id = dr.recurso_id
WHERE dr.denuncia_id = $1
ORDER BY dr.fecha_asignacion ASC, r.id ASC`
	if err := r.db.SelectContext(ctx, &detail.Recursos, recursosQuery, id); err != nil {
		return nil, fmt.Errorf("list denuncia recursos: %w", err)
	}

	return &detail, nil
}

// FindIDByCode resolves a public code to the report id.
func (r *DenunciaRepository) FindIDByCode(ctx context.Context, codigo string) (int64, error) {
	var id int64
	if err := r.db.GetContext(ctx, &id, `SELECT id FROM denuncias WHERE codigo = $1`, codigo); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
		return 0, fmt.Errorf("find denuncia by code: %w", err)
	}
	return id, nil
}

// ListByOwner returns the reports of a usuario, newest first.
func (r *DenunciaRepository) ListByOwner(ctx context.Context, usuarioID int64) ([]models.DenunciaResumen, error) {
	query := denunciaResumenSelect + ` WHERE d.usuario_id = $1 ORDER BY d.fecha_creacion DESC, d.id DESC`
	items := []models.DenunciaResumen{}
	if err := r.db.SelectContext(ctx, &items, query, usuarioID); err != nil {
		return nil, fmt.Errorf("list denuncias by owner: %w", err)
	}
	return items, nil
}

// List returns reports matching every set filter, newest first.
func (r *DenunciaRepository) List(ctx context.Context, filter models.DenunciaFilter) ([]models.DenunciaResumen, error) {
	var conditions []string
	var args []interface{}

	if filter.Estado != nil {
		conditions = append(conditions, fmt.Sprintf("d.estado = $%d", len(args)+1))
		args = append(args, *filter.Estado)
	}
	if filter.Gravedad != nil {
		conditions = append(conditions, fmt.Sprintf("d.gravedad = $%d", len(args)+1))
		args = append(args, *filter.Gravedad)
	}
	if filter.FacultadID != nil {
		conditions = append(conditions, fmt.Sprintf("d.facultad_id = $%d", len(args)+1))
		args = append(args, *filter.FacultadID)
	}

	limit := filter.Limite
	if limit <= 0 || limit > MaxReportListLimit {
		limit = MaxReportListLimit
	}

	query := denunciaResumenSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY d.fecha_creacion DESC, d.id DESC LIMIT %d", limit)

	items := []models.DenunciaResumen{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list denuncias: %w", err)
	}
	return items, nil
}

// UpdateStatus moves a report from change.From to change.To and appends a
// follow-up row. ErrStaleState is returned when the stored status no longer
// equals change.From.
func (r *DenunciaRepository) UpdateStatus(ctx context.Context, change models.StatusChange) (entry *models.Seguimiento, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin status transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := r.now()
	const updateQuery = `UPDATE denuncias SET estado = $3, fecha_actualizacion = $4 WHERE id = $1 AND estado = $2`
	res, err := tx.ExecContext(ctx, updateQuery, change.DenunciaID, change.From, change.To, now)
	if err != nil {
		return nil, fmt.Errorf("update denuncia status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update denuncia status: %w", err)
	}
	if affected == 0 {
		err = ErrStaleState
		return nil, err
	}

	from := change.From
	entry = &models.Seguimiento{
		DenunciaID:     change.DenunciaID,
		EstadoAnterior: &from,
		EstadoNuevo:    change.To,
		Comentario:     change.Comentario,
		ActorID:        change.ActorID,
		ActorRol:       change.ActorRol,
		Fecha:          now,
	}
	const insertQuery = `INSERT INTO seguimiento_denuncia (denuncia_id, estado_anterior, estado_nuevo, comentario, actor_id, actor_rol, fecha)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err = tx.QueryRowxContext(ctx, insertQuery,
		entry.DenunciaID, entry.EstadoAnterior, entry.EstadoNuevo, entry.Comentario, entry.ActorID, entry.ActorRol, entry.Fecha,
	).Scan(&entry.ID); err != nil {
		return nil, fmt.Errorf("insert seguimiento: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit status transaction: %w", err)
	}
	return entry, nil
}

// Update overwrites the editable fields. Status and code are never touched.
func (r *DenunciaRepository) Update(ctx context.Context, denuncia *models.Denuncia) error {
	denuncia.FechaActualizacion = r.now()
	const query = `UPDATE denuncias SET tipo = :tipo, descripcion = :descripcion, fecha_incidente = :fecha_incidente,
	gravedad = :gravedad, facultad_id = :facultad_id, fecha_actualizacion = :fecha_actualizacion
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, denuncia)
	if err != nil {
		return fmt.Errorf("update denuncia: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddAttachment stores the metadata of an uploaded file.
func (r *DenunciaRepository) AddAttachment(ctx context.Context, archivo *models.Archivo) error {
	if archivo.FechaSubida.IsZero() {
		archivo.FechaSubida = r.now()
	}
	const query = `INSERT INTO archivos (denuncia_id, nombre, tipo, ruta, tamano_bytes, fecha_subida)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		archivo.DenunciaID, archivo.Nombre, archivo.Tipo, archivo.Ruta, archivo.TamanoBytes, archivo.FechaSubida,
	).Scan(&archivo.ID); err != nil {
		return fmt.Errorf("insert archivo: %w", err)
	}
	return nil
}

// FindAttachment returns a stored attachment by id.
func (r *DenunciaRepository) FindAttachment(ctx context.Context, id int64) (*models.Archivo, error) {
	const query = `SELECT id, denuncia_id, nombre, tipo, ruta, tamano_bytes, fecha_subida FROM archivos WHERE id = $1`
	var archivo models.Archivo
	if err := r.db.GetContext(ctx, &archivo, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find archivo: %w", err)
	}
	return &archivo, nil
}

// ReplaceResources swaps the full set of help resources assigned to a report.
func (r *DenunciaRepository) ReplaceResources(ctx context.Context, denunciaID int64, recursoIDs []int64) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin recursos transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM denuncia_recurso WHERE denuncia_id = $1`, denunciaID); err != nil {
		return fmt.Errorf("clear denuncia recursos: %w", err)
	}

	now := r.now()
	const insertQuery = `INSERT INTO denuncia_recurso (denuncia_id, recurso_id, fecha_asignacion) VALUES ($1, $2, $3)
ON CONFLICT (denuncia_id, recurso_id) DO NOTHING`
	for _, recursoID := range recursoIDs {
		if _, err = tx.ExecContext(ctx, insertQuery, denunciaID, recursoID, now); err != nil {
			return fmt.Errorf("assign recurso %d: %w", recursoID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit recursos transaction: %w", err)
	}
	return nil
}

// RecordAttention appends an attention record.
func (r *DenunciaRepository) RecordAttention(ctx context.Context, atencion *models.Atencion) error {
	if atencion.Fecha.IsZero() {
		atencion.Fecha = r.now()
	}
	if atencion.Modalidad == "" {
		atencion.Modalidad = models.ModalidadVirtual
	}
	const query = `INSERT INTO atenciones (denuncia_id, admin_id, tipo_atencion, modalidad, descripcion, fecha)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		atencion.DenunciaID, atencion.AdminID, atencion.TipoAtencion, atencion.Modalidad, atencion.Descripcion, atencion.Fecha,
	).Scan(&atencion.ID); err != nil {
		return fmt.Errorf("insert atencion: %w", err)
	}
	return nil
}

// Delete removes a report; child rows cascade.
func (r *DenunciaRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM denuncias WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete denuncia: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Statistics counts reports per status together with the registered usuarios.
func (r *DenunciaRepository) Statistics(ctx context.Context) (*models.Estadisticas, error) {
	const query = `SELECT COUNT(*) AS total_denuncias,
	COUNT(*) FILTER (WHERE estado = 'recibida') AS recibidas,
	COUNT(*) FILTER (WHERE estado = 'en_proceso') AS en_proceso,
	COUNT(*) FILTER (WHERE estado = 'resuelta') AS resueltas,
	COUNT(*) FILTER (WHERE estado = 'rechazada') AS rechazadas,
	(SELECT COUNT(*) FROM usuarios) AS total_usuarios
FROM denuncias`
	var stats models.Estadisticas
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("denuncia statistics: %w", err)
	}
	return &stats, nil
}
