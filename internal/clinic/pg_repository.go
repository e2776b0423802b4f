package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

var _ Repository = (*PgRepository)(nil)

// Helpers

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// fkViolation reports an FK violation (SQLSTATE 23503) and which constraint
// tripped, so references to missing rows map to not-found instead of a 500.
func fkViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Auth0ID, &u.Rol, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func scanMedico(row pgx.Row) (*Medico, error) {
	var m Medico
	err := row.Scan(&m.ID, &m.Nombre, &m.Apellido, &m.Especialidad, &m.Telefono, &m.Correo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMedicoNotFound
		}
		return nil, err
	}
	return &m, nil
}

func scanPaciente(row pgx.Row) (*Paciente, error) {
	var p Paciente
	err := row.Scan(&p.ID, &p.Nombre, &p.Apellido, &p.FechaNacimiento, &p.Telefono, &p.Correo, &p.Direccion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPacienteNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanCita(row pgx.Row) (*Cita, error) {
	var c Cita
	err := row.Scan(&c.ID, &c.Fecha, &c.Hora, &c.Notas, &c.Estado,
		&c.PacienteID, &c.ServicioID, &c.MedicoID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCitaNotFound
		}
		return nil, err
	}
	return &c, nil
}

const citaColumns = `id_cita, fecha, hora, notas, estado, id_paciente, id_servicio, id_medico, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetUserBySubject(ctx context.Context, subject string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id_usuario, auth0_id, rol, created_at
		FROM usuarios
		WHERE auth0_id = $1
	`, subject)
	return scanUser(row)
}

func (r *PgRepository) EnsureUser(ctx context.Context, subject string) (*User, error) {
	// ON CONFLICT DO NOTHING keeps concurrent first logins from failing;
	// the reselect observes whichever insert won.
	_, err := r.pool.Exec(ctx, `
		INSERT INTO usuarios (auth0_id)
		VALUES ($1)
		ON CONFLICT (auth0_id) DO NOTHING
	`, subject)
	if err != nil {
		return nil, fmt.Errorf("ensure usuario: %w", err)
	}
	return r.GetUserBySubject(ctx, subject)
}

func (r *PgRepository) GetMedicoByID(ctx context.Context, id int64) (*Medico, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id_medico, nombre, apellido, especialidad, telefono, correo
		FROM medicos
		WHERE id_medico = $1
	`, id)
	return scanMedico(row)
}

func (r *PgRepository) GetPacienteByID(ctx context.Context, id int64) (*Paciente, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id_paciente, nombre, apellido, fecha_nacimiento, telefono, correo, direccion
		FROM pacientes
		WHERE id_paciente = $1
	`, id)
	return scanPaciente(row)
}

func (r *PgRepository) ListMedicos(ctx context.Context) ([]Medico, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id_medico, nombre, apellido, especialidad, telefono, correo
		FROM medicos
		ORDER BY apellido, nombre
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Medico
	for rows.Next() {
		m, err := scanMedico(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}
	return result, rows.Err()
}

func (r *PgRepository) ListServicios(ctx context.Context) ([]Servicio, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id_servicio, nombre, descripcion, duracion_min, costo
		FROM servicios
		ORDER BY id_servicio
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Servicio
	for rows.Next() {
		var s Servicio
		if err := rows.Scan(&s.ID, &s.Nombre, &s.Descripcion, &s.DuracionMin, &s.Costo); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *PgRepository) RegisterMedico(ctx context.Context, userID int64, m Medico) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO medicos (id_medico, nombre, apellido, especialidad, telefono, correo)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, userID, m.Nombre, m.Apellido, m.Especialidad, m.Telefono, m.Correo)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrProfileExists
		}
		if _, ok := fkViolation(err); ok {
			return ErrUserNotFound
		}
		return fmt.Errorf("insert medico: %w", err)
	}

	if err := r.promoteRol(ctx, tx, userID, RoleMedico); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PgRepository) RegisterPaciente(ctx context.Context, userID int64, p Paciente) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO pacientes (id_paciente, nombre, apellido, fecha_nacimiento, telefono, correo, direccion)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, userID, p.Nombre, p.Apellido, p.FechaNacimiento, p.Telefono, p.Correo, p.Direccion)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrProfileExists
		}
		if _, ok := fkViolation(err); ok {
			return ErrUserNotFound
		}
		return fmt.Errorf("insert paciente: %w", err)
	}

	if err := r.promoteRol(ctx, tx, userID, RolePaciente); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// promoteRol flips rol exactly once. Zero rows means the user is either
// absent or already assigned; the caller's transaction aborts either way so
// the extension insert never survives alone.
func (r *PgRepository) promoteRol(ctx context.Context, tx pgx.Tx, userID int64, rol Role) error {
	tag, err := tx.Exec(ctx, `
		UPDATE usuarios
		SET rol = $2
		WHERE id_usuario = $1
		  AND rol = 'sin_asignar'
	`, userID, rol)
	if err != nil {
		return fmt.Errorf("promote rol: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM usuarios WHERE id_usuario = $1)`, userID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrUserNotFound
		}
		return ErrProfileExists
	}
	return nil
}

func (r *PgRepository) OccupiedSlots(ctx context.Context, medicoID int64, fecha time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT hora
		FROM citas
		WHERE id_medico = $1
		  AND fecha = $2
		  AND estado <> 'Cancelada'
		ORDER BY hora
	`, medicoID, fecha)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var hora string
		if err := rows.Scan(&hora); err != nil {
			return nil, err
		}
		result = append(result, hora)
	}
	return result, rows.Err()
}

func (r *PgRepository) SlotTaken(ctx context.Context, medicoID int64, fecha time.Time, hora string) (bool, error) {
	var taken bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM citas
			WHERE id_medico = $1
			  AND fecha = $2
			  AND hora = $3
			  AND estado <> 'Cancelada'
		)
	`, medicoID, fecha, hora).Scan(&taken)
	return taken, err
}

func (r *PgRepository) CreateCita(ctx context.Context, c *Cita) (*Cita, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO citas (fecha, hora, notas, estado, id_paciente, id_servicio, id_medico)
		VALUES ($1, $2, $3, 'Agendada', $4, $5, $6)
		RETURNING `+citaColumns+`
	`, c.Fecha, c.Hora, c.Notas, c.PacienteID, c.ServicioID, c.MedicoID)

	created, err := scanCita(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		if constraint, ok := fkViolation(err); ok {
			switch {
			case strings.Contains(constraint, "servicio"):
				return nil, ErrServicioNotFound
			case strings.Contains(constraint, "medico"):
				return nil, ErrMedicoNotFound
			default:
				return nil, ErrPacienteNotFound
			}
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) GetCitaByID(ctx context.Context, id int64) (*Cita, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+citaColumns+`
		FROM citas
		WHERE id_cita = $1
	`, id)
	return scanCita(row)
}

func (r *PgRepository) AssignMedico(ctx context.Context, citaID, medicoID int64) (*Cita, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE citas
		SET id_medico = $2,
		    estado = 'Confirmada',
		    updated_at = now()
		WHERE id_cita = $1
		  AND id_medico IS NULL
		  AND estado = 'Agendada'
		RETURNING `+citaColumns+`
	`, citaID, medicoID)

	updated, err := scanCita(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return updated, nil
}

func (r *PgRepository) UpdateCitaEstado(ctx context.Context, id int64, from, to CitaEstado) (*Cita, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE citas
		SET estado = $3,
		    updated_at = now()
		WHERE id_cita = $1
		  AND estado = $2
		RETURNING `+citaColumns+`
	`, id, from, to)
	return scanCita(row)
}

const citaDetalleQuery = `
	SELECT c.id_cita, c.fecha, c.hora, c.notas, c.estado,
	       c.id_paciente, c.id_servicio, c.id_medico, c.created_at, c.updated_at,
	       s.nombre,
	       COALESCE(m.nombre || ' ' || m.apellido, ''),
	       COALESCE(p.nombre || ' ' || p.apellido, '')
	FROM citas c
	JOIN servicios s ON s.id_servicio = c.id_servicio
	LEFT JOIN medicos m ON m.id_medico = c.id_medico
	JOIN pacientes p ON p.id_paciente = c.id_paciente
`

func (r *PgRepository) queryCitaDetalles(ctx context.Context, query string, args ...any) ([]CitaDetalle, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CitaDetalle
	for rows.Next() {
		var d CitaDetalle
		err := rows.Scan(&d.ID, &d.Fecha, &d.Hora, &d.Notas, &d.Estado,
			&d.PacienteID, &d.ServicioID, &d.MedicoID, &d.CreatedAt, &d.UpdatedAt,
			&d.ServicioNombre, &d.MedicoNombre, &d.PacienteNombre)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (r *PgRepository) ListCitasByPaciente(ctx context.Context, pacienteID int64) ([]CitaDetalle, error) {
	return r.queryCitaDetalles(ctx, citaDetalleQuery+`
		WHERE c.id_paciente = $1
		ORDER BY c.fecha, c.hora
	`, pacienteID)
}

func (r *PgRepository) ListCitasByMedico(ctx context.Context, medicoID int64) ([]CitaDetalle, error) {
	return r.queryCitaDetalles(ctx, citaDetalleQuery+`
		WHERE c.id_medico = $1
		ORDER BY c.fecha, c.hora
	`, medicoID)
}

func (r *PgRepository) ListCitasPendientes(ctx context.Context) ([]CitaDetalle, error) {
	return r.queryCitaDetalles(ctx, citaDetalleQuery+`
		WHERE c.id_medico IS NULL
		  AND c.estado = 'Agendada'
		ORDER BY c.fecha, c.hora
	`)
}

func (r *PgRepository) HasCitaLink(ctx context.Context, medicoID, pacienteID int64) (bool, error) {
	var linked bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM citas
			WHERE id_medico = $1
			  AND id_paciente = $2
		)
	`, medicoID, pacienteID).Scan(&linked)
	return linked, err
}

func (r *PgRepository) GetAntecedentes(ctx context.Context, pacienteID int64) ([]Antecedente, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id_antecedente, id_paciente, tipo, descripcion
		FROM antecedentes
		WHERE id_paciente = $1
		ORDER BY id_antecedente
	`, pacienteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Antecedente
	for rows.Next() {
		var a Antecedente
		if err := rows.Scan(&a.ID, &a.PacienteID, &a.Tipo, &a.Descripcion); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// ReplaceAntecedentes swaps the whole antecedent set in one transaction so a
// reader never observes a half-replaced list.
func (r *PgRepository) ReplaceAntecedentes(ctx context.Context, pacienteID int64, items []Antecedente) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM antecedentes WHERE id_paciente = $1`, pacienteID); err != nil {
		return fmt.Errorf("delete antecedentes: %w", err)
	}
	for _, a := range items {
		_, err := tx.Exec(ctx, `
			INSERT INTO antecedentes (id_paciente, tipo, descripcion)
			VALUES ($1, $2, $3)
		`, pacienteID, a.Tipo, a.Descripcion)
		if err != nil {
			return fmt.Errorf("insert antecedente: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (r *PgRepository) ListHistorial(ctx context.Context, pacienteID int64) ([]HistorialEntrada, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id_entrada, id_paciente, fecha, descripcion
		FROM historial_odontologico
		WHERE id_paciente = $1
		ORDER BY fecha DESC, id_entrada DESC
	`, pacienteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []HistorialEntrada
	for rows.Next() {
		var e HistorialEntrada
		if err := rows.Scan(&e.ID, &e.PacienteID, &e.Fecha, &e.Descripcion); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (r *PgRepository) AddHistorialEntrada(ctx context.Context, e *HistorialEntrada) (*HistorialEntrada, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO historial_odontologico (id_paciente, fecha, descripcion)
		VALUES ($1, $2, $3)
		RETURNING id_entrada, id_paciente, fecha, descripcion
	`, e.PacienteID, e.Fecha, e.Descripcion)

	var created HistorialEntrada
	if err := row.Scan(&created.ID, &created.PacienteID, &created.Fecha, &created.Descripcion); err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *PgRepository) ListEvoluciones(ctx context.Context, pacienteID int64) ([]Evolucion, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id_evolucion, id_paciente, id_medico, descripcion, created_at
		FROM evoluciones
		WHERE id_paciente = $1
		ORDER BY created_at DESC
	`, pacienteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Evolucion
	for rows.Next() {
		var e Evolucion
		if err := rows.Scan(&e.ID, &e.PacienteID, &e.MedicoID, &e.Descripcion, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (r *PgRepository) AddEvolucion(ctx context.Context, e *Evolucion) (*Evolucion, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO evoluciones (id_paciente, id_medico, descripcion)
		VALUES ($1, $2, $3)
		RETURNING id_evolucion, id_paciente, id_medico, descripcion, created_at
	`, e.PacienteID, e.MedicoID, e.Descripcion)

	var created Evolucion
	if err := row.Scan(&created.ID, &created.PacienteID, &created.MedicoID, &created.Descripcion, &created.CreatedAt); err != nil {
		return nil, err
	}
	return &created, nil
}
