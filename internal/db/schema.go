package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is the bootstrap DDL. Statements are idempotent so Bootstrap can run
// on every startup. The partial unique index citas_slot_unico is what makes
// double-booking detection atomic: a concurrent insert for the same
// (medico, fecha, hora) fails with SQLSTATE 23505 instead of racing the
// application-level conflict check.
const schema = `
CREATE TABLE IF NOT EXISTS usuarios (
	id_usuario BIGSERIAL PRIMARY KEY,
	auth0_id   TEXT NOT NULL UNIQUE,
	rol        TEXT NOT NULL DEFAULT 'sin_asignar'
	           CHECK (rol IN ('sin_asignar', 'Medico', 'Paciente')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS medicos (
	id_medico    BIGINT PRIMARY KEY REFERENCES usuarios(id_usuario),
	nombre       TEXT NOT NULL,
	apellido     TEXT NOT NULL,
	especialidad TEXT NOT NULL DEFAULT '',
	telefono     TEXT NOT NULL DEFAULT '',
	correo       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS pacientes (
	id_paciente      BIGINT PRIMARY KEY REFERENCES usuarios(id_usuario),
	nombre           TEXT NOT NULL,
	apellido         TEXT NOT NULL,
	fecha_nacimiento DATE,
	telefono         TEXT NOT NULL DEFAULT '',
	correo           TEXT NOT NULL DEFAULT '',
	direccion        TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS servicios (
	id_servicio  BIGSERIAL PRIMARY KEY,
	nombre       TEXT NOT NULL,
	descripcion  TEXT NOT NULL DEFAULT '',
	duracion_min INT NOT NULL DEFAULT 30,
	costo        NUMERIC(10,2) NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS citas (
	id_cita     BIGSERIAL PRIMARY KEY,
	fecha       DATE NOT NULL,
	hora        TEXT NOT NULL,
	notas       TEXT NOT NULL DEFAULT '',
	estado      TEXT NOT NULL DEFAULT 'Agendada'
	            CHECK (estado IN ('Agendada', 'Confirmada', 'Cancelada', 'Completada')),
	id_paciente BIGINT NOT NULL REFERENCES pacientes(id_paciente),
	id_servicio BIGINT NOT NULL REFERENCES servicios(id_servicio),
	id_medico   BIGINT REFERENCES medicos(id_medico),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS citas_slot_unico
	ON citas (id_medico, fecha, hora)
	WHERE estado <> 'Cancelada' AND id_medico IS NOT NULL;

CREATE INDEX IF NOT EXISTS citas_paciente_idx ON citas (id_paciente);
CREATE INDEX IF NOT EXISTS citas_medico_fecha_idx ON citas (id_medico, fecha);

CREATE TABLE IF NOT EXISTS antecedentes (
	id_antecedente BIGSERIAL PRIMARY KEY,
	id_paciente    BIGINT NOT NULL REFERENCES pacientes(id_paciente),
	tipo           TEXT NOT NULL,
	descripcion    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS antecedentes_paciente_idx ON antecedentes (id_paciente);

CREATE TABLE IF NOT EXISTS historial_odontologico (
	id_entrada  BIGSERIAL PRIMARY KEY,
	id_paciente BIGINT NOT NULL REFERENCES pacientes(id_paciente),
	fecha       DATE NOT NULL,
	descripcion TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS historial_paciente_idx ON historial_odontologico (id_paciente);

CREATE TABLE IF NOT EXISTS evoluciones (
	id_evolucion BIGSERIAL PRIMARY KEY,
	id_paciente  BIGINT NOT NULL REFERENCES pacientes(id_paciente),
	id_medico    BIGINT NOT NULL REFERENCES medicos(id_medico),
	descripcion  TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS evoluciones_paciente_idx ON evoluciones (id_paciente);
`

// Bootstrap applies the schema. Safe to call on every startup.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
