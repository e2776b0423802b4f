package clinic

import (
	"fmt"
	"time"
)

// Role is the closed set of user roles. A user starts as RoleUnassigned and
// is promoted exactly once through profile registration.
type Role string

const (
	RoleUnassigned Role = "sin_asignar"
	RoleMedico     Role = "Medico"
	RolePaciente   Role = "Paciente"
)

// ParseRole accepts only the two registrable roles.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleMedico:
		return RoleMedico, nil
	case RolePaciente:
		return RolePaciente, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrRolInvalido, s)
	}
}

type CitaEstado string

const (
	EstadoAgendada   CitaEstado = "Agendada"
	EstadoConfirmada CitaEstado = "Confirmada"
	EstadoCancelada  CitaEstado = "Cancelada"
	EstadoCompletada CitaEstado = "Completada"
)

// Terminal reports whether no further transition is accepted from e.
func (e CitaEstado) Terminal() bool {
	return e == EstadoCancelada || e == EstadoCompletada
}

type User struct {
	ID        int64
	Auth0ID   string
	Rol       Role
	CreatedAt time.Time
}

type Medico struct {
	ID           int64
	Nombre       string
	Apellido     string
	Especialidad string
	Telefono     string
	Correo       string
}

type Paciente struct {
	ID              int64
	Nombre          string
	Apellido        string
	FechaNacimiento *time.Time
	Telefono        string
	Correo          string
	Direccion       string
}

type Servicio struct {
	ID          int64
	Nombre      string
	Descripcion string
	DuracionMin int
	Costo       float64
}

// Cita is the central entity. MedicoID is nil until a medico accepts an
// unassigned cita. Hora is "HH:MM"; Fecha carries only the calendar date.
type Cita struct {
	ID         int64
	Fecha      time.Time
	Hora       string
	Notas      string
	Estado     CitaEstado
	PacienteID int64
	ServicioID int64
	MedicoID   *int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CitaDetalle joins display names onto a cita for the listing endpoints.
type CitaDetalle struct {
	Cita
	ServicioNombre string
	MedicoNombre   string
	PacienteNombre string
}

type Antecedente struct {
	ID          int64
	PacienteID  int64
	Tipo        string
	Descripcion string
}

type HistorialEntrada struct {
	ID          int64
	PacienteID  int64
	Fecha       time.Time
	Descripcion string
}

type Evolucion struct {
	ID          int64
	PacienteID  int64
	MedicoID    int64
	Descripcion string
	CreatedAt   time.Time
}

// Profile is the role-resolved view of a user. Exactly one of Medico or
// Paciente is set when Rol is assigned; both are nil for RoleUnassigned.
type Profile struct {
	User
	Medico   *Medico
	Paciente *Paciente
}
