package clinic

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound     = errors.New("usuario not found")
	ErrMedicoNotFound   = errors.New("medico not found")
	ErrPacienteNotFound = errors.New("paciente not found")
	ErrServicioNotFound = errors.New("servicio not found")
	ErrCitaNotFound     = errors.New("cita not found")

	// ErrSlotTaken is the storage-level translation of the citas_slot_unico
	// unique-index violation: another non-cancelled cita already occupies
	// the (medico, fecha, hora) slot.
	ErrSlotTaken = errors.New("slot already has a cita for this medico")

	// ErrProfileExists is returned when registration finds the user already
	// promoted out of sin_asignar.
	ErrProfileExists = errors.New("profile already registered for this usuario")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetUserBySubject(ctx context.Context, subject string) (*User, error)
	// EnsureUser returns the user for subject, creating a sin_asignar row if
	// absent. Concurrent first logins for the same subject converge on one row.
	EnsureUser(ctx context.Context, subject string) (*User, error)

	GetMedicoByID(ctx context.Context, id int64) (*Medico, error)
	GetPacienteByID(ctx context.Context, id int64) (*Paciente, error)
	ListMedicos(ctx context.Context) ([]Medico, error)
	ListServicios(ctx context.Context) ([]Servicio, error)

	// Registration runs in one transaction: extension insert plus role
	// promotion guarded by rol='sin_asignar'.
	RegisterMedico(ctx context.Context, userID int64, m Medico) error
	RegisterPaciente(ctx context.Context, userID int64, p Paciente) error

	OccupiedSlots(ctx context.Context, medicoID int64, fecha time.Time) ([]string, error)
	SlotTaken(ctx context.Context, medicoID int64, fecha time.Time, hora string) (bool, error)

	CreateCita(ctx context.Context, c *Cita) (*Cita, error)
	GetCitaByID(ctx context.Context, id int64) (*Cita, error)
	// AssignMedico claims an unassigned Agendada cita for medicoID and moves
	// it to Confirmada in one statement.
	AssignMedico(ctx context.Context, citaID, medicoID int64) (*Cita, error)
	// UpdateCitaEstado is a compare-and-swap on estado; ErrCitaNotFound when
	// no row matched the (id, from) pair.
	UpdateCitaEstado(ctx context.Context, id int64, from, to CitaEstado) (*Cita, error)

	ListCitasByPaciente(ctx context.Context, pacienteID int64) ([]CitaDetalle, error)
	ListCitasByMedico(ctx context.Context, medicoID int64) ([]CitaDetalle, error)
	ListCitasPendientes(ctx context.Context) ([]CitaDetalle, error)

	// HasCitaLink reports whether any cita, in any estado, links the medico
	// and paciente. This is the access-gating basis for clinical records.
	HasCitaLink(ctx context.Context, medicoID, pacienteID int64) (bool, error)

	GetAntecedentes(ctx context.Context, pacienteID int64) ([]Antecedente, error)
	ReplaceAntecedentes(ctx context.Context, pacienteID int64, items []Antecedente) error
	ListHistorial(ctx context.Context, pacienteID int64) ([]HistorialEntrada, error)
	AddHistorialEntrada(ctx context.Context, e *HistorialEntrada) (*HistorialEntrada, error)
	ListEvoluciones(ctx context.Context, pacienteID int64) ([]Evolucion, error)
	AddEvolucion(ctx context.Context, e *Evolucion) (*Evolucion, error)
}
