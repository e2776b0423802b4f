package clinic

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicasonrisas/citas-backend/internal/notify"
)

// fakeRepository implements Repository with per-method func fields. Methods
// without a hook return the matching not-found sentinel.
type fakeRepository struct {
	GetUserBySubjectFn    func(ctx context.Context, subject string) (*User, error)
	EnsureUserFn          func(ctx context.Context, subject string) (*User, error)
	GetMedicoByIDFn       func(ctx context.Context, id int64) (*Medico, error)
	GetPacienteByIDFn     func(ctx context.Context, id int64) (*Paciente, error)
	ListMedicosFn         func(ctx context.Context) ([]Medico, error)
	ListServiciosFn       func(ctx context.Context) ([]Servicio, error)
	RegisterMedicoFn      func(ctx context.Context, userID int64, m Medico) error
	RegisterPacienteFn    func(ctx context.Context, userID int64, p Paciente) error
	OccupiedSlotsFn       func(ctx context.Context, medicoID int64, fecha time.Time) ([]string, error)
	SlotTakenFn           func(ctx context.Context, medicoID int64, fecha time.Time, hora string) (bool, error)
	CreateCitaFn          func(ctx context.Context, c *Cita) (*Cita, error)
	GetCitaByIDFn         func(ctx context.Context, id int64) (*Cita, error)
	AssignMedicoFn        func(ctx context.Context, citaID, medicoID int64) (*Cita, error)
	UpdateCitaEstadoFn    func(ctx context.Context, id int64, from, to CitaEstado) (*Cita, error)
	ListCitasByPacienteFn func(ctx context.Context, pacienteID int64) ([]CitaDetalle, error)
	ListCitasByMedicoFn   func(ctx context.Context, medicoID int64) ([]CitaDetalle, error)
	ListCitasPendientesFn func(ctx context.Context) ([]CitaDetalle, error)
	HasCitaLinkFn         func(ctx context.Context, medicoID, pacienteID int64) (bool, error)
	GetAntecedentesFn     func(ctx context.Context, pacienteID int64) ([]Antecedente, error)
	ReplaceAntecedentesFn func(ctx context.Context, pacienteID int64, items []Antecedente) error
	ListHistorialFn       func(ctx context.Context, pacienteID int64) ([]HistorialEntrada, error)
	AddHistorialEntradaFn func(ctx context.Context, e *HistorialEntrada) (*HistorialEntrada, error)
	ListEvolucionesFn     func(ctx context.Context, pacienteID int64) ([]Evolucion, error)
	AddEvolucionFn        func(ctx context.Context, e *Evolucion) (*Evolucion, error)
}

var _ Repository = (*fakeRepository)(nil)

func (f *fakeRepository) GetUserBySubject(ctx context.Context, subject string) (*User, error) {
	if f.GetUserBySubjectFn != nil {
		return f.GetUserBySubjectFn(ctx, subject)
	}
	return nil, ErrUserNotFound
}

func (f *fakeRepository) EnsureUser(ctx context.Context, subject string) (*User, error) {
	if f.EnsureUserFn != nil {
		return f.EnsureUserFn(ctx, subject)
	}
	return nil, ErrUserNotFound
}

func (f *fakeRepository) GetMedicoByID(ctx context.Context, id int64) (*Medico, error) {
	if f.GetMedicoByIDFn != nil {
		return f.GetMedicoByIDFn(ctx, id)
	}
	return nil, ErrMedicoNotFound
}

func (f *fakeRepository) GetPacienteByID(ctx context.Context, id int64) (*Paciente, error) {
	if f.GetPacienteByIDFn != nil {
		return f.GetPacienteByIDFn(ctx, id)
	}
	return nil, ErrPacienteNotFound
}

func (f *fakeRepository) ListMedicos(ctx context.Context) ([]Medico, error) {
	if f.ListMedicosFn != nil {
		return f.ListMedicosFn(ctx)
	}
	return nil, nil
}

func (f *fakeRepository) ListServicios(ctx context.Context) ([]Servicio, error) {
	if f.ListServiciosFn != nil {
		return f.ListServiciosFn(ctx)
	}
	return nil, nil
}

func (f *fakeRepository) RegisterMedico(ctx context.Context, userID int64, m Medico) error {
	if f.RegisterMedicoFn != nil {
		return f.RegisterMedicoFn(ctx, userID, m)
	}
	return nil
}

func (f *fakeRepository) RegisterPaciente(ctx context.Context, userID int64, p Paciente) error {
	if f.RegisterPacienteFn != nil {
		return f.RegisterPacienteFn(ctx, userID, p)
	}
	return nil
}

func (f *fakeRepository) OccupiedSlots(ctx context.Context, medicoID int64, fecha time.Time) ([]string, error) {
	if f.OccupiedSlotsFn != nil {
		return f.OccupiedSlotsFn(ctx, medicoID, fecha)
	}
	return nil, nil
}

func (f *fakeRepository) SlotTaken(ctx context.Context, medicoID int64, fecha time.Time, hora string) (bool, error) {
	if f.SlotTakenFn != nil {
		return f.SlotTakenFn(ctx, medicoID, fecha, hora)
	}
	return false, nil
}

func (f *fakeRepository) CreateCita(ctx context.Context, c *Cita) (*Cita, error) {
	if f.CreateCitaFn != nil {
		return f.CreateCitaFn(ctx, c)
	}
	return nil, ErrCitaNotFound
}

func (f *fakeRepository) GetCitaByID(ctx context.Context, id int64) (*Cita, error) {
	if f.GetCitaByIDFn != nil {
		return f.GetCitaByIDFn(ctx, id)
	}
	return nil, ErrCitaNotFound
}

func (f *fakeRepository) AssignMedico(ctx context.Context, citaID, medicoID int64) (*Cita, error) {
	if f.AssignMedicoFn != nil {
		return f.AssignMedicoFn(ctx, citaID, medicoID)
	}
	return nil, ErrCitaNotFound
}

func (f *fakeRepository) UpdateCitaEstado(ctx context.Context, id int64, from, to CitaEstado) (*Cita, error) {
	if f.UpdateCitaEstadoFn != nil {
		return f.UpdateCitaEstadoFn(ctx, id, from, to)
	}
	return nil, ErrCitaNotFound
}

func (f *fakeRepository) ListCitasByPaciente(ctx context.Context, pacienteID int64) ([]CitaDetalle, error) {
	if f.ListCitasByPacienteFn != nil {
		return f.ListCitasByPacienteFn(ctx, pacienteID)
	}
	return nil, nil
}

func (f *fakeRepository) ListCitasByMedico(ctx context.Context, medicoID int64) ([]CitaDetalle, error) {
	if f.ListCitasByMedicoFn != nil {
		return f.ListCitasByMedicoFn(ctx, medicoID)
	}
	return nil, nil
}

func (f *fakeRepository) ListCitasPendientes(ctx context.Context) ([]CitaDetalle, error) {
	if f.ListCitasPendientesFn != nil {
		return f.ListCitasPendientesFn(ctx)
	}
	return nil, nil
}

func (f *fakeRepository) HasCitaLink(ctx context.Context, medicoID, pacienteID int64) (bool, error) {
	if f.HasCitaLinkFn != nil {
		return f.HasCitaLinkFn(ctx, medicoID, pacienteID)
	}
	return false, nil
}

func (f *fakeRepository) GetAntecedentes(ctx context.Context, pacienteID int64) ([]Antecedente, error) {
	if f.GetAntecedentesFn != nil {
		return f.GetAntecedentesFn(ctx, pacienteID)
	}
	return nil, nil
}

func (f *fakeRepository) ReplaceAntecedentes(ctx context.Context, pacienteID int64, items []Antecedente) error {
	if f.ReplaceAntecedentesFn != nil {
		return f.ReplaceAntecedentesFn(ctx, pacienteID, items)
	}
	return nil
}

func (f *fakeRepository) ListHistorial(ctx context.Context, pacienteID int64) ([]HistorialEntrada, error) {
	if f.ListHistorialFn != nil {
		return f.ListHistorialFn(ctx, pacienteID)
	}
	return nil, nil
}

func (f *fakeRepository) AddHistorialEntrada(ctx context.Context, e *HistorialEntrada) (*HistorialEntrada, error) {
	if f.AddHistorialEntradaFn != nil {
		return f.AddHistorialEntradaFn(ctx, e)
	}
	return e, nil
}

func (f *fakeRepository) ListEvoluciones(ctx context.Context, pacienteID int64) ([]Evolucion, error) {
	if f.ListEvolucionesFn != nil {
		return f.ListEvolucionesFn(ctx, pacienteID)
	}
	return nil, nil
}

func (f *fakeRepository) AddEvolucion(ctx context.Context, e *Evolucion) (*Evolucion, error) {
	if f.AddEvolucionFn != nil {
		return f.AddEvolucionFn(ctx, e)
	}
	return e, nil
}

// fakeNotifier records enqueued messages.
type fakeNotifier struct {
	EnqueueFn func(ctx context.Context, msg notify.Message) error
	Sent      []notify.Message
}

var _ notify.Notifier = (*fakeNotifier)(nil)

func (f *fakeNotifier) Enqueue(ctx context.Context, msg notify.Message) error {
	if f.EnqueueFn != nil {
		return f.EnqueueFn(ctx, msg)
	}
	f.Sent = append(f.Sent, msg)
	return nil
}

func newTestService(repo Repository, notifier notify.Notifier, now time.Time) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		log:      zerolog.Nop(),
		now:      func() time.Time { return now },
	}
}
