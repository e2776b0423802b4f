package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicasonrisas/citas-backend/internal/notify"
)

// Patient cancellations must happen strictly more than this many days before
// the cita date.
const cancelLeadDays = 7

var (
	ErrRolInvalido        = errors.New("rol must be Medico or Paciente")
	ErrDatosIncompletos   = errors.New("missing profile data for rol")
	ErrPerfilNoRegistrado = errors.New("no profile registered for this identity")
	ErrSoloMedicos        = errors.New("operation requires a medico profile")
	ErrSoloPacientes      = errors.New("operation requires a paciente profile")
	ErrCitaAjena          = errors.New("cita does not belong to the caller")
	ErrCancelFueraDePlazo = errors.New("citas can only be cancelled more than 7 days in advance")
	ErrTransicionInvalida = errors.New("invalid cita state transition")
	ErrSinVinculo         = errors.New("no cita links this medico and paciente")
)

type Service struct {
	repo     Repository
	notifier notify.Notifier
	log      zerolog.Logger

	now func() time.Time
}

func NewService(repo Repository, notifier notify.Notifier, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// ResolveUser maps a verified subject id to the internal user, lazily
// creating an unassigned one.
func (s *Service) ResolveUser(ctx context.Context, subject string) (*User, error) {
	u, err := s.repo.EnsureUser(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	return u, nil
}

// GetProfile resolves the subject and joins the role extension. A set role
// with a missing extension row is a detected data inconsistency: it is
// logged and reported as sin_asignar instead of failing the request.
func (s *Service) GetProfile(ctx context.Context, subject string) (*Profile, error) {
	u, err := s.ResolveUser(ctx, subject)
	if err != nil {
		return nil, err
	}

	switch u.Rol {
	case RoleUnassigned:
		return &Profile{User: *u}, nil
	case RoleMedico:
		m, err := s.repo.GetMedicoByID(ctx, u.ID)
		if errors.Is(err, ErrMedicoNotFound) {
			return s.degradedProfile(u), nil
		}
		if err != nil {
			return nil, fmt.Errorf("load medico profile: %w", err)
		}
		return &Profile{User: *u, Medico: m}, nil
	case RolePaciente:
		p, err := s.repo.GetPacienteByID(ctx, u.ID)
		if errors.Is(err, ErrPacienteNotFound) {
			return s.degradedProfile(u), nil
		}
		if err != nil {
			return nil, fmt.Errorf("load paciente profile: %w", err)
		}
		return &Profile{User: *u, Paciente: p}, nil
	default:
		return nil, fmt.Errorf("unknown rol %q for usuario %d", u.Rol, u.ID)
	}
}

func (s *Service) degradedProfile(u *User) *Profile {
	s.log.Warn().
		Int64("id_usuario", u.ID).
		Str("rol", string(u.Rol)).
		Msg("rol is set but extension row is missing, reporting sin_asignar")
	p := Profile{User: *u}
	p.Rol = RoleUnassigned
	return &p
}

// ProfileData carries the extension fields for registration; exactly the
// field matching the requested rol must be set.
type ProfileData struct {
	Medico   *Medico
	Paciente *Paciente
}

// RegisterProfile promotes a sin_asignar user into the given rol and creates
// the extension row, all-or-nothing. Re-registration is rejected with
// ErrProfileExists.
func (s *Service) RegisterProfile(ctx context.Context, subject string, rol Role, data ProfileData) error {
	u, err := s.repo.GetUserBySubject(ctx, subject)
	if err != nil {
		return err
	}

	switch rol {
	case RoleMedico:
		if data.Medico == nil {
			return ErrDatosIncompletos
		}
		return s.repo.RegisterMedico(ctx, u.ID, *data.Medico)
	case RolePaciente:
		if data.Paciente == nil {
			return ErrDatosIncompletos
		}
		return s.repo.RegisterPaciente(ctx, u.ID, *data.Paciente)
	default:
		return fmt.Errorf("%w: %q", ErrRolInvalido, rol)
	}
}

func (s *Service) ListServicios(ctx context.Context) ([]Servicio, error) {
	list, err := s.repo.ListServicios(ctx)
	if err != nil {
		return nil, fmt.Errorf("list servicios: %w", err)
	}
	return list, nil
}

func (s *Service) ListMedicos(ctx context.Context) ([]Medico, error) {
	list, err := s.repo.ListMedicos(ctx)
	if err != nil {
		return nil, fmt.Errorf("list medicos: %w", err)
	}
	return list, nil
}

// OccupiedSlots returns the horas of non-cancelled citas for the medico on
// the given fecha. Working hours and slot granularity belong to the caller.
func (s *Service) OccupiedSlots(ctx context.Context, medicoID int64, fecha time.Time) ([]string, error) {
	if _, err := s.repo.GetMedicoByID(ctx, medicoID); err != nil {
		return nil, err
	}
	slots, err := s.repo.OccupiedSlots(ctx, medicoID, fecha)
	if err != nil {
		return nil, fmt.Errorf("occupied slots: %w", err)
	}
	return slots, nil
}

type BookCitaRequest struct {
	Fecha      time.Time
	Hora       string
	ServicioID int64
	MedicoID   *int64 // nil books an unassigned cita that lands in pendientes
	Notas      string
}

// BookCita creates a cita with estado Agendada for the calling paciente.
// The friendly pre-check gives a clean Conflict on the common path; the
// citas_slot_unico index is what actually closes the race, surfacing as
// ErrSlotTaken from CreateCita under concurrent bookings of the same slot.
// The returned warning is non-empty when the booking succeeded but the
// patient notification could not be enqueued.
func (s *Service) BookCita(ctx context.Context, subject string, req BookCitaRequest) (*Cita, string, error) {
	pac, err := s.resolvePaciente(ctx, subject)
	if err != nil {
		return nil, "", err
	}

	if req.MedicoID != nil {
		if _, err := s.repo.GetMedicoByID(ctx, *req.MedicoID); err != nil {
			return nil, "", err
		}
		taken, err := s.repo.SlotTaken(ctx, *req.MedicoID, req.Fecha, req.Hora)
		if err != nil {
			return nil, "", fmt.Errorf("check slot: %w", err)
		}
		if taken {
			return nil, "", ErrSlotTaken
		}
	}

	cita, err := s.repo.CreateCita(ctx, &Cita{
		Fecha:      req.Fecha,
		Hora:       req.Hora,
		Notas:      req.Notas,
		PacienteID: pac.ID,
		ServicioID: req.ServicioID,
		MedicoID:   req.MedicoID,
	})
	if err != nil {
		return nil, "", err
	}

	warning := s.notifyPaciente(ctx, pac, notify.CitaAgendada(pac.Correo, cita.Fecha, cita.Hora))
	return cita, warning, nil
}

// AcceptCita lets a medico claim an unassigned Agendada cita, confirming it.
func (s *Service) AcceptCita(ctx context.Context, subject string, citaID int64) (*Cita, string, error) {
	med, err := s.resolveMedico(ctx, subject)
	if err != nil {
		return nil, "", err
	}

	cita, err := s.repo.GetCitaByID(ctx, citaID)
	if err != nil {
		return nil, "", err
	}
	if cita.MedicoID != nil || cita.Estado != EstadoAgendada {
		return nil, "", ErrTransicionInvalida
	}

	updated, err := s.repo.AssignMedico(ctx, citaID, med.ID)
	if errors.Is(err, ErrCitaNotFound) {
		// Another medico claimed it between the load and the update.
		return nil, "", ErrTransicionInvalida
	}
	if err != nil {
		return nil, "", err
	}

	return updated, s.notifyCambio(ctx, updated), nil
}

// ConfirmCita moves the caller's own Agendada cita to Confirmada.
func (s *Service) ConfirmCita(ctx context.Context, subject string, citaID int64) (*Cita, string, error) {
	cita, err := s.citaOfMedico(ctx, subject, citaID)
	if err != nil {
		return nil, "", err
	}
	if cita.Estado != EstadoAgendada {
		return nil, "", ErrTransicionInvalida
	}
	return s.transition(ctx, cita, EstadoAgendada, EstadoConfirmada)
}

// CompleteCita marks the caller's own Confirmada cita as Completada.
func (s *Service) CompleteCita(ctx context.Context, subject string, citaID int64) (*Cita, string, error) {
	cita, err := s.citaOfMedico(ctx, subject, citaID)
	if err != nil {
		return nil, "", err
	}
	if cita.Estado != EstadoConfirmada {
		return nil, "", ErrTransicionInvalida
	}
	return s.transition(ctx, cita, EstadoConfirmada, EstadoCompletada)
}

// CancelCitaMedico cancels the caller's own cita in any non-terminal estado.
func (s *Service) CancelCitaMedico(ctx context.Context, subject string, citaID int64) (*Cita, string, error) {
	cita, err := s.citaOfMedico(ctx, subject, citaID)
	if err != nil {
		return nil, "", err
	}
	if cita.Estado.Terminal() {
		return nil, "", ErrTransicionInvalida
	}
	return s.transition(ctx, cita, cita.Estado, EstadoCancelada)
}

// CancelCitaPaciente cancels the owning paciente's cita, subject to the
// lead-time rule: strictly more than 7 calendar days before the fecha.
func (s *Service) CancelCitaPaciente(ctx context.Context, subject string, citaID int64) (*Cita, string, error) {
	pac, err := s.resolvePaciente(ctx, subject)
	if err != nil {
		return nil, "", err
	}

	cita, err := s.repo.GetCitaByID(ctx, citaID)
	if err != nil {
		return nil, "", err
	}
	if cita.PacienteID != pac.ID {
		return nil, "", ErrCitaAjena
	}
	if cita.Estado.Terminal() {
		return nil, "", ErrTransicionInvalida
	}
	if daysUntil(s.now(), cita.Fecha) <= cancelLeadDays {
		return nil, "", ErrCancelFueraDePlazo
	}
	return s.transition(ctx, cita, cita.Estado, EstadoCancelada)
}

func (s *Service) MisCitas(ctx context.Context, subject string) ([]CitaDetalle, error) {
	pac, err := s.resolvePaciente(ctx, subject)
	if err != nil {
		return nil, err
	}
	return s.repo.ListCitasByPaciente(ctx, pac.ID)
}

func (s *Service) MisCitasMedico(ctx context.Context, subject string) ([]CitaDetalle, error) {
	med, err := s.resolveMedico(ctx, subject)
	if err != nil {
		return nil, err
	}
	return s.repo.ListCitasByMedico(ctx, med.ID)
}

func (s *Service) CitasPendientes(ctx context.Context, subject string) ([]CitaDetalle, error) {
	if _, err := s.resolveMedico(ctx, subject); err != nil {
		return nil, err
	}
	return s.repo.ListCitasPendientes(ctx)
}

// Internals

func (s *Service) resolvePaciente(ctx context.Context, subject string) (*Paciente, error) {
	u, err := s.ResolveUser(ctx, subject)
	if err != nil {
		return nil, err
	}
	switch u.Rol {
	case RolePaciente:
		p, err := s.repo.GetPacienteByID(ctx, u.ID)
		if errors.Is(err, ErrPacienteNotFound) {
			return nil, ErrPerfilNoRegistrado
		}
		return p, err
	case RoleMedico:
		return nil, ErrSoloPacientes
	default:
		return nil, ErrPerfilNoRegistrado
	}
}

func (s *Service) resolveMedico(ctx context.Context, subject string) (*Medico, error) {
	u, err := s.ResolveUser(ctx, subject)
	if err != nil {
		return nil, err
	}
	switch u.Rol {
	case RoleMedico:
		m, err := s.repo.GetMedicoByID(ctx, u.ID)
		if errors.Is(err, ErrMedicoNotFound) {
			return nil, ErrPerfilNoRegistrado
		}
		return m, err
	case RolePaciente:
		return nil, ErrSoloMedicos
	default:
		return nil, ErrPerfilNoRegistrado
	}
}

// citaOfMedico loads a cita and verifies it is assigned to the calling medico.
func (s *Service) citaOfMedico(ctx context.Context, subject string, citaID int64) (*Cita, error) {
	med, err := s.resolveMedico(ctx, subject)
	if err != nil {
		return nil, err
	}
	cita, err := s.repo.GetCitaByID(ctx, citaID)
	if err != nil {
		return nil, err
	}
	if cita.MedicoID == nil || *cita.MedicoID != med.ID {
		return nil, ErrCitaAjena
	}
	return cita, nil
}

// transition performs the compare-and-swap estado update and enqueues the
// patient notification. Once the update commits, a notification failure only
// produces a warning, never an error.
func (s *Service) transition(ctx context.Context, cita *Cita, from, to CitaEstado) (*Cita, string, error) {
	updated, err := s.repo.UpdateCitaEstado(ctx, cita.ID, from, to)
	if errors.Is(err, ErrCitaNotFound) {
		// Concurrent transition won; the precondition no longer holds.
		return nil, "", ErrTransicionInvalida
	}
	if err != nil {
		return nil, "", fmt.Errorf("update cita estado: %w", err)
	}
	return updated, s.notifyCambio(ctx, updated), nil
}

// notifyCambio looks up the paciente and enqueues the estado-change email.
func (s *Service) notifyCambio(ctx context.Context, cita *Cita) string {
	pac, err := s.repo.GetPacienteByID(ctx, cita.PacienteID)
	if err != nil {
		s.log.Error().Err(err).Int64("id_cita", cita.ID).Msg("load paciente for notification")
		return "no se pudo notificar al paciente"
	}

	var msg notify.Message
	switch cita.Estado {
	case EstadoConfirmada:
		msg = notify.CitaConfirmada(pac.Correo, cita.Fecha, cita.Hora)
	case EstadoCancelada:
		msg = notify.CitaCancelada(pac.Correo, cita.Fecha, cita.Hora)
	case EstadoCompletada:
		msg = notify.CitaCompletada(pac.Correo, cita.Fecha, cita.Hora)
	default:
		msg = notify.CitaAgendada(pac.Correo, cita.Fecha, cita.Hora)
	}
	return s.notifyPaciente(ctx, pac, msg)
}

func (s *Service) notifyPaciente(ctx context.Context, pac *Paciente, msg notify.Message) string {
	if pac.Correo == "" {
		s.log.Warn().Int64("id_paciente", pac.ID).Msg("paciente has no correo, skipping notification")
		return "el paciente no tiene correo registrado"
	}
	if err := s.notifier.Enqueue(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("to", msg.To).Msg("failed to enqueue notification")
		return "no se pudo encolar la notificación al paciente"
	}
	return ""
}

// daysUntil is the calendar-day difference between now and fecha, both
// normalized to midnight, with the millisecond delta divided by one day's
// milliseconds rounding up.
func daysUntil(now, fecha time.Time) int {
	a := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(fecha.Year(), fecha.Month(), fecha.Day(), 0, 0, 0, 0, time.UTC)

	const dayMs = 24 * 60 * 60 * 1000
	diff := b.Sub(a).Milliseconds()
	days := diff / dayMs
	if diff%dayMs > 0 {
		days++
	}
	return int(days)
}
