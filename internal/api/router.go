package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinicasonrisas/citas-backend/internal/auth"
	"github.com/clinicasonrisas/citas-backend/internal/clinic"
)

// ClinicService is the surface the handlers consume. *clinic.Service
// implements it; tests substitute stubs.
type ClinicService interface {
	GetProfile(ctx context.Context, subject string) (*clinic.Profile, error)
	RegisterProfile(ctx context.Context, subject string, rol clinic.Role, data clinic.ProfileData) error

	ListServicios(ctx context.Context) ([]clinic.Servicio, error)
	ListMedicos(ctx context.Context) ([]clinic.Medico, error)
	OccupiedSlots(ctx context.Context, medicoID int64, fecha time.Time) ([]string, error)

	BookCita(ctx context.Context, subject string, req clinic.BookCitaRequest) (*clinic.Cita, string, error)
	AcceptCita(ctx context.Context, subject string, citaID int64) (*clinic.Cita, string, error)
	ConfirmCita(ctx context.Context, subject string, citaID int64) (*clinic.Cita, string, error)
	CompleteCita(ctx context.Context, subject string, citaID int64) (*clinic.Cita, string, error)
	CancelCitaMedico(ctx context.Context, subject string, citaID int64) (*clinic.Cita, string, error)
	CancelCitaPaciente(ctx context.Context, subject string, citaID int64) (*clinic.Cita, string, error)

	MisCitas(ctx context.Context, subject string) ([]clinic.CitaDetalle, error)
	MisCitasMedico(ctx context.Context, subject string) ([]clinic.CitaDetalle, error)
	CitasPendientes(ctx context.Context, subject string) ([]clinic.CitaDetalle, error)

	GetPaciente(ctx context.Context, subject string, pacienteID int64) (*clinic.Paciente, error)
	GetAntecedentes(ctx context.Context, subject string, pacienteID int64) ([]clinic.Antecedente, error)
	ReplaceAntecedentes(ctx context.Context, subject string, pacienteID int64, items []clinic.Antecedente) error
	ListHistorial(ctx context.Context, subject string, pacienteID int64) ([]clinic.HistorialEntrada, error)
	AddHistorial(ctx context.Context, subject string, pacienteID int64, fecha time.Time, descripcion string) (*clinic.HistorialEntrada, error)
	ListEvoluciones(ctx context.Context, subject string, pacienteID int64) ([]clinic.Evolucion, error)
	AddEvolucion(ctx context.Context, subject string, pacienteID int64, descripcion string) (*clinic.Evolucion, error)
}

var _ ClinicService = (*clinic.Service)(nil)

type RouterConfig struct {
	Service  ClinicService
	Verifier *auth.Verifier
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Log      zerolog.Logger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Public catalog and availability
	r.Get("/api/servicios", listServiciosHandler(cfg.Service))
	r.Get("/api/medicos", listMedicosHandler(cfg.Service))
	r.Get("/api/citas/disponibilidad/{id_medico}/{fecha}", disponibilidadHandler(cfg.Service))

	// Everything below requires a verified subject
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Verifier))

		r.Get("/api/profile/get-role", getRoleHandler(cfg.Service))
		r.Post("/api/profile/register", registerProfileHandler(cfg.Service))

		r.Post("/api/citas/agendar", agendarHandler(cfg.Service))
		r.Get("/api/citas/mis-citas", citaListHandler(cfg.Service.MisCitas))
		r.Get("/api/citas/mis-citas-medico", citaListHandler(cfg.Service.MisCitasMedico))
		r.Get("/api/citas/pendientes", citaListHandler(cfg.Service.CitasPendientes))

		r.Post("/api/citas/aceptar/{id_cita}", citaTransitionHandler(cfg.Service.AcceptCita))
		r.Post("/api/citas/confirmar/{id_cita}", citaTransitionHandler(cfg.Service.ConfirmCita))
		r.Post("/api/citas/completar/{id_cita}", citaTransitionHandler(cfg.Service.CompleteCita))
		r.Post("/api/citas/cancelar-medico/{id_cita}", citaTransitionHandler(cfg.Service.CancelCitaMedico))
		r.Post("/api/citas/cancelar/{id_cita}", citaTransitionHandler(cfg.Service.CancelCitaPaciente))

		r.Route("/api/paciente/{id_paciente}", func(r chi.Router) {
			r.Get("/", getPacienteHandler(cfg.Service))
			r.Get("/antecedentes", getAntecedentesHandler(cfg.Service))
			r.Put("/antecedentes", putAntecedentesHandler(cfg.Service))
			r.Get("/historial", listHistorialHandler(cfg.Service))
			r.Post("/historial", addHistorialHandler(cfg.Service))
			r.Get("/evoluciones", listEvolucionesHandler(cfg.Service))
			r.Post("/evoluciones", addEvolucionHandler(cfg.Service))
		})
	})

	return r
}
