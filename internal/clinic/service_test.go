package clinic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicasonrisas/citas-backend/internal/notify"
)

var testNow = time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

func fecha(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func pacienteRepo(userID int64, pac Paciente) *fakeRepository {
	return &fakeRepository{
		EnsureUserFn: func(ctx context.Context, subject string) (*User, error) {
			return &User{ID: userID, Auth0ID: subject, Rol: RolePaciente}, nil
		},
		GetPacienteByIDFn: func(ctx context.Context, id int64) (*Paciente, error) {
			if id == pac.ID {
				return &pac, nil
			}
			return nil, ErrPacienteNotFound
		},
	}
}

func medicoRepo(userID int64, med Medico) *fakeRepository {
	return &fakeRepository{
		EnsureUserFn: func(ctx context.Context, subject string) (*User, error) {
			return &User{ID: userID, Auth0ID: subject, Rol: RoleMedico}, nil
		},
		GetMedicoByIDFn: func(ctx context.Context, id int64) (*Medico, error) {
			if id == med.ID {
				return &med, nil
			}
			return nil, ErrMedicoNotFound
		},
	}
}

func TestDaysUntil(t *testing.T) {
	tests := []struct {
		name  string
		now   time.Time
		fecha time.Time
		want  int
	}{
		{"same day", testNow, fecha(2025, 3, 10), 0},
		{"tomorrow", testNow, fecha(2025, 3, 11), 1},
		{"exactly seven days", testNow, fecha(2025, 3, 17), 7},
		{"eight days", testNow, fecha(2025, 3, 18), 8},
		{"past date", testNow, fecha(2025, 3, 5), -5},
		{"late evening does not shrink the gap", time.Date(2025, 3, 10, 23, 59, 59, 0, time.UTC), fecha(2025, 3, 17), 7},
		{"across month boundary", time.Date(2025, 1, 28, 8, 0, 0, 0, time.UTC), fecha(2025, 2, 5), 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, daysUntil(tt.now, tt.fecha))
		})
	}
}

func TestBookCita(t *testing.T) {
	pac := Paciente{ID: 1, Nombre: "Ana", Apellido: "Lopez", Correo: "ana@example.com"}
	medicoID := int64(2)

	t.Run("books with medico and notifies", func(t *testing.T) {
		repo := pacienteRepo(1, pac)
		repo.GetMedicoByIDFn = func(ctx context.Context, id int64) (*Medico, error) {
			return &Medico{ID: id}, nil
		}
		repo.CreateCitaFn = func(ctx context.Context, c *Cita) (*Cita, error) {
			out := *c
			out.ID = 77
			out.Estado = EstadoAgendada
			return &out, nil
		}
		notifier := &fakeNotifier{}
		svc := newTestService(repo, notifier, testNow)

		cita, warning, err := svc.BookCita(context.Background(), "auth0|ana", BookCitaRequest{
			Fecha:      fecha(2025, 4, 1),
			Hora:       "10:30",
			ServicioID: 3,
			MedicoID:   &medicoID,
		})
		require.NoError(t, err)
		assert.Empty(t, warning)
		assert.Equal(t, int64(77), cita.ID)
		assert.Equal(t, EstadoAgendada, cita.Estado)
		require.Len(t, notifier.Sent, 1)
		assert.Equal(t, "ana@example.com", notifier.Sent[0].To)
	})

	t.Run("occupied slot is a conflict", func(t *testing.T) {
		repo := pacienteRepo(1, pac)
		repo.GetMedicoByIDFn = func(ctx context.Context, id int64) (*Medico, error) {
			return &Medico{ID: id}, nil
		}
		repo.SlotTakenFn = func(ctx context.Context, mID int64, f time.Time, h string) (bool, error) {
			return true, nil
		}
		svc := newTestService(repo, &fakeNotifier{}, testNow)

		_, _, err := svc.BookCita(context.Background(), "auth0|ana", BookCitaRequest{
			Fecha: fecha(2025, 4, 1), Hora: "10:30", ServicioID: 3, MedicoID: &medicoID,
		})
		assert.ErrorIs(t, err, ErrSlotTaken)
	})

	t.Run("insert race surfaces the storage conflict", func(t *testing.T) {
		repo := pacienteRepo(1, pac)
		repo.GetMedicoByIDFn = func(ctx context.Context, id int64) (*Medico, error) {
			return &Medico{ID: id}, nil
		}
		repo.CreateCitaFn = func(ctx context.Context, c *Cita) (*Cita, error) {
			return nil, ErrSlotTaken
		}
		svc := newTestService(repo, &fakeNotifier{}, testNow)

		_, _, err := svc.BookCita(context.Background(), "auth0|ana", BookCitaRequest{
			Fecha: fecha(2025, 4, 1), Hora: "10:30", ServicioID: 3, MedicoID: &medicoID,
		})
		assert.ErrorIs(t, err, ErrSlotTaken)
	})

	t.Run("unassigned booking skips the slot check", func(t *testing.T) {
		repo := pacienteRepo(1, pac)
		repo.SlotTakenFn = func(ctx context.Context, mID int64, f time.Time, h string) (bool, error) {
			t.Fatal("SlotTaken should not be called without a medico")
			return false, nil
		}
		repo.CreateCitaFn = func(ctx context.Context, c *Cita) (*Cita, error) {
			require.Nil(t, c.MedicoID)
			out := *c
			out.ID = 78
			out.Estado = EstadoAgendada
			return &out, nil
		}
		svc := newTestService(repo, &fakeNotifier{}, testNow)

		cita, _, err := svc.BookCita(context.Background(), "auth0|ana", BookCitaRequest{
			Fecha: fecha(2025, 4, 1), Hora: "10:30", ServicioID: 3,
		})
		require.NoError(t, err)
		assert.Nil(t, cita.MedicoID)
	})

	t.Run("unknown medico", func(t *testing.T) {
		repo := pacienteRepo(1, pac)
		svc := newTestService(repo, &fakeNotifier{}, testNow)

		_, _, err := svc.BookCita(context.Background(), "auth0|ana", BookCitaRequest{
			Fecha: fecha(2025, 4, 1), Hora: "10:30", ServicioID: 3, MedicoID: &medicoID,
		})
		assert.ErrorIs(t, err, ErrMedicoNotFound)
	})

	t.Run("enqueue failure books with warning", func(t *testing.T) {
		repo := pacienteRepo(1, pac)
		repo.CreateCitaFn = func(ctx context.Context, c *Cita) (*Cita, error) {
			out := *c
			out.ID = 79
			out.Estado = EstadoAgendada
			return &out, nil
		}
		notifier := &fakeNotifier{
			EnqueueFn: func(ctx context.Context, msg notify.Message) error {
				return errors.New("redis down")
			},
		}
		svc := newTestService(repo, notifier, testNow)

		cita, warning, err := svc.BookCita(context.Background(), "auth0|ana", BookCitaRequest{
			Fecha: fecha(2025, 4, 1), Hora: "10:30", ServicioID: 3,
		})
		require.NoError(t, err)
		assert.NotNil(t, cita)
		assert.NotEmpty(t, warning)
	})

	t.Run("paciente without correo books with warning", func(t *testing.T) {
		sinCorreo := pac
		sinCorreo.Correo = ""
		repo := pacienteRepo(1, sinCorreo)
		repo.CreateCitaFn = func(ctx context.Context, c *Cita) (*Cita, error) {
			out := *c
			out.ID = 80
			out.Estado = EstadoAgendada
			return &out, nil
		}
		notifier := &fakeNotifier{}
		svc := newTestService(repo, notifier, testNow)

		_, warning, err := svc.BookCita(context.Background(), "auth0|ana", BookCitaRequest{
			Fecha: fecha(2025, 4, 1), Hora: "10:30", ServicioID: 3,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, warning)
		assert.Empty(t, notifier.Sent)
	})

	t.Run("medico caller is rejected", func(t *testing.T) {
		repo := medicoRepo(2, Medico{ID: 2})
		svc := newTestService(repo, &fakeNotifier{}, testNow)

		_, _, err := svc.BookCita(context.Background(), "auth0|dr", BookCitaRequest{
			Fecha: fecha(2025, 4, 1), Hora: "10:30", ServicioID: 3,
		})
		assert.ErrorIs(t, err, ErrSoloPacientes)
	})

	t.Run("sin_asignar caller has no profile", func(t *testing.T) {
		repo := &fakeRepository{
			EnsureUserFn: func(ctx context.Context, subject string) (*User, error) {
				return &User{ID: 9, Auth0ID: subject, Rol: RoleUnassigned}, nil
			},
		}
		svc := newTestService(repo, &fakeNotifier{}, testNow)

		_, _, err := svc.BookCita(context.Background(), "auth0|nuevo", BookCitaRequest{
			Fecha: fecha(2025, 4, 1), Hora: "10:30", ServicioID: 3,
		})
		assert.ErrorIs(t, err, ErrPerfilNoRegistrado)
	})
}

func TestAcceptCita(t *testing.T) {
	med := Medico{ID: 5, Nombre: "Luis"}
	pac := Paciente{ID: 1, Correo: "ana@example.com"}

	baseRepo := func() *fakeRepository {
		repo := medicoRepo(5, med)
		repo.GetPacienteByIDFn = func(ctx context.Context, id int64) (*Paciente, error) {
			return &pac, nil
		}
		return repo
	}

	t.Run("claims an unassigned cita", func(t *testing.T) {
		repo := baseRepo()
		repo.GetCitaByIDFn = func(ctx context.Context, id int64) (*Cita, error) {
			return &Cita{ID: id, Estado: EstadoAgendada, PacienteID: 1}, nil
		}
		repo.AssignMedicoFn = func(ctx context.Context, citaID, medicoID int64) (*Cita, error) {
			assert.Equal(t, int64(5), medicoID)
			return &Cita{ID: citaID, Estado: EstadoConfirmada, PacienteID: 1, MedicoID: &medicoID}, nil
		}
		notifier := &fakeNotifier{}
		svc := newTestService(repo, notifier, testNow)

		cita, warning, err := svc.AcceptCita(context.Background(), "auth0|dr", 10)
		require.NoError(t, err)
		assert.Empty(t, warning)
		assert.Equal(t, EstadoConfirmada, cita.Estado)
		require.Len(t, notifier.Sent, 1)
	})

	t.Run("already assigned", func(t *testing.T) {
		otherID := int64(6)
		repo := baseRepo()
		repo.GetCitaByIDFn = func(ctx context.Context, id int64) (*Cita, error) {
			return &Cita{ID: id, Estado: EstadoAgendada, PacienteID: 1, MedicoID: &otherID}, nil
		}
		svc := newTestService(repo, &fakeNotifier{}, testNow)

		_, _, err := svc.AcceptCita(context.Background(), "auth0|dr", 10)
		assert.ErrorIs(t, err, ErrTransicionInvalida)
	})

	t.Run("lost claim race", func(t *testing.T) {
		repo := baseRepo()
		repo.GetCitaByIDFn = func(ctx context.Context, id int64) (*Cita, error) {
			return &Cita{ID: id, Estado: EstadoAgendada, PacienteID: 1}, nil
		}
		repo.AssignMedicoFn = func(ctx context.Context, citaID, medicoID int64) (*Cita, error) {
			return nil, ErrCitaNotFound
		}
		svc := newTestService(repo, &fakeNotifier{}, testNow)

		_, _, err := svc.AcceptCita(context.Background(), "auth0|dr", 10)
		assert.ErrorIs(t, err, ErrTransicionInvalida)
	})

	t.Run("paciente caller is rejected", func(t *testing.T) {
		repo := pacienteRepo(1, pac)
		svc := newTestService(repo, &fakeNotifier{}, testNow)

		_, _, err := svc.AcceptCita(context.Background(), "auth0|ana", 10)
		assert.ErrorIs(t, err, ErrSoloMedicos)
	})
}

func TestConfirmCita(t *testing.T) {
	medID := int64(5)
	pac := Paciente{ID: 1, Correo: "ana@example.com"}

	repoWith := func(estado CitaEstado, assigned *int64) *fakeRepository {
		repo := medicoRepo(5, Medico{ID: 5})
		repo.GetPacienteByIDFn = func(ctx context.Context, id int64) (*Paciente, error) {
			return &pac, nil
		}
		repo.GetCitaByIDFn = func(ctx context.Context, id int64) (*Cita, error) {
			return &Cita{ID: id, Estado: estado, PacienteID: 1, MedicoID: assigned}, nil
		}
		repo.UpdateCitaEstadoFn = func(ctx context.Context, id int64, from, to CitaEstado) (*Cita, error) {
			return &Cita{ID: id, Estado: to, PacienteID: 1, MedicoID: assigned}, nil
		}
		return repo
	}

	t.Run("agendada to confirmada", func(t *testing.T) {
		notifier := &fakeNotifier{}
		svc := newTestService(repoWith(EstadoAgendada, &medID), notifier, testNow)

		cita, _, err := svc.ConfirmCita(context.Background(), "auth0|dr", 10)
		require.NoError(t, err)
		assert.Equal(t, EstadoConfirmada, cita.Estado)
		require.Len(t, notifier.Sent, 1)
	})

	t.Run("already confirmada", func(t *testing.T) {
		svc := newTestService(repoWith(EstadoConfirmada, &medID), &fakeNotifier{}, testNow)

		_, _, err := svc.ConfirmCita(context.Background(), "auth0|dr", 10)
		assert.ErrorIs(t, err, ErrTransicionInvalida)
	})

	t.Run("cita of another medico", func(t *testing.T) {
		otherID := int64(6)
		svc := newTestService(repoWith(EstadoAgendada, &otherID), &fakeNotifier{}, testNow)

		_, _, err := svc.ConfirmCita(context.Background(), "auth0|dr", 10)
		assert.ErrorIs(t, err, ErrCitaAjena)
	})

	t.Run("unassigned cita is not the caller's", func(t *testing.T) {
		svc := newTestService(repoWith(EstadoAgendada, nil), &fakeNotifier{}, testNow)

		_, _, err := svc.ConfirmCita(context.Background(), "auth0|dr", 10)
		assert.ErrorIs(t, err, ErrCitaAjena)
	})

	t.Run("concurrent transition loses", func(t *testing.T) {
		repo := repoWith(EstadoAgendada, &medID)
		repo.UpdateCitaEstadoFn = func(ctx context.Context, id int64, from, to CitaEstado) (*Cita, error) {
			return nil, ErrCitaNotFound
		}
		svc := newTestService(repo, &fakeNotifier{}, testNow)

		_, _, err := svc.ConfirmCita(context.Background(), "auth0|dr", 10)
		assert.ErrorIs(t, err, ErrTransicionInvalida)
	})
}

func TestCompleteCita(t *testing.T) {
	medID := int64(5)
	pac := Paciente{ID: 1, Correo: "ana@example.com"}

	repoWith := func(estado CitaEstado) *fakeRepository {
		repo := medicoRepo(5, Medico{ID: 5})
		repo.GetPacienteByIDFn = func(ctx context.Context, id int64) (*Paciente, error) {
			return &pac, nil
		}
		repo.GetCitaByIDFn = func(ctx context.Context, id int64) (*Cita, error) {
			return &Cita{ID: id, Estado: estado, PacienteID: 1, MedicoID: &medID}, nil
		}
		repo.UpdateCitaEstadoFn = func(ctx context.Context, id int64, from, to CitaEstado) (*Cita, error) {
			assert.Equal(t, EstadoConfirmada, from)
			assert.Equal(t, EstadoCompletada, to)
			return &Cita{ID: id, Estado: to, PacienteID: 1, MedicoID: &medID}, nil
		}
		return repo
	}

	t.Run("confirmada to completada", func(t *testing.T) {
		svc := newTestService(repoWith(EstadoConfirmada), &fakeNotifier{}, testNow)

		cita, _, err := svc.CompleteCita(context.Background(), "auth0|dr", 10)
		require.NoError(t, err)
		assert.Equal(t, EstadoCompletada, cita.Estado)
	})

	t.Run("agendada cannot complete", func(t *testing.T) {
		svc := newTestService(repoWith(EstadoAgendada), &fakeNotifier{}, testNow)

		_, _, err := svc.CompleteCita(context.Background(), "auth0|dr", 10)
		assert.ErrorIs(t, err, ErrTransicionInvalida)
	})

	t.Run("completada is terminal", func(t *testing.T) {
		svc := newTestService(repoWith(EstadoCompletada), &fakeNotifier{}, testNow)

		_, _, err := svc.CompleteCita(context.Background(), "auth0|dr", 10)
		assert.ErrorIs(t, err, ErrTransicionInvalida)
	})
}

func TestCancelCitaMedico(t *testing.T) {
	medID := int64(5)
	pac := Paciente{ID: 1, Correo: "ana@example.com"}

	repoWith := func(estado CitaEstado) *fakeRepository {
		repo := medicoRepo(5, Medico{ID: 5})
		repo.GetPacienteByIDFn = func(ctx context.Context, id int64) (*Paciente, error) {
			return &pac, nil
		}
		repo.GetCitaByIDFn = func(ctx context.Context, id int64) (*Cita, error) {
			return &Cita{ID: id, Estado: estado, PacienteID: 1, MedicoID: &medID}, nil
		}
		repo.UpdateCitaEstadoFn = func(ctx context.Context, id int64, from, to CitaEstado) (*Cita, error) {
			assert.Equal(t, estado, from)
			assert.Equal(t, EstadoCancelada, to)
			return &Cita{ID: id, Estado: to, PacienteID: 1, MedicoID: &medID}, nil
		}
		return repo
	}

	t.Run("cancels agendada", func(t *testing.T) {
		svc := newTestService(repoWith(EstadoAgendada), &fakeNotifier{}, testNow)
		cita, _, err := svc.CancelCitaMedico(context.Background(), "auth0|dr", 10)
		require.NoError(t, err)
		assert.Equal(t, EstadoCancelada, cita.Estado)
	})

	t.Run("cancels confirmada", func(t *testing.T) {
		svc := newTestService(repoWith(EstadoConfirmada), &fakeNotifier{}, testNow)
		cita, _, err := svc.CancelCitaMedico(context.Background(), "auth0|dr", 10)
		require.NoError(t, err)
		assert.Equal(t, EstadoCancelada, cita.Estado)
	})

	t.Run("cancelada stays cancelled", func(t *testing.T) {
		svc := newTestService(repoWith(EstadoCancelada), &fakeNotifier{}, testNow)
		_, _, err := svc.CancelCitaMedico(context.Background(), "auth0|dr", 10)
		assert.ErrorIs(t, err, ErrTransicionInvalida)
	})
}

func TestCancelCitaPaciente(t *testing.T) {
	pac := Paciente{ID: 1, Correo: "ana@example.com"}

	repoWith := func(citaFecha time.Time, estado CitaEstado, pacienteID int64) *fakeRepository {
		repo := pacienteRepo(1, pac)
		repo.GetCitaByIDFn = func(ctx context.Context, id int64) (*Cita, error) {
			return &Cita{ID: id, Fecha: citaFecha, Estado: estado, PacienteID: pacienteID}, nil
		}
		repo.UpdateCitaEstadoFn = func(ctx context.Context, id int64, from, to CitaEstado) (*Cita, error) {
			return &Cita{ID: id, Fecha: citaFecha, Estado: to, PacienteID: pacienteID}, nil
		}
		return repo
	}

	t.Run("eight days ahead cancels", func(t *testing.T) {
		notifier := &fakeNotifier{}
		svc := newTestService(repoWith(fecha(2025, 3, 18), EstadoAgendada, 1), notifier, testNow)

		cita, _, err := svc.CancelCitaPaciente(context.Background(), "auth0|ana", 10)
		require.NoError(t, err)
		assert.Equal(t, EstadoCancelada, cita.Estado)
		require.Len(t, notifier.Sent, 1)
	})

	t.Run("exactly seven days is too late", func(t *testing.T) {
		svc := newTestService(repoWith(fecha(2025, 3, 17), EstadoAgendada, 1), &fakeNotifier{}, testNow)

		_, _, err := svc.CancelCitaPaciente(context.Background(), "auth0|ana", 10)
		assert.ErrorIs(t, err, ErrCancelFueraDePlazo)
	})

	t.Run("tomorrow is too late", func(t *testing.T) {
		svc := newTestService(repoWith(fecha(2025, 3, 11), EstadoAgendada, 1), &fakeNotifier{}, testNow)

		_, _, err := svc.CancelCitaPaciente(context.Background(), "auth0|ana", 10)
		assert.ErrorIs(t, err, ErrCancelFueraDePlazo)
	})

	t.Run("someone else's cita", func(t *testing.T) {
		svc := newTestService(repoWith(fecha(2025, 3, 18), EstadoAgendada, 99), &fakeNotifier{}, testNow)

		_, _, err := svc.CancelCitaPaciente(context.Background(), "auth0|ana", 10)
		assert.ErrorIs(t, err, ErrCitaAjena)
	})

	t.Run("second cancel is rejected", func(t *testing.T) {
		svc := newTestService(repoWith(fecha(2025, 3, 18), EstadoCancelada, 1), &fakeNotifier{}, testNow)

		_, _, err := svc.CancelCitaPaciente(context.Background(), "auth0|ana", 10)
		assert.ErrorIs(t, err, ErrTransicionInvalida)
	})

	t.Run("completada cannot be cancelled", func(t *testing.T) {
		svc := newTestService(repoWith(fecha(2025, 3, 18), EstadoCompletada, 1), &fakeNotifier{}, testNow)

		_, _, err := svc.CancelCitaPaciente(context.Background(), "auth0|ana", 10)
		assert.ErrorIs(t, err, ErrTransicionInvalida)
	})
}

func TestRegisterProfile(t *testing.T) {
	t.Run("registers medico", func(t *testing.T) {
		var registered *Medico
		repo := &fakeRepository{
			GetUserBySubjectFn: func(ctx context.Context, subject string) (*User, error) {
				return &User{ID: 4, Auth0ID: subject, Rol: RoleUnassigned}, nil
			},
			RegisterMedicoFn: func(ctx context.Context, userID int64, m Medico) error {
				assert.Equal(t, int64(4), userID)
				registered = &m
				return nil
			},
		}
		svc := newTestService(repo, &fakeNotifier{}, testNow)

		err := svc.RegisterProfile(context.Background(), "auth0|dr", RoleMedico, ProfileData{
			Medico: &Medico{Nombre: "Luis", Apellido: "Mora", Especialidad: "Ortodoncia"},
		})
		require.NoError(t, err)
		require.NotNil(t, registered)
		assert.Equal(t, "Ortodoncia", registered.Especialidad)
	})

	t.Run("missing extension data", func(t *testing.T) {
		repo := &fakeRepository{
			GetUserBySubjectFn: func(ctx context.Context, subject string) (*User, error) {
				return &User{ID: 4, Rol: RoleUnassigned}, nil
			},
		}
		svc := newTestService(repo, &fakeNotifier{}, testNow)

		err := svc.RegisterProfile(context.Background(), "auth0|dr", RoleMedico, ProfileData{})
		assert.ErrorIs(t, err, ErrDatosIncompletos)

		err = svc.RegisterProfile(context.Background(), "auth0|ana", RolePaciente, ProfileData{})
		assert.ErrorIs(t, err, ErrDatosIncompletos)
	})

	t.Run("invalid rol", func(t *testing.T) {
		repo := &fakeRepository{
			GetUserBySubjectFn: func(ctx context.Context, subject string) (*User, error) {
				return &User{ID: 4, Rol: RoleUnassigned}, nil
			},
		}
		svc := newTestService(repo, &fakeNotifier{}, testNow)

		err := svc.RegisterProfile(context.Background(), "auth0|x", Role("Admin"), ProfileData{})
		assert.ErrorIs(t, err, ErrRolInvalido)
	})

	t.Run("re-registration conflicts", func(t *testing.T) {
		repo := &fakeRepository{
			GetUserBySubjectFn: func(ctx context.Context, subject string) (*User, error) {
				return &User{ID: 4, Rol: RolePaciente}, nil
			},
			RegisterPacienteFn: func(ctx context.Context, userID int64, p Paciente) error {
				return ErrProfileExists
			},
		}
		svc := newTestService(repo, &fakeNotifier{}, testNow)

		err := svc.RegisterProfile(context.Background(), "auth0|ana", RolePaciente, ProfileData{
			Paciente: &Paciente{Nombre: "Ana", Apellido: "Lopez"},
		})
		assert.ErrorIs(t, err, ErrProfileExists)
	})
}

func TestGetProfile(t *testing.T) {
	t.Run("unassigned", func(t *testing.T) {
		repo := &fakeRepository{
			EnsureUserFn: func(ctx context.Context, subject string) (*User, error) {
				return &User{ID: 9, Auth0ID: subject, Rol: RoleUnassigned}, nil
			},
		}
		svc := newTestService(repo, &fakeNotifier{}, testNow)

		p, err := svc.GetProfile(context.Background(), "auth0|nuevo")
		require.NoError(t, err)
		assert.Equal(t, RoleUnassigned, p.Rol)
		assert.Nil(t, p.Medico)
		assert.Nil(t, p.Paciente)
	})

	t.Run("paciente with extension", func(t *testing.T) {
		repo := pacienteRepo(1, Paciente{ID: 1, Nombre: "Ana"})
		svc := newTestService(repo, &fakeNotifier{}, testNow)

		p, err := svc.GetProfile(context.Background(), "auth0|ana")
		require.NoError(t, err)
		assert.Equal(t, RolePaciente, p.Rol)
		require.NotNil(t, p.Paciente)
		assert.Equal(t, "Ana", p.Paciente.Nombre)
	})

	t.Run("missing extension row degrades to sin_asignar", func(t *testing.T) {
		repo := &fakeRepository{
			EnsureUserFn: func(ctx context.Context, subject string) (*User, error) {
				return &User{ID: 9, Auth0ID: subject, Rol: RoleMedico}, nil
			},
		}
		svc := newTestService(repo, &fakeNotifier{}, testNow)

		p, err := svc.GetProfile(context.Background(), "auth0|fantasma")
		require.NoError(t, err)
		assert.Equal(t, RoleUnassigned, p.Rol)
		assert.Nil(t, p.Medico)
	})
}

func TestOccupiedSlots(t *testing.T) {
	t.Run("unknown medico", func(t *testing.T) {
		svc := newTestService(&fakeRepository{}, &fakeNotifier{}, testNow)

		_, err := svc.OccupiedSlots(context.Background(), 5, fecha(2025, 4, 1))
		assert.ErrorIs(t, err, ErrMedicoNotFound)
	})

	t.Run("returns occupied horas", func(t *testing.T) {
		repo := &fakeRepository{
			GetMedicoByIDFn: func(ctx context.Context, id int64) (*Medico, error) {
				return &Medico{ID: id}, nil
			},
			OccupiedSlotsFn: func(ctx context.Context, medicoID int64, f time.Time) ([]string, error) {
				return []string{"09:00", "10:30"}, nil
			},
		}
		svc := newTestService(repo, &fakeNotifier{}, testNow)

		slots, err := svc.OccupiedSlots(context.Background(), 5, fecha(2025, 4, 1))
		require.NoError(t, err)
		assert.Equal(t, []string{"09:00", "10:30"}, slots)
	})
}

func TestRecordsAccessGate(t *testing.T) {
	med := Medico{ID: 5}

	repoWith := func(linked bool) *fakeRepository {
		repo := medicoRepo(5, med)
		repo.HasCitaLinkFn = func(ctx context.Context, medicoID, pacienteID int64) (bool, error) {
			assert.Equal(t, int64(5), medicoID)
			return linked, nil
		}
		repo.GetPacienteByIDFn = func(ctx context.Context, id int64) (*Paciente, error) {
			return &Paciente{ID: id, Nombre: "Ana"}, nil
		}
		return repo
	}

	t.Run("no cita link blocks access", func(t *testing.T) {
		svc := newTestService(repoWith(false), &fakeNotifier{}, testNow)

		_, err := svc.GetAntecedentes(context.Background(), "auth0|dr", 1)
		assert.ErrorIs(t, err, ErrSinVinculo)

		_, err = svc.GetPaciente(context.Background(), "auth0|dr", 1)
		assert.ErrorIs(t, err, ErrSinVinculo)

		err = svc.ReplaceAntecedentes(context.Background(), "auth0|dr", 1, nil)
		assert.ErrorIs(t, err, ErrSinVinculo)

		_, err = svc.AddEvolucion(context.Background(), "auth0|dr", 1, "control")
		assert.ErrorIs(t, err, ErrSinVinculo)
	})

	t.Run("linked medico reads the record", func(t *testing.T) {
		repo := repoWith(true)
		repo.GetAntecedentesFn = func(ctx context.Context, pacienteID int64) ([]Antecedente, error) {
			return []Antecedente{{ID: 1, PacienteID: pacienteID, Tipo: "alergia"}}, nil
		}
		svc := newTestService(repo, &fakeNotifier{}, testNow)

		items, err := svc.GetAntecedentes(context.Background(), "auth0|dr", 1)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "alergia", items[0].Tipo)
	})

	t.Run("replace stamps the paciente id", func(t *testing.T) {
		repo := repoWith(true)
		var got []Antecedente
		repo.ReplaceAntecedentesFn = func(ctx context.Context, pacienteID int64, items []Antecedente) error {
			got = items
			return nil
		}
		svc := newTestService(repo, &fakeNotifier{}, testNow)

		err := svc.ReplaceAntecedentes(context.Background(), "auth0|dr", 1, []Antecedente{
			{Tipo: "alergia", Descripcion: "penicilina"},
			{Tipo: "cronico", Descripcion: "diabetes"},
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, a := range got {
			assert.Equal(t, int64(1), a.PacienteID)
		}
	})

	t.Run("evolucion is authored by the caller", func(t *testing.T) {
		repo := repoWith(true)
		svc := newTestService(repo, &fakeNotifier{}, testNow)

		ev, err := svc.AddEvolucion(context.Background(), "auth0|dr", 1, "control postoperatorio")
		require.NoError(t, err)
		assert.Equal(t, int64(5), ev.MedicoID)
		assert.Equal(t, int64(1), ev.PacienteID)
	})

	t.Run("paciente caller is rejected", func(t *testing.T) {
		repo := pacienteRepo(1, Paciente{ID: 1})
		svc := newTestService(repo, &fakeNotifier{}, testNow)

		_, err := svc.ListHistorial(context.Background(), "auth0|ana", 1)
		assert.ErrorIs(t, err, ErrSoloMedicos)
	})
}

func TestCitaLifecycle(t *testing.T) {
	// book -> accept -> complete against an in-memory cita, exercising the
	// transitions end to end through the service.
	medID := int64(5)
	pac := Paciente{ID: 1, Correo: "ana@example.com"}
	var stored *Cita

	repo := &fakeRepository{
		EnsureUserFn: func(ctx context.Context, subject string) (*User, error) {
			if subject == "auth0|dr" {
				return &User{ID: 5, Auth0ID: subject, Rol: RoleMedico}, nil
			}
			return &User{ID: 1, Auth0ID: subject, Rol: RolePaciente}, nil
		},
		GetMedicoByIDFn: func(ctx context.Context, id int64) (*Medico, error) {
			return &Medico{ID: id}, nil
		},
		GetPacienteByIDFn: func(ctx context.Context, id int64) (*Paciente, error) {
			return &pac, nil
		},
		CreateCitaFn: func(ctx context.Context, c *Cita) (*Cita, error) {
			out := *c
			out.ID = 100
			out.Estado = EstadoAgendada
			stored = &out
			return &out, nil
		},
		GetCitaByIDFn: func(ctx context.Context, id int64) (*Cita, error) {
			if stored == nil || stored.ID != id {
				return nil, ErrCitaNotFound
			}
			out := *stored
			return &out, nil
		},
		AssignMedicoFn: func(ctx context.Context, citaID, medicoID int64) (*Cita, error) {
			if stored == nil || stored.MedicoID != nil || stored.Estado != EstadoAgendada {
				return nil, ErrCitaNotFound
			}
			stored.MedicoID = &medicoID
			stored.Estado = EstadoConfirmada
			out := *stored
			return &out, nil
		},
		UpdateCitaEstadoFn: func(ctx context.Context, id int64, from, to CitaEstado) (*Cita, error) {
			if stored == nil || stored.ID != id || stored.Estado != from {
				return nil, ErrCitaNotFound
			}
			stored.Estado = to
			out := *stored
			return &out, nil
		},
	}
	notifier := &fakeNotifier{}
	svc := newTestService(repo, notifier, testNow)
	ctx := context.Background()

	cita, _, err := svc.BookCita(ctx, "auth0|ana", BookCitaRequest{
		Fecha: fecha(2025, 4, 1), Hora: "10:30", ServicioID: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, EstadoAgendada, cita.Estado)

	cita, _, err = svc.AcceptCita(ctx, "auth0|dr", cita.ID)
	require.NoError(t, err)
	assert.Equal(t, EstadoConfirmada, cita.Estado)
	require.NotNil(t, cita.MedicoID)
	assert.Equal(t, medID, *cita.MedicoID)

	// Accepting again must fail: the cita is already claimed.
	_, _, err = svc.AcceptCita(ctx, "auth0|dr", cita.ID)
	assert.ErrorIs(t, err, ErrTransicionInvalida)

	cita, _, err = svc.CompleteCita(ctx, "auth0|dr", cita.ID)
	require.NoError(t, err)
	assert.Equal(t, EstadoCompletada, cita.Estado)

	// Terminal: no further transitions.
	_, _, err = svc.CancelCitaMedico(ctx, "auth0|dr", cita.ID)
	assert.ErrorIs(t, err, ErrTransicionInvalida)

	assert.Len(t, notifier.Sent, 3)
}
