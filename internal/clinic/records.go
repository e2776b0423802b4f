package clinic

import (
	"context"
	"fmt"
	"time"
)

// Clinical-record access is gated on the cita link: a medico may touch a
// paciente's record only if at least one cita, in any estado, links them.
// Every operation in this file runs the gate before touching data.

// ensureAccess resolves the calling medico and verifies the cita link.
func (s *Service) ensureAccess(ctx context.Context, subject string, pacienteID int64) (*Medico, error) {
	med, err := s.resolveMedico(ctx, subject)
	if err != nil {
		return nil, err
	}
	linked, err := s.repo.HasCitaLink(ctx, med.ID, pacienteID)
	if err != nil {
		return nil, fmt.Errorf("check cita link: %w", err)
	}
	if !linked {
		return nil, ErrSinVinculo
	}
	return med, nil
}

func (s *Service) GetPaciente(ctx context.Context, subject string, pacienteID int64) (*Paciente, error) {
	if _, err := s.ensureAccess(ctx, subject, pacienteID); err != nil {
		return nil, err
	}
	return s.repo.GetPacienteByID(ctx, pacienteID)
}

func (s *Service) GetAntecedentes(ctx context.Context, subject string, pacienteID int64) ([]Antecedente, error) {
	if _, err := s.ensureAccess(ctx, subject, pacienteID); err != nil {
		return nil, err
	}
	return s.repo.GetAntecedentes(ctx, pacienteID)
}

// ReplaceAntecedentes swaps the paciente's full antecedent set atomically.
func (s *Service) ReplaceAntecedentes(ctx context.Context, subject string, pacienteID int64, items []Antecedente) error {
	if _, err := s.ensureAccess(ctx, subject, pacienteID); err != nil {
		return err
	}
	for i := range items {
		items[i].PacienteID = pacienteID
	}
	return s.repo.ReplaceAntecedentes(ctx, pacienteID, items)
}

func (s *Service) ListHistorial(ctx context.Context, subject string, pacienteID int64) ([]HistorialEntrada, error) {
	if _, err := s.ensureAccess(ctx, subject, pacienteID); err != nil {
		return nil, err
	}
	return s.repo.ListHistorial(ctx, pacienteID)
}

func (s *Service) AddHistorial(ctx context.Context, subject string, pacienteID int64, fecha time.Time, descripcion string) (*HistorialEntrada, error) {
	if _, err := s.ensureAccess(ctx, subject, pacienteID); err != nil {
		return nil, err
	}
	return s.repo.AddHistorialEntrada(ctx, &HistorialEntrada{
		PacienteID:  pacienteID,
		Fecha:       fecha,
		Descripcion: descripcion,
	})
}

func (s *Service) ListEvoluciones(ctx context.Context, subject string, pacienteID int64) ([]Evolucion, error) {
	if _, err := s.ensureAccess(ctx, subject, pacienteID); err != nil {
		return nil, err
	}
	return s.repo.ListEvoluciones(ctx, pacienteID)
}

// AddEvolucion records an evolución entry authored by the calling medico.
func (s *Service) AddEvolucion(ctx context.Context, subject string, pacienteID int64, descripcion string) (*Evolucion, error) {
	med, err := s.ensureAccess(ctx, subject, pacienteID)
	if err != nil {
		return nil, err
	}
	return s.repo.AddEvolucion(ctx, &Evolucion{
		PacienteID:  pacienteID,
		MedicoID:    med.ID,
		Descripcion: descripcion,
	})
}
