package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/clinicasonrisas/citas-backend/internal/auth"
	"github.com/clinicasonrisas/citas-backend/internal/clinic"
)

// Clinical-record handlers. The access gate (cita link between the calling
// medico and the paciente) is enforced inside the service before any read or
// write; these handlers only parse and translate.

func getPacienteHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pacienteID, ok := pathID(r, "id_paciente")
		if !ok {
			writeError(w, http.StatusBadRequest, "id_invalido", "id_paciente must be a positive integer")
			return
		}
		pac, err := svc.GetPaciente(r.Context(), auth.SubjectFrom(r.Context()), pacienteID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPacienteResponse(pac))
	}
}

func getAntecedentesHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pacienteID, ok := pathID(r, "id_paciente")
		if !ok {
			writeError(w, http.StatusBadRequest, "id_invalido", "id_paciente must be a positive integer")
			return
		}
		items, err := svc.GetAntecedentes(r.Context(), auth.SubjectFrom(r.Context()), pacienteID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		resp := make([]AntecedenteResponse, 0, len(items))
		for _, a := range items {
			resp = append(resp, AntecedenteResponse{
				IDAntecedente: a.ID,
				Tipo:          a.Tipo,
				Descripcion:   a.Descripcion,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func putAntecedentesHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pacienteID, ok := pathID(r, "id_paciente")
		if !ok {
			writeError(w, http.StatusBadRequest, "id_invalido", "id_paciente must be a positive integer")
			return
		}
		var body []AntecedenteBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "cuerpo_invalido", "could not parse JSON")
			return
		}
		items := make([]clinic.Antecedente, 0, len(body))
		for _, b := range body {
			if b.Tipo == "" {
				writeError(w, http.StatusBadRequest, "datos_incompletos", "tipo is required for every antecedente")
				return
			}
			items = append(items, clinic.Antecedente{Tipo: b.Tipo, Descripcion: b.Descripcion})
		}

		if err := svc.ReplaceAntecedentes(r.Context(), auth.SubjectFrom(r.Context()), pacienteID, items); err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "antecedentes actualizados"})
	}
}

func listHistorialHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pacienteID, ok := pathID(r, "id_paciente")
		if !ok {
			writeError(w, http.StatusBadRequest, "id_invalido", "id_paciente must be a positive integer")
			return
		}
		entries, err := svc.ListHistorial(r.Context(), auth.SubjectFrom(r.Context()), pacienteID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		resp := make([]HistorialResponse, 0, len(entries))
		for _, e := range entries {
			resp = append(resp, HistorialResponse{
				IDEntrada:   e.ID,
				Fecha:       e.Fecha.Format(fechaLayout),
				Descripcion: e.Descripcion,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func addHistorialHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pacienteID, ok := pathID(r, "id_paciente")
		if !ok {
			writeError(w, http.StatusBadRequest, "id_invalido", "id_paciente must be a positive integer")
			return
		}
		var body HistorialBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "cuerpo_invalido", "could not parse JSON")
			return
		}
		fecha, err := time.Parse(fechaLayout, body.Fecha)
		if err != nil {
			writeError(w, http.StatusBadRequest, "fecha_invalida", "fecha must be YYYY-MM-DD")
			return
		}
		if body.Descripcion == "" {
			writeError(w, http.StatusBadRequest, "datos_incompletos", "descripcion is required")
			return
		}

		entry, err := svc.AddHistorial(r.Context(), auth.SubjectFrom(r.Context()), pacienteID, fecha, body.Descripcion)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, HistorialResponse{
			IDEntrada:   entry.ID,
			Fecha:       entry.Fecha.Format(fechaLayout),
			Descripcion: entry.Descripcion,
		})
	}
}

func listEvolucionesHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pacienteID, ok := pathID(r, "id_paciente")
		if !ok {
			writeError(w, http.StatusBadRequest, "id_invalido", "id_paciente must be a positive integer")
			return
		}
		entries, err := svc.ListEvoluciones(r.Context(), auth.SubjectFrom(r.Context()), pacienteID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		resp := make([]EvolucionResponse, 0, len(entries))
		for _, e := range entries {
			resp = append(resp, EvolucionResponse{
				IDEvolucion: e.ID,
				IDMedico:    e.MedicoID,
				Descripcion: e.Descripcion,
				CreatedAt:   e.CreatedAt.Format(time.RFC3339),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func addEvolucionHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pacienteID, ok := pathID(r, "id_paciente")
		if !ok {
			writeError(w, http.StatusBadRequest, "id_invalido", "id_paciente must be a positive integer")
			return
		}
		var body EvolucionBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "cuerpo_invalido", "could not parse JSON")
			return
		}
		if body.Descripcion == "" {
			writeError(w, http.StatusBadRequest, "datos_incompletos", "descripcion is required")
			return
		}

		entry, err := svc.AddEvolucion(r.Context(), auth.SubjectFrom(r.Context()), pacienteID, body.Descripcion)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, EvolucionResponse{
			IDEvolucion: entry.ID,
			IDMedico:    entry.MedicoID,
			Descripcion: entry.Descripcion,
			CreatedAt:   entry.CreatedAt.Format(time.RFC3339),
		})
	}
}
