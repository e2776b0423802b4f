package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinicasonrisas/citas-backend/internal/clinic"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// handleServiceError maps the clinic sentinel errors onto HTTP statuses.
// Anything unrecognized is an internal failure and is reported without
// leaking the underlying error.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, clinic.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "usuario_no_encontrado", err.Error())
	case errors.Is(err, clinic.ErrMedicoNotFound):
		writeError(w, http.StatusNotFound, "medico_no_encontrado", err.Error())
	case errors.Is(err, clinic.ErrPacienteNotFound):
		writeError(w, http.StatusNotFound, "paciente_no_encontrado", err.Error())
	case errors.Is(err, clinic.ErrServicioNotFound):
		writeError(w, http.StatusNotFound, "servicio_no_encontrado", err.Error())
	case errors.Is(err, clinic.ErrCitaNotFound):
		writeError(w, http.StatusNotFound, "cita_no_encontrada", err.Error())
	case errors.Is(err, clinic.ErrPerfilNoRegistrado):
		writeError(w, http.StatusNotFound, "perfil_no_registrado", err.Error())
	case errors.Is(err, clinic.ErrSoloMedicos):
		writeError(w, http.StatusForbidden, "solo_medicos", err.Error())
	case errors.Is(err, clinic.ErrSoloPacientes):
		writeError(w, http.StatusForbidden, "solo_pacientes", err.Error())
	case errors.Is(err, clinic.ErrCitaAjena):
		writeError(w, http.StatusForbidden, "cita_ajena", err.Error())
	case errors.Is(err, clinic.ErrSinVinculo):
		writeError(w, http.StatusForbidden, "sin_vinculo", err.Error())
	case errors.Is(err, clinic.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_ocupado", err.Error())
	case errors.Is(err, clinic.ErrProfileExists):
		writeError(w, http.StatusConflict, "perfil_ya_registrado", err.Error())
	case errors.Is(err, clinic.ErrTransicionInvalida):
		writeError(w, http.StatusConflict, "transicion_invalida", err.Error())
	case errors.Is(err, clinic.ErrCancelFueraDePlazo):
		writeError(w, http.StatusConflict, "cancelacion_fuera_de_plazo", err.Error())
	case errors.Is(err, clinic.ErrRolInvalido):
		writeError(w, http.StatusBadRequest, "rol_invalido", err.Error())
	case errors.Is(err, clinic.ErrDatosIncompletos):
		writeError(w, http.StatusBadRequest, "datos_incompletos", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "error_interno", "")
	}
}
