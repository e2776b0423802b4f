package api

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clinicasonrisas/citas-backend/internal/auth"
	"github.com/clinicasonrisas/citas-backend/internal/clinic"
)

var horaRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func getRoleHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := svc.GetProfile(r.Context(), auth.SubjectFrom(r.Context()))
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProfileResponse(profile))
	}
}

func registerProfileHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "cuerpo_invalido", "could not parse JSON")
			return
		}

		rol, err := clinic.ParseRole(req.Rol)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		if req.Data.Nombre == "" || req.Data.Apellido == "" {
			writeError(w, http.StatusBadRequest, "datos_incompletos", "nombre and apellido are required")
			return
		}

		data := clinic.ProfileData{}
		switch rol {
		case clinic.RoleMedico:
			data.Medico = &clinic.Medico{
				Nombre:       req.Data.Nombre,
				Apellido:     req.Data.Apellido,
				Especialidad: req.Data.Especialidad,
				Telefono:     req.Data.Telefono,
				Correo:       req.Data.Correo,
			}
		case clinic.RolePaciente:
			nacimiento, err := parseFechaNacimiento(req.Data.FechaNacimiento)
			if err != nil {
				writeError(w, http.StatusBadRequest, "fecha_invalida", "fecha_nacimiento must be YYYY-MM-DD")
				return
			}
			data.Paciente = &clinic.Paciente{
				Nombre:          req.Data.Nombre,
				Apellido:        req.Data.Apellido,
				FechaNacimiento: nacimiento,
				Telefono:        req.Data.Telefono,
				Correo:          req.Data.Correo,
				Direccion:       req.Data.Direccion,
			}
		}

		if err := svc.RegisterProfile(r.Context(), auth.SubjectFrom(r.Context()), rol, data); err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{
			"message": "perfil registrado",
			"rol":     string(rol),
		})
	}
}

func listServiciosHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		servicios, err := svc.ListServicios(r.Context())
		if err != nil {
			handleServiceError(w, err)
			return
		}
		resp := make([]ServicioResponse, 0, len(servicios))
		for _, s := range servicios {
			resp = append(resp, ServicioResponse{
				IDServicio:  s.ID,
				Nombre:      s.Nombre,
				Descripcion: s.Descripcion,
				DuracionMin: s.DuracionMin,
				Costo:       s.Costo,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listMedicosHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		medicos, err := svc.ListMedicos(r.Context())
		if err != nil {
			handleServiceError(w, err)
			return
		}
		resp := make([]MedicoResponse, 0, len(medicos))
		for _, m := range medicos {
			resp = append(resp, MedicoResponse{
				IDMedico:     m.ID,
				Nombre:       m.Nombre,
				Apellido:     m.Apellido,
				Especialidad: m.Especialidad,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func disponibilidadHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		medicoID, ok := pathID(r, "id_medico")
		if !ok {
			writeError(w, http.StatusBadRequest, "id_invalido", "id_medico must be a positive integer")
			return
		}
		fecha, err := time.Parse(fechaLayout, chi.URLParam(r, "fecha"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "fecha_invalida", "fecha must be YYYY-MM-DD")
			return
		}

		horas, err := svc.OccupiedSlots(r.Context(), medicoID, fecha)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := DisponibilidadResponse{HorasOcupadas: make([]HoraOcupada, 0, len(horas))}
		for _, h := range horas {
			resp.HorasOcupadas = append(resp.HorasOcupadas, HoraOcupada{Hora: h})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func agendarHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AgendarRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "cuerpo_invalido", "could not parse JSON")
			return
		}

		fecha, err := time.Parse(fechaLayout, req.Fecha)
		if err != nil {
			writeError(w, http.StatusBadRequest, "fecha_invalida", "fecha must be YYYY-MM-DD")
			return
		}
		if !horaRe.MatchString(req.Hora) {
			writeError(w, http.StatusBadRequest, "hora_invalida", "hora must be HH:MM")
			return
		}
		if req.IDServicio <= 0 {
			writeError(w, http.StatusBadRequest, "servicio_invalido", "id_servicio is required")
			return
		}
		if req.IDMedico != nil && *req.IDMedico <= 0 {
			writeError(w, http.StatusBadRequest, "id_invalido", "id_medico must be a positive integer")
			return
		}

		cita, warning, err := svc.BookCita(r.Context(), auth.SubjectFrom(r.Context()), clinic.BookCitaRequest{
			Fecha:      fecha,
			Hora:       req.Hora,
			ServicioID: req.IDServicio,
			MedicoID:   req.IDMedico,
			Notas:      req.Notas,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toCitaResponse(cita, warning))
	}
}

type transitionFunc func(ctx context.Context, subject string, citaID int64) (*clinic.Cita, string, error)

func citaTransitionHandler(fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		citaID, ok := pathID(r, "id_cita")
		if !ok {
			writeError(w, http.StatusBadRequest, "id_invalido", "id_cita must be a positive integer")
			return
		}
		cita, warning, err := fn(r.Context(), auth.SubjectFrom(r.Context()), citaID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCitaResponse(cita, warning))
	}
}

type citaListFunc func(ctx context.Context, subject string) ([]clinic.CitaDetalle, error)

func citaListHandler(fn citaListFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		citas, err := fn(r.Context(), auth.SubjectFrom(r.Context()))
		if err != nil {
			handleServiceError(w, err)
			return
		}
		resp := make([]CitaDetalleResponse, 0, len(citas))
		for _, d := range citas {
			resp = append(resp, toCitaDetalleResponse(d))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
