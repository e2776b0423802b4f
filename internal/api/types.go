package api

import (
	"time"

	"github.com/clinicasonrisas/citas-backend/internal/clinic"
)

const fechaLayout = "2006-01-02"

type RegisterProfileRequest struct {
	Rol  string          `json:"rol"`
	Data ProfileDataBody `json:"data"`
}

type ProfileDataBody struct {
	Nombre          string `json:"nombre"`
	Apellido        string `json:"apellido"`
	Especialidad    string `json:"especialidad,omitempty"`
	FechaNacimiento string `json:"fecha_nacimiento,omitempty"`
	Telefono        string `json:"telefono,omitempty"`
	Correo          string `json:"correo,omitempty"`
	Direccion       string `json:"direccion,omitempty"`
}

type ProfileResponse struct {
	Rol             string `json:"rol"`
	Auth0ID         string `json:"auth0_id"`
	IDUsuario       int64  `json:"id_usuario"`
	Nombre          string `json:"nombre,omitempty"`
	Apellido        string `json:"apellido,omitempty"`
	Especialidad    string `json:"especialidad,omitempty"`
	FechaNacimiento string `json:"fecha_nacimiento,omitempty"`
	Telefono        string `json:"telefono,omitempty"`
	Correo          string `json:"correo,omitempty"`
	Direccion       string `json:"direccion,omitempty"`
}

type ServicioResponse struct {
	IDServicio  int64   `json:"id_servicio"`
	Nombre      string  `json:"nombre"`
	Descripcion string  `json:"descripcion"`
	DuracionMin int     `json:"duracion_min"`
	Costo       float64 `json:"costo"`
}

type MedicoResponse struct {
	IDMedico     int64  `json:"id_medico"`
	Nombre       string `json:"nombre"`
	Apellido     string `json:"apellido"`
	Especialidad string `json:"especialidad"`
}

type HoraOcupada struct {
	Hora string `json:"hora"`
}

type DisponibilidadResponse struct {
	HorasOcupadas []HoraOcupada `json:"horas_ocupadas"`
}

type AgendarRequest struct {
	Fecha      string `json:"fecha"`
	Hora       string `json:"hora"`
	IDServicio int64  `json:"id_servicio"`
	IDMedico   *int64 `json:"id_medico,omitempty"`
	Notas      string `json:"notas"`
}

type CitaResponse struct {
	IDCita     int64  `json:"id_cita"`
	Fecha      string `json:"fecha"`
	Hora       string `json:"hora"`
	Notas      string `json:"notas"`
	Estado     string `json:"estado"`
	IDPaciente int64  `json:"id_paciente"`
	IDServicio int64  `json:"id_servicio"`
	IDMedico   *int64 `json:"id_medico,omitempty"`
	Warning    string `json:"warning,omitempty"`
}

type CitaDetalleResponse struct {
	CitaResponse
	Servicio string `json:"servicio"`
	Medico   string `json:"medico,omitempty"`
	Paciente string `json:"paciente"`
}

type PacienteResponse struct {
	IDPaciente      int64  `json:"id_paciente"`
	Nombre          string `json:"nombre"`
	Apellido        string `json:"apellido"`
	FechaNacimiento string `json:"fecha_nacimiento,omitempty"`
	Telefono        string `json:"telefono"`
	Correo          string `json:"correo"`
	Direccion       string `json:"direccion"`
}

type AntecedenteBody struct {
	Tipo        string `json:"tipo"`
	Descripcion string `json:"descripcion"`
}

type AntecedenteResponse struct {
	IDAntecedente int64  `json:"id_antecedente"`
	Tipo          string `json:"tipo"`
	Descripcion   string `json:"descripcion"`
}

type HistorialBody struct {
	Fecha       string `json:"fecha"`
	Descripcion string `json:"descripcion"`
}

type HistorialResponse struct {
	IDEntrada   int64  `json:"id_entrada"`
	Fecha       string `json:"fecha"`
	Descripcion string `json:"descripcion"`
}

type EvolucionBody struct {
	Descripcion string `json:"descripcion"`
}

type EvolucionResponse struct {
	IDEvolucion int64  `json:"id_evolucion"`
	IDMedico    int64  `json:"id_medico"`
	Descripcion string `json:"descripcion"`
	CreatedAt   string `json:"created_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toCitaResponse(c *clinic.Cita, warning string) CitaResponse {
	return CitaResponse{
		IDCita:     c.ID,
		Fecha:      c.Fecha.Format(fechaLayout),
		Hora:       c.Hora,
		Notas:      c.Notas,
		Estado:     string(c.Estado),
		IDPaciente: c.PacienteID,
		IDServicio: c.ServicioID,
		IDMedico:   c.MedicoID,
		Warning:    warning,
	}
}

func toCitaDetalleResponse(d clinic.CitaDetalle) CitaDetalleResponse {
	return CitaDetalleResponse{
		CitaResponse: toCitaResponse(&d.Cita, ""),
		Servicio:     d.ServicioNombre,
		Medico:       d.MedicoNombre,
		Paciente:     d.PacienteNombre,
	}
}

func toProfileResponse(p *clinic.Profile) ProfileResponse {
	resp := ProfileResponse{
		Rol:       string(p.Rol),
		Auth0ID:   p.Auth0ID,
		IDUsuario: p.User.ID,
	}
	if p.Medico != nil {
		resp.Nombre = p.Medico.Nombre
		resp.Apellido = p.Medico.Apellido
		resp.Especialidad = p.Medico.Especialidad
		resp.Telefono = p.Medico.Telefono
		resp.Correo = p.Medico.Correo
	}
	if p.Paciente != nil {
		resp.Nombre = p.Paciente.Nombre
		resp.Apellido = p.Paciente.Apellido
		resp.Telefono = p.Paciente.Telefono
		resp.Correo = p.Paciente.Correo
		resp.Direccion = p.Paciente.Direccion
		if p.Paciente.FechaNacimiento != nil {
			resp.FechaNacimiento = p.Paciente.FechaNacimiento.Format(fechaLayout)
		}
	}
	return resp
}

func toPacienteResponse(p *clinic.Paciente) PacienteResponse {
	resp := PacienteResponse{
		IDPaciente: p.ID,
		Nombre:     p.Nombre,
		Apellido:   p.Apellido,
		Telefono:   p.Telefono,
		Correo:     p.Correo,
		Direccion:  p.Direccion,
	}
	if p.FechaNacimiento != nil {
		resp.FechaNacimiento = p.FechaNacimiento.Format(fechaLayout)
	}
	return resp
}

func parseFechaNacimiento(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(fechaLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
