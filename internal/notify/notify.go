// Package notify decouples patient notifications from request handling:
// services enqueue messages to a redis-backed queue and a separate worker
// delivers them over SMTP. Delivery failure is logged by the worker and is
// never observed by the enqueuing request.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"
)

type Message struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Notifier accepts a message for eventual delivery.
type Notifier interface {
	Enqueue(ctx context.Context, msg Message) error
}

var (
	citaAgendadaTpl = template.Must(template.New("agendada").Parse(`<p>Hola,</p>
<p>Hemos recibido tu solicitud de cita para el {{.Fecha}} a las {{.Hora}}. Te avisaremos cuando sea confirmada.</p>
<p>Clínica Sonrisas</p>`))

	citaConfirmadaTpl = template.Must(template.New("confirmada").Parse(`<p>Hola,</p>
<p>Tu cita del {{.Fecha}} a las {{.Hora}} ha sido confirmada por el médico.</p>
<p>Clínica Sonrisas</p>`))

	citaCanceladaTpl = template.Must(template.New("cancelada").Parse(`<p>Hola,</p>
<p>Tu cita del {{.Fecha}} a las {{.Hora}} ha sido cancelada.</p>
<p>Si tienes dudas, contacta a la clínica.</p>
<p>Clínica Sonrisas</p>`))

	citaCompletadaTpl = template.Must(template.New("completada").Parse(`<p>Hola,</p>
<p>Tu cita del {{.Fecha}} a las {{.Hora}} ha sido registrada como completada. ¡Gracias por tu visita!</p>
<p>Clínica Sonrisas</p>`))
)

func renderCita(tpl *template.Template, fecha time.Time, hora string) string {
	var b bytes.Buffer
	err := tpl.Execute(&b, map[string]string{
		"Fecha": fecha.Format("02/01/2006"),
		"Hora":  hora,
	})
	if err != nil {
		// Templates are static and the data is two strings; treat a render
		// failure as a bug rather than a runtime condition.
		panic(fmt.Sprintf("notify: render %s: %v", tpl.Name(), err))
	}
	return b.String()
}

func CitaAgendada(to string, fecha time.Time, hora string) Message {
	return Message{
		To:      to,
		Subject: "Solicitud de cita recibida - Clínica Sonrisas",
		HTML:    renderCita(citaAgendadaTpl, fecha, hora),
	}
}

func CitaConfirmada(to string, fecha time.Time, hora string) Message {
	return Message{
		To:      to,
		Subject: "Cita confirmada - Clínica Sonrisas",
		HTML:    renderCita(citaConfirmadaTpl, fecha, hora),
	}
}

func CitaCancelada(to string, fecha time.Time, hora string) Message {
	return Message{
		To:      to,
		Subject: "Cita cancelada - Clínica Sonrisas",
		HTML:    renderCita(citaCanceladaTpl, fecha, hora),
	}
}

func CitaCompletada(to string, fecha time.Time, hora string) Message {
	return Message{
		To:      to,
		Subject: "Cita completada - Clínica Sonrisas",
		HTML:    renderCita(citaCompletadaTpl, fecha, hora),
	}
}
