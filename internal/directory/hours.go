package directory

import (
	"fmt"
	"time"

	"parchaoo-bot/internal/repo"
)

// OpenStatus is the tri-state result of an open-now check. Open is nil when
// the business has no schedule row for the day in question.
type OpenStatus struct {
	Open    *bool
	Message string
}

var spanishWeekdays = [...]string{
	time.Sunday:    "domingo",
	time.Monday:    "lunes",
	time.Tuesday:   "martes",
	time.Wednesday: "miercoles",
	time.Thursday:  "jueves",
	time.Friday:    "viernes",
	time.Saturday:  "sabado",
}

func weekdaySpanish(d time.Weekday) string {
	return spanishWeekdays[d]
}

// openStatusAt evaluates a schedule row against a wall-clock instant. Bounds
// are inclusive on both ends.
func openStatusAt(h *repo.Hours, now time.Time) OpenStatus {
	if h == nil {
		return OpenStatus{Message: "No hay información de horario para hoy"}
	}
	if h.Cerrado {
		closed := false
		return OpenStatus{Open: &closed, Message: fmt.Sprintf("Cerrado los %ss", h.DiaSemana)}
	}

	apertura, err1 := parseClock(h.HoraApertura)
	cierre, err2 := parseClock(h.HoraCierre)
	if err1 != nil || err2 != nil {
		return OpenStatus{Message: "Error al verificar horario"}
	}

	current := now.Hour()*3600 + now.Minute()*60 + now.Second()
	if current >= apertura && current <= cierre {
		open := true
		return OpenStatus{Open: &open, Message: "Abierto hasta las " + formatClock12(cierre)}
	}
	closed := false
	return OpenStatus{Open: &closed, Message: "Abre a las " + formatClock12(apertura)}
}

// parseClock converts an "HH:MM:SS" string to seconds since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		t, err = time.Parse("15:04", s)
		if err != nil {
			return 0, fmt.Errorf("parse clock %q: %w", s, err)
		}
	}
	return t.Hour()*3600 + t.Minute()*60 + t.Second(), nil
}

func formatClock12(seconds int) string {
	t := time.Date(0, 1, 1, seconds/3600, (seconds/60)%60, 0, 0, time.UTC)
	return t.Format("03:04 PM")
}
