package leads

import "time"

// WeekStart devuelve el lunes 00:00 de la semana que contiene t, en la zona de t.
// No depende de la convención de inicio de semana del locale (domingo en muchos casos).
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}
