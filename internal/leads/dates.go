package leads

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var directLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

var (
	isoPrefix  = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:[T ](.*))?$`)
	clockZone  = regexp.MustCompile(`^(\d{1,2}:\d{2}(?::\d{2}(?:\.\d+)?)?)\s*(Z|[+-]\d{2}(?::?\d{2})?)?$`)
	slashDate  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2}|\d{4})(?:[ T].*)?$`)
	shortZone  = regexp.MustCompile(`^([+-]\d{2})$`)
	compactOff = regexp.MustCompile(`^([+-]\d{2})(\d{2})$`)
)

// ParseDate interpreta texto de fecha heterogéneo (exports de base de datos y de
// hojas de cálculo). Devuelve la fecha de calendario a las 00:00 UTC, o false.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range directLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return calendarDay(t), true
		}
	}
	if t, ok := parseISOish(s); ok {
		return t, true
	}
	if t, ok := parseSlash(s); ok {
		return t, true
	}
	return time.Time{}, false
}

// parseISOish completa "YYYY-M-D[ hh:mm[:ss]][offset]" a RFC3339 y reintenta.
func parseISOish(s string) (time.Time, bool) {
	m := isoPrefix.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	date := m[1] + "-" + pad2(m[2]) + "-" + pad2(m[3])
	clock, zone := "00:00:00", "Z"
	if rest := strings.TrimSpace(m[4]); rest != "" {
		cz := clockZone.FindStringSubmatch(rest)
		if cz == nil {
			return time.Time{}, false
		}
		clock = cz[1]
		if strings.Count(clock, ":") == 1 {
			clock += ":00"
		}
		if clock[1] == ':' {
			clock = "0" + clock
		}
		if cz[2] != "" {
			zone = normalizeOffset(cz[2])
		}
	}
	t, err := time.Parse(time.RFC3339Nano, date+"T"+clock+zone)
	if err != nil {
		return time.Time{}, false
	}
	return calendarDay(t), true
}

func parseSlash(s string) (time.Time, bool) {
	m := slashDate.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		if year < 50 {
			year += 2000
		} else {
			year += 1900
		}
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// 2/30 no existe: time.Date lo normalizaría a marzo
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func normalizeOffset(z string) string {
	if z == "Z" {
		return z
	}
	if m := shortZone.FindStringSubmatch(z); m != nil {
		return m[1] + ":00"
	}
	if m := compactOff.FindStringSubmatch(z); m != nil {
		return m[1] + ":" + m[2]
	}
	return z
}

// calendarDay conserva la fecha tal como está escrita en su propio offset.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
