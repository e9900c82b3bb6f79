package metrics

import (
	"sort"
	"strings"

	"github.com/AngelCh415/LEADS_GO/internal/leads"
	"github.com/AngelCh415/LEADS_GO/internal/models"
)

// DefaultWeeks es cuántas semanas recientes muestra el reporte.
const DefaultWeeks = 4

// AllCategories es el sentinel de "sin filtro".
const AllCategories = "all"

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// FilterByCategory deja solo los leads cuyo ICP coincide (sin mayúsculas).
// "" o "all" no filtran.
func FilterByCategory(in []models.Lead, token string) []models.Lead {
	t := norm(token)
	if t == "" || t == AllCategories {
		return in
	}
	out := make([]models.Lead, 0, len(in))
	for _, l := range in {
		if norm(l.Category) == t {
			out = append(out, l)
		}
	}
	return out
}

// funnel cuenta por etapa: exact[i] = leads cuya etapa actual es i,
// reached[i] = leads en la etapa i o cualquier posterior.
type funnel struct {
	stages  []models.Stage
	index   map[models.Stage]int
	exact   []int
	reached []int
	total   int
}

func newFunnel(stages []models.Stage) *funnel {
	idx := make(map[models.Stage]int, len(stages))
	for i, s := range stages {
		idx[s] = i
	}
	return &funnel{stages: stages, index: idx, exact: make([]int, len(stages)), reached: make([]int, len(stages))}
}

func (f *funnel) add(l models.Lead) {
	i, ok := f.index[l.Stage]
	if !ok {
		i = 0
	}
	f.total++
	f.exact[i]++
	for j := 0; j <= i; j++ {
		f.reached[j]++
	}
}

func (f *funnel) counts(v []int) []models.StageCount {
	out := make([]models.StageCount, len(f.stages))
	for i, s := range f.stages {
		out[i] = models.StageCount{Stage: s, Count: v[i]}
	}
	return out
}

// conversion: reached[N] / reached[N-1] en porcentaje, 0 si el denominador es 0
func (f *funnel) conversion() []models.StageRate {
	out := make([]models.StageRate, 0, len(f.stages))
	for i := 1; i < len(f.stages); i++ {
		out = append(out, models.StageRate{
			From: f.stages[i-1],
			To:   f.stages[i],
			Rate: pct(f.reached[i], f.reached[i-1]),
		})
	}
	return out
}

// ComputeTotals calcula los números de cabecera sobre el conjunto ya filtrado,
// con o sin fecha.
func ComputeTotals(in []models.Lead, stages []models.Stage) models.Totals {
	f := newFunnel(stages)
	for _, l := range in {
		f.add(l)
	}
	t := models.Totals{
		Total:      f.total,
		Reached:    f.counts(f.reached),
		Conversion: f.conversion(),
	}
	if len(stages) > 0 {
		t.OverallConversion = pct(f.reached[len(stages)-1], f.total)
	}
	return t
}

// Weekly agrupa los leads con fecha por semana (lunes) y devuelve las `limit`
// semanas más recientes en orden ascendente. limit <= 0 devuelve todas.
func Weekly(in []models.Lead, stages []models.Stage, limit int) []models.WeekSummary {
	groups := map[string]*funnel{}
	for _, l := range in {
		if l.Date == nil {
			continue
		}
		key := leads.WeekStart(*l.Date).Format("2006-01-02")
		f, ok := groups[key]
		if !ok {
			f = newFunnel(stages)
			groups[key] = f
		}
		f.add(l)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	// orden determinista; YYYY-MM-DD ordena igual que la fecha
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[len(keys)-limit:]
	}

	out := make([]models.WeekSummary, 0, len(keys))
	for _, k := range keys {
		f := groups[k]
		out = append(out, models.WeekSummary{
			WeekStart:  k,
			WeekLabel:  weekLabel(k),
			Total:      f.total,
			New:        f.counts(f.exact),
			Reached:    f.counts(f.reached),
			Conversion: f.conversion(),
		})
	}
	return out
}

// ReportOptions controla la proyección del reporte.
type ReportOptions struct {
	Category string
	Weeks    int
}

// BuildReport es la proyección completa: filtro, totales, semanas y diagnósticos.
// Función pura: mismo input, mismo output.
func BuildReport(all []models.Lead, stages []models.Stage, opts ReportOptions) models.Report {
	filtered := FilterByCategory(all, opts.Category)
	cat := strings.TrimSpace(opts.Category)
	if cat == "" {
		cat = AllCategories
	}
	return models.Report{
		Category:    cat,
		Categories:  Categories(all),
		Totals:      ComputeTotals(filtered, stages),
		Weeks:       Weekly(filtered, stages, opts.Weeks),
		Diagnostics: Diagnose(filtered),
	}
}

// Categories lista los ICP presentes, ordenados y sin duplicados (sin mayúsculas).
func Categories(in []models.Lead) []string {
	seen := map[string]string{}
	for _, l := range in {
		c := strings.TrimSpace(l.Category)
		if c == "" {
			continue
		}
		if _, ok := seen[norm(c)]; !ok {
			seen[norm(c)] = c
		}
	}
	out := make([]string, 0, len(seen))
	for _, c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return norm(out[i]) < norm(out[j]) })
	return out
}

// Diagnose cuenta estados no reconocidos, leads sin fecha e ids sintéticos.
func Diagnose(in []models.Lead) models.Diagnostics {
	d := models.Diagnostics{Unrecognized: []models.StatusCount{}}
	unknown := map[string]int{}
	for _, l := range in {
		if !l.StageRecognized {
			unknown[l.RawStatus]++
		}
		if l.Date == nil {
			d.Undated++
		}
		if l.Synthetic {
			d.SyntheticIDs++
		}
	}
	d.Unrecognized = sortedCounts(unknown)
	return d
}

// StatusHistogram cuenta los estados crudos tal cual vienen del store.
func StatusHistogram(in []models.Lead) []models.StatusCount {
	h := map[string]int{}
	for _, l := range in {
		h[l.RawStatus]++
	}
	return sortedCounts(h)
}

func sortedCounts(m map[string]int) []models.StatusCount {
	out := make([]models.StatusCount, 0, len(m))
	for k, v := range m {
		out = append(out, models.StatusCount{Status: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Status < out[j].Status
	})
	return out
}

func weekLabel(isoDay string) string {
	t, err := parseDay(isoDay)
	if err != nil {
		return isoDay
	}
	return t.Format("Jan 02")
}

func pct(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return round1(float64(num) / float64(den) * 100)
}

func round1(f float64) float64 { return float64(int64(f*10+0.5)) / 10 }
