package leads

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AngelCh415/LEADS_GO/internal/models"
)

// IDFunc genera un id para registros sin clave natural.
type IDFunc func() string

// TempID produce "temp-<unix-ms>-<uuid>". Único dentro del lote pero no estable
// entre recargas.
func TempID() string {
	return fmt.Sprintf("temp-%d-%s", time.Now().UnixMilli(), uuid.NewString())
}

// claves aceptadas por campo: primero la capitalizada, luego la minúscula
var fieldKeys = map[string][]string{
	"id":     {"id", "ID", "Id"},
	"date":   {"Date", "date"},
	"name":   {"Lead_Name", "lead_name", "Name", "name"},
	"status": {"Status_of_lead", "status_of_lead", "Status", "status"},
	"icp":    {"ICP", "icp"},
	"org":    {"Company", "company"},
}

// Normalize convierte un registro con claves de casing arbitrario en un Lead
// canónico. Nunca falla: los campos ausentes quedan vacíos.
func Normalize(rec models.RawRecord, vocab *Vocabulary, ids IDFunc) models.Lead {
	if ids == nil {
		ids = TempID
	}
	if vocab == nil {
		vocab = defaultVocab
	}
	l := models.Lead{
		ID:           field(rec, "id"),
		DateRaw:      field(rec, "date"),
		RawStatus:    field(rec, "status"),
		Category:     field(rec, "icp"),
		Name:         field(rec, "name"),
		Organization: field(rec, "org"),
	}
	if l.ID == "" {
		l.ID = ids()
		l.Synthetic = true
	}
	if t, ok := ParseDate(l.DateRaw); ok {
		l.Date = &t
	}
	l.Stage, l.StageRecognized = vocab.Classify(l.RawStatus)
	return l
}

func NormalizeAll(recs []models.RawRecord, vocab *Vocabulary, ids IDFunc) []models.Lead {
	out := make([]models.Lead, 0, len(recs))
	for _, r := range recs {
		out = append(out, Normalize(r, vocab, ids))
	}
	return out
}

func field(rec models.RawRecord, name string) string {
	keys := fieldKeys[name]
	for _, k := range keys {
		if v, ok := rec[k]; ok {
			if s := stringify(v); s != "" {
				return s
			}
		}
	}
	// último recurso: comparación sin mayúsculas, en orden determinista de fieldKeys
	for _, k := range keys {
		for rk, v := range rec {
			if strings.EqualFold(rk, k) {
				if s := stringify(v); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return strings.TrimSpace(x.String())
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// InputFromRecord extrae los campos escribibles de un registro crudo sin
// interpretarlos (la fecha y el estado quedan como texto).
func InputFromRecord(rec models.RawRecord) models.LeadInput {
	return models.LeadInput{
		ID:     field(rec, "id"),
		Status: field(rec, "status"),
		Date:   field(rec, "date"),
		ICP:    field(rec, "icp"),
		Name:   field(rec, "name"),
		Org:    field(rec, "org"),
	}
}
