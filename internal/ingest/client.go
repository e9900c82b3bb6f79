package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AngelCh415/LEADS_GO/internal/models"
	"github.com/AngelCh415/LEADS_GO/internal/utils"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

var (
	ErrNotConfigured = errors.New("lead table not configured")
	ErrInvalidLead   = errors.New("invalid lead")
)

// las dos variantes de tabla que conviven en el store: "Leads" con columnas
// capitalizadas y "leads" con columnas en minúscula
type tableVariant struct {
	name    string
	columns func(models.LeadInput) map[string]any
}

var tableVariants = []tableVariant{
	{name: "Leads", columns: func(in models.LeadInput) map[string]any {
		return map[string]any{"id": in.ID, "Status_of_lead": in.Status, "Date": nullable(in.Date), "ICP": nullable(in.ICP), "Lead_Name": in.Name, "Company": in.Org}
	}},
	{name: "leads", columns: func(in models.LeadInput) map[string]any {
		return map[string]any{"id": in.ID, "status_of_lead": in.Status, "date": nullable(in.Date), "icp": nullable(in.ICP), "lead_name": in.Name, "company": in.Org}
	}},
}

// TableClient habla con una tabla alojada estilo PostgREST (/rest/v1/<tabla>).
type TableClient struct {
	c       HTTPClient
	baseURL string
	key     string
	retry   utils.Backoff
}

func NewTableClient(c HTTPClient, baseURL, key string) *TableClient {
	return &TableClient{
		c:       c,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		key:     strings.TrimSpace(key),
		retry:   utils.NewBackoff(100*time.Millisecond, 2),
	}
}

// WithBackoff permite ajustar los reintentos (tests).
func (t *TableClient) WithBackoff(b utils.Backoff) *TableClient {
	t.retry = b
	return t
}

func (t *TableClient) configured() error {
	if t.baseURL == "" || t.key == "" {
		return ErrNotConfigured
	}
	return nil
}

// ListLeads trae todas las filas; si "Leads" falla prueba "leads".
func (t *TableClient) ListLeads(ctx context.Context) ([]models.RawRecord, error) {
	if err := t.configured(); err != nil {
		return nil, err
	}
	var errs []error
	for _, tv := range tableVariants {
		var rows []models.RawRecord
		err := GetJSONWithRetry(ctx, t.c, t.retry, t.tableURL(tv.name, "select=*"), t.headers(), &rows)
		if err == nil {
			if rows == nil {
				rows = []models.RawRecord{}
			}
			return rows, nil
		}
		errs = append(errs, fmt.Errorf("table %s: %w", tv.name, err))
	}
	return nil, fmt.Errorf("list leads: %w", errors.Join(errs...))
}

// UpsertLead inserta o actualiza por id. Devuelve la fila tal como la guardó el store.
func (t *TableClient) UpsertLead(ctx context.Context, in models.LeadInput) (models.RawRecord, error) {
	if err := t.configured(); err != nil {
		return nil, err
	}
	if err := ValidateInput(in); err != nil {
		return nil, err
	}
	var errs []error
	for _, tv := range tableVariants {
		row, err := t.upsert(ctx, tv, in)
		if err == nil {
			return row, nil
		}
		errs = append(errs, fmt.Errorf("table %s: %w", tv.name, err))
	}
	return nil, fmt.Errorf("upsert lead %s: %w", in.ID, errors.Join(errs...))
}

func (t *TableClient) upsert(ctx context.Context, tv tableVariant, in models.LeadInput) (models.RawRecord, error) {
	b, err := json.Marshal([]map[string]any{tv.columns(in)})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tableURL(tv.name, "on_conflict=id"), bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	for k, v := range t.headers() {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=representation")
	resp, err := t.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("non-2xx: %d body=%s", resp.StatusCode, string(body))
	}
	var rows []models.RawRecord
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode upsert response: %w", err)
	}
	if len(rows) == 0 {
		return models.RawRecord{"id": in.ID, "updated": true}, nil
	}
	return rows[0], nil
}

func (t *TableClient) tableURL(table, query string) string {
	return t.baseURL + "/rest/v1/" + table + "?" + query
}

func (t *TableClient) headers() map[string]string {
	return map[string]string{
		"apikey":        t.key,
		"Authorization": "Bearer " + t.key,
		"Accept":        "application/json",
	}
}

// ValidateInput exige id y los campos que el dashboard siempre escribe.
func ValidateInput(in models.LeadInput) error {
	if strings.TrimSpace(in.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidLead)
	}
	required := []struct{ name, v string }{
		{"status_of_lead", in.Status},
		{"lead_name", in.Name},
		{"company", in.Org},
	}
	for _, f := range required {
		if strings.TrimSpace(f.v) == "" {
			return fmt.Errorf("%w: field %s is required", ErrInvalidLead, f.name)
		}
	}
	return nil
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
