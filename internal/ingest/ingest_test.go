package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AngelCh415/LEADS_GO/internal/config"
	"github.com/AngelCh415/LEADS_GO/internal/leads"
	"github.com/AngelCh415/LEADS_GO/internal/models"
	"github.com/AngelCh415/LEADS_GO/internal/store"
	"github.com/AngelCh415/LEADS_GO/internal/telemetry"
	"github.com/AngelCh415/LEADS_GO/internal/utils"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func fastClient(url string) *TableClient {
	return NewTableClient(NewHTTPClient(2*time.Second), url, "secret").WithBackoff(utils.NewBackoff(time.Millisecond, 1))
}

func TestHTTPClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewHTTPClient(50 * time.Millisecond)
	var v any
	if err := getJSON(context.Background(), c, srv.URL, nil, &v); err == nil {
		t.Fatal("expected timeout error, got nil")
	}
}

func TestGetJSONRetriesThen500(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	var v any
	err := GetJSONWithRetry(context.Background(), NewHTTPClient(time.Second), utils.NewBackoff(time.Millisecond, 2), srv.URL, nil, &v)
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("expected 500 error, got %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestListLeadsFallsBackToLowercaseTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "secret" || r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/rest/v1/Leads":
			http.Error(w, `{"message":"relation does not exist"}`, http.StatusNotFound)
		case "/rest/v1/leads":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"id":1,"status_of_lead":"Emailed","date":"2025-02-26"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	recs, err := fastClient(srv.URL).ListLeads(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0]["status_of_lead"] != "Emailed" {
		t.Fatalf("records: %v", recs)
	}
}

func TestListLeadsBothTablesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).ListLeads(context.Background())
	if err == nil || !strings.Contains(err.Error(), "table Leads") || !strings.Contains(err.Error(), "table leads") {
		t.Fatalf("expected error mentioning both tables, got %v", err)
	}
}

func TestListLeadsNotConfigured(t *testing.T) {
	_, err := NewTableClient(NewHTTPClient(time.Second), "", "").ListLeads(context.Background())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestUpsertLeadValidation(t *testing.T) {
	c := fastClient("http://127.0.0.1:0")
	cases := []models.LeadInput{
		{Status: "Emailed", Name: "A", Org: "B"},
		{ID: "1", Name: "A", Org: "B"},
		{ID: "1", Status: "Emailed", Org: "B"},
		{ID: "1", Status: "Emailed", Name: "A"},
	}
	for _, in := range cases {
		if _, err := c.UpsertLead(context.Background(), in); !errors.Is(err, ErrInvalidLead) {
			t.Fatalf("input %+v: expected ErrInvalidLead, got %v", in, err)
		}
	}
}

func TestUpsertLeadUppercaseThenLowercase(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Query().Get("on_conflict") != "id" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if r.URL.Path == "/rest/v1/Leads" {
			http.Error(w, "column does not exist", http.StatusBadRequest)
			return
		}
		if !strings.Contains(r.Header.Get("Prefer"), "merge-duplicates") {
			http.Error(w, "missing prefer", http.StatusBadRequest)
			return
		}
		var body []map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		got = body[0]
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	row, err := fastClient(srv.URL).UpsertLead(context.Background(), models.LeadInput{ID: "9", Status: "Demo", Name: "Ana", Org: "Acme"})
	if err != nil {
		t.Fatal(err)
	}
	if got["status_of_lead"] != "Demo" || got["lead_name"] != "Ana" || got["date"] != nil {
		t.Fatalf("body: %v", got)
	}
	if row["id"] != "9" {
		t.Fatalf("row: %v", row)
	}
}

type fakeSource struct {
	mu    sync.Mutex
	recs  []models.RawRecord
	err   error
	calls int
}

func (f *fakeSource) ListLeads(ctx context.Context) ([]models.RawRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.recs, nil
}

func (f *fakeSource) UpsertLead(ctx context.Context, in models.LeadInput) (models.RawRecord, error) {
	if err := ValidateInput(in); err != nil {
		return nil, err
	}
	return models.RawRecord{"id": in.ID}, nil
}

func (f *fakeSource) set(recs []models.RawRecord, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs, f.err = recs, err
}

func (f *fakeSource) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRefresherKeepsLastGoodSet(t *testing.T) {
	src := &fakeSource{}
	snap := store.NewSnapshot()
	r := NewRefresher(src, snap, leads.MustDefaultVocabulary(), quiet, telemetry.New())

	src.set([]models.RawRecord{
		{"id": 1, "Status_of_lead": "Emailed", "Date": "2025-02-26"},
		{"status_of_lead": "Something else"},
	}, nil)
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	st := snap.State()
	if len(st.Leads) != 2 || st.LastErr != nil {
		t.Fatalf("after good fetch: %+v", st)
	}
	if !st.Leads[1].Synthetic || st.Leads[1].StageRecognized {
		t.Fatalf("second lead: %+v", st.Leads[1])
	}

	src.set(nil, errors.New("upstream down"))
	if err := r.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	st = snap.State()
	if len(st.Leads) != 2 || st.LastErr == nil {
		t.Fatalf("after failed fetch: %+v", st)
	}
}

func TestRefresherLoopStopsOnCancel(t *testing.T) {
	src := &fakeSource{recs: []models.RawRecord{{"id": "1"}}}
	r := NewRefresher(src, store.NewSnapshot(), leads.MustDefaultVocabulary(), quiet, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Loop(ctx, 5*time.Millisecond) }()

	deadline := time.Now().Add(2 * time.Second)
	for src.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("loop returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
	if src.count() < 3 {
		t.Fatalf("expected periodic refreshes, got %d", src.count())
	}
}

func TestOpenSourceByBackend(t *testing.T) {
	cfg := config.Config{Backend: config.BackendSQLite, DBPath: filepath.Join(t.TempDir(), "leads.db")}
	src, closeSrc, err := OpenSource(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := src.(*store.SQLiteRepository); !ok {
		t.Fatalf("sqlite backend gave %T", src)
	}
	if _, err := src.UpsertLead(context.Background(), models.LeadInput{ID: "1", Status: "Demo", Name: "A", Org: "B"}); err != nil {
		t.Fatal(err)
	}
	closeSrc()

	cfg = config.Config{Backend: config.BackendREST, HTTPTimeout: time.Second}
	src, closeSrc, err = OpenSource(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer closeSrc()
	if _, err := src.ListLeads(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("rest without url: %v", err)
	}
}
