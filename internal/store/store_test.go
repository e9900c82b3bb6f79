package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/AngelCh415/LEADS_GO/internal/models"
)

func TestSnapshotReplaceAndFail(t *testing.T) {
	s := NewSnapshot()
	if st := s.State(); st.Loaded || len(st.Leads) != 0 {
		t.Fatalf("initial state: %+v", st)
	}

	at := time.Date(2025, 2, 26, 10, 0, 0, 0, time.UTC)
	in := []models.Lead{{ID: "1"}, {ID: "2"}}
	s.Replace(in, at)
	in[0].ID = "mutated"

	st := s.State()
	if !st.Loaded || len(st.Leads) != 2 || st.Leads[0].ID != "1" || !st.LoadedAt.Equal(at) {
		t.Fatalf("after replace: %+v", st)
	}

	s.Fail(errors.New("boom"), at.Add(time.Minute))
	st = s.State()
	if len(st.Leads) != 2 || st.LastErr == nil || !st.LoadedAt.Equal(at) {
		t.Fatalf("fail must keep last good set: %+v", st)
	}

	st.Leads[1].ID = "reader-mutation"
	if s.State().Leads[1].ID != "2" {
		t.Fatal("readers must get a copy")
	}

	s.Replace(nil, at.Add(2*time.Minute))
	if st := s.State(); st.LastErr != nil || len(st.Leads) != 0 || !st.Loaded {
		t.Fatalf("after empty replace: %+v", st)
	}
}

func openTemp(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := OpenSQLite(filepath.Join(t.TempDir(), "leads.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteUpsertAndList(t *testing.T) {
	repo := openTemp(t)
	ctx := context.Background()

	row, err := repo.UpsertLead(ctx, models.LeadInput{ID: "42", Status: "Emailed", Name: "Ana", Org: "Acme", Date: "2025-02-26", ICP: "IRO"})
	if err != nil {
		t.Fatal(err)
	}
	if row["status_of_lead"] != "Emailed" {
		t.Fatalf("row: %v", row)
	}

	if _, err := repo.UpsertLead(ctx, models.LeadInput{ID: "42", Status: "Demo", Name: "Ana", Org: "Acme"}); err != nil {
		t.Fatal(err)
	}
	recs, err := repo.ListLeads(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0]["status_of_lead"] != "Demo" || recs[0]["date"] != "" {
		t.Fatalf("records: %v", recs)
	}

	if _, err := repo.UpsertLead(ctx, models.LeadInput{Status: "Demo"}); !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
}

func TestSQLiteImportRecords(t *testing.T) {
	repo := openTemp(t)
	ctx := context.Background()
	n, err := repo.ImportRecords(ctx, []models.LeadInput{
		{ID: "1", Status: "Lead Generated", Name: "A"},
		{Status: "Opened", Name: "B"},
		{ID: "1", Status: "Emailed", Name: "A"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("imported %d", n)
	}
	recs, err := repo.ListLeads(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 rows after upsert-by-id, got %d", len(recs))
	}
	for _, r := range recs {
		if r["id"] == "1" && r["status_of_lead"] != "Emailed" {
			t.Fatalf("row 1: %v", r)
		}
		if r["id"] == "" {
			t.Fatalf("missing id: %v", r)
		}
	}
}
