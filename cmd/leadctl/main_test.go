package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/AngelCh415/LEADS_GO/internal/config"
	"github.com/AngelCh415/LEADS_GO/internal/leads"
	"github.com/AngelCh415/LEADS_GO/internal/models"
)

func sqliteConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Backend:     config.BackendSQLite,
		DBPath:      filepath.Join(t.TempDir(), "leads.db"),
		ReportWeeks: 4,
		Stages:      leads.DefaultStages(),
	}
}

func TestReorderFlags(t *testing.T) {
	got := reorder([]string{"leads.xlsx", "-sheet", "Feb", "-x=1"})
	want := []string{"-sheet", "Feb", "-x=1", "leads.xlsx"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestImportThenStatusCheckAndReport(t *testing.T) {
	cfg := sqliteConfig(t)
	csvPath := filepath.Join(t.TempDir(), "export.csv")
	csv := "id,Date,Lead_Name,Status_of_lead,ICP,Company\n" +
		"1,2025-02-24,Ana,Emailed,IRO,Acme\n" +
		"2,2/25/25,Bo,Demo,IRO,Globex\n" +
		"3,2025-03-03,Cy,Follow up,BS,Initech\n"
	if err := os.WriteFile(csvPath, []byte(csv), 0o600); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	var out bytes.Buffer
	if err := runImport(ctx, cfg, []string{csvPath}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "imported 3 leads") {
		t.Fatalf("import output: %s", out.String())
	}

	out.Reset()
	if err := runStatusCheck(ctx, cfg, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Total leads: 3") || !strings.Contains(out.String(), "Follow up") {
		t.Fatalf("status-check output: %s", out.String())
	}

	out.Reset()
	if err := runReport(ctx, cfg, []string{"-icp", "iro"}, &out); err != nil {
		t.Fatal(err)
	}
	var rep models.Report
	if err := json.Unmarshal(out.Bytes(), &rep); err != nil {
		t.Fatal(err)
	}
	if rep.Totals.Total != 2 || len(rep.Weeks) != 1 || rep.Weeks[0].WeekStart != "2025-02-24" {
		t.Fatalf("report: %+v", rep)
	}
}

func TestUpsertRequiresFields(t *testing.T) {
	cfg := sqliteConfig(t)
	var out bytes.Buffer
	if err := runUpsert(context.Background(), cfg, []string{"-id", "1"}, &out); err == nil {
		t.Fatal("expected validation error")
	}
	if err := runUpsert(context.Background(), cfg, []string{"-id", "1", "-status", "Demo", "-name", "A", "-company", "B"}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"status_of_lead": "Demo"`) {
		t.Fatalf("output: %s", out.String())
	}
}
