package importer

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/AngelCh415/LEADS_GO/internal/leads"
)

func TestReadCSV(t *testing.T) {
	in := "Date,Lead_Name,Status_of_lead,ICP,Company\n" +
		"2/26/25,Ana,Emailed,IRO,Acme\n" +
		",,,,\n" +
		"45714,Bo,Demo,BS,Globex\n"
	recs, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records (blank row skipped), got %d", len(recs))
	}
	if recs[0]["Status_of_lead"] != "Emailed" || recs[0]["Date"] != "2/26/25" {
		t.Fatalf("row 0: %v", recs[0])
	}
	if recs[1]["Date"] != "2025-02-26" {
		t.Fatalf("excel serial not converted: %v", recs[1]["Date"])
	}
}

func TestReadCSVStripsByteOrderMark(t *testing.T) {
	in := "\ufeffDate,Lead_Name,Status_of_lead\n2/26/25,Ana,Emailed\n"
	recs, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0]["Date"] != "2/26/25" {
		t.Fatalf("records: %v", recs)
	}
	l := leads.Normalize(recs[0], leads.MustDefaultVocabulary(), nil)
	if l.Date == nil || l.DateString() != "2025-02-26" {
		t.Fatalf("date lost: raw=%q date=%v", l.DateRaw, l.Date)
	}
}

func TestReadCSVEmpty(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("")); !errors.Is(err, ErrEmptySheet) {
		t.Fatalf("expected ErrEmptySheet, got %v", err)
	}
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"id", "date", "lead_name", "status_of_lead", "icp", "company"},
		{"7", "2025-02-24", "Ana", "Opened", "IRO", "Acme"},
		{"8", "", "Bo", "", "", "Globex"},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}

	recs, err := ReadXLSX(&buf, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0]["status_of_lead"] != "Opened" || recs[1]["company"] != "Globex" {
		t.Fatalf("records: %v", recs)
	}
}

func TestReadFileUnsupported(t *testing.T) {
	if _, err := ReadFile("leads.txt", ""); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}
