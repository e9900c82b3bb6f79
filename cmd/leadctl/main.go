package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AngelCh415/LEADS_GO/internal/config"
	"github.com/AngelCh415/LEADS_GO/internal/importer"
	"github.com/AngelCh415/LEADS_GO/internal/ingest"
	"github.com/AngelCh415/LEADS_GO/internal/leads"
	"github.com/AngelCh415/LEADS_GO/internal/metrics"
	"github.com/AngelCh415/LEADS_GO/internal/models"
	"github.com/AngelCh415/LEADS_GO/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(2)
	}

	cfg, err := config.Load(os.Getenv("LEADS_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "import":
		err = runImport(ctx, cfg, os.Args[2:], os.Stdout)
	case "status-check":
		err = runStatusCheck(ctx, cfg, os.Stdout)
	case "report":
		err = runReport(ctx, cfg, os.Args[2:], os.Stdout)
	case "upsert":
		err = runUpsert(ctx, cfg, os.Args[2:], os.Stdout)
	case "help", "--help", "-h":
		printUsage(os.Stdout)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		logger.Error(os.Args[1]+" failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: leadctl <command> [flags]

Commands:
  import <file.csv|file.xlsx> [-sheet name]   load a spreadsheet export into the SQLite store
  status-check                                raw status histogram and unrecognized values
  report [-icp X] [-weeks N]                  funnel report as JSON
  upsert -id ID -status S -name N -company C [-date D] [-icp X]
`)
}

func loadLeads(ctx context.Context, cfg config.Config) ([]models.Lead, *leads.Vocabulary, error) {
	vocab, err := cfg.Vocabulary()
	if err != nil {
		return nil, nil, err
	}
	src, closeSrc, err := ingest.OpenSource(cfg)
	if err != nil {
		return nil, nil, err
	}
	defer closeSrc()
	recs, err := src.ListLeads(ctx)
	if err != nil {
		return nil, nil, err
	}
	return leads.NormalizeAll(recs, vocab, nil), vocab, nil
}

func runImport(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	sheet := fs.String("sheet", "", "worksheet name (xlsx only; default first sheet)")
	if err := fs.Parse(reorder(args)); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: leadctl import <file.csv|file.xlsx> [-sheet name]")
	}
	recs, err := importer.ReadFile(fs.Arg(0), *sheet)
	if err != nil {
		return err
	}
	inputs := make([]models.LeadInput, 0, len(recs))
	for _, r := range recs {
		inputs = append(inputs, leads.InputFromRecord(r))
	}

	repo, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer repo.Close()
	n, err := repo.ImportRecords(ctx, inputs)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "imported %d leads into %s\n", n, cfg.DBPath)
	return nil
}

func runStatusCheck(ctx context.Context, cfg config.Config, out io.Writer) error {
	ls, _, err := loadLeads(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Total leads: %d\n\nStatus counts:\n", len(ls))
	for _, c := range metrics.StatusHistogram(ls) {
		label := c.Status
		if label == "" {
			label = "(empty)"
		}
		fmt.Fprintf(out, "  %-24s %d\n", label, c.Count)
	}
	unknown := metrics.Diagnose(ls).Unrecognized
	if len(unknown) == 0 {
		fmt.Fprintln(out, "\nAll statuses map to a stage.")
		return nil
	}
	fmt.Fprintln(out, "\nUnrecognized (counted as the first stage):")
	for _, c := range unknown {
		fmt.Fprintf(out, "  %-24s %d\n", c.Status, c.Count)
	}
	return nil
}

func runReport(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	icp := fs.String("icp", "", "ICP filter (empty or \"all\" for no filter)")
	weeks := fs.Int("weeks", cfg.ReportWeeks, "most recent weeks to include (<=0 for all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ls, vocab, err := loadLeads(ctx, cfg)
	if err != nil {
		return err
	}
	snap := store.NewSnapshot()
	snap.Replace(ls, time.Now())
	rep, err := metrics.NewService(snap, vocab, cfg.ReportWeeks).Report(url.Values{
		"icp":   {*icp},
		"weeks": {strconv.Itoa(*weeks)},
	})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func runUpsert(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("upsert", flag.ContinueOnError)
	var in models.LeadInput
	fs.StringVar(&in.ID, "id", "", "lead id")
	fs.StringVar(&in.Status, "status", "", "status_of_lead")
	fs.StringVar(&in.Name, "name", "", "lead_name")
	fs.StringVar(&in.Org, "company", "", "company")
	fs.StringVar(&in.Date, "date", "", "date")
	fs.StringVar(&in.ICP, "icp", "", "icp")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := ingest.ValidateInput(in); err != nil {
		return err
	}
	src, closeSrc, err := ingest.OpenSource(cfg)
	if err != nil {
		return err
	}
	defer closeSrc()
	row, err := src.UpsertLead(ctx, in)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(row)
}

// reorder deja los flags antes de los posicionales: "import file.xlsx -sheet X".
func reorder(args []string) []string {
	var flags, pos []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if len(a) > 1 && a[0] == '-' {
			flags = append(flags, a)
			if i+1 < len(args) && !strings.Contains(a, "=") {
				flags = append(flags, args[i+1])
				i++
			}
			continue
		}
		pos = append(pos, a)
	}
	return append(flags, pos...)
}
