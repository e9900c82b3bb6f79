package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/AngelCh415/LEADS_GO/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS leads (
	id             TEXT PRIMARY KEY,
	date           TEXT NOT NULL DEFAULT '',
	lead_name      TEXT NOT NULL DEFAULT '',
	status_of_lead TEXT NOT NULL DEFAULT '',
	icp            TEXT NOT NULL DEFAULT '',
	company        TEXT NOT NULL DEFAULT '',
	updated_at     TEXT NOT NULL
);
`

const upsertSQL = `
INSERT INTO leads (id, date, lead_name, status_of_lead, icp, company, updated_at)
VALUES (:id, :date, :lead_name, :status_of_lead, :icp, :company, :updated_at)
ON CONFLICT(id) DO UPDATE SET
	date = excluded.date,
	lead_name = excluded.lead_name,
	status_of_lead = excluded.status_of_lead,
	icp = excluded.icp,
	company = excluded.company,
	updated_at = excluded.updated_at`

type leadRow struct {
	ID        string `db:"id"`
	Date      string `db:"date"`
	Name      string `db:"lead_name"`
	Status    string `db:"status_of_lead"`
	ICP       string `db:"icp"`
	Company   string `db:"company"`
	UpdatedAt string `db:"updated_at"`
}

func (r leadRow) record() models.RawRecord {
	return models.RawRecord{
		"id":             r.ID,
		"date":           r.Date,
		"lead_name":      r.Name,
		"status_of_lead": r.Status,
		"icp":            r.ICP,
		"company":        r.Company,
	}
}

var ErrMissingID = errors.New("lead id is required")

// SQLiteRepository guarda leads en un archivo SQLite local. Cumple el mismo
// contrato de lectura/escritura que la tabla remota.
type SQLiteRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func OpenSQLite(path string) (*SQLiteRepository, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (s *SQLiteRepository) Close() error { return s.db.Close() }

func (s *SQLiteRepository) ListLeads(ctx context.Context) ([]models.RawRecord, error) {
	var rows []leadRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, date, lead_name, status_of_lead, icp, company, updated_at FROM leads ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	out := make([]models.RawRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

func (s *SQLiteRepository) UpsertLead(ctx context.Context, in models.LeadInput) (models.RawRecord, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, ErrMissingID
	}
	row := leadRow{
		ID:        strings.TrimSpace(in.ID),
		Date:      in.Date,
		Name:      in.Name,
		Status:    in.Status,
		ICP:       in.ICP,
		Company:   in.Org,
		UpdatedAt: s.now().UTC().Format(time.RFC3339),
	}
	if _, err := s.db.NamedExecContext(ctx, upsertSQL, row); err != nil {
		return nil, fmt.Errorf("upsert lead %s: %w", row.ID, err)
	}
	return s.get(ctx, row.ID)
}

func (s *SQLiteRepository) get(ctx context.Context, id string) (models.RawRecord, error) {
	var r leadRow
	err := s.db.GetContext(ctx, &r, `SELECT id, date, lead_name, status_of_lead, icp, company, updated_at FROM leads WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lead %s not found after upsert", id)
	}
	if err != nil {
		return nil, err
	}
	return r.record(), nil
}

// ImportRecords guarda registros crudos (p. ej. de una hoja de cálculo) en una
// sola transacción. Los que no traen id reciben un uuid.
func (s *SQLiteRepository) ImportRecords(ctx context.Context, recs []models.LeadInput) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() //nolint:errcheck
	stamp := s.now().UTC().Format(time.RFC3339)
	n := 0
	for _, in := range recs {
		id := strings.TrimSpace(in.ID)
		if id == "" {
			id = uuid.NewString()
		}
		row := leadRow{ID: id, Date: in.Date, Name: in.Name, Status: in.Status, ICP: in.ICP, Company: in.Org, UpdatedAt: stamp}
		if _, err := tx.NamedExecContext(ctx, upsertSQL, row); err != nil {
			return 0, fmt.Errorf("import lead %s: %w", id, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}
