package ingest

import (
	"context"

	"github.com/AngelCh415/LEADS_GO/internal/config"
	"github.com/AngelCh415/LEADS_GO/internal/models"
	"github.com/AngelCh415/LEADS_GO/internal/store"
)

// LeadSource es el store externo: una lectura completa y una escritura por lead.
// Se construye una vez al arrancar y se pasa a quien lo necesite.
type LeadSource interface {
	ListLeads(ctx context.Context) ([]models.RawRecord, error)
	UpsertLead(ctx context.Context, in models.LeadInput) (models.RawRecord, error)
}

// OpenSource abre el backend configurado (tabla REST o SQLite local).
// El func devuelto libera lo que haga falta; siempre es seguro llamarlo.
func OpenSource(cfg config.Config) (LeadSource, func(), error) {
	if cfg.Backend == config.BackendSQLite {
		repo, err := store.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	}
	cl := NewHTTPClient(cfg.HTTPTimeout)
	return NewTableClient(cl, cfg.TableURL, cfg.TableKey), func() {}, nil
}
