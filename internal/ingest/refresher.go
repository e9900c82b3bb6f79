package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/AngelCh415/LEADS_GO/internal/leads"
	"github.com/AngelCh415/LEADS_GO/internal/models"
	"github.com/AngelCh415/LEADS_GO/internal/store"
	"github.com/AngelCh415/LEADS_GO/internal/telemetry"
)

// Refresher trae el conjunto completo del store externo, lo normaliza y lo
// reemplaza entero en el snapshot. Si el fetch falla se queda el último bueno.
type Refresher struct {
	src   LeadSource
	snap  *store.Snapshot
	vocab *leads.Vocabulary
	log   *slog.Logger
	m     *telemetry.Metrics
	now   func() time.Time
	ids   leads.IDFunc
}

func NewRefresher(src LeadSource, snap *store.Snapshot, vocab *leads.Vocabulary, log *slog.Logger, m *telemetry.Metrics) *Refresher {
	return &Refresher{src: src, snap: snap, vocab: vocab, log: log, m: m, now: time.Now, ids: leads.TempID}
}

func (r *Refresher) Run(ctx context.Context) error {
	start := r.now()
	recs, err := r.src.ListLeads(ctx)
	if err != nil {
		r.snap.Fail(err, r.now())
		r.m.ObserveRefresh(false, 0, 0)
		r.log.Error("refresh failed", slog.String("err", err.Error()), slog.Int("kept", r.snap.Len()))
		return err
	}

	// todo se calcula fuera del lock; el swap es un solo paso
	ls := leads.NormalizeAll(recs, r.vocab, r.ids)
	unrecognized := 0
	for _, l := range ls {
		if !l.StageRecognized {
			unrecognized++
		}
	}
	r.snap.Replace(ls, r.now())
	r.m.ObserveRefresh(true, len(ls), unrecognized)
	r.log.Info("refresh complete",
		slog.Int("leads", len(ls)),
		slog.Int("unrecognized_status", unrecognized),
		slog.Duration("took", r.now().Sub(start)))
	return nil
}

// Loop corre Run ya y luego cada `every` hasta que ctx se cancele.
func (r *Refresher) Loop(ctx context.Context, every time.Duration) error {
	_ = r.Run(ctx)
	if every <= 0 {
		<-ctx.Done()
		return nil
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			_ = r.Run(ctx)
		}
	}
}

// Upsert delega la escritura al store externo y refresca en segundo plano.
func (r *Refresher) Upsert(ctx context.Context, in models.LeadInput) (models.RawRecord, error) {
	if err := ValidateInput(in); err != nil {
		return nil, err
	}
	row, err := r.src.UpsertLead(ctx, in)
	r.m.ObserveUpsert(err == nil)
	if err != nil {
		return nil, err
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = r.Run(ctx)
	}()
	return row, nil
}
