package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AngelCh415/LEADS_GO/internal/ingest"
	"github.com/AngelCh415/LEADS_GO/internal/leads"
	"github.com/AngelCh415/LEADS_GO/internal/metrics"
	"github.com/AngelCh415/LEADS_GO/internal/models"
	"github.com/AngelCh415/LEADS_GO/internal/telemetry"
	"github.com/AngelCh415/LEADS_GO/internal/utils"
)

const maxBody = 1 << 20

func NewRouter(log *slog.Logger, ref *ingest.Refresher, mSvc *metrics.Service, tm *telemetry.Metrics) http.Handler {
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))
	mux.Use(tm.Middleware)

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !mSvc.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
		w.Write([]byte("ready"))
	})
	mux.Method(http.MethodGet, "/metrics", tm.Handler())

	mux.Route("/api", func(api chi.Router) {
		api.Get("/leads", func(w http.ResponseWriter, r *http.Request) {
			rows, err := mSvc.Leads(r.URL.Query())
			if err != nil {
				writeErr(w, log, r, err)
				return
			}
			writeJSON(w, http.StatusOK, rows)
		})

		api.Put("/leads", func(w http.ResponseWriter, r *http.Request) {
			// el id puede venir como número (ids enteros de la tabla) o como texto
			var rec models.RawRecord
			dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
			dec.UseNumber()
			if err := dec.Decode(&rec); err != nil || rec == nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
				return
			}
			row, err := ref.Upsert(r.Context(), leads.InputFromRecord(rec))
			if err != nil {
				writeErr(w, log, r, err)
				return
			}
			writeJSON(w, http.StatusOK, row)
		})

		api.Get("/report", func(w http.ResponseWriter, r *http.Request) {
			rep, err := mSvc.Report(r.URL.Query())
			if err != nil {
				writeErr(w, log, r, err)
				return
			}
			writeJSON(w, http.StatusOK, rep)
		})

		api.Get("/status-check", func(w http.ResponseWriter, r *http.Request) {
			sc, err := mSvc.StatusCheck()
			if err != nil {
				writeErr(w, log, r, err)
				return
			}
			writeJSON(w, http.StatusOK, sc)
		})

		api.Post("/refresh", func(w http.ResponseWriter, r *http.Request) {
			if err := ref.Run(r.Context()); err != nil {
				writeErr(w, log, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"refreshed": true})
		})
	})

	return mux
}

// writeErr traduce errores de dominio a códigos HTTP.
func writeErr(w http.ResponseWriter, log *slog.Logger, r *http.Request, err error) {
	code := http.StatusBadGateway
	msg := err.Error()
	switch {
	case errors.Is(err, ingest.ErrInvalidLead):
		code = http.StatusBadRequest
	case errors.Is(err, metrics.ErrDataUnavailable):
		code = http.StatusServiceUnavailable
		msg = "data unavailable"
	case errors.Is(err, ingest.ErrNotConfigured):
		code = http.StatusInternalServerError
		msg = "database configuration error"
	}
	log.Warn("request failed", slog.String("path", r.URL.Path), slog.String("rid", utils.RID(r.Context())), slog.String("err", err.Error()))
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}
