package metrics

import (
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/AngelCh415/LEADS_GO/internal/leads"
	"github.com/AngelCh415/LEADS_GO/internal/models"
	"github.com/AngelCh415/LEADS_GO/internal/store"
)

// ErrDataUnavailable: nunca hubo un fetch bueno y el último intento falló.
// Es distinto de "cero leads".
var ErrDataUnavailable = errors.New("data unavailable")

type Service struct {
	st    *store.Snapshot
	vocab *leads.Vocabulary
	weeks int
}

// NewService usa weeks tal cual como valor por defecto de ?weeks=;
// weeks<=0 significa todas las semanas.
func NewService(st *store.Snapshot, vocab *leads.Vocabulary, weeks int) *Service {
	return &Service{st: st, vocab: vocab, weeks: weeks}
}

func (s *Service) state() (store.State, error) {
	st := s.st.State()
	if !st.Loaded && st.LastErr != nil {
		return st, ErrDataUnavailable
	}
	return st, nil
}

// Report atiende ?icp=&weeks=. weeks<=0 devuelve todas las semanas.
func (s *Service) Report(v url.Values) (models.Report, error) {
	st, err := s.state()
	if err != nil {
		return models.Report{}, err
	}
	rep := BuildReport(st.Leads, s.vocab.Stages(), ReportOptions{
		Category: v.Get("icp"),
		Weeks:    atoiDef(v.Get("weeks"), s.weeks),
	})
	if st.Loaded {
		rep.LoadedAt = st.LoadedAt.UTC().Format(time.RFC3339)
	}
	if st.LastErr != nil {
		rep.Stale = true
		rep.LastError = st.LastErr.Error()
	}
	return rep, nil
}

// Leads devuelve los leads normalizados filtrados por ?icp=.
func (s *Service) Leads(v url.Values) ([]models.Lead, error) {
	st, err := s.state()
	if err != nil {
		return nil, err
	}
	return FilterByCategory(st.Leads, v.Get("icp")), nil
}

type StatusCheck struct {
	Total        int                  `json:"total"`
	Statuses     []models.StatusCount `json:"statuses"`
	Unrecognized []models.StatusCount `json:"unrecognized"`
}

func (s *Service) StatusCheck() (StatusCheck, error) {
	st, err := s.state()
	if err != nil {
		return StatusCheck{}, err
	}
	return StatusCheck{
		Total:        len(st.Leads),
		Statuses:     StatusHistogram(st.Leads),
		Unrecognized: Diagnose(st.Leads).Unrecognized,
	}, nil
}

// Ready indica si hay al menos un conjunto bueno cargado.
func (s *Service) Ready() bool { return s.st.Loaded() }

func parseDay(s string) (time.Time, error) { return time.Parse("2006-01-02", s) }

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}
