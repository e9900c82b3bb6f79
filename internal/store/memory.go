package store

import (
	"sync"
	"time"

	"github.com/AngelCh415/LEADS_GO/internal/models"
)

// Snapshot guarda el último conjunto de leads bueno. Solo se reemplaza completo,
// nunca se muta en sitio.
type Snapshot struct {
	mu          sync.RWMutex
	leads       []models.Lead
	loaded      bool
	loadedAt    time.Time
	lastAttempt time.Time
	lastErr     error
}

// State es una copia consistente del snapshot para lectores.
type State struct {
	Leads       []models.Lead
	Loaded      bool
	LoadedAt    time.Time
	LastAttempt time.Time
	LastErr     error
}

func NewSnapshot() *Snapshot { return &Snapshot{} }

// Replace cambia el conjunto completo y limpia el último error.
func (s *Snapshot) Replace(leads []models.Lead, at time.Time) {
	cp := make([]models.Lead, len(leads))
	copy(cp, leads)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = cp
	s.loaded = true
	s.loadedAt = at
	s.lastAttempt = at
	s.lastErr = nil
}

// Fail registra un fetch fallido sin tocar los datos anteriores.
func (s *Snapshot) Fail(err error, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	s.lastAttempt = at
}

func (s *Snapshot) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]models.Lead, len(s.leads))
	copy(cp, s.leads)
	return State{
		Leads:       cp,
		Loaded:      s.loaded,
		LoadedAt:    s.loadedAt,
		LastAttempt: s.lastAttempt,
		LastErr:     s.lastErr,
	}
}

func (s *Snapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.leads)
}

func (s *Snapshot) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}
