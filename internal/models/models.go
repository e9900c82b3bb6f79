package models

import "time"

// RawRecord es una fila tal cual llega del store externo o de una hoja de cálculo.
type RawRecord map[string]any

type Stage string

type Lead struct {
	ID              string     `json:"id"`
	Synthetic       bool       `json:"synthetic_id,omitempty"`
	DateRaw         string     `json:"date_raw,omitempty"`
	Date            *time.Time `json:"date,omitempty"`
	Stage           Stage      `json:"stage"`
	StageRecognized bool       `json:"stage_recognized"`
	RawStatus       string     `json:"status_of_lead"`
	Category        string     `json:"icp"`
	Name            string     `json:"lead_name"`
	Organization    string     `json:"company"`
}

// DateString devuelve la fecha parseada como YYYY-MM-DD o "" si no hay.
func (l Lead) DateString() string {
	if l.Date == nil {
		return ""
	}
	return l.Date.Format("2006-01-02")
}

// LeadInput es el payload de escritura (PUT /api/leads, leadctl upsert).
type LeadInput struct {
	ID     string `json:"id"`
	Status string `json:"status_of_lead"`
	Date   string `json:"date"`
	ICP    string `json:"icp"`
	Name   string `json:"lead_name"`
	Org    string `json:"company"`
}

type StageCount struct {
	Stage Stage `json:"stage"`
	Count int   `json:"count"`
}

type StageRate struct {
	From Stage   `json:"from"`
	To   Stage   `json:"to"`
	Rate float64 `json:"rate"`
}

type Totals struct {
	Total             int          `json:"total"`
	Reached           []StageCount `json:"reached"`
	Conversion        []StageRate  `json:"conversion"`
	OverallConversion float64      `json:"overall_conversion"`
}

type WeekSummary struct {
	WeekStart  string       `json:"week_start"`
	WeekLabel  string       `json:"week_label"`
	Total      int          `json:"total"`
	New        []StageCount `json:"new"`
	Reached    []StageCount `json:"reached"`
	Conversion []StageRate  `json:"conversion"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type Diagnostics struct {
	Unrecognized []StatusCount `json:"unrecognized"`
	Undated      int           `json:"undated"`
	SyntheticIDs int           `json:"synthetic_ids"`
}

type Report struct {
	Category    string        `json:"icp"`
	Categories  []string      `json:"icps"`
	Totals      Totals        `json:"totals"`
	Weeks       []WeekSummary `json:"weeks"`
	Diagnostics Diagnostics   `json:"diagnostics"`
	LoadedAt    string        `json:"loaded_at,omitempty"`
	Stale       bool          `json:"stale,omitempty"`
	LastError   string        `json:"last_error,omitempty"`
}
