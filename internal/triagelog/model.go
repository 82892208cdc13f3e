package triagelog

import (
	"time"

	"github.com/siraya-health/navigator/internal/shared/types"
	"github.com/siraya-health/navigator/internal/triage"
)

// Entry is one completed triage in the append-only log
type Entry struct {
	ID             types.ID       `json:"id"`
	SessionID      types.ID       `json:"session_id"`
	LoggedAt       time.Time      `json:"logged_at"`
	Comune         string         `json:"comune"`
	Path           triage.Path    `json:"path"`
	Branch         triage.Branch  `json:"branch"`
	Urgency        int            `json:"urgency"`
	Disposition    string         `json:"disposition"`
	EmergencyColor triage.Color   `json:"emergency_color"`
	RedFlags       []string       `json:"red_flags"`
	Detail         map[string]any `json:"detail,omitempty"`
}

// Stats is the KPI summary over the log
type Stats struct {
	Total          int            `json:"total"`
	ByUrgency      map[int]int    `json:"by_urgency"`
	ByDisposition  map[string]int `json:"by_disposition"`
	EmergencyCount int            `json:"emergency_count"`
	// PSDeviationRate is the share of completed triages resolved without
	// sending the patient to the emergency department
	PSDeviationRate float64       `json:"ps_deviation_rate"`
	Hourly          []HourlyCount `json:"hourly"`
}

// HourlyCount is the triage throughput for one hour bucket
type HourlyCount struct {
	Hour  time.Time `json:"hour"`
	Count int       `json:"count"`
}
