package models

import (
	"strings"
	"time"
)

// LogStatus classifies a processing log row.
type LogStatus string

const (
	LogSuccess LogStatus = "success"
	LogError   LogStatus = "error"
	LogInfo    LogStatus = "info"
)

// SquadLogPrefix marks squad summary rows in the site_name column.
const SquadLogPrefix = "[SQUAD]"

// ProcessingLog is one append-only row written by the processing job.
//
// Per-site success rows carry "Inv: <v> | Rec: <v> | ROAS: <v> | MC: <v>" in
// Message; squad summaries ("[SQUAD] <name>") carry "ROAS <v>, MC <v>".
type ProcessingLog struct {
	ID        int64     `json:"id"`
	SiteName  string    `json:"site_name"`
	Status    LogStatus `json:"status"`
	Message   string    `json:"message"`
	RunID     string    `json:"run_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsSquadSummary reports whether the row is a squad-level pseudo row.
func (l *ProcessingLog) IsSquadSummary() bool {
	return strings.HasPrefix(l.SiteName, SquadLogPrefix)
}

// SquadSummaryName builds the site_name used for a squad summary row.
func SquadSummaryName(squad string) string {
	return SquadLogPrefix + " " + squad
}
