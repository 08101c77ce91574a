package models

import "time"

// DashboardStats answers GET /api/dashboard/stats.
type DashboardStats struct {
	TotalSites  int        `json:"total_sites"`
	ActiveSites int        `json:"active_sites"`
	TotalUsers  int        `json:"total_users"`
	TotalSquads int        `json:"total_squads"`
	LastUpdate  *time.Time `json:"last_update"`
}

// ProcessRun is returned by POST /api/process/manual.
type ProcessRun struct {
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
	Running bool   `json:"running"`
}
