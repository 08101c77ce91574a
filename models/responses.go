package models

// List payloads. The API wraps collections in an object so a total can
// travel with them.

// VerifyResponse answers GET /api/auth/verify.
type VerifyResponse struct {
	Valid bool `json:"valid"`
	User  User `json:"user"`
}

type UserList struct {
	Users []User `json:"users"`
	Total int    `json:"total"`
}

type SiteList struct {
	Sites []Site `json:"sites"`
	Total int    `json:"total"`
}

type SquadList struct {
	Squads []Squad `json:"squads"`
	Total  int     `json:"total"`
}

// LogList answers GET /api/dashboard/logs, newest first.
type LogList struct {
	Logs []ProcessingLog `json:"logs"`
}

// Health answers GET /api/health.
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
