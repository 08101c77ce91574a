// Package ws pushes live processing events to dashboard clients.
//
// A client connects to GET /ws?token=<jwt>. The server sends "ready", then
// one event per written processing log plus run start/finish markers.
// The only inbound op is "heartbeat", answered with "heartbeat_ack".
package ws

import (
	"time"

	"github.com/cargaslack/carga/models"
)

// Event is the wire frame in both directions. Seq grows by one per
// outbound broadcast so a client can notice gaps.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// Client → server.
const (
	OpHeartbeat = "heartbeat"
)

// Server → client.
const (
	OpReady              = "ready"
	OpHeartbeatAck       = "heartbeat_ack"
	OpLogCreated         = "log_created"
	OpProcessingStarted  = "processing_started"
	OpProcessingFinished = "processing_finished"
)

// ReadyData is sent once after the upgrade.
type ReadyData struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// LogCreatedData carries one processing log row.
type LogCreatedData = models.ProcessingLog

// ProcessingStartedData marks the beginning of a batch run.
type ProcessingStartedData struct {
	RunID     string    `json:"run_id"`
	Trigger   string    `json:"trigger"`
	Sites     int       `json:"sites"`
	StartedAt time.Time `json:"started_at"`
}

// ProcessingFinishedData summarizes a batch run.
type ProcessingFinishedData struct {
	RunID      string    `json:"run_id"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	FinishedAt time.Time `json:"finished_at"`
}
