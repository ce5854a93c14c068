package api

import (
	"time"

	"github.com/satriahrh/asreval/domain/entities"
)

// StartRunRequest represents the request payload for starting a run
type StartRunRequest struct {
	// Date is YYYY-MM-DD or "default" for yesterday; empty means default
	Date string `json:"date"`
}

// StartRunResponse represents the response payload for a started run
type StartRunResponse struct {
	RunID string    `json:"run_id"`
	Date  string    `json:"date"`
	State string    `json:"state"`
	At    time.Time `json:"started_at"`
}

// HistoryResponse represents the recent history window
type HistoryResponse struct {
	Days    int                        `json:"days"`
	Records []entities.AggregateRecord `json:"records"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
