package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/satriahrh/asreval/domain"
	"github.com/satriahrh/asreval/domain/entities"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	MessageTypeRunStarted  MessageType = "run_started"
	MessageTypeRunFinished MessageType = "run_finished"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp"`
}

// RunMessage reports a run lifecycle change to subscribers
type RunMessage struct {
	BaseMessage
	RunID    string                    `json:"run_id"`
	Date     string                    `json:"date"`
	State    entities.RunState         `json:"state"`
	Accepted int                       `json:"accepted"`
	Rejected int                       `json:"rejected"`
	Failed   int                       `json:"failed"`
	Record   *entities.AggregateRecord `json:"record,omitempty"`
	Error    string                    `json:"error,omitempty"`
}

// CreateRunMessage builds a run message from a run snapshot
func CreateRunMessage(msgType MessageType, run entities.Run) *RunMessage {
	return &RunMessage{
		BaseMessage: BaseMessage{
			Type:      msgType,
			Timestamp: time.Now().Format(time.RFC3339),
		},
		RunID:    run.ID,
		Date:     run.Date.Format(entities.DateLayout),
		State:    run.State,
		Accepted: run.Count(domain.OutcomeAccepted),
		Rejected: run.Count(domain.OutcomeRejected),
		Failed:   run.Count(domain.OutcomeFailed),
		Record:   run.Record,
		Error:    run.Error,
	}
}

// ParseRunMessage decodes a run event
func ParseRunMessage(data []byte) (*RunMessage, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("failed to parse base message: %w", err)
	}

	switch base.Type {
	case MessageTypeRunStarted, MessageTypeRunFinished:
	default:
		return nil, fmt.Errorf("unknown message type: %s", base.Type)
	}

	var msg RunMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse run message: %w", err)
	}
	return &msg, nil
}
