package domain

import (
	"fmt"
	"time"
)

// OutcomeKind is the disposition of one sample within a run
type OutcomeKind string

const (
	OutcomeAccepted OutcomeKind = "accepted"
	OutcomeRejected OutcomeKind = "rejected"
	OutcomeFailed   OutcomeKind = "failed"
)

const timestampLayout = "2006-01-02 15:04:05"

// StartedMessage is the notification sent when a run begins
func StartedMessage(now time.Time) string {
	return fmt.Sprintf("%s evaluation report started", now.Format(timestampLayout))
}

// FailedMessage is the notification sent when a run ends in failure
func FailedMessage(now time.Time, err error) string {
	return fmt.Sprintf("%s evaluation report error: %v", now.Format(timestampLayout), err)
}

// CompletedMessage is the notification sent when a run finishes
func CompletedMessage(now time.Time) string {
	return fmt.Sprintf("%s evaluation report complete", now.Format(timestampLayout))
}
