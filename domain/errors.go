package domain

import (
	"errors"
	"fmt"
)

// ErrDuplicateRecord is returned when the history already holds a record for the run date
var ErrDuplicateRecord = errors.New("aggregate record for this date already exists")

// TranscriptError reports a transport or protocol failure while fetching a transcript.
// It is recoverable at sample granularity: the sample is discarded and the run continues.
type TranscriptError struct {
	SampleID string
	Engine   string
	Err      error
}

func (e *TranscriptError) Error() string {
	return fmt.Sprintf("transcript %s/%s: %v", e.Engine, e.SampleID, e.Err)
}

func (e *TranscriptError) Unwrap() error { return e.Err }

// NewTranscriptError wraps err with the sample and engine it failed for
func NewTranscriptError(sampleID, engine string, err error) *TranscriptError {
	return &TranscriptError{SampleID: sampleID, Engine: engine, Err: err}
}

// PersistenceError reports that the history store could not be read or written.
// It is fatal to the run.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("history %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ConfigurationError reports a missing or malformed configuration value.
// It is fatal at startup, before any sample is processed.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %s", e.Key, e.Reason)
}

// IsTranscriptError reports whether err carries a TranscriptError
func IsTranscriptError(err error) bool {
	var te *TranscriptError
	return errors.As(err, &te)
}
