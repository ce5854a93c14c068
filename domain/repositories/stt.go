package repositories

import (
	"context"

	"github.com/satriahrh/asreval/domain/entities"
)

// TranscriptSource fetches the raw transcript of one sample from one ASR backend.
// Failures are returned as *domain.TranscriptError; the caller decides what to do with the sample.
type TranscriptSource interface {
	// Engine identifies the backend
	Engine() entities.EngineID
	// Fetch returns the raw transcript text of the sample
	Fetch(ctx context.Context, sample entities.AudioSample) (string, error)
}
