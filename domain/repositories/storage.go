package repositories

import (
	"context"
	"time"

	"github.com/satriahrh/asreval/domain/entities"
)

// SampleStorage lists pending samples and removes consumed ones
type SampleStorage interface {
	// List returns pending samples tagged with dateTag ("" lists all), sorted by id
	List(ctx context.Context, dateTag string) ([]entities.AudioSample, error)
	// Discard deletes or archives a sample so it is never evaluated again
	Discard(ctx context.Context, sample entities.AudioSample) error
}

// HistoryStore is the append-only table of aggregate records
type HistoryStore interface {
	// Append adds one record; it fails with domain.ErrDuplicateRecord if the date is already present
	Append(ctx context.Context, record entities.AggregateRecord) error
	// Records returns every record in insertion order
	Records(ctx context.Context) ([]entities.AggregateRecord, error)
	// Has reports whether a record for the day exists
	Has(ctx context.Context, date time.Time) (bool, error)
}

// RunJournal keeps a per-run log of sample outcomes
type RunJournal interface {
	Save(ctx context.Context, run *entities.Run) error
}
