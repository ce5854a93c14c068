package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/satriahrh/asreval/domain/entities"
)

// ErrNoMeasures is returned when there is nothing to aggregate
var ErrNoMeasures = errors.New("no measures to aggregate")

// Summarize computes mean and median of every measure into a record for date
func Summarize(date time.Time, measures []entities.ErrorMeasures) (entities.AggregateRecord, error) {
	if len(measures) == 0 {
		return entities.AggregateRecord{}, ErrNoMeasures
	}

	wer := make(stats.Float64Data, len(measures))
	mer := make(stats.Float64Data, len(measures))
	wil := make(stats.Float64Data, len(measures))
	for i, m := range measures {
		wer[i], mer[i], wil[i] = m.WER, m.MER, m.WIL
	}

	rec := entities.AggregateRecord{Date: entities.Day(date)}
	var err error
	for _, step := range []struct {
		dst  *float64
		fn   func(stats.Float64Data) (float64, error)
		data stats.Float64Data
		name string
	}{
		{&rec.AvgWIL, stats.Mean, wil, "mean wil"},
		{&rec.AvgWER, stats.Mean, wer, "mean wer"},
		{&rec.AvgMER, stats.Mean, mer, "mean mer"},
		{&rec.MedWIL, stats.Median, wil, "median wil"},
		{&rec.MedWER, stats.Median, wer, "median wer"},
		{&rec.MedMER, stats.Median, mer, "median mer"},
	} {
		if *step.dst, err = step.fn(step.data); err != nil {
			return entities.AggregateRecord{}, fmt.Errorf("failed to compute %s: %w", step.name, err)
		}
	}
	return rec, nil
}
