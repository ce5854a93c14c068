package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/satriahrh/asreval/domain/entities"
	"github.com/satriahrh/asreval/domain/repositories"
	"github.com/satriahrh/asreval/internal/metrics"
	"github.com/satriahrh/asreval/internal/normalize"
)

// EngineSummary is the median score of one engine against the reference
type EngineSummary struct {
	Engine    entities.EngineID `json:"engine"`
	Scored    int               `json:"scored"`
	Failed    int               `json:"failed"`
	MedianWER float64           `json:"median_wer"`
	MedianMER float64           `json:"median_mer"`
	MedianWIL float64           `json:"median_wil"`
}

// CompareService scores several engines against one reference on the same samples.
// It never discards samples and never writes history.
type CompareService struct {
	storage    repositories.SampleStorage
	sources    map[entities.EngineID]repositories.TranscriptSource
	reference  entities.EngineID
	engines    []entities.EngineID
	normalizer *normalize.Normalizer
	logger     *zap.Logger
}

// NewCompareService creates a comparison of engines against reference
func NewCompareService(
	storage repositories.SampleStorage,
	sources map[entities.EngineID]repositories.TranscriptSource,
	reference entities.EngineID,
	engines []entities.EngineID,
	normalizer *normalize.Normalizer,
	logger *zap.Logger,
) (*CompareService, error) {
	if len(engines) == 0 {
		return nil, fmt.Errorf("no engines to compare")
	}
	for _, e := range append([]entities.EngineID{reference}, engines...) {
		if _, ok := sources[e]; !ok {
			return nil, fmt.Errorf("no transcript source for engine %s", e)
		}
	}
	return &CompareService{
		storage:    storage,
		sources:    sources,
		reference:  reference,
		engines:    engines,
		normalizer: normalizer,
		logger:     logger,
	}, nil
}

// Compare scores every engine on the samples tagged with dateTag ("" for all)
func (s *CompareService) Compare(ctx context.Context, dateTag string) ([]EngineSummary, error) {
	samples, err := s.storage.List(ctx, dateTag)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}

	scores := make([][]entities.ErrorMeasures, len(s.engines))
	failed := make([]int, len(s.engines))

	for _, sample := range samples {
		raw, err := s.sources[s.reference].Fetch(ctx, sample)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("Reference transcript failed, skipping sample", zap.String("sample", sample.ID), zap.Error(err))
			continue
		}
		reference := s.normalizer.Normalize(raw)

		g, gctx := errgroup.WithContext(ctx)
		for i, engine := range s.engines {
			g.Go(func() error {
				hyp, err := s.sources[engine].Fetch(gctx, sample)
				if err != nil {
					s.logger.Warn("Transcript failed",
						zap.String("sample", sample.ID),
						zap.String("engine", string(engine)),
						zap.Error(err))
					failed[i]++
					return nil
				}
				scores[i] = append(scores[i], metrics.Score(reference, s.normalizer.Normalize(hyp)))
				return nil
			})
		}
		g.Wait()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	summaries := make([]EngineSummary, len(s.engines))
	for i, engine := range s.engines {
		summaries[i] = summarizeEngine(engine, scores[i], failed[i])
	}
	s.logger.Info("Comparison complete", zap.Int("samples", len(samples)), zap.Int("engines", len(s.engines)))
	return summaries, nil
}

func summarizeEngine(engine entities.EngineID, measures []entities.ErrorMeasures, failed int) EngineSummary {
	sum := EngineSummary{Engine: engine, Scored: len(measures), Failed: failed}
	if len(measures) == 0 {
		return sum
	}
	wer := make(stats.Float64Data, len(measures))
	mer := make(stats.Float64Data, len(measures))
	wil := make(stats.Float64Data, len(measures))
	for i, m := range measures {
		wer[i], mer[i], wil[i] = m.WER, m.MER, m.WIL
	}
	sum.MedianWER, _ = stats.Median(wer)
	sum.MedianMER, _ = stats.Median(mer)
	sum.MedianWIL, _ = stats.Median(wil)
	return sum
}

// FormatComparison renders summaries as a plain text table, best WER first.
// Engines that scored nothing are listed last as n/a.
func FormatComparison(reference entities.EngineID, summaries []EngineSummary) string {
	sorted := make([]EngineSummary, len(summaries))
	copy(sorted, summaries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if (sorted[i].Scored == 0) != (sorted[j].Scored == 0) {
			return sorted[j].Scored == 0
		}
		return sorted[i].MedianWER < sorted[j].MedianWER
	})

	var b strings.Builder
	fmt.Fprintf(&b, "median error rate vs %s\n", reference)
	fmt.Fprintf(&b, "%-10s %6s %6s %6s %6s %6s\n", "engine", "wer", "mer", "wil", "scored", "failed")
	for _, s := range sorted {
		if s.Scored == 0 {
			fmt.Fprintf(&b, "%-10s %6s %6s %6s %6d %6d\n", s.Engine, "n/a", "n/a", "n/a", s.Scored, s.Failed)
			continue
		}
		fmt.Fprintf(&b, "%-10s %6.3f %6.3f %6.3f %6d %6d\n", s.Engine, s.MedianWER, s.MedianMER, s.MedianWIL, s.Scored, s.Failed)
	}
	return b.String()
}
