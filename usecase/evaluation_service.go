package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/satriahrh/asreval/domain"
	"github.com/satriahrh/asreval/domain/entities"
	"github.com/satriahrh/asreval/domain/repositories"
	"github.com/satriahrh/asreval/internal/metrics"
	"github.com/satriahrh/asreval/internal/normalize"
	"github.com/satriahrh/asreval/internal/quality"
)

// EvaluationConfig selects the engine pair a session scores
type EvaluationConfig struct {
	Reference       entities.EngineID
	Hypothesis      entities.EngineID
	ConcurrentFetch bool
}

// EvaluationService drives one evaluation run through its states:
// collect transcripts, score the survivors, aggregate, persist.
type EvaluationService struct {
	storage    repositories.SampleStorage
	history    repositories.HistoryStore
	sources    map[entities.EngineID]repositories.TranscriptSource
	journal    repositories.RunJournal
	gate       quality.Gate
	normalizer *normalize.Normalizer
	config     EvaluationConfig
	logger     *zap.Logger
}

// scoredPair is a sample that survived collection
type scoredPair struct {
	sampleID   string
	reference  entities.Transcript
	hypothesis entities.Transcript
}

// NewEvaluationService wires a session. journal may be nil.
func NewEvaluationService(
	storage repositories.SampleStorage,
	history repositories.HistoryStore,
	sources map[entities.EngineID]repositories.TranscriptSource,
	journal repositories.RunJournal,
	gate quality.Gate,
	normalizer *normalize.Normalizer,
	config EvaluationConfig,
	logger *zap.Logger,
) (*EvaluationService, error) {
	for _, e := range []entities.EngineID{config.Reference, config.Hypothesis} {
		if _, ok := sources[e]; !ok {
			return nil, fmt.Errorf("no transcript source for engine %s", e)
		}
	}
	return &EvaluationService{
		storage:    storage,
		history:    history,
		sources:    sources,
		journal:    journal,
		gate:       gate,
		normalizer: normalizer,
		config:     config,
		logger:     logger,
	}, nil
}

// Run evaluates the samples tagged with the run's date. A run with no surviving
// samples ends in Done without a record. Any run-level error leaves the run Failed
// and the history untouched.
func (s *EvaluationService) Run(ctx context.Context, run *entities.Run) error {
	logger := s.logger.With(zap.String("run_id", run.ID), zap.String("date", run.Date.Format(entities.DateLayout)))
	logger.Info("Evaluation run started",
		zap.String("reference", string(s.config.Reference)),
		zap.String("hypothesis", string(s.config.Hypothesis)))

	err := s.run(ctx, run, logger)
	if err != nil {
		run.Fail(err)
		logger.Error("Evaluation run failed", zap.Error(err))
	}
	s.save(ctx, run, logger)
	return err
}

func (s *EvaluationService) run(ctx context.Context, run *entities.Run, logger *zap.Logger) error {
	exists, err := s.history.Has(ctx, run.Date)
	if err != nil {
		return fmt.Errorf("failed to check history: %w", err)
	}
	if exists {
		logger.Info("History already holds a record for this date, skipping")
		return run.Transition(entities.RunStateDone)
	}

	if err := run.Transition(entities.RunStateCollecting); err != nil {
		return err
	}
	s.save(ctx, run, logger)

	pairs, err := s.collect(ctx, run, logger)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		logger.Info("No samples survived collection",
			zap.Int("rejected", run.Count(domain.OutcomeRejected)),
			zap.Int("failed", run.Count(domain.OutcomeFailed)))
		return run.Transition(entities.RunStateDone)
	}

	if err := run.Transition(entities.RunStateScoring); err != nil {
		return err
	}
	measures := make([]entities.ErrorMeasures, 0, len(pairs))
	for _, p := range pairs {
		m := metrics.Score(p.reference.Text, p.hypothesis.Text)
		measures = append(measures, m)
		run.AddResult(entities.SampleResult{
			SampleID: p.sampleID,
			Outcome:  domain.OutcomeAccepted,
			Measures: &m,
		})
		logger.Debug("Sample scored",
			zap.String("sample", p.sampleID),
			zap.Float64("wer", m.WER),
			zap.Float64("mer", m.MER),
			zap.Float64("wil", m.WIL))
	}

	if err := run.Transition(entities.RunStateAggregating); err != nil {
		return err
	}
	record, err := metrics.Summarize(run.Date, measures)
	if err != nil {
		return fmt.Errorf("failed to aggregate measures: %w", err)
	}

	if err := s.history.Append(ctx, record); err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}
	run.Record = &record
	if err := run.Transition(entities.RunStatePersisted); err != nil {
		return err
	}

	logger.Info("Evaluation record persisted",
		zap.Int("scored", len(measures)),
		zap.Float64("avg_wer", record.AvgWER),
		zap.Float64("med_wer", record.MedWER))
	return run.Transition(entities.RunStateDone)
}

// collect fetches and gates transcripts sample by sample. Every listed sample is
// discarded afterwards so it is never evaluated twice.
func (s *EvaluationService) collect(ctx context.Context, run *entities.Run, logger *zap.Logger) ([]scoredPair, error) {
	samples, err := s.storage.List(ctx, run.Date.Format(entities.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	logger.Info("Collecting transcripts", zap.Int("samples", len(samples)))

	var pairs []scoredPair
	for _, sample := range samples {
		transcripts, result, err := s.fetch(ctx, sample)
		if ctx.Err() != nil {
			// interrupted: leave the sample for the next run
			return nil, fmt.Errorf("collection interrupted: %w", ctx.Err())
		}

		switch {
		case err != nil:
			logger.Warn("Transcript fetch failed, discarding sample",
				zap.String("sample", sample.ID),
				zap.Error(err))
			run.AddResult(result)
		case result.Outcome == domain.OutcomeRejected:
			logger.Info("Transcript rejected, discarding sample",
				zap.String("sample", sample.ID),
				zap.String("engine", string(result.Engine)),
				zap.String("reason", result.Reason))
			run.AddResult(result)
		default:
			pairs = append(pairs, scoredPair{
				sampleID:   sample.ID,
				reference:  transcripts[0],
				hypothesis: transcripts[1],
			})
		}

		if err := s.storage.Discard(ctx, sample); err != nil {
			logger.Warn("Failed to discard sample", zap.String("sample", sample.ID), zap.Error(err))
		}
	}
	return pairs, nil
}

// fetch returns the reference and hypothesis transcripts of a sample, or the
// outcome that excludes it. Sequential fetch stops at the first rejection.
func (s *EvaluationService) fetch(ctx context.Context, sample entities.AudioSample) ([]entities.Transcript, entities.SampleResult, error) {
	engines := []entities.EngineID{s.config.Reference, s.config.Hypothesis}
	raws := make([]string, len(engines))

	if s.config.ConcurrentFetch {
		g, gctx := errgroup.WithContext(ctx)
		for i, e := range engines {
			g.Go(func() error {
				raw, err := s.sources[e].Fetch(gctx, sample)
				if err != nil {
					return err
				}
				raws[i] = raw
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, failedResult(sample, err), err
		}
	}

	transcripts := make([]entities.Transcript, len(engines))
	for i, e := range engines {
		if !s.config.ConcurrentFetch {
			raw, err := s.sources[e].Fetch(ctx, sample)
			if err != nil {
				return nil, failedResult(sample, err), err
			}
			raws[i] = raw
		}

		verdict := s.gate.Check(raws[i])
		if !verdict.Accepted {
			return nil, entities.SampleResult{
				SampleID: sample.ID,
				Outcome:  domain.OutcomeRejected,
				Engine:   e,
				Reason:   string(verdict.Reason),
			}, nil
		}
		text := s.normalizer.Normalize(raws[i])
		if verdict := s.gate.CheckNormalized(text); !verdict.Accepted {
			return nil, entities.SampleResult{
				SampleID: sample.ID,
				Outcome:  domain.OutcomeRejected,
				Engine:   e,
				Reason:   string(verdict.Reason),
			}, nil
		}
		transcripts[i] = entities.Transcript{
			Engine: e,
			Raw:    raws[i],
			Text:   text,
			Valid:  true,
		}
	}
	return transcripts, entities.SampleResult{SampleID: sample.ID, Outcome: domain.OutcomeAccepted}, nil
}

func failedResult(sample entities.AudioSample, err error) entities.SampleResult {
	result := entities.SampleResult{
		SampleID: sample.ID,
		Outcome:  domain.OutcomeFailed,
		Reason:   err.Error(),
	}
	var te *domain.TranscriptError
	if errors.As(err, &te) {
		result.Engine = entities.EngineID(te.Engine)
	}
	return result
}

func (s *EvaluationService) save(ctx context.Context, run *entities.Run, logger *zap.Logger) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Save(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("Failed to journal run", zap.Error(err))
	}
}
