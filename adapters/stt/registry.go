package stt

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/asreval/domain/entities"
	"github.com/satriahrh/asreval/domain/repositories"
	"github.com/satriahrh/asreval/internal/config"
)

// NewSource builds the transcript source for one engine
func NewSource(ctx context.Context, engine entities.EngineID, cfg *config.Config, logger *zap.Logger) (repositories.TranscriptSource, error) {
	logger = logger.With(zap.String("engine", string(engine)))

	switch engine {
	case entities.EngineGoogle:
		src, err := NewGoogle(ctx, cfg.Google, cfg.Language, logger)
		if err != nil {
			return nil, err
		}
		return src, nil
	case entities.EngineVosk:
		return NewVosk(cfg.Vosk, logger), nil
	case entities.EngineYandex:
		return NewYandex(cfg.Yandex, cfg.Language, logger), nil
	case entities.EngineWhisper:
		return NewWhisper(cfg.Whisper, logger), nil
	case entities.EngineGemini:
		src, err := NewGemini(ctx, cfg.Gemini, logger)
		if err != nil {
			return nil, err
		}
		return src, nil
	case entities.EngineReference:
		src, err := NewReference(cfg.Reference.TranscriptsFile, logger)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown engine: %s", engine)
	}
}

// NewSources builds a source for every engine, keyed by engine
func NewSources(ctx context.Context, engines []entities.EngineID, cfg *config.Config, logger *zap.Logger) (map[entities.EngineID]repositories.TranscriptSource, error) {
	sources := make(map[entities.EngineID]repositories.TranscriptSource, len(engines))
	for _, engine := range engines {
		src, err := NewSource(ctx, engine, cfg, logger)
		if err != nil {
			CloseSources(sources)
			return nil, fmt.Errorf("failed to create %s source: %w", engine, err)
		}
		sources[engine] = src
	}
	return sources, nil
}

// CloseSources releases sources holding connections
func CloseSources(sources map[entities.EngineID]repositories.TranscriptSource) {
	for _, src := range sources {
		if c, ok := src.(interface{ Close() error }); ok {
			c.Close()
		}
	}
}
