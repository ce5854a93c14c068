package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/asreval/domain/entities"
	"github.com/satriahrh/asreval/domain/repositories"
	"github.com/satriahrh/asreval/internal/normalize"
)

func TestCompare(t *testing.T) {
	storage := newFakeStorage("a.wav", "b.wav", "c.wav")
	reference := &fakeSource{engine: entities.EngineReference, texts: map[string]string{
		"a.wav": "привет как дела",
		"b.wav": "добрый день",
	}, errs: map[string]error{"c.wav": errors.New("no human text")}}
	vosk := &fakeSource{engine: entities.EngineVosk, texts: map[string]string{
		"a.wav": "привет как тела",
		"b.wav": "добрый день",
	}}
	whisper := &fakeSource{engine: entities.EngineWhisper, texts: map[string]string{
		"a.wav": "Привет, как дела?",
	}, errs: map[string]error{"b.wav": errors.New("timeout")}}

	sources := map[entities.EngineID]repositories.TranscriptSource{
		entities.EngineReference: reference,
		entities.EngineVosk:      vosk,
		entities.EngineWhisper:   whisper,
	}
	svc, err := NewCompareService(storage, sources, entities.EngineReference,
		[]entities.EngineID{entities.EngineVosk, entities.EngineWhisper},
		normalize.New("ru-RU"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewCompareService failed: %v", err)
	}

	summaries, err := svc.Compare(context.Background(), "")
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	if len(summaries) != 2 {
		t.Fatalf("Expected 2 summaries, got %d", len(summaries))
	}
	v, w := summaries[0], summaries[1]
	if v.Scored != 2 || v.Failed != 0 {
		t.Errorf("Unexpected vosk summary %+v", v)
	}
	// median of {1/3, 0}
	if v.MedianWER < 0.166 || v.MedianWER > 0.167 {
		t.Errorf("Expected vosk median WER 1/6, got %v", v.MedianWER)
	}
	if w.Scored != 1 || w.Failed != 1 || w.MedianWER != 0 {
		t.Errorf("Unexpected whisper summary %+v", w)
	}
	if len(storage.discarded) != 0 {
		t.Error("Comparison must not discard samples")
	}
	if vosk.called("c.wav") {
		t.Error("Engine fetched for sample without reference")
	}

	table := FormatComparison(entities.EngineReference, summaries)
	lines := strings.Split(strings.TrimSpace(table), "\n")
	if len(lines) != 4 || !strings.HasPrefix(lines[2], "whisper") {
		t.Errorf("Expected whisper ranked first:\n%s", table)
	}
}

func TestFormatComparisonUnscoredEngineLast(t *testing.T) {
	table := FormatComparison(entities.EngineGoogle, []EngineSummary{
		{Engine: entities.EngineYandex, Scored: 0, Failed: 3},
		{Engine: entities.EngineVosk, Scored: 3, MedianWER: 0.4, MedianMER: 0.3, MedianWIL: 0.5},
		{Engine: entities.EngineWhisper, Scored: 3, MedianWER: 0.2, MedianMER: 0.2, MedianWIL: 0.3},
	})
	lines := strings.Split(strings.TrimSpace(table), "\n")
	if len(lines) != 5 {
		t.Fatalf("Unexpected table:\n%s", table)
	}
	if !strings.HasPrefix(lines[2], "whisper") || !strings.HasPrefix(lines[3], "vosk") {
		t.Errorf("Expected scored engines ranked by WER:\n%s", table)
	}
	if !strings.HasPrefix(lines[4], "yandex") || !strings.Contains(lines[4], "n/a") {
		t.Errorf("Expected unscored engine last as n/a:\n%s", table)
	}
}

func TestNewCompareServiceValidation(t *testing.T) {
	sources := map[entities.EngineID]repositories.TranscriptSource{
		entities.EngineGoogle: &fakeSource{engine: entities.EngineGoogle},
	}
	if _, err := NewCompareService(newFakeStorage(), sources, entities.EngineGoogle, nil, normalize.New("ru"), zaptest.NewLogger(t)); err == nil {
		t.Error("Expected error without engines")
	}
	if _, err := NewCompareService(newFakeStorage(), sources, entities.EngineGoogle,
		[]entities.EngineID{entities.EngineVosk}, normalize.New("ru"), zaptest.NewLogger(t)); err == nil {
		t.Error("Expected error for engine without source")
	}
}
