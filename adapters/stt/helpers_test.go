package stt

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/satriahrh/asreval/domain"
	"github.com/satriahrh/asreval/domain/entities"
	"github.com/satriahrh/asreval/domain/repositories"
)

var (
	_ repositories.TranscriptSource = &Google{}
	_ repositories.TranscriptSource = &Vosk{}
	_ repositories.TranscriptSource = &Yandex{}
	_ repositories.TranscriptSource = &Whisper{}
	_ repositories.TranscriptSource = &Gemini{}
	_ repositories.TranscriptSource = &Reference{}
)

func writeSample(t *testing.T, name string, content []byte) entities.AudioSample {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
		t.Fatalf("failed to write sample: %v", err)
	}
	return entities.NewAudioSample(dir, name)
}

func assertTranscriptError(t *testing.T, err error, engine entities.EngineID) {
	t.Helper()
	var te *domain.TranscriptError
	if !errors.As(err, &te) {
		t.Fatalf("Expected TranscriptError, got %v", err)
	}
	if te.Engine != string(engine) {
		t.Errorf("Expected engine %s, got %s", engine, te.Engine)
	}
}
