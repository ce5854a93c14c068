package stt

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/asreval/domain/entities"
	"github.com/satriahrh/asreval/internal/config"
)

func TestWhisperFetchSegments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("Expected bearer token, got %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("Expected multipart file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		body, _ := io.ReadAll(file)
		if header.Filename != "a.wav" || string(body) != "audio" {
			t.Errorf("Unexpected upload %s %q", header.Filename, body)
		}
		w.Write([]byte(`{"text":"ignored","segments":[{"text":" Привет "},{"text":""},{"text":"мир"}]}`))
	}))
	defer srv.Close()

	src := NewWhisper(config.WhisperConfig{URL: srv.URL, Token: "token"}, zaptest.NewLogger(t))
	got, err := src.Fetch(context.Background(), writeSample(t, "a.wav", []byte("audio")))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got != "Привет мир" {
		t.Errorf("Expected %q, got %q", "Привет мир", got)
	}
}

func TestWhisperFetchTextOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":" весь текст "}`))
	}))
	defer srv.Close()

	src := NewWhisper(config.WhisperConfig{URL: srv.URL}, zaptest.NewLogger(t))
	got, err := src.Fetch(context.Background(), writeSample(t, "a.wav", []byte("audio")))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got != "весь текст" {
		t.Errorf("Expected %q, got %q", "весь текст", got)
	}
}

func TestWhisperFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := NewWhisper(config.WhisperConfig{URL: srv.URL}, zaptest.NewLogger(t))
	_, err := src.Fetch(context.Background(), writeSample(t, "a.wav", []byte("audio")))
	assertTranscriptError(t, err, entities.EngineWhisper)
}
