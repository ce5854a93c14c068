package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/asreval/domain"
	"github.com/satriahrh/asreval/domain/entities"
	"github.com/satriahrh/asreval/internal/config"
)

// Whisper posts the sample as a multipart upload to a whisper-compatible HTTP server
type Whisper struct {
	config     config.WhisperConfig
	httpClient *http.Client
	logger     *zap.Logger
}

type whisperResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Text string `json:"text"`
	} `json:"segments"`
}

// NewWhisper creates a source for the configured endpoint.
// Transcription of long files can take minutes so the client has no timeout; ctx bounds it.
func NewWhisper(cfg config.WhisperConfig, logger *zap.Logger) *Whisper {
	return &Whisper{
		config:     cfg,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

func (w *Whisper) Engine() entities.EngineID {
	return entities.EngineWhisper
}

// Fetch returns the segment texts joined by spaces, or the whole text when no segments are reported
func (w *Whisper) Fetch(ctx context.Context, sample entities.AudioSample) (string, error) {
	fail := func(err error) (string, error) {
		return "", domain.NewTranscriptError(sample.ID, string(entities.EngineWhisper), err)
	}

	content, err := sample.Content()
	if err != nil {
		return fail(fmt.Errorf("failed to read audio: %w", err))
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", sample.ID)
	if err != nil {
		return fail(fmt.Errorf("failed to create form file: %w", err))
	}
	if _, err := part.Write(content); err != nil {
		return fail(fmt.Errorf("failed to write form file: %w", err))
	}
	if err := mw.Close(); err != nil {
		return fail(fmt.Errorf("failed to close multipart body: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, &body)
	if err != nil {
		return fail(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if w.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+w.config.Token)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fail(fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	var out whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fail(fmt.Errorf("failed to decode response: %w", err))
	}

	w.logger.Debug("Whisper transcript received",
		zap.String("sample", sample.ID),
		zap.Int("segments", len(out.Segments)))

	if len(out.Segments) == 0 {
		return strings.TrimSpace(out.Text), nil
	}
	parts := make([]string, 0, len(out.Segments))
	for _, s := range out.Segments {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " "), nil
}
