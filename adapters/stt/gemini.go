package stt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/asreval/domain"
	"github.com/satriahrh/asreval/domain/entities"
	"github.com/satriahrh/asreval/internal/config"
)

const geminiPrompt = "Transcribe this audio recording verbatim in its original language. " +
	"Return only the spoken words without timestamps, speaker labels or commentary."

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// Gemini asks a multimodal model for a verbatim transcript
type Gemini struct {
	generate   generateFunc
	model      string
	attempts   int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewGemini creates a Gemini API client for the configured key
func NewGemini(ctx context.Context, cfg config.GeminiConfig, logger *zap.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newGemini(client.Models.GenerateContent, cfg.Model, logger), nil
}

func newGemini(generate generateFunc, model string, logger *zap.Logger) *Gemini {
	return &Gemini{
		generate:   generate,
		model:      model,
		attempts:   3,
		retryDelay: time.Second,
		logger:     logger,
	}
}

func (g *Gemini) Engine() entities.EngineID {
	return entities.EngineGemini
}

func (g *Gemini) Fetch(ctx context.Context, sample entities.AudioSample) (string, error) {
	fail := func(err error) (string, error) {
		return "", domain.NewTranscriptError(sample.ID, string(entities.EngineGemini), err)
	}

	content, err := sample.Content()
	if err != nil {
		return fail(fmt.Errorf("failed to read audio: %w", err))
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(geminiPrompt),
			genai.NewPartFromBytes(content, mimeTypeOf(sample)),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	}

	var resp *genai.GenerateContentResponse
	for attempt := 0; attempt < g.attempts; attempt++ {
		resp, err = g.generate(ctx, g.model, contents, cfg)
		if err == nil {
			break
		}
		g.logger.Warn("Failed to generate transcript, retrying",
			zap.String("sample", sample.ID),
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt < g.attempts-1 {
			select {
			case <-ctx.Done():
				return fail(ctx.Err())
			case <-time.After(time.Duration(attempt+1) * g.retryDelay):
			}
		}
	}
	if err != nil {
		return fail(fmt.Errorf("failed to generate content: %w", err))
	}

	text, err := responseText(resp)
	if err != nil {
		return fail(err)
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no candidates in response")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func mimeTypeOf(sample entities.AudioSample) string {
	switch sample.Ext() {
	case "mp3":
		return "audio/mp3"
	case "wav":
		return "audio/wav"
	case "flac":
		return "audio/flac"
	case "ogg", "opus":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
