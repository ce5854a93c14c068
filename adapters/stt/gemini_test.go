package stt

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"
	"google.golang.org/genai"

	"github.com/satriahrh/asreval/domain/entities"
)

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: genai.RoleModel}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestGeminiFetchRetries(t *testing.T) {
	calls := 0
	generate := func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		calls++
		if model != "gemini-test" {
			t.Errorf("Expected model gemini-test, got %s", model)
		}
		if len(contents) != 1 || len(contents[0].Parts) != 2 || contents[0].Parts[1].InlineData == nil {
			t.Fatalf("Expected prompt and inline audio parts")
		}
		if contents[0].Parts[1].InlineData.MIMEType != "audio/mp3" {
			t.Errorf("Unexpected MIME type %s", contents[0].Parts[1].InlineData.MIMEType)
		}
		if calls < 2 {
			return nil, errors.New("unavailable")
		}
		return textResponse("Привет, ", "мир. "), nil
	}

	src := newGemini(generate, "gemini-test", zaptest.NewLogger(t))
	src.retryDelay = 0

	got, err := src.Fetch(context.Background(), writeSample(t, "a.mp3", []byte("mp3")))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got != "Привет, мир." {
		t.Errorf("Unexpected transcript %q", got)
	}
	if calls != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
}

func TestGeminiFetchExhausted(t *testing.T) {
	generate := func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return nil, errors.New("unavailable")
	}
	src := newGemini(generate, "gemini-test", zaptest.NewLogger(t))
	src.retryDelay = 0

	_, err := src.Fetch(context.Background(), writeSample(t, "a.mp3", []byte("mp3")))
	assertTranscriptError(t, err, entities.EngineGemini)
}

func TestResponseTextEmpty(t *testing.T) {
	if _, err := responseText(&genai.GenerateContentResponse{}); err == nil {
		t.Error("Expected error for response without candidates")
	}
}
