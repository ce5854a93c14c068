package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/asreval/domain"
	"github.com/satriahrh/asreval/domain/entities"
	"github.com/satriahrh/asreval/internal/config"
)

// Yandex submits a long-running recognition job and polls the operation until it is done
type Yandex struct {
	config     config.YandexConfig
	language   string
	httpClient *http.Client
	logger     *zap.Logger
}

type yandexRequest struct {
	Config struct {
		Specification struct {
			LanguageCode string `json:"languageCode"`
		} `json:"specification"`
	} `json:"config"`
	Audio struct {
		URI     string `json:"uri,omitempty"`
		Content []byte `json:"content,omitempty"`
	} `json:"audio"`
}

type yandexOperation struct {
	ID       string `json:"id"`
	Done     bool   `json:"done"`
	Response *struct {
		Chunks []struct {
			Alternatives []struct {
				Text string `json:"text"`
			} `json:"alternatives"`
		} `json:"chunks"`
	} `json:"response,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewYandex creates a source for the configured API key
func NewYandex(cfg config.YandexConfig, language string, logger *zap.Logger) *Yandex {
	return &Yandex{
		config:     cfg,
		language:   language,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

func (y *Yandex) Engine() entities.EngineID {
	return entities.EngineYandex
}

// Fetch returns the first alternative of every chunk joined by spaces, lowercased
func (y *Yandex) Fetch(ctx context.Context, sample entities.AudioSample) (string, error) {
	fail := func(err error) (string, error) {
		return "", domain.NewTranscriptError(sample.ID, string(entities.EngineYandex), err)
	}

	id, err := y.submit(ctx, sample)
	if err != nil {
		return fail(err)
	}
	y.logger.Debug("Yandex recognition submitted", zap.String("sample", sample.ID), zap.String("operation", id))

	for polls := 1; ; polls++ {
		select {
		case <-ctx.Done():
			return fail(ctx.Err())
		case <-time.After(y.config.PollInterval):
		}

		op, err := y.poll(ctx, id)
		if err != nil {
			return fail(err)
		}
		if !op.Done {
			continue
		}
		if op.Error != nil {
			return fail(fmt.Errorf("operation %s failed: %d %s", id, op.Error.Code, op.Error.Message))
		}

		y.logger.Debug("Yandex recognition done", zap.String("sample", sample.ID), zap.Int("polls", polls))
		return joinChunks(op), nil
	}
}

func (y *Yandex) submit(ctx context.Context, sample entities.AudioSample) (string, error) {
	var body yandexRequest
	body.Config.Specification.LanguageCode = y.language
	if y.config.AudioBaseURL != "" {
		body.Audio.URI = strings.TrimSuffix(y.config.AudioBaseURL, "/") + "/" + url.PathEscape(sample.ID)
	} else {
		content, err := sample.Content()
		if err != nil {
			return "", fmt.Errorf("failed to read audio: %w", err)
		}
		body.Audio.Content = content
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, y.config.SubmitURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var op yandexOperation
	if err := y.do(req, &op); err != nil {
		return "", fmt.Errorf("failed to submit recognition: %w", err)
	}
	if op.ID == "" {
		return "", fmt.Errorf("submit response carries no operation id")
	}
	return op.ID, nil
}

func (y *Yandex) poll(ctx context.Context, id string) (*yandexOperation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.config.OperationURL+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var op yandexOperation
	if err := y.do(req, &op); err != nil {
		return nil, fmt.Errorf("failed to poll operation %s: %w", id, err)
	}
	return &op, nil
}

func (y *Yandex) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Api-Key "+y.config.APIKey)

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func joinChunks(op *yandexOperation) string {
	if op.Response == nil {
		return ""
	}
	parts := make([]string, 0, len(op.Response.Chunks))
	for _, chunk := range op.Response.Chunks {
		if len(chunk.Alternatives) == 0 {
			continue
		}
		parts = append(parts, chunk.Alternatives[0].Text)
	}
	return strings.ToLower(strings.Join(parts, " "))
}
