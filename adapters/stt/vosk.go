package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/satriahrh/asreval/adapters/audio"
	"github.com/satriahrh/asreval/domain"
	"github.com/satriahrh/asreval/domain/entities"
	"github.com/satriahrh/asreval/internal/config"
)

const voskEOF = `{"eof" : 1}`

// Vosk streams a sample to a Vosk recognition server over a websocket.
// Exactly one response is awaited after every chunk before the next one is sent.
type Vosk struct {
	config config.VoskConfig
	dialer *websocket.Dialer
	logger *zap.Logger
}

// NewVosk creates a source for the configured server
func NewVosk(cfg config.VoskConfig, logger *zap.Logger) *Vosk {
	return &Vosk{
		config: cfg,
		dialer: websocket.DefaultDialer,
		logger: logger,
	}
}

func (v *Vosk) Engine() entities.EngineID {
	return entities.EngineVosk
}

// Fetch returns the non-empty phrases the server recognized, joined by single spaces
func (v *Vosk) Fetch(ctx context.Context, sample entities.AudioSample) (string, error) {
	fail := func(err error) (string, error) {
		return "", domain.NewTranscriptError(sample.ID, string(entities.EngineVosk), err)
	}

	payload, sampleRate, err := v.payload(sample)
	if err != nil {
		return fail(err)
	}

	conn, _, err := v.dialer.DialContext(ctx, v.config.ServerURL, nil)
	if err != nil {
		return fail(fmt.Errorf("failed to connect to vosk server: %w", err))
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if sampleRate > 0 {
		cfgMsg := fmt.Sprintf(`{"config" : {"sample_rate" : %d}}`, sampleRate)
		if err := conn.WriteMessage(websocket.TextMessage, []byte(cfgMsg)); err != nil {
			return fail(fmt.Errorf("failed to send config: %w", err))
		}
	}

	var phrases []string
	exchange := func(messageType int, data []byte) error {
		if err := conn.WriteMessage(messageType, data); err != nil {
			return fmt.Errorf("failed to send chunk: %w", err)
		}
		_, resp, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		phrase, err := phraseOf(resp)
		if err != nil {
			return err
		}
		if phrase != "" {
			phrases = append(phrases, phrase)
		}
		return nil
	}

	chunks := 0
	for r := bytes.NewReader(payload); r.Len() > 0; chunks++ {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		chunk := make([]byte, min(v.config.ChunkSize, r.Len()))
		if _, err := io.ReadFull(r, chunk); err != nil {
			return fail(err)
		}
		if err := exchange(websocket.BinaryMessage, chunk); err != nil {
			return fail(err)
		}
	}
	if err := exchange(websocket.TextMessage, []byte(voskEOF)); err != nil {
		return fail(err)
	}

	if err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")); err != nil {
		v.logger.Debug("Failed to send close frame", zap.String("sample", sample.ID), zap.Error(err))
	}

	v.logger.Debug("Vosk transcript received",
		zap.String("sample", sample.ID),
		zap.Int("chunks", chunks),
		zap.Int("phrases", len(phrases)))
	return strings.Join(phrases, " "), nil
}

// payload returns the bytes to stream and, when decoded to PCM, their sample rate
func (v *Vosk) payload(sample entities.AudioSample) ([]byte, int, error) {
	content, err := sample.Content()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read audio: %w", err)
	}
	if !v.config.DecodeMP3 || sample.Ext() != "mp3" {
		return content, 0, nil
	}

	pcm, err := audio.DecodeMP3(bytes.NewReader(content))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode mp3: %w", err)
	}
	return pcm.Data, pcm.SampleRate, nil
}

// phraseOf extracts the recognized text from a final result.
// Partial results carry a single field and are skipped.
func phraseOf(resp []byte) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(resp, &fields); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(fields) < 2 {
		return "", nil
	}
	raw, ok := fields["text"]
	if !ok {
		return "", nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", fmt.Errorf("failed to decode text: %w", err)
	}
	return text, nil
}
