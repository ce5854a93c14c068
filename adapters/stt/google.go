package stt

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/satriahrh/asreval/domain"
	"github.com/satriahrh/asreval/domain/entities"
	"github.com/satriahrh/asreval/internal/config"
)

type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

// Google fetches transcripts from Cloud Speech-to-Text in one synchronous request per sample
type Google struct {
	client    *speech.Client
	recognize recognizeFunc
	config    config.GoogleConfig
	language  string
	logger    *zap.Logger
}

// NewGoogle creates a Cloud Speech client authenticated with the configured credentials file
func NewGoogle(ctx context.Context, cfg config.GoogleConfig, language string, logger *zap.Logger) (*Google, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	g := newGoogle(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return client.Recognize(ctx, req)
	}, cfg, language, logger)
	g.client = client
	return g, nil
}

func newGoogle(recognize recognizeFunc, cfg config.GoogleConfig, language string, logger *zap.Logger) *Google {
	return &Google{
		recognize: recognize,
		config:    cfg,
		language:  language,
		logger:    logger,
	}
}

func (g *Google) Engine() entities.EngineID {
	return entities.EngineGoogle
}

// Fetch sends the whole file inline and joins the top alternative of every result
func (g *Google) Fetch(ctx context.Context, sample entities.AudioSample) (string, error) {
	content, err := sample.Content()
	if err != nil {
		return "", domain.NewTranscriptError(sample.ID, string(entities.EngineGoogle), fmt.Errorf("failed to read audio: %w", err))
	}

	encoding, err := getAudioEncoding(encodingFor(sample, g.config.Encoding))
	if err != nil {
		return "", domain.NewTranscriptError(sample.ID, string(entities.EngineGoogle), err)
	}

	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        encoding,
			SampleRateHertz: int32(g.config.SampleRate),
			LanguageCode:    g.language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: content},
		},
	}

	resp, err := g.recognize(ctx, req)
	if err != nil {
		return "", domain.NewTranscriptError(sample.ID, string(entities.EngineGoogle), fmt.Errorf("failed to recognize: %w", err))
	}

	text := joinResults(resp)
	g.logger.Debug("Google transcript received",
		zap.String("sample", sample.ID),
		zap.Int("results", len(resp.GetResults())))
	return text, nil
}

// Close releases the underlying gRPC connection
func (g *Google) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func joinResults(resp *speechpb.RecognizeResponse) string {
	parts := make([]string, 0, len(resp.GetResults()))
	for _, result := range resp.GetResults() {
		if len(result.GetAlternatives()) == 0 {
			continue
		}
		if t := strings.TrimSpace(result.GetAlternatives()[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// encodingFor picks the encoding from the file extension, falling back to the configured one
func encodingFor(sample entities.AudioSample, fallback string) string {
	switch sample.Ext() {
	case "mp3":
		return "MP3"
	case "wav":
		return "LINEAR16"
	case "flac":
		return "FLAC"
	case "ogg", "opus":
		return "OGG_OPUS"
	case "webm":
		return "WEBM_OPUS"
	}
	return fallback
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch strings.ToUpper(encoding) {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "MP3":
		return speechpb.RecognitionConfig_MP3, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "AMR":
		return speechpb.RecognitionConfig_AMR, nil
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
