package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/asreval/domain/repositories"
	"github.com/satriahrh/asreval/internal/config"
)

// Bot delivers messages and photos to one chat through the Bot API
type Bot struct {
	apiURL     string
	token      string
	chat       string
	httpClient *http.Client
	logger     *zap.Logger
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewNotifier returns a Bot when telegram is configured, otherwise a notifier that only logs
func NewNotifier(cfg config.TelegramConfig, logger *zap.Logger) repositories.Notifier {
	if !cfg.Enabled() {
		logger.Info("Telegram not configured, notifications will only be logged")
		return &LogNotifier{logger: logger}
	}
	return NewBot(cfg, logger)
}

// NewBot creates a Bot for the configured token and chat
func NewBot(cfg config.TelegramConfig, logger *zap.Logger) *Bot {
	return &Bot{
		apiURL:     strings.TrimSuffix(cfg.APIURL, "/"),
		token:      cfg.Token,
		chat:       cfg.Chat,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

func (b *Bot) SendMessage(ctx context.Context, text string) error {
	form := url.Values{}
	form.Set("chat_id", b.chat)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint("sendMessage"), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if err := b.do(req); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	b.logger.Debug("Telegram message sent", zap.Int("length", len(text)))
	return nil
}

func (b *Bot) SendPhoto(ctx context.Context, filename string, png []byte) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("chat_id", b.chat); err != nil {
		return fmt.Errorf("failed to write chat id: %w", err)
	}
	part, err := mw.CreateFormFile("photo", filename)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(png); err != nil {
		return fmt.Errorf("failed to write photo: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint("sendPhoto"), &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	if err := b.do(req); err != nil {
		return fmt.Errorf("failed to send photo %s: %w", filename, err)
	}
	b.logger.Debug("Telegram photo sent", zap.String("filename", filename), zap.Int("bytes", len(png)))
	return nil
}

func (b *Bot) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", b.apiURL, b.token, method)
}

func (b *Bot) do(req *http.Request) error {
	resp, err := b.httpClient.Do(req)
	if err != nil {
		// the url carries the token
		if uerr, ok := err.(*url.Error); ok {
			err = uerr.Err
		}
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("unexpected response (status %d): %w", resp.StatusCode, err)
	}
	if !out.OK {
		return fmt.Errorf("api error (status %d): %s", resp.StatusCode, out.Description)
	}
	return nil
}

// LogNotifier writes notifications to the log instead of delivering them
type LogNotifier struct {
	logger *zap.Logger
}

func (n *LogNotifier) SendMessage(ctx context.Context, text string) error {
	n.logger.Info("Notification", zap.String("text", text))
	return nil
}

func (n *LogNotifier) SendPhoto(ctx context.Context, filename string, png []byte) error {
	n.logger.Info("Notification photo", zap.String("filename", filename), zap.Int("bytes", len(png)))
	return nil
}
