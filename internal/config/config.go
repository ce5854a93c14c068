package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/satriahrh/asreval/domain"
	"github.com/satriahrh/asreval/domain/entities"
)

const (
	defaultReferenceEngine  = entities.EngineGoogle
	defaultHypothesisEngine = entities.EngineVosk
	defaultLanguage         = "ru-RU"
	defaultReportDays       = 10
	defaultVoskChunkSize    = 8000
	defaultGoogleSampleRate = 8000
	defaultGoogleEncoding   = "MP3"
	defaultPollInterval     = time.Second
	defaultHTTPAddr         = ":8080"
	defaultGeminiModel      = "gemini-2.0-flash"
	defaultMongoDatabase    = "asreval"
	defaultYandexSubmitURL  = "https://transcribe.api.cloud.yandex.net/speech/stt/v2/longRunningRecognize"
	defaultYandexOpURL      = "https://operation.api.cloud.yandex.net/operations/"
	defaultTelegramAPIURL   = "https://api.telegram.org"
)

// GoogleConfig configures the Cloud Speech batch backend
type GoogleConfig struct {
	CredentialsFile string
	SampleRate      int
	Encoding        string
}

// VoskConfig configures the streaming recognizer
type VoskConfig struct {
	ServerURL string
	ChunkSize int
	DecodeMP3 bool
}

// YandexConfig configures the long-running recognition backend
type YandexConfig struct {
	APIKey       string
	SubmitURL    string
	OperationURL string
	AudioBaseURL string // when set, audio is referenced by URI instead of sent inline
	PollInterval time.Duration
}

// WhisperConfig configures the multipart HTTP backend
type WhisperConfig struct {
	URL   string
	Token string
}

// GeminiConfig configures the LLM transcription backend
type GeminiConfig struct {
	APIKey string
	Model  string
}

// ReferenceConfig points at human transcripts
type ReferenceConfig struct {
	TranscriptsFile string
}

// TelegramConfig configures notifications; empty token or chat disables them
type TelegramConfig struct {
	Token     string
	TokenFile string
	Chat      string
	APIURL    string
}

// Enabled reports whether notifications can be delivered
func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.Chat != ""
}

// MongoConfig configures the run journal; empty URI disables it
type MongoConfig struct {
	URI      string
	Database string
}

// Config is built once at process start and passed down explicitly
type Config struct {
	SamplesDir       string
	ArchiveDir       string
	HistoryFile      string
	ReferenceEngine  entities.EngineID
	HypothesisEngine entities.EngineID
	CompareEngines   []entities.EngineID
	MinChars         int
	ConcurrentFetch  bool
	Language         string
	ReportDays       int
	RunHour          int
	RunMinute        int
	HTTPAddr         string
	JWTSecret        string
	LogDevelopment   bool

	Google    GoogleConfig
	Vosk      VoskConfig
	Yandex    YandexConfig
	Whisper   WhisperConfig
	Gemini    GeminiConfig
	Reference ReferenceConfig
	Telegram  TelegramConfig
	Mongo     MongoConfig
}

// Load reads an optional .env file, then the environment, and validates the result
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := FromEnv(os.Getenv)
	if err != nil {
		return nil, err
	}
	if cfg.Telegram.Token == "" && cfg.Telegram.TokenFile != "" {
		raw, err := os.ReadFile(cfg.Telegram.TokenFile)
		if err != nil {
			return nil, &domain.ConfigurationError{Key: "TELEGRAM_TOKEN_FILE", Reason: err.Error()}
		}
		cfg.Telegram.Token = strings.TrimSpace(string(raw))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from a lookup function without validating required keys
func FromEnv(getenv func(string) string) (*Config, error) {
	p := parser{getenv: getenv}

	cfg := &Config{
		SamplesDir:       getenv("EVAL_SAMPLES_DIR"),
		ArchiveDir:       getenv("EVAL_ARCHIVE_DIR"),
		HistoryFile:      getenv("EVAL_HISTORY_FILE"),
		ReferenceEngine:  entities.EngineID(p.str("EVAL_REFERENCE_ENGINE", string(defaultReferenceEngine))),
		HypothesisEngine: entities.EngineID(p.str("EVAL_HYPOTHESIS_ENGINE", string(defaultHypothesisEngine))),
		CompareEngines:   p.engines("EVAL_COMPARE_ENGINES"),
		MinChars:         p.int("EVAL_MIN_CHARS", 0),
		ConcurrentFetch:  p.bool("EVAL_CONCURRENT_FETCH"),
		Language:         p.str("EVAL_LANGUAGE", defaultLanguage),
		ReportDays:       p.int("EVAL_REPORT_DAYS", defaultReportDays),
		RunHour:          p.int("EVAL_RUN_HOUR", -1),
		RunMinute:        p.int("EVAL_RUN_MINUTE", -1),
		HTTPAddr:         p.str("HTTP_ADDR", defaultHTTPAddr),
		JWTSecret:        getenv("JWT_SECRET"),
		LogDevelopment:   p.bool("LOG_DEVELOPMENT"),
		Google: GoogleConfig{
			CredentialsFile: getenv("GOOGLE_CREDENTIALS_FILE"),
			SampleRate:      p.int("GOOGLE_SAMPLE_RATE", defaultGoogleSampleRate),
			Encoding:        p.str("GOOGLE_ENCODING", defaultGoogleEncoding),
		},
		Vosk: VoskConfig{
			ServerURL: getenv("VOSK_SERVER_URL"),
			ChunkSize: p.int("VOSK_CHUNK_SIZE", defaultVoskChunkSize),
			DecodeMP3: p.bool("VOSK_DECODE_MP3"),
		},
		Yandex: YandexConfig{
			APIKey:       getenv("YANDEX_API_KEY"),
			SubmitURL:    p.str("YANDEX_SUBMIT_URL", defaultYandexSubmitURL),
			OperationURL: p.str("YANDEX_OPERATION_URL", defaultYandexOpURL),
			AudioBaseURL: getenv("YANDEX_AUDIO_BASE_URL"),
			PollInterval: p.duration("YANDEX_POLL_INTERVAL", defaultPollInterval),
		},
		Whisper: WhisperConfig{
			URL:   getenv("WHISPER_URL"),
			Token: getenv("WHISPER_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: getenv("GEMINI_API_KEY"),
			Model:  p.str("GEMINI_MODEL", defaultGeminiModel),
		},
		Reference: ReferenceConfig{
			TranscriptsFile: getenv("REFERENCE_TRANSCRIPTS_FILE"),
		},
		Telegram: TelegramConfig{
			Token:     getenv("TELEGRAM_BOT_TOKEN"),
			TokenFile: getenv("TELEGRAM_TOKEN_FILE"),
			Chat:      getenv("TELEGRAM_CHAT"),
			APIURL:    p.str("TELEGRAM_API_URL", defaultTelegramAPIURL),
		},
		Mongo: MongoConfig{
			URI:      getenv("MONGODB_URI"),
			Database: p.str("MONGODB_DATABASE", defaultMongoDatabase),
		},
	}
	if p.err != nil {
		return nil, p.err
	}
	return cfg, nil
}

// Validate checks the keys a single run needs
func (c *Config) Validate() error {
	if c.SamplesDir == "" {
		return &domain.ConfigurationError{Key: "EVAL_SAMPLES_DIR", Reason: "is required"}
	}
	if c.HistoryFile == "" {
		return &domain.ConfigurationError{Key: "EVAL_HISTORY_FILE", Reason: "is required"}
	}
	if c.ReferenceEngine == c.HypothesisEngine {
		return &domain.ConfigurationError{Key: "EVAL_HYPOTHESIS_ENGINE", Reason: "must differ from EVAL_REFERENCE_ENGINE"}
	}
	if c.ReportDays <= 0 {
		return &domain.ConfigurationError{Key: "EVAL_REPORT_DAYS", Reason: "must be positive"}
	}
	for _, e := range c.Engines() {
		if err := c.validateEngine(e); err != nil {
			return err
		}
	}
	return nil
}

// ValidateDaemon checks the extra keys daemon mode needs
func (c *Config) ValidateDaemon() error {
	if c.RunHour < 0 || c.RunHour > 23 {
		return &domain.ConfigurationError{Key: "EVAL_RUN_HOUR", Reason: "must be set to 0..23"}
	}
	if c.RunMinute < 0 || c.RunMinute > 59 {
		return &domain.ConfigurationError{Key: "EVAL_RUN_MINUTE", Reason: "must be set to 0..59"}
	}
	if c.JWTSecret == "" {
		return &domain.ConfigurationError{Key: "JWT_SECRET", Reason: "is required in daemon mode"}
	}
	return nil
}

// Engines returns the reference, hypothesis and comparison engines without duplicates
func (c *Config) Engines() []entities.EngineID {
	seen := make(map[entities.EngineID]bool)
	var out []entities.EngineID
	for _, e := range append([]entities.EngineID{c.ReferenceEngine, c.HypothesisEngine}, c.CompareEngines...) {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

func (c *Config) validateEngine(e entities.EngineID) error {
	required := map[entities.EngineID][2]string{
		entities.EngineGoogle:    {"GOOGLE_CREDENTIALS_FILE", c.Google.CredentialsFile},
		entities.EngineVosk:      {"VOSK_SERVER_URL", c.Vosk.ServerURL},
		entities.EngineYandex:    {"YANDEX_API_KEY", c.Yandex.APIKey},
		entities.EngineWhisper:   {"WHISPER_URL", c.Whisper.URL},
		entities.EngineGemini:    {"GEMINI_API_KEY", c.Gemini.APIKey},
		entities.EngineReference: {"REFERENCE_TRANSCRIPTS_FILE", c.Reference.TranscriptsFile},
	}
	req, ok := required[e]
	if !ok {
		return &domain.ConfigurationError{Key: "EVAL_*_ENGINE", Reason: "unknown engine " + string(e)}
	}
	if req[1] == "" {
		return &domain.ConfigurationError{Key: req[0], Reason: "is required for engine " + string(e)}
	}
	if e == entities.EngineVosk && c.Vosk.ChunkSize <= 0 {
		return &domain.ConfigurationError{Key: "VOSK_CHUNK_SIZE", Reason: "must be positive"}
	}
	return nil
}

// parser keeps the first conversion error so FromEnv reads linearly
type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) str(key, def string) string {
	if v := p.getenv(key); v != "" {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil && p.err == nil {
		p.err = &domain.ConfigurationError{Key: key, Reason: "not an integer: " + v}
	}
	return n
}

func (p *parser) bool(key string) bool {
	v := p.getenv(key)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil && p.err == nil {
		p.err = &domain.ConfigurationError{Key: key, Reason: "not a boolean: " + v}
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil && p.err == nil {
		p.err = &domain.ConfigurationError{Key: key, Reason: "not a duration: " + v}
	}
	return d
}

func (p *parser) engines(key string) []entities.EngineID {
	v := p.getenv(key)
	if v == "" {
		return nil
	}
	var out []entities.EngineID
	for _, part := range strings.Split(v, ",") {
		e := entities.EngineID(strings.TrimSpace(part))
		if e == "" {
			continue
		}
		if !e.Valid() && p.err == nil {
			p.err = &domain.ConfigurationError{Key: key, Reason: "unknown engine " + string(e)}
		}
		out = append(out, e)
	}
	return out
}
