package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"arabic_content_publisher/content"
)

// Config is the process-wide settings snapshot, read once at startup.
type Config struct {
	Environment   string
	Port          string
	PublicBaseURL string

	LLM LLMConfig

	ElevenLabsAPIKey  string
	ElevenLabsModelID string
	LahajatiAPIKey    string
	AudioProvider     string

	TelegramBotToken      string
	TelegramAdminChatID   string
	TelegramChannelID     string
	TelegramWebhookSecret string

	DatabaseURL     string
	GCSBucket       string
	CloudDeployment bool
	LocalStorageDir string

	DefaultImageURL   string
	ContentSchedule   string
	ScheduledContent  string
	GenerationTimeout time.Duration
}

// LLMConfig selects the completion backend for the generator.
type LLMConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// Load reads .env (if present) and then the process environment.
func Load() Config {
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")
	return Config{
		Environment:   env,
		Port:          getEnv("PORT", "8080"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		LLM: LLMConfig{
			Provider: getEnv("LLM_PROVIDER", "openai"),
			Model:    getEnv("LLM_MODEL", "gpt-4o-mini"),
			APIKey:   getEnv("OPENAI_API_KEY", os.Getenv("AI_INTEGRATIONS_OPENAI_API_KEY")),
			BaseURL:  getEnv("OPENAI_BASE_URL", os.Getenv("AI_INTEGRATIONS_OPENAI_BASE_URL")),
		},
		ElevenLabsAPIKey:      os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsModelID:     getEnv("ELEVENLABS_MODEL_ID", "eleven_multilingual_v2"),
		LahajatiAPIKey:        os.Getenv("LAHAJATI_API_KEY"),
		AudioProvider:         strings.ToLower(getEnv("AUDIO_PROVIDER", "elevenlabs")),
		TelegramBotToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramAdminChatID:   os.Getenv("TELEGRAM_ADMIN_CHAT_ID"),
		TelegramChannelID:     os.Getenv("TELEGRAM_CHANNEL_ID"),
		TelegramWebhookSecret: os.Getenv("TELEGRAM_WEBHOOK_SECRET"),
		DatabaseURL:           getEnv("DATABASE_URL", "postgresql://localhost:5432/content"),
		GCSBucket:             os.Getenv("GCS_BUCKET"),
		CloudDeployment:       os.Getenv("CLOUD_DEPLOYMENT") != "" || os.Getenv("K_SERVICE") != "",
		LocalStorageDir:       getEnv("LOCAL_STORAGE_DIR", "./data"),
		DefaultImageURL:       os.Getenv("DEFAULT_IMAGE_URL"),
		ContentSchedule:       os.Getenv("CONTENT_SCHEDULE"),
		ScheduledContent:      getEnv("SCHEDULED_CONTENT", "listening:A2,reading:B1"),
		GenerationTimeout:     getDuration("GENERATION_TIMEOUT", 5*time.Minute),
	}
}

// TelegramMissing lists the Telegram settings the bot cannot work without.
func (c Config) TelegramMissing() []string {
	var missing []string
	if c.TelegramBotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.TelegramAdminChatID == "" {
		missing = append(missing, "TELEGRAM_ADMIN_CHAT_ID")
	}
	return missing
}

// UseCloudStorage is true when running in a cloud deployment with a bucket configured.
func (c Config) UseCloudStorage() bool {
	return c.CloudDeployment && c.GCSBucket != ""
}

// ScheduledJob is one (type, level) pair run by the cron trigger.
type ScheduledJob struct {
	ContentType content.ContentType
	Level       content.Level
}

// ScheduledJobs parses SCHEDULED_CONTENT ("listening:A2,reading:B1"). Malformed
// entries are reported together so a typo is visible at startup.
func (c Config) ScheduledJobs() ([]ScheduledJob, error) {
	var jobs []ScheduledJob
	var bad []string
	for _, item := range strings.Split(c.ScheduledContent, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		typ, lvl, ok := strings.Cut(item, ":")
		ct, err1 := content.ParseContentType(typ)
		lv, err2 := content.ParseLevel(lvl)
		if !ok || err1 != nil || err2 != nil {
			bad = append(bad, item)
			continue
		}
		jobs = append(jobs, ScheduledJob{ContentType: ct, Level: lv})
	}
	if len(bad) > 0 {
		return jobs, &content.ValidationError{Field: "SCHEDULED_CONTENT", Reason: "malformed entries " + strings.Join(bad, ", ")}
	}
	return jobs, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
