package config

import (
	"testing"
	"time"

	"arabic_content_publisher/content"
)

func TestLoadDefaultsAndFallbacks(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("AI_INTEGRATIONS_OPENAI_API_KEY", "sk-fallback")
	t.Setenv("PUBLIC_BASE_URL", "https://bot.example.com/")
	t.Setenv("GENERATION_TIMEOUT", "90s")
	t.Setenv("K_SERVICE", "content-bot")
	t.Setenv("GCS_BUCKET", "audio-bucket")
	t.Setenv("AUDIO_PROVIDER", "Lahajati")

	cfg := Load()

	if cfg.LLM.APIKey != "sk-fallback" {
		t.Fatalf("expected fallback api key, got %q", cfg.LLM.APIKey)
	}
	if cfg.PublicBaseURL != "https://bot.example.com" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.PublicBaseURL)
	}
	if cfg.GenerationTimeout != 90*time.Second {
		t.Fatalf("timeout: %v", cfg.GenerationTimeout)
	}
	if !cfg.UseCloudStorage() {
		t.Fatal("expected cloud storage with K_SERVICE and bucket set")
	}
	if cfg.AudioProvider != "lahajati" {
		t.Fatalf("audio provider not normalised: %q", cfg.AudioProvider)
	}
}

func TestLoadInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("GENERATION_TIMEOUT", "soon")
	if got := Load().GenerationTimeout; got != 5*time.Minute {
		t.Fatalf("expected default timeout, got %v", got)
	}
}

func TestTelegramMissing(t *testing.T) {
	cfg := Config{TelegramBotToken: "x"}
	missing := cfg.TelegramMissing()
	if len(missing) != 1 || missing[0] != "TELEGRAM_ADMIN_CHAT_ID" {
		t.Fatalf("unexpected missing list: %v", missing)
	}
}

func TestScheduledJobs(t *testing.T) {
	cfg := Config{ScheduledContent: "listening:A2, reading:b1,,podcast:C1,video:A1"}
	jobs, err := cfg.ScheduledJobs()
	if err == nil {
		t.Fatal("expected error for malformed entries")
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 valid jobs, got %d", len(jobs))
	}
	if jobs[1].ContentType != content.TypeReading || jobs[1].Level != content.LevelB1 {
		t.Fatalf("unexpected job: %+v", jobs[1])
	}
}
