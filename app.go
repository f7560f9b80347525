package main

import (
	"context"
	"fmt"

	"arabic_content_publisher/audio"
	"arabic_content_publisher/bot"
	"arabic_content_publisher/config"
	"arabic_content_publisher/generator"
	"arabic_content_publisher/logger"
	"arabic_content_publisher/pipeline"
	"arabic_content_publisher/publisher"
	"arabic_content_publisher/repository"
	"arabic_content_publisher/server"
	"arabic_content_publisher/storage"
)

// app holds the wired components for one process.
type app struct {
	pipeline  *pipeline.Pipeline
	scheduler *pipeline.Scheduler
	server    *server.Server
}

func buildApp(ctx context.Context, cfg config.Config, log *logger.Logger) (*app, error) {
	db, err := repository.Open(cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}
	if err := repository.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	sessions := repository.NewSessions(db, log)
	custom := repository.NewCustomContents(db, log)
	voices := repository.NewVoices(db, log)

	backend, mediaDir, err := buildStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	gateway := storage.NewGateway(backend, log)
	log.Info("storage ready", "backend", backend.Name())

	primary, secondary := buildVoices(cfg, voices, log)
	synth := audio.NewSynthesizer(primary, secondary, gateway, log)

	llm, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}
	agent, err := generator.NewAgent(llm, log)
	if err != nil {
		return nil, err
	}

	pub, err := buildPublisher(cfg, log)
	if err != nil {
		return nil, err
	}

	p, err := pipeline.New(pipeline.Options{
		Generator:     agent,
		Synthesizer:   synth,
		Sessions:      sessions,
		Custom:        custom,
		Publisher:     pub,
		PublicBaseURL: cfg.PublicBaseURL,
		Timeout:       cfg.GenerationTimeout,
		Log:           log,
	})
	if err != nil {
		return nil, err
	}

	ctrl := bot.NewController(bot.Deps{
		Sessions:      sessions,
		Custom:        custom,
		Audio:         gateway,
		Runner:        p,
		Publisher:     pub,
		PublicBaseURL: cfg.PublicBaseURL,
		Missing:       cfg.TelegramMissing(),
		Log:           log,
	})

	srv, err := server.New(server.Options{
		Sessions:      sessions,
		Bot:           ctrl,
		Audio:         gateway,
		MediaDir:      mediaDir,
		WebhookSecret: cfg.TelegramWebhookSecret,
		Log:           log,
	})
	if err != nil {
		return nil, err
	}

	a := &app{pipeline: p, server: srv}
	if cfg.ContentSchedule != "" {
		jobs, err := cfg.ScheduledJobs()
		if err != nil {
			return nil, err
		}
		a.scheduler, err = pipeline.NewScheduler(cfg.ContentSchedule, jobs, p, cfg.GenerationTimeout, log)
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

// buildStorage picks GCS in cloud deployments and a local directory otherwise.
// The returned directory is non-empty only for the local backend.
func buildStorage(ctx context.Context, cfg config.Config) (storage.Backend, string, error) {
	if cfg.UseCloudStorage() {
		client, err := storage.NewGCSClient(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("gcs client: %w", err)
		}
		return storage.NewGCSBackend(client, cfg.GCSBucket, ""), "", nil
	}
	local, err := storage.NewLocalBackend(cfg.LocalStorageDir, cfg.PublicBaseURL)
	if err != nil {
		return nil, "", err
	}
	return local, local.Dir(), nil
}

// buildVoices makes AUDIO_PROVIDER the primary with persisted rotation. The other
// provider is the fallback and picks voices at random, so the rotation row has
// a single owner.
func buildVoices(cfg config.Config, store audio.RotationStore, log *logger.Logger) (audio.Voiced, *audio.Voiced) {
	eleven := audio.NewElevenLabs(cfg.ElevenLabsAPIKey, cfg.ElevenLabsModelID)
	lahajati := audio.NewLahajati(cfg.LahajatiAPIKey)

	if cfg.AudioProvider == "lahajati" {
		primary := audio.Voiced{
			Provider: lahajati,
			Voices:   audio.RemoteRotatingVoices(lahajati, audio.LahajatiFallbackVoices, store, log),
		}
		return primary, &audio.Voiced{Provider: eleven, Voices: audio.RandomVoices(audio.ElevenLabsVoices)}
	}
	primary := audio.Voiced{
		Provider: eleven,
		Voices:   audio.RotatingVoices(audio.ElevenLabsVoices, store),
	}
	return primary, &audio.Voiced{Provider: lahajati, Voices: audio.RandomVoices(audio.LahajatiFallbackVoices)}
}

func buildLLM(cfg config.Config) (generator.LLMClient, error) {
	switch cfg.LLM.Provider {
	case "mock":
		return generator.MockLLM{}, nil
	case "openai":
		return generator.NewOpenAILLMFromConfig(&generator.LLMSettings{
			Provider: cfg.LLM.Provider,
			Model:    cfg.LLM.Model,
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
		})
	case "deepseek":
		// DeepSeek speaks the OpenAI protocol; it only needs its own endpoint.
		if cfg.LLM.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires OPENAI_BASE_URL")
		}
		return generator.NewOpenAILLMFromConfig(&generator.LLMSettings{
			Provider: cfg.LLM.Provider,
			Model:    cfg.LLM.Model,
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
		})
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.LLM.Provider)
	}
}

// buildPublisher returns nil when Telegram credentials are missing. The bot then
// answers every update with a configuration error.
func buildPublisher(cfg config.Config, log *logger.Logger) (*publisher.Publisher, error) {
	m, err := newMessenger(cfg)
	if err != nil {
		return nil, err
	}
	if m == nil {
		log.Warn("telegram not configured", "missing", cfg.TelegramMissing())
		return nil, nil
	}
	return publisher.New(m, publisher.Config{
		AdminChatID:     cfg.TelegramAdminChatID,
		ChannelID:       cfg.TelegramChannelID,
		DefaultImageURL: cfg.DefaultImageURL,
	}, log)
}

func newMessenger(cfg config.Config) (*publisher.TelegoMessenger, error) {
	if len(cfg.TelegramMissing()) > 0 {
		return nil, nil
	}
	return publisher.NewTelegoMessenger(cfg.TelegramBotToken, cfg.Environment == "dev")
}
