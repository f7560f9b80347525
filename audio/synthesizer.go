package audio

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"arabic_content_publisher/logger"
	"arabic_content_publisher/storage"
)

// Uploader stores synthesized audio. Implemented by *storage.Gateway.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, titleHint string) (storage.Uploaded, error)
}

// Voiced pairs a provider with its voice policy.
type Voiced struct {
	Provider Provider
	Voices   VoiceSelector
}

// Input is one synthesis request. VoiceID, when set, applies to the primary provider only.
type Input struct {
	Text    string
	Title   string
	VoiceID string
}

// Result reports the outcome. Failures are values, never errors.
type Result struct {
	Success          bool   `json:"success"`
	AudioURL         string `json:"audioUrl"`
	AudioBase64      string `json:"audioBase64"`
	Filename         string `json:"filename,omitempty"`
	DurationEstimate int    `json:"durationEstimate"`
	Message          string `json:"message"`
	VoiceID          string `json:"voiceId,omitempty"`
	Provider         string `json:"provider,omitempty"`
	Audio            []byte `json:"-"`
}

// Synthesizer runs the primary provider and falls back to the secondary one.
type Synthesizer struct {
	primary   Voiced
	secondary *Voiced
	uploader  Uploader
	log       *logger.Logger
}

func NewSynthesizer(primary Voiced, secondary *Voiced, uploader Uploader, log *logger.Logger) *Synthesizer {
	if log == nil {
		log = logger.Nop()
	}
	return &Synthesizer{
		primary:   primary,
		secondary: secondary,
		uploader:  uploader,
		log:       log.With("service", "AudioSynthesizer"),
	}
}

// EstimateDuration assumes roughly ten characters per spoken second.
func EstimateDuration(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 9) / 10
}

func (s *Synthesizer) Synthesize(ctx context.Context, in Input) Result {
	if strings.TrimSpace(in.Text) == "" {
		return Result{Message: "no text to synthesize"}
	}
	candidates := []Voiced{s.primary}
	if s.secondary != nil {
		candidates = append(candidates, *s.secondary)
	}

	var failures []string
	for i, c := range candidates {
		voice := ""
		if i == 0 {
			voice = in.VoiceID
		}
		if voice == "" && c.Voices != nil {
			v, err := c.Voices.Next(ctx)
			if err != nil {
				s.log.Warn("voice selection failed, using provider default", "provider", c.Provider.Name(), "error", err)
			}
			voice = v
		}

		data, err := c.Provider.Synthesize(ctx, in.Text, voice)
		if err != nil {
			s.log.Warn("tts provider failed", "provider", c.Provider.Name(), "voice", voice, "error", err)
			failures = append(failures, fmt.Sprintf("%s: %v", c.Provider.Name(), err))
			continue
		}
		s.log.Info("audio synthesized", "provider", c.Provider.Name(), "voice", voice, "bytes", len(data))

		up, err := s.uploader.Upload(ctx, bytes.NewReader(data), in.Title)
		if err != nil {
			s.log.Error("audio upload failed", "error", err)
			return Result{Message: "audio storage failed: " + err.Error(), Provider: c.Provider.Name(), VoiceID: voice}
		}
		return Result{
			Success:          true,
			AudioURL:         up.URL,
			AudioBase64:      base64.StdEncoding.EncodeToString(data),
			Filename:         up.Key,
			DurationEstimate: EstimateDuration(in.Text),
			Message:          fmt.Sprintf("audio generated via %s (%s)", c.Provider.Name(), voice),
			VoiceID:          voice,
			Provider:         c.Provider.Name(),
			Audio:            data,
		}
	}
	return Result{Message: "audio generation failed: " + strings.Join(failures, "; ")}
}
