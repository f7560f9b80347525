package audio

import (
	"context"
	"net/http"
	"strings"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io"

// ElevenLabsVoices is the curated pool of multilingual voices that read Arabic well.
var ElevenLabsVoices = []string{
	"pNInz6obpgDQGcFmaJgB",
	"21m00Tcm4TlvDq8ikWAM",
	"ErXwobaYiN019PkySvjV",
	"EXAVITQu4vr4xnSDxMaL",
}

type elevenLabsRequest struct {
	Text          string             `json:"text"`
	ModelID       string             `json:"model_id"`
	VoiceSettings elevenLabsSettings `json:"voice_settings"`
}

type elevenLabsSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// ElevenLabs calls the ElevenLabs text-to-speech endpoint.
type ElevenLabs struct {
	APIKey  string
	ModelID string
	BaseURL string
	client  *http.Client
}

func NewElevenLabs(apiKey, modelID string) *ElevenLabs {
	if modelID == "" {
		modelID = "eleven_multilingual_v2"
	}
	return &ElevenLabs{APIKey: apiKey, ModelID: modelID, BaseURL: elevenLabsBaseURL, client: defaultHTTPClient()}
}

func (e *ElevenLabs) Name() string { return "elevenlabs" }

func (e *ElevenLabs) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if e.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if voiceID == "" {
		voiceID = ElevenLabsVoices[0]
	}
	url := strings.TrimRight(e.BaseURL, "/") + "/v1/text-to-speech/" + voiceID
	resp, err := postJSON(ctx, e.client, url, map[string]string{
		"xi-api-key": e.APIKey,
		"Accept":     "audio/mpeg",
	}, elevenLabsRequest{
		Text:          text,
		ModelID:       e.ModelID,
		VoiceSettings: elevenLabsSettings{Stability: 0.5, SimilarityBoost: 0.75},
	})
	if err != nil {
		return nil, err
	}
	return readAudio(e.Name(), resp)
}
