package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const lahajatiBaseURL = "https://lahajati.ai"

// LahajatiFallbackVoices is used when the account's voice list cannot be fetched.
var LahajatiFallbackVoices = []string{
	"jUF5KnZcKN9kJxvxtRJCzTlj",
	"OZuzezjpgHq0hkOVaqrnde3v",
	"xKcZnBxPAaPGv5lHHVErx1xT",
	"nDM7BdvJn4eYlchiz4EgPyZi",
}

type lahajatiVoicesResp struct {
	Data []struct {
		IDVoice     string `json:"id_voice"`
		DisplayName string `json:"display_name"`
		Gender      string `json:"gender"`
	} `json:"data"`
}

type lahajatiTTSRequest struct {
	Text      string `json:"text"`
	IDVoice   string `json:"id_voice"`
	InputMode string `json:"input_mode"`
}

// Lahajati calls the lahajati.ai "absolute control" endpoints.
type Lahajati struct {
	APIKey  string
	BaseURL string
	client  *http.Client
}

func NewLahajati(apiKey string) *Lahajati {
	return &Lahajati{APIKey: apiKey, BaseURL: lahajatiBaseURL, client: defaultHTTPClient()}
}

func (l *Lahajati) Name() string { return "lahajati" }

func (l *Lahajati) url(path string) string {
	return strings.TrimRight(l.BaseURL, "/") + path
}

// ListVoices returns the ids of the voices available to the account.
func (l *Lahajati) ListVoices(ctx context.Context) ([]string, error) {
	if l.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url("/api/v1/voices-absolute-control"), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+l.APIKey)
	req.Header.Set("Accept", "application/json")
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Provider: l.Name(), Status: resp.StatusCode}
	}
	var out lahajatiVoicesResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode lahajati voices: %w", err)
	}
	ids := make([]string, 0, len(out.Data))
	for _, v := range out.Data {
		if v.IDVoice != "" {
			ids = append(ids, v.IDVoice)
		}
	}
	return ids, nil
}

func (l *Lahajati) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if l.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if voiceID == "" {
		voiceID = LahajatiFallbackVoices[0]
	}
	resp, err := postJSON(ctx, l.client, l.url("/api/v1/text-to-speech-absolute-control"), map[string]string{
		"Authorization": "Bearer " + l.APIKey,
		"Accept":        "audio/mpeg",
	}, lahajatiTTSRequest{Text: text, IDVoice: voiceID, InputMode: "0"})
	if err != nil {
		return nil, err
	}
	return readAudio(l.Name(), resp)
}
