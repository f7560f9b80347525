package main

import (
	"testing"

	"arabic_content_publisher/config"
	"arabic_content_publisher/generator"
)

func TestBuildLLM(t *testing.T) {
	llm, err := buildLLM(config.Config{LLM: config.LLMConfig{Provider: "mock"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := llm.(generator.MockLLM); !ok {
		t.Fatalf("expected MockLLM, got %T", llm)
	}
	if _, err := buildLLM(config.Config{LLM: config.LLMConfig{Provider: "deepseek", APIKey: "k", Model: "m"}}); err == nil {
		t.Fatal("deepseek without base url must fail")
	}
	if _, err := buildLLM(config.Config{LLM: config.LLMConfig{Provider: "claude"}}); err == nil {
		t.Fatal("expected unsupported provider error")
	}
}

func TestBuildVoicesPrimary(t *testing.T) {
	cases := []struct {
		provider, primary, secondary string
	}{
		{"elevenlabs", "elevenlabs", "lahajati"},
		{"lahajati", "lahajati", "elevenlabs"},
		{"", "elevenlabs", "lahajati"},
	}
	for _, tc := range cases {
		p, s := buildVoices(config.Config{AudioProvider: tc.provider}, nil, nil)
		if p.Provider.Name() != tc.primary || s == nil || s.Provider.Name() != tc.secondary {
			t.Errorf("%q: got %s then %v", tc.provider, p.Provider.Name(), s)
		}
	}
}

func TestNewMessengerWithoutCredentials(t *testing.T) {
	m, err := newMessenger(config.Config{})
	if err != nil || m != nil {
		t.Fatalf("expected no messenger, got %v %v", m, err)
	}
}
