package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"arabic_content_publisher/content"
)

type rawQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

type rawContent struct {
	Topic     string        `json:"topic"`
	Title     string        `json:"title"`
	Body      string        `json:"body"`
	Questions []rawQuestion `json:"questions"`
	ImageURL  string        `json:"imageUrl"`
}

func (r rawContent) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.Body, validation.Required),
		validation.Field(&r.Questions, validation.Required, validation.Length(QuestionCount, QuestionCount)),
	)
}

func (q rawQuestion) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Question, validation.Required),
		validation.Field(&q.Options, validation.Required, validation.Length(content.OptionsPerQuestion, content.OptionsPerQuestion)),
		validation.Field(&q.CorrectAnswer, validation.Required),
	)
}

// PostProcess decodes and validates a content payload, converting letter answers to indices.
func PostProcess(raw string) (Generated, error) {
	var rc rawContent
	if err := decodeJSON(raw, &rc); err != nil {
		return Generated{}, err
	}
	if err := rc.Validate(); err != nil {
		return Generated{}, &content.ValidationError{Field: "content", Reason: err.Error()}
	}
	questions, err := convertQuestions(rc.Questions)
	if err != nil {
		return Generated{}, err
	}
	return Generated{
		Topic:     strings.TrimSpace(rc.Topic),
		Title:     strings.TrimSpace(rc.Title),
		Body:      strings.TrimSpace(rc.Body),
		Questions: questions,
		ImageURL:  strings.TrimSpace(rc.ImageURL),
	}, nil
}

// PostProcessQuestions handles the questions-only payload used for custom content.
func PostProcessQuestions(raw string) ([]content.Question, error) {
	var payload struct {
		Questions []rawQuestion `json:"questions"`
	}
	if err := decodeJSON(raw, &payload); err != nil {
		return nil, err
	}
	if err := validation.Validate(payload.Questions, validation.Required, validation.Length(QuestionCount, QuestionCount)); err != nil {
		return nil, &content.ValidationError{Field: "questions", Reason: err.Error()}
	}
	return convertQuestions(payload.Questions)
}

func convertQuestions(in []rawQuestion) ([]content.Question, error) {
	out := make([]content.Question, 0, len(in))
	for i, rq := range in {
		if err := rq.Validate(); err != nil {
			return nil, &content.ValidationError{Field: fmt.Sprintf("questions[%d]", i), Reason: err.Error()}
		}
		idx, err := answerIndex(rq.CorrectAnswer)
		if err != nil {
			return nil, &content.ValidationError{Field: fmt.Sprintf("questions[%d].correctAnswer", i), Reason: err.Error()}
		}
		q := content.Question{
			Question:      strings.TrimSpace(rq.Question),
			Options:       rq.Options,
			CorrectAnswer: idx,
			Explanation:   strings.TrimSpace(rq.Explanation),
		}
		if err := q.Validate(); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func answerIndex(letter string) (int, error) {
	switch strings.ToUpper(strings.TrimSpace(letter)) {
	case "A":
		return 0, nil
	case "B":
		return 1, nil
	case "C":
		return 2, nil
	case "D":
		return 3, nil
	}
	return 0, fmt.Errorf("invalid answer %q (expected A, B, C or D)", letter)
}

func decodeJSON(raw string, v any) error {
	body := stripFences(raw)
	if body == "" {
		return &content.ValidationError{Field: "response", Reason: "model returned empty output"}
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return &content.ValidationError{Field: "response", Reason: "invalid JSON: " + err.Error()}
	}
	return nil
}

// stripFences removes a ```json ... ``` wrapper and any prose around the outermost object.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return strings.TrimSpace(s)
	}
	return s[start : end+1]
}
