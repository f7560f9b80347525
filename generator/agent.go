package generator

import (
	"context"
	"errors"
	"fmt"

	"arabic_content_publisher/content"
	"arabic_content_publisher/logger"
)

// retryTemperatureStep is added to the sampling temperature for the single retry.
const retryTemperatureStep = 0.1

// Agent turns a Request into validated content via the LLM.
type Agent struct {
	llm LLMClient
	log *logger.Logger
}

func NewAgent(llm LLMClient, log *logger.Logger) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Agent{llm: llm, log: log.With("service", "Generator")}, nil
}

// Generate produces title, body and questions. A provider or validation failure is
// retried once at a higher temperature before the error is returned.
func (a *Agent) Generate(ctx context.Context, req Request) (Generated, error) {
	if _, err := content.ParseContentType(string(req.ContentType)); err != nil {
		return Generated{}, err
	}
	if _, err := content.ParseLevel(string(req.Level)); err != nil {
		return Generated{}, err
	}
	prompt := BuildContentPrompt(req)
	var out Generated
	err := a.withRetry(ctx, prompt, "content", func(raw string) error {
		g, err := PostProcess(raw)
		if err != nil {
			return err
		}
		out = g
		return nil
	})
	if err != nil {
		return Generated{}, err
	}
	a.log.Info("content generated", "title", out.Title, "questions", len(out.Questions), "type", req.ContentType, "level", req.Level)
	return out, nil
}

// QuestionsFromText builds comprehension questions for admin-supplied text.
func (a *Agent) QuestionsFromText(ctx context.Context, text string, level content.Level) ([]content.Question, error) {
	if text == "" {
		return nil, &content.ValidationError{Field: "text", Reason: "empty text"}
	}
	var out []content.Question
	err := a.withRetry(ctx, BuildQuestionsPrompt(text, level), "questions", func(raw string) error {
		qs, err := PostProcessQuestions(raw)
		if err != nil {
			return err
		}
		out = qs
		return nil
	})
	return out, err
}

func (a *Agent) withRetry(ctx context.Context, prompt Prompt, what string, accept func(raw string) error) error {
	firstErr := a.attempt(ctx, prompt, accept)
	if firstErr == nil {
		return nil
	}
	if ctx.Err() != nil {
		return firstErr
	}
	a.log.Warn("generation attempt failed, retrying", "what", what, "error", firstErr)

	prompt.Temperature += retryTemperatureStep
	retryErr := a.attempt(ctx, prompt, accept)
	if retryErr == nil {
		return nil
	}
	a.log.Error("generation failed after retry", "what", what, "first_error", firstErr, "retry_error", retryErr)
	var ve *content.ValidationError
	if errors.As(retryErr, &ve) {
		return retryErr
	}
	return fmt.Errorf("%s generation failed after retry: %w", what, retryErr)
}

func (a *Agent) attempt(ctx context.Context, prompt Prompt, accept func(raw string) error) error {
	raw, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		return err
	}
	return accept(raw)
}
