package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"arabic_content_publisher/audio"
	"arabic_content_publisher/content"
	"arabic_content_publisher/generator"
	"arabic_content_publisher/logger"
	"arabic_content_publisher/publisher"
	"arabic_content_publisher/repository"
)

const customTitleLen = 60

// Generator is implemented by *generator.Agent.
type Generator interface {
	Generate(ctx context.Context, req generator.Request) (generator.Generated, error)
	QuestionsFromText(ctx context.Context, text string, level content.Level) ([]content.Question, error)
}

// Synthesizer is implemented by *audio.Synthesizer.
type Synthesizer interface {
	Synthesize(ctx context.Context, in audio.Input) audio.Result
}

type SessionCreator interface {
	Create(ctx context.Context, in repository.NewSession) (*content.Session, error)
}

type CustomCreator interface {
	Create(ctx context.Context, in repository.NewCustom) (*content.CustomContent, error)
}

// Options wires a Pipeline. Publisher may be nil, in which case previews are skipped.
type Options struct {
	Generator     Generator
	Synthesizer   Synthesizer
	Sessions      SessionCreator
	Custom        CustomCreator
	Publisher     *publisher.Publisher
	PublicBaseURL string
	Timeout       time.Duration
	Log           *logger.Logger
}

// Outcome is the result of one pipeline run.
type Outcome struct {
	Session   *content.Session
	Custom    *content.CustomContent
	Audio     audio.Result
	PreviewID int
}

// Pipeline runs generate, synthesize, persist and preview in sequence.
type Pipeline struct {
	opts Options
	log  *logger.Logger
	wg   sync.WaitGroup
}

func New(opts Options) (*Pipeline, error) {
	if opts.Generator == nil || opts.Synthesizer == nil || opts.Sessions == nil {
		return nil, errors.New("pipeline requires generator, synthesizer and session store")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{opts: opts, log: log.With("component", "Pipeline")}, nil
}

// Run produces one draft session and sends it to the admin for review.
func (p *Pipeline) Run(ctx context.Context, req generator.Request) (Outcome, error) {
	log := p.log.With("type", req.ContentType, "level", req.Level)
	log.Info("generation started")

	g, err := p.opts.Generator.Generate(ctx, req)
	if err != nil {
		p.notify(ctx, fmt.Sprintf("❌ فَشِلَ إِنْشَاءُ المُحْتَوَى (%s - %s): %v", req.ContentType, req.Level, err))
		return Outcome{}, fmt.Errorf("generate: %w", err)
	}

	var out Outcome
	if req.ContentType.HasAudio() {
		out.Audio = p.opts.Synthesizer.Synthesize(ctx, audio.Input{Text: g.Body, Title: g.Title})
		if !out.Audio.Success {
			log.Warn("continuing without audio", "reason", out.Audio.Message)
		}
	}

	topic := g.Topic
	if topic == "" {
		topic = req.Topic
	}
	s, err := p.opts.Sessions.Create(ctx, repository.NewSession{
		ContentType:     req.ContentType,
		Level:           req.Level,
		Topic:           topic,
		Title:           g.Title,
		Body:            g.Body,
		Questions:       g.Questions,
		ImageURL:        g.ImageURL,
		AudioURL:        out.Audio.AudioURL,
		AudioStorageKey: out.Audio.Filename,
		AudioProvider:   out.Audio.Provider,
	})
	if err != nil {
		return out, fmt.Errorf("store session: %w", err)
	}
	out.Session = s
	log.Info("draft stored", "slug", s.Slug, "audio", out.Audio.Success)

	if p.opts.Publisher == nil {
		log.Warn("telegram not configured, preview skipped", "slug", s.Slug)
		return out, nil
	}
	out.PreviewID, err = p.opts.Publisher.SendAdminPreview(ctx, publisher.Preview{
		Kind:        publisher.KindSession,
		ID:          s.ID,
		ContentType: s.ContentType,
		Level:       s.Level,
		Topic:       topic,
		Title:       s.Title,
		Body:        s.Body,
		Questions:   s.Questions,
		Audio:       previewAudio(out.Audio, s.Title),
		DemoURL:     p.demoURL(s.Slug),
	})
	if err != nil {
		return out, err
	}
	return out, nil
}

// RunCustom builds questions and audio for admin-provided text.
func (p *Pipeline) RunCustom(ctx context.Context, text, submittedBy string) (Outcome, error) {
	if p.opts.Custom == nil {
		return Outcome{}, errors.New("custom content store not configured")
	}
	text = strings.TrimSpace(text)
	qs, err := p.opts.Generator.QuestionsFromText(ctx, text, content.LevelB1)
	if err != nil {
		p.notify(ctx, fmt.Sprintf("❌ فَشِلَ إِعْدَادُ الأَسْئِلَةِ: %v", err))
		return Outcome{}, fmt.Errorf("questions: %w", err)
	}
	title := customTitle(text)

	var out Outcome
	out.Audio = p.opts.Synthesizer.Synthesize(ctx, audio.Input{Text: text, Title: title})
	if !out.Audio.Success {
		p.log.Warn("custom content without audio", "reason", out.Audio.Message)
	}

	cc, err := p.opts.Custom.Create(ctx, repository.NewCustom{
		Title:           title,
		Body:            text,
		Questions:       qs,
		AudioURL:        out.Audio.AudioURL,
		AudioStorageKey: out.Audio.Filename,
		Level:           content.LevelB1,
		SubmittedBy:     submittedBy,
	})
	if err != nil {
		return out, fmt.Errorf("store custom content: %w", err)
	}
	out.Custom = cc

	if p.opts.Publisher == nil {
		return out, nil
	}
	out.PreviewID, err = p.opts.Publisher.SendAdminPreview(ctx, publisher.Preview{
		Kind:      publisher.KindCustom,
		ID:        cc.ID,
		Level:     cc.Level,
		Title:     cc.Title,
		Body:      cc.Body,
		Questions: cc.Questions,
		Audio:     previewAudio(out.Audio, cc.Title),
	})
	return out, err
}

// Start runs the pipeline in the background with its own deadline, detached from
// the caller so a webhook can return immediately.
func (p *Pipeline) Start(req generator.Request) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.opts.Timeout)
		defer cancel()
		if _, err := p.Run(ctx, req); err != nil {
			p.log.Error("background generation failed", "type", req.ContentType, "level", req.Level, "error", err)
		}
	}()
}

func (p *Pipeline) StartCustom(text, submittedBy string) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.opts.Timeout)
		defer cancel()
		if _, err := p.RunCustom(ctx, text, submittedBy); err != nil {
			p.log.Error("custom content failed", "error", err)
		}
	}()
}

// Wait blocks until background runs finish.
func (p *Pipeline) Wait() { p.wg.Wait() }

func (p *Pipeline) notify(ctx context.Context, text string) {
	if p.opts.Publisher == nil {
		return
	}
	if err := p.opts.Publisher.NotifyAdmin(ctx, text); err != nil {
		p.log.Warn("admin notification failed", "error", err)
	}
}

func (p *Pipeline) demoURL(slug string) string {
	if p.opts.PublicBaseURL == "" {
		return ""
	}
	return p.opts.PublicBaseURL + "/demo/" + slug
}

func previewAudio(res audio.Result, title string) *publisher.Audio {
	if !res.Success {
		return nil
	}
	return &publisher.Audio{Data: res.Audio, URL: res.AudioURL, Filename: path.Base(res.Filename), Title: title}
}

// customTitle is the first line of the text, shortened.
func customTitle(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) > customTitleLen {
		line = string([]rune(line)[:customTitleLen]) + "…"
	}
	return line
}
