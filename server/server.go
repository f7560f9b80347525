package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"

	"arabic_content_publisher/bot"
	"arabic_content_publisher/content"
	"arabic_content_publisher/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	webhookPath  = "/webhooks/telegram"
	secretHeader = "X-Telegram-Bot-Api-Secret-Token"
	timeLayout   = "2006-01-02 15:04"
)

// fallbackErrorPage is served when the templates themselves fail.
var fallbackErrorPage = []byte(`<!DOCTYPE html><html lang="ar" dir="rtl"><head><meta charset="UTF-8"><title>خطأ</title></head>` +
	`<body><h1>⚠️ حَدَثَ خَطَأٌ</h1></body></html>`)

type SessionFinder interface {
	GetBySlug(ctx context.Context, slug string) (*content.Session, error)
}

// UpdateHandler is implemented by *bot.Controller.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, u bot.Update) error
}

// AudioLinker resolves stored audio to a playable URL. Implemented by *storage.Gateway.
type AudioLinker interface {
	URL(ref content.StorageRef) string
}

// Options wires a Server. MediaDir is served under /media when set; it is only
// used with the local storage backend.
type Options struct {
	Sessions      SessionFinder
	Bot           UpdateHandler
	Audio         AudioLinker
	MediaDir      string
	WebhookSecret string
	Log           *logger.Logger
}

type Server struct {
	opts   Options
	log    *logger.Logger
	pages  *template.Template
	md     goldmark.Markdown
	engine *gin.Engine
}

func New(opts Options) (*Server, error) {
	if opts.Sessions == nil || opts.Bot == nil {
		return nil, errors.New("server requires session store and bot controller")
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	pages, err := template.New("pages").Funcs(template.FuncMap{
		"inc":    func(i int) int { return i + 1 },
		"letter": func(i int) string { return string(rune('A' + i)) },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		opts:  opts,
		log:   log.With("component", "Server"),
		pages: pages,
		md:    goldmark.New(),
	}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), RequestLogger(s.log), Recovery(s.log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST(webhookPath, s.handleWebhook)
	r.GET("/demo/:slug", s.handleDemo)
	if s.opts.MediaDir != "" {
		r.Static("/media", s.opts.MediaDir)
	}
	return r
}

// handleWebhook answers 200 for every Telegram delivery so failed updates are
// not redelivered. Failures are reported in the body.
func (s *Server) handleWebhook(c *gin.Context) {
	if s.opts.WebhookSecret != "" && c.GetHeader(secretHeader) != s.opts.WebhookSecret {
		s.log.Warn("webhook rejected: bad secret token", "request_id", c.GetString(requestIDKey))
		c.JSON(http.StatusOK, gin.H{"ok": false, "error": "invalid secret token"})
		return
	}

	var u bot.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		s.log.Warn("webhook payload rejected", "error", err)
		c.JSON(http.StatusOK, gin.H{"ok": false, "error": "invalid update payload"})
		return
	}

	if err := s.opts.Bot.HandleUpdate(c.Request.Context(), u); err != nil {
		var cfgErr *content.ConfigError
		if errors.As(err, &cfgErr) {
			s.log.Warn("webhook ignored", "update_id", u.UpdateID, "missing", cfgErr.Missing)
		} else {
			s.log.Error("webhook handling failed", "update_id", u.UpdateID, "error", err)
		}
		c.JSON(http.StatusOK, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type demoView struct {
	Slug        string
	Title       string
	Status      content.Status
	StatusLabel string
	Emoji       string
	TypeName    string
	Level       content.Level
	Topic       string
	CreatedAt   string
	UpdatedAt   string
	ImageURL    string
	BodyHTML    template.HTML
	AudioURL    string
	Questions   []content.Question
}

func (s *Server) handleDemo(c *gin.Context) {
	slug := c.Param("slug")
	sess, err := s.opts.Sessions.GetBySlug(c.Request.Context(), slug)
	if errors.Is(err, content.ErrNotFound) {
		s.render(c, http.StatusNotFound, "notfound.html", nil)
		return
	}
	if err != nil {
		s.log.Error("demo lookup failed", "slug", slug, "error", err)
		s.render(c, http.StatusInternalServerError, "error.html", nil)
		return
	}

	view, err := s.demoView(sess)
	if err != nil {
		s.log.Error("demo body render failed", "slug", slug, "error", err)
		s.render(c, http.StatusInternalServerError, "error.html", nil)
		return
	}
	s.render(c, http.StatusOK, "demo.html", view)
}

func (s *Server) demoView(sess *content.Session) (demoView, error) {
	var body bytes.Buffer
	if err := s.md.Convert([]byte(sess.Body), &body); err != nil {
		return demoView{}, err
	}
	v := demoView{
		Slug:        sess.Slug,
		Title:       sess.Title,
		Status:      sess.Status,
		StatusLabel: sess.Status.ArabicLabel(),
		Emoji:       sess.ContentType.Emoji(),
		TypeName:    sess.ContentType.ArabicName(),
		Level:       sess.Level,
		CreatedAt:   sess.CreatedAt.Format(timeLayout),
		ImageURL:    sess.ImageURL,
		BodyHTML:    template.HTML(body.String()),
		Questions:   sess.Questions,
	}
	if sess.Topic != nil {
		v.Topic = *sess.Topic
	}
	if sess.UpdatedAt.Sub(sess.CreatedAt) > time.Second {
		v.UpdatedAt = sess.UpdatedAt.Format(timeLayout)
	}
	if ref, ok := sess.AudioRef(); ok && s.opts.Audio != nil {
		v.AudioURL = s.opts.Audio.URL(ref)
	}
	return v, nil
}

func (s *Server) render(c *gin.Context, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.Error("template render failed", "template", name, "error", err)
		c.Data(http.StatusInternalServerError, "text/html; charset=utf-8", fallbackErrorPage)
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}
