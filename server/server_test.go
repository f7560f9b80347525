package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"arabic_content_publisher/bot"
	"arabic_content_publisher/content"
	"arabic_content_publisher/repository"
	"arabic_content_publisher/repository/repotest"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeBot struct {
	updates []bot.Update
	err     error
	panics  bool
}

func (f *fakeBot) HandleUpdate(_ context.Context, u bot.Update) error {
	if f.panics {
		panic("boom")
	}
	f.updates = append(f.updates, u)
	return f.err
}

type linker struct{}

func (linker) URL(ref content.StorageRef) string {
	if ref.Kind == content.RefKey {
		return "https://media.example/" + ref.Value
	}
	return ref.Value
}

type harness struct {
	srv      *Server
	bot      *fakeBot
	sessions *repository.Sessions
}

func newHarness(t *testing.T, secret string) *harness {
	t.Helper()
	h := &harness{
		bot:      &fakeBot{},
		sessions: repository.NewSessions(repotest.Open(t), nil),
	}
	var err error
	h.srv, err = New(Options{
		Sessions:      h.sessions,
		Bot:           h.bot,
		Audio:         linker{},
		WebhookSecret: secret,
	})
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(w, req)
	return w
}

func webhookRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, webhookPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestWebhookDispatchesUpdate(t *testing.T) {
	h := newHarness(t, "")
	w := h.do(webhookRequest(`{"update_id":7,"callback_query":{"id":"cb","data":"approve_3","message":{"message_id":5,"chat":{"id":1001}}}}`))
	if w.Code != http.StatusOK || decode(t, w)["ok"] != true {
		t.Fatalf("response %d %s", w.Code, w.Body.String())
	}
	if len(h.bot.updates) != 1 || h.bot.updates[0].CallbackQuery.Data != "approve_3" {
		t.Fatalf("updates: %+v", h.bot.updates)
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatal("missing request id header")
	}
}

func TestWebhookAlwaysAnswers200(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		err   error
		panic bool
	}{
		{name: "malformed json", body: `{"update_id":`},
		{name: "handler error", body: `{"update_id":1}`, err: errors.New("db down")},
		{name: "missing config", body: `{"update_id":1}`, err: &content.ConfigError{Missing: []string{"TELEGRAM_BOT_TOKEN"}}},
		{name: "panic", body: `{"update_id":1}`, panic: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, "")
			h.bot.err = tc.err
			h.bot.panics = tc.panic
			w := h.do(webhookRequest(tc.body))
			if w.Code != http.StatusOK {
				t.Fatalf("status %d", w.Code)
			}
			out := decode(t, w)
			if out["ok"] != false || out["error"] == "" {
				t.Fatalf("body %v", out)
			}
		})
	}
}

func TestWebhookSecret(t *testing.T) {
	h := newHarness(t, "s3cret")
	w := h.do(webhookRequest(`{"update_id":1}`))
	if decode(t, w)["ok"] != false || len(h.bot.updates) != 0 {
		t.Fatalf("missing secret must not dispatch: %s", w.Body.String())
	}
	req := webhookRequest(`{"update_id":1}`)
	req.Header.Set(secretHeader, "s3cret")
	if w := h.do(req); w.Code != http.StatusOK || len(h.bot.updates) != 1 {
		t.Fatalf("valid secret: %d %v", w.Code, h.bot.updates)
	}
}

func TestDemoPage(t *testing.T) {
	h := newHarness(t, "")
	topic := "السفر"
	s, err := h.sessions.Create(context.Background(), repository.NewSession{
		ContentType:     content.TypeListening,
		Level:           content.LevelA2,
		Topic:           topic,
		Title:           "رحلة إلى <البحر>",
		Body:            "الفقرة الأولى.\n\nالفقرة الثانية.",
		AudioStorageKey: "audio/2026/01/trip.mp3",
		Questions: []content.Question{
			{Question: "أين ذهبوا؟", Options: []string{"البحر", "الجبل", "المدينة", "الصحراء"}, CorrectAnswer: 0, Explanation: "ذكر النص البحر"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	w := h.do(httptest.NewRequest(http.MethodGet, "/demo/"+s.Slug, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	page := w.Body.String()
	for _, want := range []string{
		"رحلة إلى &lt;البحر&gt;",
		"status-draft",
		"<p>الفقرة الأولى.</p>",
		"https://media.example/audio/2026/01/trip.mp3",
		`class="option correct">A) البحر`,
		topic,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestDemoNotFound(t *testing.T) {
	h := newHarness(t, "")
	w := h.do(httptest.NewRequest(http.MethodGet, "/demo/nope", nil))
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "غَيْرُ مَوْجُودٍ") {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
}

type brokenSessions struct{}

func (brokenSessions) GetBySlug(context.Context, string) (*content.Session, error) {
	return nil, errors.New("db down")
}

func TestDemoLookupFailureRendersErrorPage(t *testing.T) {
	srv, err := New(Options{Sessions: brokenSessions{}, Bot: &fakeBot{}})
	if err != nil {
		t.Fatal(err)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/demo/any", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content type %q", ct)
	}
	if body := w.Body.String(); !strings.Contains(body, `dir="rtl"`) || !strings.Contains(body, "حَدَثَ خَطَأٌ") {
		t.Fatalf("body %s", body)
	}
}

func TestRenderFallsBackToStaticPage(t *testing.T) {
	h := newHarness(t, "")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	h.srv.render(c, http.StatusOK, "missing.html", nil)
	if w.Code != http.StatusInternalServerError || !strings.HasPrefix(w.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("status %d type %q", w.Code, w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), "حَدَثَ خَطَأٌ") {
		t.Fatalf("body %s", w.Body.String())
	}
}

func TestHealthAndMedia(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "audio"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "audio", "a.mp3"), []byte("mp3"), 0o644); err != nil {
		t.Fatal(err)
	}
	srv, err := New(Options{Sessions: repository.NewSessions(repotest.Open(t), nil), Bot: &fakeBot{}, MediaDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("healthz %d", w.Code)
	}
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/media/audio/a.mp3", nil))
	if w.Code != http.StatusOK || w.Body.String() != "mp3" {
		t.Fatalf("media %d %q", w.Code, w.Body.String())
	}
}
