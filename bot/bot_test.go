package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"arabic_content_publisher/content"
	"arabic_content_publisher/generator"
	"arabic_content_publisher/publisher"
	"arabic_content_publisher/repository"
	"arabic_content_publisher/repository/repotest"
	"arabic_content_publisher/storage"
)

const adminChat = "1001"

type sent struct {
	method string
	chat   string
	text   string
	kb     publisher.Keyboard
}

type fakeMessenger struct {
	mu      sync.Mutex
	sent    []sent
	answers []string
	edits   []publisher.Keyboard
}

func (f *fakeMessenger) record(s sent) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, s)
	return len(f.sent)
}

func (f *fakeMessenger) SendMessage(_ context.Context, chat, text string, kb publisher.Keyboard) (int, error) {
	return f.record(sent{"message", chat, text, kb}), nil
}

func (f *fakeMessenger) SendPhoto(_ context.Context, chat, _, caption string, kb publisher.Keyboard) (int, error) {
	return f.record(sent{"photo", chat, caption, kb}), nil
}

func (f *fakeMessenger) SendAudio(_ context.Context, chat string, a publisher.Audio, caption string, kb publisher.Keyboard) (int, error) {
	return f.record(sent{"audio:" + string(a.Data), chat, caption, kb}), nil
}

func (f *fakeMessenger) SendPoll(_ context.Context, chat string, p publisher.Poll) error {
	f.record(sent{"poll", chat, p.Question, nil})
	return nil
}

func (f *fakeMessenger) AnswerCallback(_ context.Context, _ string, text string) error {
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeMessenger) EditReplyMarkup(_ context.Context, _ string, _ int, kb publisher.Keyboard) error {
	f.edits = append(f.edits, kb)
	return nil
}

func (f *fakeMessenger) to(chat string) []sent {
	var out []sent
	for _, s := range f.sent {
		if s.chat == chat {
			out = append(out, s)
		}
	}
	return out
}

type fakeRunner struct {
	requests []generator.Request
	custom   []string
}

func (r *fakeRunner) Start(req generator.Request) { r.requests = append(r.requests, req) }
func (r *fakeRunner) StartCustom(text, by string) { r.custom = append(r.custom, text+"|"+by) }

type harness struct {
	ctrl     *Controller
	msgr     *fakeMessenger
	runner   *fakeRunner
	sessions *repository.Sessions
	custom   *repository.CustomContents
	gateway  *storage.Gateway
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := repotest.Open(t)
	msgr := &fakeMessenger{}
	pub, err := publisher.New(msgr, publisher.Config{AdminChatID: adminChat, ChannelID: "@channel"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	backend, err := storage.NewLocalBackend(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatal(err)
	}
	h := &harness{
		msgr:     msgr,
		runner:   &fakeRunner{},
		sessions: repository.NewSessions(db, nil),
		custom:   repository.NewCustomContents(db, nil),
		gateway:  storage.NewGateway(backend, nil),
	}
	h.ctrl = NewController(Deps{
		Sessions:      h.sessions,
		Custom:        h.custom,
		Audio:         h.gateway,
		Runner:        h.runner,
		Publisher:     pub,
		PublicBaseURL: "http://localhost:8080",
	})
	return h
}

func (h *harness) callback(t *testing.T, data string) {
	t.Helper()
	err := h.ctrl.HandleUpdate(context.Background(), Update{CallbackQuery: &CallbackQuery{
		ID:      "cb",
		Data:    data,
		Message: &Message{MessageID: 5, Chat: Chat{ID: 1001}},
	}})
	if err != nil {
		t.Fatalf("callback %s: %v", data, err)
	}
}

func (h *harness) message(t *testing.T, chatID int64, text string) {
	t.Helper()
	err := h.ctrl.HandleUpdate(context.Background(), Update{Message: &Message{
		MessageID: 9,
		From:      &User{ID: 42, Username: "admin"},
		Chat:      Chat{ID: chatID},
		Text:      text,
	}})
	if err != nil {
		t.Fatalf("message %q: %v", text, err)
	}
}

func questions() []content.Question {
	qs := make([]content.Question, 5)
	for i := range qs {
		qs[i] = content.Question{Question: "س؟", Options: []string{"أ", "ب", "ج", "د"}, CorrectAnswer: 1, Explanation: "ش"}
	}
	return qs
}

func (h *harness) listeningSession(t *testing.T) *content.Session {
	t.Helper()
	up, err := h.gateway.Upload(context.Background(), strings.NewReader("mp3"), "lesson")
	if err != nil {
		t.Fatal(err)
	}
	s, err := h.sessions.Create(context.Background(), repository.NewSession{
		ContentType:     content.TypeListening,
		Level:           content.LevelA2,
		Title:           "درس",
		Body:            "نص الدرس",
		Questions:       questions(),
		AudioURL:        up.URL,
		AudioStorageKey: up.Key,
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestMenuOnStart(t *testing.T) {
	h := newHarness(t)
	h.message(t, 1001, "/start")
	msgs := h.msgr.to(adminChat)
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	creates := 0
	for _, row := range msgs[0].kb {
		for _, b := range row {
			if strings.HasPrefix(b.Data, "create_") {
				creates++
			}
		}
	}
	if creates != len(content.ContentTypes)*len(content.Levels) {
		t.Fatalf("expected full type x level grid, got %d buttons", creates)
	}
}

func TestCreateCallbackStartsGeneration(t *testing.T) {
	h := newHarness(t)
	h.callback(t, "create_listening_A2")
	if len(h.runner.requests) != 1 {
		t.Fatalf("runner not started")
	}
	req := h.runner.requests[0]
	if req.ContentType != content.TypeListening || req.Level != content.LevelA2 {
		t.Fatalf("request: %+v", req)
	}
	if len(h.msgr.answers) != 1 || len(h.msgr.to(adminChat)) != 1 {
		t.Fatalf("expected an answer and a confirmation")
	}
}

func TestApprovePublishesOnce(t *testing.T) {
	h := newHarness(t)
	s := h.listeningSession(t)

	h.callback(t, Command{Kind: CmdApprove, ID: s.ID}.Data())
	got, _ := h.sessions.GetByID(context.Background(), s.ID)
	if got.Status != content.StatusPosted {
		t.Fatalf("status after approve: %s", got.Status)
	}
	channel := h.msgr.to("@channel")
	if len(channel) != 6 || channel[0].method != "audio:mp3" {
		t.Fatalf("channel posts: %+v", channel)
	}
	if len(h.msgr.edits) != 1 || h.msgr.edits[0][0][0].Data != "already_approved" {
		t.Fatalf("preview buttons not replaced: %+v", h.msgr.edits)
	}

	h.callback(t, Command{Kind: CmdApprove, ID: s.ID}.Data())
	if n := len(h.msgr.to("@channel")); n != 6 {
		t.Fatalf("duplicate approve published again: %d posts", n)
	}
	if last := h.msgr.answers[len(h.msgr.answers)-1]; last != msgAlreadyApproved {
		t.Fatalf("duplicate approve answer: %q", last)
	}
}

func TestRejectThenApprove(t *testing.T) {
	h := newHarness(t)
	s := h.listeningSession(t)
	h.callback(t, Command{Kind: CmdReject, ID: s.ID}.Data())
	got, _ := h.sessions.GetByID(context.Background(), s.ID)
	if got.Status != content.StatusRejected {
		t.Fatalf("status: %s", got.Status)
	}
	h.callback(t, Command{Kind: CmdApprove, ID: s.ID}.Data())
	if len(h.msgr.to("@channel")) != 0 {
		t.Fatal("rejected content must not be published")
	}
	if last := h.msgr.answers[len(h.msgr.answers)-1]; last != msgAlreadyRejected {
		t.Fatalf("answer: %q", last)
	}
}

func TestApproveMissing(t *testing.T) {
	h := newHarness(t)
	h.callback(t, "approve_404")
	if h.msgr.answers[0] != msgNotFound {
		t.Fatalf("answer: %q", h.msgr.answers[0])
	}
}

func TestCustomApproval(t *testing.T) {
	h := newHarness(t)
	cc, err := h.custom.Create(context.Background(), repository.NewCustom{Title: "نص", Body: "نص المشرف", Questions: questions(), SubmittedBy: "@admin"})
	if err != nil {
		t.Fatal(err)
	}
	h.callback(t, Command{Kind: CmdApproveCustom, ID: cc.ID}.Data())
	got, _ := h.custom.GetByID(context.Background(), cc.ID)
	if got.Status != content.StatusPosted {
		t.Fatalf("status: %s", got.Status)
	}
	if n := len(h.msgr.to("@channel")); n != 6 {
		t.Fatalf("expected text + 5 polls, got %d", n)
	}
}

func TestBrowsePagination(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 12; i++ {
		h.listeningSession(t)
	}
	h.callback(t, "browse_listening_A2_0")
	msgs := h.msgr.to(adminChat)
	kb := msgs[len(msgs)-1].kb
	if len(kb) != PageSize+2 {
		t.Fatalf("expected %d items + nav + back, got %d rows", PageSize, len(kb))
	}
	nav := kb[PageSize]
	if len(nav) != 1 || nav[0].Data != "browse_listening_A2_1" {
		t.Fatalf("nav row: %+v", nav)
	}
	if kb[len(kb)-1][0].Data != "browse_listening" {
		t.Fatalf("back row: %+v", kb[len(kb)-1])
	}

	h.callback(t, "browse_listening_A2_1")
	msgs = h.msgr.to(adminChat)
	kb = msgs[len(msgs)-1].kb
	if len(kb) != 2+1+1 || kb[2][0].Data != "browse_listening_A2_0" {
		t.Fatalf("second page: %+v", kb)
	}
}

func TestViewShowsDecisionForDraft(t *testing.T) {
	h := newHarness(t)
	s := h.listeningSession(t)
	h.callback(t, Command{Kind: CmdView, ID: s.ID}.Data())
	msgs := h.msgr.to(adminChat)
	last := msgs[len(msgs)-1]
	if !strings.Contains(last.text, "/demo/"+s.Slug) {
		t.Fatalf("detail missing demo link: %s", last.text)
	}
	if last.kb[0][0].Data != (Command{Kind: CmdApprove, ID: s.ID}).Data() {
		t.Fatalf("draft detail should offer approval: %+v", last.kb)
	}
}

func TestCustomTextFlow(t *testing.T) {
	h := newHarness(t)
	h.message(t, 1001, "قصير")
	if len(h.runner.custom) != 0 {
		t.Fatal("short text must not start the custom flow")
	}
	long := strings.Repeat("كلمة ", 10)
	h.message(t, 1001, long)
	if len(h.runner.custom) != 1 || !strings.HasSuffix(h.runner.custom[0], "|@admin") {
		t.Fatalf("custom flow: %v", h.runner.custom)
	}
}

func TestEditCommand(t *testing.T) {
	h := newHarness(t)
	s := h.listeningSession(t)
	h.message(t, 1001, "/edit "+s.Slug+" title عنوان جديد")
	got, _ := h.sessions.GetBySlug(context.Background(), s.Slug)
	if got.Title != "عنوان جديد" {
		t.Fatalf("title: %q", got.Title)
	}
	revs, _ := h.sessions.Revisions(context.Background(), s.ID)
	if len(revs) != 1 || revs[0].EditedBy != "@admin" {
		t.Fatalf("revisions: %+v", revs)
	}
}

func TestNonAdminIgnored(t *testing.T) {
	h := newHarness(t)
	h.message(t, 777, "/start")
	if len(h.msgr.sent) != 0 {
		t.Fatal("non-admin chat received a reply")
	}
}

func TestMissingConfiguration(t *testing.T) {
	c := NewController(Deps{Missing: []string{"TELEGRAM_BOT_TOKEN"}})
	err := c.HandleUpdate(context.Background(), Update{Message: &Message{Text: "/start"}})
	var ce *content.ConfigError
	if !errors.As(err, &ce) || ce.Missing[0] != "TELEGRAM_BOT_TOKEN" {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestParseCommand(t *testing.T) {
	good := map[string]Command{
		"approve_12":          {Kind: CmdApprove, ID: 12},
		"reject_3":            {Kind: CmdReject, ID: 3},
		"capprove_4":          {Kind: CmdApproveCustom, ID: 4},
		"creject_5":           {Kind: CmdRejectCustom, ID: 5},
		"create_reading_B1":   {Kind: CmdCreate, ContentType: content.TypeReading, Level: content.LevelB1},
		"browse":              {Kind: CmdBrowse},
		"browse_podcast":      {Kind: CmdBrowseType, ContentType: content.TypePodcast},
		"browse_podcast_A1_2": {Kind: CmdBrowseList, ContentType: content.TypePodcast, Level: content.LevelA1, Page: 2},
		"view_9":              {Kind: CmdView, ID: 9},
		"menu":                {Kind: CmdMenu},
		"already_approved":    {Kind: CmdAlreadyApproved},
		"already_rejected":    {Kind: CmdAlreadyRejected},
	}
	for data, want := range good {
		got, err := ParseCommand(data)
		if err != nil || got != want {
			t.Errorf("ParseCommand(%q) = %+v, %v", data, got, err)
		}
		if got.Data() != data {
			t.Errorf("round trip %q -> %q", data, got.Data())
		}
	}
	for _, bad := range []string{"", "approve_", "approve_x", "approve_0", "create_video_A1", "create_reading", "browse_reading_Z9_0", "browse_reading_A1_-1", "edit"} {
		if _, err := ParseCommand(bad); err == nil {
			t.Errorf("ParseCommand(%q) should fail", bad)
		}
	}
}

func TestPreviewButtonsMatchCommands(t *testing.T) {
	kb := publisher.DecisionKeyboard(publisher.KindCustom, 8)
	for _, b := range kb[0] {
		if _, err := ParseCommand(b.Data); err != nil {
			t.Fatalf("preview button %q not parseable: %v", b.Data, err)
		}
	}
}
