package publisher

import (
	"context"
	"errors"
	"html"
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"arabic_content_publisher/content"
)

type call struct {
	method string
	chat   string
	text   string
	kb     Keyboard
	poll   Poll
}

type fakeMessenger struct {
	calls     []call
	failAudio bool
	failPoll  map[int]bool
	polls     int
}

func (f *fakeMessenger) SendMessage(_ context.Context, chat, text string, kb Keyboard) (int, error) {
	f.calls = append(f.calls, call{method: "message", chat: chat, text: text, kb: kb})
	return len(f.calls), nil
}

func (f *fakeMessenger) SendPhoto(_ context.Context, chat, url, caption string, kb Keyboard) (int, error) {
	f.calls = append(f.calls, call{method: "photo", chat: chat, text: caption, kb: kb})
	return len(f.calls), nil
}

func (f *fakeMessenger) SendAudio(_ context.Context, chat string, _ Audio, caption string, kb Keyboard) (int, error) {
	if f.failAudio {
		return 0, errors.New("file too big")
	}
	f.calls = append(f.calls, call{method: "audio", chat: chat, text: caption, kb: kb})
	return len(f.calls), nil
}

func (f *fakeMessenger) SendPoll(_ context.Context, chat string, p Poll) error {
	i := f.polls
	f.polls++
	if f.failPoll[i] {
		return errors.New("poll rejected")
	}
	f.calls = append(f.calls, call{method: "poll", chat: chat, poll: p})
	return nil
}

func (f *fakeMessenger) AnswerCallback(context.Context, string, string) error { return nil }

func (f *fakeMessenger) EditReplyMarkup(context.Context, string, int, Keyboard) error { return nil }

func (f *fakeMessenger) methods() string {
	var m []string
	for _, c := range f.calls {
		m = append(m, c.method)
	}
	return strings.Join(m, ",")
}

func questions(n int) []content.Question {
	qs := make([]content.Question, n)
	for i := range qs {
		qs[i] = content.Question{Question: "س", Options: []string{"أ", "ب", "ج", "د"}, CorrectAnswer: 2, Explanation: "ش"}
	}
	return qs
}

func newPublisher(t *testing.T, m Messenger) *Publisher {
	t.Helper()
	p, err := New(m, Config{AdminChatID: "1", ChannelID: "@chan"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNewRequiresAdminChat(t *testing.T) {
	_, err := New(&fakeMessenger{}, Config{}, nil)
	var ce *content.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestAdminPreviewWithAudio(t *testing.T) {
	m := &fakeMessenger{}
	p := newPublisher(t, m)
	_, err := p.SendAdminPreview(context.Background(), Preview{
		ID: 7, ContentType: content.TypeListening, Level: content.LevelA2,
		Title: "<عنوان>", Body: "نص", Questions: questions(5), Audio: &Audio{Data: []byte("mp3")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if m.methods() != "audio" {
		t.Fatalf("calls: %s", m.methods())
	}
	c := m.calls[0]
	if c.chat != "1" {
		t.Fatalf("preview went to %s", c.chat)
	}
	if c.kb[0][0].Data != "approve_7" || c.kb[0][1].Data != "reject_7" {
		t.Fatalf("keyboard: %+v", c.kb)
	}
	if !strings.Contains(c.text, "&lt;عنوان&gt;") {
		t.Fatalf("title not escaped: %s", c.text)
	}
}

func TestAdminPreviewFallsBackToText(t *testing.T) {
	m := &fakeMessenger{failAudio: true}
	p := newPublisher(t, m)
	_, err := p.SendAdminPreview(context.Background(), Preview{Kind: KindCustom, ID: 3, Title: "t", Audio: &Audio{URL: "http://x"}})
	if err != nil {
		t.Fatal(err)
	}
	if m.methods() != "message" || m.calls[0].kb[0][0].Data != "capprove_3" {
		t.Fatalf("unexpected fallback: %s %+v", m.methods(), m.calls)
	}
}

func TestPublishByContentType(t *testing.T) {
	cases := []struct {
		name  string
		post  Post
		calls string
	}{
		{"listening", Post{ContentType: content.TypeListening, Audio: &Audio{Data: []byte("a")}, Questions: questions(2)}, "audio,poll,poll"},
		{"reading", Post{ContentType: content.TypeReading, Body: "نص", Questions: questions(1)}, "message,poll"},
		{"podcast", Post{ContentType: content.TypePodcast, ImageURL: "http://img", Audio: &Audio{Data: []byte("a")}, Questions: questions(1)}, "photo,audio,poll"},
		{"podcast without image", Post{ContentType: content.TypePodcast, Audio: &Audio{Data: []byte("a")}}, "message,audio"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &fakeMessenger{}
			p := newPublisher(t, m)
			if _, err := p.PublishToChannel(context.Background(), tc.post); err != nil {
				t.Fatal(err)
			}
			if m.methods() != tc.calls {
				t.Fatalf("calls %q want %q", m.methods(), tc.calls)
			}
			for _, c := range m.calls {
				if c.chat != "@chan" {
					t.Fatalf("sent to %s", c.chat)
				}
			}
		})
	}
}

func TestPollFailureIsSkipped(t *testing.T) {
	m := &fakeMessenger{failPoll: map[int]bool{1: true}}
	p := newPublisher(t, m)
	rep, err := p.PublishToChannel(context.Background(), Post{ContentType: content.TypeReading, Body: "x", Questions: questions(3)})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Polls != 2 || rep.PollsFailed != 1 {
		t.Fatalf("report: %+v", rep)
	}
}

func TestPublishWithoutChannel(t *testing.T) {
	p, _ := New(&fakeMessenger{}, Config{AdminChatID: "1"}, nil)
	if _, err := p.PublishToChannel(context.Background(), Post{ContentType: content.TypeReading}); err == nil {
		t.Fatal("expected config error")
	}
}

func TestQuizPollLimits(t *testing.T) {
	long := strings.Repeat("ع", 150)
	q := content.Question{Question: "س", Options: []string{long, "b", "c", "d"}, CorrectAnswer: 3, Explanation: strings.Repeat("ش", 250)}
	p := QuizPoll(0, q)
	if n := utf8.RuneCountInString(p.Options[0]); n != MaxPollOption {
		t.Fatalf("option length %d", n)
	}
	if n := utf8.RuneCountInString(p.Explanation); n != MaxPollExplanation {
		t.Fatalf("explanation length %d", n)
	}
	if p.CorrectOption != 3 || p.Question != "1. س" {
		t.Fatalf("poll: %+v", p)
	}
}

func TestSplitEscapedPrefersLineBreaks(t *testing.T) {
	text := strings.Repeat("a", 8) + "\n" + strings.Repeat("b", 8)
	parts := SplitEscaped(text, 10, 10)
	if len(parts) != 2 || parts[0] != strings.Repeat("a", 8)+"\n" {
		t.Fatalf("parts: %q", parts)
	}
	if got := SplitEscaped("short", 10, 10); len(got) != 1 {
		t.Fatalf("short text split: %q", got)
	}
}

var entity = regexp.MustCompile(`&(amp|lt|gt|#34|#39);`)

// assertWholeEntities fails if s contains a cut entity or exceeds n runes.
func assertWholeEntities(t *testing.T, s string, n int) {
	t.Helper()
	if strings.Contains(entity.ReplaceAllString(s, ""), "&") {
		t.Fatalf("cut entity in %q", s[max(0, len(s)-40):])
	}
	if got := utf8.RuneCountInString(s); got > n {
		t.Fatalf("%d runes, limit %d", got, n)
	}
}

func TestReadingChunksKeepEntitiesWhole(t *testing.T) {
	body := strings.Repeat("ا & ب <ج> ", 900)
	post := Post{ContentType: content.TypeReading, Level: content.LevelB1, Title: "Tom & Jerry", Body: body}
	chunks := FormatReading(post)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	var joined strings.Builder
	for _, c := range chunks {
		assertWholeEntities(t, c, MaxMessage)
		joined.WriteString(c)
	}
	if !strings.HasSuffix(html.UnescapeString(joined.String()), body) {
		t.Fatal("chunks do not reassemble into the body")
	}

	m := &fakeMessenger{}
	if _, err := newPublisher(t, m).PublishToChannel(context.Background(), post); err != nil {
		t.Fatal(err)
	}
	if len(m.calls) != len(chunks) {
		t.Fatalf("sent %d messages for %d chunks", len(m.calls), len(chunks))
	}
}

func TestCaptionsFitWithEscapedTitles(t *testing.T) {
	title := strings.Repeat("<&>", 500)
	post := Post{ContentType: content.TypeListening, Title: title, Audio: &Audio{Data: []byte("a")}}
	m := &fakeMessenger{}
	if _, err := newPublisher(t, m).PublishToChannel(context.Background(), post); err != nil {
		t.Fatal(err)
	}
	assertWholeEntities(t, m.calls[0].text, MaxCaption)
	if !strings.Contains(m.calls[0].text, "</b>") {
		t.Fatalf("closing tag lost: %q", m.calls[0].text)
	}

	m = &fakeMessenger{}
	_, err := newPublisher(t, m).SendAdminPreview(context.Background(), Preview{
		ID: 1, Title: title, Body: strings.Repeat("&", 2000), Audio: &Audio{Data: []byte("a")},
	})
	if err != nil {
		t.Fatal(err)
	}
	assertWholeEntities(t, m.calls[0].text, MaxCaption)
}

func TestEscapeTruncate(t *testing.T) {
	if got := EscapeTruncate("a&b", 10); got != "a&amp;b" {
		t.Fatalf("short: %q", got)
	}
	if got := EscapeTruncate("a&b", 6); got != "a…" {
		t.Fatalf("cut before entity: %q", got)
	}
}
