package publisher

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"arabic_content_publisher/content"
	"arabic_content_publisher/logger"
)

// Telegram limits.
const (
	MaxPollOption      = 100
	MaxPollExplanation = 200
	MaxPollQuestion    = 300
	MaxCaption         = 1024
	MaxMessage         = 4096
	previewExcerpt     = 300
)

// Config holds the chat destinations.
type Config struct {
	AdminChatID     string
	ChannelID       string
	DefaultImageURL string
}

// PreviewKind distinguishes generated sessions from admin-submitted content.
type PreviewKind int

const (
	KindSession PreviewKind = iota
	KindCustom
)

// Preview is what the admin sees before deciding.
type Preview struct {
	Kind        PreviewKind
	ID          uint
	ContentType content.ContentType
	Level       content.Level
	Topic       string
	Title       string
	Body        string
	Questions   []content.Question
	Audio       *Audio
	DemoURL     string
}

// Post is a channel publication.
type Post struct {
	ContentType content.ContentType
	Level       content.Level
	Title       string
	Body        string
	ImageURL    string
	Audio       *Audio
	Questions   []content.Question
}

// Report summarizes a channel publication. Poll failures are tolerated.
type Report struct {
	Messages    int
	Polls       int
	PollsFailed int
}

// Publisher formats content and delivers it through a Messenger.
type Publisher struct {
	m   Messenger
	cfg Config
	log *logger.Logger
}

func New(m Messenger, cfg Config, log *logger.Logger) (*Publisher, error) {
	if m == nil {
		return nil, errors.New("publisher requires a messenger")
	}
	if cfg.AdminChatID == "" {
		return nil, &content.ConfigError{Missing: []string{"TELEGRAM_ADMIN_CHAT_ID"}}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{m: m, cfg: cfg, log: log.With("service", "Publisher")}, nil
}

func (p *Publisher) Messenger() Messenger { return p.m }

func (p *Publisher) AdminChatID() string { return p.cfg.AdminChatID }

// DecisionKeyboard is the approve/reject pair attached to a preview.
func DecisionKeyboard(kind PreviewKind, id uint) Keyboard {
	approve, reject := "approve_", "reject_"
	if kind == KindCustom {
		approve, reject = "capprove_", "creject_"
	}
	return Keyboard{Row(
		Button{Text: "✅ نَشْرٌ", Data: fmt.Sprintf("%s%d", approve, id)},
		Button{Text: "❌ رَفْضٌ", Data: fmt.Sprintf("%s%d", reject, id)},
	)}
}

// SendAdminPreview sends the audio with a caption and decision buttons, falling back
// to a plain text message when there is no audio or the upload is refused.
func (p *Publisher) SendAdminPreview(ctx context.Context, pv Preview) (int, error) {
	kb := DecisionKeyboard(pv.Kind, pv.ID)
	if pv.Audio != nil {
		id, err := p.m.SendAudio(ctx, p.cfg.AdminChatID, *pv.Audio, FormatPreview(pv, MaxCaption), kb)
		if err == nil {
			p.log.Info("admin preview sent", "id", pv.ID, "with_audio", true)
			return id, nil
		}
		p.log.Warn("audio preview failed, falling back to text", "id", pv.ID, "error", err)
	}
	id, err := p.m.SendMessage(ctx, p.cfg.AdminChatID, FormatPreview(pv, MaxMessage), kb)
	if err != nil {
		return 0, fmt.Errorf("send admin preview: %w", err)
	}
	p.log.Info("admin preview sent", "id", pv.ID, "with_audio", false)
	return id, nil
}

// NotifyAdmin sends a plain message to the admin chat.
func (p *Publisher) NotifyAdmin(ctx context.Context, text string) error {
	_, err := p.m.SendMessage(ctx, p.cfg.AdminChatID, text, nil)
	return err
}

// PublishToChannel posts according to content type:
// reading is text, listening is audio, podcast is image with caption then audio.
// Quiz polls follow in every case.
func (p *Publisher) PublishToChannel(ctx context.Context, post Post) (Report, error) {
	if p.cfg.ChannelID == "" {
		return Report{}, &content.ConfigError{Missing: []string{"TELEGRAM_CHANNEL_ID"}}
	}
	ch := p.cfg.ChannelID
	var rep Report

	switch post.ContentType {
	case content.TypePodcast:
		image := post.ImageURL
		if image == "" {
			image = p.cfg.DefaultImageURL
		}
		sent := false
		if image != "" {
			if _, err := p.m.SendPhoto(ctx, ch, image, FormatChannelHeader(post, MaxCaption), nil); err != nil {
				p.log.Warn("podcast image failed, sending text header", "error", err)
			} else {
				sent = true
			}
		}
		if !sent {
			if _, err := p.m.SendMessage(ctx, ch, FormatChannelHeader(post, MaxMessage), nil); err != nil {
				return rep, fmt.Errorf("send podcast header: %w", err)
			}
		}
		rep.Messages++
		if err := p.sendAudio(ctx, ch, post, audioCaption(post)); err != nil {
			return rep, err
		}
		rep.Messages++

	case content.TypeListening:
		if post.Audio == nil {
			p.log.Warn("listening content without audio, posting text", "title", post.Title)
			if _, err := p.m.SendMessage(ctx, ch, FormatChannelHeader(post, MaxMessage), nil); err != nil {
				return rep, fmt.Errorf("send listening text: %w", err)
			}
		} else if err := p.sendAudio(ctx, ch, post, FormatChannelHeader(post, MaxCaption)); err != nil {
			return rep, err
		}
		rep.Messages++

	default:
		for _, chunk := range FormatReading(post) {
			if _, err := p.m.SendMessage(ctx, ch, chunk, nil); err != nil {
				return rep, fmt.Errorf("send reading text: %w", err)
			}
			rep.Messages++
		}
		if post.Audio != nil {
			if err := p.sendAudio(ctx, ch, post, audioCaption(post)); err != nil {
				return rep, err
			}
			rep.Messages++
		}
	}

	for i, q := range post.Questions {
		if err := p.m.SendPoll(ctx, ch, QuizPoll(i, q)); err != nil {
			p.log.Warn("poll failed, continuing", "index", i, "error", err)
			rep.PollsFailed++
			continue
		}
		rep.Polls++
	}
	p.log.Info("published to channel", "type", post.ContentType, "messages", rep.Messages, "polls", rep.Polls, "polls_failed", rep.PollsFailed)
	return rep, nil
}

// sendAudio expects caption to be HTML already within MaxCaption.
func (p *Publisher) sendAudio(ctx context.Context, ch string, post Post, caption string) error {
	if post.Audio == nil {
		return fmt.Errorf("%s content has no audio", post.ContentType)
	}
	a := *post.Audio
	if a.Title == "" {
		a.Title = post.Title
	}
	if _, err := p.m.SendAudio(ctx, ch, a, caption, nil); err != nil {
		return fmt.Errorf("send audio: %w", err)
	}
	return nil
}

// QuizPoll converts a question into a Telegram quiz within the API limits.
func QuizPoll(index int, q content.Question) Poll {
	opts := make([]string, len(q.Options))
	for i, o := range q.Options {
		opts[i] = Truncate(o, MaxPollOption)
	}
	return Poll{
		Question:      Truncate(fmt.Sprintf("%d. %s", index+1, q.Question), MaxPollQuestion),
		Options:       opts,
		CorrectOption: q.CorrectAnswer,
		Explanation:   Truncate(q.Explanation, MaxPollExplanation),
	}
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

// escapedLen is the rune count html.EscapeString produces for r.
func escapedLen(r rune) int {
	switch r {
	case '&', '\'', '"':
		return 5
	case '<', '>':
		return 4
	}
	return 1
}

// fitEscaped returns how many leading runes of r fit in n runes once escaped.
func fitEscaped(r []rune, n int) int {
	size := 0
	for i, c := range r {
		size += escapedLen(c)
		if size > n {
			return i
		}
	}
	return len(r)
}

// EscapeTruncate HTML-escapes raw, cutting it first so the escaped result is at
// most n runes. A cut never lands inside an entity.
func EscapeTruncate(raw string, n int) string {
	r := []rune(raw)
	if fitEscaped(r, n) == len(r) {
		return html.EscapeString(raw)
	}
	if n <= 1 {
		return ""
	}
	return html.EscapeString(string(r[:fitEscaped(r, n-1)])) + "…"
}

// SplitEscaped splits raw text into HTML-escaped chunks of at most n runes each,
// preferring line breaks. The first chunk gets first runes instead of n.
func SplitEscaped(raw string, first, n int) []string {
	var out []string
	r := []rune(raw)
	limit := first
	for len(r) > 0 {
		end := fitEscaped(r, limit)
		if end < len(r) {
			for i := end; i > end/2; i-- {
				if r[i-1] == '\n' {
					end = i
					break
				}
			}
		}
		if end == 0 && limit >= n {
			end = 1
		}
		out = append(out, html.EscapeString(string(r[:end])))
		r = r[end:]
		limit = n
	}
	return out
}

func levelLine(ct content.ContentType, lvl content.Level) string {
	return fmt.Sprintf("🏷 %s | 📊 %s", ct.ArabicName(), lvl)
}

const (
	maxTitle = 200
	maxTopic = 100
)

// FormatPreview renders the admin preview in Telegram HTML within limit runes.
func FormatPreview(pv Preview, limit int) string {
	var head strings.Builder
	if pv.Kind == KindCustom {
		head.WriteString("📝 <b>نَصٌّ مُخَصَّصٌ لِلْمُرَاجَعَةِ</b>\n\n")
	} else {
		head.WriteString("📋 <b>مُحْتَوًى جَدِيدٌ لِلْمُرَاجَعَةِ</b>\n\n")
		head.WriteString(levelLine(pv.ContentType, pv.Level) + "\n")
	}
	if pv.Topic != "" {
		head.WriteString("🎯 " + EscapeTruncate(pv.Topic, maxTopic) + "\n")
	}
	head.WriteString("\n<b>" + EscapeTruncate(pv.Title, maxTitle) + "</b>\n\n")

	var tail strings.Builder
	fmt.Fprintf(&tail, "\n\n❓ %d أَسْئِلَةٍ", len(pv.Questions))
	if pv.Audio != nil {
		tail.WriteString(" | 🎧 ✅")
	}
	if pv.DemoURL != "" {
		tail.WriteString("\n🔗 " + html.EscapeString(pv.DemoURL))
	}

	budget := min(previewExcerpt, limit-utf8.RuneCountInString(head.String())-utf8.RuneCountInString(tail.String()))
	return head.String() + EscapeTruncate(pv.Body, max(budget, 0)) + tail.String()
}

// FormatChannelHeader is the title block used for media captions, within limit runes.
func FormatChannelHeader(post Post, limit int) string {
	line := levelLine(post.ContentType, post.Level)
	budget := limit - utf8.RuneCountInString(line) - len("<b></b>\n")
	return "<b>" + EscapeTruncate(post.Title, min(budget, maxTitle)) + "</b>\n" + line
}

// FormatReading is the text post for reading content, split into messages.
func FormatReading(post Post) []string {
	head := FormatChannelHeader(post, MaxMessage) + "\n\n"
	chunks := SplitEscaped(post.Body, MaxMessage-utf8.RuneCountInString(head), MaxMessage)
	if len(chunks) == 0 {
		return []string{strings.TrimSuffix(head, "\n\n")}
	}
	chunks[0] = head + chunks[0]
	return chunks
}

func audioCaption(post Post) string {
	return "🎧 " + EscapeTruncate(post.Title, min(maxTitle, MaxCaption-2))
}
