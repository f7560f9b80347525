package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"arabic_content_publisher/content"
	"arabic_content_publisher/generator"
	"arabic_content_publisher/logger"
	"arabic_content_publisher/publisher"
	"arabic_content_publisher/repository"
)

const (
	PageSize          = 10
	minCustomTextLen  = 30
	maxButtonTitleLen = 40
)

// SessionStore is the part of repository.Sessions the controller uses.
type SessionStore interface {
	GetByID(ctx context.Context, id uint) (*content.Session, error)
	ListByTypeAndLevel(ctx context.Context, ct content.ContentType, lvl content.Level, limit, offset int) ([]content.Session, error)
	CountByTypeAndLevel(ctx context.Context, ct content.ContentType, lvl content.Level) (int64, error)
	UpdateStatus(ctx context.Context, id uint, next content.Status) (*content.Session, error)
	Update(ctx context.Context, slug string, upd repository.SessionUpdate, editor string) (*content.Session, error)
}

// CustomStore is the part of repository.CustomContents the controller uses.
type CustomStore interface {
	GetByID(ctx context.Context, id uint) (*content.CustomContent, error)
	UpdateStatus(ctx context.Context, id uint, next content.Status) (*content.CustomContent, error)
}

// AudioSource loads stored audio for publication.
type AudioSource interface {
	Download(ctx context.Context, ref content.StorageRef) ([]byte, error)
}

// Runner starts background generation. Implemented by pipeline.Pipeline.
type Runner interface {
	Start(req generator.Request)
	StartCustom(text, submittedBy string)
}

// Deps wires the controller. Publisher is nil when Telegram is not configured.
type Deps struct {
	Sessions      SessionStore
	Custom        CustomStore
	Audio         AudioSource
	Runner        Runner
	Publisher     *publisher.Publisher
	PublicBaseURL string
	Missing       []string
	Log           *logger.Logger
}

// Controller turns webhook updates into admin actions.
type Controller struct {
	Deps
	log *logger.Logger
}

func NewController(d Deps) *Controller {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Controller{Deps: d, log: log.With("component", "BotController")}
}

// HandleUpdate processes one update. Failures to talk to Telegram are logged; errors
// are returned only when the update could not be handled at all.
func (c *Controller) HandleUpdate(ctx context.Context, u Update) error {
	if c.Publisher == nil {
		missing := c.Missing
		if len(missing) == 0 {
			missing = []string{"TELEGRAM_BOT_TOKEN", "TELEGRAM_ADMIN_CHAT_ID"}
		}
		c.log.Warn("update ignored, configuration missing", "missing", missing)
		return &content.ConfigError{Missing: missing}
	}
	switch {
	case u.CallbackQuery != nil:
		return c.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil:
		return c.handleMessage(ctx, u.Message)
	}
	return nil
}

func (c *Controller) isAdmin(chat Chat) bool {
	return chat.String() == c.Publisher.AdminChatID()
}

func (c *Controller) send(ctx context.Context, chat, text string, kb publisher.Keyboard) {
	if _, err := c.Publisher.Messenger().SendMessage(ctx, chat, text, kb); err != nil {
		c.log.Warn("send message failed", "chat", chat, "error", err)
	}
}

func (c *Controller) answer(ctx context.Context, id, text string) {
	if err := c.Publisher.Messenger().AnswerCallback(ctx, id, text); err != nil {
		c.log.Warn("answer callback failed", "error", err)
	}
}

func (c *Controller) handleMessage(ctx context.Context, m *Message) error {
	text := strings.TrimSpace(m.Text)
	if text == "" {
		return nil
	}
	if !c.isAdmin(m.Chat) {
		c.log.Info("message from non-admin chat ignored", "chat", m.Chat.ID)
		return nil
	}
	chat := m.Chat.String()

	if strings.HasPrefix(text, "/") {
		cmd, args, _ := strings.Cut(text, " ")
		cmd, _, _ = strings.Cut(cmd, "@")
		switch cmd {
		case "/start", "/menu":
			c.send(ctx, chat, msgWelcome, menuKeyboard())
		case "/edit":
			c.handleEdit(ctx, chat, args, m.From)
		default:
			c.send(ctx, chat, msgUnknownCommand, nil)
		}
		return nil
	}

	if utf8.RuneCountInString(text) < minCustomTextLen {
		c.send(ctx, chat, msgCustomTooShort, nil)
		return nil
	}
	c.Runner.StartCustom(text, m.From.Editor())
	c.send(ctx, chat, msgCustomAccepted, nil)
	return nil
}

// handleEdit applies "/edit <slug> <field> <value>".
func (c *Controller) handleEdit(ctx context.Context, chat, args string, from *User) {
	fields := strings.SplitN(strings.TrimSpace(args), " ", 3)
	if len(fields) < 3 || strings.TrimSpace(fields[2]) == "" {
		c.send(ctx, chat, msgEditUsage, nil)
		return
	}
	slug, field, value := fields[0], strings.ToLower(fields[1]), strings.TrimSpace(fields[2])
	var upd repository.SessionUpdate
	switch field {
	case "title":
		upd.Title = &value
	case "body":
		upd.Body = &value
	case "topic":
		upd.Topic = &value
	case "image", "imageurl":
		upd.ImageURL = &value
	default:
		c.send(ctx, chat, msgEditUsage, nil)
		return
	}
	s, err := c.Sessions.Update(ctx, slug, upd, from.Editor())
	switch {
	case errors.Is(err, content.ErrNotFound):
		c.send(ctx, chat, msgNotFound, nil)
	case err != nil:
		c.log.Error("edit failed", "slug", slug, "error", err)
		c.send(ctx, chat, msgError(err), nil)
	default:
		c.send(ctx, chat, fmt.Sprintf(msgEdited, field, s.Slug), nil)
	}
}

func (c *Controller) handleCallback(ctx context.Context, q *CallbackQuery) error {
	if q.Message == nil || !c.isAdmin(q.Message.Chat) {
		c.answer(ctx, q.ID, "")
		return nil
	}
	cmd, err := ParseCommand(q.Data)
	if err != nil {
		c.log.Warn("unrecognized callback", "data", q.Data, "error", err)
		c.answer(ctx, q.ID, msgUnknownAction)
		return nil
	}
	chat := q.Message.Chat.String()

	switch cmd.Kind {
	case CmdMenu:
		c.answer(ctx, q.ID, "")
		c.send(ctx, chat, msgWelcome, menuKeyboard())
	case CmdApprove:
		return c.approveSession(ctx, q, cmd.ID)
	case CmdReject:
		return c.rejectSession(ctx, q, cmd.ID)
	case CmdApproveCustom:
		return c.approveCustom(ctx, q, cmd.ID)
	case CmdRejectCustom:
		return c.rejectCustom(ctx, q, cmd.ID)
	case CmdCreate:
		c.answer(ctx, q.ID, fmt.Sprintf(msgCreating, cmd.ContentType.ArabicName(), cmd.Level))
		c.Runner.Start(generator.Request{ContentType: cmd.ContentType, Level: cmd.Level})
		c.send(ctx, chat, fmt.Sprintf(msgCreateStarted, cmd.ContentType.ArabicName(), cmd.Level), nil)
	case CmdBrowse:
		c.answer(ctx, q.ID, "")
		c.send(ctx, chat, msgBrowseTypes, browseTypesKeyboard())
	case CmdBrowseType:
		c.answer(ctx, q.ID, "")
		c.send(ctx, chat, fmt.Sprintf(msgBrowseLevels, cmd.ContentType.ArabicName()), browseLevelsKeyboard(cmd.ContentType))
	case CmdBrowseList:
		c.answer(ctx, q.ID, "")
		return c.browseList(ctx, chat, cmd)
	case CmdView:
		c.answer(ctx, q.ID, "")
		return c.view(ctx, chat, cmd.ID)
	case CmdAlreadyApproved:
		c.answer(ctx, q.ID, msgAlreadyApproved)
	case CmdAlreadyRejected:
		c.answer(ctx, q.ID, msgAlreadyRejected)
	}
	return nil
}

func (c *Controller) markDecided(ctx context.Context, q *CallbackQuery, approved bool) {
	kb := publisher.Keyboard{publisher.Row(publisher.Button{Text: msgRejectedBadge, Data: Command{Kind: CmdAlreadyRejected}.Data()})}
	if approved {
		kb = publisher.Keyboard{publisher.Row(publisher.Button{Text: msgApprovedBadge, Data: Command{Kind: CmdAlreadyApproved}.Data()})}
	}
	if err := c.Publisher.Messenger().EditReplyMarkup(ctx, q.Message.Chat.String(), q.Message.MessageID, kb); err != nil {
		c.log.Warn("edit reply markup failed", "error", err)
	}
}

// alreadyHandled answers a decision callback for content that left draft.
func (c *Controller) alreadyHandled(ctx context.Context, q *CallbackQuery, st content.Status) error {
	approved := st == content.StatusApproved || st == content.StatusPosted
	if approved {
		c.answer(ctx, q.ID, msgAlreadyApproved)
	} else {
		c.answer(ctx, q.ID, msgAlreadyRejected)
	}
	c.markDecided(ctx, q, approved)
	return nil
}

func isLostRace(err error) bool {
	return errors.Is(err, content.ErrStatusConflict) || errors.Is(err, content.ErrInvalidTransition)
}

// sessionStatus is the current status after a lost race; on a conflict the row
// read before the update is stale.
func (c *Controller) sessionStatus(ctx context.Context, s *content.Session, err error) content.Status {
	if errors.Is(err, content.ErrStatusConflict) {
		if fresh, ferr := c.Sessions.GetByID(ctx, s.ID); ferr == nil {
			return fresh.Status
		}
	}
	return s.Status
}

func (c *Controller) customStatus(ctx context.Context, cc *content.CustomContent, err error) content.Status {
	if errors.Is(err, content.ErrStatusConflict) {
		if fresh, ferr := c.Custom.GetByID(ctx, cc.ID); ferr == nil {
			return fresh.Status
		}
	}
	return cc.Status
}

func (c *Controller) approveSession(ctx context.Context, q *CallbackQuery, id uint) error {
	s, err := c.Sessions.UpdateStatus(ctx, id, content.StatusApproved)
	switch {
	case errors.Is(err, content.ErrNotFound):
		c.answer(ctx, q.ID, msgNotFound)
		return nil
	case isLostRace(err):
		return c.alreadyHandled(ctx, q, c.sessionStatus(ctx, s, err))
	case err != nil:
		c.answer(ctx, q.ID, msgError(err))
		return fmt.Errorf("approve session %d: %w", id, err)
	}
	c.answer(ctx, q.ID, msgApproved)
	c.markDecided(ctx, q, true)

	ctx = context.WithoutCancel(ctx)
	post := publisher.Post{
		ContentType: s.ContentType,
		Level:       s.Level,
		Title:       s.Title,
		Body:        s.Body,
		ImageURL:    s.ImageURL,
		Questions:   s.Questions,
	}
	if ref, ok := s.AudioRef(); ok {
		post.Audio = c.loadAudio(ctx, ref, s.AudioURL, s.Title)
	}
	if _, err := c.Publisher.PublishToChannel(ctx, post); err != nil {
		c.log.Error("publish failed", "id", id, "error", err)
		c.send(ctx, q.Message.Chat.String(), msgPublishFailed(err), nil)
		return nil
	}
	if _, err := c.Sessions.UpdateStatus(ctx, id, content.StatusPosted); err != nil {
		c.log.Error("mark posted failed", "id", id, "error", err)
	}
	c.send(ctx, q.Message.Chat.String(), msgPublished, nil)
	return nil
}

func (c *Controller) rejectSession(ctx context.Context, q *CallbackQuery, id uint) error {
	s, err := c.Sessions.UpdateStatus(ctx, id, content.StatusRejected)
	switch {
	case errors.Is(err, content.ErrNotFound):
		c.answer(ctx, q.ID, msgNotFound)
		return nil
	case isLostRace(err):
		return c.alreadyHandled(ctx, q, c.sessionStatus(ctx, s, err))
	case err != nil:
		c.answer(ctx, q.ID, msgError(err))
		return fmt.Errorf("reject session %d: %w", id, err)
	}
	c.answer(ctx, q.ID, msgRejected)
	c.markDecided(ctx, q, false)
	return nil
}

func (c *Controller) approveCustom(ctx context.Context, q *CallbackQuery, id uint) error {
	cc, err := c.Custom.UpdateStatus(ctx, id, content.StatusApproved)
	switch {
	case errors.Is(err, content.ErrNotFound):
		c.answer(ctx, q.ID, msgNotFound)
		return nil
	case isLostRace(err):
		return c.alreadyHandled(ctx, q, c.customStatus(ctx, cc, err))
	case err != nil:
		c.answer(ctx, q.ID, msgError(err))
		return fmt.Errorf("approve custom %d: %w", id, err)
	}
	c.answer(ctx, q.ID, msgApproved)
	c.markDecided(ctx, q, true)

	ctx = context.WithoutCancel(ctx)
	post := publisher.Post{
		ContentType: content.TypeReading,
		Level:       cc.Level,
		Title:       cc.Title,
		Body:        cc.Body,
		Questions:   cc.Questions,
	}
	raw := cc.AudioStorageKey
	if raw == "" {
		raw = cc.AudioURL
	}
	if raw != "" {
		post.Audio = c.loadAudio(ctx, content.ParseStorageRef(raw), cc.AudioURL, cc.Title)
	}
	if _, err := c.Publisher.PublishToChannel(ctx, post); err != nil {
		c.log.Error("publish custom failed", "id", id, "error", err)
		c.send(ctx, q.Message.Chat.String(), msgPublishFailed(err), nil)
		return nil
	}
	if _, err := c.Custom.UpdateStatus(ctx, id, content.StatusPosted); err != nil {
		c.log.Error("mark custom posted failed", "id", id, "error", err)
	}
	c.send(ctx, q.Message.Chat.String(), msgPublished, nil)
	return nil
}

func (c *Controller) rejectCustom(ctx context.Context, q *CallbackQuery, id uint) error {
	cc, err := c.Custom.UpdateStatus(ctx, id, content.StatusRejected)
	switch {
	case errors.Is(err, content.ErrNotFound):
		c.answer(ctx, q.ID, msgNotFound)
		return nil
	case isLostRace(err):
		return c.alreadyHandled(ctx, q, c.customStatus(ctx, cc, err))
	case err != nil:
		c.answer(ctx, q.ID, msgError(err))
		return fmt.Errorf("reject custom %d: %w", id, err)
	}
	c.answer(ctx, q.ID, msgRejected)
	c.markDecided(ctx, q, false)
	return nil
}

// loadAudio prefers uploading the stored bytes; Telegram fetches by URL otherwise.
func (c *Controller) loadAudio(ctx context.Context, ref content.StorageRef, url, title string) *publisher.Audio {
	a := &publisher.Audio{URL: url, Title: title, Filename: "audio.mp3"}
	if ref.Kind == content.RefLegacyURL && a.URL == "" {
		a.URL = ref.Value
	}
	if c.Audio != nil {
		data, err := c.Audio.Download(ctx, ref)
		if err == nil {
			a.Data = data
			return a
		}
		c.log.Warn("audio download failed, sending by url", "ref", ref.String(), "error", err)
	}
	if a.URL == "" {
		return nil
	}
	return a
}

func (c *Controller) browseList(ctx context.Context, chat string, cmd Command) error {
	total, err := c.Sessions.CountByTypeAndLevel(ctx, cmd.ContentType, cmd.Level)
	if err != nil {
		return fmt.Errorf("count sessions: %w", err)
	}
	items, err := c.Sessions.ListByTypeAndLevel(ctx, cmd.ContentType, cmd.Level, PageSize, cmd.Page*PageSize)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	back := publisher.Row(publisher.Button{Text: msgBack, Data: Command{Kind: CmdBrowseType, ContentType: cmd.ContentType}.Data()})
	if len(items) == 0 {
		c.send(ctx, chat, msgEmptyList, publisher.Keyboard{back})
		return nil
	}
	c.send(ctx, chat, fmt.Sprintf(msgListHeader, cmd.ContentType.ArabicName(), cmd.Level, cmd.Page+1, pages(total)),
		listKeyboard(items, cmd, total, back))
	return nil
}

func (c *Controller) view(ctx context.Context, chat string, id uint) error {
	s, err := c.Sessions.GetByID(ctx, id)
	if errors.Is(err, content.ErrNotFound) {
		c.send(ctx, chat, msgNotFound, nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("view session %d: %w", id, err)
	}
	var kb publisher.Keyboard
	if s.Status == content.StatusDraft {
		kb = publisher.DecisionKeyboard(publisher.KindSession, s.ID)
	}
	kb = append(kb, publisher.Row(publisher.Button{
		Text: msgBack,
		Data: Command{Kind: CmdBrowseList, ContentType: s.ContentType, Level: s.Level}.Data(),
	}))
	c.send(ctx, chat, formatDetail(s, c.PublicBaseURL), kb)
	return nil
}

func pages(total int64) int64 {
	if total == 0 {
		return 1
	}
	return (total + PageSize - 1) / PageSize
}
