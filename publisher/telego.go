package publisher

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// TelegoMessenger sends through the Telegram Bot API using telego.
type TelegoMessenger struct {
	bot *telego.Bot
}

func NewTelegoMessenger(token string, debug bool) (*TelegoMessenger, error) {
	bot, err := telego.NewBot(token, telego.WithDefaultLogger(debug, true))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegoMessenger{bot: bot}, nil
}

func chatID(chat string) telego.ChatID {
	if id, err := strconv.ParseInt(strings.TrimSpace(chat), 10, 64); err == nil {
		return tu.ID(id)
	}
	return tu.Username(chat)
}

func markup(kb Keyboard) *telego.InlineKeyboardMarkup {
	rows := make([][]telego.InlineKeyboardButton, 0, len(kb))
	for _, r := range kb {
		row := make([]telego.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			row = append(row, tu.InlineKeyboardButton(b.Text).WithCallbackData(b.Data))
		}
		rows = append(rows, tu.InlineKeyboardRow(row...))
	}
	return tu.InlineKeyboard(rows...)
}

func (m *TelegoMessenger) SendMessage(ctx context.Context, chat, text string, kb Keyboard) (int, error) {
	params := tu.Message(chatID(chat), text).WithParseMode(telego.ModeHTML)
	if len(kb) > 0 {
		params = params.WithReplyMarkup(markup(kb))
	}
	msg, err := m.bot.SendMessage(ctx, params)
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

func (m *TelegoMessenger) SendPhoto(ctx context.Context, chat, photoURL, caption string, kb Keyboard) (int, error) {
	params := tu.Photo(chatID(chat), tu.FileFromURL(photoURL)).
		WithCaption(caption).
		WithParseMode(telego.ModeHTML)
	if len(kb) > 0 {
		params = params.WithReplyMarkup(markup(kb))
	}
	msg, err := m.bot.SendPhoto(ctx, params)
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

func (m *TelegoMessenger) SendAudio(ctx context.Context, chat string, a Audio, caption string, kb Keyboard) (int, error) {
	var file telego.InputFile
	switch {
	case len(a.Data) > 0:
		name := a.Filename
		if name == "" {
			name = "audio.mp3"
		}
		file = tu.File(tu.NameReader(bytes.NewReader(a.Data), name))
	case a.URL != "":
		file = tu.FileFromURL(a.URL)
	default:
		return 0, fmt.Errorf("audio has neither data nor url")
	}
	params := tu.Audio(chatID(chat), file).
		WithCaption(caption).
		WithParseMode(telego.ModeHTML)
	if a.Title != "" {
		params = params.WithTitle(a.Title)
	}
	if len(kb) > 0 {
		params = params.WithReplyMarkup(markup(kb))
	}
	msg, err := m.bot.SendAudio(ctx, params)
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

func (m *TelegoMessenger) SendPoll(ctx context.Context, chat string, p Poll) error {
	options := make([]telego.InputPollOption, 0, len(p.Options))
	for _, o := range p.Options {
		options = append(options, tu.PollOption(o))
	}
	params := tu.Poll(chatID(chat), p.Question, options...).
		WithType(telego.PollTypeQuiz).
		WithCorrectOptionID(p.CorrectOption)
	if p.Explanation != "" {
		params = params.WithExplanation(p.Explanation)
	}
	_, err := m.bot.SendPoll(ctx, params)
	return err
}

func (m *TelegoMessenger) AnswerCallback(ctx context.Context, callbackID, text string) error {
	params := tu.CallbackQuery(callbackID)
	if text != "" {
		params = params.WithText(text)
	}
	return m.bot.AnswerCallbackQuery(ctx, params)
}

func (m *TelegoMessenger) EditReplyMarkup(ctx context.Context, chat string, messageID int, kb Keyboard) error {
	_, err := m.bot.EditMessageReplyMarkup(ctx, &telego.EditMessageReplyMarkupParams{
		ChatID:      chatID(chat),
		MessageID:   messageID,
		ReplyMarkup: markup(kb),
	})
	return err
}

// SetWebhook points Telegram at url. Updates carry secret in the
// X-Telegram-Bot-Api-Secret-Token header when it is set.
func (m *TelegoMessenger) SetWebhook(ctx context.Context, url, secret string) error {
	return m.bot.SetWebhook(ctx, &telego.SetWebhookParams{
		URL:            url,
		SecretToken:    secret,
		AllowedUpdates: []string{"message", "callback_query"},
	})
}
