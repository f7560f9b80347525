package publisher

import "context"

// Button is one inline keyboard button carrying callback data.
type Button struct {
	Text string
	Data string
}

// Keyboard is a grid of inline buttons, one slice per row.
type Keyboard [][]Button

// Row is a convenience constructor for a keyboard row.
func Row(buttons ...Button) []Button { return buttons }

// Audio is an audio attachment, sent from bytes when present, otherwise by URL.
type Audio struct {
	Data     []byte
	URL      string
	Filename string
	Title    string
}

// Poll is a quiz poll with a single correct option.
type Poll struct {
	Question      string
	Options       []string
	CorrectOption int
	Explanation   string
}

// Messenger is the subset of the Telegram Bot API the pipeline needs.
// Chat ids are numeric ids or @channel usernames.
type Messenger interface {
	SendMessage(ctx context.Context, chat, text string, kb Keyboard) (int, error)
	SendPhoto(ctx context.Context, chat, photoURL, caption string, kb Keyboard) (int, error)
	SendAudio(ctx context.Context, chat string, audio Audio, caption string, kb Keyboard) (int, error)
	SendPoll(ctx context.Context, chat string, poll Poll) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	EditReplyMarkup(ctx context.Context, chat string, messageID int, kb Keyboard) error
}
