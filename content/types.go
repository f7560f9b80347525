package content

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// ContentType is the kind of generated material.
type ContentType string

const (
	TypePodcast   ContentType = "podcast"
	TypeListening ContentType = "listening"
	TypeReading   ContentType = "reading"
)

// ContentTypes lists every supported type in menu order.
var ContentTypes = []ContentType{TypeListening, TypeReading, TypePodcast}

func ParseContentType(s string) (ContentType, error) {
	switch ContentType(strings.ToLower(strings.TrimSpace(s))) {
	case TypePodcast:
		return TypePodcast, nil
	case TypeListening:
		return TypeListening, nil
	case TypeReading:
		return TypeReading, nil
	}
	return "", &ValidationError{Field: "contentType", Reason: fmt.Sprintf("unknown content type %q", s)}
}

// HasAudio reports whether content of this type is synthesized to speech.
func (t ContentType) HasAudio() bool {
	return t == TypePodcast || t == TypeListening
}

// ArabicName is the label used in prompts and admin messages.
func (t ContentType) ArabicName() string {
	switch t {
	case TypeListening:
		return "اِسْتِمَاعٌ (مُحْتَوًى صَوْتِيٌّ)"
	case TypeReading:
		return "قِرَاءَةٌ (مُحْتَوًى قِرَائِيٌّ)"
	default:
		return "بُودْكَاسْت"
	}
}

func (t ContentType) Emoji() string {
	switch t {
	case TypeListening:
		return "🎧"
	case TypeReading:
		return "📖"
	default:
		return "🎙️"
	}
}

// Level is a CEFR proficiency tier.
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
)

var Levels = []Level{LevelA1, LevelA2, LevelB1, LevelB2}

func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelA1:
		return LevelA1, nil
	case LevelA2:
		return LevelA2, nil
	case LevelB1:
		return LevelB1, nil
	case LevelB2:
		return LevelB2, nil
	}
	return "", &ValidationError{Field: "level", Reason: fmt.Sprintf("unknown level %q", s)}
}

// Question is one multiple-choice item. It is stored embedded in its owner row.
type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

const (
	OptionsPerQuestion = 4
	QuestionsPerItem   = 5
)

// ValidateQuestions checks the count and every question.
func ValidateQuestions(qs []Question) error {
	if len(qs) != QuestionsPerItem {
		return &ValidationError{Field: "questions", Reason: fmt.Sprintf("expected %d questions, got %d", QuestionsPerItem, len(qs))}
	}
	for _, q := range qs {
		if err := q.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (q Question) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return &ValidationError{Field: "question", Reason: "empty question text"}
	}
	if len(q.Options) != OptionsPerQuestion {
		return &ValidationError{Field: "options", Reason: fmt.Sprintf("expected %d options, got %d", OptionsPerQuestion, len(q.Options))}
	}
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= OptionsPerQuestion {
		return &ValidationError{Field: "correctAnswer", Reason: fmt.Sprintf("index %d out of range", q.CorrectAnswer)}
	}
	return nil
}

// Session is one generated unit of educational content (a ContentSession).
type Session struct {
	ID              uint                         `gorm:"primaryKey" json:"id"`
	Slug            string                       `gorm:"size:255;not null;uniqueIndex" json:"slug"`
	Title           string                       `gorm:"not null" json:"title"`
	Body            string                       `gorm:"not null" json:"body"`
	Questions       datatypes.JSONSlice[Question] `gorm:"not null" json:"questions"`
	ImageURL        string                       `json:"imageUrl"`
	AudioURL        string                       `json:"audioUrl"`
	AudioStorageKey string                       `json:"audioStorageKey"`
	Status          Status                       `gorm:"size:50;not null;default:draft;index" json:"status"`
	ContentType     ContentType                  `gorm:"size:20;not null;default:podcast;index:idx_sessions_type_level" json:"contentType"`
	Level           Level                        `gorm:"size:5;not null;default:B1;index:idx_sessions_type_level" json:"level"`
	Topic           *string                      `json:"topic,omitempty"`
	AudioProvider   string                       `gorm:"size:32" json:"audioProvider,omitempty"`
	CreatedAt       time.Time                    `json:"createdAt"`
	UpdatedAt       time.Time                    `json:"updatedAt"`
}

func (Session) TableName() string { return "content_sessions" }

// AudioRef returns the typed reference to the stored audio, if any.
func (s *Session) AudioRef() (StorageRef, bool) {
	raw := s.AudioStorageKey
	if raw == "" {
		raw = s.AudioURL
	}
	if raw == "" {
		return StorageRef{}, false
	}
	return ParseStorageRef(raw), true
}

// Revision records one changed field of a Session.
type Revision struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"not null;index" json:"sessionId"`
	Field     string    `gorm:"size:100;not null" json:"field"`
	OldValue  *string   `json:"oldValue"`
	NewValue  *string   `json:"newValue"`
	EditedBy  string    `gorm:"size:255;not null" json:"editedBy"`
	EditedAt  time.Time `gorm:"autoCreateTime" json:"editedAt"`
}

func (Revision) TableName() string { return "content_revisions" }

// CustomContent is admin-submitted text with generated questions and audio.
type CustomContent struct {
	ID              uint                         `gorm:"primaryKey" json:"id"`
	Slug            string                       `gorm:"size:255;not null;uniqueIndex" json:"slug"`
	Title           string                       `gorm:"not null" json:"title"`
	Body            string                       `gorm:"not null" json:"body"`
	Questions       datatypes.JSONSlice[Question] `gorm:"not null" json:"questions"`
	AudioURL        string                       `json:"audioUrl"`
	AudioStorageKey string                       `json:"audioStorageKey"`
	Level           Level                        `gorm:"size:5;not null;default:B1" json:"level"`
	Status          Status                       `gorm:"size:50;not null;default:draft;index" json:"status"`
	SubmittedBy     string                       `gorm:"size:255" json:"submittedBy"`
	CreatedAt       time.Time                    `json:"createdAt"`
	UpdatedAt       time.Time                    `json:"updatedAt"`
}

func (CustomContent) TableName() string { return "custom_contents" }

// VoiceRotationState is the singleton row behind round-robin voice selection.
type VoiceRotationState struct {
	ID           uint                       `gorm:"primaryKey" json:"id"`
	LastIndex    int                        `gorm:"not null;default:0" json:"lastIndex"`
	CachedVoices datatypes.JSONSlice[string] `json:"cachedVoices"`
	UpdatedAt    time.Time                  `json:"updatedAt"`
}

func (VoiceRotationState) TableName() string { return "voice_rotation_state" }
