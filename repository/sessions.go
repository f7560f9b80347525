package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"arabic_content_publisher/content"
	"arabic_content_publisher/logger"
)

// NewSession is the input for Sessions.Create.
type NewSession struct {
	ContentType     content.ContentType
	Level           content.Level
	Topic           string
	Title           string
	Body            string
	Questions       []content.Question
	ImageURL        string
	AudioURL        string
	AudioStorageKey string
	AudioProvider   string
}

// SessionUpdate holds the editable fields; nil means unchanged.
type SessionUpdate struct {
	Title           *string
	Body            *string
	ImageURL        *string
	AudioURL        *string
	AudioStorageKey *string
	Topic           *string
	Questions       *[]content.Question
}

// Sessions owns content_sessions and content_revisions.
type Sessions struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

func NewSessions(db *gorm.DB, baseLog *logger.Logger) *Sessions {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &Sessions{db: db, log: baseLog.With("repo", "SessionRepo"), now: time.Now}
}

func (r *Sessions) Create(ctx context.Context, in NewSession) (*content.Session, error) {
	if _, err := content.ParseContentType(string(in.ContentType)); err != nil {
		return nil, err
	}
	if _, err := content.ParseLevel(string(in.Level)); err != nil {
		return nil, err
	}
	slug, err := newSlug(string(in.ContentType), r.now())
	if err != nil {
		return nil, fmt.Errorf("generate slug: %w", err)
	}
	s := &content.Session{
		Slug:            slug,
		Title:           in.Title,
		Body:            in.Body,
		Questions:       in.Questions,
		ImageURL:        in.ImageURL,
		AudioURL:        in.AudioURL,
		AudioStorageKey: in.AudioStorageKey,
		AudioProvider:   in.AudioProvider,
		Status:          content.StatusDraft,
		ContentType:     in.ContentType,
		Level:           in.Level,
	}
	if in.Topic != "" {
		topic := in.Topic
		s.Topic = &topic
	}
	if s.Questions == nil {
		s.Questions = []content.Question{}
	}
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	r.log.Info("session created", "slug", s.Slug, "id", s.ID)
	return s, nil
}

func (r *Sessions) GetBySlug(ctx context.Context, slug string) (*content.Session, error) {
	var s content.Session
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, content.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Sessions) GetByID(ctx context.Context, id uint) (*content.Session, error) {
	var s content.Session
	err := r.db.WithContext(ctx).First(&s, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, content.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByTypeAndLevel returns sessions newest first.
func (r *Sessions) ListByTypeAndLevel(ctx context.Context, ct content.ContentType, lvl content.Level, limit, offset int) ([]content.Session, error) {
	var out []content.Session
	q := r.db.WithContext(ctx).
		Where("content_type = ? AND level = ?", ct, lvl).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Sessions) CountByTypeAndLevel(ctx context.Context, ct content.ContentType, lvl content.Level) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&content.Session{}).
		Where("content_type = ? AND level = ?", ct, lvl).
		Count(&n).Error
	return n, err
}

// UpdateStatus moves a session along the status graph. The UPDATE is conditional on
// the status read beforehand; losing a race yields content.ErrStatusConflict.
func (r *Sessions) UpdateStatus(ctx context.Context, id uint, next content.Status) (*content.Session, error) {
	s, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.transition(ctx, s, next)
}

// UpdateStatusBySlug is UpdateStatus keyed by slug.
func (r *Sessions) UpdateStatusBySlug(ctx context.Context, slug string, next content.Status) (*content.Session, error) {
	s, err := r.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return r.transition(ctx, s, next)
}

func (r *Sessions) transition(ctx context.Context, s *content.Session, next content.Status) (*content.Session, error) {
	if !s.Status.CanTransition(next) {
		return s, fmt.Errorf("%w: %s -> %s", content.ErrInvalidTransition, s.Status, next)
	}
	res := r.db.WithContext(ctx).
		Model(&content.Session{}).
		Where("id = ? AND status = ?", s.ID, s.Status).
		Updates(map[string]any{"status": next, "updated_at": r.now()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return s, content.ErrStatusConflict
	}
	r.log.Info("session status changed", "id", s.ID, "slug", s.Slug, "from", s.Status, "to", next)
	s.Status = next
	return s, nil
}

// Update applies changed fields and writes one revision per change, atomically.
func (r *Sessions) Update(ctx context.Context, slug string, upd SessionUpdate, editor string) (*content.Session, error) {
	var out *content.Session
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s content.Session
		if err := tx.Where("slug = ?", slug).First(&s).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return content.ErrNotFound
			}
			return err
		}

		changes := map[string]any{}
		var revs []content.Revision
		track := func(field, column string, oldV, newV string, value any) {
			if oldV == newV {
				return
			}
			o, n := oldV, newV
			changes[column] = value
			revs = append(revs, content.Revision{SessionID: s.ID, Field: field, OldValue: &o, NewValue: &n, EditedBy: editor})
		}

		if upd.Title != nil {
			track("title", "title", s.Title, *upd.Title, *upd.Title)
		}
		if upd.Body != nil {
			track("body", "body", s.Body, *upd.Body, *upd.Body)
		}
		if upd.ImageURL != nil {
			track("imageUrl", "image_url", s.ImageURL, *upd.ImageURL, *upd.ImageURL)
		}
		if upd.AudioURL != nil {
			track("audioUrl", "audio_url", s.AudioURL, *upd.AudioURL, *upd.AudioURL)
		}
		if upd.AudioStorageKey != nil {
			track("audioStorageKey", "audio_storage_key", s.AudioStorageKey, *upd.AudioStorageKey, *upd.AudioStorageKey)
		}
		if upd.Topic != nil {
			old := ""
			if s.Topic != nil {
				old = *s.Topic
			}
			track("topic", "topic", old, *upd.Topic, *upd.Topic)
		}
		if upd.Questions != nil {
			if err := content.ValidateQuestions(*upd.Questions); err != nil {
				return err
			}
			oldJSON, _ := json.Marshal([]content.Question(s.Questions))
			newJSON, _ := json.Marshal(*upd.Questions)
			track("questions", "questions", string(oldJSON), string(newJSON), datatypes.JSONSlice[content.Question](*upd.Questions))
		}

		if len(changes) == 0 {
			out = &s
			return nil
		}
		changes["updated_at"] = r.now()
		if err := tx.Model(&content.Session{}).Where("id = ?", s.ID).Updates(changes).Error; err != nil {
			return err
		}
		if err := tx.Create(&revs).Error; err != nil {
			return err
		}
		if err := tx.First(&s, s.ID).Error; err != nil {
			return err
		}
		out = &s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Revisions lists the edit history of a session, oldest first.
func (r *Sessions) Revisions(ctx context.Context, sessionID uint) ([]content.Revision, error) {
	var out []content.Revision
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("edited_at ASC, id ASC").
		Find(&out).Error
	return out, err
}
