package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"arabic_content_publisher/content"
	"arabic_content_publisher/logger"
)

// NewCustom is the input for CustomContents.Create.
type NewCustom struct {
	Title           string
	Body            string
	Questions       []content.Question
	AudioURL        string
	AudioStorageKey string
	Level           content.Level
	SubmittedBy     string
}

// CustomContents owns admin-submitted texts.
type CustomContents struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

func NewCustomContents(db *gorm.DB, baseLog *logger.Logger) *CustomContents {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &CustomContents{db: db, log: baseLog.With("repo", "CustomContentRepo"), now: time.Now}
}

func (r *CustomContents) Create(ctx context.Context, in NewCustom) (*content.CustomContent, error) {
	slug, err := newSlug("custom", r.now())
	if err != nil {
		return nil, fmt.Errorf("generate slug: %w", err)
	}
	lvl := in.Level
	if lvl == "" {
		lvl = content.LevelB1
	}
	c := &content.CustomContent{
		Slug:            slug,
		Title:           in.Title,
		Body:            in.Body,
		Questions:       in.Questions,
		AudioURL:        in.AudioURL,
		AudioStorageKey: in.AudioStorageKey,
		Level:           lvl,
		Status:          content.StatusDraft,
		SubmittedBy:     in.SubmittedBy,
	}
	if c.Questions == nil {
		c.Questions = []content.Question{}
	}
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	r.log.Info("custom content created", "slug", c.Slug, "id", c.ID)
	return c, nil
}

func (r *CustomContents) GetByID(ctx context.Context, id uint) (*content.CustomContent, error) {
	var c content.CustomContent
	err := r.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, content.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateStatus follows the same guarded lifecycle as Sessions.UpdateStatus.
func (r *CustomContents) UpdateStatus(ctx context.Context, id uint, next content.Status) (*content.CustomContent, error) {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Status.CanTransition(next) {
		return c, fmt.Errorf("%w: %s -> %s", content.ErrInvalidTransition, c.Status, next)
	}
	res := r.db.WithContext(ctx).
		Model(&content.CustomContent{}).
		Where("id = ? AND status = ?", id, c.Status).
		Updates(map[string]any{"status": next, "updated_at": r.now()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return c, content.ErrStatusConflict
	}
	c.Status = next
	return c, nil
}
