package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"arabic_content_publisher/content"
	"arabic_content_publisher/logger"
)

const rotationRowID = 1

// Voices owns the voice_rotation_state singleton.
type Voices struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVoices(db *gorm.DB, baseLog *logger.Logger) *Voices {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &Voices{db: db, log: baseLog.With("repo", "VoiceRotationRepo")}
}

// GetOrCreate returns the singleton row, inserting index 0 with an empty cache if absent.
func (r *Voices) GetOrCreate(ctx context.Context) (*content.VoiceRotationState, error) {
	state := content.VoiceRotationState{
		ID:           rotationRowID,
		CachedVoices: datatypes.JSONSlice[string]{},
	}
	if err := r.db.WithContext(ctx).
		Where(content.VoiceRotationState{ID: rotationRowID}).
		FirstOrCreate(&state).Error; err != nil {
		return nil, err
	}
	return &state, nil
}

// Update stores nextIndex and, when cachedVoices is non-nil, replaces the voice cache.
func (r *Voices) Update(ctx context.Context, nextIndex int, cachedVoices []string) error {
	if _, err := r.GetOrCreate(ctx); err != nil {
		return err
	}
	changes := map[string]any{"last_index": nextIndex}
	if cachedVoices != nil {
		changes["cached_voices"] = datatypes.JSONSlice[string](cachedVoices)
	}
	return r.db.WithContext(ctx).
		Model(&content.VoiceRotationState{}).
		Where("id = ?", rotationRowID).
		Updates(changes).Error
}
