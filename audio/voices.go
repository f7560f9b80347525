package audio

import (
	"context"
	"errors"
	"math/rand/v2"

	"arabic_content_publisher/content"
	"arabic_content_publisher/logger"
)

// VoiceSelector picks the voice for the next synthesis.
type VoiceSelector interface {
	Next(ctx context.Context) (string, error)
}

// RotationStore persists the round-robin position. Implemented by repository.Voices.
type RotationStore interface {
	GetOrCreate(ctx context.Context) (*content.VoiceRotationState, error)
	Update(ctx context.Context, nextIndex int, cachedVoices []string) error
}

var errEmptyPool = errors.New("voice pool is empty")

type randomVoices struct {
	pool []string
}

// RandomVoices picks uniformly from pool on every call.
func RandomVoices(pool []string) VoiceSelector {
	return randomVoices{pool: pool}
}

func (r randomVoices) Next(context.Context) (string, error) {
	if len(r.pool) == 0 {
		return "", errEmptyPool
	}
	return r.pool[rand.IntN(len(r.pool))], nil
}

type rotatingVoices struct {
	pool  []string
	store RotationStore
}

// RotatingVoices walks pool in order, persisting the position in store.
// LastIndex holds the position that will be used next.
func RotatingVoices(pool []string, store RotationStore) VoiceSelector {
	return rotatingVoices{pool: pool, store: store}
}

func (r rotatingVoices) Next(ctx context.Context) (string, error) {
	if len(r.pool) == 0 {
		return "", errEmptyPool
	}
	state, err := r.store.GetOrCreate(ctx)
	if err != nil {
		return "", err
	}
	idx := mod(state.LastIndex, len(r.pool))
	if err := r.store.Update(ctx, (idx+1)%len(r.pool), nil); err != nil {
		return "", err
	}
	return r.pool[idx], nil
}

type remoteRotatingVoices struct {
	lister   VoiceLister
	fallback []string
	store    RotationStore
	log      *logger.Logger
}

// RemoteRotatingVoices rotates over the voices the provider reports for the account.
// The list is cached in the rotation row and refreshed when the cache is empty or a
// full cycle has completed; fallback is used when the provider cannot be reached.
func RemoteRotatingVoices(lister VoiceLister, fallback []string, store RotationStore, log *logger.Logger) VoiceSelector {
	if log == nil {
		log = logger.Nop()
	}
	return remoteRotatingVoices{lister: lister, fallback: fallback, store: store, log: log}
}

func (r remoteRotatingVoices) Next(ctx context.Context) (string, error) {
	state, err := r.store.GetOrCreate(ctx)
	if err != nil {
		return "", err
	}
	voices := []string(state.CachedVoices)
	var refreshed []string
	if len(voices) == 0 || state.LastIndex == 0 {
		fresh, err := r.lister.ListVoices(ctx)
		switch {
		case err != nil:
			r.log.Warn("voice list unavailable, using cache or fallback", "error", err)
		case len(fresh) > 0:
			voices, refreshed = fresh, fresh
		}
	}
	if len(voices) == 0 {
		voices = r.fallback
	}
	if len(voices) == 0 {
		return "", errEmptyPool
	}
	idx := mod(state.LastIndex, len(voices))
	if err := r.store.Update(ctx, (idx+1)%len(voices), refreshed); err != nil {
		return "", err
	}
	return voices[idx], nil
}

func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
