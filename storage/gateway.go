package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"arabic_content_publisher/content"
	"arabic_content_publisher/logger"
)

// Backend is a key-addressed byte store.
type Backend interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
	Name() string
}

// Error wraps every backend failure with the operation and key it concerned.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Uploaded describes a stored object.
type Uploaded struct {
	URL string
	Key string
}

// Gateway persists audio under derived keys on whichever backend was selected at startup.
type Gateway struct {
	backend Backend
	http    *http.Client
	now     func() time.Time
	log     *logger.Logger
}

func NewGateway(backend Backend, log *logger.Logger) *Gateway {
	if log == nil {
		log = logger.Nop()
	}
	return &Gateway{
		backend: backend,
		http:    &http.Client{Timeout: 60 * time.Second},
		now:     time.Now,
		log:     log.With("service", "StorageGateway", "backend", backend.Name()),
	}
}

// Upload stores r under a key derived from titleHint.
func (g *Gateway) Upload(ctx context.Context, r io.Reader, titleHint string) (Uploaded, error) {
	key := BuildKey(titleHint, g.now())
	if err := g.backend.Put(ctx, key, r); err != nil {
		return Uploaded{}, &Error{Op: "upload", Key: key, Err: err}
	}
	g.log.Info("object stored", "key", key)
	return Uploaded{URL: g.backend.URL(key), Key: key}, nil
}

func (g *Gateway) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := g.backend.Exists(ctx, key)
	if err != nil {
		return false, &Error{Op: "exists", Key: key, Err: err}
	}
	return ok, nil
}

func (g *Gateway) Delete(ctx context.Context, key string) (bool, error) {
	if err := g.backend.Delete(ctx, key); err != nil {
		return false, &Error{Op: "delete", Key: key, Err: err}
	}
	return true, nil
}

// URL is the public address for ref.
func (g *Gateway) URL(ref content.StorageRef) string {
	if ref.Kind == content.RefLegacyURL {
		return ref.Value
	}
	return g.backend.URL(ref.Value)
}

// Download returns the full object for either kind of reference.
func (g *Gateway) Download(ctx context.Context, ref content.StorageRef) ([]byte, error) {
	switch ref.Kind {
	case content.RefKey:
		data, err := g.backend.Get(ctx, ref.Value)
		if err != nil {
			return nil, &Error{Op: "download", Key: ref.Value, Err: err}
		}
		return data, nil
	case content.RefLegacyURL:
		data, err := g.fetchURL(ctx, ref.Value)
		if err != nil {
			return nil, &Error{Op: "download", Key: ref.Value, Err: err}
		}
		return data, nil
	default:
		return nil, &Error{Op: "download", Key: ref.Value, Err: fmt.Errorf("unknown reference kind %d", ref.Kind)}
	}
}

func (g *Gateway) fetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
