// Package audio holds short-lived generated speech clips between the moment
// they are synthesized and the moment the telephony provider fetches them to
// play into a call. Artifacts are never persisted; a bounded TTL keeps the
// store from leaking bytes.
package audio

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("audio: artifact not found")

// Artifact is one generated speech clip awaiting playback.
type Artifact struct {
	AudioID     string
	BytesBase64 string
	ContentType string
	CreatedAt   time.Time
}

const (
	defaultTTL         = 5 * time.Minute
	defaultContentType = "audio/mpeg"
)

// Store is an in-memory, TTL-bounded artifact store. Reads are idempotent:
// repeated Gets return the same bytes until expiry.
type Store struct {
	mu        sync.Mutex
	artifacts map[string]Artifact

	ttl   time.Duration
	clock func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{
		artifacts: make(map[string]Artifact),
		ttl:       ttl,
		clock:     time.Now,
	}
}

// Store records the clip and returns a fresh unguessable id.
func (s *Store) Store(bytesBase64, contentType string) string {
	if contentType == "" {
		contentType = defaultContentType
	}
	a := Artifact{
		AudioID:     uuid.NewString(),
		BytesBase64: bytesBase64,
		ContentType: contentType,
		CreatedAt:   s.clock().UTC(),
	}
	s.mu.Lock()
	s.artifacts[a.AudioID] = a
	s.mu.Unlock()
	return a.AudioID
}

// Get returns the artifact if present and not expired. Expired artifacts are
// reaped lazily here as well as by the background janitor.
func (s *Store) Get(audioID string) (Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artifacts[audioID]
	if !ok {
		return Artifact{}, ErrNotFound
	}
	if s.clock().Sub(a.CreatedAt) > s.ttl {
		delete(s.artifacts, audioID)
		return Artifact{}, ErrNotFound
	}
	return a, nil
}

// RunJanitor sweeps expired artifacts until ctx is canceled.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sweep(); n > 0 {
				slog.Debug("audio store sweep", "evicted", n)
			}
		}
	}
}

func (s *Store) sweep() int {
	cutoff := s.clock().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, a := range s.artifacts {
		if a.CreatedAt.Before(cutoff) {
			delete(s.artifacts, id)
			evicted++
		}
	}
	return evicted
}
