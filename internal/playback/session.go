// Package playback implements the per-viewer playback session: access
// gating, preview time limits and the processing-status poll loop that
// backs the learner-facing player.
package playback

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// State describes where a session is in its lifecycle.
type State string

const (
	// StateLocked is terminal: the viewer has no access and the content is
	// locked, so nothing is ever loaded.
	StateLocked State = "LOCKED"
	// StateLoading is the initial resolution of the playable URL.
	StateLoading State = "LOADING"
	// StateProcessing means the backend is still preparing the media; the
	// session polls until it becomes ready.
	StateProcessing State = "PROCESSING"
	// StateError is terminal: the media could not be resolved.
	StateError State = "ERROR"
	// StateReady means the playable URL is available.
	StateReady State = "READY"
)

// Kind selects how a ready URL should be presented.
type Kind string

const (
	// KindEmbed is an iframe-style embedded player URL.
	KindEmbed Kind = "embed"
	// KindNative is a direct media URL for a native player.
	KindNative Kind = "native"
)

var (
	// ErrPreviewEnded is returned by Play once the preview latch is set.
	ErrPreviewEnded = errors.New("free preview has ended")
	// ErrNotReady is returned by Play while the session is not in READY state.
	ErrNotReady = errors.New("playback is not ready")
)

// MediaSource resolves the playable URL for a session's content.
// Processing=true means the backend has accepted the content but has not
// finished preparing it; the session will poll until it clears.
type MediaSource interface {
	Resolve(ctx context.Context) (url string, processing bool, err error)
}

// SessionConfig holds configuration for a playback session.
type SessionConfig struct {
	// PreviewDuration is the free-preview cutoff for viewers without access.
	PreviewDuration time.Duration
	// PollInterval is the status poll cadence while processing.
	PollInterval time.Duration
	// EmbedMarkers are URL substrings that select the embedded player.
	EmbedMarkers []string
	// OnEnd is invoked exactly once when playback completes naturally.
	OnEnd func()
}

// DefaultSessionConfig returns the default configuration.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		PreviewDuration: 5 * time.Second,
		PollInterval:    5 * time.Second,
		EmbedMarkers:    []string{"/embed/", "iframe"},
	}
}

// Session is one viewer's playback attempt at one content item.
//
// The preview latch is one-way for the lifetime of the session: once the
// cutoff fires, only a new session created with access lifts it.
type Session struct {
	source      MediaSource
	freePreview bool
	locked      bool
	hasAccess   bool

	previewDuration time.Duration
	pollInterval    time.Duration
	embedMarkers    []string
	onEnd           func()

	mu           sync.Mutex
	state        State
	url          string
	kind         Kind
	playing      bool
	previewEnded bool
	endFired     bool

	cancelPoll context.CancelFunc
	pollDone   chan struct{}
}

// NewSession creates a session for a single content item and viewer.
// locked and freePreview come from the content record; hasAccess from the
// viewer's enrollment.
func NewSession(source MediaSource, locked, freePreview, hasAccess bool, cfg SessionConfig) *Session {
	if cfg.PreviewDuration <= 0 {
		cfg.PreviewDuration = DefaultSessionConfig().PreviewDuration
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultSessionConfig().PollInterval
	}
	if len(cfg.EmbedMarkers) == 0 {
		cfg.EmbedMarkers = DefaultSessionConfig().EmbedMarkers
	}
	return &Session{
		source:          source,
		freePreview:     freePreview,
		locked:          locked,
		hasAccess:       hasAccess,
		previewDuration: cfg.PreviewDuration,
		pollInterval:    cfg.PollInterval,
		embedMarkers:    cfg.EmbedMarkers,
		onEnd:           cfg.OnEnd,
		state:           StateLoading,
	}
}

// Start drives the session to its first settled state. Locked content is
// checked before any resolution happens. When the media is still processing,
// a background poller keeps checking until it is ready, the session is
// closed, or ctx is cancelled.
func (s *Session) Start(ctx context.Context) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locked && !s.hasAccess {
		s.state = StateLocked
		return s.state
	}

	s.state = StateLoading
	url, processing, err := s.source.Resolve(ctx)
	if err != nil {
		s.state = StateError
		return s.state
	}
	if processing {
		s.state = StateProcessing
		s.startPollLocked(ctx)
		return s.state
	}

	s.becomeReadyLocked(url)
	return s.state
}

// startPollLocked launches the status poller. Caller holds s.mu.
func (s *Session) startPollLocked(ctx context.Context) {
	pollCtx, cancel := context.WithCancel(ctx)
	s.cancelPoll = cancel
	s.pollDone = make(chan struct{})

	go func() {
		defer close(s.pollDone)
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				url, processing, err := s.source.Resolve(pollCtx)
				if err != nil {
					// Poll errors are transient; retry on the next tick.
					slog.Warn("playback status poll failed", "error", err)
					continue
				}
				if processing {
					continue
				}
				s.mu.Lock()
				s.becomeReadyLocked(url)
				s.mu.Unlock()
				return
			}
		}
	}()
}

// becomeReadyLocked settles the session into READY. Caller holds s.mu.
func (s *Session) becomeReadyLocked(url string) {
	s.state = StateReady
	s.url = url
	s.kind = KindNative
	for _, marker := range s.embedMarkers {
		if strings.Contains(url, marker) {
			s.kind = KindEmbed
			break
		}
	}
}

// Play begins or resumes playback. It is a no-op returning ErrPreviewEnded
// once the preview latch has fired, and ErrNotReady outside READY state.
func (s *Session) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.previewEnded {
		return ErrPreviewEnded
	}
	if s.state != StateReady {
		return ErrNotReady
	}
	s.playing = true
	return nil
}

// Pause stops playback without affecting the preview latch or the end event.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
}

// OnTimeUpdate reports playback position. For free-preview viewers without
// access, crossing the preview duration pauses playback and latches the
// session; viewers with access are never cut off.
func (s *Session) OnTimeUpdate(position time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.freePreview || s.hasAccess || s.previewEnded {
		return
	}
	if position >= s.previewDuration {
		s.playing = false
		s.previewEnded = true
	}
}

// OnEnded reports natural playback completion. The completion callback fires
// exactly once per session and never for a preview cutoff.
func (s *Session) OnEnded() {
	s.mu.Lock()
	fire := s.playing && !s.endFired
	if fire {
		s.endFired = true
	}
	s.playing = false
	onEnd := s.onEnd
	s.mu.Unlock()

	if fire && onEnd != nil {
		onEnd()
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// URL returns the playable URL, empty until READY.
func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// Kind returns the presentation kind, empty until READY.
func (s *Session) Kind() Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind
}

// PreviewEnded reports whether the preview latch has fired.
func (s *Session) PreviewEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previewEnded
}

// Playing reports whether playback is currently active.
func (s *Session) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Close tears the session down and stops the status poller. Safe to call
// multiple times and regardless of state.
func (s *Session) Close() {
	s.mu.Lock()
	cancel := s.cancelPoll
	done := s.pollDone
	s.cancelPoll = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
