package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeSource scripts successive Resolve results.
type fakeSource struct {
	mu      sync.Mutex
	results []resolveResult
	calls   int
}

type resolveResult struct {
	url        string
	processing bool
	err        error
}

func (f *fakeSource) Resolve(ctx context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.results) == 0 {
		return "", false, errors.New("no scripted result")
	}
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return r.url, r.processing, r.err
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestSession_Start(t *testing.T) {
	tests := []struct {
		name               string
		locked             bool
		hasAccess          bool
		results            []resolveResult
		wantState          State
		wantKind           Kind
		wantResolverCalled bool
	}{
		{
			name:      "locked without access never resolves",
			locked:    true,
			hasAccess: false,
			results:   []resolveResult{{url: "http://example.com/v.mp4"}},
			wantState: StateLocked,
		},
		{
			name:               "locked with access resolves normally",
			locked:             true,
			hasAccess:          true,
			results:            []resolveResult{{url: "http://example.com/v.mp4"}},
			wantState:          StateReady,
			wantKind:           KindNative,
			wantResolverCalled: true,
		},
		{
			name:               "embed marker selects embedded player",
			results:            []resolveResult{{url: "https://cdn.example.com/embed/abc"}},
			wantState:          StateReady,
			wantKind:           KindEmbed,
			wantResolverCalled: true,
		},
		{
			name:               "resolution failure is terminal",
			results:            []resolveResult{{err: errors.New("not available")}},
			wantState:          StateError,
			wantResolverCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &fakeSource{results: tt.results}
			s := NewSession(source, tt.locked, false, tt.hasAccess, DefaultSessionConfig())
			defer s.Close()

			got := s.Start(context.Background())

			if got != tt.wantState {
				t.Errorf("expected state %s, got %s", tt.wantState, got)
			}
			if tt.wantKind != "" && s.Kind() != tt.wantKind {
				t.Errorf("expected kind %s, got %s", tt.wantKind, s.Kind())
			}
			if tt.wantResolverCalled != (source.callCount() > 0) {
				t.Errorf("resolver called=%v, want %v", source.callCount() > 0, tt.wantResolverCalled)
			}
		})
	}
}

func TestSession_ProcessingPollsUntilReady(t *testing.T) {
	source := &fakeSource{results: []resolveResult{
		{processing: true},
		{processing: true},
		{err: errors.New("transient poll failure")},
		{url: "http://example.com/v.mp4"},
	}}

	cfg := DefaultSessionConfig()
	cfg.PollInterval = 5 * time.Millisecond
	s := NewSession(source, false, false, true, cfg)
	defer s.Close()

	if got := s.Start(context.Background()); got != StateProcessing {
		t.Fatalf("expected PROCESSING, got %s", got)
	}

	deadline := time.After(2 * time.Second)
	for s.State() != StateReady {
		select {
		case <-deadline:
			t.Fatalf("session never became ready, state %s", s.State())
		case <-time.After(time.Millisecond):
		}
	}

	if s.URL() != "http://example.com/v.mp4" {
		t.Errorf("unexpected URL: %s", s.URL())
	}
}

func TestSession_CloseStopsPoller(t *testing.T) {
	source := &fakeSource{results: []resolveResult{{processing: true}}}

	cfg := DefaultSessionConfig()
	cfg.PollInterval = time.Millisecond
	s := NewSession(source, false, false, true, cfg)

	if got := s.Start(context.Background()); got != StateProcessing {
		t.Fatalf("expected PROCESSING, got %s", got)
	}

	s.Close()
	calls := source.callCount()
	time.Sleep(20 * time.Millisecond)
	if after := source.callCount(); after != calls {
		t.Errorf("poller kept running after Close: %d -> %d calls", calls, after)
	}

	// Close is idempotent.
	s.Close()
}

func TestSession_PreviewGating(t *testing.T) {
	t.Run("crossing the limit pauses and latches", func(t *testing.T) {
		source := &fakeSource{results: []resolveResult{{url: "http://example.com/v.mp4"}}}
		s := NewSession(source, false, true, false, DefaultSessionConfig())
		defer s.Close()
		s.Start(context.Background())

		if err := s.Play(); err != nil {
			t.Fatalf("unexpected play error: %v", err)
		}

		s.OnTimeUpdate(4 * time.Second)
		if s.PreviewEnded() {
			t.Fatal("latch must not fire before the limit")
		}
		if !s.Playing() {
			t.Fatal("expected playback to continue before the limit")
		}

		s.OnTimeUpdate(5 * time.Second)
		if !s.PreviewEnded() {
			t.Fatal("expected latch at the limit")
		}
		if s.Playing() {
			t.Fatal("expected playback paused at the cutoff")
		}

		if err := s.Play(); !errors.Is(err, ErrPreviewEnded) {
			t.Fatalf("expected ErrPreviewEnded, got %v", err)
		}
	})

	t.Run("access disables the cutoff", func(t *testing.T) {
		source := &fakeSource{results: []resolveResult{{url: "http://example.com/v.mp4"}}}
		s := NewSession(source, false, true, true, DefaultSessionConfig())
		defer s.Close()
		s.Start(context.Background())

		_ = s.Play()
		s.OnTimeUpdate(time.Hour)
		if s.PreviewEnded() {
			t.Fatal("viewers with access must never be cut off")
		}
		if !s.Playing() {
			t.Fatal("expected playback to continue")
		}
	})

	t.Run("play before ready", func(t *testing.T) {
		source := &fakeSource{results: []resolveResult{{processing: true}}}
		cfg := DefaultSessionConfig()
		cfg.PollInterval = time.Hour
		s := NewSession(source, false, false, true, cfg)
		defer s.Close()
		s.Start(context.Background())

		if err := s.Play(); !errors.Is(err, ErrNotReady) {
			t.Fatalf("expected ErrNotReady, got %v", err)
		}
	})
}

func TestSession_OnEnded(t *testing.T) {
	newReadySession := func(t *testing.T, fired *int) *Session {
		t.Helper()
		source := &fakeSource{results: []resolveResult{{url: "http://example.com/v.mp4"}}}
		cfg := DefaultSessionConfig()
		cfg.OnEnd = func() { *fired++ }
		s := NewSession(source, false, false, true, cfg)
		t.Cleanup(s.Close)
		if got := s.Start(context.Background()); got != StateReady {
			t.Fatalf("expected READY, got %s", got)
		}
		return s
	}

	t.Run("fires exactly once per natural end", func(t *testing.T) {
		fired := 0
		s := newReadySession(t, &fired)

		_ = s.Play()
		s.OnEnded()
		s.OnEnded()

		if fired != 1 {
			t.Errorf("expected 1 end event, got %d", fired)
		}
	})

	t.Run("does not fire while paused", func(t *testing.T) {
		fired := 0
		s := newReadySession(t, &fired)

		_ = s.Play()
		s.Pause()
		s.OnEnded()

		if fired != 0 {
			t.Errorf("expected no end event after pause, got %d", fired)
		}
	})

	t.Run("does not fire on preview cutoff", func(t *testing.T) {
		fired := 0
		source := &fakeSource{results: []resolveResult{{url: "http://example.com/v.mp4"}}}
		cfg := DefaultSessionConfig()
		cfg.OnEnd = func() { fired++ }
		s := NewSession(source, false, true, false, cfg)
		defer s.Close()
		s.Start(context.Background())

		_ = s.Play()
		s.OnTimeUpdate(6 * time.Second)
		s.OnEnded()

		if fired != 0 {
			t.Errorf("expected no end event after cutoff, got %d", fired)
		}
	})
}
