// Package storage implements the multi-provider video storage core: one
// uploader/resolver/deleter implementation per backend, selected through a
// registry keyed by provider.
package storage

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/coursestream/mediahub/internal/domain/model"
)

// Object describes the bytes being uploaded. Size must be known up front so
// providers can chunk deterministically and report meaningful progress.
type Object struct {
	Reader      io.Reader
	Size        int64
	ContentType string
	FileName    string
	CourseID    uuid.UUID
}

// Progress reports cumulative upload progress. Percentage is an integer in
// [0,100]; the final report of a successful upload is always 100.
type Progress struct {
	Loaded     int64
	Total      int64
	Percentage int
}

// ProgressFunc receives progress reports. For chunked paths it is invoked
// after every chunk; every upload invokes it at least once at completion.
type ProgressFunc func(Progress)

func reportProgress(fn ProgressFunc, loaded, total int64) {
	if fn == nil {
		return
	}
	pct := 100
	if total > 0 {
		pct = int(loaded * 100 / total)
		// loaded can overshoot total when the declared size understates the
		// stream; the percentage contract stays within [0,100].
		if pct > 100 {
			pct = 100
		}
	}
	fn(Progress{Loaded: loaded, Total: total, Percentage: pct})
}

// Uploader pushes bytes to a specific backend.
//
// The returned path is authoritative: backends may rewrite the requested
// object key, and callers must persist the returned value.
type Uploader interface {
	Upload(ctx context.Context, obj Object, path string, progress ProgressFunc) (string, error)
}

// URLResolver produces a time-bounded playable URL for a stored object.
type URLResolver interface {
	ResolveURL(ctx context.Context, path string, expiry time.Duration) (string, error)
}

// Deleter removes an object from its origin backend.
type Deleter interface {
	Delete(ctx context.Context, path string) error
}

// ProviderSet bundles the three capabilities of one backend.
type ProviderSet struct {
	Uploader Uploader
	Resolver URLResolver
	Deleter  Deleter
}

// Factory builds a ProviderSet from the current storage settings. Providers
// whose endpoints live in settings are rebuilt per call so a settings change
// takes effect as soon as the settings cache rolls over.
type Factory func(settings *model.StorageSettings) ProviderSet

// Registry maps providers to their implementations. Adding a backend means
// registering one more factory; dispatch sites do not change.
type Registry struct {
	factories map[model.Provider]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[model.Provider]Factory)}
}

// Register installs the factory for a provider, replacing any previous one.
func (r *Registry) Register(p model.Provider, f Factory) {
	r.factories[p] = f
}

// For returns the ProviderSet for p built against the given settings.
// Returns ErrUnsupportedProvider for unknown or unregistered providers.
func (r *Registry) For(p model.Provider, settings *model.StorageSettings) (ProviderSet, error) {
	f, ok := r.factories[p]
	if !ok {
		return ProviderSet{}, fmt.Errorf("%w: %s", ErrUnsupportedProvider, p)
	}
	return f(settings), nil
}

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9.-]`)

// SanitizeFileName replaces every character outside [A-Za-z0-9.-] with an
// underscore so the name is safe as an object key segment on all backends.
func SanitizeFileName(name string) string {
	return unsafePathChars.ReplaceAllString(name, "_")
}

// BuildObjectPath constructs the deterministic, collision-resistant object
// key for a course upload: courses/{courseID}/{unixMillis}_{sanitizedName}.
func BuildObjectPath(courseID uuid.UUID, fileName string, now time.Time) string {
	return fmt.Sprintf("courses/%s/%d_%s", courseID, now.UnixMilli(), SanitizeFileName(fileName))
}
