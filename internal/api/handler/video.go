package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coursestream/mediahub/internal/domain/model"
	"github.com/coursestream/mediahub/internal/domain/repository"
	"github.com/coursestream/mediahub/internal/playback"
	"github.com/coursestream/mediahub/internal/storage"
	"github.com/coursestream/mediahub/internal/usecase"
)

// Request/Response types

type VideoResponse struct {
	ID             string `json:"id"`
	CourseID       string `json:"course_id"`
	Title          string `json:"title"`
	Provider       string `json:"provider"`
	StoragePath    string `json:"storage_path,omitempty"`
	RawURL         string `json:"raw_url,omitempty"`
	SizeBytes      int64  `json:"size_bytes"`
	MigrationState string `json:"migration_state,omitempty"`
	FreePreview    bool   `json:"free_preview"`
	Locked         bool   `json:"locked"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

type PlaybackURLResponse struct {
	URL string `json:"url"`
}

type PlaybackResponse struct {
	State                  string `json:"state"`
	Kind                   string `json:"kind,omitempty"`
	URL                    string `json:"url,omitempty"`
	FreePreview            bool   `json:"free_preview"`
	Locked                 bool   `json:"locked"`
	PreviewDurationSeconds int    `json:"preview_duration_seconds"`
}

type MigrateRequest struct {
	TargetProvider string `json:"target_provider"`
}

// VideoHandler handles video content HTTP requests.
type VideoHandler struct {
	svc            usecase.StorageService
	maxUploadBytes int64
}

// NewVideoHandler creates a new VideoHandler. maxUploadBytes caps the
// multipart body; zero disables the cap.
func NewVideoHandler(svc usecase.StorageService, maxUploadBytes int64) *VideoHandler {
	return &VideoHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// Create handles POST /v1/videos (multipart form).
// Fields: course_id, title, free_preview, locked, and either a "file" part
// or an external_url field.
func (h *VideoHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	// Streamed parse: the file part is read directly off the wire rather
	// than buffered, so Part ordering matters (file must come last).
	reader, err := r.MultipartReader()
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Request must be multipart/form-data")
		return
	}

	input := usecase.UploadVideoInput{}
	var courseIDRaw string

	for input.Reader == nil {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			Error(w, http.StatusBadRequest, "invalid_request", "Malformed multipart body")
			return
		}

		if part.FormName() == "file" {
			if input.Size <= 0 {
				Error(w, http.StatusBadRequest, "invalid_size", "size_bytes field must precede the file part")
				return
			}
			input.FileName = part.FileName()
			input.ContentType = part.Header.Get("Content-Type")
			input.Reader = part
			continue
		}

		value, rerr := readFormValue(part)
		if rerr != nil {
			Error(w, http.StatusBadRequest, "invalid_request", "Malformed multipart body")
			return
		}
		switch part.FormName() {
		case "course_id":
			courseIDRaw = value
		case "title":
			input.Title = value
		case "free_preview":
			input.FreePreview = value == "true"
		case "locked":
			input.Locked = value == "true"
		case "external_url":
			input.ExternalURL = value
		case "size_bytes":
			size, perr := strconv.ParseInt(value, 10, 64)
			if perr != nil || size <= 0 {
				Error(w, http.StatusBadRequest, "invalid_size", "size_bytes must be a positive integer")
				return
			}
			input.Size = size
		}
	}

	courseID, err := uuid.Parse(courseIDRaw)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_course_id", "Course ID must be a valid UUID")
		return
	}
	input.CourseID = courseID

	if input.ExternalURL == "" && input.Reader == nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Either a file part or external_url is required")
		return
	}

	content, err := h.svc.UploadVideo(r.Context(), input, nil)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusCreated, toVideoResponse(content))
}

// Get handles GET /v1/videos/{id}
func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	contentID, ok := parseContentID(w, r)
	if !ok {
		return
	}

	content, err := h.svc.GetVideo(r.Context(), contentID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, toVideoResponse(content))
}

// ListByCourse handles GET /v1/courses/{courseID}/videos
func (h *VideoHandler) ListByCourse(w http.ResponseWriter, r *http.Request) {
	courseID, err := uuid.Parse(chi.URLParam(r, "courseID"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_course_id", "Course ID must be a valid UUID")
		return
	}

	contents, err := h.svc.ListCourseVideos(r.Context(), courseID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	resp := make([]VideoResponse, 0, len(contents))
	for _, c := range contents {
		resp = append(resp, toVideoResponse(c))
	}
	JSON(w, http.StatusOK, resp)
}

// GetURL handles GET /v1/videos/{id}/url
func (h *VideoHandler) GetURL(w http.ResponseWriter, r *http.Request) {
	contentID, ok := parseContentID(w, r)
	if !ok {
		return
	}

	url, err := h.svc.GetPlaybackURL(r.Context(), contentID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, PlaybackURLResponse{URL: url})
}

// GetPlayback handles GET /v1/videos/{id}/playback?has_access=true
// It returns the playback descriptor the player renders from: lifecycle
// state, presentation kind, URL and the preview gate configuration.
func (h *VideoHandler) GetPlayback(w http.ResponseWriter, r *http.Request) {
	contentID, ok := parseContentID(w, r)
	if !ok {
		return
	}
	hasAccess := r.URL.Query().Get("has_access") == "true"

	content, err := h.svc.GetVideo(r.Context(), contentID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	cfg := playback.DefaultSessionConfig()
	session := playback.NewSession(
		&playbackSource{svc: h.svc, contentID: contentID, migrationState: content.MigrationState},
		content.Locked, content.FreePreview, hasAccess, cfg,
	)
	state := session.Start(r.Context())
	session.Close()

	JSON(w, http.StatusOK, PlaybackResponse{
		State:                  string(state),
		Kind:                   string(session.Kind()),
		URL:                    session.URL(),
		FreePreview:            content.FreePreview,
		Locked:                 content.Locked,
		PreviewDurationSeconds: int(cfg.PreviewDuration / time.Second),
	})
}

// Delete handles DELETE /v1/videos/{id}
func (h *VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	contentID, ok := parseContentID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteVideo(r.Context(), contentID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Migrate handles POST /v1/videos/{id}/migrate
func (h *VideoHandler) Migrate(w http.ResponseWriter, r *http.Request) {
	contentID, ok := parseContentID(w, r)
	if !ok {
		return
	}

	var req MigrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if err := h.svc.RequestMigration(r.Context(), contentID, model.Provider(req.TargetProvider)); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *VideoHandler) handleServiceError(w http.ResponseWriter, err error) {
	var uploadErr *storage.UploadError
	switch {
	case errors.Is(err, repository.ErrContentNotFound):
		Error(w, http.StatusNotFound, "content_not_found", "Video content not found")
	case errors.Is(err, repository.ErrSettingsNotFound):
		Error(w, http.StatusConflict, "settings_not_found", "Storage settings have not been configured")
	case errors.Is(err, model.ErrInvalidCourseID):
		Error(w, http.StatusBadRequest, "invalid_course_id", "Course ID cannot be empty")
	case errors.Is(err, model.ErrEmptyTitle):
		Error(w, http.StatusBadRequest, "invalid_title", "Title cannot be empty")
	case errors.Is(err, model.ErrTitleTooLong):
		Error(w, http.StatusBadRequest, "invalid_title", "Title exceeds maximum length")
	case errors.Is(err, usecase.ErrFileTooLarge):
		Error(w, http.StatusRequestEntityTooLarge, "file_too_large", "File exceeds the configured size limit")
	case errors.Is(err, usecase.ErrMissingStoragePath):
		Error(w, http.StatusConflict, "missing_storage_path", "Content record has no storage path")
	case errors.Is(err, usecase.ErrInvalidOperation):
		Error(w, http.StatusConflict, "invalid_operation", err.Error())
	case errors.Is(err, storage.ErrUnsupportedProvider):
		Error(w, http.StatusBadRequest, "unsupported_provider", "Unknown storage provider")
	case errors.Is(err, storage.ErrNotConfigured):
		Error(w, http.StatusConflict, "provider_not_configured", "The storage provider is not fully configured")
	case errors.Is(err, storage.ErrAuthentication):
		// Surface the actionable credentials hint to the admin console.
		Error(w, http.StatusBadGateway, "storage_authentication", err.Error())
	case errors.As(err, &uploadErr):
		Error(w, http.StatusBadGateway, "upload_failed", uploadErr.Error())
	default:
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// playbackSource adapts the storage service to the playback MediaSource.
// A pending migration is reported as processing so the player polls instead
// of failing.
type playbackSource struct {
	svc            usecase.StorageService
	contentID      uuid.UUID
	migrationState model.MigrationState
}

func (p *playbackSource) Resolve(ctx context.Context) (string, bool, error) {
	if p.migrationState == model.MigrationPending {
		return "", true, nil
	}
	url, err := p.svc.GetPlaybackURL(ctx, p.contentID)
	if err != nil {
		return "", false, err
	}
	return url, false, nil
}

// maxFormValueBytes bounds non-file form fields.
const maxFormValueBytes = 1 << 20

func readFormValue(part *multipart.Part) (string, error) {
	var sb strings.Builder
	if _, err := io.Copy(&sb, io.LimitReader(part, maxFormValueBytes)); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func parseContentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	contentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_content_id", "Content ID must be a valid UUID")
		return uuid.Nil, false
	}
	return contentID, true
}

func toVideoResponse(c *model.VideoContent) VideoResponse {
	return VideoResponse{
		ID:             c.ID.String(),
		CourseID:       c.CourseID.String(),
		Title:          c.Title,
		Provider:       c.Provider.String(),
		StoragePath:    c.StoragePath,
		RawURL:         c.RawURL,
		SizeBytes:      c.SizeBytes,
		MigrationState: c.MigrationState.String(),
		FreePreview:    c.FreePreview,
		Locked:         c.Locked,
		CreatedAt:      c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      c.UpdatedAt.Format(time.RFC3339),
	}
}
