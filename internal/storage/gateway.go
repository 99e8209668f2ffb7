package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// gatewayChunkSize is the fixed chunk size for the three-phase upload
	// protocol. Chunks are sent strictly sequentially.
	gatewayChunkSize = 50 * 1024 * 1024

	headerUploadID    = "X-Upload-ID"
	headerChunkIndex  = "X-Chunk-Index"
	headerTotalChunks = "X-Total-Chunks"
)

// httpDoer is the client seam for gateway and CDN providers, satisfied by
// *http.Client and by test fakes.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// GatewayConfig holds the worker gateway endpoints from storage settings.
type GatewayConfig struct {
	// Endpoint is the gateway base URL. Required for every operation.
	Endpoint string
	// PublicBaseURL, when set, lets ResolveURL build playback URLs by
	// concatenation instead of a round trip to the gateway.
	PublicBaseURL string
}

// GatewayProvider uploads through a worker-mediated gateway that fronts the
// actual object store. The wire protocol is three-phase:
//
//	POST {endpoint}/upload            -> {"upload_id": ...}
//	PUT  {endpoint}/chunk   (x N)     headers: X-Upload-ID, X-Chunk-Index, X-Total-Chunks
//	POST {endpoint}/complete          -> {"object_key": ...}
//
// The object key returned by the complete phase is authoritative and may
// differ from the requested path.
type GatewayProvider struct {
	cfg       GatewayConfig
	client    httpDoer
	chunkSize int64
}

var (
	_ Uploader    = (*GatewayProvider)(nil)
	_ URLResolver = (*GatewayProvider)(nil)
	_ Deleter     = (*GatewayProvider)(nil)
)

func NewGatewayProvider(cfg GatewayConfig, client httpDoer) *GatewayProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &GatewayProvider{cfg: cfg, client: client, chunkSize: gatewayChunkSize}
}

// Set returns the provider bundled as a ProviderSet.
func (p *GatewayProvider) Set() ProviderSet {
	return ProviderSet{Uploader: p, Resolver: p, Deleter: p}
}

type gatewayInitiateRequest struct {
	FileName    string `json:"file_name"`
	CourseID    string `json:"course_id"`
	ContentType string `json:"content_type"`
	Path        string `json:"path"`
}

type gatewayInitiateResponse struct {
	UploadID string `json:"upload_id"`
}

type gatewayCompleteRequest struct {
	UploadID    string `json:"upload_id"`
	TotalChunks int    `json:"total_chunks"`
}

type gatewayCompleteResponse struct {
	ObjectKey string `json:"object_key"`
}

// Upload runs the three-phase protocol. Any phase failure aborts the whole
// upload; the error names the phase and, after initiate, the upload ID so an
// operator can clean up the abandoned session on the gateway side.
func (p *GatewayProvider) Upload(ctx context.Context, obj Object, path string, progress ProgressFunc) (string, error) {
	if p.cfg.Endpoint == "" {
		return "", fmt.Errorf("%w: gateway endpoint is not set", ErrNotConfigured)
	}

	uploadID, err := p.initiate(ctx, obj, path)
	if err != nil {
		return "", fmt.Errorf("gateway initiate: %w", err)
	}

	totalChunks := int((obj.Size + p.chunkSize - 1) / p.chunkSize)
	if totalChunks == 0 {
		totalChunks = 1
	}

	var uploaded int64
	for i := 0; i < totalChunks; i++ {
		size := p.chunkSize
		if remaining := obj.Size - uploaded; remaining < size {
			size = remaining
		}
		chunk := make([]byte, size)
		if n, err := io.ReadFull(obj.Reader, chunk); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return "", fmt.Errorf("gateway upload %s: chunk %d: reader ended after %d of %d bytes", uploadID, i, uploaded+int64(n), obj.Size)
			}
			return "", fmt.Errorf("gateway upload %s: read chunk %d: %w", uploadID, i, err)
		}

		if err := p.putChunk(ctx, uploadID, i, totalChunks, chunk); err != nil {
			return "", fmt.Errorf("gateway upload %s: chunk %d/%d: %w", uploadID, i, totalChunks, err)
		}

		uploaded += size
		reportProgress(progress, uploaded, obj.Size)
	}

	objectKey, err := p.complete(ctx, uploadID, totalChunks)
	if err != nil {
		return "", fmt.Errorf("gateway upload %s: complete: %w", uploadID, err)
	}
	return objectKey, nil
}

func (p *GatewayProvider) initiate(ctx context.Context, obj Object, path string) (string, error) {
	var resp gatewayInitiateResponse
	err := p.postJSON(ctx, "/upload", gatewayInitiateRequest{
		FileName:    obj.FileName,
		CourseID:    obj.CourseID.String(),
		ContentType: obj.ContentType,
		Path:        path,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.UploadID == "" {
		return "", fmt.Errorf("gateway returned empty upload_id")
	}
	return resp.UploadID, nil
}

func (p *GatewayProvider) putChunk(ctx context.Context, uploadID string, index, total int, chunk []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.cfg.Endpoint+"/chunk", bytes.NewReader(chunk))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set(headerUploadID, uploadID)
	req.Header.Set(headerChunkIndex, strconv.Itoa(index))
	req.Header.Set(headerTotalChunks, strconv.Itoa(total))

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &UploadError{Provider: "gateway", StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}

func (p *GatewayProvider) complete(ctx context.Context, uploadID string, totalChunks int) (string, error) {
	var resp gatewayCompleteResponse
	err := p.postJSON(ctx, "/complete", gatewayCompleteRequest{
		UploadID:    uploadID,
		TotalChunks: totalChunks,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.ObjectKey == "" {
		return "", fmt.Errorf("gateway returned empty object_key")
	}
	return resp.ObjectKey, nil
}

// ResolveURL prefers simple concatenation onto the configured public base
// URL; without one it asks the gateway for a URL. With neither configured it
// fails fast.
func (p *GatewayProvider) ResolveURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	if p.cfg.PublicBaseURL != "" {
		return strings.TrimSuffix(p.cfg.PublicBaseURL, "/") + "/" + strings.TrimPrefix(path, "/"), nil
	}
	if p.cfg.Endpoint == "" {
		return "", fmt.Errorf("%w: neither gateway public base URL nor endpoint is set", ErrNotConfigured)
	}

	var resp struct {
		URL string `json:"url"`
	}
	err := p.postJSON(ctx, "/get-url", map[string]any{
		"path":           path,
		"expiry_seconds": int(expiry.Seconds()),
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("gateway get-url: %w", err)
	}
	return resp.URL, nil
}

// Delete asks the gateway to remove the object.
func (p *GatewayProvider) Delete(ctx context.Context, path string) error {
	if p.cfg.Endpoint == "" {
		return fmt.Errorf("%w: gateway endpoint is not set", ErrNotConfigured)
	}
	if err := p.postJSON(ctx, "/delete", map[string]string{"path": path}, nil); err != nil {
		return &DeleteError{Provider: "gateway", Err: err}
	}
	return nil
}

func (p *GatewayProvider) postJSON(ctx context.Context, route string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint+route, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gateway %s returned status %d: %s", route, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode gateway %s response: %w", route, err)
		}
	}
	return nil
}
