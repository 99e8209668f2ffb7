package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const headerAccessKey = "AccessKey"

// cdnAuthHint is appended to 401 failures so operators know where to look
// instead of chasing a generic network error.
const cdnAuthHint = "verify the storage zone AccessKey in the storage settings matches the zone's FTP & API password"

// CDNZoneConfig holds CDN storage zone settings.
type CDNZoneConfig struct {
	// StorageZoneURL is the write endpoint, e.g. https://storage.example.com/zone-name.
	StorageZoneURL string
	// AccessKey authenticates PUT and DELETE requests against the zone.
	AccessKey string
	// PullZoneURL is the public CDN base serving the zone's objects.
	PullZoneURL string
	// SecurityKey signs playback URL tokens. Held server-side only.
	SecurityKey string
}

// CDNZoneProvider stores videos in a CDN storage zone. Uploads are a single
// PUT (the zone imposes no chunking); playback URLs carry an HMAC-signed
// expiring token checked by the pull zone.
type CDNZoneProvider struct {
	cfg    CDNZoneConfig
	client httpDoer
}

var (
	_ Uploader    = (*CDNZoneProvider)(nil)
	_ URLResolver = (*CDNZoneProvider)(nil)
	_ Deleter     = (*CDNZoneProvider)(nil)
)

func NewCDNZoneProvider(cfg CDNZoneConfig, client httpDoer) *CDNZoneProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &CDNZoneProvider{cfg: cfg, client: client}
}

// Set returns the provider bundled as a ProviderSet.
func (p *CDNZoneProvider) Set() ProviderSet {
	return ProviderSet{Uploader: p, Resolver: p, Deleter: p}
}

// Upload PUTs the object to the storage zone in one request. A 401 maps to
// ErrAuthentication with a remediation hint; other failures carry the zone's
// response body. The requested path is never rewritten.
func (p *CDNZoneProvider) Upload(ctx context.Context, obj Object, path string, progress ProgressFunc) (string, error) {
	if p.cfg.StorageZoneURL == "" || p.cfg.AccessKey == "" {
		return "", fmt.Errorf("%w: CDN storage zone URL or access key is not set", ErrNotConfigured)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.objectURL(path), newProgressReader(obj.Reader, obj.Size, progress))
	if err != nil {
		return "", err
	}
	req.ContentLength = obj.Size
	req.Header.Set(headerAccessKey, p.cfg.AccessKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &UploadError{Provider: "cdn_zone", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", fmt.Errorf("%w: %s", ErrAuthentication, cdnAuthHint)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &UploadError{Provider: "cdn_zone", StatusCode: resp.StatusCode, Body: string(body)}
	}

	reportProgress(progress, obj.Size, obj.Size)
	return path, nil
}

// ResolveURL builds an expiring pull-zone URL:
//
//	{pullZone}/{path}?token={base64url(HMAC-SHA256(securityKey, path+expires))}&expires={unix}
//
// The HMAC covers path and expiry so observing one token does not let a
// client forge another.
func (p *CDNZoneProvider) ResolveURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	if p.cfg.PullZoneURL == "" || p.cfg.SecurityKey == "" {
		return "", fmt.Errorf("%w: CDN pull zone URL or security key is not set", ErrNotConfigured)
	}

	expires := time.Now().Add(expiry).Unix()
	cleanPath := "/" + strings.TrimPrefix(path, "/")

	mac := hmac.New(sha256.New, []byte(p.cfg.SecurityKey))
	fmt.Fprintf(mac, "%s%d", cleanPath, expires)
	token := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf("%s%s?token=%s&expires=%d",
		strings.TrimSuffix(p.cfg.PullZoneURL, "/"), cleanPath, token, expires), nil
}

// Delete removes the object from the storage zone. 404 is treated as
// success; 401 maps to ErrAuthentication like uploads.
func (p *CDNZoneProvider) Delete(ctx context.Context, path string) error {
	if p.cfg.StorageZoneURL == "" || p.cfg.AccessKey == "" {
		return fmt.Errorf("%w: CDN storage zone URL or access key is not set", ErrNotConfigured)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, p.objectURL(path), nil)
	if err != nil {
		return err
	}
	req.Header.Set(headerAccessKey, p.cfg.AccessKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return &DeleteError{Provider: "cdn_zone", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrAuthentication, cdnAuthHint)
	case resp.StatusCode == http.StatusNotFound:
		return nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &DeleteError{Provider: "cdn_zone", StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}

func (p *CDNZoneProvider) objectURL(path string) string {
	return strings.TrimSuffix(p.cfg.StorageZoneURL, "/") + "/" + strings.TrimPrefix(path, "/")
}
