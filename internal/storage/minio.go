package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	// objectStoreChunkThreshold is the size above which uploads switch from a
	// single PUT to sequential multipart parts.
	objectStoreChunkThreshold = 50 * 1024 * 1024
	// objectStorePartSize keeps every multipart part at 6MiB so a file of
	// size S produces exactly ceil(S/6MiB) part requests.
	objectStorePartSize = 6 * 1024 * 1024
)

// minioClient defines the subset of MinIO operations the provider uses.
// This abstraction allows unit testing with fakes.
type minioClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// ObjectStoreConfig holds connection settings for the S3-compatible store.
type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ObjectStoreProvider stores videos in an S3-compatible bucket (MinIO).
// It is the "direct" provider: bytes go straight from this service to the
// bucket, and playback URLs are presigned GETs.
type ObjectStoreProvider struct {
	client minioClient
	bucket string
}

var (
	_ Uploader    = (*ObjectStoreProvider)(nil)
	_ URLResolver = (*ObjectStoreProvider)(nil)
	_ Deleter     = (*ObjectStoreProvider)(nil)
)

// NewObjectStoreProvider connects to the S3-compatible store and verifies the
// bucket exists, failing fast on misconfiguration.
func NewObjectStoreProvider(ctx context.Context, cfg ObjectStoreConfig) (*ObjectStoreProvider, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return newObjectStoreProvider(ctx, client, cfg.Bucket)
}

// newObjectStoreProvider creates a provider with a given minioClient.
// Used for dependency injection in tests.
func newObjectStoreProvider(ctx context.Context, client minioClient, bucket string) (*ObjectStoreProvider, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: bucket %q does not exist", ErrNotConfigured, bucket)
	}
	return &ObjectStoreProvider{client: client, bucket: bucket}, nil
}

// Upload streams the object into the bucket. Files at or below the chunk
// threshold go up as a single PUT; larger files use sequential 6MiB multipart
// parts (one in-flight part at a time, so progress is monotonic and
// deterministic). The requested path is never rewritten by this backend.
func (p *ObjectStoreProvider) Upload(ctx context.Context, obj Object, path string, progress ProgressFunc) (string, error) {
	opts := minio.PutObjectOptions{
		ContentType: obj.ContentType,
	}
	if obj.Size > objectStoreChunkThreshold {
		opts.PartSize = objectStorePartSize
		opts.NumThreads = 1
	}

	reader := newProgressReader(obj.Reader, obj.Size, progress)
	if _, err := p.client.PutObject(ctx, p.bucket, path, reader, obj.Size, opts); err != nil {
		return "", &UploadError{Provider: "object_store", Err: err, Body: minio.ToErrorResponse(err).Message}
	}
	reader.finish()
	return path, nil
}

// ResolveURL returns a presigned GET URL valid for the given expiry.
func (p *ObjectStoreProvider) ResolveURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	signed, err := p.client.PresignedGetObject(ctx, p.bucket, path, expiry, make(url.Values))
	if err != nil {
		return "", fmt.Errorf("failed to presign object URL: %w", err)
	}
	return signed.String(), nil
}

// Delete removes the object from the bucket. A missing object is not an
// error; deletion is idempotent.
func (p *ObjectStoreProvider) Delete(ctx context.Context, path string) error {
	if err := p.client.RemoveObject(ctx, p.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		return &DeleteError{Provider: "object_store", Err: err, Body: minio.ToErrorResponse(err).Message}
	}
	return nil
}

// Set returns the provider bundled as a ProviderSet.
func (p *ObjectStoreProvider) Set() ProviderSet {
	return ProviderSet{Uploader: p, Resolver: p, Deleter: p}
}

// progressReader reports cumulative bytes read through it. Reports fire when
// the integer percentage advances, and finish() guarantees the terminal 100%
// report even for empty files.
type progressReader struct {
	r        io.Reader
	total    int64
	loaded   int64
	lastPct  int
	fn       ProgressFunc
	finished bool
}

func newProgressReader(r io.Reader, total int64, fn ProgressFunc) *progressReader {
	return &progressReader{r: r, total: total, lastPct: -1, fn: fn}
}

func (pr *progressReader) Read(b []byte) (int, error) {
	n, err := pr.r.Read(b)
	if n > 0 {
		pr.loaded += int64(n)
		pct := 100
		if pr.total > 0 {
			pct = int(pr.loaded * 100 / pr.total)
			if pct > 100 {
				pct = 100
			}
		}
		if pct > pr.lastPct && pr.fn != nil {
			pr.lastPct = pct
			reportProgress(pr.fn, pr.loaded, pr.total)
			if pct == 100 {
				pr.finished = true
			}
		}
	}
	return n, err
}

func (pr *progressReader) finish() {
	if pr.finished {
		return
	}
	pr.finished = true
	reportProgress(pr.fn, pr.loaded, pr.total)
}
