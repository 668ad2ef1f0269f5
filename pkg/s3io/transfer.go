package s3io

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"jsonsplit/internal/logctx"
	"jsonsplit/pkg/humanfmt"
)

// TransferConfig tunes the S3 transfer managers.
type TransferConfig struct {
	// Concurrency is the number of parallel part transfers per object, and
	// the bound on simultaneous objects in UploadAll.
	// Default: NumCPU clamped to [4, 16].
	Concurrency int

	// PartSize is the transfer part size in bytes. Default: 16MB. Higher
	// values use more memory but may improve throughput.
	PartSize int64
}

// DefaultTransferConfig returns defaults sized to the current machine.
func DefaultTransferConfig() TransferConfig {
	concurrency := runtime.NumCPU()
	if concurrency < 4 {
		concurrency = 4
	}
	if concurrency > 16 {
		concurrency = 16
	}
	return TransferConfig{
		Concurrency: concurrency,
		PartSize:    16 * 1024 * 1024,
	}
}

func (c TransferConfig) withDefaults() TransferConfig {
	def := DefaultTransferConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.PartSize <= 0 {
		c.PartSize = def.PartSize
	}
	return c
}

// TransferResult reports one completed object transfer.
type TransferResult struct {
	Bytes    int64
	Duration time.Duration
}

// Transfer wraps the AWS transfer managers for parallel object movement.
type Transfer struct {
	down *manager.Downloader
	up   *manager.Uploader
	cfg  TransferConfig
}

// NewTransfer creates a Transfer over an existing client.
func NewTransfer(client *Client, cfg TransferConfig) *Transfer {
	cfg = cfg.withDefaults()

	down := manager.NewDownloader(client.s3, func(d *manager.Downloader) {
		d.Concurrency = cfg.Concurrency
		d.PartSize = cfg.PartSize
		d.BufferProvider = manager.NewPooledBufferedWriterReadFromProvider(int(cfg.PartSize))
	})
	up := manager.NewUploader(client.s3, func(u *manager.Uploader) {
		u.Concurrency = cfg.Concurrency
		u.PartSize = cfg.PartSize
	})

	return &Transfer{down: down, up: up, cfg: cfg}
}

// Config returns the effective transfer configuration.
func (t *Transfer) Config() TransferConfig {
	return t.cfg
}

// Download fetches s3://bucket/key into destPath using parallel range
// requests. The destination is removed again if the download fails.
func (t *Transfer) Download(ctx context.Context, bucket, key, destPath string) (*TransferResult, error) {
	log := logctx.FromContext(ctx)
	start := time.Now()

	f, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("create destination file: %w", err)
	}

	n, err := t.down.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		f.Close()
		os.Remove(destPath)
		return nil, fmt.Errorf("download s3://%s/%s: %w", bucket, key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("close %s: %w", destPath, err)
	}

	res := &TransferResult{Bytes: n, Duration: time.Since(start)}
	log.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Str("size", humanfmt.Bytes(n)).
		Str("throughput", humanfmt.Throughput(n, res.Duration)).
		Msg("object downloaded")
	return res, nil
}

// Upload stores srcPath at s3://bucket/key using multipart upload.
func (t *Transfer) Upload(ctx context.Context, bucket, key, srcPath string) (*TransferResult, error) {
	log := logctx.FromContext(ctx)
	start := time.Now()

	f, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", srcPath, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", srcPath, err)
	}

	if _, err := t.up.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		return nil, fmt.Errorf("upload s3://%s/%s: %w", bucket, key, err)
	}

	res := &TransferResult{Bytes: fi.Size(), Duration: time.Since(start)}
	log.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Str("size", humanfmt.Bytes(res.Bytes)).
		Str("throughput", humanfmt.Throughput(res.Bytes, res.Duration)).
		Msg("object uploaded")
	return res, nil
}

// UploadAll uploads every path under an S3 prefix, bounded by the configured
// concurrency. Object names are the file base names.
func (t *Transfer) UploadAll(ctx context.Context, bucket, prefix string, paths []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.Concurrency)

	for _, p := range paths {
		g.Go(func() error {
			key := ObjectKey(prefix, filepath.Base(p))
			if _, err := t.Upload(ctx, bucket, key, p); err != nil {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("wait for uploads: %w", err)
	}
	return nil
}

// ObjectKey joins a key prefix and an object name with exactly one slash.
func ObjectKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
