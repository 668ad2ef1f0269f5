package s3io

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{
			uri:        "s3://my-bucket/path/to/data.json",
			wantBucket: "my-bucket",
			wantKey:    "path/to/data.json",
		},
		{
			uri:        "s3://bucket/key",
			wantBucket: "bucket",
			wantKey:    "key",
		},
		{
			uri:        "s3://bucket-only/",
			wantBucket: "bucket-only",
			wantKey:    "",
		},
		{
			uri:        "s3://bucket",
			wantBucket: "bucket",
			wantKey:    "",
		},
		{
			uri:     "https://bucket/key",
			wantErr: true,
		},
		{
			uri:     "/local/path",
			wantErr: true,
		},
		{
			uri:     "s3://",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, key, err := ParseURI(tt.uri)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if bucket != tt.wantBucket {
				t.Errorf("bucket = %q, want %q", bucket, tt.wantBucket)
			}
			if key != tt.wantKey {
				t.Errorf("key = %q, want %q", key, tt.wantKey)
			}
		})
	}
}

func TestDefaultTransferConfig(t *testing.T) {
	cfg := DefaultTransferConfig()

	if cfg.Concurrency < 4 {
		t.Errorf("Concurrency = %d, want >= 4", cfg.Concurrency)
	}
	if cfg.Concurrency > 16 {
		t.Errorf("Concurrency = %d, want <= 16", cfg.Concurrency)
	}
	if cfg.PartSize != 16*1024*1024 {
		t.Errorf("PartSize = %d, want 16MB", cfg.PartSize)
	}
}

func TestTransferConfig_WithDefaults(t *testing.T) {
	tests := []struct {
		name     string
		cfg      TransferConfig
		wantConc int
		wantPart int64
	}{
		{
			name:     "all zero",
			cfg:      TransferConfig{},
			wantConc: DefaultTransferConfig().Concurrency,
			wantPart: DefaultTransferConfig().PartSize,
		},
		{
			name:     "custom concurrency",
			cfg:      TransferConfig{Concurrency: 8},
			wantConc: 8,
			wantPart: DefaultTransferConfig().PartSize,
		},
		{
			name:     "custom part size",
			cfg:      TransferConfig{PartSize: 32 * 1024 * 1024},
			wantConc: DefaultTransferConfig().Concurrency,
			wantPart: 32 * 1024 * 1024,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.withDefaults()
			if got.Concurrency != tt.wantConc {
				t.Errorf("Concurrency = %d, want %d", got.Concurrency, tt.wantConc)
			}
			if got.PartSize != tt.wantPart {
				t.Errorf("PartSize = %d, want %d", got.PartSize, tt.wantPart)
			}
		})
	}
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		prefix string
		name   string
		want   string
	}{
		{"", "chunk_0000.json", "chunk_0000.json"},
		{"splits", "chunk_0000.json", "splits/chunk_0000.json"},
		{"splits/", "chunk_0000.json", "splits/chunk_0000.json"},
		{"/splits/", "chunk_0000.json", "splits/chunk_0000.json"},
		{"a/b", "x.jsonl", "a/b/x.jsonl"},
	}
	for _, tt := range tests {
		if got := ObjectKey(tt.prefix, tt.name); got != tt.want {
			t.Errorf("ObjectKey(%q, %q) = %q, want %q", tt.prefix, tt.name, got, tt.want)
		}
	}
}

// TestTransferIntegration requires AWS credentials and is skipped in CI.
// To run: go test -run TestTransferIntegration -v.
func TestTransferIntegration(t *testing.T) {
	if os.Getenv("AWS_INTEGRATION_TEST") == "" {
		t.Skip("skipping integration test; set AWS_INTEGRATION_TEST=1 to run")
	}
	bucket := os.Getenv("AWS_TEST_BUCKET")
	key := os.Getenv("AWS_TEST_KEY")
	if bucket == "" || key == "" {
		t.Skip("AWS_TEST_BUCKET and AWS_TEST_KEY required for integration test")
	}

	ctx := context.Background()
	client, err := NewClient(ctx)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	tr := NewTransfer(client, TransferConfig{})

	dest := filepath.Join(t.TempDir(), "object.bin")
	res, err := tr.Download(ctx, bucket, key, dest)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	fi, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("stat download: %v", err)
	}
	if fi.Size() != res.Bytes {
		t.Errorf("file is %d bytes, result reported %d", fi.Size(), res.Bytes)
	}
}
