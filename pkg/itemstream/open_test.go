package itemstream

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
)

const openTestDoc = `[{"id": 1}, {"id": 2}, {"id": 3}]`

func drainOpen(t *testing.T, path string) int {
	t.Helper()
	s, err := Open(path, "item")
	if err != nil {
		t.Fatalf("Open(%s): %v", path, err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	}()

	n := 0
	for s.Next() {
		n++
	}
	if err := s.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}
	return n
}

func TestOpen_PlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte(openTestDoc), 0o644); err != nil {
		t.Fatal(err)
	}

	if n := drainOpen(t, path); n != 3 {
		t.Errorf("expected 3 items, got %d", n)
	}
}

func TestOpen_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	gw := gzip.NewWriter(f)
	if _, err := gw.Write([]byte(openTestDoc)); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	if n := drainOpen(t, path); n != 3 {
		t.Errorf("expected 3 items from gzip input, got %d", n)
	}
}

func TestOpen_Zstd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json.zst")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw, err := zstd.NewWriter(f)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := zw.Write([]byte(openTestDoc)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	if n := drainOpen(t, path); n != 3 {
		t.Errorf("expected 3 items from zstd input, got %d", n)
	}
}

func TestOpen_MissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "absent.json"), "item"); err == nil {
		t.Error("expected error opening a missing file")
	}
}

func TestCompressionExt(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"data.json", ""},
		{"data.json.gz", ".gz"},
		{"data.json.gzip", ".gzip"},
		{"data.json.zst", ".zst"},
		{"data.json.zstd", ".zstd"},
		{"DATA.JSON.GZ", ".gz"},
		{"archive.tar", ""},
	}

	for _, tt := range tests {
		if got := CompressionExt(tt.path); got != tt.want {
			t.Errorf("CompressionExt(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestStripCompression(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"data.json", "data.json"},
		{"data.json.gz", "data.json"},
		{"data.json.zstd", "data.json"},
		{"DATA.JSON.GZ", "DATA.JSON"},
	}

	for _, tt := range tests {
		if got := StripCompression(tt.path); got != tt.want {
			t.Errorf("StripCompression(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
