package filename

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestPartSuffix(t *testing.T) {
	tests := []struct {
		part int
		want string
	}{
		{0, ""},
		{1, "_part_0001"},
		{12, "_part_0012"},
		{9999, "_part_9999"},
	}

	for _, tt := range tests {
		if got := PartSuffix(tt.part); got != tt.want {
			t.Errorf("PartSuffix(%d) = %q, want %q", tt.part, got, tt.want)
		}
	}
}

func TestResolver_ChunkDefaults(t *testing.T) {
	r := New(zerolog.Nop(), "", "base", "json", false)

	tests := []struct {
		index int
		part  int
		want  string
	}{
		{0, 0, "base_chunk_0000.json"},
		{3, 0, "base_chunk_0003.json"},
		{0, 2, "base_chunk_0000_part_0002.json"},
		{41, 1, "base_chunk_0041_part_0001.json"},
	}

	for _, tt := range tests {
		if got := r.Chunk(tt.index, tt.part); got != tt.want {
			t.Errorf("Chunk(%d, %d) = %q, want %q", tt.index, tt.part, got, tt.want)
		}
	}
}

func TestResolver_KeyDefaults(t *testing.T) {
	r := New(zerolog.Nop(), "", "out", "jsonl", true)

	if got := r.Key("A", 0); got != "out_key_A.jsonl" {
		t.Errorf("Key(A, 0) = %q, want out_key_A.jsonl", got)
	}
	if got := r.Key("A", 1); got != "out_key_A_part_0001.jsonl" {
		t.Errorf("Key(A, 1) = %q, want out_key_A_part_0001.jsonl", got)
	}
	if got := r.Key("__missing_key__", 0); got != "out_key___missing_key__.jsonl" {
		t.Errorf("Key(__missing_key__, 0) = %q, want out_key___missing_key__.jsonl", got)
	}
}

func TestResolver_CustomTemplate(t *testing.T) {
	r := New(zerolog.Nop(), "{base_name}-{index}.{ext}", "data", "json", false)

	if got := r.Chunk(7, 0); got != "data-0007.json" {
		t.Errorf("Chunk(7, 0) = %q, want data-0007.json", got)
	}
}

func TestResolver_KeyedAutoCorrect(t *testing.T) {
	// A numeric-index template applied to key naming substitutes the key
	// string instead of failing.
	r := New(zerolog.Nop(), "{base_name}_key_{index:04d}{part}.{ext}", "b", "jsonl", true)

	if got := r.Key("west", 0); got != "b_key_west.jsonl" {
		t.Errorf("Key(west, 0) = %q, want b_key_west.jsonl", got)
	}
}

func TestResolver_FallbackOnUnknownPlaceholder(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	r := New(log, "{bogus}.{ext}", "base", "json", false)

	if got := r.Chunk(0, 0); got != "base_chunk_0000.json" {
		t.Errorf("Chunk(0, 0) = %q, want fallback base_chunk_0000.json", got)
	}
	if !strings.Contains(buf.String(), "filename template invalid") {
		t.Errorf("expected fallback warning in log, got: %s", buf.String())
	}
}

func TestResolver_FallbackOnSeparator(t *testing.T) {
	r := New(zerolog.Nop(), "{base_name}/{index}.{ext}", "base", "json", false)

	if got := r.Chunk(1, 0); got != "base_chunk_0001.json" {
		t.Errorf("Chunk(1, 0) = %q, want fallback base_chunk_0001.json", got)
	}
}

func TestResolver_FallbackOnEmptyResolution(t *testing.T) {
	r := New(zerolog.Nop(), "{part}", "base", "json", false)

	// Part 0 renders {part} as "", so the template resolves to nothing.
	if got := r.Chunk(0, 0); got != "base_chunk_0000.json" {
		t.Errorf("Chunk(0, 0) = %q, want fallback base_chunk_0000.json", got)
	}
}

func TestResolver_FallbackOnEscape(t *testing.T) {
	r := New(zerolog.Nop(), "..", "base", "json", false)

	if got := r.Chunk(0, 0); got != "base_chunk_0000.json" {
		t.Errorf("Chunk(0, 0) = %q, want fallback base_chunk_0000.json", got)
	}
}

func TestResolver_WarnsOnce(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	r := New(log, "{bogus}.{ext}", "base", "json", false)

	r.Chunk(0, 0)
	r.Chunk(1, 0)
	r.Chunk(2, 0)

	if n := strings.Count(buf.String(), `"level":"warn"`); n != 1 {
		t.Errorf("expected exactly 1 warning for a bad template, got %d: %s", n, buf.String())
	}
}
