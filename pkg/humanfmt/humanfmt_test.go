package humanfmt

import (
	"testing"
	"time"
)

func TestBytes(t *testing.T) {
	tests := []struct {
		input int64
		want  string
	}{
		{0, "0 B"},
		{1, "1 B"},
		{100, "100 B"},
		{1023, "1023 B"},
		{1024, "1.00 KiB"},
		{1536, "1.50 KiB"},
		{1048576, "1.00 MiB"},
		{1572864, "1.50 MiB"},
		{1073741824, "1.00 GiB"},
		{1610612736, "1.50 GiB"},
		{1099511627776, "1.00 TiB"},
		{1649267441664, "1.50 TiB"},
		{-100, "-100 B"},
	}

	for _, tt := range tests {
		got := Bytes(tt.input)
		if got != tt.want {
			t.Errorf("Bytes(%d) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		input time.Duration
		want  string
	}{
		{0, "0ns"},
		{500 * time.Nanosecond, "500ns"},
		{1 * time.Microsecond, "1.0µs"},
		{500 * time.Microsecond, "500.0µs"},
		{1 * time.Millisecond, "1.0ms"},
		{1500 * time.Millisecond, "1.50s"},
		{1 * time.Second, "1.00s"},
		{1230 * time.Millisecond, "1.23s"},
		{59 * time.Second, "59.00s"},
		{60 * time.Second, "1m"},
		{90 * time.Second, "1m30s"},
		{3600 * time.Second, "1h"},
		{3660 * time.Second, "1h1m"},
		{7200 * time.Second, "2h"},
		{8100 * time.Second, "2h15m"},
	}

	for _, tt := range tests {
		got := Duration(tt.input)
		if got != tt.want {
			t.Errorf("Duration(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestThroughput(t *testing.T) {
	tests := []struct {
		bytes    int64
		duration time.Duration
		want     string
	}{
		{0, time.Second, "0 B/s"},
		{1000, time.Second, "1000 B/s"},
		{1024, time.Second, "1.00 KiB/s"},
		{1048576, time.Second, "1.00 MiB/s"},
		{104857600, time.Second, "100.00 MiB/s"},
		{1073741824, time.Second, "1.00 GiB/s"},
		{1048576, 2 * time.Second, "512.00 KiB/s"},
		{0, 0, "∞"},
	}

	for _, tt := range tests {
		got := Throughput(tt.bytes, tt.duration)
		if got != tt.want {
			t.Errorf("Throughput(%d, %v) = %q, want %q", tt.bytes, tt.duration, got, tt.want)
		}
	}
}

func TestCount(t *testing.T) {
	tests := []struct {
		input int64
		want  string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.00K"},
		{1500, "1.50K"},
		{1000000, "1.00M"},
		{1500000, "1.50M"},
		{1000000000, "1.00B"},
		{1500000000, "1.50B"},
		{-100, "-100"},
	}

	for _, tt := range tests {
		got := Count(tt.input)
		if got != tt.want {
			t.Errorf("Count(%d) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPerSecond(t *testing.T) {
	tests := []struct {
		n    int64
		d    time.Duration
		want string
	}{
		{0, time.Second, "0.0/s"},
		{500, time.Second, "500.0/s"},
		{1500, time.Second, "1.50K/s"},
		{3000000, time.Second, "3.00M/s"},
		{1000, 2 * time.Second, "500.0/s"},
		{10, 0, "∞"},
	}

	for _, tt := range tests {
		got := PerSecond(tt.n, tt.d)
		if got != tt.want {
			t.Errorf("PerSecond(%d, %v) = %q, want %q", tt.n, tt.d, got, tt.want)
		}
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"0", 0},
		{"1024", 1024},
		{"100B", 100},
		{"1KB", 1024},
		{"1K", 1024},
		{"10kb", 10240},
		{"200KB", 204800},
		{"1MB", 1048576},
		{"10MB", 10485760},
		{"1.5MB", 1572864},
		{"2GB", 2147483648},
		{"1.5G", 1610612736},
		{"1TB", 1099511627776},
		{" 5MB ", 5242880},
		{"0.5KB", 512},
	}

	for _, tt := range tests {
		got, err := ParseBytes(tt.input)
		if err != nil {
			t.Errorf("ParseBytes(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestParseBytes_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"abc",
		"-5MB",
		"10XB",
		"MB",
		"10 MB extra",
		"1..5MB",
	}

	for _, input := range inputs {
		if _, err := ParseBytes(input); err == nil {
			t.Errorf("ParseBytes(%q) expected error, got nil", input)
		}
	}
}

func BenchmarkBytes(b *testing.B) {
	sizes := []int64{100, 1024, 1048576, 1073741824}
	b.ResetTimer()
	for i := range b.N {
		_ = Bytes(sizes[i%len(sizes)])
	}
}

func BenchmarkParseBytes(b *testing.B) {
	inputs := []string{"100", "10MB", "1.5G", "200KB"}
	b.ResetTimer()
	for i := range b.N {
		_, _ = ParseBytes(inputs[i%len(inputs)])
	}
}
