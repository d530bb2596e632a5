package container

import (
	"errors"
	"testing"
)

func TestParseDockerSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"0B", 0},
		{"512B", 512},
		{"1KiB", 1024},
		{"356KiB", 356 * 1024},
		{"12.5MiB", 13107200},
		{"1GiB", 1 << 30},
		{"2kB", 2000},
		{"45MB", 45000000},
		{"1.5GB", 1500000000},
	}
	for _, tt := range tests {
		got, err := parseDockerSize(tt.in)
		if err != nil {
			t.Errorf("parseDockerSize(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseDockerSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseDockerSizeRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "100", "12 parsecs", "MiB"} {
		if _, err := parseDockerSize(in); err == nil {
			t.Errorf("parseDockerSize(%q) should fail", in)
		}
	}
}

func TestParseStats(t *testing.T) {
	got, err := parseStats(dockerStats{
		CPUPerc:  "42.75%",
		MemUsage: "12.5MiB / 100MiB",
	})
	if err != nil {
		t.Fatalf("parseStats: %v", err)
	}
	if got.CPUPercent != 42.75 {
		t.Errorf("cpu = %v, want 42.75", got.CPUPercent)
	}
	if got.MemUsedBytes != 13107200 {
		t.Errorf("mem used = %d, want 13107200", got.MemUsedBytes)
	}
	if got.MemLimitBytes != 100<<20 {
		t.Errorf("mem limit = %d, want %d", got.MemLimitBytes, int64(100<<20))
	}
}

func TestParseStatsMalformed(t *testing.T) {
	if _, err := parseStats(dockerStats{CPUPerc: "nope", MemUsage: "1MiB / 2MiB"}); err == nil {
		t.Error("expected error for bad cpu percentage")
	}
	if _, err := parseStats(dockerStats{CPUPerc: "1%", MemUsage: "no separator"}); err == nil {
		t.Error("expected error for bad mem usage")
	}
}

func TestClassifyCLIError(t *testing.T) {
	base := errors.New("exit status 1")

	err := classifyCLIError(base, []byte("Error response from daemon: No such container: sandbox"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	err = classifyCLIError(base, []byte("Cannot connect to the Docker daemon at unix:///var/run/docker.sock"))
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("expected ErrUnreachable, got %v", err)
	}

	err = classifyCLIError(base, []byte("something else entirely"))
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("unclassified failures default to ErrUnreachable, got %v", err)
	}
}

func TestBoundedBufferTruncates(t *testing.T) {
	b := &boundedBuffer{max: 10}
	n, _ := b.Write([]byte("0123456789abcdef"))
	if n != 16 {
		t.Errorf("Write returned %d, want 16 (writes are swallowed, not failed)", n)
	}
	if b.String() != "0123456789" {
		t.Errorf("buffer = %q, want first 10 bytes", b.String())
	}
	if !b.truncated {
		t.Error("buffer should be marked truncated")
	}
}
