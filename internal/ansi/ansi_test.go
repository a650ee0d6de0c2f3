package ansi

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriter_StripsSequences(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   string
	}{
		{
			name:   "plain text",
			chunks: []string{"zxdb console ready\n"},
			want:   "zxdb console ready\n",
		},
		{
			name:   "prompt colors",
			chunks: []string{"\x1b[32m[zxdb]\x1b[0m attach 1234\r\n"},
			want:   "[zxdb] attach 1234\r\n",
		},
		{
			name:   "sequence split across writes",
			chunks: []string{"Connecting\x1b[", "33", "m to 127.0.0.1\x1b", "[0m\r\n"},
			want:   "Connecting to 127.0.0.1\r\n",
		},
		{
			name:   "unicode around sequences",
			chunks: []string{"✓ \x1b[36mready\x1b[0m\n"},
			want:   "✓ ready\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			w := NewWriter(&buf)

			for _, chunk := range tt.chunks {
				n, err := w.Write([]byte(chunk))
				if err != nil {
					t.Fatalf("Write(%q) error = %v", chunk, err)
				}

				if n != len(chunk) {
					t.Fatalf("Write(%q) = %d, want %d", chunk, n, len(chunk))
				}
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("written = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriter_HoldsPartialLineUntilFlush(t *testing.T) {
	var buf bytes.Buffer

	w := NewWriter(&buf)

	if _, err := w.Write([]byte("[zxdb] \x1b[1m")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if buf.Len() != 0 {
		t.Fatalf("partial line written early: %q", buf.String())
	}

	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	if got := buf.String(); got != "[zxdb] " {
		t.Errorf("flushed = %q, want %q", got, "[zxdb] ")
	}
}

func TestWriter_ReleasesLongLines(t *testing.T) {
	var buf bytes.Buffer

	w := NewWriter(&buf)
	long := strings.Repeat("x", maxPending)

	if _, err := w.Write([]byte(long)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if buf.Len() != maxPending {
		t.Errorf("written %d bytes, want %d", buf.Len(), maxPending)
	}
}
