package errfmt

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate_ShortPassthrough(t *testing.T) {
	result := Truncate("short message")
	if result != "short message" {
		t.Errorf("Truncate() = %q, want %q", result, "short message")
	}
}

func TestTruncate_LongMessage(t *testing.T) {
	longMsg := strings.Repeat("x", MaxLen+500)
	result := Truncate(longMsg)
	if len(result) != MaxLen {
		t.Errorf("len(result) = %d, want %d", len(result), MaxLen)
	}
}

func TestTruncate_UTF8Boundary(t *testing.T) {
	prefix := strings.Repeat("x", MaxLen-2)
	input := prefix + "\U0001F600" // 4-byte emoji straddles the limit
	result := Truncate(input)
	if len(result) > MaxLen {
		t.Errorf("len(result) = %d, want <= %d", len(result), MaxLen)
	}
	if !utf8.ValidString(result) {
		t.Error("result is not valid UTF-8")
	}
	if result != prefix {
		t.Errorf("expected the partial rune to be dropped")
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Lean (version 3.4.2)", "Lean (version 3.4.2)"},
		{"empty", "", ""},
		{"control chars", "bad\x00ver\tsion\r\n", "bad ver sion"},
		{"trimmed", "  padded  ", "padded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summary(tt.in); got != tt.want {
				t.Errorf("Summary(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSummary_Capped(t *testing.T) {
	got := Summary(strings.Repeat("é", MaxSummaryLen))
	if len(got) > MaxSummaryLen {
		t.Errorf("len = %d, want <= %d", len(got), MaxSummaryLen)
	}
	if !utf8.ValidString(got) {
		t.Error("summary is not valid UTF-8")
	}
}
