package logsink

import (
	"bytes"
	"slices"
	"testing"
	"unicode/utf8"
)

func TestBuffer_AppendAndLines(t *testing.T) {
	b := NewBuffer(0)
	b.Append("partial ")
	b.Append("chunk\n")
	b.AppendLine("----- user triggered restart -----")

	want := []string{"partial chunk", "----- user triggered restart -----"}
	if got := b.Lines(); !slices.Equal(got, want) {
		t.Errorf("Lines() = %q, want %q", got, want)
	}
}

func TestBuffer_MaxBytesKeepsTail(t *testing.T) {
	b := NewBuffer(5)
	b.Append("abc")
	b.Append("defg")
	if got := b.String(); got != "cdefg" {
		t.Errorf("String() = %q, want %q", got, "cdefg")
	}
}

func TestBuffer_MaxBytesKeepsRuneBoundary(t *testing.T) {
	b := NewBuffer(5)
	b.Append("ab")
	b.Append("ℕℕ") // 3 bytes each; a 5-byte tail starts inside the first ℕ

	got := b.String()
	if !utf8.ValidString(got) {
		t.Fatalf("String() = %q is not valid UTF-8", got)
	}
	if got != "ℕ" {
		t.Errorf("String() = %q, want %q", got, "ℕ")
	}
}

func TestBuffer_ClearAndShow(t *testing.T) {
	b := NewBuffer(0)
	b.AppendLine("x")
	b.Show()
	b.Show()
	b.Clear()
	if b.String() != "" || b.Lines() != nil {
		t.Errorf("after Clear: %q", b.String())
	}
	if b.Shown() != 2 {
		t.Errorf("Shown() = %d, want 2", b.Shown())
	}
}

func TestWriter(t *testing.T) {
	var out bytes.Buffer
	shown := 0
	w := NewWriter(&out, func() { shown++ })
	w.Append("stderr: ")
	w.AppendLine("boom")
	w.Show()
	w.Clear()

	if out.String() != "stderr: boom\n" {
		t.Errorf("written = %q", out.String())
	}
	if shown != 1 {
		t.Errorf("onShow calls = %d, want 1", shown)
	}
}

func TestWriter_NilShowHook(_ *testing.T) {
	NewWriter(&bytes.Buffer{}, nil).Show()
}

func TestDiscard(_ *testing.T) {
	Discard.Append("x")
	Discard.AppendLine("y")
	Discard.Show()
	Discard.Clear()
}
