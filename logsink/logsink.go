// Package logsink provides the diagnostic log surface the supervisor writes
// engine stderr output and restart separators to.
//
// A Sink is constructed once by the host and injected into the supervisor;
// there is no process-wide log.
package logsink

import (
	"io"
	"strings"
	"sync"
	"unicode/utf8"
)

// Sink is an append-only diagnostic log that can be brought to the user's
// attention.
type Sink interface {
	// Append writes text verbatim.
	Append(text string)

	// AppendLine writes line followed by a newline.
	AppendLine(line string)

	// Show asks the host to surface the log to the user.
	Show()

	// Clear discards the log contents, where the medium allows it.
	Clear()
}

// Writer is a Sink backed by an io.Writer. Clear is a no-op because written
// output cannot be taken back; Show invokes the optional OnShow hook.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	onShow func()
}

var _ Sink = (*Writer)(nil)

// NewWriter returns a Sink writing to w. onShow may be nil.
func NewWriter(w io.Writer, onShow func()) *Writer {
	return &Writer{w: w, onShow: onShow}
}

func (s *Writer) Append(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, text) // best-effort: the log must never fail the caller
}

func (s *Writer) AppendLine(line string) {
	s.Append(line + "\n")
}

func (s *Writer) Show() {
	if s.onShow != nil {
		s.onShow()
	}
}

func (s *Writer) Clear() {}

// Buffer is an in-memory Sink. It keeps at most maxBytes of the most recent
// output (0 means unbounded), never splitting a UTF-8 sequence, and counts
// Show requests.
type Buffer struct {
	mu       sync.Mutex
	b        strings.Builder
	shown    int
	maxBytes int
}

var _ Sink = (*Buffer)(nil)

// NewBuffer returns an in-memory Sink retaining at most maxBytes.
func NewBuffer(maxBytes int) *Buffer {
	return &Buffer{maxBytes: maxBytes}
}

func (s *Buffer) Append(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.b.WriteString(text)
	if s.maxBytes > 0 && s.b.Len() > s.maxBytes {
		text := s.b.String()
		cut := len(text) - s.maxBytes
		for cut < len(text) && !utf8.RuneStart(text[cut]) {
			cut++
		}
		keep := text[cut:]
		s.b.Reset()
		s.b.WriteString(keep)
	}
}

func (s *Buffer) AppendLine(line string) {
	s.Append(line + "\n")
}

func (s *Buffer) Show() {
	s.mu.Lock()
	s.shown++
	s.mu.Unlock()
}

func (s *Buffer) Clear() {
	s.mu.Lock()
	s.b.Reset()
	s.mu.Unlock()
}

// String returns the retained log contents.
func (s *Buffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

// Lines returns the retained contents split into lines, without a trailing
// empty element.
func (s *Buffer) Lines() []string {
	text := strings.TrimSuffix(s.String(), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// Shown returns how many times Show was called.
func (s *Buffer) Shown() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shown
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Append(string)     {}
func (discard) AppendLine(string) {}
func (discard) Show()             {}
func (discard) Clear()            {}
