//go:build !windows

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/dmora/enginesup/internal/display"
	"github.com/dmora/enginesup/supervisor"
)

// printer serializes writes from status handlers, prompts and warnings.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *printer) println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, s)
}

func (p *printer) print(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.w, s)
}

// Warn implements supervisor.Notifier.
func (p *printer) Warn(message string) {
	p.println(display.Warning(message))
}

// terminalPrompter answers restart prompts from line-oriented input.
// Input lines are shared by all outstanding prompts in arrival order.
type terminalPrompter struct {
	out   *printer
	lines <-chan string
}

var _ supervisor.Prompter = (*terminalPrompter)(nil)

func newTerminalPrompter(in io.Reader, out *printer) *terminalPrompter {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- strings.TrimSpace(sc.Text())
		}
	}()
	return &terminalPrompter{out: out, lines: lines}
}

// Prompt shows p and waits for one line of input. End of input dismisses.
func (t *terminalPrompter) Prompt(ctx context.Context, p supervisor.Prompt) (string, error) {
	t.out.print(display.Prompt(p))
	select {
	case line, ok := <-t.lines:
		if !ok {
			return "", nil
		}
		return choose(p.Actions, line), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// choose maps an input line to one of actions, or "" for dismiss.
// Accepted: a 1-based index, an action name, or y/yes for a single action.
func choose(actions []string, input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(actions) {
			return actions[n-1]
		}
		return ""
	}
	for _, a := range actions {
		if strings.EqualFold(a, input) {
			return a
		}
	}
	if len(actions) == 1 && (strings.EqualFold(input, "y") || strings.EqualFold(input, "yes")) {
		return actions[0]
	}
	return ""
}
