// Package display renders supervisor state for terminals.
// It lives under internal so it is not importable by external code.
package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dmora/enginesup"
	"github.com/dmora/enginesup/capability"
	"github.com/dmora/enginesup/supervisor"
)

var (
	colorText    = lipgloss.Color("#cdd6f4")
	colorMuted   = lipgloss.Color("#7f849c")
	colorBlue    = lipgloss.Color("#89b4fa")
	colorGreen   = lipgloss.Color("#a6e3a1")
	colorPeach   = lipgloss.Color("#fab387")
	colorRed     = lipgloss.Color("#f38ba8")
	colorSubtext = lipgloss.Color("#bac2de")

	tagStyle     = lipgloss.NewStyle().Bold(true).Width(10)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	textStyle    = lipgloss.NewStyle().Foreground(colorText)
	locStyle     = lipgloss.NewStyle().Foreground(colorSubtext)
	promptStyle  = lipgloss.NewStyle().Foreground(colorBlue).Bold(true)
	actionsStyle = lipgloss.NewStyle().Foreground(colorMuted)
)

func tag(label string, c lipgloss.Color) string {
	return tagStyle.Foreground(c).Render("[" + label + "]")
}

// Status renders one status line.
func Status(s enginesup.ServerStatus) string {
	switch {
	case s.Stopped:
		return tag("stopped", colorRed) + mutedStyle.Render("server is not running")
	case s.Idle():
		return tag("idle", colorGreen) + mutedStyle.Render("no pending tasks")
	}
	state := "queued"
	if s.IsRunning {
		state = "running"
	}
	line := tag(state, colorPeach) + textStyle.Render(fmt.Sprintf("%d task(s)", s.NumberOfTasks))
	if len(s.Tasks) > 0 {
		t := s.Tasks[0]
		line += " " + locStyle.Render(fmt.Sprintf("%s:%d:%d", t.FileName, t.PosLine, t.PosCol))
		if t.Desc != "" {
			line += " " + mutedStyle.Render(t.Desc)
		}
	}
	return line
}

// Message renders a diagnostic as "file:line:col: severity: text".
func Message(m enginesup.Message) string {
	c := colorBlue
	switch m.Severity {
	case enginesup.SeverityError:
		c = colorRed
	case enginesup.SeverityWarning:
		c = colorPeach
	}
	loc := locStyle.Render(fmt.Sprintf("%s:%d:%d:", m.FileName, m.PosLine, m.PosCol))
	sev := lipgloss.NewStyle().Foreground(c).Render(string(m.Severity) + ":")
	text := m.Text
	if m.Caption != "" {
		text = m.Caption + ": " + text
	}
	return loc + " " + sev + " " + textStyle.Render(strings.TrimRight(text, "\n"))
}

// Prompt renders a restart prompt and its choices.
func Prompt(p supervisor.Prompt) string {
	c := colorRed
	if p.Severity == supervisor.SeverityWarning {
		c = colorPeach
	}
	var b strings.Builder
	b.WriteString(tag(string(p.Severity), c))
	b.WriteString(textStyle.Render(p.Message))
	b.WriteString("\n")
	for i, a := range p.Actions {
		fmt.Fprintf(&b, "  %s %s\n", promptStyle.Render(fmt.Sprintf("%d)", i+1)), a)
	}
	b.WriteString(actionsStyle.Render("  enter to dismiss") + "\n")
	b.WriteString(promptStyle.Render("> "))
	return b.String()
}

// Restart renders a restart-completed event.
func Restart(ev supervisor.RestartEvent) string {
	if ev.Err != nil {
		return tag("restart", colorRed) + textStyle.Render("failed: "+ev.Err.Error())
	}
	return tag("restart", colorGreen) + mutedStyle.Render("connection "+ev.ConnectionID.String())
}

// Warning renders a transient warning.
func Warning(msg string) string {
	return tag("warn", colorPeach) + textStyle.Render(msg)
}

// Capabilities renders a negotiated capability set.
func Capabilities(set capability.Set) string {
	version := "unknown"
	if set.Version != nil {
		version = set.Version.String()
	}
	flag := func(name string, on bool) string {
		if on {
			return lipgloss.NewStyle().Foreground(colorGreen).Render("+" + name)
		}
		return mutedStyle.Render("-" + name)
	}
	return tag("version", colorBlue) + textStyle.Render(version) + " " +
		flag("limits", set.MemoryAndTimeLimits) + " " +
		flag("roi", set.RegionOfInterest)
}

// Args renders the executable and arguments a connection is launched with.
func Args(opts enginesup.ConnectionOptions) string {
	parts := append([]string{opts.Executable}, opts.Args...)
	return tag("args", colorBlue) + mutedStyle.Render(strings.Join(parts, " "))
}
