package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/seriesnet/internal/logtail"
)

var logLevels = []string{"", "DEBUG", "INFO", "WARN", "ERROR"}

// logState holds the client log viewer.
type logState struct {
	entries   []logtail.Entry
	follow    bool
	level     string
	component string
	lastRead  time.Time
	err       error
	viewport  viewport.Model

	// dirty marks the viewport content as stale
	dirty bool
}

func newLogState() logState {
	vp := viewport.New(0, 0)
	return logState{follow: true, viewport: vp}
}

// load replaces the buffered entries with a fresh read of the file.
func (l *logState) load(lines []string, err error, now time.Time) {
	l.lastRead = now
	l.err = err
	if err != nil {
		return
	}
	l.entries = logtail.ParseLines(lines)
	l.dirty = true
}

func (l *logState) resize(width, height int) {
	l.viewport.Width = maxInt(width-2, 10)
	l.viewport.Height = maxInt(height-2, 3)
	l.dirty = true
}

func (l logState) visible() []logtail.Entry {
	return logtail.Filter(l.entries, l.level, l.component)
}

// components lists the component names seen in the buffer.
func (l logState) components() []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range l.entries {
		if e.Component != "" && !seen[e.Component] {
			seen[e.Component] = true
			out = append(out, e.Component)
		}
	}
	sort.Strings(out)
	return out
}

func cycleValue(current string, options []string) string {
	for i, o := range options {
		if o == current {
			return options[(i+1)%len(options)]
		}
	}
	return ""
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logs.follow = !m.logs.follow
		if m.logs.follow {
			m.syncLogView()
			return m, readLogsCmd(m.logPath)
		}
		return m, nil
	case key.Matches(msg, m.keys.CycleLevel):
		m.logs.level = cycleValue(m.logs.level, logLevels)
		m.logs.dirty = true
		m.syncLogView()
		return m, nil
	case key.Matches(msg, m.keys.CycleComp):
		m.logs.component = cycleValue(m.logs.component, append([]string{""}, m.logs.components()...))
		m.logs.dirty = true
		m.syncLogView()
		return m, nil
	case key.Matches(msg, m.keys.Top):
		m.logs.follow = false
		m.logs.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.logs.follow = true
		m.logs.viewport.GotoBottom()
		return m, nil
	}
	if key.Matches(msg, m.keys.Up) || key.Matches(msg, m.keys.PrevPage) {
		m.logs.follow = false
	}
	var cmd tea.Cmd
	m.logs.viewport, cmd = m.logs.viewport.Update(msg)
	return m, cmd
}

// syncLogView re-renders the viewport content when it is stale and keeps
// the bottom in view while following.
func (m *Model) syncLogView() {
	if m.logs.dirty {
		m.logs.viewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))
		m.logs.viewport.SetContent(m.renderLogContent(m.logs.viewport.Width))
		m.logs.dirty = false
	}
	if m.logs.follow {
		m.logs.viewport.GotoBottom()
	}
}

// renderLogs renders the log view.
func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.FocusBg)

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Render(m.logs.viewport.View())
	return box + "\n" + m.renderLogStatus(styles, bg)
}

// renderLogStatus renders the line under the log box.
func (m Model) renderLogStatus(styles Styles, bg BgStyle) string {
	if m.logs.err != nil {
		return bg.Render("Cannot read "+m.logPath+": "+m.logs.err.Error(), styles.DangerText)
	}
	visible := m.logs.visible()
	status := fmt.Sprintf("%d of %d lines  auto-tail %s", len(visible), len(m.logs.entries), ternary(m.logs.follow, "on", "off"))
	parts := []string{bg.Render(status, styles.FaintText)}
	if m.logs.level != "" || m.logs.component != "" {
		parts = append(parts, bg.Render(fmt.Sprintf("filter: level=%s comp=%s", orAll(m.logs.level), orAll(m.logs.component)), styles.MutedText))
	}
	if m.logPath != "" {
		parts = append(parts, bg.Render(truncateMiddle(m.logPath, 50), styles.AccentText))
	}
	sep := bg.Space() + bg.Render("•", styles.FaintText) + bg.Space()
	return strings.Join(parts, sep)
}

// renderLogContent renders the colorized entries.
func (m Model) renderLogContent(width int) string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()

	if m.logPath == "" {
		return bg.FillLine(bg.Render("Logging to a file is disabled", styles.MutedText), width)
	}
	visible := m.logs.visible()
	if len(visible) == 0 {
		return bg.FillLine(bg.Render("No log entries", styles.MutedText), width)
	}

	var b strings.Builder
	for i, e := range visible {
		b.WriteString(bg.FillLine(m.colorizeEntry(e, styles, bg), width))
		if i < len(visible)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// colorizeEntry renders one entry as "time LEVEL [component] message k=v".
func (m Model) colorizeEntry(e logtail.Entry, styles Styles, bg BgStyle) string {
	if e.Level == "" && e.Time.IsZero() {
		return bg.Render(e.Message, styles.Text)
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(bg.Render(e.Time.Local().Format("15:04:05"), styles.FaintText))
		b.WriteString(bg.Space())
	}
	if e.Level != "" {
		b.WriteString(bg.Render(fmt.Sprintf("%-5s", e.Level), levelStyle(e.Level, styles).Bold(true)))
		b.WriteString(bg.Space())
	}
	if e.Component != "" {
		b.WriteString(bg.Render("["+e.Component+"]", styles.AccentText))
		b.WriteString(bg.Space())
	}
	b.WriteString(bg.Render(e.Message, styles.Text))
	for _, a := range e.Attrs {
		b.WriteString(bg.Space())
		b.WriteString(bg.Render(a.Key+"=", styles.FaintText))
		b.WriteString(bg.Render(a.Value, styles.MutedText))
	}
	return b.String()
}

func levelStyle(level string, styles Styles) lipgloss.Style {
	switch level {
	case "INFO":
		return styles.SuccessText
	case "WARN":
		return styles.WarningText
	case "ERROR":
		return styles.DangerText
	case "DEBUG":
		return styles.InfoText
	default:
		return styles.Text
	}
}
