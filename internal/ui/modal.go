package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

type confirmKind int

const (
	confirmNone confirmKind = iota
	confirmDeletePost
	confirmDeleteSeries
	confirmDeleteGenre
	confirmLogout
)

// confirmModal asks a yes/no question and runs onConfirm on yes.
type confirmModal struct {
	kind      confirmKind
	prompt    string
	onConfirm tea.Cmd
}

func newConfirm(kind confirmKind, prompt string, onConfirm tea.Cmd) *confirmModal {
	return &confirmModal{kind: kind, prompt: prompt, onConfirm: onConfirm}
}

func (c *confirmModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch {
	case key.Matches(keyMsg, keys.Confirm):
		return c, c.onConfirm, true
	case key.Matches(keyMsg, keys.Cancel):
		return c, nil, true
	}
	return c, nil, false
}

func (c *confirmModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	body := styles.Text.Bold(true).Render(c.prompt) + "\n\n" +
		styles.AccentText.Render("y") + styles.MutedText.Render(" confirm   ") +
		styles.AccentText.Render("n") + styles.MutedText.Render(" cancel")
	return placeModal(theme, width, height, body, theme.Danger)
}

// imageModal shows server images drawn with half blocks.
type imageModal struct {
	title   string
	urls    []string
	index   int
	art     map[string]string
	errs    map[string]string
	loading bool
	fetch   func(url string) tea.Cmd
}

func newImageModal(title string, urls []string, fetch func(string) tea.Cmd) (*imageModal, tea.Cmd) {
	im := &imageModal{
		title: title,
		urls:  urls,
		art:   make(map[string]string),
		errs:  make(map[string]string),
		fetch: fetch,
	}
	return im, im.load()
}

func (im *imageModal) current() string {
	if len(im.urls) == 0 {
		return ""
	}
	return im.urls[im.index]
}

func (im *imageModal) load() tea.Cmd {
	url := im.current()
	if url == "" || im.fetch == nil {
		return nil
	}
	if _, ok := im.art[url]; ok {
		return nil
	}
	im.loading = true
	return im.fetch(url)
}

func (im *imageModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case assetMsg:
		if msg.err != nil {
			im.errs[msg.url] = msg.err.Error()
		} else {
			im.art[msg.url] = msg.art
		}
		if msg.url == im.current() {
			im.loading = false
		}
		return im, nil, false
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Back), msg.String() == "i":
			return im, nil, true
		case msg.String() == "right", msg.String() == "l":
			if len(im.urls) > 0 {
				im.index = (im.index + 1) % len(im.urls)
			}
			return im, im.load(), false
		case msg.String() == "left", msg.String() == "h":
			if len(im.urls) > 0 {
				im.index = (im.index - 1 + len(im.urls)) % len(im.urls)
			}
			return im, im.load(), false
		}
	}
	return im, nil, false
}

func (im *imageModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(im.title))
	if len(im.urls) > 1 {
		b.WriteString(styles.MutedText.Render(fmt.Sprintf("  %d/%d  ←/→", im.index+1, len(im.urls))))
	}
	b.WriteString("\n\n")
	url := im.current()
	switch {
	case url == "":
		b.WriteString(styles.MutedText.Render("No images"))
	case im.errs[url] != "":
		b.WriteString(styles.DangerText.Render(im.errs[url]))
	case im.art[url] != "":
		b.WriteString(im.art[url])
	default:
		b.WriteString(styles.MutedText.Render("Loading image..."))
	}
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render(truncateMiddle(url, ImageWidth)))
	return placeModal(theme, width, height, b.String(), theme.Accent)
}

func placeModal(theme Theme, width, height int, body, border string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(border)).
		Padding(1, 2).
		Render(body)
	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		box,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
