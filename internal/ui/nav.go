package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/seriesnet/internal/session"
)

// renderHeader renders the nav bar: logo, page, session and cache summary.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth
	sep := bg.Spaces(2)

	parts := []string{
		bg.Render("seriesnet", styles.Logo),
		bg.Render(m.view.String(), styles.Text.Bold(true)),
	}

	if m.session.Anonymous() {
		parts = append(parts, bg.Render("● anonymous", styles.MutedText))
	} else {
		role := string(m.session.Role)
		parts = append(parts, styles.StatusStyle(role).Render(role))
		if expiry := m.tokenExpiry(); expiry != "" {
			parts = append(parts, bg.Render(expiry, styles.FaintText))
		}
	}

	if m.store != nil && !compact {
		stats := m.store.Cache().Stats()
		summary := fmt.Sprintf("cache %d · live %d", stats.Entries, stats.Mounted)
		parts = append(parts, bg.Render(summary, styles.MutedText))
		if stats.Fetching > 0 {
			parts = append(parts, bg.Render(fmt.Sprintf("↻ %d", stats.Fetching), styles.InfoText))
		}
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Render(strings.Join(parts, sep))
}

// tokenExpiry describes when the bearer token runs out. Expiry is informative
// only; the backend decides.
func (m Model) tokenExpiry() string {
	claims, err := session.Claims(m.session.Token)
	if err != nil || claims.ExpiresAt.IsZero() {
		return ""
	}
	left := claims.ExpiresAt.Sub(m.now())
	if left <= 0 {
		return "token expired"
	}
	return "token " + humanizeDuration(left)
}

// renderCommandBar renders the key hints for the current page.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	anonymous := m.session.Anonymous()
	switch {
	case m.view.requiresLogin() && anonymous:
		commands = []cmd{{"a", "Login"}, {"R", "Register"}, {"f", "Feed"}}
	case m.view == ViewFeed:
		commands = []cmd{
			{"j/k", "Navigate"},
			{"enter", "Expand"},
			{"/", "Search"},
			{"t", "Tags"},
			{"o", sortLabel(m.feed.sort, postSorts)},
			{"[/]", "Page"},
		}
		if !anonymous {
			commands = append(commands, cmd{"n", "New"}, cmd{"+/-", "React"}, cmd{"c", "Comment"})
		}
	case m.view == ViewComposePost || m.view == ViewEditPost:
		commands = []cmd{{"tab", "Field"}, {"ctrl+p", "Preview"}, {"ctrl+s", "Publish"}, {"esc", "Cancel"}}
		if m.session.IsAdmin() {
			commands = append(commands, cmd{"ctrl+a", "Announcement"})
		}
	case m.view == ViewSeries:
		commands = []cmd{
			{"j/k", "Navigate"},
			{"enter", "Open"},
			{"/", "Search"},
			{"y", "Genre"},
			{"o", sortLabel(m.series.sort, seriesSorts)},
		}
		if m.session.IsAdmin() {
			commands = append(commands, cmd{"n", "New"}, cmd{"A", "Add genre"}, cmd{"X", "Delete genre"})
		}
	case m.view == ViewSeriesDetail:
		commands = []cmd{{"j/k", "Episodes"}, {"enter", "Watch"}, {"*", "My list"}, {"i", "Images"}}
		if m.session.IsAdmin() {
			commands = append(commands, cmd{"e", "Edit"}, cmd{"d", "Delete"})
		}
	case m.view == ViewComposeSeries || m.view == ViewEditSeries:
		commands = []cmd{{"tab", "Field"}, {"space", "Pick genre"}, {"ctrl+s", "Save"}, {"esc", "Cancel"}}
	case m.view == ViewEpisode:
		commands = []cmd{{"+/-", "React"}, {"c", "Comment"}, {"esc", "Back"}}
	case m.view == ViewUsers:
		commands = []cmd{{"j/k", "Navigate"}, {"enter", "Profile"}, {"/", "Search"}, {"[/]", "Page"}}
	case m.view == ViewProfile:
		commands = []cmd{{"j/k", "Navigate"}, {"enter", "Expand"}, {"esc", "Back"}}
	case m.view == ViewFavourites:
		commands = []cmd{{"j/k", "Navigate"}, {"enter", "Open"}, {"d", "Remove"}}
	case m.view == ViewLogin || m.view == ViewRegister:
		commands = []cmd{{"tab", "Field"}, {"enter", "Submit"}, {"esc", "Cancel"}}
	case m.view == ViewLogs:
		commands = []cmd{
			{"Space", ternary(m.logs.follow, "Pause", "Follow")},
			{"l", "Level " + orAll(m.logs.level)},
			{"m", "Component " + orAll(m.logs.component)},
		}
	}
	commands = append(commands, cmd{"?", "More"})

	colon := bg.Sep(":")
	sep := bg.Spaces(2)

	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, sep))
}

// renderLoginPrompt is shown instead of any login-only page while anonymous.
func (m Model) renderLoginPrompt() string {
	styles := m.theme.Styles()
	body := styles.WarningText.Bold(true).Render(msgLoginRequired) + "\n\n" +
		styles.MutedText.Render("Press ") + styles.AccentText.Render("a") +
		styles.MutedText.Render(" to login or ") + styles.AccentText.Render("R") +
		styles.MutedText.Render(" to register.")
	return lipgloss.Place(m.width, maxInt(m.height-LayoutChromeHeight, 3), lipgloss.Center, lipgloss.Center, body)
}

func orAll(v string) string {
	if v == "" {
		return "all"
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
