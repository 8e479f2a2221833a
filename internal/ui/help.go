package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()

	sections := []helpSection{
		{
			title: "Pages",
			items: []helpItem{
				{"f/s/v", "Feed/Series/My list"},
				{"u/p", "Users/My profile"},
				{"L", "Client log"},
				{"a/R/O", "Login/Register/Logout"},
				{"esc", "Back"},
			},
		},
		{
			title: "Lists",
			items: []helpItem{
				{"j/k", "Move up/down"},
				{"g/G", "Go to top/bottom"},
				{"[/]", "Previous/next page"},
				{"enter", "Open or expand"},
				{"/ t", "Search/filter tags"},
				{"o y", "Sort/genre filter"},
			},
		},
		{
			title: "Actions",
			items: []helpItem{
				{"n/e/d", "New/edit/delete"},
				{"+/-", "Like/dislike"},
				{"c", "Comment"},
				{"i", "View images"},
				{"*", "Toggle my list"},
				{"A/X", "Add/delete genre"},
			},
		},
		{
			title: "Forms",
			items: []helpItem{
				{"tab", "Next field"},
				{"ctrl+s", "Submit"},
				{"ctrl+p", "Preview images"},
				{"ctrl+a", "Announcement"},
			},
		},
		{
			title: "General",
			items: []helpItem{
				{"r", "Refresh page"},
				{"T", "Cycle theme"},
				{"?", "Toggle help"},
				{"q/ctrl+c", "Quit"},
			},
		},
	}

	var b strings.Builder

	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n\n")

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Warning)).
		Width(12)
	for i, section := range sections {
		b.WriteString(styles.AccentText.Bold(true).Render(section.title))
		b.WriteString("\n")

		for _, item := range section.items {
			b.WriteString(keyStyle.Render(item.key))
			b.WriteString(styles.Text.Render(item.desc))
			b.WriteString("\n")
		}

		if i < len(sections)-1 {
			b.WriteString("\n")
		}
	}

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(40)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}

type helpSection struct {
	title string
	items []helpItem
}

type helpItem struct {
	key  string
	desc string
}
