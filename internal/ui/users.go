package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/seriesnet/internal/seriesnet"
	"github.com/five82/seriesnet/internal/state"
)

// usersState is the local state of the user directory.
type usersState struct {
	username  string
	page      int
	cursor    int
	searching bool
	text      textinput.Model
}

func newUsersState() usersState {
	ti := textinput.New()
	ti.Placeholder = "Search users"
	ti.CharLimit = 50
	return usersState{page: 1, text: ti}
}

func (u usersState) filter() seriesnet.UserFilter {
	return seriesnet.UserFilter{Username: u.username, Page: u.page}
}

func (u *usersState) nextPage(n int) bool {
	if !state.HasNextPage(n) {
		return false
	}
	u.page++
	u.cursor = 0
	return true
}

func (u *usersState) prevPage() bool {
	if !state.HasPrevPage(u.page) {
		return false
	}
	u.page--
	u.cursor = 0
	return true
}

func (m Model) directory() ([]seriesnet.UserRef, bool) {
	users, snap := peek[[]seriesnet.UserRef](m, state.UsersKey(m.users.filter()))
	return users, snap.HasData
}

func (m Model) handleUsersKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.users.searching {
		switch msg.String() {
		case "esc":
			m.users.searching = false
			m.users.text.Blur()
			return m, nil
		case "enter":
			m.users.username = strings.TrimSpace(m.users.text.Value())
			m.users.page = 1
			m.users.cursor = 0
			m.users.searching = false
			m.users.text.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.users.text, cmd = m.users.text.Update(msg)
		return m, cmd
	}

	users, _ := m.directory()
	switch {
	case key.Matches(msg, m.keys.Down):
		if m.users.cursor < len(users)-1 {
			m.users.cursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.users.cursor > 0 {
			m.users.cursor--
		}
	case key.Matches(msg, m.keys.NextPage):
		m.users.nextPage(len(users))
	case key.Matches(msg, m.keys.PrevPage):
		m.users.prevPage()
	case key.Matches(msg, m.keys.Search):
		m.users.searching = true
		m.users.text.SetValue(m.users.username)
		m.users.text.CursorEnd()
		return m, m.users.text.Focus()
	case key.Matches(msg, m.keys.Open):
		if len(users) > 0 {
			u := users[clamp(m.users.cursor, len(users))]
			m.profile = newProfileState(u.ID)
			return m, m.navigate(ViewProfile)
		}
	}
	return m, nil
}

func (m Model) renderUsers() string {
	styles := m.theme.Styles()
	width := m.contentWidth()
	var b strings.Builder

	if m.users.username != "" {
		b.WriteString(styles.AccentText.Render("search: " + m.users.username))
		b.WriteString("\n")
	}
	if m.users.searching {
		b.WriteString(styles.AccentText.Render("> "))
		b.WriteString(m.users.text.View())
		b.WriteString("\n")
	}

	users, snap := peek[[]seriesnet.UserRef](m, state.UsersKey(m.users.filter()))
	if !snap.HasData {
		b.WriteString(m.renderQueryState(snap, "Loading users..."))
		return b.String()
	}
	if banner := m.renderQueryState(snap, ""); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n")
	}
	if len(users) == 0 {
		b.WriteString(styles.MutedText.Render("No users found."))
		b.WriteString("\n")
	}

	cursor := clamp(m.users.cursor, len(users))
	for i, u := range users {
		b.WriteString(m.renderUserRow(u, i == cursor, width))
		b.WriteString("\n")
	}
	b.WriteString(m.renderPager(m.users.page, len(users)))
	return b.String()
}

func (m Model) renderUserRow(u seriesnet.UserRef, selected bool, width int) string {
	styles := m.theme.Styles()
	name := truncate("@"+u.Username, minInt(30, width/2))
	parts := []string{styles.Text.Render(name)}
	if u.Role != "" {
		parts = append(parts, styles.StatusStyle(u.Role).Render(u.Role))
	}
	if u.Gender != "" {
		parts = append(parts, styles.MutedText.Render(u.Gender))
	}
	if u.IsOnline {
		parts = append(parts, styles.SuccessText.Render("● online"))
	} else {
		parts = append(parts, styles.FaintText.Render("○ offline"))
	}
	row := strings.Join(parts, "  ")
	if selected {
		return styles.AccentText.Render("› ") + row
	}
	return "  " + row
}
