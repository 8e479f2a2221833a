package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/seriesnet/internal/seriesnet"
	"github.com/five82/seriesnet/internal/state"
)

type favouritesState struct {
	cursor int
}

func (m Model) favouriteList() []seriesnet.Series {
	list, _ := peek[[]seriesnet.Series](m, state.FavouritesKey(m.session.Token))
	return list
}

func (m Model) handleFavouritesKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	list := m.favouriteList()
	switch {
	case key.Matches(msg, m.keys.Down):
		if m.favourites.cursor < len(list)-1 {
			m.favourites.cursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.favourites.cursor > 0 {
			m.favourites.cursor--
		}
	case len(list) == 0:
	case key.Matches(msg, m.keys.Open):
		return m, m.openSeries(list[clamp(m.favourites.cursor, len(list))].ID)
	case key.Matches(msg, m.keys.Delete):
		s := list[clamp(m.favourites.cursor, len(list))]
		store, ctx, sess := m.store, m.ctx, m.session
		return m, func() tea.Msg {
			err := store.RemoveFavourite(ctx, sess, s.ID)
			return mutationMsg{notice: fmt.Sprintf("Removed %s from your list", s.Name), err: err}
		}
	}
	return m, nil
}

func (m Model) renderFavourites() string {
	styles := m.theme.Styles()
	width := m.contentWidth()
	var b strings.Builder

	list, snap := peek[[]seriesnet.Series](m, state.FavouritesKey(m.session.Token))
	if !snap.HasData {
		return m.renderQueryState(snap, "Loading your list...")
	}
	if banner := m.renderQueryState(snap, ""); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n")
	}
	if len(list) == 0 {
		b.WriteString(styles.MutedText.Render("Your list is empty. Press * on a series to add it."))
		return b.String()
	}
	cursor := clamp(m.favourites.cursor, len(list))
	for i, s := range list {
		line := truncate(s.Name, width/2)
		if names := m.genreNames(s.Genres); len(names) > 0 {
			line += "  " + styles.InfoText.Render(truncate(strings.Join(names, ", "), width/3))
		}
		if i == cursor {
			b.WriteString(styles.AccentText.Render("› ") + line)
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	return b.String()
}
