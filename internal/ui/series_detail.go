package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/seriesnet/internal/seriesnet"
	"github.com/five82/seriesnet/internal/state"
)

type seriesDetailState struct {
	id     string
	cursor int
}

func (m Model) currentSeries() (seriesnet.Series, bool) {
	s, snap := peek[seriesnet.Series](m, state.SeriesKey(m.seriesDetail.id))
	return s, snap.HasData
}

// isFavourite reports whether the series is on the session's list. It is
// false until the list has loaded.
func (m Model) isFavourite(seriesID string) bool {
	list, _ := peek[[]seriesnet.Series](m, state.FavouritesKey(m.session.Token))
	for _, s := range list {
		if s.ID == seriesID {
			return true
		}
	}
	return false
}

func (m Model) handleSeriesDetailKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	s, ok := m.currentSeries()
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Down):
		if m.seriesDetail.cursor < len(s.Episodes)-1 {
			m.seriesDetail.cursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.seriesDetail.cursor > 0 {
			m.seriesDetail.cursor--
		}
	case key.Matches(msg, m.keys.Top):
		m.seriesDetail.cursor = 0
	case key.Matches(msg, m.keys.Bottom):
		m.seriesDetail.cursor = maxInt(len(s.Episodes)-1, 0)
	case key.Matches(msg, m.keys.Open):
		if len(s.Episodes) > 0 {
			ep := s.Episodes[clamp(m.seriesDetail.cursor, len(s.Episodes))]
			m.episode.open(ep.ID)
			return m, m.navigate(ViewEpisode)
		}
	case key.Matches(msg, m.keys.Favourite):
		return m, m.toggleFavourite(s)
	case key.Matches(msg, m.keys.Image):
		return m, m.openSeriesImages(s)
	case key.Matches(msg, m.keys.Edit):
		if !m.adminOnly() {
			return m, nil
		}
		m.seriesForm.startEdit(s.ID)
		return m, m.navigate(ViewEditSeries)
	case key.Matches(msg, m.keys.Delete):
		if !m.adminOnly() {
			return m, nil
		}
		return m, m.confirmDeleteSeries(s)
	}
	return m, nil
}

func (m *Model) toggleFavourite(s seriesnet.Series) tea.Cmd {
	if m.loginRequired() {
		return nil
	}
	store, ctx, sess, id := m.store, m.ctx, m.session, s.ID
	if m.isFavourite(id) {
		return func() tea.Msg {
			err := store.RemoveFavourite(ctx, sess, id)
			return mutationMsg{notice: "Removed from your list", err: err}
		}
	}
	return func() tea.Msg {
		err := store.AddFavourite(ctx, sess, id)
		return mutationMsg{notice: "Added to your list", err: err}
	}
}

func (m *Model) confirmDeleteSeries(s seriesnet.Series) tea.Cmd {
	store, ctx, sess, id := m.store, m.ctx, m.session, s.ID
	m.modal = newConfirm(confirmDeleteSeries, fmt.Sprintf("Delete %q and its episodes?", truncate(s.Name, 40)), func() tea.Msg {
		err := store.DeleteSeries(ctx, sess, id)
		return mutationMsg{notice: "Series deleted", err: err, apply: func(m *Model) tea.Cmd {
			if m.view == ViewSeriesDetail && m.seriesDetail.id == id {
				return m.back()
			}
			return nil
		}}
	})
	return nil
}

func (m *Model) openSeriesImages(s seriesnet.Series) tea.Cmd {
	var urls []string
	for _, name := range []string{s.Poster, s.Background} {
		if name != "" {
			urls = append(urls, m.assets.SeriesImage(name))
		}
	}
	if len(urls) == 0 {
		m.notify(toastInfo, "This series has no images")
		return nil
	}
	modal, cmd := newImageModal(s.Name, urls, m.fetchAsset)
	m.modal = modal
	return cmd
}

func (m Model) renderSeriesDetail() string {
	styles := m.theme.Styles()
	width := m.contentWidth()
	var b strings.Builder

	s, snap := peek[seriesnet.Series](m, state.SeriesKey(m.seriesDetail.id))
	if !snap.HasData {
		return m.renderQueryState(snap, "Loading series...")
	}
	if banner := m.renderQueryState(snap, ""); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n")
	}

	title := styles.Text.Bold(true).Render(s.Name)
	if m.isFavourite(s.ID) {
		title += "  " + styles.WarningText.Render("★ on your list")
	}
	b.WriteString(title)
	b.WriteString("\n")

	meta := []string{styles.MutedText.Render(fmt.Sprintf("popularity %d", s.Popularity))}
	if names := m.genreNames(s.Genres); len(names) > 0 {
		meta = append(meta, styles.InfoText.Render(strings.Join(names, ", ")))
	}
	b.WriteString(strings.Join(meta, styles.FaintText.Render(" · ")))
	b.WriteString("\n\n")

	if d := strings.TrimSpace(s.Description); d != "" {
		b.WriteString(lipgloss.NewStyle().Width(width - 4).Render(styles.Text.Render(d)))
		b.WriteString("\n\n")
	}

	b.WriteString(styles.AccentText.Render("Episodes"))
	b.WriteString("\n")
	if len(s.Episodes) == 0 {
		b.WriteString(styles.FaintText.Render("No episodes yet"))
		return b.String()
	}
	cursor := clamp(m.seriesDetail.cursor, len(s.Episodes))
	for i, ep := range s.Episodes {
		label := fmt.Sprintf("%3d  %s", ep.Number, truncate(ep.Title, width-12))
		if i == cursor {
			b.WriteString(styles.AccentText.Render("› " + label))
		} else {
			b.WriteString(styles.Text.Render("  " + label))
		}
		b.WriteString("\n")
	}
	return b.String()
}
