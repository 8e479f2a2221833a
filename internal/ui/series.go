package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/seriesnet/internal/seriesnet"
	"github.com/five82/seriesnet/internal/state"
)

// genrePanel is the admin genre editor shown above the catalogue.
type genrePanel int

const (
	genreIdle genrePanel = iota
	genreTyping
	genreDeleting
)

// seriesListState is the local state of the catalogue page.
type seriesListState struct {
	search      string
	genreID     string
	sort        string
	cursor      int
	searching   bool
	text        textinput.Model
	genre       genrePanel
	genreCursor int
}

func newSeriesListState(defaultSort string) seriesListState {
	ti := textinput.New()
	ti.CharLimit = 100
	sort := ""
	if defaultSort == "popularity" {
		sort = defaultSort
	}
	return seriesListState{sort: sort, text: ti}
}

func (s seriesListState) filter() seriesnet.SeriesFilter {
	return seriesnet.SeriesFilter{Search: s.search, Genre: s.genreID, Sort: s.sort}
}

func (s *seriesListState) openSearch() tea.Cmd {
	s.searching = true
	s.text.Placeholder = "Search series"
	s.text.SetValue(s.search)
	s.text.CursorEnd()
	return s.text.Focus()
}

func (s *seriesListState) openGenreInput() tea.Cmd {
	s.genre = genreTyping
	s.text.Placeholder = "New genre name"
	s.text.SetValue("")
	return s.text.Focus()
}

func (s *seriesListState) closeInput() {
	s.searching = false
	if s.genre == genreTyping {
		s.genre = genreIdle
	}
	s.text.Blur()
	s.text.SetValue("")
}

// cycleGenre steps the genre filter through "all" and every known genre.
func (s *seriesListState) cycleGenre(genres []seriesnet.Genre) {
	s.cursor = 0
	if len(genres) == 0 {
		s.genreID = ""
		return
	}
	if s.genreID == "" {
		s.genreID = genres[0].ID
		return
	}
	for i, g := range genres {
		if g.ID == s.genreID {
			if i+1 < len(genres) {
				s.genreID = genres[i+1].ID
			} else {
				s.genreID = ""
			}
			return
		}
	}
	s.genreID = ""
}

func (m Model) genres() []seriesnet.Genre {
	genres, _ := peek[[]seriesnet.Genre](m, state.GenresKey())
	return genres
}

// genreNames resolves genre references through the genre list. References
// that carry their own name keep it.
func (m Model) genreNames(refs []seriesnet.GenreRef) []string {
	byID := make(map[string]string)
	for _, g := range m.genres() {
		byID[g.ID] = g.Name
	}
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		switch {
		case byID[r.ID] != "":
			names = append(names, byID[r.ID])
		case r.Name != "":
			names = append(names, r.Name)
		}
	}
	return names
}

func (m Model) genreName(id string) string {
	for _, g := range m.genres() {
		if g.ID == id {
			return g.Name
		}
	}
	return id
}

// visibleSeries returns the cached catalogue for the current filters. The
// genre filter is applied locally as well since ids are canonical.
func (m Model) visibleSeries() ([]seriesnet.Series, bool) {
	list, snap := peek[[]seriesnet.Series](m, state.SeriesListKey(m.seriesListFilter()))
	if m.series.genreID == "" {
		return list, snap.HasData
	}
	out := make([]seriesnet.Series, 0, len(list))
	for _, s := range list {
		if s.HasGenre(m.series.genreID) {
			out = append(out, s)
		}
	}
	return out, snap.HasData
}

// seriesListFilter is the filter the catalogue query was keyed with.
func (m Model) seriesListFilter() seriesnet.SeriesFilter {
	f := m.series.filter()
	f.Token = m.session.Token
	return f
}

func (m Model) handleSeriesKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.series.searching || m.series.genre == genreTyping {
		return m.handleSeriesInput(msg)
	}
	if m.series.genre == genreDeleting {
		return m.handleGenreDelete(msg)
	}

	list, _ := m.visibleSeries()
	switch {
	case key.Matches(msg, m.keys.Down):
		if m.series.cursor < len(list)-1 {
			m.series.cursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.series.cursor > 0 {
			m.series.cursor--
		}
	case key.Matches(msg, m.keys.Top):
		m.series.cursor = 0
	case key.Matches(msg, m.keys.Bottom):
		m.series.cursor = maxInt(len(list)-1, 0)
	case key.Matches(msg, m.keys.Search):
		return m, m.series.openSearch()
	case key.Matches(msg, m.keys.GenreFilter):
		m.series.cycleGenre(m.genres())
	case key.Matches(msg, m.keys.CycleSort):
		m.series.sort = nextSort(m.series.sort, seriesSorts)
		m.series.cursor = 0
	case key.Matches(msg, m.keys.Open):
		if len(list) > 0 {
			return m, m.openSeries(list[clamp(m.series.cursor, len(list))].ID)
		}
	case key.Matches(msg, m.keys.New):
		if !m.adminOnly() {
			return m, nil
		}
		m.seriesForm.startCreate()
		return m, m.navigate(ViewComposeSeries)
	case key.Matches(msg, m.keys.AddGenre):
		if !m.adminOnly() {
			return m, nil
		}
		return m, m.series.openGenreInput()
	case key.Matches(msg, m.keys.DropGenre):
		if !m.adminOnly() {
			return m, nil
		}
		if len(m.genres()) == 0 {
			m.notify(toastInfo, "There are no genres")
			return m, nil
		}
		m.series.genre = genreDeleting
		m.series.genreCursor = 0
	}
	return m, nil
}

func (m Model) handleSeriesInput(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.series.closeInput()
		return m, nil
	case "enter":
		value := m.series.text.Value()
		if m.series.searching {
			m.series.search = strings.TrimSpace(value)
			m.series.cursor = 0
			m.series.closeInput()
			return m, nil
		}
		if err := validateGenre(value); err != nil {
			m.notify(toastError, err.Error())
			return m, nil
		}
		store, ctx, sess, name := m.store, m.ctx, m.session, strings.TrimSpace(value)
		return m, func() tea.Msg {
			_, err := store.CreateGenre(ctx, sess, name)
			return mutationMsg{notice: "Genre added", err: err, apply: func(m *Model) tea.Cmd {
				m.series.closeInput()
				return nil
			}}
		}
	}
	var cmd tea.Cmd
	m.series.text, cmd = m.series.text.Update(msg)
	return m, cmd
}

func (m Model) handleGenreDelete(msg tea.KeyMsg) (Model, tea.Cmd) {
	genres := m.genres()
	switch {
	case key.Matches(msg, m.keys.Back):
		m.series.genre = genreIdle
	case key.Matches(msg, m.keys.Down):
		if m.series.genreCursor < len(genres)-1 {
			m.series.genreCursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.series.genreCursor > 0 {
			m.series.genreCursor--
		}
	case key.Matches(msg, m.keys.Open), key.Matches(msg, m.keys.Delete):
		if len(genres) == 0 {
			m.series.genre = genreIdle
			return m, nil
		}
		g := genres[clamp(m.series.genreCursor, len(genres))]
		store, ctx, sess := m.store, m.ctx, m.session
		m.modal = newConfirm(confirmDeleteGenre, fmt.Sprintf("Delete genre %q?", g.Name), func() tea.Msg {
			err := store.DeleteGenre(ctx, sess, g.ID)
			return mutationMsg{notice: "Genre deleted", err: err, apply: func(m *Model) tea.Cmd {
				m.series.genre = genreIdle
				if m.series.genreID == g.ID {
					m.series.genreID = ""
				}
				return nil
			}}
		})
	}
	return m, nil
}

func (m *Model) openSeries(id string) tea.Cmd {
	m.seriesDetail = seriesDetailState{id: id}
	return m.navigate(ViewSeriesDetail)
}

// adminOnly is the guard for catalogue management.
func (m *Model) adminOnly() bool {
	if m.session.IsAdmin() {
		return true
	}
	m.notify(toastWarn, "Only admins can manage the catalogue")
	return false
}

func (m Model) renderSeriesList() string {
	styles := m.theme.Styles()
	width := m.contentWidth()
	var b strings.Builder

	filters := []string{}
	if m.series.search != "" {
		filters = append(filters, styles.AccentText.Render("search: "+m.series.search))
	}
	genre := "all genres"
	if m.series.genreID != "" {
		genre = "genre: " + m.genreName(m.series.genreID)
	}
	filters = append(filters, styles.AccentText.Render(genre))
	filters = append(filters, styles.MutedText.Render(sortLabel(m.series.sort, seriesSorts)))
	b.WriteString(strings.Join(filters, styles.FaintText.Render("  •  ")))
	b.WriteString("\n")

	if m.series.searching || m.series.genre == genreTyping {
		b.WriteString(styles.AccentText.Render("> "))
		b.WriteString(m.series.text.View())
		b.WriteString("\n")
	}
	if m.series.genre == genreDeleting {
		b.WriteString(m.renderGenrePicker())
	}

	_, snap := peek[[]seriesnet.Series](m, state.SeriesListKey(m.seriesListFilter()))
	if !snap.HasData {
		b.WriteString(m.renderQueryState(snap, "Loading series..."))
		return b.String()
	}
	if banner := m.renderQueryState(snap, ""); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n")
	}
	visible, _ := m.visibleSeries()
	if len(visible) == 0 {
		b.WriteString("\n")
		b.WriteString(styles.MutedText.Render("No series found."))
		return b.String()
	}

	cursor := clamp(m.series.cursor, len(visible))
	for i, s := range visible {
		line := fmt.Sprintf("%-*s", minInt(40, width/2), truncate(s.Name, minInt(40, width/2)))
		genres := truncate(strings.Join(m.genreNames(s.Genres), ", "), maxInt(width-len(line)-16, 10))
		row := styles.Text.Render(line) + "  " + styles.InfoText.Render(genres) +
			"  " + styles.MutedText.Render(fmt.Sprintf("★ %d", s.Popularity))
		if i == cursor {
			row = styles.AccentText.Render("› ") + row
		} else {
			row = "  " + row
		}
		b.WriteString(row)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderGenrePicker() string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.WarningText.Render("Delete which genre? (enter to delete, esc to cancel)"))
	b.WriteString("\n")
	genres := m.genres()
	cursor := clamp(m.series.genreCursor, len(genres))
	for i, g := range genres {
		if i == cursor {
			b.WriteString(styles.AccentText.Render("› " + g.Name))
		} else {
			b.WriteString(styles.MutedText.Render("  " + g.Name))
		}
		b.WriteString("\n")
	}
	return b.String()
}
