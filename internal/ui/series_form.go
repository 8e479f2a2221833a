package ui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/seriesnet/internal/seriesnet"
	"github.com/five82/seriesnet/internal/state"
	"github.com/five82/seriesnet/internal/upload"
)

const (
	seriesName = iota
	seriesDescription
	seriesPoster
	seriesBackground
)

// seriesForm backs series creation and editing. The row after the text
// fields picks genres.
type seriesForm struct {
	form       form
	editID     string
	selected   map[string]bool
	pickCursor int
	prefilled  bool
	poster     string
	background string
}

func newSeriesForm() seriesForm {
	return seriesForm{
		form: form{extra: true, fields: []field{
			newField("Name", "Series name", 200),
			newAreaField("Description", "What is it about?"),
			newField("Poster", "path to a .png/.jpg file", 500),
			newField("Background", "path to a .png/.jpg file", 500),
		}},
		selected: make(map[string]bool),
	}
}

func (f *seriesForm) clear() {
	f.form.reset()
	f.selected = make(map[string]bool)
	f.pickCursor = 0
	f.poster = ""
	f.background = ""
}

func (f *seriesForm) startCreate() {
	f.clear()
	f.editID = ""
	f.prefilled = true
}

func (f *seriesForm) startEdit(id string) {
	f.clear()
	f.editID = id
	f.prefilled = false
}

func (f seriesForm) editing() bool {
	return f.editID != ""
}

// genreIDs returns the picked genres in genre list order. Picks that are no
// longer in the list are kept at the end.
func (f seriesForm) genreIDs(genres []seriesnet.Genre) []string {
	ids := make([]string, 0, len(f.selected))
	seen := make(map[string]bool, len(genres))
	for _, g := range genres {
		seen[g.ID] = true
		if f.selected[g.ID] {
			ids = append(ids, g.ID)
		}
	}
	var rest []string
	for id, ok := range f.selected {
		if ok && !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...)
}

// prefillSeries copies the edited series into the form once it is cached.
func (m *Model) prefillSeries() {
	f := &m.seriesForm
	if !f.editing() || f.prefilled {
		return
	}
	s, snap := peek[seriesnet.Series](*m, state.SeriesKey(f.editID))
	if !snap.HasData {
		return
	}
	f.form.fields[seriesName].SetValue(s.Name)
	f.form.fields[seriesDescription].SetValue(s.Description)
	for _, g := range s.Genres {
		f.selected[g.ID] = true
	}
	f.poster = s.Poster
	f.background = s.Background
	f.prefilled = true
}

func (m Model) handleSeriesFormKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, m.back()
	case key.Matches(msg, m.keys.NextField):
		return m, m.seriesForm.form.next()
	case key.Matches(msg, m.keys.PrevField):
		return m, m.seriesForm.form.prev()
	case key.Matches(msg, m.keys.Submit):
		return m, m.submitSeries()
	}

	if !m.seriesForm.form.onExtra() {
		return m, m.seriesForm.form.update(msg)
	}
	genres := m.genres()
	switch {
	case key.Matches(msg, m.keys.Down):
		if m.seriesForm.pickCursor < len(genres)-1 {
			m.seriesForm.pickCursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.seriesForm.pickCursor > 0 {
			m.seriesForm.pickCursor--
		}
	case key.Matches(msg, m.keys.Toggle), key.Matches(msg, m.keys.Open):
		if len(genres) > 0 {
			id := genres[clamp(m.seriesForm.pickCursor, len(genres))].ID
			m.seriesForm.selected[id] = !m.seriesForm.selected[id]
		}
	}
	return m, nil
}

// submitSeries validates the form, then checks the chosen images before
// sending anything.
func (m *Model) submitSeries() tea.Cmd {
	f := &m.seriesForm
	if f.editing() && !f.prefilled {
		m.notify(toastWarn, "Series is still loading")
		return nil
	}
	editing := f.editing()
	name := f.form.value(seriesName)
	description := f.form.value(seriesDescription)
	poster := f.form.value(seriesPoster)
	background := f.form.value(seriesBackground)
	genreIDs := f.genreIDs(m.genres())
	if err := validateSeries(editing, name, description, len(genreIDs), poster, background); err != nil {
		m.notify(toastError, err.Error())
		return nil
	}

	in := seriesnet.SeriesInput{Name: name, Description: description, GenreIDs: genreIDs}
	store, ctx, sess, id := m.store, m.ctx, m.session, f.editID

	return func() tea.Msg {
		var err error
		if in.Poster, err = readSeriesImage(poster); err != nil {
			return mutationMsg{err: err}
		}
		if in.Background, err = readSeriesImage(background); err != nil {
			return mutationMsg{err: err}
		}
		notice := "Series created"
		if editing {
			notice = "Series updated"
			_, err = store.EditSeries(ctx, sess, id, in)
		} else {
			_, err = store.CreateSeries(ctx, sess, in)
		}
		return mutationMsg{notice: notice, err: err, apply: func(m *Model) tea.Cmd {
			m.seriesForm.clear()
			return m.back()
		}}
	}
}

// readSeriesImage loads and checks one optional image path.
func readSeriesImage(path string) (*seriesnet.Upload, error) {
	if path == "" {
		return nil, nil
	}
	files, err := upload.Read([]string{path})
	if err != nil {
		return nil, err
	}
	accepted, err := upload.Validate(files, upload.SeriesImage)
	if err != nil {
		return nil, err
	}
	u := accepted[0].Upload()
	return &u, nil
}

func (m Model) renderSeriesForm() string {
	styles := m.theme.Styles()
	f := m.seriesForm
	width := m.contentWidth()

	if f.editing() && !f.prefilled {
		_, snap := peek[seriesnet.Series](m, state.SeriesKey(f.editID))
		return m.renderQueryState(snap, "Loading series...")
	}

	var b strings.Builder
	b.WriteString(f.form.render(styles, width-4))
	if f.editing() {
		current := []string{}
		if f.poster != "" {
			current = append(current, "poster "+f.poster)
		}
		if f.background != "" {
			current = append(current, "background "+f.background)
		}
		if len(current) > 0 {
			b.WriteString(styles.FaintText.Render("Current images: " + strings.Join(current, ", ") + " (leave empty to keep)"))
			b.WriteString("\n")
		}
	}

	label := styles.MutedText.Render("Genres")
	if f.form.onExtra() {
		label = styles.AccentText.Bold(true).Render("Genres")
	}
	b.WriteString(label)
	b.WriteString("\n")

	genres := m.genres()
	if len(genres) == 0 {
		_, snap := peek[[]seriesnet.Genre](m, state.GenresKey())
		if msg := m.renderQueryState(snap, "Loading genres..."); msg != "" {
			b.WriteString(msg)
		} else {
			b.WriteString(styles.FaintText.Render("No genres yet. Add one from the series page."))
		}
		return b.String()
	}
	cursor := clamp(f.pickCursor, len(genres))
	for i, g := range genres {
		mark := "[ ]"
		if f.selected[g.ID] {
			mark = "[x]"
		}
		line := mark + " " + g.Name
		switch {
		case f.form.onExtra() && i == cursor:
			b.WriteString(styles.AccentText.Render("› " + line))
		case f.selected[g.ID]:
			b.WriteString(styles.Text.Render("  " + line))
		default:
			b.WriteString(styles.MutedText.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}
