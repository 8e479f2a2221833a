package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/seriesnet/internal/query"
	"github.com/five82/seriesnet/internal/seriesnet"
	"github.com/five82/seriesnet/internal/state"
)

// queries derives the keys the current page needs from local state alone.
// Anonymous sessions on login-only pages need none.
func (m Model) queries() []state.Query {
	if m.store == nil {
		return nil
	}
	if m.view.requiresLogin() && m.session.Anonymous() {
		return nil
	}
	s := m.store
	switch m.view {
	case ViewFeed:
		return []state.Query{s.Feed(m.feed.filter())}
	case ViewEditPost:
		return []state.Query{s.Post(m.postForm.editID)}
	case ViewSeries:
		return []state.Query{s.SeriesList(m.session, m.series.filter()), s.Genres()}
	case ViewSeriesDetail:
		return []state.Query{
			s.Series(m.session, m.seriesDetail.id),
			s.Genres(),
			s.Favourites(m.session),
		}
	case ViewComposeSeries:
		return []state.Query{s.Genres()}
	case ViewEditSeries:
		return []state.Query{s.Genres(), s.Series(m.session, m.seriesForm.editID)}
	case ViewEpisode:
		return []state.Query{s.Episode(m.session, m.episode.id)}
	case ViewUsers:
		return []state.Query{s.Users(m.users.filter())}
	case ViewProfile:
		return []state.Query{s.User(m.profile.userID), s.UserPosts(m.profile.userID)}
	case ViewFavourites:
		return []state.Query{s.Favourites(m.session)}
	}
	return nil
}

// syncQueries watches the keys the page needs and unwatches the rest. Newly
// mounted keys are loaded.
func (m *Model) syncQueries() tea.Cmd {
	if m.store == nil || m.watched == nil {
		return nil
	}
	want := m.queries()
	next := make(map[string]state.Query, len(want))
	for _, q := range want {
		next[q.Key.String()] = q
	}
	for id, unwatch := range m.watched {
		if _, ok := next[id]; !ok {
			unwatch()
			delete(m.watched, id)
		}
	}
	var cmds []tea.Cmd
	for id, q := range next {
		if _, ok := m.watched[id]; ok {
			continue
		}
		m.watched[id] = m.store.Watch(q)
		cmds = append(cmds, loadCmd(m.ctx, m.store, q))
	}
	return tea.Batch(cmds...)
}

// peek reads the cached value for key without fetching.
func peek[T any](m Model, key query.Key) (T, query.Snapshot) {
	var zero T
	if m.store == nil {
		return zero, query.Snapshot{Key: key}
	}
	snap, _ := m.store.Cache().Peek(key)
	v, err := query.Value[T](snap)
	if err != nil {
		return zero, snap
	}
	return v, snap
}

// renderQueryState renders the loading or error line for snap. It returns
// "" when there is data to show.
func (m Model) renderQueryState(snap query.Snapshot, loading string) string {
	styles := m.theme.Styles()
	switch {
	case snap.HasData && snap.Err != nil:
		return styles.WarningText.Render("Showing cached data: " + seriesnet.Message(snap.Err))
	case snap.HasData:
		return ""
	case snap.Err != nil:
		return styles.DangerText.Render(seriesnet.Message(snap.Err))
	default:
		return styles.MutedText.Render(loading)
	}
}
