package ui

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/five82/seriesnet/internal/logging"
	"github.com/five82/seriesnet/internal/mockapi"
	"github.com/five82/seriesnet/internal/prefs"
	"github.com/five82/seriesnet/internal/query"
	"github.com/five82/seriesnet/internal/seriesnet"
	"github.com/five82/seriesnet/internal/session"
	"github.com/five82/seriesnet/internal/state"
)

type harness struct {
	backend  *mockapi.Server
	store    *state.Store
	requests *atomic.Int32
	ctx      context.Context
	logger   *slog.Logger
}

func newHarness(t *testing.T) harness {
	t.Helper()
	return newLoggedHarness(t, nil)
}

// newLoggedHarness shares logger between the store and the UI.
func newLoggedHarness(t *testing.T, logger *slog.Logger) harness {
	t.Helper()
	backend := mockapi.New(mockapi.Options{Secret: []byte("s"), BcryptCost: bcrypt.MinCost})
	var requests atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		backend.Handler().ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	client, err := seriesnet.NewClient(ts.URL)
	require.NoError(t, err)
	cache := query.New(query.Options{StaleTime: time.Hour})
	t.Cleanup(cache.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	return harness{
		backend:  backend,
		store:    state.New(client, cache, &session.MemoryStore{}, logger),
		requests: &requests,
		ctx:      ctx,
		logger:   logger,
	}
}

func (h harness) model(t *testing.T) Model {
	t.Helper()
	m := New(Options{Context: h.ctx, Store: h.store, Logger: h.logger, PrefsPath: t.TempDir() + "/prefs.toml"})
	t.Cleanup(m.Close)
	m.width, m.height, m.ready = 100, 30, true
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestFeedState_Pagination(t *testing.T) {
	f := newFeedState("")
	assert.Equal(t, 1, f.page)

	assert.False(t, f.nextPage(9), "a short page is the last one")
	assert.Equal(t, 1, f.page)

	assert.True(t, f.nextPage(10))
	assert.Equal(t, 2, f.page)

	assert.True(t, f.prevPage())
	assert.False(t, f.prevPage(), "no page before the first")
	assert.Equal(t, 1, f.page)
}

func TestFeedState_FilterChangesResetPage(t *testing.T) {
	f := newFeedState("")
	f.page, f.cursor = 3, 4
	f.cycleSort()
	assert.Equal(t, 1, f.page)
	assert.Equal(t, 0, f.cursor)
	assert.Equal(t, "title", f.sort)

	f.page = 2
	f.setSearch("  naruto ")
	assert.Equal(t, seriesnet.PostFilter{Search: "naruto", Page: 1, Sort: "title"}, f.filter())

	f.page = 2
	f.setTags("a, b,,")
	assert.Equal(t, "a,b", f.tags)
	assert.Equal(t, 1, f.page)
}

func TestNewFeedState_IgnoresUnknownDefaultSort(t *testing.T) {
	assert.Equal(t, "popularity", newFeedState("popularity").sort)
	assert.Equal(t, "", newFeedState("bogus").sort)
}

func TestOrderPosts_AnnouncementsFirst(t *testing.T) {
	posts := []seriesnet.Post{
		{ID: "a"},
		{ID: "b", Announcement: true},
		{ID: "c"},
		{ID: "d", Announcement: true},
	}
	var ids []string
	for _, p := range orderPosts(posts) {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids)
}

func TestValidatePost(t *testing.T) {
	tests := []struct {
		name    string
		editing bool
		title   string
		content string
		images  int
		want    string
	}{
		{"create without title", false, " ", "body", 0, msgTitleCreate},
		{"create without body", false, "t", "  ", 0, msgContentCreate},
		{"create with image only", false, "t", "", 1, ""},
		{"edit without title", true, "", "body", 0, msgTitleEdit},
		{"edit without body", true, "t", "", 0, msgContentEdit},
		{"edit ok", true, "t", "body", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePost(tt.editing, tt.title, tt.content, tt.images)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.want)
		})
	}
}

func TestValidateSeries(t *testing.T) {
	assert.EqualError(t, validateSeries(false, "n", "d", 1, "p.png", ""), msgAllFields)
	assert.EqualError(t, validateSeries(true, "n", "d", 0, "", ""), msgAllFields)
	assert.NoError(t, validateSeries(true, "n", "d", 1, "", ""))
	assert.NoError(t, validateSeries(false, "n", "d", 2, "p.png", "b.png"))
}

func TestAnonymousFavourites_NoRequests(t *testing.T) {
	h := newHarness(t)
	m := h.model(t)
	require.True(t, m.session.Anonymous())

	cmd := m.navigate(ViewFavourites)
	assert.Nil(t, cmd)
	assert.Empty(t, m.queries())
	assert.Nil(t, m.syncQueries())
	assert.Empty(t, m.watched)
	assert.Contains(t, m.View(), msgLoginRequired)
	assert.Equal(t, int32(0), h.requests.Load())
}

func TestAnonymousFeed_DerivesFeedQuery(t *testing.T) {
	h := newHarness(t)
	m := h.model(t)

	qs := m.queries()
	require.Len(t, qs, 1)
	assert.Equal(t, state.FeedKey(seriesnet.PostFilter{Page: 1}).String(), qs[0].Key.String())

	assert.NotNil(t, m.syncQueries())
	assert.Len(t, m.watched, 1)

	m.feed.cycleSort()
	m.syncQueries()
	assert.Len(t, m.watched, 1, "the previous page key is unwatched")
	_, ok := m.watched[state.FeedKey(m.feed.filter()).String()]
	assert.True(t, ok)
}

func TestLogin_UpdatesSessionAndReturnsToFeed(t *testing.T) {
	h := newHarness(t)
	_, err := h.backend.AddUser(mockapi.Account{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	m := h.model(t)
	m.navigate(ViewLogin)
	m.login.form.fields[authUsername].SetValue("alice")
	m.login.form.fields[authPassword].SetValue("pw")

	cmd := m.submitAuth()
	require.NotNil(t, cmd)
	msg, ok := cmd().(authMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)

	next, _ := m.handleAuth(msg)
	assert.False(t, next.session.Anonymous())
	assert.Equal(t, ViewFeed, next.view)
	assert.Equal(t, "Welcome, alice", next.toast.text)
	assert.Empty(t, next.login.form.value(authUsername))
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLogin_LoggedOnce(t *testing.T) {
	var out lockedBuffer
	h := newLoggedHarness(t, logging.NewWriter(&out, "info"))
	_, err := h.backend.AddUser(mockapi.Account{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	m := h.model(t)
	m.navigate(ViewLogin)
	m.login.form.fields[authUsername].SetValue("alice")
	m.login.form.fields[authPassword].SetValue("pw")

	cmd := m.submitAuth()
	require.NotNil(t, cmd)
	msg, ok := cmd().(authMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)
	m.handleAuth(msg)

	assert.Equal(t, 1, strings.Count(out.String(), "msg=\"logged in\""))
}

func TestLogin_EmptyFieldsBlockedLocally(t *testing.T) {
	h := newHarness(t)
	m := h.model(t)
	m.navigate(ViewLogin)
	m.login.form.fields[authUsername].SetValue("alice")

	assert.Nil(t, m.submitAuth())
	assert.Equal(t, msgAllFields, m.toast.text)
	assert.Equal(t, int32(0), h.requests.Load())
}

func TestLogin_WrongPasswordKeepsForm(t *testing.T) {
	h := newHarness(t)
	_, err := h.backend.AddUser(mockapi.Account{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	m := h.model(t)
	m.navigate(ViewLogin)
	m.login.form.fields[authUsername].SetValue("alice")
	m.login.form.fields[authPassword].SetValue("nope")

	msg := m.submitAuth()().(authMsg)
	require.Error(t, msg.err)

	next, _ := m.handleAuth(msg)
	assert.True(t, next.session.Anonymous())
	assert.Equal(t, ViewLogin, next.view)
	assert.Equal(t, "alice", next.login.form.value(authUsername))
	assert.Equal(t, toastError, next.toast.level)
}

func TestCreatePost_ValidationBlocksNetwork(t *testing.T) {
	h := newHarness(t)
	m := h.model(t)
	m.session = session.Session{Token: "t", Role: session.RoleUser, UserID: "u"}
	m.postForm.startCreate(false)
	m.view = ViewComposePost
	m.postForm.form.fields[postContent].SetValue("body")

	assert.Nil(t, m.submitPost())
	assert.Equal(t, msgTitleCreate, m.toast.text)
	assert.Equal(t, int32(0), h.requests.Load())
}

func TestEditPost_ForbiddenKeepsInput(t *testing.T) {
	h := newHarness(t)
	aliceID, err := h.backend.AddUser(mockapi.Account{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	_, err = h.backend.AddUser(mockapi.Account{Username: "bob", Password: "pw"})
	require.NoError(t, err)
	postID := h.backend.AddPost(mockapi.PostSeed{AuthorID: aliceID, Title: "hello", Content: "world"})

	_, err = h.store.Login(h.ctx, seriesnet.Credentials{Username: "bob", Password: "pw"})
	require.NoError(t, err)
	_, _, err = state.Load[seriesnet.Post](h.ctx, h.store, h.store.Post(postID))
	require.NoError(t, err)

	m := h.model(t)
	require.False(t, m.session.Anonymous())
	m.postForm.startEdit(postID, false)
	m.view = ViewEditPost
	m.prefillPost()
	require.True(t, m.postForm.prefilled)
	assert.Equal(t, "hello", m.postForm.form.value(postTitle))

	m.postForm.form.fields[postTitle].SetValue("hijacked")
	cmd := m.submitPost()
	require.NotNil(t, cmd)
	msg := cmd().(mutationMsg)
	require.Error(t, msg.err)

	next, _ := m.handleMutation(msg)
	assert.Equal(t, "forbidden", next.toast.text)
	assert.Equal(t, ViewEditPost, next.view)
	assert.Equal(t, "hijacked", next.postForm.form.value(postTitle))

	cached, _, err := state.Load[seriesnet.Post](h.ctx, h.store, h.store.Post(postID))
	require.NoError(t, err)
	assert.Equal(t, "hello", cached.Title)
}

func TestMutation_SuccessRunsApply(t *testing.T) {
	m := New(Options{})
	m.view = ViewComposePost
	m.history = []View{ViewFeed}

	applied := false
	next, _ := m.handleMutation(mutationMsg{notice: "done", apply: func(m *Model) tea.Cmd {
		applied = true
		return m.back()
	}})
	assert.True(t, applied)
	assert.Equal(t, ViewFeed, next.view)
	assert.Equal(t, "done", next.toast.text)
}

func TestMutation_LoginRequiredWarns(t *testing.T) {
	m := New(Options{})
	next, _ := m.handleMutation(mutationMsg{err: state.ErrLoginRequired, apply: func(*Model) tea.Cmd {
		t.Fatal("apply must not run on failure")
		return nil
	}})
	assert.Equal(t, msgLoginRequired, next.toast.text)
	assert.Equal(t, toastWarn, next.toast.level)
}

func TestSeriesGenrePanel(t *testing.T) {
	m := New(Options{})
	m.view = ViewSeries
	m.session = session.Session{Token: "t", Role: session.RoleUser}

	m, _ = m.handleSeriesKey(runes("A"))
	assert.Equal(t, genreIdle, m.series.genre, "only admins manage genres")

	m.session.Role = session.RoleAdmin
	m, _ = m.handleSeriesKey(runes("A"))
	assert.Equal(t, genreTyping, m.series.genre)
	assert.True(t, m.inputActive())

	m, cmd := m.handleSeriesKey(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, msgGenreEmpty, m.toast.text)
	assert.Equal(t, genreTyping, m.series.genre)

	m, _ = m.handleSeriesKey(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, genreIdle, m.series.genre)
	assert.False(t, m.inputActive())
}

func TestSeriesListState_CycleGenre(t *testing.T) {
	genres := []seriesnet.Genre{{ID: "g1", Name: "Action"}, {ID: "g2", Name: "Drama"}}
	s := newSeriesListState("title")
	assert.Equal(t, "", s.sort)

	s.cycleGenre(genres)
	assert.Equal(t, "g1", s.genreID)
	s.cycleGenre(genres)
	assert.Equal(t, "g2", s.genreID)
	s.cycleGenre(genres)
	assert.Equal(t, "", s.genreID)
	assert.Equal(t, seriesnet.SeriesFilter{}, s.filter())
}

func TestSeriesForm_GenreIDsFollowListOrder(t *testing.T) {
	f := newSeriesForm()
	f.selected["g2"] = true
	f.selected["gone"] = true
	f.selected["g1"] = true
	f.selected["off"] = false
	genres := []seriesnet.Genre{{ID: "g1"}, {ID: "g2"}, {ID: "g3"}}
	assert.Equal(t, []string{"g1", "g2", "gone"}, f.genreIDs(genres))
}

func TestUsersState_Pagination(t *testing.T) {
	u := newUsersState()
	assert.False(t, u.nextPage(3))
	assert.True(t, u.nextPage(state.PageSize))
	assert.Equal(t, seriesnet.UserFilter{Page: 2}, u.filter())
	assert.True(t, u.prevPage())
	assert.False(t, u.prevPage())
}

func TestLogState_FiltersAndComponents(t *testing.T) {
	l := newLogState()
	l.load([]string{
		`time=2026-10-19T10:00:00Z level=DEBUG msg="cache hit" component=query`,
		`time=2026-10-19T10:00:01Z level=WARN msg="slow request" component=api`,
		`time=2026-10-19T10:00:02Z level=ERROR msg=boom component=api`,
	}, nil, time.Now())

	assert.Equal(t, []string{"api", "query"}, l.components())
	assert.Len(t, l.visible(), 3)

	l.level = "WARN"
	assert.Len(t, l.visible(), 2)
	l.component = "query"
	assert.Empty(t, l.visible())

	assert.Equal(t, "DEBUG", cycleValue("", logLevels))
	assert.Equal(t, "", cycleValue("ERROR", logLevels))
}

func TestThemeCycleIsPersisted(t *testing.T) {
	h := newHarness(t)
	m := h.model(t)
	before := m.theme.Name

	m, _ = m.handleKey(runes("T"))
	assert.NotEqual(t, before, m.theme.Name)
	assert.Equal(t, m.theme.Name, prefs.Load(m.prefsPath).Theme)
}
