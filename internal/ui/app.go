package ui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/seriesnet/internal/prefs"
	"github.com/five82/seriesnet/internal/query"
	"github.com/five82/seriesnet/internal/seriesnet"
	"github.com/five82/seriesnet/internal/session"
	"github.com/five82/seriesnet/internal/state"
)

// View identifies a page.
type View int

const (
	ViewFeed View = iota
	ViewComposePost
	ViewEditPost
	ViewSeries
	ViewSeriesDetail
	ViewComposeSeries
	ViewEditSeries
	ViewEpisode
	ViewUsers
	ViewProfile
	ViewFavourites
	ViewLogin
	ViewRegister
	ViewLogs
)

var viewTitles = map[View]string{
	ViewFeed:          "Feed",
	ViewComposePost:   "New post",
	ViewEditPost:      "Edit post",
	ViewSeries:        "Series",
	ViewSeriesDetail:  "Series",
	ViewComposeSeries: "New series",
	ViewEditSeries:    "Edit series",
	ViewEpisode:       "Episode",
	ViewUsers:         "Users",
	ViewProfile:       "Profile",
	ViewFavourites:    "My list",
	ViewLogin:         "Login",
	ViewRegister:      "Register",
	ViewLogs:          "Client log",
}

func (v View) String() string {
	if t, ok := viewTitles[v]; ok {
		return t
	}
	return "Unknown"
}

// requiresLogin reports whether anonymous sessions get the login prompt
// instead of the page.
func (v View) requiresLogin() bool {
	switch v {
	case ViewFeed, ViewLogin, ViewRegister, ViewLogs:
		return false
	default:
		return true
	}
}

// Options configures the UI.
type Options struct {
	Context     context.Context
	Store       *state.Store
	Assets      seriesnet.Assets
	Logger      *slog.Logger
	LogPath     string
	ThemeName   string
	PrefsPath   string
	DefaultSort string
	Tick        time.Duration
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx         context.Context
	store       *state.Store
	assets      seriesnet.Assets
	logger      *slog.Logger
	logPath     string
	prefsPath   string
	defaultSort string
	tick        time.Duration
	now         func() time.Time

	// UI state
	keys     keyMap
	theme    Theme
	view     View
	history  []View
	width    int
	height   int
	ready    bool
	showHelp bool
	modal    Modal
	toast    toast

	// Data state
	session     session.Session
	watched     map[string]func()
	events      <-chan query.Event
	unsubscribe func()

	// Pages
	feed         feedState
	postForm     postForm
	series       seriesListState
	seriesDetail seriesDetailState
	seriesForm   seriesForm
	episode      episodeState
	users        usersState
	profile      profileState
	favourites   favouritesState
	login        authForm
	register     authForm
	logs         logState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	tick := opts.Tick
	if tick == 0 {
		tick = DefaultUIInterval
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	m := Model{
		ctx:         ctx,
		store:       opts.Store,
		assets:      opts.Assets,
		logger:      logger,
		logPath:     opts.LogPath,
		prefsPath:   prefsPath,
		defaultSort: opts.DefaultSort,
		tick:        tick,
		now:         time.Now,
		keys:        DefaultKeyMap(),
		theme:       GetTheme(opts.ThemeName),
		view:        ViewFeed,
		watched:     make(map[string]func()),
		unsubscribe: func() {},

		feed:         newFeedState(opts.DefaultSort),
		postForm:     newPostForm(),
		series:       newSeriesListState(opts.DefaultSort),
		seriesDetail: seriesDetailState{},
		seriesForm:   newSeriesForm(),
		episode:      newEpisodeState(),
		users:        newUsersState(),
		login:        newLoginForm(),
		register:     newRegisterForm(),
		logs:         newLogState(),
	}
	if m.store != nil {
		m.session = m.store.Session()
		m.events, m.unsubscribe = m.store.Cache().Subscribe()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	m.logger.Info("ui started", slog.String("view", m.view.String()), slog.Bool("anonymous", m.session.Anonymous()))
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(m.tick),
		waitForEvent(m.events),
	}
	if cmd := m.syncQueries(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model. After every message the watched keys are
// reconciled with the ones the current page derives from its state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	sync := next.syncQueries()
	return next, tea.Batch(cmd, sync)
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case cacheEventMsg:
		m.onCacheEvent(query.Event(msg))
		return m, waitForEvent(m.events)

	case cacheClosedMsg:
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.logger.Debug("page query failed", slog.String("key", msg.key.String()), slog.String("error", msg.err.Error()))
		}
		m.onCacheEvent(query.Event{Key: msg.key})
		return m, nil

	case mutationMsg:
		return m.handleMutation(msg)

	case authMsg:
		return m.handleAuth(msg)

	case assetMsg:
		if m.modal != nil {
			var cmd tea.Cmd
			m.modal, cmd, _ = m.modal.Update(msg, m.keys)
			return m, cmd
		}
		return m, nil

	case previewMsg:
		m.postForm.busy = false
		if msg.err != nil {
			m.notify(toastError, seriesnet.Message(msg.err))
			return m, nil
		}
		m.postForm.previews = msg.previews
		return m, nil

	case logsMsg:
		m.logs.load(msg.lines, msg.err, m.now())
		m.resize()
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		var cmd tea.Cmd
		var closed bool
		m.modal, cmd, closed = m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		}
		return m, cmd
	}

	if m.inputActive() {
		return m.handlePageKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.logs.dirty = true
		m.syncLogView()
		if m.prefsPath != "" {
			p := prefs.Load(m.prefsPath)
			p.Theme = m.theme.Name
			if err := prefs.Save(m.prefsPath, p); err != nil {
				m.logger.Warn("save prefs failed", slog.String("error", err.Error()))
			}
		}
		return m, nil
	case key.Matches(msg, m.keys.Back):
		return m, m.back()
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh()
	case key.Matches(msg, m.keys.ViewFeed):
		return m, m.navigate(ViewFeed)
	case key.Matches(msg, m.keys.ViewSeries):
		return m, m.navigate(ViewSeries)
	case key.Matches(msg, m.keys.ViewFavourites):
		return m, m.navigate(ViewFavourites)
	case key.Matches(msg, m.keys.ViewUsers):
		return m, m.navigate(ViewUsers)
	case key.Matches(msg, m.keys.ViewProfile):
		m.profile = newProfileState(m.session.UserID)
		return m, m.navigate(ViewProfile)
	case key.Matches(msg, m.keys.ViewLogs):
		return m, tea.Batch(m.navigate(ViewLogs), readLogsCmd(m.logPath))
	case key.Matches(msg, m.keys.Login):
		return m, m.navigate(ViewLogin)
	case key.Matches(msg, m.keys.Register):
		return m, m.navigate(ViewRegister)
	case key.Matches(msg, m.keys.Logout):
		return m, m.confirmLogout()
	}

	if m.view.requiresLogin() && m.session.Anonymous() {
		return m, nil
	}
	return m.handlePageKey(msg)
}

// handlePageKey routes a key to the current page.
func (m Model) handlePageKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.view {
	case ViewFeed:
		return m.handleFeedKey(msg)
	case ViewComposePost, ViewEditPost:
		return m.handlePostFormKey(msg)
	case ViewSeries:
		return m.handleSeriesKey(msg)
	case ViewSeriesDetail:
		return m.handleSeriesDetailKey(msg)
	case ViewComposeSeries, ViewEditSeries:
		return m.handleSeriesFormKey(msg)
	case ViewEpisode:
		return m.handleEpisodeKey(msg)
	case ViewUsers:
		return m.handleUsersKey(msg)
	case ViewProfile:
		return m.handleProfileKey(msg)
	case ViewFavourites:
		return m.handleFavouritesKey(msg)
	case ViewLogin, ViewRegister:
		return m.handleAuthKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

// inputActive reports whether keystrokes belong to a text input.
func (m Model) inputActive() bool {
	if m.view.requiresLogin() && m.session.Anonymous() {
		return false
	}
	switch m.view {
	case ViewComposePost, ViewEditPost, ViewComposeSeries, ViewEditSeries, ViewLogin, ViewRegister:
		return true
	case ViewFeed:
		return m.feed.input != feedInputNone
	case ViewSeries:
		return m.series.searching || m.series.genre != genreIdle
	case ViewEpisode:
		return m.episode.commenting
	case ViewUsers:
		return m.users.searching
	}
	return false
}

// navigate switches to v, remembering the current page for back.
func (m *Model) navigate(v View) tea.Cmd {
	if v == m.view {
		return nil
	}
	m.history = append(m.history, m.view)
	if len(m.history) > 32 {
		m.history = m.history[len(m.history)-32:]
	}
	m.view = v
	return m.enter()
}

// replace switches to v without growing the history.
func (m *Model) replace(v View) tea.Cmd {
	m.view = v
	return m.enter()
}

func (m *Model) back() tea.Cmd {
	if len(m.history) == 0 {
		if m.view == ViewFeed {
			return nil
		}
		m.view = ViewFeed
		return m.enter()
	}
	m.view = m.history[len(m.history)-1]
	m.history = m.history[:len(m.history)-1]
	return m.enter()
}

// enter prepares the page being shown.
func (m *Model) enter() tea.Cmd {
	m.resize()
	switch m.view {
	case ViewLogin:
		return m.login.form.focusAt(0)
	case ViewRegister:
		return m.register.form.focusAt(0)
	case ViewComposePost, ViewEditPost:
		m.prefillPost()
		return m.postForm.form.focusAt(0)
	case ViewComposeSeries, ViewEditSeries:
		m.prefillSeries()
		return m.seriesForm.form.focusAt(0)
	}
	return nil
}

// refresh refetches every key the current page watches.
func (m Model) refresh() tea.Cmd {
	if m.store == nil {
		return nil
	}
	var cmds []tea.Cmd
	for _, q := range m.queries() {
		cmds = append(cmds, refetchCmd(m.ctx, m.store, q.Key))
	}
	if m.view == ViewLogs {
		cmds = append(cmds, readLogsCmd(m.logPath))
	}
	return tea.Batch(cmds...)
}

// handleTick expires notifications and drives the log viewer.
func (m Model) handleTick(now time.Time) (Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd(m.tick)}
	m.toast.expire(now)
	if m.view == ViewLogs && m.logs.follow && now.Sub(m.logs.lastRead) >= LogRefreshInterval {
		cmds = append(cmds, readLogsCmd(m.logPath))
	}
	return m, tea.Batch(cmds...)
}

// onCacheEvent fills edit forms once the entity they edit arrives.
func (m *Model) onCacheEvent(ev query.Event) {
	switch m.view {
	case ViewEditPost:
		if ev.Key.Matches(state.PostKey(m.postForm.editID)) {
			m.prefillPost()
		}
	case ViewEditSeries:
		if ev.Key.Matches(state.SeriesKey(m.seriesForm.editID)) {
			m.prefillSeries()
		}
	}
}

func (m *Model) resize() {
	w := m.contentWidth()
	m.postForm.form.setWidth(w - 4)
	m.seriesForm.form.setWidth(w - 4)
	m.login.form.setWidth(minInt(w-4, 48))
	m.register.form.setWidth(minInt(w-4, 48))
	m.feed.text.Width = w - 12
	m.series.text.Width = w - 12
	m.users.text.Width = w - 12
	m.episode.text.Width = w - 12
	m.logs.resize(m.width, m.height-LayoutChromeHeight-1)
	m.syncLogView()
}

func (m Model) contentWidth() int {
	w := m.width
	if w > LayoutCardMaxWidth {
		w = LayoutCardMaxWidth
	}
	if w < 20 {
		w = 20
	}
	return w
}

func (m *Model) notify(level toastLevel, text string) {
	m.toast = newToast(level, text, m.now())
}

// renderMain renders the nav bar, the page and the notification line.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	b.WriteString("\n")
	b.WriteString(m.renderToast())
	return b.String()
}

// renderContent renders the page body.
func (m Model) renderContent() string {
	if m.view.requiresLogin() && m.session.Anonymous() {
		return m.renderLoginPrompt()
	}
	switch m.view {
	case ViewFeed:
		return m.renderFeed()
	case ViewComposePost, ViewEditPost:
		return m.renderPostForm()
	case ViewSeries:
		return m.renderSeriesList()
	case ViewSeriesDetail:
		return m.renderSeriesDetail()
	case ViewComposeSeries, ViewEditSeries:
		return m.renderSeriesForm()
	case ViewEpisode:
		return m.renderEpisode()
	case ViewUsers:
		return m.renderUsers()
	case ViewProfile:
		return m.renderProfile()
	case ViewFavourites:
		return m.renderFavourites()
	case ViewLogin, ViewRegister:
		return m.renderAuth()
	case ViewLogs:
		return m.renderLogs()
	default:
		return ""
	}
}

// Close ends the cache subscription and unmounts every watched key.
func (m Model) Close() {
	for id, unwatch := range m.watched {
		unwatch()
		delete(m.watched, id)
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	defer m.Close()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
