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

type sortOption struct {
	value string
	label string
}

var postSorts = []sortOption{
	{"", "Newest"},
	{"title", "Title"},
	{"popularity", "Popularity"},
}

var seriesSorts = []sortOption{
	{"", "Name"},
	{"popularity", "Popularity"},
}

func nextSort(current string, options []sortOption) string {
	for i, o := range options {
		if o.value == current {
			return options[(i+1)%len(options)].value
		}
	}
	return options[0].value
}

func sortLabel(current string, options []sortOption) string {
	for _, o := range options {
		if o.value == current {
			return "Sort " + o.label
		}
	}
	return "Sort " + options[0].label
}

type feedInput int

const (
	feedInputNone feedInput = iota
	feedInputSearch
	feedInputTags
	feedInputComment
)

// feedState is the local state of the feed. The feed key is derived from
// search, tags, page and sort only.
type feedState struct {
	search string
	tags   string
	sort   string
	page   int
	cursor int
	cards  map[string]cardState
	input  feedInput
	text   textinput.Model
}

func newFeedState(defaultSort string) feedState {
	ti := textinput.New()
	ti.CharLimit = 200
	sort := ""
	for _, o := range postSorts {
		if o.value == defaultSort {
			sort = defaultSort
		}
	}
	return feedState{sort: sort, page: 1, cards: make(map[string]cardState), text: ti}
}

func (f feedState) filter() seriesnet.PostFilter {
	return seriesnet.PostFilter{Search: f.search, Tags: f.tags, Page: f.page, Sort: f.sort}
}

// setSearch changes the title filter and returns to the first page.
func (f *feedState) setSearch(v string) {
	f.search = strings.TrimSpace(v)
	f.resetPage()
}

// setTags changes the tag filter and returns to the first page.
func (f *feedState) setTags(v string) {
	f.tags = strings.Join(splitList(v), ",")
	f.resetPage()
}

// cycleSort moves to the next sort order and returns to the first page.
func (f *feedState) cycleSort() {
	f.sort = nextSort(f.sort, postSorts)
	f.resetPage()
}

func (f *feedState) resetPage() {
	f.page = 1
	f.cursor = 0
}

// nextPage advances when the current page, holding n posts, was full.
func (f *feedState) nextPage(n int) bool {
	if !state.HasNextPage(n) {
		return false
	}
	f.page++
	f.cursor = 0
	return true
}

func (f *feedState) prevPage() bool {
	if !state.HasPrevPage(f.page) {
		return false
	}
	f.page--
	f.cursor = 0
	return true
}

// orderPosts puts announcements ahead of regular posts, keeping the backend
// order within each group.
func orderPosts(posts []seriesnet.Post) []seriesnet.Post {
	out := make([]seriesnet.Post, 0, len(posts))
	for _, p := range posts {
		if p.Announcement {
			out = append(out, p)
		}
	}
	for _, p := range posts {
		if !p.Announcement {
			out = append(out, p)
		}
	}
	return out
}

func (m Model) feedPosts() ([]seriesnet.Post, bool) {
	posts, snap := peek[[]seriesnet.Post](m, state.FeedKey(m.feed.filter()))
	return orderPosts(posts), snap.HasData
}

func (m Model) selectedPost() (seriesnet.Post, bool) {
	posts, _ := m.feedPosts()
	if len(posts) == 0 {
		return seriesnet.Post{}, false
	}
	return posts[clamp(m.feed.cursor, len(posts))], true
}

func (m Model) handleFeedKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.feed.input != feedInputNone {
		return m.handleFeedInput(msg)
	}

	posts, _ := m.feedPosts()
	raw, _ := peek[[]seriesnet.Post](m, state.FeedKey(m.feed.filter()))

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.feed.cursor < len(posts)-1 {
			m.feed.cursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.feed.cursor > 0 {
			m.feed.cursor--
		}
	case key.Matches(msg, m.keys.Top):
		m.feed.cursor = 0
	case key.Matches(msg, m.keys.Bottom):
		m.feed.cursor = maxInt(len(posts)-1, 0)
	case key.Matches(msg, m.keys.NextPage):
		m.feed.nextPage(len(raw))
	case key.Matches(msg, m.keys.PrevPage):
		m.feed.prevPage()
	case key.Matches(msg, m.keys.CycleSort):
		m.feed.cycleSort()
	case key.Matches(msg, m.keys.Search):
		return m, m.feed.openInput(feedInputSearch, m.feed.search)
	case key.Matches(msg, m.keys.FilterTag):
		return m, m.feed.openInput(feedInputTags, m.feed.tags)
	case key.Matches(msg, m.keys.Open):
		if p, ok := m.selectedPost(); ok {
			m.feed.cards[p.ID] = m.feed.cards[p.ID].toggle()
		}
	case key.Matches(msg, m.keys.New):
		if m.loginRequired() {
			return m, nil
		}
		m.postForm.startCreate(m.session.IsAdmin())
		return m, m.navigate(ViewComposePost)
	case key.Matches(msg, m.keys.Edit):
		if p, ok := m.selectedPost(); ok {
			return m, m.editPost(p)
		}
	case key.Matches(msg, m.keys.Delete):
		if p, ok := m.selectedPost(); ok {
			return m, m.confirmDeletePost(p)
		}
	case key.Matches(msg, m.keys.Like):
		if p, ok := m.selectedPost(); ok {
			return m, m.react(seriesnet.TargetPost, p.ID, true)
		}
	case key.Matches(msg, m.keys.Dislike):
		if p, ok := m.selectedPost(); ok {
			return m, m.react(seriesnet.TargetPost, p.ID, false)
		}
	case key.Matches(msg, m.keys.Comment):
		if p, ok := m.selectedPost(); ok {
			if m.loginRequired() {
				return m, nil
			}
			m.feed.cards[p.ID] = cardExpanded
			return m, m.feed.openInput(feedInputComment, "")
		}
	case key.Matches(msg, m.keys.Image):
		if p, ok := m.selectedPost(); ok {
			return m, m.openPostImages(p)
		}
	}
	return m, nil
}

func (f *feedState) openInput(mode feedInput, value string) tea.Cmd {
	f.input = mode
	switch mode {
	case feedInputSearch:
		f.text.Placeholder = "Search titles"
	case feedInputTags:
		f.text.Placeholder = "tag1, tag2"
	case feedInputComment:
		f.text.Placeholder = "Write a comment"
	}
	f.text.SetValue(value)
	f.text.CursorEnd()
	return f.text.Focus()
}

func (f *feedState) closeInput() {
	f.input = feedInputNone
	f.text.Blur()
	f.text.SetValue("")
}

func (m Model) handleFeedInput(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.feed.closeInput()
		return m, nil
	case "enter":
		value := m.feed.text.Value()
		switch m.feed.input {
		case feedInputSearch:
			m.feed.setSearch(value)
		case feedInputTags:
			m.feed.setTags(value)
		case feedInputComment:
			p, ok := m.selectedPost()
			if !ok {
				m.feed.closeInput()
				return m, nil
			}
			if err := validateComment(value); err != nil {
				m.notify(toastError, err.Error())
				return m, nil
			}
			cmd := m.comment(seriesnet.TargetPost, p.ID, value, func(m *Model) tea.Cmd {
				m.feed.closeInput()
				return nil
			})
			return m, cmd
		}
		m.feed.closeInput()
		return m, nil
	}
	var cmd tea.Cmd
	m.feed.text, cmd = m.feed.text.Update(msg)
	return m, cmd
}

func (m Model) renderFeed() string {
	styles := m.theme.Styles()
	width := m.contentWidth()
	var b strings.Builder

	filters := []string{styles.MutedText.Render(fmt.Sprintf("Page %d", m.feed.page))}
	if m.feed.search != "" {
		filters = append(filters, styles.AccentText.Render("search: "+m.feed.search))
	}
	if m.feed.tags != "" {
		filters = append(filters, styles.AccentText.Render("tags: "+m.feed.tags))
	}
	filters = append(filters, styles.MutedText.Render(sortLabel(m.feed.sort, postSorts)))
	b.WriteString(strings.Join(filters, styles.FaintText.Render("  •  ")))
	b.WriteString("\n")

	if m.feed.input != feedInputNone {
		b.WriteString(styles.AccentText.Render("> "))
		b.WriteString(m.feed.text.View())
		b.WriteString("\n")
	}

	key := state.FeedKey(m.feed.filter())
	raw, snap := peek[[]seriesnet.Post](m, key)
	if !snap.HasData {
		b.WriteString(m.renderQueryState(snap, "Loading posts..."))
		return b.String()
	}
	if banner := m.renderQueryState(snap, ""); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n")
	}

	posts := orderPosts(raw)
	if len(posts) == 0 {
		b.WriteString("\n")
		b.WriteString(styles.Text.Bold(true).Render("No Posts Found"))
		b.WriteString("\n")
		b.WriteString(styles.MutedText.Render("Try adjusting your search or filters."))
		b.WriteString("\n")
	}

	cursor := clamp(m.feed.cursor, len(posts))
	budget := m.height - LayoutChromeHeight - 4
	start := m.scrollStart(posts, cursor, budget, width)
	for i := start; i < len(posts); i++ {
		card := m.renderPostCard(posts[i], m.feed.cards[posts[i].ID], i == cursor, width)
		b.WriteString(card)
		b.WriteString("\n")
	}

	b.WriteString(m.renderPager(m.feed.page, len(raw)))
	return b.String()
}

// scrollStart picks the first card so the selected one stays on screen.
func (m Model) scrollStart(posts []seriesnet.Post, cursor, budget, width int) int {
	if budget <= 0 {
		return cursor
	}
	used := 0
	start := cursor
	for i := cursor; i >= 0; i-- {
		h := strings.Count(m.renderPostCard(posts[i], m.feed.cards[posts[i].ID], i == cursor, width), "\n") + 2
		if used+h > budget && i != cursor {
			break
		}
		used += h
		start = i
	}
	return start
}

func (m Model) renderPager(page, n int) string {
	styles := m.theme.Styles()
	prev := styles.FaintText.Render("[ prev")
	if state.HasPrevPage(page) {
		prev = styles.AccentText.Render("[ prev")
	}
	next := styles.FaintText.Render("next ]")
	if state.HasNextPage(n) {
		next = styles.AccentText.Render("next ]")
	}
	return prev + styles.MutedText.Render(fmt.Sprintf("   page %d   ", page)) + next
}

func (m *Model) editPost(p seriesnet.Post) tea.Cmd {
	if !m.session.Owns(p.Author.ID) {
		m.notify(toastWarn, "Only the author can edit this post")
		return nil
	}
	m.postForm.startEdit(p.ID, m.session.IsAdmin())
	return m.navigate(ViewEditPost)
}

func (m *Model) confirmDeletePost(p seriesnet.Post) tea.Cmd {
	if !m.session.CanDelete(p.Author.ID) {
		if m.session.Anonymous() {
			m.notify(toastWarn, msgLoginRequired)
		}
		return nil
	}
	store, ctx, sess, id := m.store, m.ctx, m.session, p.ID
	m.modal = newConfirm(confirmDeletePost, fmt.Sprintf("Delete %q?", truncate(p.Title, 40)), func() tea.Msg {
		err := store.DeletePost(ctx, sess, id)
		return mutationMsg{notice: "Post deleted", err: err}
	})
	return nil
}

func (m *Model) openPostImages(p seriesnet.Post) tea.Cmd {
	if len(p.Images) == 0 {
		m.notify(toastInfo, "This post has no images")
		return nil
	}
	urls := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		urls = append(urls, m.assets.PostImage(img))
	}
	modal, cmd := newImageModal(p.Title, urls, m.fetchAsset)
	m.modal = modal
	return cmd
}

func (m Model) fetchAsset(url string) tea.Cmd {
	return assetCmd(m.ctx, m.store, url)
}
