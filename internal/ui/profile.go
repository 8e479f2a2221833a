package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/seriesnet/internal/seriesnet"
	"github.com/five82/seriesnet/internal/state"
)

// profileState shows one user and the posts they wrote.
type profileState struct {
	userID string
	cursor int
	cards  map[string]cardState
}

func newProfileState(userID string) profileState {
	return profileState{userID: userID, cards: make(map[string]cardState)}
}

func (m Model) profilePosts() []seriesnet.Post {
	posts, _ := peek[[]seriesnet.Post](m, state.UserPostsKey(m.profile.userID))
	return posts
}

func (m Model) handleProfileKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	posts := m.profilePosts()
	var selected *seriesnet.Post
	if len(posts) > 0 {
		selected = &posts[clamp(m.profile.cursor, len(posts))]
	}
	switch {
	case key.Matches(msg, m.keys.Down):
		if m.profile.cursor < len(posts)-1 {
			m.profile.cursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.profile.cursor > 0 {
			m.profile.cursor--
		}
	case selected == nil:
	case key.Matches(msg, m.keys.Open):
		if m.profile.cards == nil {
			m.profile.cards = make(map[string]cardState)
		}
		m.profile.cards[selected.ID] = m.profile.cards[selected.ID].toggle()
	case key.Matches(msg, m.keys.Like):
		return m, m.react(seriesnet.TargetPost, selected.ID, true)
	case key.Matches(msg, m.keys.Dislike):
		return m, m.react(seriesnet.TargetPost, selected.ID, false)
	case key.Matches(msg, m.keys.Edit):
		return m, m.editPost(*selected)
	case key.Matches(msg, m.keys.Delete):
		return m, m.confirmDeletePost(*selected)
	case key.Matches(msg, m.keys.Image):
		return m, m.openPostImages(*selected)
	}
	return m, nil
}

func (m Model) renderProfile() string {
	styles := m.theme.Styles()
	width := m.contentWidth()
	var b strings.Builder

	user, snap := peek[seriesnet.UserRef](m, state.UserKey(m.profile.userID))
	if !snap.HasData {
		b.WriteString(m.renderQueryState(snap, "Loading profile..."))
		b.WriteString("\n")
	} else {
		head := styles.Text.Bold(true).Render("@" + user.Username)
		if user.Role != "" {
			head += "  " + styles.StatusStyle(user.Role).Render(user.Role)
		}
		if m.session.Owns(user.ID) {
			head += "  " + styles.FaintText.Render("(you)")
		}
		b.WriteString(head)
		b.WriteString("\n")
		if user.Profile != "" {
			b.WriteString(styles.FaintText.Render(truncateMiddle(m.assets.ProfileImage(user.Profile), width)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	posts, psnap := peek[[]seriesnet.Post](m, state.UserPostsKey(m.profile.userID))
	if !psnap.HasData {
		b.WriteString(m.renderQueryState(psnap, "Loading posts..."))
		return b.String()
	}
	if len(posts) == 0 {
		b.WriteString(styles.MutedText.Render("No posts yet"))
		return b.String()
	}
	b.WriteString(styles.AccentText.Render(plural(len(posts), "post")))
	b.WriteString("\n")
	cursor := clamp(m.profile.cursor, len(posts))
	for i, p := range posts {
		b.WriteString(m.renderPostCard(p, m.profile.cards[p.ID], i == cursor, width))
		b.WriteString("\n")
	}
	return b.String()
}
