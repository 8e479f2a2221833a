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

type episodeState struct {
	id         string
	commenting bool
	text       textinput.Model
}

func newEpisodeState() episodeState {
	ti := textinput.New()
	ti.Placeholder = "Write a comment"
	ti.CharLimit = 1000
	return episodeState{text: ti}
}

func (e *episodeState) open(id string) {
	e.id = id
	e.closeInput()
}

func (e *episodeState) closeInput() {
	e.commenting = false
	e.text.Blur()
	e.text.SetValue("")
}

func (m Model) handleEpisodeKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.episode.commenting {
		switch msg.String() {
		case "esc":
			m.episode.closeInput()
			return m, nil
		case "enter":
			value := m.episode.text.Value()
			if err := validateComment(value); err != nil {
				m.notify(toastError, err.Error())
				return m, nil
			}
			return m, m.comment(seriesnet.TargetEpisode, m.episode.id, value, func(m *Model) tea.Cmd {
				m.episode.closeInput()
				return nil
			})
		}
		var cmd tea.Cmd
		m.episode.text, cmd = m.episode.text.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Like):
		return m, m.react(seriesnet.TargetEpisode, m.episode.id, true)
	case key.Matches(msg, m.keys.Dislike):
		return m, m.react(seriesnet.TargetEpisode, m.episode.id, false)
	case key.Matches(msg, m.keys.Comment):
		if m.loginRequired() {
			return m, nil
		}
		m.episode.commenting = true
		return m, m.episode.text.Focus()
	}
	return m, nil
}

func (m Model) renderEpisode() string {
	styles := m.theme.Styles()
	width := m.contentWidth()
	var b strings.Builder

	ep, snap := peek[seriesnet.Episode](m, state.EpisodeKey(m.episode.id))
	if !snap.HasData {
		return m.renderQueryState(snap, "Loading episode...")
	}
	if banner := m.renderQueryState(snap, ""); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n")
	}

	title := fmt.Sprintf("Episode %d", ep.Number)
	if ep.Title != "" {
		title += " · " + ep.Title
	}
	b.WriteString(styles.Text.Bold(true).Render(truncate(title, width)))
	b.WriteString("\n")
	if ep.Video != "" {
		b.WriteString(styles.MutedText.Render("video "))
		b.WriteString(styles.InfoText.Render(truncateMiddle(m.assets.Video(ep.Video), width-8)))
		b.WriteString("\n")
	}
	b.WriteString(m.renderReactions(len(ep.Likes), len(ep.Dislikes), ep.LikedBy(m.session.UserID), ep.DislikedBy(m.session.UserID)))
	b.WriteString(styles.MutedText.Render("   " + plural(len(ep.Comments), "comment")))
	b.WriteString("\n\n")

	b.WriteString(m.renderComments(ep.Comments, width-2))
	if m.episode.commenting {
		b.WriteString(styles.AccentText.Render("> "))
		b.WriteString(m.episode.text.View())
	}
	return b.String()
}
