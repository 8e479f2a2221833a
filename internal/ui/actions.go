package ui

import (
	"errors"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/seriesnet/internal/seriesnet"
	"github.com/five82/seriesnet/internal/state"
)

// react likes or dislikes a post or episode.
func (m *Model) react(target, id string, like bool) tea.Cmd {
	if m.loginRequired() {
		return nil
	}
	store, ctx, sess := m.store, m.ctx, m.session
	return func() tea.Msg {
		var err error
		if like {
			err = store.Like(ctx, sess, target, id)
		} else {
			err = store.Dislike(ctx, sess, target, id)
		}
		return mutationMsg{err: err}
	}
}

// comment appends to a post or episode thread. apply runs after success,
// typically to clear the input; on failure the input is kept.
func (m *Model) comment(target, id, content string, apply func(*Model) tea.Cmd) tea.Cmd {
	if m.loginRequired() {
		return nil
	}
	store, ctx, sess := m.store, m.ctx, m.session
	return func() tea.Msg {
		err := store.AddComment(ctx, sess, target, id, content)
		return mutationMsg{notice: "Comment added", err: err, apply: apply}
	}
}

// handleMutation shows the outcome of a write. The cache has already been
// invalidated on success and left untouched on failure.
func (m Model) handleMutation(msg mutationMsg) (Model, tea.Cmd) {
	if msg.err != nil {
		if errors.Is(msg.err, state.ErrLoginRequired) {
			m.notify(toastWarn, msgLoginRequired)
			return m, nil
		}
		if seriesnet.IsUnauthorized(msg.err) {
			m.logger.Warn("mutation rejected by backend", slog.String("error", msg.err.Error()))
		} else {
			m.logger.Info("mutation failed", slog.String("error", msg.err.Error()))
		}
		m.notify(toastError, seriesnet.Message(msg.err))
		return m, nil
	}
	var cmd tea.Cmd
	if msg.apply != nil {
		cmd = msg.apply(&m)
	}
	switch {
	case msg.warn != "":
		m.notify(toastWarn, msg.warn)
	case msg.notice != "":
		m.notify(toastInfo, msg.notice)
	}
	return m, cmd
}

// handleAuth applies a login or register result.
func (m Model) handleAuth(msg authMsg) (Model, tea.Cmd) {
	if msg.err != nil {
		m.notify(toastError, seriesnet.Message(msg.err))
		return m, nil
	}
	m.session = msg.sess
	m.login.form.reset()
	m.register.form.reset()
	m.history = nil
	greeting := "Welcome"
	if msg.username != "" {
		greeting += ", " + msg.username
	}
	m.notify(toastInfo, greeting)
	return m, m.replace(ViewFeed)
}

// confirmLogout asks before ending the session. The session is only cleared
// once the backend accepted the logout.
func (m *Model) confirmLogout() tea.Cmd {
	if m.session.Anonymous() {
		m.notify(toastInfo, "You are not logged in")
		return nil
	}
	store, ctx, sess := m.store, m.ctx, m.session
	m.modal = newConfirm(confirmLogout, "Log out?", func() tea.Msg {
		err := store.Logout(ctx, sess)
		return mutationMsg{notice: "Logged out", err: err, apply: func(m *Model) tea.Cmd {
			m.session = m.store.Session()
			m.history = nil
			return m.replace(ViewFeed)
		}}
	})
	return nil
}

// loginRequired is the shared guard for actions that need a session.
func (m *Model) loginRequired() bool {
	if m.session.Anonymous() {
		m.notify(toastWarn, msgLoginRequired)
		return true
	}
	return false
}
