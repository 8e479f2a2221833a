package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/seriesnet/internal/seriesnet"
)

const (
	authUsername = iota
	authPassword
	authGender
)

// authForm backs the login and register pages.
type authForm struct {
	form     form
	register bool
}

func newLoginForm() authForm {
	return authForm{form: form{fields: []field{
		newField("Username", "username", 50),
		newPasswordField("Password"),
	}}}
}

func newRegisterForm() authForm {
	return authForm{register: true, form: form{fields: []field{
		newField("Username", "username", 50),
		newPasswordField("Password"),
		newField("Gender", "optional", 20),
	}}}
}

func (m *Model) activeAuth() *authForm {
	if m.view == ViewRegister {
		return &m.register
	}
	return &m.login
}

func (m Model) handleAuthKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	f := m.activeAuth()
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, m.back()
	case key.Matches(msg, m.keys.NextField):
		return m, f.form.next()
	case key.Matches(msg, m.keys.PrevField):
		return m, f.form.prev()
	case key.Matches(msg, m.keys.Submit):
		return m, m.submitAuth()
	case msg.String() == "enter":
		if f.form.focus == len(f.form.fields)-1 {
			return m, m.submitAuth()
		}
		return m, f.form.next()
	}
	return m, f.form.update(msg)
}

// submitAuth checks the form locally, then logs in or registers. The form is
// kept on failure.
func (m *Model) submitAuth() tea.Cmd {
	f := m.activeAuth()
	username := f.form.value(authUsername)
	password := f.form.raw(authPassword)
	if err := validateCredentials(username, password); err != nil {
		m.notify(toastError, err.Error())
		return nil
	}
	store, ctx := m.store, m.ctx
	if f.register {
		reg := seriesnet.Registration{Username: username, Password: password, Gender: f.form.value(authGender)}
		return func() tea.Msg {
			sess, err := store.Register(ctx, reg)
			return authMsg{sess: sess, username: username, err: err}
		}
	}
	creds := seriesnet.Credentials{Username: username, Password: password}
	return func() tea.Msg {
		sess, err := store.Login(ctx, creds)
		return authMsg{sess: sess, username: username, err: err}
	}
}

func (m Model) renderAuth() string {
	styles := m.theme.Styles()
	f := m.login
	title, hint := "Login", "No account yet? esc, then R to register."
	if m.view == ViewRegister {
		f = m.register
		title, hint = "Create account", "Already registered? esc, then a to login."
	}
	width := minInt(m.contentWidth()-4, 52)

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(title))
	b.WriteString("\n\n")
	b.WriteString(f.form.render(styles, width))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(hint))

	body := styles.Card.Width(width + 4).Render(b.String())
	return lipgloss.Place(m.width, maxInt(m.height-LayoutChromeHeight, 3), lipgloss.Center, lipgloss.Center, body)
}
