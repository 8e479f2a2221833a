package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// field is one labelled input of a form, single or multi line.
type field struct {
	label     string
	multiline bool
	input     textinput.Model
	area      textarea.Model
}

func newField(label, placeholder string, limit int) field {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Prompt = ""
	return field{label: label, input: ti}
}

func newPasswordField(label string) field {
	f := newField(label, "", 128)
	f.input.EchoMode = textinput.EchoPassword
	f.input.EchoCharacter = '•'
	return f
}

func newAreaField(label, placeholder string) field {
	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.ShowLineNumbers = false
	ta.SetHeight(5)
	ta.CharLimit = 5000
	return field{label: label, multiline: true, area: ta}
}

func (f *field) Value() string {
	if f.multiline {
		return f.area.Value()
	}
	return f.input.Value()
}

func (f *field) SetValue(v string) {
	if f.multiline {
		f.area.SetValue(v)
		return
	}
	f.input.SetValue(v)
}

func (f *field) Focus() tea.Cmd {
	if f.multiline {
		return f.area.Focus()
	}
	return f.input.Focus()
}

func (f *field) Blur() {
	if f.multiline {
		f.area.Blur()
		return
	}
	f.input.Blur()
}

func (f *field) SetWidth(w int) {
	if f.multiline {
		f.area.SetWidth(w)
		return
	}
	f.input.Width = w
}

func (f *field) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if f.multiline {
		f.area, cmd = f.area.Update(msg)
		return cmd
	}
	f.input, cmd = f.input.Update(msg)
	return cmd
}

func (f *field) View() string {
	if f.multiline {
		return f.area.View()
	}
	return f.input.View()
}

// form is an ordered set of fields with one focused at a time. A focus index
// equal to len(fields) selects the extra row some forms render after their
// text inputs.
type form struct {
	fields []field
	focus  int
	extra  bool
}

func (f *form) rows() int {
	if f.extra {
		return len(f.fields) + 1
	}
	return len(f.fields)
}

func (f *form) focusAt(i int) tea.Cmd {
	for j := range f.fields {
		f.fields[j].Blur()
	}
	f.focus = (i + f.rows()) % f.rows()
	if f.focus < len(f.fields) {
		return f.fields[f.focus].Focus()
	}
	return nil
}

func (f *form) next() tea.Cmd {
	return f.focusAt(f.focus + 1)
}

func (f *form) prev() tea.Cmd {
	return f.focusAt(f.focus - 1)
}

func (f *form) onExtra() bool {
	return f.extra && f.focus == len(f.fields)
}

func (f *form) update(msg tea.Msg) tea.Cmd {
	if f.focus < 0 || f.focus >= len(f.fields) {
		return nil
	}
	return f.fields[f.focus].Update(msg)
}

func (f *form) value(i int) string {
	return strings.TrimSpace(f.fields[i].Value())
}

func (f *form) raw(i int) string {
	return f.fields[i].Value()
}

func (f *form) setWidth(w int) {
	for i := range f.fields {
		f.fields[i].SetWidth(w)
	}
}

func (f *form) reset() {
	for i := range f.fields {
		f.fields[i].SetValue("")
	}
	f.focusAt(0)
}

func (f *form) render(styles Styles, width int) string {
	var b strings.Builder
	for i := range f.fields {
		fld := &f.fields[i]
		label := styles.MutedText.Render(fld.label)
		if i == f.focus {
			label = styles.AccentText.Bold(true).Render(fld.label)
		}
		b.WriteString(label)
		b.WriteString("\n")
		box := styles.Card
		if i == f.focus {
			box = styles.CardFocus
		}
		b.WriteString(box.Width(width).Render(fld.View()))
		b.WriteString("\n")
	}
	return b.String()
}
