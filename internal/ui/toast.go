package ui

import "time"

type toastLevel int

const (
	toastInfo toastLevel = iota
	toastWarn
	toastError
)

// toast is the one-shot notification shown under the page.
type toast struct {
	text  string
	level toastLevel
	until time.Time
}

func newToast(level toastLevel, text string, now time.Time) toast {
	return toast{text: text, level: level, until: now.Add(ToastDuration)}
}

func (t *toast) expire(now time.Time) {
	if t.text != "" && !now.Before(t.until) {
		*t = toast{}
	}
}

func (t toast) visible() bool {
	return t.text != ""
}

func (m Model) renderToast() string {
	if !m.toast.visible() {
		return ""
	}
	styles := m.theme.Styles()
	style := styles.SuccessText
	switch m.toast.level {
	case toastWarn:
		style = styles.WarningText
	case toastError:
		style = styles.DangerText
	}
	return style.Render(truncate(m.toast.text, m.width))
}
