package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/seriesnet/internal/seriesnet"
	"github.com/five82/seriesnet/internal/state"
	"github.com/five82/seriesnet/internal/upload"
)

const (
	postTitle = iota
	postContent
	postTags
	postImages
)

// postForm backs both the composer and the editor.
type postForm struct {
	form         form
	editID       string
	admin        bool
	announcement bool
	prefilled    bool
	existing     []string
	previews     []upload.Preview
	busy         bool
}

func newPostForm() postForm {
	return postForm{form: form{fields: []field{
		newField("Title", "What is it about?", 200),
		newAreaField("Content", "Say something"),
		newField("Tags", "comma separated", 200),
		newField("Images", "paths to .png/.jpg files, comma separated", 1000),
	}}}
}

func (p *postForm) clear() {
	p.form.reset()
	p.announcement = false
	p.existing = nil
	p.previews = nil
	p.busy = false
}

func (p *postForm) startCreate(admin bool) {
	p.clear()
	p.editID = ""
	p.admin = admin
	p.prefilled = true
}

func (p *postForm) startEdit(id string, admin bool) {
	p.clear()
	p.editID = id
	p.admin = admin
	p.prefilled = false
}

func (p postForm) editing() bool {
	return p.editID != ""
}

// prefillPost copies the edited post into the form once it is cached.
func (m *Model) prefillPost() {
	f := &m.postForm
	if !f.editing() || f.prefilled {
		return
	}
	post, snap := peek[seriesnet.Post](*m, state.PostKey(f.editID))
	if !snap.HasData {
		return
	}
	f.form.fields[postTitle].SetValue(post.Title)
	f.form.fields[postContent].SetValue(post.Content)
	f.form.fields[postTags].SetValue(strings.Join(post.Tags, ", "))
	f.existing = append([]string(nil), post.Images...)
	f.announcement = post.Announcement
	f.prefilled = true
}

func (m Model) handlePostFormKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, m.back()
	case key.Matches(msg, m.keys.NextField):
		return m, m.postForm.form.next()
	case key.Matches(msg, m.keys.PrevField):
		return m, m.postForm.form.prev()
	case key.Matches(msg, m.keys.Submit):
		return m, m.submitPost()
	case key.Matches(msg, m.keys.Preview):
		paths := splitList(m.postForm.form.value(postImages))
		if len(paths) == 0 {
			m.postForm.previews = nil
			return m, nil
		}
		m.postForm.busy = true
		return m, previewCmd(m.ctx, paths)
	case key.Matches(msg, m.keys.Announce):
		if m.postForm.admin {
			m.postForm.announcement = !m.postForm.announcement
		}
		return m, nil
	}
	return m, m.postForm.form.update(msg)
}

// submitPost validates the form and publishes it. Text problems are caught
// here; file problems are caught before the request is sent.
func (m *Model) submitPost() tea.Cmd {
	f := &m.postForm
	if f.editing() && !f.prefilled {
		m.notify(toastWarn, "Post is still loading")
		return nil
	}
	editing := f.editing()
	title := f.form.value(postTitle)
	content := f.form.raw(postContent)
	paths := splitList(f.form.value(postImages))
	if err := validatePost(editing, title, content, len(f.existing)+len(paths)); err != nil {
		m.notify(toastError, err.Error())
		return nil
	}

	in := seriesnet.PostInput{
		Title:        title,
		Content:      strings.TrimSpace(content),
		Tags:         splitList(f.form.value(postTags)),
		Announcement: f.admin && f.announcement,
	}
	rules := upload.PostCreate
	notice := "Post published"
	if editing {
		rules = upload.PostEdit
		notice = "Post updated"
	}
	store, ctx, sess, id := m.store, m.ctx, m.session, f.editID

	return func() tea.Msg {
		files, err := upload.Read(paths)
		if err != nil {
			return mutationMsg{err: err}
		}
		accepted, verr := upload.Validate(files, rules)
		warn := ""
		if verr != nil {
			if !rules.Partial {
				return mutationMsg{err: verr}
			}
			warn = rejectedWarning(verr)
		}
		for _, file := range accepted {
			in.Images = append(in.Images, file.Upload())
		}
		if editing {
			_, err = store.EditPost(ctx, sess, id, in)
		} else {
			_, err = store.CreatePost(ctx, sess, in)
		}
		return mutationMsg{notice: notice, warn: warn, err: err, apply: func(m *Model) tea.Cmd {
			m.postForm.clear()
			return m.back()
		}}
	}
}

func rejectedWarning(err error) string {
	verr, ok := err.(*upload.ValidationError)
	if !ok || len(verr.Rejected) == 0 {
		return err.Error()
	}
	return verr.Msg + " Skipped: " + strings.Join(verr.Rejected, ", ")
}

func (m Model) renderPostForm() string {
	styles := m.theme.Styles()
	f := m.postForm
	width := m.contentWidth()
	var b strings.Builder

	if f.editing() && !f.prefilled {
		_, snap := peek[seriesnet.Post](m, state.PostKey(f.editID))
		return m.renderQueryState(snap, "Loading post...")
	}

	b.WriteString(f.form.render(styles, width-4))

	if f.admin {
		mark := "[ ]"
		if f.announcement {
			mark = "[x]"
		}
		b.WriteString(styles.Text.Render(mark + " Announcement"))
		b.WriteString(styles.FaintText.Render("  ctrl+a"))
		b.WriteString("\n")
	}
	if len(f.existing) > 0 {
		b.WriteString(styles.MutedText.Render("Current images: " + strings.Join(f.existing, ", ")))
		b.WriteString("\n")
	}
	if f.busy {
		b.WriteString(styles.MutedText.Render("Rendering previews..."))
		b.WriteString("\n")
	}
	for _, p := range f.previews {
		b.WriteString(styles.FaintText.Render(p.Name))
		b.WriteString("\n")
		b.WriteString(p.ANSI)
		b.WriteString("\n")
	}
	return b.String()
}
