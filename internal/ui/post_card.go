package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/seriesnet/internal/seriesnet"
)

type cardState int

const (
	cardCollapsed cardState = iota
	cardExpanded
)

func (c cardState) toggle() cardState {
	if c == cardExpanded {
		return cardCollapsed
	}
	return cardExpanded
}

// renderPostCard renders one post. Collapsed cards show the summary line;
// expanded cards add the body, image names and the comment thread.
func (m Model) renderPostCard(p seriesnet.Post, state cardState, selected bool, width int) string {
	styles := m.theme.Styles()
	var b strings.Builder

	title := styles.Text.Bold(true).Render(truncate(p.Title, width-20))
	if p.Announcement {
		title = styles.StatusStyle("announcement").Render("Announcement") + " " + title
	}
	b.WriteString(title)
	b.WriteString("\n")

	author := p.Author.Username
	if author == "" {
		author = "unknown"
	}
	meta := []string{styles.AccentText.Render("@" + author)}
	if p.Edited() {
		meta = append(meta, styles.MutedText.Render("Latest update "+formatDate(p.ParsedUpdatedAt(), p.UpdatedAt)))
	} else {
		meta = append(meta, styles.MutedText.Render("Created at "+formatDate(p.ParsedCreatedAt(), p.CreatedAt)))
	}
	b.WriteString(strings.Join(meta, styles.FaintText.Render(" · ")))
	b.WriteString("\n")

	if len(p.Tags) > 0 {
		tags := make([]string, 0, len(p.Tags))
		for _, t := range p.Tags {
			tags = append(tags, "#"+t)
		}
		b.WriteString(styles.InfoText.Render(strings.Join(tags, " ")))
		b.WriteString("\n")
	}

	b.WriteString(m.renderReactions(len(p.Likes), len(p.Dislikes), p.LikedBy(m.session.UserID), p.DislikedBy(m.session.UserID)))
	b.WriteString(styles.MutedText.Render(fmt.Sprintf("   %s", plural(len(p.Comments), "comment"))))
	if len(p.Images) > 0 {
		b.WriteString(styles.MutedText.Render(fmt.Sprintf("   %s", plural(len(p.Images), "image"))))
	}

	if state == cardExpanded {
		b.WriteString("\n\n")
		if content := strings.TrimSpace(p.Content); content != "" {
			b.WriteString(lipgloss.NewStyle().Width(width - 6).Render(styles.Text.Render(content)))
			b.WriteString("\n")
		}
		if len(p.Images) > 0 {
			b.WriteString(styles.FaintText.Render("images: " + strings.Join(p.Images, ", ") + "  (i to view)"))
			b.WriteString("\n")
		}
		b.WriteString(m.renderComments(p.Comments, width-6))
		if selected && m.feed.input == feedInputComment {
			b.WriteString(styles.AccentText.Render("> "))
			b.WriteString(m.feed.text.View())
		}
	}

	card := styles.Card
	if selected {
		card = styles.CardFocus
	}
	return card.Width(width - 2).Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderReactions(likes, dislikes int, liked, disliked bool) string {
	styles := m.theme.Styles()
	likeStyle, dislikeStyle := styles.MutedText, styles.MutedText
	if liked {
		likeStyle = styles.SuccessText
	}
	if disliked {
		dislikeStyle = styles.DangerText
	}
	return likeStyle.Render(fmt.Sprintf("▲ %d", likes)) + "  " + dislikeStyle.Render(fmt.Sprintf("▼ %d", dislikes))
}

// renderComments renders a thread, oldest first.
func (m Model) renderComments(comments []seriesnet.Comment, width int) string {
	styles := m.theme.Styles()
	if len(comments) == 0 {
		return styles.FaintText.Render("No comments yet") + "\n"
	}
	var b strings.Builder
	for _, c := range comments {
		b.WriteString(m.renderComment(c, width))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderComment(c seriesnet.Comment, width int) string {
	styles := m.theme.Styles()
	author := c.Author.Username
	if author == "" {
		author = "unknown"
	}
	head := styles.AccentText.Render("@"+author) + " " +
		styles.FaintText.Render(formatDate(c.ParsedCreatedAt(), c.CreatedAt))
	body := lipgloss.NewStyle().Width(maxInt(width-2, 10)).PaddingLeft(2).Render(styles.Text.Render(c.Content))
	return head + "\n" + body
}
