package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/campuso/crossfeed/internal/feed"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#58a6ff")).
			Padding(0, 1)

	authorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#c9d1d9"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8b949e"))

	countsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7ee787"))

	pendingStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#d29922"))

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f85149"))

	selectedStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#58a6ff")).
			PaddingLeft(1)

	itemStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8b949e")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f85149")).
			Bold(true).
			Padding(1, 2)

	pullStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#58a6ff")).
			Align(lipgloss.Center)

	composerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#30363d")).
			Padding(0, 1)
)

// chromeHeight is the vertical space taken by everything that is not
// the feed viewport
func (m *Model) chromeHeight() int {
	h := 2 // header + status line
	if m.composing || m.submitting {
		h += 5 // composer box
	}
	if m.deps.Gesture.Phase() != feed.PullIdle {
		h++
	}
	return h
}

// syncContent rebuilds the merged view and pushes it into the viewport
func (m *Model) syncContent() {
	snap := m.deps.Paginator.Snapshot()
	m.items = feed.Merge(m.deps.Submitter.Pending(), snap.Posts)
	if m.cursor >= len(m.items) {
		m.cursor = max(0, len(m.items)-1)
	}

	if !m.ready {
		return
	}

	if snap.RefreshErr != nil && !snap.LoadedOnce && len(m.items) == 0 {
		// Nothing ever loaded: the whole view is the error
		m.viewport.SetContent(errorStyle.Render(
			"couldn't load the feed\n\n" + shortErr(snap.RefreshErr) + "\n\npress r to retry"))
		return
	}

	var b strings.Builder
	for i, item := range m.items {
		b.WriteString(m.renderItem(item, i == m.cursor))
		b.WriteString("\n")
	}

	switch {
	case snap.LoadingMore:
		b.WriteString(metaStyle.Render("  loading older posts..."))
	case snap.LoadMoreErr != nil:
		// Tail failure: items stay, only the tail gets the retry hint
		b.WriteString(failedStyle.Render("  couldn't load older posts") +
			metaStyle.Render("  (scroll again to retry)"))
	case !snap.HasMore && len(m.items) > 0:
		b.WriteString(metaStyle.Render("  you're all caught up"))
	case len(m.items) == 0 && snap.LoadedOnce:
		b.WriteString(metaStyle.Render("  nothing here yet"))
	}

	m.viewport.SetContent(b.String())
}

func (m *Model) renderItem(item feed.Item, selected bool) string {
	var body string
	switch it := item.(type) {
	case feed.PendingItem:
		tag := pendingStyle.Render("(" + it.Entry.State.String() + ")")
		if it.Entry.State == feed.PendingFailed {
			tag = failedStyle.Render("(failed - x to dismiss)")
		}
		header := authorStyle.Render("you") + " " + tag
		body = header + "\n" + it.Entry.Content

	case feed.ConfirmedItem:
		post := it.Post
		header := authorStyle.Render(post.AuthorLabel) +
			metaStyle.Render("  "+formatAge(post.CreatedAt))
		counts := countsStyle.Render(fmt.Sprintf("%d likes  %d shares  %d comments",
			post.Counts.Likes, post.Counts.Shares, post.Counts.Comments))
		body = header + "\n" + post.Content
		if len(post.MediaRefs) > 0 {
			body += "\n" + metaStyle.Render(fmt.Sprintf("[%d attachments]", len(post.MediaRefs)))
		}
		body += "\n" + counts
	}

	if selected {
		return selectedStyle.Render(body) + "\n"
	}
	return itemStyle.Render(body) + "\n"
}

// View implements tea.Model
func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder

	snap := m.deps.Paginator.Snapshot()
	title := "crossfeed"
	if f := m.deps.Paginator.Filter(); f.School != "" {
		title += "  @" + f.School
	}
	header := headerStyle.Render(title)
	if snap.Refreshing {
		header += " " + m.spinner.View()
	}
	b.WriteString(header + "\n")

	// Pull indicator above the feed while a gesture is live
	switch m.deps.Gesture.Phase() {
	case feed.PullPulling:
		width := int(m.deps.Gesture.Distance() / 4)
		marker := strings.Repeat("─", max(1, width))
		b.WriteString(pullStyle.Width(m.width).Render("↓ "+marker+" ↓") + "\n")
	case feed.PullCommitted:
		b.WriteString(pullStyle.Width(m.width).Render(m.spinner.View()+" refreshing") + "\n")
	}

	b.WriteString(m.viewport.View() + "\n")

	if m.composing || m.submitting {
		b.WriteString(composerStyle.Width(m.width - 2).Render(m.composer.View()) + "\n")
	}

	b.WriteString(m.statusLine())
	return b.String()
}

func (m *Model) statusLine() string {
	if m.status != "" {
		return statusStyle.Render(m.status)
	}

	var hints []string
	if m.submitting {
		hints = append(hints, "sending...")
	} else if m.composing {
		hints = append(hints, "ctrl+s send", "esc cancel")
	} else {
		hints = append(hints, "c compose", "r refresh", "L like", "S share", "q quit")
		if m.showTop {
			hints = append(hints, "g top")
		}
	}
	return statusStyle.Render(strings.Join(hints, "  ·  "))
}
