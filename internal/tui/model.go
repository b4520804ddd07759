// Package tui renders the wall feed and composer as a bubbletea
// program. All engine calls run as commands off the update loop; the
// update loop itself only feeds discrete events into the engine's state
// machines and re-renders from snapshots.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/campuso/crossfeed/internal/feed"
	"github.com/campuso/crossfeed/internal/ops"
)

// wheelPullStep is the synthetic raw displacement one wheel-up tick at
// the top contributes to the pull gesture; pullRelease is how long
// after the last tick the "finger" is considered lifted.
const (
	wheelPullStep = 18.0
	pullRelease   = 250 * time.Millisecond
)

type refreshDoneMsg struct{ err error }
type loadMoreDoneMsg struct{ err error }
type submitDoneMsg struct {
	tempKey string
	err     error
}
type reactDoneMsg struct {
	postID int64
	err    error
}
type pullReleaseMsg struct{ seq int }
type statusExpiredMsg struct{ seq int }

// Deps are the engine components the model drives
type Deps struct {
	Paginator *feed.Paginator
	Submitter *feed.SubmissionController
	Reactions *feed.ReactionDispatcher
	Gesture   *feed.GestureController
	Scroll    *feed.ScrollTrigger
	Log       *ops.Logger
}

// Model is the bubbletea model for the feed view
type Model struct {
	ctx  context.Context
	deps Deps
	log  *ops.Logger

	viewport viewport.Model
	composer textarea.Model
	spinner  spinner.Model

	width, height int
	ready         bool

	cursor     int // selected item in the merged view
	items      []feed.Item
	showTop    bool
	composing  bool
	submitting bool

	// pull gesture bookkeeping: raw displacement accumulated from wheel
	// ticks, and a sequence number so stale release timers are ignored
	pullRaw float64
	pullSeq int

	status    string
	statusSeq int
}

// New creates the feed model
func New(ctx context.Context, deps Deps) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	ta := textarea.New()
	ta.Placeholder = "What's happening on the wall? (#id to reply)"
	ta.SetHeight(3)
	ta.CharLimit = 2000
	ta.ShowLineNumbers = false

	return &Model{
		ctx:      ctx,
		deps:     deps,
		log:      deps.Log.WithComponent("tui"),
		spinner:  sp,
		composer: ta,
	}
}

// Init kicks the first refresh; the cached snapshot, if any, is already
// seeded into the paginator so there is something to render meanwhile.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.refreshCmd())
}

func (m *Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		return refreshDoneMsg{err: m.deps.Paginator.Refresh(m.ctx)}
	}
}

func (m *Model) loadMoreCmd() tea.Cmd {
	return func() tea.Msg {
		return loadMoreDoneMsg{err: m.deps.Paginator.LoadMore(m.ctx)}
	}
}

func (m *Model) sendCmd(staged *feed.Staged) tea.Cmd {
	return func() tea.Msg {
		return submitDoneMsg{tempKey: staged.TempKey, err: m.deps.Submitter.Send(m.ctx, staged)}
	}
}

func (m *Model) reactCmd(postID int64, reaction string) tea.Cmd {
	return func() tea.Msg {
		return reactDoneMsg{postID: postID, err: m.deps.Reactions.React(m.ctx, postID, reaction)}
	}
}

func (m *Model) flashStatus(s string) tea.Cmd {
	m.status = s
	m.statusSeq++
	seq := m.statusSeq
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return statusExpiredMsg{seq: seq}
	})
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		bodyHeight := msg.Height - m.chromeHeight()
		if !m.ready {
			m.viewport = viewport.New(msg.Width, bodyHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = bodyHeight
		}
		m.composer.SetWidth(msg.Width - 4)
		m.syncContent()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case refreshDoneMsg:
		m.deps.Gesture.RefreshResolved()
		m.syncContent()
		if msg.err != nil && m.ctx.Err() == nil {
			cmds = append(cmds, m.flashStatus("refresh failed: "+shortErr(msg.err)))
		}
		return m, tea.Batch(cmds...)

	case loadMoreDoneMsg:
		m.syncContent()
		if msg.err != nil && m.ctx.Err() == nil {
			cmds = append(cmds, m.flashStatus("couldn't load older posts: "+shortErr(msg.err)))
		}
		return m, tea.Batch(cmds...)

	case submitDoneMsg:
		m.submitting = false
		m.composer.Focus()
		m.syncContent()
		switch err := msg.err.(type) {
		case nil:
			cmds = append(cmds, m.flashStatus("posted"))
		case *feed.PartialFailure:
			// The post landed; only the reconciling refresh failed
			cmds = append(cmds, m.flashStatus("posted, but the feed is stale: "+shortErr(err.RefreshErr)))
		default:
			cmds = append(cmds, m.flashStatus("post failed: "+shortErr(msg.err)))
		}
		return m, tea.Batch(cmds...)

	case reactDoneMsg:
		m.syncContent()
		if msg.err != nil {
			cmds = append(cmds, m.flashStatus("reaction failed: "+shortErr(msg.err)))
		}
		return m, tea.Batch(cmds...)

	case pullReleaseMsg:
		if msg.seq != m.pullSeq {
			return m, nil
		}
		m.pullRaw = 0
		if m.deps.Gesture.TouchEnd() {
			cmds = append(cmds, m.refreshCmd())
		}
		if m.deps.Gesture.Phase() == feed.PullCommitted {
			// Committed with a refresh already in flight starts no second
			// one; the in-flight refresh's done message releases the
			// indicator
			cmds = append(cmds, m.flashStatus("refreshing..."))
		}
		return m, tea.Batch(cmds...)

	case statusExpiredMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
		return m, nil
	}

	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.composing {
		switch msg.String() {
		case "esc":
			m.composing = false
			m.composer.Blur()
			return m, nil
		case "ctrl+s":
			return m.submit()
		case "ctrl+c":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.composer, cmd = m.composer.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "c", "i":
		m.composing = true
		return m, m.composer.Focus()

	case "r":
		return m, tea.Batch(m.flashStatus("refreshing..."), m.refreshCmd())

	case "g", "home":
		m.viewport.GotoTop()
		m.deps.Gesture.LeaveTop() // position changed programmatically
		m.afterScroll()
		return m, nil

	case "G", "end":
		m.viewport.GotoBottom()
		return m.maybeLoadMore()

	case "j", "down":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
		m.syncContent()
		m.scrollCursorIntoView()
		return m.maybeLoadMore()

	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
		m.syncContent()
		m.scrollCursorIntoView()
		m.afterScroll()
		return m, nil

	case "L":
		return m.reactToSelected("like")

	case "S":
		return m.reactToSelected("share")

	case "x":
		// Clear a failed placeholder under the cursor
		if item, ok := m.selectedPending(); ok && item.Entry.State == feed.PendingFailed {
			m.deps.Submitter.Dismiss(item.Entry.TempKey)
			m.syncContent()
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if m.viewport.AtTop() {
			// Wheel ticks at the top synthesize a pull gesture: each
			// tick extends the drag, a quiet interval releases it
			if m.deps.Gesture.Phase() == feed.PullIdle {
				m.pullRaw = 0
				m.deps.Gesture.TouchStart(0, true)
			}
			m.pullRaw += wheelPullStep
			m.deps.Gesture.TouchMove(m.pullRaw)
			m.pullSeq++
			seq := m.pullSeq
			return m, tea.Tick(pullRelease, func(time.Time) tea.Msg {
				return pullReleaseMsg{seq: seq}
			})
		}
		m.viewport.SetYOffset(m.viewport.YOffset - 3)
		m.afterScroll()
		return m, nil

	case tea.MouseButtonWheelDown:
		if m.deps.Gesture.Phase() != feed.PullIdle {
			m.deps.Gesture.LeaveTop()
			m.pullRaw = 0
		}
		m.viewport.SetYOffset(m.viewport.YOffset + 3)
		return m.maybeLoadMore()
	}

	return m, nil
}

func (m *Model) submit() (tea.Model, tea.Cmd) {
	if m.submitting {
		// The affordance is disabled between token assignment and
		// terminal resolution; a queued second submit would mint a
		// duplicate identity for the same logical action
		return m, nil
	}

	staged, err := m.deps.Submitter.Stage(feed.Draft{
		Body:       m.composer.Value(),
		SchoolSlug: m.deps.Paginator.Filter().School,
	})
	if err != nil {
		return m, m.flashStatus(shortErr(err))
	}

	// The placeholder is in the registry now; render it before the
	// request goes out
	m.submitting = true
	m.composer.Reset()
	m.composer.Blur()
	m.composing = false
	m.cursor = 0
	m.syncContent()
	m.viewport.GotoTop()

	return m, m.sendCmd(staged)
}

func (m *Model) reactToSelected(reaction string) (tea.Model, tea.Cmd) {
	if m.cursor >= len(m.items) {
		return m, nil
	}
	confirmed, ok := m.items[m.cursor].(feed.ConfirmedItem)
	if !ok {
		return m, m.flashStatus("can't react to an unconfirmed post")
	}
	return m, m.reactCmd(confirmed.Post.ID, reaction)
}

func (m *Model) selectedPending() (feed.PendingItem, bool) {
	if m.cursor >= len(m.items) {
		return feed.PendingItem{}, false
	}
	item, ok := m.items[m.cursor].(feed.PendingItem)
	return item, ok
}

// maybeLoadMore evaluates the scroll trigger after a downward movement
func (m *Model) maybeLoadMore() (tea.Model, tea.Cmd) {
	d := m.afterScroll()
	if d.LoadMore {
		return m, m.loadMoreCmd()
	}
	return m, nil
}

// afterScroll feeds the current position into the scroll trigger and
// updates the top affordance
func (m *Model) afterScroll() feed.ScrollDecision {
	if !m.ready {
		return feed.ScrollDecision{}
	}
	d := m.deps.Scroll.Sample(m.viewport.YOffset, m.viewport.Height, m.viewport.TotalLineCount())
	m.showTop = d.ShowTop
	return d
}

func (m *Model) scrollCursorIntoView() {
	// Cursor navigation approximates one item as a render block; the
	// viewport handles fine positioning
	if m.cursor == 0 {
		m.viewport.GotoTop()
	}
}

func shortErr(err error) string {
	s := err.Error()
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 80 {
		s = s[:80] + "..."
	}
	return s
}

func formatAge(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
