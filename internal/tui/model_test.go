package tui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/campuso/crossfeed/internal/api"
	"github.com/campuso/crossfeed/internal/config"
	"github.com/campuso/crossfeed/internal/feed"
	"github.com/campuso/crossfeed/internal/ops"
)

type stubClient struct {
	posts []api.Post
	// when set, ListPosts blocks until the channel closes, simulating a
	// slow in-flight fetch
	listGate chan struct{}
}

func (c *stubClient) ListPosts(ctx context.Context, q api.ListQuery) ([]api.Post, error) {
	if c.listGate != nil {
		<-c.listGate
	}
	return c.posts, nil
}

func (c *stubClient) CreatePost(ctx context.Context, create api.CreatePostRequest) (*api.Post, error) {
	return &api.Post{ID: 1, Content: create.Content, ClientTxID: create.ClientTxID}, nil
}

func (c *stubClient) CreatePostWithMedia(ctx context.Context, create api.CreatePostRequest, files []api.Upload) (*api.Post, error) {
	return c.CreatePost(ctx, create)
}

func (c *stubClient) React(ctx context.Context, postID int64, reaction string) error {
	return nil
}

func setupTestModel(t *testing.T, client *stubClient, filter feed.Filter) *Model {
	t.Helper()

	log := ops.NewLoggerWithWriter(&config.Logging{Level: "error"}, io.Discard)
	cfg := config.Default()

	paginator := feed.NewPaginator(client, filter, cfg.Feed.PageSize, log)
	submitter := feed.NewSubmissionController(client, paginator, log)
	reactions := feed.NewReactionDispatcher(client, paginator, log)
	gesture := feed.NewGestureController(&cfg.Gesture, paginator)
	scroll := feed.NewScrollTrigger(&cfg.Scroll)

	m := New(context.Background(), Deps{
		Paginator: paginator,
		Submitter: submitter,
		Reactions: reactions,
		Gesture:   gesture,
		Scroll:    scroll,
		Log:       log,
	})

	// Size the viewport so the model is ready to render
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(*Model)
}

func TestSubmitStagesPlaceholderBeforeDispatch(t *testing.T) {
	m := setupTestModel(t, &stubClient{}, feed.Filter{})

	m.composing = true
	m.composer.SetValue("hello wall")

	updated, cmd := m.submit()
	m = updated.(*Model)

	if cmd == nil {
		t.Fatal("expected a send command to be returned")
	}
	if !m.submitting {
		t.Error("expected submitting to be set before the command runs")
	}

	// The placeholder is in the merged view even though the returned
	// command has not executed yet
	pending := m.deps.Submitter.Pending()
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending placeholder, got %d", len(pending))
	}
	if pending[0].Content != "hello wall" {
		t.Errorf("placeholder content = %q, want %q", pending[0].Content, "hello wall")
	}
}

func TestSubmitIgnoredWhileInFlight(t *testing.T) {
	m := setupTestModel(t, &stubClient{}, feed.Filter{})

	m.composing = true
	m.composer.SetValue("first")
	updated, _ := m.submit()
	m = updated.(*Model)

	m.composer.SetValue("second")
	updated, cmd := m.submit()
	m = updated.(*Model)

	if cmd != nil {
		t.Error("expected no command while a submission is in flight")
	}
	if got := len(m.deps.Submitter.Pending()); got != 1 {
		t.Errorf("expected 1 pending placeholder, got %d", got)
	}
}

func TestSubmitEmptyBodyShowsStatus(t *testing.T) {
	m := setupTestModel(t, &stubClient{}, feed.Filter{})

	m.composing = true
	m.composer.SetValue("   ")
	updated, _ := m.submit()
	m = updated.(*Model)

	if m.submitting {
		t.Error("expected rejected draft to leave submitting unset")
	}
	if m.status == "" {
		t.Error("expected a validation status message")
	}
}

func TestWheelUpAtTopStartsPullGesture(t *testing.T) {
	m := setupTestModel(t, &stubClient{}, feed.Filter{})

	updated, cmd := m.handleMouse(tea.MouseMsg{Button: tea.MouseButtonWheelUp})
	m = updated.(*Model)

	if cmd == nil {
		t.Fatal("expected a release timer command")
	}
	if phase := m.deps.Gesture.Phase(); phase == feed.PullIdle {
		t.Errorf("expected the gesture to leave idle, got %v", phase)
	}
}

func TestWheelDownAbortsPullGesture(t *testing.T) {
	m := setupTestModel(t, &stubClient{}, feed.Filter{})

	updated, _ := m.handleMouse(tea.MouseMsg{Button: tea.MouseButtonWheelUp})
	m = updated.(*Model)

	updated, _ = m.handleMouse(tea.MouseMsg{Button: tea.MouseButtonWheelDown})
	m = updated.(*Model)

	if phase := m.deps.Gesture.Phase(); phase != feed.PullIdle {
		t.Errorf("expected the gesture back at idle, got %v", phase)
	}
}

func TestStaleReleaseTimerIgnored(t *testing.T) {
	m := setupTestModel(t, &stubClient{}, feed.Filter{})

	updated, _ := m.handleMouse(tea.MouseMsg{Button: tea.MouseButtonWheelUp})
	m = updated.(*Model)
	staleSeq := m.pullSeq

	// Another tick bumps the sequence; the earlier timer is stale
	updated, _ = m.handleMouse(tea.MouseMsg{Button: tea.MouseButtonWheelUp})
	m = updated.(*Model)

	phaseBefore := m.deps.Gesture.Phase()
	updated, _ = m.Update(pullReleaseMsg{seq: staleSeq})
	m = updated.(*Model)

	if phase := m.deps.Gesture.Phase(); phase != phaseBefore {
		t.Errorf("stale release changed the gesture phase from %v to %v", phaseBefore, phase)
	}
}

func TestSubmitCarriesScopedSchool(t *testing.T) {
	m := setupTestModel(t, &stubClient{}, feed.Filter{School: "ncku"})

	m.composing = true
	m.composer.SetValue("scoped post")
	updated, cmd := m.submit()
	m = updated.(*Model)

	if cmd == nil {
		t.Fatal("expected a send command to be returned")
	}
	pending := m.deps.Submitter.Pending()
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending placeholder, got %d", len(pending))
	}
	if pending[0].SchoolSlug != "ncku" {
		t.Errorf("placeholder school = %q, want %q", pending[0].SchoolSlug, "ncku")
	}
}

func TestPullCommitDuringRefreshHoldsIndicator(t *testing.T) {
	client := &stubClient{listGate: make(chan struct{})}
	m := setupTestModel(t, client, feed.Filter{})

	// A refresh is in flight, parked on the gate
	refreshDone := make(chan error, 1)
	go func() {
		refreshDone <- m.deps.Paginator.Refresh(context.Background())
	}()
	deadline := time.After(2 * time.Second)
	for !m.deps.Paginator.IsRefreshing() {
		select {
		case <-deadline:
			t.Fatal("refresh never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	// Eight wheel ticks at the top drag past the commit threshold
	for i := 0; i < 8; i++ {
		updated, _ := m.handleMouse(tea.MouseMsg{Button: tea.MouseButtonWheelUp})
		m = updated.(*Model)
	}

	updated, _ := m.Update(pullReleaseMsg{seq: m.pullSeq})
	m = updated.(*Model)

	// The commit must hold the indicator, not stack a second page-1
	// fetch behind the in-flight one
	if phase := m.deps.Gesture.Phase(); phase != feed.PullCommitted {
		t.Fatalf("expected committed indicator to hold, got %v", phase)
	}

	close(client.listGate)
	if err := <-refreshDone; err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	// The in-flight refresh's done message releases the indicator
	updated, _ = m.Update(refreshDoneMsg{})
	m = updated.(*Model)
	if phase := m.deps.Gesture.Phase(); phase != feed.PullIdle {
		t.Errorf("expected idle after the in-flight refresh resolved, got %v", phase)
	}
}

func TestShortErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain", errors.New("boom"), "boom"},
		{"multiline keeps first line", errors.New("first\nsecond"), "first"},
		{"long line truncated", errors.New(strings.Repeat("x", 100)), strings.Repeat("x", 80) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shortErr(tt.err); got != tt.want {
				t.Errorf("shortErr() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"seconds", now.Add(-30 * time.Second), "just now"},
		{"minutes", now.Add(-5 * time.Minute), "5m"},
		{"hours", now.Add(-3 * time.Hour), "3h"},
		{"days", now.Add(-49 * time.Hour), "2d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatAge(tt.t); got != tt.want {
				t.Errorf("formatAge() = %q, want %q", got, tt.want)
			}
		})
	}
}
