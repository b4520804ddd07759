package feed

import (
	"context"
	"sync"
	"time"

	"github.com/campuso/crossfeed/internal/api"
	"github.com/campuso/crossfeed/internal/config"
	"github.com/campuso/crossfeed/internal/ops"
)

// Lister is the slice of the API client the paginator needs
type Lister interface {
	ListPosts(ctx context.Context, q api.ListQuery) ([]api.Post, error)
}

// Filter is the feed's filter context. Any change to it invalidates the
// accumulated pages entirely; there is no incremental re-filtering.
type Filter struct {
	School     string
	AllSchools bool
	CrossOnly  bool
	Keyword    string
	Start      string
	End        string
}

// FilterFromConfig builds the initial filter context from configuration
func FilterFromConfig(cfg *config.Feed) Filter {
	return Filter{
		School:     cfg.School,
		AllSchools: cfg.AllSchools,
		CrossOnly:  cfg.CrossOnly,
		Keyword:    cfg.Keyword,
		Start:      cfg.StartDate,
		End:        cfg.EndDate,
	}
}

func (f Filter) query(page, size int) api.ListQuery {
	return api.ListQuery{
		Limit:      size,
		Page:       page,
		School:     f.School,
		AllSchools: f.AllSchools,
		CrossOnly:  f.CrossOnly,
		Keyword:    f.Keyword,
		Start:      f.Start,
		End:        f.End,
	}
}

// Snapshot is a render-time copy of the paginator's state
type Snapshot struct {
	Posts       []api.Post
	HasMore     bool
	Refreshing  bool
	LoadingMore bool
	LoadedOnce  bool
	// RefreshErr with LoadedOnce false means the whole view is an
	// error+retry affordance; LoadMoreErr leaves existing items visible
	// and marks only the tail.
	RefreshErr  error
	LoadMoreErr error
}

// Paginator owns the accumulation of server-confirmed posts. Refresh
// replaces the accumulation from page 1; LoadMore appends subsequent
// pages. "More pages exist" is derived from page fullness, never stored
// by the server.
//
// Refreshes are serialized: at most one is in flight, and calls made
// meanwhile coalesce into a single trailing pass. LoadMore is a no-op
// while any fetch is in flight or the feed is exhausted; that guard is
// what keeps a fast scroll from stacking duplicate page requests.
type Paginator struct {
	mu       sync.Mutex
	client   Lister
	log      *ops.Logger
	pageSize int

	filter Filter
	// gen increments whenever the accumulation is replaced or the
	// filter changes; in-flight results from an older gen are discarded
	gen int

	posts       []api.Post
	nextPage    int
	hasMore     bool
	loadedOnce  bool
	refreshing  bool
	refreshNext bool
	loadingMore bool
	refreshErr  error
	loadMoreErr error

	// onApply observes the accumulation after every successful apply;
	// used for placeholder retirement and cache persistence
	onApply func(posts []api.Post)
}

// NewPaginator creates a paginator over the given client and filter
func NewPaginator(client Lister, filter Filter, pageSize int, log *ops.Logger) *Paginator {
	return &Paginator{
		client:   client,
		log:      log.WithComponent("paginator"),
		pageSize: pageSize,
		filter:   filter,
		nextPage: 1,
		hasMore:  true,
	}
}

// SetOnApply registers the accumulation observer. Must be called before
// the first fetch.
func (p *Paginator) SetOnApply(fn func(posts []api.Post)) {
	p.mu.Lock()
	p.onApply = fn
	p.mu.Unlock()
}

// Seed pre-populates the accumulation, typically from the local cache,
// so the view renders immediately while the first real refresh runs.
// Seeded data never flips loadedOnce: a failing first refresh must
// still present as an initial-load error.
func (p *Paginator) Seed(posts []api.Post) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loadedOnce || p.refreshing {
		return
	}
	p.posts = dedupe(posts)
}

// IsRefreshing reports whether a page-1 refresh is in flight
func (p *Paginator) IsRefreshing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshing
}

// Snapshot returns a copy of the current state for rendering
func (p *Paginator) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	posts := make([]api.Post, len(p.posts))
	copy(posts, p.posts)

	return Snapshot{
		Posts:       posts,
		HasMore:     p.hasMore,
		Refreshing:  p.refreshing,
		LoadingMore: p.loadingMore,
		LoadedOnce:  p.loadedOnce,
		RefreshErr:  p.refreshErr,
		LoadMoreErr: p.loadMoreErr,
	}
}

// Refresh fetches page 1 with the current filter context and replaces
// the accumulation. Calls while a refresh is in flight coalesce into at
// most one trailing refresh and return nil immediately. Results arriving
// after ctx is cancelled are discarded without touching state.
func (p *Paginator) Refresh(ctx context.Context) error {
	p.mu.Lock()
	if p.refreshing {
		p.refreshNext = true
		p.mu.Unlock()
		return nil
	}
	p.refreshing = true
	p.mu.Unlock()

	var lastErr error
	for {
		p.mu.Lock()
		gen := p.gen
		q := p.filter.query(1, p.pageSize)
		p.mu.Unlock()

		start := time.Now()
		items, err := p.client.ListPosts(ctx, q)
		p.log.LogPageFetch("refresh", 1, len(items), time.Since(start), err)

		p.mu.Lock()
		if ctx.Err() != nil {
			p.refreshing = false
			p.refreshNext = false
			p.mu.Unlock()
			return ctx.Err()
		}

		var applied []api.Post
		var notify func([]api.Post)
		stale := gen != p.gen
		if !stale {
			if err != nil {
				p.refreshErr = err
				lastErr = err
			} else {
				p.posts = dedupe(items)
				p.nextPage = 2
				p.hasMore = len(items) == p.pageSize
				p.loadedOnce = true
				p.refreshErr = nil
				p.loadMoreErr = nil
				p.gen++
				lastErr = nil
				applied = append([]api.Post(nil), p.posts...)
				notify = p.onApply
			}
		}

		rerun := p.refreshNext || stale
		p.refreshNext = false
		if !rerun {
			p.refreshing = false
		}
		p.mu.Unlock()

		if notify != nil {
			notify(applied)
		}
		if !rerun {
			return lastErr
		}
	}
}

// LoadMore fetches the next page and appends it. It is a deliberate
// no-op while any fetch is in flight, before the first refresh, or once
// the feed is exhausted.
func (p *Paginator) LoadMore(ctx context.Context) error {
	p.mu.Lock()
	if p.refreshing || p.loadingMore || !p.hasMore || !p.loadedOnce {
		p.mu.Unlock()
		return nil
	}
	p.loadingMore = true
	gen := p.gen
	page := p.nextPage
	q := p.filter.query(page, p.pageSize)
	p.mu.Unlock()

	start := time.Now()
	items, err := p.client.ListPosts(ctx, q)
	p.log.LogPageFetch("load_more", page, len(items), time.Since(start), err)

	p.mu.Lock()
	p.loadingMore = false
	if ctx.Err() != nil {
		p.mu.Unlock()
		return ctx.Err()
	}
	if gen != p.gen {
		// A refresh or filter change replaced the accumulation while
		// this page was in flight; the result no longer fits anywhere
		p.mu.Unlock()
		return nil
	}
	if err != nil {
		p.loadMoreErr = err
		p.mu.Unlock()
		return err
	}

	existing := make(map[int64]struct{}, len(p.posts))
	for _, post := range p.posts {
		existing[post.ID] = struct{}{}
	}
	for _, post := range items {
		if _, dup := existing[post.ID]; dup {
			continue
		}
		existing[post.ID] = struct{}{}
		p.posts = append(p.posts, post)
	}
	p.nextPage++
	p.hasMore = len(items) == p.pageSize
	p.loadMoreErr = nil

	applied := append([]api.Post(nil), p.posts...)
	notify := p.onApply
	p.mu.Unlock()

	if notify != nil {
		notify(applied)
	}
	return nil
}

// ApplyFilter replaces the filter context, discards the accumulation
// and re-runs a refresh from page 1. A no-op when the filter is
// unchanged.
func (p *Paginator) ApplyFilter(ctx context.Context, f Filter) error {
	p.mu.Lock()
	if f == p.filter {
		p.mu.Unlock()
		return nil
	}
	p.filter = f
	p.gen++
	p.posts = nil
	p.nextPage = 1
	p.hasMore = true
	p.loadedOnce = false
	p.refreshErr = nil
	p.loadMoreErr = nil
	p.mu.Unlock()

	return p.Refresh(ctx)
}

// Filter returns the current filter context
func (p *Paginator) Filter() Filter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filter
}

func dedupe(posts []api.Post) []api.Post {
	out := make([]api.Post, 0, len(posts))
	seen := make(map[int64]struct{}, len(posts))
	for _, post := range posts {
		if _, dup := seen[post.ID]; dup {
			continue
		}
		seen[post.ID] = struct{}{}
		out = append(out, post)
	}
	return out
}
