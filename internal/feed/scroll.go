package feed

import (
	"time"

	"github.com/campuso/crossfeed/internal/config"
)

// loadMoreThrottle is the minimum interval between two load-more
// triggers from scrolling. The paginator's in-flight guard is the real
// defense; throttling just avoids hammering it on every scroll sample.
const loadMoreThrottle = 150 * time.Millisecond

// ScrollDecision is the pure outcome of one scroll sample
type ScrollDecision struct {
	LoadMore bool
	ShowTop  bool
}

// ScrollTrigger derives load-more and scroll-to-top decisions from
// scroll position samples. Both outputs are recomputed per sample;
// there is no state machine here beyond the paginator's own guards.
type ScrollTrigger struct {
	bottomMargin int
	topMargin    int

	now         func() time.Time
	lastTrigger time.Time
}

// NewScrollTrigger creates a trigger with margins from configuration
func NewScrollTrigger(cfg *config.Scroll) *ScrollTrigger {
	return &ScrollTrigger{
		bottomMargin: cfg.BottomMargin,
		topMargin:    cfg.TopMargin,
		now:          time.Now,
	}
}

// Sample evaluates one scroll position. offset is the distance scrolled
// from the top, viewport the visible extent, content the total extent;
// all in the caller's units (rows or pixels).
func (s *ScrollTrigger) Sample(offset, viewport, content int) ScrollDecision {
	d := ScrollDecision{
		ShowTop: offset > s.topMargin,
	}

	if content > viewport && offset+viewport >= content-s.bottomMargin {
		now := s.now()
		if now.Sub(s.lastTrigger) >= loadMoreThrottle {
			s.lastTrigger = now
			d.LoadMore = true
		}
	}

	return d
}
