// Package feed implements the client-side synchronization engine for the
// wall: paginated accumulation of confirmed posts, optimistic placeholders
// for in-flight submissions, and the gesture/scroll triggers that drive
// refresh and load-more.
package feed

import (
	"sort"
	"strconv"
	"time"

	"github.com/campuso/crossfeed/internal/api"
)

// PendingState tracks the lifecycle of an optimistic placeholder
type PendingState int

const (
	// PendingInFlight means the submission request has not resolved yet
	PendingInFlight PendingState = iota
	// PendingSent means the server accepted the post; the placeholder
	// remains until a refreshed page supersedes it
	PendingSent
	// PendingFailed means the submission definitively failed; the
	// placeholder stays visible so the user can retry or dismiss it
	PendingFailed
)

func (s PendingState) String() string {
	switch s {
	case PendingInFlight:
		return "sending"
	case PendingSent:
		return "sent"
	case PendingFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Pending is a speculative, locally-materialized post that has not been
// confirmed by the server. At most one live Pending exists per TxID.
type Pending struct {
	TempKey    string
	TxID       TxID
	Content    string
	SchoolSlug string
	CreatedAt  time.Time // client clock
	State      PendingState
}

// Item is one entry of the merged feed view
type Item interface {
	Key() string
	Time() time.Time
}

// ConfirmedItem wraps a server-confirmed post
type ConfirmedItem struct {
	Post api.Post
}

func (c ConfirmedItem) Key() string     { return "post-" + strconv.FormatInt(c.Post.ID, 10) }
func (c ConfirmedItem) Time() time.Time { return c.Post.CreatedAt }

// PendingItem wraps an optimistic placeholder
type PendingItem struct {
	Entry Pending
}

func (p PendingItem) Key() string     { return p.Entry.TempKey }
func (p PendingItem) Time() time.Time { return p.Entry.CreatedAt }

// Merge builds the rendered feed: pending placeholders at the head
// (newest first), then confirmed posts by recency, duplicate-free by
// post ID. Inputs are not mutated; neither store references the other.
func Merge(pending []Pending, confirmed []api.Post) []Item {
	items := make([]Item, 0, len(pending)+len(confirmed))

	ordered := make([]Pending, len(pending))
	copy(ordered, pending)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})
	for _, p := range ordered {
		items = append(items, PendingItem{Entry: p})
	}

	seen := make(map[int64]struct{}, len(confirmed))
	for _, post := range confirmed {
		if _, dup := seen[post.ID]; dup {
			continue
		}
		seen[post.ID] = struct{}{}
		items = append(items, ConfirmedItem{Post: post})
	}

	return items
}
