package feed

import (
	"context"
	"fmt"

	"github.com/campuso/crossfeed/internal/ops"
)

// Reactor is the slice of the API client the dispatcher needs
type Reactor interface {
	React(ctx context.Context, postID int64, reaction string) error
}

// ReactionDispatcher sends reaction mutations and reconciles by
// refetching. Counts are never incremented locally before confirmation:
// the updated value arrives with the reconciling refresh, so the server
// always wins on conflict.
type ReactionDispatcher struct {
	client    Reactor
	refresher Refresher
	log       *ops.Logger
}

// NewReactionDispatcher creates a dispatcher reconciling via the given
// refresher
func NewReactionDispatcher(client Reactor, refresher Refresher, log *ops.Logger) *ReactionDispatcher {
	return &ReactionDispatcher{
		client:    client,
		refresher: refresher,
		log:       log.WithComponent("reactions"),
	}
}

// React sends one reaction and triggers the reconciling refresh. Errors
// are never fatal to the feed; callers surface them as transient status.
func (d *ReactionDispatcher) React(ctx context.Context, postID int64, reaction string) error {
	err := d.client.React(ctx, postID, reaction)
	d.log.LogReaction(postID, reaction, err)
	if err != nil {
		return fmt.Errorf("reaction failed: %w", err)
	}

	if err := d.refresher.Refresh(ctx); err != nil {
		return fmt.Errorf("reaction sent but refresh failed: %w", err)
	}
	return nil
}
