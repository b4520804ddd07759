package feed

import (
	"fmt"

	"github.com/campuso/crossfeed/internal/api"
)

// ValidationError is a locally rejected submission: it never reaches
// the network and is surfaced inline at the composer.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// PartialFailure means the submission itself succeeded but the
// reconciling refresh afterwards failed: the optimistic placeholder is
// visible but stale until the next successful refresh.
type PartialFailure struct {
	Created    *api.Post
	RefreshErr error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("post created but feed refresh failed: %v", e.RefreshErr)
}

func (e *PartialFailure) Unwrap() error {
	return e.RefreshErr
}
