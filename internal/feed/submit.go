package feed

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/campuso/crossfeed/internal/api"
	"github.com/campuso/crossfeed/internal/ops"
)

// MaxAttachments is the per-submission attachment cap. Excess files are
// silently truncated to the first four; the server enforces the same
// limit but the client must not rely on it.
const MaxAttachments = 4

// replyMarker is the inline reply-to syntax: a leading "#<digits>"
// token. It applies to text-only submissions; a body with attachments
// is sent verbatim.
var replyMarker = regexp.MustCompile(`^#(\d+)\s*`)

// Poster is the slice of the API client the controller needs
type Poster interface {
	CreatePost(ctx context.Context, create api.CreatePostRequest) (*api.Post, error)
	CreatePostWithMedia(ctx context.Context, create api.CreatePostRequest, files []api.Upload) (*api.Post, error)
}

// Refresher triggers the reconciling feed refresh after a write
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Draft is user input for one submission
type Draft struct {
	Body       string
	Files      []api.Upload
	SchoolSlug string
}

// Staged is a validated submission with its idempotency token assigned
// and its optimistic placeholder already inserted. Stage runs
// synchronously on the event loop so the placeholder is visible before
// the network request is dispatched; Send does the blocking transport.
type Staged struct {
	TempKey string
	TxID    TxID
	Request api.CreatePostRequest
	Files   []api.Upload
}

// SubmissionController orchestrates writes: validation, idempotency
// token assignment, optimistic placeholders, endpoint selection by
// payload shape, and placeholder retirement once confirmed posts
// reappear from the paginator.
type SubmissionController struct {
	mu        sync.Mutex
	client    Poster
	refresher Refresher
	log       *ops.Logger
	newTxID   func() TxID
	now       func() time.Time

	pending []Pending // newest first
	tempSeq int
}

// NewSubmissionController creates a controller writing through the given
// client, reconciling via the given refresher.
func NewSubmissionController(client Poster, refresher Refresher, log *ops.Logger) *SubmissionController {
	return &SubmissionController{
		client:    client,
		refresher: refresher,
		log:       log.WithComponent("submission"),
		newTxID:   NewTxID,
		now:       time.Now,
	}
}

// Stage validates a draft, generates its TxID and inserts the pending
// placeholder at the head of the feed. It performs no network I/O and
// returns a ValidationError for locally rejected drafts.
func (s *SubmissionController) Stage(draft Draft) (*Staged, error) {
	body := strings.TrimSpace(draft.Body)
	files := draft.Files
	if body == "" && len(files) == 0 {
		return nil, &ValidationError{Reason: "post body is empty"}
	}
	if len(files) > MaxAttachments {
		files = files[:MaxAttachments]
	}

	create := api.CreatePostRequest{
		Content:    body,
		SchoolSlug: draft.SchoolSlug,
	}

	// Reply markers are only parsed for text-only posts; with media the
	// body ships unchanged
	if len(files) == 0 {
		if m := replyMarker.FindStringSubmatch(body); m != nil {
			if id, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				create.ReplyToID = &id
				create.Content = strings.TrimPrefix(body, m[0])
			}
		}
	}

	tx := s.newTxID()
	create.ClientTxID = string(tx)

	s.mu.Lock()
	s.tempSeq++
	entry := Pending{
		TempKey:    fmt.Sprintf("pending-%d", s.tempSeq),
		TxID:       tx,
		Content:    create.Content,
		SchoolSlug: draft.SchoolSlug,
		CreatedAt:  s.now(),
		State:      PendingInFlight,
	}
	s.pending = append([]Pending{entry}, s.pending...)
	s.mu.Unlock()

	return &Staged{
		TempKey: entry.TempKey,
		TxID:    tx,
		Request: create,
		Files:   files,
	}, nil
}

// Send performs the network write for a staged submission and the
// reconciling refresh afterwards. On transport failure the placeholder
// is marked failed and left visible; a PartialFailure is returned when
// the write landed but the refresh did not.
func (s *SubmissionController) Send(ctx context.Context, staged *Staged) error {
	var created *api.Post
	var err error
	withMedia := len(staged.Files) > 0
	if withMedia {
		created, err = s.client.CreatePostWithMedia(ctx, staged.Request, staged.Files)
	} else {
		created, err = s.client.CreatePost(ctx, staged.Request)
	}
	s.log.LogSubmission(string(staged.TxID), withMedia, err)

	if err != nil {
		s.setState(staged.TempKey, PendingFailed)
		return fmt.Errorf("submission failed: %w", err)
	}

	s.setState(staged.TempKey, PendingSent)

	if refreshErr := s.refresher.Refresh(ctx); refreshErr != nil {
		return &PartialFailure{Created: created, RefreshErr: refreshErr}
	}
	return nil
}

// Submit stages and sends in one call. Callers that need the optimistic
// placeholder rendered before the request is dispatched use Stage and
// Send separately.
func (s *SubmissionController) Submit(ctx context.Context, draft Draft) error {
	staged, err := s.Stage(draft)
	if err != nil {
		return err
	}
	return s.Send(ctx, staged)
}

// Retire removes pending placeholders that a confirmed page has
// superseded, matched by the server-echoed client_tx_id. Wired as the
// paginator's apply observer.
func (s *SubmissionController) Retire(confirmed []api.Post) {
	confirmedTx := make(map[TxID]struct{})
	for _, post := range confirmed {
		if post.ClientTxID != "" {
			confirmedTx[TxID(post.ClientTxID)] = struct{}{}
		}
	}
	if len(confirmedTx) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.pending[:0]
	for _, entry := range s.pending {
		if _, done := confirmedTx[entry.TxID]; done {
			continue
		}
		kept = append(kept, entry)
	}
	s.pending = kept
}

// Dismiss removes a placeholder by key, used to clear failed entries
func (s *SubmissionController) Dismiss(tempKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.pending[:0]
	for _, entry := range s.pending {
		if entry.TempKey == tempKey {
			continue
		}
		kept = append(kept, entry)
	}
	s.pending = kept
}

// Pending returns a copy of the live placeholders, newest first
func (s *SubmissionController) Pending() []Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Pending, len(s.pending))
	copy(out, s.pending)
	return out
}

func (s *SubmissionController) setState(tempKey string, state PendingState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.pending {
		if s.pending[i].TempKey == tempKey {
			s.pending[i].State = state
			return
		}
	}
}
