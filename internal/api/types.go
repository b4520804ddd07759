package api

import (
	"fmt"
	"time"
)

// Post is a server-confirmed wall post. Posts are unique by ID and the
// server returns them ordered by creation time, newest first.
type Post struct {
	ID          int64     `json:"id"`
	Content     string    `json:"content"`
	AuthorLabel string    `json:"author_label"`
	SchoolSlug  string    `json:"school_slug,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Counts      Counts    `json:"counts"`
	MediaRefs   []string  `json:"media,omitempty"`
	ReplyToID   *int64    `json:"reply_to_id,omitempty"`
	// ClientTxID is echoed by the server when the post was created with
	// an idempotency token. Used to retire optimistic placeholders.
	ClientTxID string `json:"client_tx_id,omitempty"`
}

// Counts holds per-post engagement counters
type Counts struct {
	Likes    int `json:"likes"`
	Shares   int `json:"shares"`
	Comments int `json:"comments"`
}

// ListQuery describes one page request against /api/posts/list.
// School, AllSchools and CrossOnly are mutually exclusive; all empty
// means the default cross-school feed.
type ListQuery struct {
	Limit      int
	Page       int
	School     string
	AllSchools bool
	CrossOnly  bool
	Start      string // YYYY-MM-DD
	End        string // YYYY-MM-DD
	Keyword    string
}

// CreatePostRequest is the payload for both post creation endpoints
type CreatePostRequest struct {
	Content    string `json:"content"`
	ClientTxID string `json:"client_tx_id"`
	SchoolSlug string `json:"school_slug,omitempty"`
	ReplyToID  *int64 `json:"reply_to_id,omitempty"`
}

// Upload is one attachment for the multipart creation endpoint
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// TransportError is an HTTP-level failure: a non-2xx response from the
// server. Network failures are wrapped separately by the caller.
type TransportError struct {
	Status int
	Body   string
}

func (e *TransportError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("server returned %d", e.Status)
}
