// Package api implements the client side of the wall server's fixed
// HTTP contract: paginated post listing, idempotent post creation with
// or without media, and reactions.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/campuso/crossfeed/internal/config"
)

// headerTxID carries the idempotency token so the server can deduplicate
// retried deliveries of the same logical submission.
const headerTxID = "X-Tx-Id"

// Client provides a high-level interface to the wall API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a new API client from server configuration
func New(cfg *config.Server) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

// NewWithHTTPClient creates a client with a custom http.Client
func NewWithHTTPClient(baseURL, token string, hc *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: hc,
	}
}

// ListPosts fetches one page of confirmed posts. The server sends no
// total or has-more field; callers derive "more pages exist" from the
// returned length against the requested limit.
func (c *Client) ListPosts(ctx context.Context, q ListQuery) ([]Post, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("page", strconv.Itoa(q.Page))
	switch {
	case q.School != "":
		params.Set("school", q.School)
	case q.AllSchools:
		params.Set("all_schools", "true")
	case q.CrossOnly:
		params.Set("cross_only", "true")
	}
	if q.Start != "" {
		params.Set("start", q.Start)
	}
	if q.End != "" {
		params.Set("end", q.End)
	}
	if q.Keyword != "" {
		params.Set("q", q.Keyword)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/posts/list?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build list request: %w", err)
	}

	var resp struct {
		Items []Post `json:"items"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}

	return resp.Items, nil
}

// CreatePost submits a plain text post. The idempotency token travels
// both in the body and the X-Tx-Id header.
func (c *Client) CreatePost(ctx context.Context, create CreatePostRequest) (*Post, error) {
	body, err := json.Marshal(create)
	if err != nil {
		return nil, fmt.Errorf("failed to encode post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/posts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerTxID, create.ClientTxID)

	var created Post
	if err := c.do(req, &created); err != nil {
		return nil, err
	}

	return &created, nil
}

// CreatePostWithMedia submits a post with attachments as multipart form
// data to the media endpoint.
func (c *Client) CreatePostWithMedia(ctx context.Context, create CreatePostRequest, files []Upload) (*Post, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("content", create.Content); err != nil {
		return nil, fmt.Errorf("failed to write content field: %w", err)
	}
	if err := w.WriteField("client_tx_id", create.ClientTxID); err != nil {
		return nil, fmt.Errorf("failed to write tx field: %w", err)
	}
	if create.SchoolSlug != "" {
		if err := w.WriteField("school_slug", create.SchoolSlug); err != nil {
			return nil, fmt.Errorf("failed to write school field: %w", err)
		}
	}
	for _, f := range files {
		part, err := w.CreatePart(filePartHeader(f))
		if err != nil {
			return nil, fmt.Errorf("failed to create file part: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("failed to write file part: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/posts/with-media", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build media request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set(headerTxID, create.ClientTxID)

	var created Post
	if err := c.do(req, &created); err != nil {
		return nil, err
	}

	return &created, nil
}

var partNameEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// filePartHeader builds the MIME header for one attachment part,
// carrying the upload's declared content type. CreateFormFile would
// hardcode application/octet-stream.
func filePartHeader(f Upload) textproto.MIMEHeader {
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="files[]"; filename="%s"`, partNameEscaper.Replace(f.Name)))
	h.Set("Content-Type", ct)
	return h
}

// React sends a reaction for the given post. The response body carries
// nothing the client needs; updated counts arrive via the next refresh.
func (c *Client) React(ctx context.Context, postID int64, reaction string) error {
	body, err := json.Marshal(map[string]string{"reaction": reaction})
	if err != nil {
		return fmt.Errorf("failed to encode reaction: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/posts/%d/react", c.baseURL, postID), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build react request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, nil)
}

// do executes a request, maps non-2xx responses to TransportError and
// decodes a JSON body into out when out is non-nil.
func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Keep a short prefix of the body for the error message
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &TransportError{
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(snippet)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
