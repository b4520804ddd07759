// Package cache persists the last successfully refreshed feed page so
// the view can render instantly on startup while the first real refresh
// is still in flight. It is strictly a read-side convenience: a failing
// cache never blocks the feed.
package cache

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/campuso/crossfeed/internal/api"
	"github.com/campuso/crossfeed/internal/feed"
)

// Store wraps the SQLite connection
type Store struct {
	conn *sql.DB
}

// Open opens or creates the cache database at the given path
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	// WAL keeps reads cheap while a snapshot write is in progress
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS feed_snapshot (
		filter_sig TEXT NOT NULL,
		position INTEGER NOT NULL,
		post_id INTEGER NOT NULL,
		content TEXT NOT NULL,
		author_label TEXT NOT NULL DEFAULT '',
		school_slug TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		likes INTEGER NOT NULL DEFAULT 0,
		shares INTEGER NOT NULL DEFAULT 0,
		comments INTEGER NOT NULL DEFAULT 0,
		media TEXT NOT NULL DEFAULT '',
		reply_to_id INTEGER,
		client_tx_id TEXT NOT NULL DEFAULT '',
		saved_at DATETIME NOT NULL,
		PRIMARY KEY (filter_sig, position)
	);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Signature derives the snapshot key from a filter context. Distinct
// filters never share a snapshot.
func Signature(f feed.Filter) string {
	return strings.Join([]string{
		f.School,
		fmt.Sprintf("all=%t", f.AllSchools),
		fmt.Sprintf("cross=%t", f.CrossOnly),
		f.Keyword,
		f.Start,
		f.End,
	}, "|")
}

// SaveSnapshot replaces the stored snapshot for the given filter
// signature with the posts provided, in order.
func (s *Store) SaveSnapshot(sig string, posts []api.Post) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM feed_snapshot WHERE filter_sig = ?", sig); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO feed_snapshot
		(filter_sig, position, post_id, content, author_label, school_slug,
		 created_at, likes, shares, comments, media, reply_to_id, client_tx_id, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, post := range posts {
		_, err := stmt.Exec(
			sig, i, post.ID, post.Content, post.AuthorLabel, post.SchoolSlug,
			post.CreatedAt.UTC(), post.Counts.Likes, post.Counts.Shares,
			post.Counts.Comments, strings.Join(post.MediaRefs, "\n"),
			post.ReplyToID, post.ClientTxID, now,
		)
		if err != nil {
			return fmt.Errorf("insert snapshot row: %w", err)
		}
	}

	return tx.Commit()
}

// LoadSnapshot returns the stored posts for the given filter signature,
// in saved order. A missing snapshot is an empty result, not an error.
func (s *Store) LoadSnapshot(sig string) ([]api.Post, error) {
	rows, err := s.conn.Query(`
		SELECT post_id, content, author_label, school_slug, created_at,
		       likes, shares, comments, media, reply_to_id, client_tx_id
		FROM feed_snapshot
		WHERE filter_sig = ?
		ORDER BY position`, sig)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	var posts []api.Post
	for rows.Next() {
		var post api.Post
		var media string
		var replyTo sql.NullInt64
		err := rows.Scan(
			&post.ID, &post.Content, &post.AuthorLabel, &post.SchoolSlug,
			&post.CreatedAt, &post.Counts.Likes, &post.Counts.Shares,
			&post.Counts.Comments, &media, &replyTo, &post.ClientTxID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		if media != "" {
			post.MediaRefs = strings.Split(media, "\n")
		}
		if replyTo.Valid {
			post.ReplyToID = &replyTo.Int64
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}
