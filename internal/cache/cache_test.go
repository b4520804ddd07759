package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/campuso/crossfeed/internal/api"
	"github.com/campuso/crossfeed/internal/feed"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := setupTestStore(t)

	replyTo := int64(5)
	posts := []api.Post{
		{
			ID:          100,
			Content:     "newest",
			AuthorLabel: "Anon @ NCKU",
			SchoolSlug:  "ncku",
			CreatedAt:   time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
			Counts:      api.Counts{Likes: 3, Shares: 1, Comments: 2},
			MediaRefs:   []string{"https://cdn.example/a.jpg", "https://cdn.example/b.jpg"},
			ClientTxID:  "tx-abc",
		},
		{
			ID:        99,
			Content:   "older",
			CreatedAt: time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC),
			ReplyToID: &replyTo,
		},
	}

	sig := Signature(feed.Filter{School: "ncku"})
	if err := s.SaveSnapshot(sig, posts); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	loaded, err := s.LoadSnapshot(sig)
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}

	if diff := cmp.Diff(posts, loaded); diff != "" {
		t.Errorf("snapshot mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestSnapshotReplacedOnSave(t *testing.T) {
	s := setupTestStore(t)
	sig := Signature(feed.Filter{})

	first := []api.Post{
		{ID: 1, Content: "one", CreatedAt: time.Now().UTC().Truncate(time.Second)},
		{ID: 2, Content: "two", CreatedAt: time.Now().UTC().Truncate(time.Second)},
	}
	if err := s.SaveSnapshot(sig, first); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	second := []api.Post{
		{ID: 3, Content: "three", CreatedAt: time.Now().UTC().Truncate(time.Second)},
	}
	if err := s.SaveSnapshot(sig, second); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	loaded, err := s.LoadSnapshot(sig)
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != 3 {
		t.Errorf("expected replaced snapshot with post 3, got %+v", loaded)
	}
}

func TestSnapshotsKeyedByFilter(t *testing.T) {
	s := setupTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	nckuSig := Signature(feed.Filter{School: "ncku"})
	crossSig := Signature(feed.Filter{CrossOnly: true})
	if nckuSig == crossSig {
		t.Fatal("expected distinct signatures for distinct filters")
	}

	if err := s.SaveSnapshot(nckuSig, []api.Post{{ID: 1, Content: "ncku", CreatedAt: now}}); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	if err := s.SaveSnapshot(crossSig, []api.Post{{ID: 2, Content: "cross", CreatedAt: now}}); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	loaded, err := s.LoadSnapshot(nckuSig)
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != 1 {
		t.Errorf("expected only the ncku snapshot, got %+v", loaded)
	}
}

func TestLoadMissingSnapshot(t *testing.T) {
	s := setupTestStore(t)

	loaded, err := s.LoadSnapshot(Signature(feed.Filter{Keyword: "nothing"}))
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected empty result for missing snapshot, got %d posts", len(loaded))
	}
}
