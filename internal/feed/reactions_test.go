package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeReactor struct {
	mu        sync.Mutex
	reactions []string
	postIDs   []int64
	err       error
}

func (f *fakeReactor) React(ctx context.Context, postID int64, reaction string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postIDs = append(f.postIDs, postID)
	f.reactions = append(f.reactions, reaction)
	return f.err
}

func TestReactTriggersReconcilingRefresh(t *testing.T) {
	reactor := &fakeReactor{}
	refresher := &fakeRefresher{}
	d := NewReactionDispatcher(reactor, refresher, testLogger())

	if err := d.React(context.Background(), 42, "like"); err != nil {
		t.Fatalf("React() error = %v", err)
	}

	if len(reactor.postIDs) != 1 || reactor.postIDs[0] != 42 {
		t.Errorf("expected reaction for post 42, got %v", reactor.postIDs)
	}
	if reactor.reactions[0] != "like" {
		t.Errorf("expected like reaction, got %q", reactor.reactions[0])
	}
	// Counts are reconciled by refetch, never incremented locally
	if refresher.count() != 1 {
		t.Errorf("expected 1 reconciling refresh, got %d", refresher.count())
	}
}

func TestReactFailureSkipsRefresh(t *testing.T) {
	reactor := &fakeReactor{err: errors.New("mutation rejected")}
	refresher := &fakeRefresher{}
	d := NewReactionDispatcher(reactor, refresher, testLogger())

	if err := d.React(context.Background(), 42, "like"); err == nil {
		t.Fatal("expected error from failed reaction")
	}
	if refresher.count() != 0 {
		t.Error("expected no refresh after failed mutation")
	}
}

func TestReactRefreshFailureSurfaced(t *testing.T) {
	reactor := &fakeReactor{}
	refresher := &fakeRefresher{err: errors.New("refresh down")}
	d := NewReactionDispatcher(reactor, refresher, testLogger())

	err := d.React(context.Background(), 42, "like")
	if err == nil {
		t.Fatal("expected error when reconciling refresh fails")
	}
	// The mutation itself landed; only the count update is deferred
	if len(reactor.postIDs) != 1 {
		t.Error("expected the reaction to have been sent")
	}
}
