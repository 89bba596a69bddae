package application

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestEntityStore_GetMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	_, err := env.store.Swap(env.ctx, "missing")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NotFoundError, got %v", err)
	}
	if nf.Kind != KindSwap || nf.ID != "missing" {
		t.Fatalf("unexpected not found error: %+v", nf)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected errors.Is ErrNotFound")
	}

	_, err = env.store.User(env.ctx, "")
	requireKind(t, err, ErrNotFound)
}

func TestEntityStore_QueryReturnsInsertionOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	for _, id := range []string{"c", "a", "b"} {
		env.addUser(t, id, "User "+id)
	}
	updated := User{ID: "c", DisplayName: "Renamed"}
	if err := env.store.Upsert(env.ctx, updated); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	users, err := env.store.Users(env.ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ids []string
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	if len(ids) != 3 || ids[0] != "c" || ids[1] != "a" || ids[2] != "b" {
		t.Fatalf("expected insertion order [c a b], got %v", ids)
	}
	if users[0].DisplayName != "Renamed" {
		t.Fatalf("expected last write to win, got %q", users[0].DisplayName)
	}

	empty, err := env.store.Events(env.ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", empty)
	}
}

func TestEntityStore_UpsertIsAllOrNothing(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	err := env.store.Upsert(env.ctx, User{ID: "u1", DisplayName: "Alice"}, Swap{ID: ""})
	if err == nil {
		t.Fatalf("expected invalid batch to fail")
	}
	_, err = env.store.User(env.ctx, "u1")
	requireKind(t, err, ErrNotFound)
}

func TestLocker_SerialisesOverlappingKeys(t *testing.T) {
	t.Parallel()

	locker := NewLocker()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		overlap bool
	)
	for i := 0; i < 20; i++ {
		keys := []string{"a", "b"}
		if i%2 == 0 {
			keys = []string{"b", "a", "a"}
		}
		wg.Add(1)
		go func(keys []string) {
			defer wg.Done()
			unlock := locker.Lock(keys...)
			defer unlock()

			mu.Lock()
			active++
			if active > 1 {
				overlap = true
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}(keys)
	}
	wg.Wait()

	if overlap {
		t.Fatalf("expected holders of the same keys to be serialised")
	}
	if len(locker.locks) != 0 {
		t.Fatalf("expected lock table to be drained, got %d entries", len(locker.locks))
	}
}

func TestLocker_UnlockIsIdempotent(t *testing.T) {
	t.Parallel()

	locker := NewLocker()
	unlock := locker.Lock("x", "")
	unlock()
	unlock()

	done := make(chan struct{})
	go func() {
		release := locker.Lock("x")
		release()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected key to be free after unlock")
	}
}
