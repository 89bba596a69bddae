package application

import (
	"testing"
)

func intPtr(v int) *int {
	return &v
}

func TestSwapService_SessionProgressAndCompletion(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.addUser(t, "u1", "Alice")
	env.addUser(t, "u2", "Bob")
	swap := env.activeSwap(t, "u1", "u2", 3)

	for i := 1; i <= 3; i++ {
		updated, err := env.swaps.RecordSession(env.ctx, Principal{UserID: "u1"}, swap.ID)
		if err != nil {
			t.Fatalf("session %d: unexpected error: %v", i, err)
		}
		if updated.SessionsCompleted != i {
			t.Fatalf("session %d: expected counter %d, got %d", i, i, updated.SessionsCompleted)
		}
		if updated.Status != SwapActive {
			t.Fatalf("session %d: expected swap to stay active, got %s", i, updated.Status)
		}
	}

	_, err := env.swaps.RecordSession(env.ctx, Principal{UserID: "u1"}, swap.ID)
	requireKind(t, err, ErrInvariantViolation)

	stored, err := env.store.Swap(env.ctx, swap.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.SessionsCompleted != 3 {
		t.Fatalf("expected counter to stay at 3, got %d", stored.SessionsCompleted)
	}

	completed, err := env.swaps.Complete(env.ctx, CompleteSwapParams{
		Principal: Principal{UserID: "u1"},
		SwapID:    swap.ID,
		Rating:    intPtr(5),
		Feedback:  "great",
	})
	if err != nil {
		t.Fatalf("unexpected completion error: %v", err)
	}
	if completed.Status != SwapCompleted || completed.CompletedDate == nil {
		t.Fatalf("unexpected completed swap: %+v", completed)
	}
	if completed.Rating == nil || *completed.Rating != 5 || completed.Feedback != "great" {
		t.Fatalf("expected rating 5 with feedback, got %+v", completed)
	}

	_, err = env.swaps.RecordSession(env.ctx, Principal{UserID: "u1"}, swap.ID)
	requireKind(t, err, ErrInvalidTransition)
	_, err = env.swaps.Complete(env.ctx, CompleteSwapParams{SwapID: swap.ID})
	requireKind(t, err, ErrInvalidTransition)
	_, err = env.swaps.Cancel(env.ctx, Principal{}, swap.ID, "changed my mind")
	requireKind(t, err, ErrInvalidTransition)

	owner, err := env.store.User(env.ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	partner, err := env.store.User(env.ctx, "u2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner.CompletedSwaps != 1 || partner.CompletedSwaps != 1 {
		t.Fatalf("expected both users credited, got %d and %d", owner.CompletedSwaps, partner.CompletedSwaps)
	}
	if partner.Rating != 5 || partner.RatingCount != 1 {
		t.Fatalf("expected partner rated 5 once, got %.1f over %d", partner.Rating, partner.RatingCount)
	}
	if owner.RatingCount != 0 {
		t.Fatalf("expected owner unrated, got %d ratings", owner.RatingCount)
	}

	request, err := env.store.Request(env.ctx, swap.RequestID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if request.Status != RequestCompleted {
		t.Fatalf("expected originating request completed, got %s", request.Status)
	}
	if env.events.count(EventSwapProgressed) != 3 || env.events.count(EventSwapCompleted) != 1 {
		t.Fatalf("unexpected events: %v", env.events.types())
	}
}

func TestSwapService_CompleteValidatesRating(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.addUser(t, "u1", "Alice")
	env.addUser(t, "u2", "Bob")
	swap := env.activeSwap(t, "u1", "u2", 1)

	for _, rating := range []int{0, 6, -1} {
		_, err := env.swaps.Complete(env.ctx, CompleteSwapParams{SwapID: swap.ID, Rating: intPtr(rating)})
		requireValidationField(t, err, "rating")
	}

	stored, err := env.store.Swap(env.ctx, swap.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Status != SwapActive {
		t.Fatalf("expected rejected completion to leave swap active, got %s", stored.Status)
	}
	owner, err := env.store.User(env.ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner.CompletedSwaps != 0 {
		t.Fatalf("expected no credit after rejected completion, got %d", owner.CompletedSwaps)
	}

	completed, err := env.swaps.Complete(env.ctx, CompleteSwapParams{Principal: Principal{UserID: "u2"}, SwapID: swap.ID})
	if err != nil {
		t.Fatalf("expected completion without rating to succeed, got %v", err)
	}
	if completed.Rating != nil {
		t.Fatalf("expected no rating, got %d", *completed.Rating)
	}
}

func TestSwapService_PartnerRatesOwner(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.addUser(t, "u1", "Alice")
	env.addUser(t, "u2", "Bob")
	first := env.activeSwap(t, "u1", "u2", 1)
	second := env.activeSwap(t, "u1", "u2", 1)

	if _, err := env.swaps.Complete(env.ctx, CompleteSwapParams{Principal: Principal{UserID: "u2"}, SwapID: first.ID, Rating: intPtr(4)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := env.swaps.Complete(env.ctx, CompleteSwapParams{Principal: Principal{UserID: "u2"}, SwapID: second.ID, Rating: intPtr(5)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	owner, err := env.store.User(env.ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner.RatingCount != 2 || owner.Rating != 4.5 {
		t.Fatalf("expected owner average 4.5 over 2, got %.2f over %d", owner.Rating, owner.RatingCount)
	}
	if owner.CompletedSwaps != 2 {
		t.Fatalf("expected two completed swaps, got %d", owner.CompletedSwaps)
	}

	stats, err := env.swaps.Stats(env.ctx, Principal{UserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := SwapStats{Completed: 2, RatedCount: 2, AverageRating: 4.5}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}
}

func TestSwapService_CancelCancelsUpcomingSessions(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.addUser(t, "u1", "Alice")
	env.addUser(t, "u2", "Bob")
	swap := env.activeSwap(t, "u1", "u2", 3)

	first, err := env.schedule.ScheduleSession(env.ctx, env.session(swap.ID, "2024-01-20", "10:00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	done, err := env.schedule.ScheduleSession(env.ctx, env.session(swap.ID, "2024-01-18", "10:00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := env.schedule.MarkCompleted(env.ctx, Principal{}, done.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancelled, err := env.swaps.Cancel(env.ctx, Principal{UserID: "u2"}, swap.ID, "  moving abroad ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != SwapCancelled || cancelled.CancelReason != "moving abroad" {
		t.Fatalf("unexpected cancelled swap: %+v", cancelled)
	}

	event, err := env.store.Event(env.ctx, first.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Status != EventCancelled {
		t.Fatalf("expected upcoming session cancelled, got %s", event.Status)
	}
	event, err = env.store.Event(env.ctx, done.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Status != EventCompleted {
		t.Fatalf("expected completed session untouched, got %s", event.Status)
	}
	if env.events.count(EventSwapCancelled) != 1 || env.events.count(EventSessionCancelled) != 1 {
		t.Fatalf("unexpected events: %v", env.events.types())
	}

	_, err = env.swaps.Cancel(env.ctx, Principal{UserID: "u2"}, swap.ID, "again")
	requireKind(t, err, ErrInvalidTransition)
}

func TestSwapService_ParticipantsOnly(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.addUser(t, "u1", "Alice")
	env.addUser(t, "u2", "Bob")
	env.addUser(t, "u3", "Mallory")
	swap := env.activeSwap(t, "u1", "u2", 2)
	outsider := Principal{UserID: "u3"}

	_, err := env.swaps.RecordSession(env.ctx, outsider, swap.ID)
	requireKind(t, err, ErrUnauthorized)
	_, err = env.swaps.Cancel(env.ctx, outsider, swap.ID, "")
	requireKind(t, err, ErrUnauthorized)
	_, err = env.swaps.Get(env.ctx, outsider, swap.ID)
	requireKind(t, err, ErrUnauthorized)
	_, err = env.swaps.RecordSession(env.ctx, outsider, "missing")
	requireKind(t, err, ErrNotFound)
}

func TestSwapService_ViewsFlipForPartner(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.addUser(t, "u1", "Alice")
	env.addUser(t, "u2", "Bob")
	swap := env.activeSwap(t, "u1", "u2", 2)

	ownerView, err := env.swaps.Get(env.ctx, Principal{UserID: "u1"}, swap.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ownerView.MySkill != "React" || ownerView.PartnerSkill != "Python" || ownerView.PartnerName != "Bob" {
		t.Fatalf("unexpected owner view: %+v", ownerView)
	}

	partnerView, err := env.swaps.Get(env.ctx, Principal{UserID: "u2"}, swap.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if partnerView.MySkill != "Python" || partnerView.PartnerSkill != "React" || partnerView.PartnerName != "Alice" {
		t.Fatalf("unexpected partner view: %+v", partnerView)
	}

	page, err := env.swaps.List(env.ctx, ListSwapsParams{Viewer: Principal{UserID: "u2"}, Status: SwapActive, Query: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.TotalMatches != 1 {
		t.Fatalf("expected one match, got %d", page.TotalMatches)
	}

	page, err = env.swaps.List(env.ctx, ListSwapsParams{Viewer: Principal{UserID: "u2"}, Status: SwapCompleted})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.TotalMatches != 0 || page.Items == nil {
		t.Fatalf("expected empty non-nil page, got %+v", page)
	}
}
