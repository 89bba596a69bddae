package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/skillswap/internal/persistence/memory"
)

var harnessNow = time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func (p *recordingPublisher) count(eventType EventType) int {
	n := 0
	for _, t := range p.types() {
		if t == eventType {
			n++
		}
	}
	return n
}

type testEnv struct {
	ctx       context.Context
	store     *EntityStore
	events    *recordingPublisher
	deps      Dependencies
	now       *time.Time
	requests  *RequestService
	swaps     *SwapService
	schedule  *ScheduleService
	users     *UserService
	listings  *ListingService
	idCounter *atomic.Int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	backend := memory.Open()
	t.Cleanup(func() { _ = backend.Close() })

	now := harnessNow
	counter := &atomic.Int64{}
	env := &testEnv{
		ctx:       context.Background(),
		events:    &recordingPublisher{},
		now:       &now,
		idCounter: counter,
	}
	clock := func() time.Time { return *env.now }
	env.store = NewEntityStore(backend, clock)
	env.deps = Dependencies{
		Store:       env.store,
		Events:      env.events,
		IDGenerator: func() string { return fmt.Sprintf("id-%d", counter.Add(1)) },
		Now:         clock,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	env.requests = NewRequestService(env.deps)
	env.swaps = NewSwapService(env.deps)
	env.schedule = NewScheduleService(env.deps)
	env.users = NewUserService(env.deps)
	env.listings = NewListingService(env.deps)
	return env
}

func (e *testEnv) addUser(t *testing.T, id, name string) User {
	t.Helper()
	user := User{
		ID:            id,
		DisplayName:   name,
		Location:      "Berlin",
		SkillsOffered: []string{"React"},
		SkillsWanted:  []string{"Python"},
		Availability:  AvailabilityEvenings,
		Connections:   []string{},
		CreatedAt:     harnessNow,
		UpdatedAt:     harnessNow,
	}
	if err := e.store.Upsert(e.ctx, user); err != nil {
		t.Fatalf("failed to seed user %s: %v", id, err)
	}
	return user
}

func (e *testEnv) createRequest(t *testing.T, requesterID, recipientID string) SwapRequest {
	t.Helper()
	request, err := e.requests.Create(e.ctx, CreateRequestParams{
		Principal: Principal{UserID: requesterID},
		Input: RequestInput{
			RecipientID:  recipientID,
			OfferedSkill: "React",
			WantedSkill:  "Python",
			Message:      "hi",
		},
	})
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	return request
}

func (e *testEnv) activeSwap(t *testing.T, requesterID, recipientID string, totalSessions int) Swap {
	t.Helper()
	request := e.createRequest(t, requesterID, recipientID)
	result, err := e.requests.Accept(e.ctx, AcceptRequestParams{
		Principal:     Principal{UserID: recipientID},
		RequestID:     request.ID,
		TotalSessions: totalSessions,
	})
	if err != nil {
		t.Fatalf("failed to accept request: %v", err)
	}
	return result.Swap
}

func (e *testEnv) session(swapID, date, clock string) ScheduleSessionParams {
	return ScheduleSessionParams{
		Input: SessionInput{
			SwapID:          swapID,
			Date:            date,
			Time:            clock,
			DurationMinutes: 60,
			Location:        "online",
		},
	}
}

func requireKind(t *testing.T, err error, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}

func requireValidationField(t *testing.T, err error, field string) {
	t.Helper()
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := vErr.FieldErrors[field]; !ok {
		t.Fatalf("expected field error for %s, got %v", field, vErr.FieldErrors)
	}
}
