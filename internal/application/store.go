package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/skillswap/internal/persistence"
)

// storable is implemented by every entity the store persists.
type storable interface {
	storeKey() (persistence.Collection, string)
}

func (u User) storeKey() (persistence.Collection, string) {
	return persistence.CollectionUsers, u.ID
}

func (l SkillListing) storeKey() (persistence.Collection, string) {
	return persistence.CollectionListings, l.ID
}

func (r SwapRequest) storeKey() (persistence.Collection, string) {
	return persistence.CollectionRequests, r.ID
}

func (s Swap) storeKey() (persistence.Collection, string) {
	return persistence.CollectionSwaps, s.ID
}

func (e ScheduleEvent) storeKey() (persistence.Collection, string) {
	return persistence.CollectionEvents, e.ID
}

// EntityStore is the single authoritative owner of every entity. Services hold
// ids only and read current state through it; nothing is cached between calls.
type EntityStore struct {
	backend persistence.Backend
	locker  *Locker
	now     func() time.Time
}

// NewEntityStore wraps a persistence backend.
func NewEntityStore(backend persistence.Backend, now func() time.Time) *EntityStore {
	if now == nil {
		now = time.Now
	}
	return &EntityStore{backend: backend, locker: NewLocker(), now: now}
}

// Lock acquires the per-user locks guarding a transition. Keys are user ids;
// the returned func releases them.
func (s *EntityStore) Lock(userIDs ...string) func() {
	return s.locker.Lock(userIDs...)
}

// Upsert writes every entity atomically. Either all are stored or none.
func (s *EntityStore) Upsert(ctx context.Context, entities ...storable) error {
	if s == nil || s.backend == nil {
		return fmt.Errorf("entity store not configured")
	}
	stamp := s.now()
	records := make([]persistence.Record, 0, len(entities))
	for _, entity := range entities {
		collection, id := entity.storeKey()
		data, err := json.Marshal(entity)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", collection, id, err)
		}
		records = append(records, persistence.Record{
			Collection: collection,
			ID:         id,
			Data:       data,
			UpdatedAt:  stamp,
		})
	}
	if err := s.backend.Upsert(ctx, records...); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// User returns the user with id or a *NotFoundError.
func (s *EntityStore) User(ctx context.Context, id string) (User, error) {
	return get[User](ctx, s, persistence.CollectionUsers, KindUser, id)
}

// Listing returns the listing with id or a *NotFoundError.
func (s *EntityStore) Listing(ctx context.Context, id string) (SkillListing, error) {
	return get[SkillListing](ctx, s, persistence.CollectionListings, KindListing, id)
}

// Request returns the swap request with id or a *NotFoundError.
func (s *EntityStore) Request(ctx context.Context, id string) (SwapRequest, error) {
	return get[SwapRequest](ctx, s, persistence.CollectionRequests, KindRequest, id)
}

// Swap returns the swap with id or a *NotFoundError.
func (s *EntityStore) Swap(ctx context.Context, id string) (Swap, error) {
	return get[Swap](ctx, s, persistence.CollectionSwaps, KindSwap, id)
}

// Event returns the schedule event with id or a *NotFoundError.
func (s *EntityStore) Event(ctx context.Context, id string) (ScheduleEvent, error) {
	return get[ScheduleEvent](ctx, s, persistence.CollectionEvents, KindEvent, id)
}

// Users returns every user in insertion order.
func (s *EntityStore) Users(ctx context.Context) ([]User, error) {
	return list[User](ctx, s, persistence.CollectionUsers)
}

// Listings returns every listing in insertion order.
func (s *EntityStore) Listings(ctx context.Context) ([]SkillListing, error) {
	return list[SkillListing](ctx, s, persistence.CollectionListings)
}

// Requests returns every swap request in insertion order.
func (s *EntityStore) Requests(ctx context.Context) ([]SwapRequest, error) {
	return list[SwapRequest](ctx, s, persistence.CollectionRequests)
}

// Swaps returns every swap in insertion order.
func (s *EntityStore) Swaps(ctx context.Context) ([]Swap, error) {
	return list[Swap](ctx, s, persistence.CollectionSwaps)
}

// Events returns every schedule event in insertion order.
func (s *EntityStore) Events(ctx context.Context) ([]ScheduleEvent, error) {
	return list[ScheduleEvent](ctx, s, persistence.CollectionEvents)
}

// userNames resolves display names for ids, skipping unknown users.
func (s *EntityStore) userNames(ctx context.Context) (map[string]string, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName
	}
	return names, nil
}

func get[T any](ctx context.Context, s *EntityStore, collection persistence.Collection, kind, id string) (T, error) {
	var zero T
	if s == nil || s.backend == nil {
		return zero, fmt.Errorf("entity store not configured")
	}
	if id == "" {
		return zero, &NotFoundError{Kind: kind, ID: id}
	}
	record, err := s.backend.Get(ctx, collection, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return zero, &NotFoundError{Kind: kind, ID: id}
		}
		return zero, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	var entity T
	if err := json.Unmarshal(record.Data, &entity); err != nil {
		return zero, fmt.Errorf("decode %s %s: %w", kind, id, err)
	}
	return entity, nil
}

func list[T any](ctx context.Context, s *EntityStore, collection persistence.Collection) ([]T, error) {
	if s == nil || s.backend == nil {
		return nil, fmt.Errorf("entity store not configured")
	}
	records, err := s.backend.Query(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	out := make([]T, 0, len(records))
	for _, record := range records {
		var entity T
		if err := json.Unmarshal(record.Data, &entity); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", collection, record.ID, err)
		}
		out = append(out, entity)
	}
	return out, nil
}
