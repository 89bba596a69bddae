package persistence

import (
	"context"
	"time"
)

// Collection names a family of stored entities.
type Collection string

const (
	// CollectionUsers stores user profiles.
	CollectionUsers Collection = "users"
	// CollectionListings stores advertised skill listings.
	CollectionListings Collection = "skill_listings"
	// CollectionRequests stores swap requests.
	CollectionRequests Collection = "swap_requests"
	// CollectionSwaps stores swaps spawned from accepted requests.
	CollectionSwaps Collection = "swaps"
	// CollectionEvents stores scheduled sessions.
	CollectionEvents Collection = "schedule_events"
)

// Record is a single serialized entity. Data is opaque to the backend.
type Record struct {
	Collection Collection
	ID         string
	Data       []byte
	UpdatedAt  time.Time
}

// Backend is the durable storage contract behind the entity store.
//
// Upsert writes every supplied record or none of them. A record keeps the
// position it was first inserted at, so Query always returns records in
// insertion order regardless of later updates.
type Backend interface {
	Get(ctx context.Context, collection Collection, id string) (Record, error)
	Upsert(ctx context.Context, records ...Record) error
	Query(ctx context.Context, collection Collection) ([]Record, error)
	Close() error
}

// Validate reports whether the record can be stored.
func (r Record) Validate() error {
	if r.Collection == "" || r.ID == "" {
		return ErrInvalidRecord
	}
	return nil
}
