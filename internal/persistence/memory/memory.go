// Package memory provides an in-process persistence backend used for tests,
// local development and single-process deployments without a database file.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/example/skillswap/internal/persistence"
)

type entry struct {
	seq    uint64
	record persistence.Record
}

// Storage keeps records in maps guarded by a single read/write mutex.
type Storage struct {
	mu          sync.RWMutex
	seq         uint64
	collections map[persistence.Collection]map[string]entry
	closed      bool
}

// Open returns an empty Storage.
func Open() *Storage {
	return &Storage{collections: make(map[persistence.Collection]map[string]entry)}
}

// Close marks the storage closed. Further calls fail.
func (s *Storage) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Get retrieves a record by collection and ID.
func (s *Storage) Get(ctx context.Context, collection persistence.Collection, id string) (persistence.Record, error) {
	if err := ctx.Err(); err != nil {
		return persistence.Record{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return persistence.Record{}, errClosed
	}
	e, ok := s.collections[collection][id]
	if !ok {
		return persistence.Record{}, persistence.ErrNotFound
	}
	return cloneRecord(e.record), nil
}

// Upsert validates every record before writing any of them.
func (s *Storage) Upsert(ctx context.Context, records ...persistence.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, record := range records {
		if err := record.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errClosed
	}
	for _, record := range records {
		bucket, ok := s.collections[record.Collection]
		if !ok {
			bucket = make(map[string]entry)
			s.collections[record.Collection] = bucket
		}
		existing, ok := bucket[record.ID]
		if !ok {
			s.seq++
			existing.seq = s.seq
		}
		existing.record = cloneRecord(record)
		bucket[record.ID] = existing
	}
	return nil
}

// Query returns every record of a collection in insertion order.
func (s *Storage) Query(ctx context.Context, collection persistence.Collection) ([]persistence.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errClosed
	}
	bucket := s.collections[collection]
	entries := make([]entry, 0, len(bucket))
	for _, e := range bucket {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})

	records := make([]persistence.Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, cloneRecord(e.record))
	}
	return records, nil
}

func cloneRecord(record persistence.Record) persistence.Record {
	data := make([]byte, len(record.Data))
	copy(data, record.Data)
	record.Data = data
	return record
}
