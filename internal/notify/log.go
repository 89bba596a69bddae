package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/example/skillswap/internal/application"
	"github.com/example/skillswap/internal/logging"
)

// LogPublisher writes each event as a structured log line.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher returns a publisher logging through logger, or the
// context logger when logger is nil.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish implements application.EventPublisher.
func (p *LogPublisher) Publish(ctx context.Context, event application.Event) error {
	logger := p.logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "event published",
		"event_type", string(event.Type),
		"entity_id", event.EntityID,
		"actor_id", event.ActorID,
		"recipients", event.Recipients,
	)
	return nil
}

// Recorder keeps every published event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []application.Event
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish implements application.EventPublisher.
func (r *Recorder) Publish(ctx context.Context, event application.Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

// Events returns a copy of the recorded events in publish order.
func (r *Recorder) Events() []application.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]application.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []application.EventType {
	events := r.Events()
	out := make([]application.EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

// Reset discards every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
