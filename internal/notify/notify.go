// Package notify delivers committed domain events to external listeners.
//
// Every publisher here satisfies application.EventPublisher. Publishers are
// composed with Fanout and wrapped with Instrumented for metrics; Hub and
// RedisPublisher additionally let a connection follow one user's events.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/skillswap/internal/application"
)

// Subscriber streams the encoded events addressed to one user. The returned
// cancel func releases the subscription and closes the channel.
type Subscriber interface {
	Subscribe(ctx context.Context, userID string) (<-chan []byte, func(), error)
}

// Encode renders an event in its wire form.
func Encode(event application.Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("notify: encode %s: %w", event.Type, err)
	}
	return payload, nil
}

// Fanout publishes every event to each of its publishers in order. All
// publishers are attempted; their errors are joined.
type Fanout []application.EventPublisher

// Publish implements application.EventPublisher.
func (f Fanout) Publish(ctx context.Context, event application.Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
