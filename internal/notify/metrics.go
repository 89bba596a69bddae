package notify

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/example/skillswap/internal/application"
)

// Instrumented counts published and failed events per event type.
type Instrumented struct {
	next      application.EventPublisher
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

// NewInstrumented registers the event counters with reg and wraps next.
func NewInstrumented(next application.EventPublisher, reg prometheus.Registerer) *Instrumented {
	factory := promauto.With(reg)
	return &Instrumented{
		next: next,
		published: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "skillswap_events_published_total",
			Help: "Total number of domain events handed to the dispatcher",
		}, []string{"event"}),
		failed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "skillswap_event_publish_failures_total",
			Help: "Total number of domain events the dispatcher failed to deliver",
		}, []string{"event"}),
	}
}

// Publish implements application.EventPublisher.
func (i *Instrumented) Publish(ctx context.Context, event application.Event) error {
	label := string(event.Type)
	i.published.WithLabelValues(label).Inc()
	if i.next == nil {
		return nil
	}
	if err := i.next.Publish(ctx, event); err != nil {
		i.failed.WithLabelValues(label).Inc()
		return err
	}
	return nil
}
