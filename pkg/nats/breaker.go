package nats

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/mkarev/storefront/pkg/messaging"
)

// BreakerPublisher wraps a Publisher in a circuit breaker. Notification
// delivery is fire-and-forget: when the broker is down the breaker opens and
// publish attempts fail fast instead of stalling checkout requests.
type BreakerPublisher struct {
	inner messaging.Publisher
	cb    *gobreaker.CircuitBreaker[any]
}

func NewBreakerPublisher(name string, inner messaging.Publisher) *BreakerPublisher {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}
	return &BreakerPublisher{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[any](st),
	}
}

func (p *BreakerPublisher) Publish(ctx context.Context, event messaging.Event) error {
	_, err := p.cb.Execute(func() (any, error) {
		return nil, p.inner.Publish(ctx, event)
	})
	return err
}
