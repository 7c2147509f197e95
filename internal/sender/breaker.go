package sender

import (
	"context"
	"sync"
	"time"

	"github.com/boardlab/notify-api/pkg/circuitbreaker"

	"github.com/boardlab/notify-api/internal/model"
)

// BreakerSender wraps a Sender with one circuit breaker per delivery method,
// so a flapping SMS gateway cannot burn retry budget on every tick while
// email keeps flowing.
type BreakerSender struct {
	next     Sender
	settings circuitbreaker.Settings
	breakers map[model.DeliveryMethod]*circuitbreaker.CircuitBreaker
	mu       sync.Mutex
}

func NewBreakerSender(next Sender, maxFailures int, timeout time.Duration) *BreakerSender {
	return &BreakerSender{
		next: next,
		settings: circuitbreaker.Settings{
			MaxFailures: maxFailures,
			Timeout:     timeout,
		},
		breakers: make(map[model.DeliveryMethod]*circuitbreaker.CircuitBreaker),
	}
}

func (s *BreakerSender) breaker(method model.DeliveryMethod) *circuitbreaker.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	cb, ok := s.breakers[method]
	if !ok {
		settings := s.settings
		settings.Name = string(method)
		cb = circuitbreaker.NewCircuitBreaker(settings)
		s.breakers[method] = cb
	}
	return cb
}

func (s *BreakerSender) Send(ctx context.Context, method model.DeliveryMethod, address, payload string) error {
	return s.breaker(method).Execute(func() error {
		return s.next.Send(ctx, method, address, payload)
	})
}
