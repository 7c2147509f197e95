package sender

import (
	"context"
	"fmt"

	"github.com/boardlab/notify-api/internal/model"
)

// Sender delivers one payload to one address over an external transport.
// Implementations must honor ctx cancellation; the dispatcher wraps every
// call with a timeout.
type Sender interface {
	Send(ctx context.Context, method model.DeliveryMethod, address, payload string) error
}

// Func adapts a function to the Sender interface.
type Func func(ctx context.Context, method model.DeliveryMethod, address, payload string) error

func (f Func) Send(ctx context.Context, method model.DeliveryMethod, address, payload string) error {
	return f(ctx, method, address, payload)
}

// MultiSender routes by delivery method to the sender registered for it.
type MultiSender struct {
	senders map[model.DeliveryMethod]Sender
}

func NewMultiSender() *MultiSender {
	return &MultiSender{
		senders: make(map[model.DeliveryMethod]Sender),
	}
}

func (m *MultiSender) Register(method model.DeliveryMethod, s Sender) {
	m.senders[method] = s
}

func (m *MultiSender) Send(ctx context.Context, method model.DeliveryMethod, address, payload string) error {
	s, ok := m.senders[method]
	if !ok {
		return fmt.Errorf("no sender registered for method %s", method)
	}
	return s.Send(ctx, method, address, payload)
}
