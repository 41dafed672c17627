package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/AntonStoeckl/lending-ledger-go/observability"
)

// ErrSubscriberNotFound is returned by Unsubscribe for a subscriber that is not registered.
var ErrSubscriberNotFound = errors.New("subscriber not found")

// Subscriber receives catalog notifications.
// Implementations must be comparable (typically pointers) so they can be unsubscribed,
// and must not mutate the catalog synchronously from Receive. Reading the catalog or the ledger
// from Receive is fine: announcements are sent after the mutation is committed and its locks released.
type Subscriber interface {
	Receive(ctx context.Context, msg Message) error
}

// DeliveryError reports that one subscriber failed to receive a message.
type DeliveryError struct {
	Subscriber Subscriber
	Position   int
	Message    Message
	Err        error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivering %s #%d to subscriber %d: %v", e.Message.EventType, e.Message.Sequence, e.Position, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Ticket is a place in the delivery order, obtained with Reserve.
type Ticket struct {
	sequence uint64
}

// Sequence is the sequence number the delivered message will carry.
func (t Ticket) Sequence() uint64 {
	return t.sequence
}

// Option configures a Bus.
type Option func(*Bus) error

// WithMetrics counts failed deliveries in notification_delivery_failures_total.
func WithMetrics(collector observability.MetricsCollector) Option {
	return func(b *Bus) error {
		b.metrics = collector
		return nil
	}
}

// Bus keeps the subscriber list and delivers messages in ticket order.
type Bus struct {
	mu          sync.RWMutex
	subscribers []Subscriber

	turnMu  sync.Mutex
	turn    *sync.Cond
	issued  uint64
	serving uint64

	metrics observability.MetricsCollector
}

// NewBus creates a Bus without subscribers.
func NewBus(options ...Option) (*Bus, error) {
	b := &Bus{serving: 1}
	b.turn = sync.NewCond(&b.turnMu)

	for _, option := range options {
		if err := option(b); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// Subscribe registers s. Registering the same subscriber twice delivers every message to it twice.
func (b *Bus) Subscribe(s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers = append(b.subscribers, s)
}

// Unsubscribe removes the earliest registration of s.
func (b *Bus) Unsubscribe(s Subscriber) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, registered := range b.subscribers {
		if registered == s {
			b.subscribers = append(b.subscribers[:i:i], b.subscribers[i+1:]...)
			return nil
		}
	}

	return ErrSubscriberNotFound
}

// SubscriberCount returns the number of registrations.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subscribers)
}

// Publish delivers msg to all current subscribers. It is Deliver with a freshly reserved ticket.
func (b *Bus) Publish(ctx context.Context, msg Message) error {
	return b.Deliver(ctx, b.Reserve(), msg)
}

// Reserve takes the next place in the delivery order.
// Components reserve inside their critical section and Deliver after leaving it.
// Every reserved ticket must be passed to Deliver exactly once, otherwise later deliveries block forever.
func (b *Bus) Reserve() Ticket {
	b.turnMu.Lock()
	defer b.turnMu.Unlock()

	b.issued++

	return Ticket{sequence: b.issued}
}

// Deliver waits until all earlier tickets were delivered, then delivers msg with the ticket's
// sequence number to a snapshot of the subscribers in registration order.
//
// Every subscriber is attempted. Errors and panics are captured as *DeliveryError values and
// returned joined; a nil result means every subscriber received the message.
func (b *Bus) Deliver(ctx context.Context, ticket Ticket, msg Message) error {
	b.turnMu.Lock()
	for b.serving != ticket.sequence {
		b.turn.Wait()
	}
	b.turnMu.Unlock()

	defer func() {
		b.turnMu.Lock()
		b.serving++
		b.turn.Broadcast()
		b.turnMu.Unlock()
	}()

	msg.Sequence = ticket.sequence

	var errs []error
	for position, s := range b.snapshot() {
		if err := receive(ctx, s, msg); err != nil {
			errs = append(errs, &DeliveryError{Subscriber: s, Position: position, Message: msg, Err: err})
			observability.IncrementCounter(ctx, b.metrics, observability.NotificationDeliveryFailuresMetric, map[string]string{
				observability.LogAttrEventType: string(msg.EventType),
			})
		}
	}

	return errors.Join(errs...)
}

func (b *Bus) snapshot() []Subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return append([]Subscriber(nil), b.subscribers...)
}

func receive(ctx context.Context, s Subscriber, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panicked: %v", r)
		}
	}()

	return s.Receive(ctx, msg)
}
