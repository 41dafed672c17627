// Package catalog holds the book copies available for lending.
//
// Every mutation is announced on a notification bus after it was applied.
// Announcements leave the store in commit order, even when mutations run concurrently.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/AntonStoeckl/lending-ledger-go/notification"
	"github.com/AntonStoeckl/lending-ledger-go/observability"
)

var (
	// ErrNotFound is returned by Remove when no copy of the title is available.
	ErrNotFound = errors.New("book copy not available")

	// ErrNilNotifier is returned by NewStore without a notifier.
	ErrNilNotifier = errors.New("notifier must not be nil")
)

// Notifier delivers catalog notifications in the order of the reserved tickets.
// *notification.Bus implements it.
type Notifier interface {
	Reserve() notification.Ticket
	Deliver(ctx context.Context, ticket notification.Ticket, msg notification.Message) error
}

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets the logger receiving subscriber failures at warn level.
func WithLogger(logger observability.Logger) Option {
	return func(s *Store) error {
		s.collectors.Logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger, preferred over WithLogger.
func WithContextualLogger(logger observability.ContextualLogger) Option {
	return func(s *Store) error {
		s.collectors.ContextualLogger = logger
		return nil
	}
}

// WithClock replaces time.Now as the source of notification timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) error {
		if now == nil {
			return errors.New("clock must not be nil")
		}

		s.now = now

		return nil
	}
}

// Store is the ordered multiset of available book copies, identified by title.
type Store struct {
	mu    sync.RWMutex
	books []string

	notifier   Notifier
	collectors observability.Collectors
	now        func() time.Time
}

// NewStore creates an empty store announcing its mutations on notifier.
func NewStore(notifier Notifier, options ...Option) (*Store, error) {
	if notifier == nil {
		return nil, ErrNilNotifier
	}

	s := &Store{notifier: notifier, now: time.Now}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Add puts a copy of title into circulation and announces "<title> added".
func (s *Store) Add(ctx context.Context, title string) {
	s.mu.Lock()
	s.books = append(s.books, title)
	ticket := s.notifier.Reserve()
	s.mu.Unlock()

	s.announce(ctx, ticket, notification.BookCopyAddedToCirculation, title)
}

// Remove takes the earliest added copy of title out of the available set and announces
// "<title> borrowed". Without an available copy it returns ErrNotFound and announces nothing.
func (s *Store) Remove(ctx context.Context, title string) error {
	announcement, err := s.Take(title)
	if err != nil {
		return err
	}

	announcement.Send(ctx)

	return nil
}

// Restore puts a copy of title back and announces "<title> returned".
// The store does not check where the copy came from; callers only restore copies they took out.
func (s *Store) Restore(ctx context.Context, title string) {
	s.Put(title).Send(ctx)
}

// Take is Remove without sending the announcement.
// The caller must Send the returned Announcement, typically after releasing its own locks:
// until it is sent, every later announcement of the bus waits for it.
func (s *Store) Take(title string) (Announcement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.Index(s.books, title)
	if i < 0 {
		return Announcement{}, fmt.Errorf("%w: %q", ErrNotFound, title)
	}
	s.books = slices.Delete(s.books, i, i+1)

	return s.reserve(notification.BookCopyLentToReader, title), nil
}

// Put is Restore without sending the announcement. The same obligation as for Take applies.
func (s *Store) Put(title string) Announcement {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.books = append(s.books, title)

	return s.reserve(notification.BookCopyReturnedByReader, title)
}

// Announcement is a notification whose place in the commit order is already reserved.
type Announcement struct {
	store     *Store
	ticket    notification.Ticket
	eventType notification.EventType
	title     string
}

// Send delivers the announcement once all earlier ones were delivered. Callers hold no lock
// that a subscriber might need, so subscribers can read the state that was just committed.
func (a Announcement) Send(ctx context.Context) {
	if a.store == nil {
		return
	}

	a.store.announce(ctx, a.ticket, a.eventType, a.title)
}

// reserve must be called with s.mu held.
func (s *Store) reserve(eventType notification.EventType, title string) Announcement {
	return Announcement{store: s, ticket: s.notifier.Reserve(), eventType: eventType, title: title}
}

// List yields the available copies in insertion order.
// Each iteration walks a snapshot taken when the iteration starts.
func (s *Store) List() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, title := range s.snapshot() {
			if !yield(title) {
				return
			}
		}
	}
}

// Contains reports whether a copy of title is available.
func (s *Store) Contains(title string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Contains(s.books, title)
}

// Len returns the number of available copies.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.books)
}

func (s *Store) snapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.books)
}

func (s *Store) announce(ctx context.Context, ticket notification.Ticket, eventType notification.EventType, title string) {
	err := s.notifier.Deliver(ctx, ticket, notification.NewMessage(eventType, title, s.now()))
	if err == nil {
		return
	}

	observability.LogWarn(ctx, s.collectors, observability.LogMsgDeliveryFailed,
		observability.LogAttrEventType, string(eventType),
		observability.LogAttrTitle, title,
		observability.LogAttrSequence, ticket.Sequence(),
		observability.LogAttrFailedSubscribers, countFailures(err),
		observability.LogAttrError, err.Error(),
	)
}

func countFailures(err error) int {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}

	return 1
}
