// Package ledger is the single source of truth for who holds which book.
//
// It enforces the lending rules on top of the catalog and the user registry:
// every copy is either available in the catalog or on loan to exactly one user,
// and no user ever holds more books than the role's quota allows.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync"

	"github.com/AntonStoeckl/lending-ledger-go/catalog"
	"github.com/AntonStoeckl/lending-ledger-go/ingest"
	"github.com/AntonStoeckl/lending-ledger-go/membership"
	"github.com/AntonStoeckl/lending-ledger-go/observability"
)

const (
	operationRegisterUser = "RegisterUser"
	operationRemoveUser   = "RemoveUser"
	operationAddBook      = "AddBook"
	operationImportBook   = "ImportBook"
	operationBorrow       = "Borrow"
	operationReturn       = "Return"
)

var (
	// ErrNilCatalog is returned by New without a catalog.
	ErrNilCatalog = errors.New("catalog must not be nil")

	// ErrNilRegistry is returned by New without a registry.
	ErrNilRegistry = errors.New("registry must not be nil")
)

// Catalog is the store of available copies. *catalog.Store implements it.
// The ledger sends the announcements of Take and Put after releasing its lock.
type Catalog interface {
	Add(ctx context.Context, title string)
	Take(title string) (catalog.Announcement, error)
	Put(title string) catalog.Announcement
	Contains(title string) bool
	List() iter.Seq[string]
}

// Registry is the set of registered users. *membership.Registry implements it.
type Registry interface {
	Register(roleTag, name string) (membership.User, error)
	Remove(name string) error
	QuotaOf(name string) (membership.Quota, error)
	All() iter.Seq[membership.User]
}

// Ledger coordinates borrowing and returning.
// One mutex spans each check and the mutation it guards, so concurrent borrows of the last copy
// have exactly one winner and concurrent borrows by one user never exceed the quota.
type Ledger struct {
	mu    sync.Mutex
	loans map[string][]string

	catalog    Catalog
	registry   Registry
	collectors observability.Collectors
}

// New creates a ledger over store and registry. The ledger assumes it is the only writer
// removing or restoring copies and removing users.
func New(store Catalog, registry Registry, options ...Option) (*Ledger, error) {
	if store == nil {
		return nil, ErrNilCatalog
	}

	if registry == nil {
		return nil, ErrNilRegistry
	}

	l := &Ledger{
		loans:    make(map[string][]string),
		catalog:  store,
		registry: registry,
	}

	for _, option := range options {
		if err := option(l); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// RegisterUser registers name with the role named by roleTag.
func (l *Ledger) RegisterUser(ctx context.Context, roleTag, name string) (user membership.User, err error) {
	ctx, op := l.begin(ctx, operationRegisterUser, observability.LogAttrUser, name)
	defer func() { l.end(ctx, op, err, observability.LogAttrUser, name) }()

	user, err = l.registry.Register(roleTag, name)
	if err != nil {
		return membership.User{}, fmt.Errorf("registering %q as %q: %w", name, roleTag, err)
	}

	return user, nil
}

// RemoveUser unregisters a user who holds no books.
func (l *Ledger) RemoveUser(ctx context.Context, name string) (err error) {
	ctx, op := l.begin(ctx, operationRemoveUser, observability.LogAttrUser, name)
	defer func() { l.end(ctx, op, err, observability.LogAttrUser, name) }()

	l.mu.Lock()
	defer l.mu.Unlock()

	_, lookupErr := l.registry.QuotaOf(name)
	if err = decideRemoveUser(removeUserState{
		userIsRegistered: lookupErr == nil,
		userLoanCount:    len(l.loans[name]),
	}); err != nil {
		return fmt.Errorf("removing %q: %w", name, err)
	}

	if err = l.registry.Remove(name); err != nil {
		return fmt.Errorf("removing %q: %w", name, err)
	}

	delete(l.loans, name)

	return nil
}

// AddBook puts a new copy of title into circulation.
func (l *Ledger) AddBook(ctx context.Context, title string) (err error) {
	ctx, op := l.begin(ctx, operationAddBook, observability.LogAttrTitle, title)
	defer func() { l.end(ctx, op, err, observability.LogAttrTitle, title) }()

	return l.addBook(ctx, title)
}

// ImportBook puts a new copy of a decoded book record into circulation.
func (l *Ledger) ImportBook(ctx context.Context, record ingest.BookRecord) (err error) {
	ctx, op := l.begin(ctx, operationImportBook, observability.LogAttrTitle, record.Title)
	defer func() { l.end(ctx, op, err, observability.LogAttrTitle, record.Title) }()

	return l.addBook(ctx, record.Title)
}

func (l *Ledger) addBook(ctx context.Context, title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}

	l.catalog.Add(ctx, title)

	return nil
}

// Borrow lends a copy of title to user. The checks run in this order, and a failed check changes nothing:
// membership.ErrUnknownUser, ErrQuotaExceeded, ErrBookUnavailable.
func (l *Ledger) Borrow(ctx context.Context, user, title string) (err error) {
	ctx, op := l.begin(ctx, operationBorrow, observability.LogAttrUser, user, observability.LogAttrTitle, title)
	defer func() { l.end(ctx, op, err, observability.LogAttrUser, user, observability.LogAttrTitle, title) }()

	announcement, err := l.lend(user, title)
	if err != nil {
		return err
	}

	announcement.Send(ctx)

	return nil
}

func (l *Ledger) lend(user, title string) (catalog.Announcement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	quota, lookupErr := l.registry.QuotaOf(user)
	if err := decideBorrow(borrowState{
		userIsRegistered: lookupErr == nil,
		quota:            quota,
		userLoanCount:    len(l.loans[user]),
		bookIsAvailable:  l.catalog.Contains(title),
	}); err != nil {
		return catalog.Announcement{}, fmt.Errorf("%q borrowing %q: %w", user, title, err)
	}

	announcement, err := l.catalog.Take(title)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return catalog.Announcement{}, fmt.Errorf("%q borrowing %q: %w", user, title, ErrBookUnavailable)
		}

		return catalog.Announcement{}, fmt.Errorf("%q borrowing %q: %w", user, title, err)
	}

	l.loans[user] = append(l.loans[user], title)

	return announcement, nil
}

// Return takes a copy of title back from user and puts it back into the catalog.
// It fails with membership.ErrUnknownUser or ErrNotBorrowedByUser and then changes nothing.
func (l *Ledger) Return(ctx context.Context, user, title string) (err error) {
	ctx, op := l.begin(ctx, operationReturn, observability.LogAttrUser, user, observability.LogAttrTitle, title)
	defer func() { l.end(ctx, op, err, observability.LogAttrUser, user, observability.LogAttrTitle, title) }()

	announcement, err := l.takeBack(user, title)
	if err != nil {
		return err
	}

	announcement.Send(ctx)

	return nil
}

func (l *Ledger) takeBack(user, title string) (catalog.Announcement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, lookupErr := l.registry.QuotaOf(user)
	i := slices.Index(l.loans[user], title)
	if err := decideReturn(returnState{
		userIsRegistered:     lookupErr == nil,
		bookIsBorrowedByUser: i >= 0,
	}); err != nil {
		return catalog.Announcement{}, fmt.Errorf("%q returning %q: %w", user, title, err)
	}

	l.loans[user] = slices.Delete(l.loans[user], i, i+1)

	return l.catalog.Put(title), nil
}

// Loans returns a copy of the titles user holds, in borrowing order.
func (l *Ledger) Loans(user string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.registry.QuotaOf(user); err != nil {
		return nil, err
	}

	return slices.Clone(l.loans[user]), nil
}

// AvailableBooks yields the copies in the catalog in insertion order.
func (l *Ledger) AvailableBooks() iter.Seq[string] {
	return l.catalog.List()
}

// Users yields the registered users in registration order.
func (l *Ledger) Users() iter.Seq[membership.User] {
	return l.registry.All()
}

func (l *Ledger) begin(ctx context.Context, operationType string, args ...any) (context.Context, *observability.Operation) {
	return observability.Begin(ctx, l.collectors, observability.LedgerScope, operationType, args...)
}

func (l *Ledger) end(ctx context.Context, op *observability.Operation, err error, args ...any) {
	op.End(ctx, observability.ClassifyStatus(err, IsRejection), err, args...)
}
