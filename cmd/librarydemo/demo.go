package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"

	"github.com/AntonStoeckl/lending-ledger-go/catalog"
	"github.com/AntonStoeckl/lending-ledger-go/ingest"
	"github.com/AntonStoeckl/lending-ledger-go/ledger"
	"github.com/AntonStoeckl/lending-ledger-go/membership"
	"github.com/AntonStoeckl/lending-ledger-go/notification"
	"github.com/AntonStoeckl/lending-ledger-go/payment"
	"github.com/AntonStoeckl/lending-ledger-go/payment/memgateway"
	"github.com/AntonStoeckl/lending-ledger-go/retry"
)

var (
	demoBooks = []string{"Clean Code", "Refactoring", "The Pragmatic Programmer", "Domain-Driven Design"}

	demoImports = []struct {
		format string
		data   string
	}{
		{format: "json", data: `{"title": "The Go Programming Language", "author": "Alan Donovan", "year": 2015}`},
		{format: "csv", data: "title,author,year\nWorking Effectively with Legacy Code,Michael Feathers,2004\n"},
		{format: "xml", data: "<book><title>Designing Data-Intensive Applications</title><author>Martin Kleppmann</author><year>2017</year></book>"},
	}
)

// app is the composition root: one catalog, one bus, one registry and one ledger shared by every caller.
type app struct {
	bus       *notification.Bus
	store     *catalog.Store
	ledger    *ledger.Ledger
	gateway   *memgateway.Gateway
	processor *payment.Processor
	journal   *bytes.Buffer
	out       io.Writer
}

func newApp(cfg Config, obs *ObservabilityConfig, out io.Writer) (*app, error) {
	bus, err := notification.NewBus(notification.WithMetrics(obs.MetricsCollector))
	if err != nil {
		return nil, fmt.Errorf("creating notification bus: %w", err)
	}

	journal := &bytes.Buffer{}
	bus.Subscribe(notification.NewLogSubscriber(obs.Logger, obs.ContextualLogger))
	bus.Subscribe(notification.NewMetricsSubscriber(obs.MetricsCollector))
	bus.Subscribe(notification.NewJournalSubscriber(journal))

	store, err := catalog.NewStore(bus,
		catalog.WithLogger(obs.Logger),
		catalog.WithContextualLogger(obs.ContextualLogger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating catalog: %w", err)
	}

	l, err := ledger.New(store, membership.NewRegistry(),
		ledger.WithLogger(obs.Logger),
		ledger.WithContextualLogger(obs.ContextualLogger),
		ledger.WithMetrics(obs.MetricsCollector),
		ledger.WithTracing(obs.TracingCollector),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ledger: %w", err)
	}

	gateway, err := memgateway.New()
	if err != nil {
		return nil, fmt.Errorf("creating payment gateway: %w", err)
	}

	processor, err := payment.NewProcessor(gateway,
		payment.WithLogger(obs.Logger),
		payment.WithContextualLogger(obs.ContextualLogger),
		payment.WithMetrics(obs.MetricsCollector),
		payment.WithTracing(obs.TracingCollector),
		payment.WithStatusRetry(retry.WithMaxAttempts(cfg.StatusRetryAttempts)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating payment processor: %w", err)
	}

	return &app{
		bus:       bus,
		store:     store,
		ledger:    l,
		gateway:   gateway,
		processor: processor,
		journal:   journal,
		out:       out,
	}, nil
}

// run plays through the lending and payment workflows and reports every outcome to a.out.
func (a *app) run(ctx context.Context) error {
	steps := []func(context.Context) error{
		a.stockCatalog,
		a.registerUsers,
		a.lendWithinQuota,
		a.raceForLastCopy,
		a.returnBooks,
		a.takePayments,
		a.replayJournal,
	}

	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (a *app) stockCatalog(ctx context.Context) error {
	a.section("Catalog")

	for _, title := range demoBooks {
		if err := a.ledger.AddBook(ctx, title); err != nil {
			return err
		}
	}

	for _, in := range demoImports {
		format, err := ingest.ParseFormat(in.format)
		if err != nil {
			return err
		}

		record, err := ingest.Decode(format, []byte(in.data))
		if err != nil {
			return err
		}

		if err = a.ledger.ImportBook(ctx, record); err != nil {
			return err
		}
		a.printf("imported %q by %s (%d) from %s", record.Title, record.Author, record.Year, format)
	}

	_, err := ingest.Decode(ingest.JSON, []byte(`{"author": "Nobody"}`))
	a.report("import without title", err)

	a.printf("%d books available", countSeq(a.ledger.AvailableBooks()))

	return nil
}

func (a *app) registerUsers(ctx context.Context) error {
	a.section("Users")

	for _, u := range []struct{ role, name string }{
		{role: "student", name: "alice"},
		{role: "teacher", name: "bob"},
		{role: "librarian", name: "carol"},
	} {
		user, err := a.ledger.RegisterUser(ctx, u.role, u.name)
		if err != nil {
			return err
		}
		a.printf("registered %s as %s, quota %s, can manage library: %t",
			user.Name, user.Role, user.Quota(), user.Permissions().CanManageLibrary)
	}

	_, err := a.ledger.RegisterUser(ctx, "janitor", "dave")
	a.report("register dave as janitor", err)

	return nil
}

func (a *app) lendWithinQuota(ctx context.Context) error {
	a.section("Lending")

	alert := notification.NewAlertSubscriber("alice", a.out)
	a.bus.Subscribe(alert)
	defer func() { _ = a.bus.Unsubscribe(alert) }()

	for _, title := range demoBooks {
		a.report(fmt.Sprintf("alice borrows %q", title), a.ledger.Borrow(ctx, "alice", title))
	}

	a.report(`bob borrows "Clean Code"`, a.ledger.Borrow(ctx, "bob", "Clean Code"))
	a.report(`erin borrows "Domain-Driven Design"`, a.ledger.Borrow(ctx, "erin", "Domain-Driven Design"))

	loans, err := a.ledger.Loans("alice")
	if err != nil {
		return err
	}
	a.printf("alice holds %q", loans)

	return nil
}

func (a *app) raceForLastCopy(ctx context.Context) error {
	a.section("Race")

	const title = "Domain-Driven Design"
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		losers  int
	)

	for _, user := range []string{"bob", "carol"} {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := a.ledger.Borrow(ctx, user, title)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, ledger.ErrBookUnavailable):
				losers++
			}
		}()
	}
	wg.Wait()

	a.printf("%q: %d winner, %d unavailable, still in catalog: %t", title, winners, losers, a.store.Contains(title))

	return nil
}

func (a *app) returnBooks(ctx context.Context) error {
	a.section("Returns")

	a.report(`alice returns "Domain-Driven Design"`, a.ledger.Return(ctx, "alice", "Domain-Driven Design"))
	a.report("remove alice", a.ledger.RemoveUser(ctx, "alice"))

	loans, err := a.ledger.Loans("alice")
	if err != nil {
		return err
	}

	for _, title := range loans {
		if err = a.ledger.Return(ctx, "alice", title); err != nil {
			return err
		}
	}

	a.report("remove alice", a.ledger.RemoveUser(ctx, "alice"))

	for user := range a.ledger.Users() {
		held, err := a.ledger.Loans(user.Name)
		if err != nil {
			return err
		}
		a.printf("%s (%s) holds %d books", user.Name, user.Role, len(held))
	}

	return nil
}

func (a *app) takePayments(ctx context.Context) error {
	a.section("Payments")

	charged := a.processor.ProcessPaymentWithKey(ctx, "late-fee-bob-1", "bob", 250)
	a.printResult("charge bob 2.50", charged)

	replayed := a.processor.ProcessPaymentWithKey(ctx, "late-fee-bob-1", "bob", 250)
	a.printf("resubmitted charge has the same transaction: %t", replayed.TransactionID == charged.TransactionID)

	a.printResult(`charge ""`, a.processor.ProcessPayment(ctx, "", 10))

	a.gateway.FailNext(payment.OpCharge, payment.KindNetwork, "connection reset")
	a.printResult("charge carol during outage", a.processor.ProcessPayment(ctx, "carol", 100))

	a.gateway.FailNext(payment.OpStatus, payment.KindNetwork, "connection reset")
	a.printf("status of bob's charge after a dropped connection: %s",
		a.processor.GetPaymentStatus(ctx, charged.TransactionID))
	a.printf("status of an empty transaction id: %s", a.processor.GetPaymentStatus(ctx, ""))

	a.printResult("refund bob", a.processor.RefundPayment(ctx, charged.TransactionID))
	a.printResult("refund bob again", a.processor.RefundPayment(ctx, charged.TransactionID))

	return nil
}

func (a *app) replayJournal(context.Context) error {
	a.section("Journal")

	messages, err := notification.ReadJournal(bytes.NewReader(a.journal.Bytes()))
	if err != nil {
		return err
	}

	counts := make(map[notification.EventType]int)
	for _, msg := range messages {
		counts[msg.EventType]++
	}

	a.printf("%d notifications: %d added, %d lent, %d returned", len(messages),
		counts[notification.BookCopyAddedToCirculation],
		counts[notification.BookCopyLentToReader],
		counts[notification.BookCopyReturnedByReader])

	return nil
}

func (a *app) section(name string) {
	a.printf("== %s ==", name)
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format+"\n", args...)
}

func (a *app) report(action string, err error) {
	if err != nil {
		a.printf("%s: rejected: %v", action, err)
		return
	}
	a.printf("%s: ok", action)
}

func (a *app) printResult(action string, result payment.TransactionResult) {
	if result.Success {
		a.printf("%s: ok (%s)", action, result.Message)
		return
	}
	a.printf("%s: failed: %s", action, result.Message)
}

func countSeq[T any](seq iter.Seq[T]) int {
	n := 0
	for range seq {
		n++
	}

	return n
}
