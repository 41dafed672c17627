// Package memgateway provides an in-memory payment.Gateway with idempotency keys and fault injection.
package memgateway

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/lending-ledger-go/payment"
)

const (
	msgChargeSuccessful = "Charge successful."
	msgRefundSuccessful = "Refund successful."
)

var (
	// ErrUnknownTransaction is returned by SetStatus for a transaction the gateway never created.
	ErrUnknownTransaction = errors.New("transaction not found")

	// ErrInvalidStatus is returned by SetStatus for a status outside the closed set.
	ErrInvalidStatus = errors.New("invalid transaction status")

	// ErrNilIDGenerator is returned when a nil generator is provided to WithIDGenerator.
	ErrNilIDGenerator = errors.New("id generator must not be nil")
)

type transaction struct {
	request  payment.ChargeRequest
	status   payment.TransactionStatus
	refunded bool
}

type keyedCharge struct {
	request payment.ChargeRequest
	result  payment.TransactionResult
}

// Gateway is safe for concurrent use.
type Gateway struct {
	mu           sync.Mutex
	transactions map[string]*transaction
	keys         map[string]keyedCharge
	faults       map[string][]*payment.GatewayError
	calls        map[string]int
	newID        func() string
}

// Option configures a Gateway.
type Option func(*Gateway) error

// WithIDGenerator replaces the uuid based transaction ids.
func WithIDGenerator(generate func() string) Option {
	return func(g *Gateway) error {
		if generate == nil {
			return ErrNilIDGenerator
		}
		g.newID = generate

		return nil
	}
}

// New creates an empty Gateway.
func New(options ...Option) (*Gateway, error) {
	g := &Gateway{
		transactions: make(map[string]*transaction),
		keys:         make(map[string]keyedCharge),
		faults:       make(map[string][]*payment.GatewayError),
		calls:        make(map[string]int),
		newID:        func() string { return uuid.NewString() },
	}

	for _, option := range options {
		if err := option(g); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// Charge books a completed transaction. A request repeating the idempotency key of an earlier
// request returns the earlier result; the same key with a different request is a Validation failure.
func (g *Gateway) Charge(ctx context.Context, req payment.ChargeRequest) (payment.TransactionResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.begin(ctx, payment.OpCharge); err != nil {
		return payment.TransactionResult{}, err
	}

	switch {
	case req.UserID == "":
		return payment.TransactionResult{}, payment.NewGatewayError(payment.KindValidation, payment.OpCharge, payment.MsgEmptyUserID)
	case req.Amount <= 0:
		return payment.TransactionResult{}, payment.NewGatewayError(payment.KindValidation, payment.OpCharge, payment.MsgNonPositiveAmount)
	}

	if req.IdempotencyKey != "" {
		if earlier, ok := g.keys[req.IdempotencyKey]; ok {
			if earlier.request != req {
				return payment.TransactionResult{}, payment.NewGatewayError(payment.KindValidation, payment.OpCharge,
					"idempotency key reused with a different request")
			}

			return earlier.result, nil
		}
	}

	id := g.newID()
	g.transactions[id] = &transaction{request: req, status: payment.StatusCompleted}
	result := payment.Succeeded(id, msgChargeSuccessful)

	if req.IdempotencyKey != "" {
		g.keys[req.IdempotencyKey] = keyedCharge{request: req, result: result}
	}

	return result, nil
}

// Refund refunds a transaction once.
func (g *Gateway) Refund(ctx context.Context, transactionID string) (payment.TransactionResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.begin(ctx, payment.OpRefund); err != nil {
		return payment.TransactionResult{}, err
	}

	if transactionID == "" {
		return payment.TransactionResult{}, payment.NewGatewayError(payment.KindValidation, payment.OpRefund, payment.MsgEmptyTransactionID)
	}

	txn, ok := g.transactions[transactionID]
	switch {
	case !ok:
		return payment.TransactionResult{}, &payment.GatewayError{Kind: payment.KindRefund, Op: payment.OpRefund, Err: ErrUnknownTransaction}
	case txn.refunded:
		return payment.TransactionResult{}, payment.NewGatewayError(payment.KindRefund, payment.OpRefund, "transaction already refunded")
	}

	txn.refunded = true

	return payment.Succeeded(transactionID, msgRefundSuccessful), nil
}

// Status returns the current status of a transaction.
func (g *Gateway) Status(ctx context.Context, transactionID string) (payment.TransactionStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.begin(ctx, payment.OpStatus); err != nil {
		return "", err
	}

	if transactionID == "" {
		return "", payment.NewGatewayError(payment.KindValidation, payment.OpStatus, payment.MsgEmptyTransactionID)
	}

	txn, ok := g.transactions[transactionID]
	if !ok {
		return "", &payment.GatewayError{Kind: payment.KindValidation, Op: payment.OpStatus, Err: ErrUnknownTransaction}
	}

	return txn.status, nil
}

// FailNext makes the next call of op (payment.OpCharge, OpRefund or OpStatus) fail with kind and msg.
// Queued failures are consumed in order, one per call.
func (g *Gateway) FailNext(op string, kind payment.FailureKind, msg string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.faults[op] = append(g.faults[op], payment.NewGatewayError(kind, op, msg))
}

// SetStatus overrides the status of a transaction, for example to simulate a pending settlement.
func (g *Gateway) SetStatus(transactionID string, status payment.TransactionStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	txn, ok := g.transactions[transactionID]
	if !ok {
		return ErrUnknownTransaction
	}
	txn.status = status

	return nil
}

// Calls returns how often op was called, including failed calls.
func (g *Gateway) Calls(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.calls[op]
}

// begin counts the call and returns a queued or context failure. Callers hold g.mu.
func (g *Gateway) begin(ctx context.Context, op string) error {
	g.calls[op]++

	if err := ctx.Err(); err != nil {
		return &payment.GatewayError{Kind: payment.KindNetwork, Op: op, Err: err}
	}

	if queued := g.faults[op]; len(queued) > 0 {
		g.faults[op] = queued[1:]
		return queued[0]
	}

	return nil
}

var _ payment.Gateway = (*Gateway)(nil)
