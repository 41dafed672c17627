package testdoubles

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/lending-ledger-go/payment"
)

// StubGateway is a payment.Gateway whose behavior is set per test through the Func fields.
// Operations without a Func succeed with a fixed transaction id and StatusCompleted.
type StubGateway struct {
	ChargeFunc func(ctx context.Context, req payment.ChargeRequest) (payment.TransactionResult, error)
	RefundFunc func(ctx context.Context, transactionID string) (payment.TransactionResult, error)
	StatusFunc func(ctx context.Context, transactionID string) (payment.TransactionStatus, error)

	calls    map[string]int
	requests []payment.ChargeRequest
	mu       sync.Mutex
}

// StubTransactionID is the transaction id returned by a StubGateway without ChargeFunc.
const StubTransactionID = "txn-stub-1"

// NewStubGateway creates a new StubGateway.
func NewStubGateway() *StubGateway {
	return &StubGateway{calls: make(map[string]int)}
}

// Charge implements payment.Gateway.
func (g *StubGateway) Charge(ctx context.Context, req payment.ChargeRequest) (payment.TransactionResult, error) {
	g.mu.Lock()
	g.calls[payment.OpCharge]++
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if g.ChargeFunc != nil {
		return g.ChargeFunc(ctx, req)
	}

	return payment.Succeeded(StubTransactionID, "Charge successful."), nil
}

// Refund implements payment.Gateway.
func (g *StubGateway) Refund(ctx context.Context, transactionID string) (payment.TransactionResult, error) {
	g.count(payment.OpRefund)

	if g.RefundFunc != nil {
		return g.RefundFunc(ctx, transactionID)
	}

	return payment.Succeeded(transactionID, "Refund successful."), nil
}

// Status implements payment.Gateway.
func (g *StubGateway) Status(ctx context.Context, transactionID string) (payment.TransactionStatus, error) {
	g.count(payment.OpStatus)

	if g.StatusFunc != nil {
		return g.StatusFunc(ctx, transactionID)
	}

	return payment.StatusCompleted, nil
}

// Calls returns how often op (payment.OpCharge, OpRefund or OpStatus) was called.
func (g *StubGateway) Calls(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.calls[op]
}

// TotalCalls returns the number of calls of all operations.
func (g *StubGateway) TotalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	total := 0
	for _, n := range g.calls {
		total += n
	}

	return total
}

// ChargeRequests returns a copy of all received charge requests.
func (g *StubGateway) ChargeRequests() []payment.ChargeRequest {
	g.mu.Lock()
	defer g.mu.Unlock()

	return append([]payment.ChargeRequest(nil), g.requests...)
}

func (g *StubGateway) count(op string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls[op]++
}
