package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/AntonStoeckl/lending-ledger-go/observability"
	"github.com/AntonStoeckl/lending-ledger-go/retry"
)

const (
	MsgEmptyUserID        = "User ID cannot be empty."
	MsgNonPositiveAmount  = "Amount must be positive."
	MsgEmptyTransactionID = "Transaction ID cannot be empty."

	operationProcessPayment  = "ProcessPayment"
	operationRefundPayment   = "RefundPayment"
	operationGetPaymentState = "GetPaymentStatus"
)

var (
	// ErrEmptyUserID rejects a charge without a user.
	ErrEmptyUserID = errors.New(MsgEmptyUserID)

	// ErrNonPositiveAmount rejects a charge of zero or less.
	ErrNonPositiveAmount = errors.New(MsgNonPositiveAmount)

	// ErrEmptyTransactionID rejects a refund or status lookup without a transaction.
	ErrEmptyTransactionID = errors.New(MsgEmptyTransactionID)

	// ErrNilGateway is returned by NewProcessor without a gateway.
	ErrNilGateway = errors.New("gateway must not be nil")

	// ErrInvalidStatus reports a status outside the closed set, as returned by a misbehaving gateway.
	ErrInvalidStatus = errors.New("invalid transaction status")

	errDeclined = errors.New("declined by gateway")
)

// Processor validates payment requests, calls the gateway and turns every outcome into a result.
type Processor struct {
	gateway     Gateway
	collectors  observability.Collectors
	statusRetry []retry.Option
}

// NewProcessor creates a processor on gateway.
func NewProcessor(gateway Gateway, options ...Option) (*Processor, error) {
	if gateway == nil {
		return nil, ErrNilGateway
	}

	p := &Processor{gateway: gateway}

	for _, option := range options {
		if err := option(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// ProcessPayment charges amount minor units to userID.
// Invalid input is rejected without calling the gateway and yields an empty transaction id.
// A gateway failure yields a failed result carrying the failure message.
func (p *Processor) ProcessPayment(ctx context.Context, userID string, amount int64) TransactionResult {
	return p.ProcessPaymentWithKey(ctx, "", userID, amount)
}

// ProcessPaymentWithKey is ProcessPayment with a client generated idempotency key passed on to the gateway.
// Resubmitting a request with the same key does not charge twice, if the gateway honors keys.
func (p *Processor) ProcessPaymentWithKey(ctx context.Context, idempotencyKey, userID string, amount int64) TransactionResult {
	ctx, op := observability.Begin(ctx, p.collectors, observability.PaymentScope, operationProcessPayment,
		observability.LogAttrUser, userID)

	switch {
	case userID == "":
		return p.reject(ctx, op, ErrEmptyUserID)
	case amount <= 0:
		return p.reject(ctx, op, ErrNonPositiveAmount)
	}

	result, err := guard(OpCharge, func() (TransactionResult, error) {
		return p.gateway.Charge(ctx, ChargeRequest{UserID: userID, Amount: amount, IdempotencyKey: idempotencyKey})
	})
	if err != nil {
		return p.fail(ctx, op, OpCharge, err)
	}

	return p.echo(ctx, op, result)
}

// RefundPayment refunds a transaction. An empty id is rejected without calling the gateway.
func (p *Processor) RefundPayment(ctx context.Context, transactionID string) TransactionResult {
	ctx, op := observability.Begin(ctx, p.collectors, observability.PaymentScope, operationRefundPayment,
		observability.LogAttrTransactionID, transactionID)

	if transactionID == "" {
		return p.reject(ctx, op, ErrEmptyTransactionID)
	}

	result, err := guard(OpRefund, func() (TransactionResult, error) {
		return p.gateway.Refund(ctx, transactionID)
	})
	if err != nil {
		failed := p.fail(ctx, op, OpRefund, err)
		failed.TransactionID = transactionID

		return failed
	}

	return p.echo(ctx, op, result)
}

// GetPaymentStatus returns the gateway's status of a transaction, or StatusFailed for an empty id
// and for every failure. Lookups have no side effects, so Network failures are retried with backoff.
func (p *Processor) GetPaymentStatus(ctx context.Context, transactionID string) TransactionStatus {
	ctx, op := observability.Begin(ctx, p.collectors, observability.PaymentScope, operationGetPaymentState,
		observability.LogAttrTransactionID, transactionID)

	if transactionID == "" {
		op.End(ctx, observability.StatusRejected, ErrEmptyTransactionID)
		return StatusFailed
	}

	var status TransactionStatus
	lookup := func(ctx context.Context) error {
		s, err := guard(OpStatus, func() (TransactionStatus, error) {
			return p.gateway.Status(ctx, transactionID)
		})
		if err != nil {
			p.recordFailure(ctx, OpStatus, err)
			return err
		}

		if !s.Valid() {
			err = &GatewayError{Kind: KindUnknown, Op: OpStatus, Err: fmt.Errorf("%w: %q", ErrInvalidStatus, s)}
			p.recordFailure(ctx, OpStatus, err)

			return err
		}

		status = s

		return nil
	}

	if _, err := retry.Do(ctx, lookup, p.statusRetryOptions()...); err != nil {
		op.End(ctx, statusOf(err), err, observability.LogAttrFailureKind, KindOf(err).Label())
		return StatusFailed
	}

	op.End(ctx, observability.StatusSuccess, nil)

	return status
}

func (p *Processor) statusRetryOptions() []retry.Option {
	options := []retry.Option{
		retry.WithRetryableFunc(IsNetworkFailure),
		retry.WithErrorTypeFunc(func(err error) string { return KindOf(err).Label() }),
	}

	if p.collectors.Metrics != nil {
		options = append(options, retry.WithMetrics(p.collectors.Metrics, OpStatus))
	}

	if p.collectors.ContextualLogger != nil {
		options = append(options, retry.WithLogger(p.collectors.ContextualLogger))
	}

	return append(options, p.statusRetry...)
}

func (p *Processor) reject(ctx context.Context, op *observability.Operation, err error) TransactionResult {
	op.End(ctx, observability.StatusRejected, err)
	return Failed("", err.Error())
}

func (p *Processor) fail(ctx context.Context, op *observability.Operation, gatewayOp string, err error) TransactionResult {
	p.recordFailure(ctx, gatewayOp, err)
	op.End(ctx, statusOf(err), err, observability.LogAttrFailureKind, KindOf(err).Label())

	return Failed("", err.Error())
}

func (p *Processor) echo(ctx context.Context, op *observability.Operation, result TransactionResult) TransactionResult {
	if !result.Success {
		op.End(ctx, observability.StatusRejected, fmt.Errorf("%w: %s", errDeclined, result.Message),
			observability.LogAttrTransactionID, result.TransactionID)

		return result
	}

	op.End(ctx, observability.StatusSuccess, nil, observability.LogAttrTransactionID, result.TransactionID)

	return result
}

func (p *Processor) recordFailure(ctx context.Context, gatewayOp string, err error) {
	observability.IncrementCounter(ctx, p.collectors.Metrics, observability.PaymentGatewayFailuresMetric, map[string]string{
		observability.LogAttrOperationType: gatewayOp,
		observability.LogAttrFailureKind:   KindOf(err).Label(),
	})
}

// statusOf treats Payment, Refund and Validation failures as rejections of the request
// and Network and Unknown failures as errors.
func statusOf(err error) string {
	switch {
	case observability.IsCancellationError(err):
		return observability.StatusCanceled
	case observability.IsTimeoutError(err):
		return observability.StatusTimeout
	}

	switch KindOf(err) {
	case KindPayment, KindRefund, KindValidation:
		return observability.StatusRejected
	default:
		return observability.StatusError
	}
}
