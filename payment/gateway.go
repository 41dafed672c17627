package payment

import (
	"context"
	"errors"
	"fmt"
)

const (
	OpCharge = "Charge"
	OpRefund = "Refund"
	OpStatus = "Status"
)

// Gateway is the payment backend. Failures should be *GatewayError values;
// any other error is treated as a failure of kind Unknown.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (TransactionResult, error)
	Refund(ctx context.Context, transactionID string) (TransactionResult, error)
	Status(ctx context.Context, transactionID string) (TransactionStatus, error)
}

// FailureKind classifies gateway failures.
type FailureKind int

const (
	KindUnknown FailureKind = iota
	KindNetwork
	KindPayment
	KindRefund
	KindValidation
)

func (k FailureKind) String() string {
	switch k {
	case KindNetwork:
		return "Network"
	case KindPayment:
		return "Payment"
	case KindRefund:
		return "Refund"
	case KindValidation:
		return "Validation"
	default:
		return "Unknown"
	}
}

// Label is the lower case name used in metric labels.
func (k FailureKind) Label() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindPayment:
		return "payment"
	case KindRefund:
		return "refund"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// GatewayError is a classified gateway failure. Its text is "<Kind> error: <cause>",
// for example "Network error: connection reset".
type GatewayError struct {
	Kind FailureKind
	Op   string
	Err  error
}

// NewGatewayError creates a failure of kind for op with a plain text cause.
func NewGatewayError(kind FailureKind, op, cause string) *GatewayError {
	return &GatewayError{Kind: kind, Op: op, Err: errors.New(cause)}
}

func (e *GatewayError) Error() string {
	if e.Err == nil {
		return e.Kind.String() + " error"
	}

	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *GatewayError in err's chain, or KindUnknown.
func KindOf(err error) FailureKind {
	var gatewayErr *GatewayError
	if errors.As(err, &gatewayErr) {
		return gatewayErr.Kind
	}

	return KindUnknown
}

// IsNetworkFailure reports whether err is a Network failure, the only kind worth retrying.
func IsNetworkFailure(err error) bool {
	return err != nil && KindOf(err) == KindNetwork
}

// classify turns whatever the gateway returned or raised into a *GatewayError.
func classify(op string, err error) *GatewayError {
	var gatewayErr *GatewayError
	if errors.As(err, &gatewayErr) {
		return gatewayErr
	}

	return &GatewayError{Kind: KindUnknown, Op: op, Err: err}
}

// guard calls the gateway and converts a panic into an Unknown failure.
func guard[T any](op string, call func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result, err = zero, &GatewayError{Kind: KindUnknown, Op: op, Err: fmt.Errorf("gateway panicked: %v", r)}
		}
	}()

	result, err = call()
	if err != nil {
		return result, classify(op, err)
	}

	return result, nil
}
