// Package payment processes charges, refunds and status lookups against a payment gateway.
//
// The Processor never fails: every call returns a TransactionResult or a TransactionStatus,
// whatever the gateway does, including panicking.
package payment

// TransactionStatus is the closed set of states a transaction can be in.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
)

// Valid reports whether s is one of the declared statuses.
func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

func (s TransactionStatus) String() string {
	return string(s)
}

// TransactionResult is the outcome of a charge or refund.
type TransactionResult struct {
	Success       bool
	TransactionID string
	Message       string
}

func Succeeded(transactionID, message string) TransactionResult {
	return TransactionResult{Success: true, TransactionID: transactionID, Message: message}
}

func Failed(transactionID, message string) TransactionResult {
	return TransactionResult{Success: false, TransactionID: transactionID, Message: message}
}

// ChargeRequest asks the gateway to charge Amount minor units (e.g. cents) to UserID.
// A non-empty IdempotencyKey lets the gateway recognize a repeated request.
type ChargeRequest struct {
	UserID         string
	Amount         int64
	IdempotencyKey string
}
