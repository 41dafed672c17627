package ledger

import (
	"errors"

	"github.com/AntonStoeckl/lending-ledger-go/membership"
)

const (
	failureReasonQuotaExceeded     = "user has too many books"
	failureReasonBookUnavailable   = "book is not available"
	failureReasonNotBorrowedByUser = "book is not borrowed by this user"
	failureReasonOpenLoans         = "user has outstanding book loans"
	failureReasonEmptyTitle        = "book title must not be empty"
)

var (
	// ErrQuotaExceeded is returned by Borrow when the user already holds as many books as the quota allows.
	ErrQuotaExceeded = errors.New(failureReasonQuotaExceeded)

	// ErrBookUnavailable is returned by Borrow when no copy of the title is available.
	ErrBookUnavailable = errors.New(failureReasonBookUnavailable)

	// ErrNotBorrowedByUser is returned by Return when the title is not in the user's loan set.
	ErrNotBorrowedByUser = errors.New(failureReasonNotBorrowedByUser)

	// ErrUserHasOpenLoans is returned by RemoveUser while the user still holds books.
	ErrUserHasOpenLoans = errors.New(failureReasonOpenLoans)

	// ErrEmptyTitle is returned when adding or importing a book without a title.
	ErrEmptyTitle = errors.New(failureReasonEmptyTitle)
)

// IsRejection reports whether err is a business rule rejection rather than a failure.
func IsRejection(err error) bool {
	return errors.Is(err, membership.ErrUnknownUser) ||
		errors.Is(err, membership.ErrInvalidRole) ||
		errors.Is(err, membership.ErrEmptyName) ||
		errors.Is(err, membership.ErrUserAlreadyRegistered) ||
		errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrBookUnavailable) ||
		errors.Is(err, ErrNotBorrowedByUser) ||
		errors.Is(err, ErrUserHasOpenLoans) ||
		errors.Is(err, ErrEmptyTitle)
}

// borrowState is what a borrow decision depends on, captured under the ledger lock.
type borrowState struct {
	userIsRegistered bool
	quota            membership.Quota
	userLoanCount    int
	bookIsAvailable  bool
}

// decideBorrow applies the borrowing rules in their fixed order:
//
//	ERROR: unknown user if the user is not registered
//	ERROR: quota exceeded if the user holds as many books as the quota allows
//	ERROR: book unavailable if no copy of the title is in the catalog
func decideBorrow(s borrowState) error {
	if !s.userIsRegistered {
		return membership.ErrUnknownUser
	}

	if !s.quota.Allows(s.userLoanCount) {
		return ErrQuotaExceeded
	}

	if !s.bookIsAvailable {
		return ErrBookUnavailable
	}

	return nil
}

type returnState struct {
	userIsRegistered     bool
	bookIsBorrowedByUser bool
}

func decideReturn(s returnState) error {
	if !s.userIsRegistered {
		return membership.ErrUnknownUser
	}

	if !s.bookIsBorrowedByUser {
		return ErrNotBorrowedByUser
	}

	return nil
}

type removeUserState struct {
	userIsRegistered bool
	userLoanCount    int
}

func decideRemoveUser(s removeUserState) error {
	if !s.userIsRegistered {
		return membership.ErrUnknownUser
	}

	if s.userLoanCount > 0 {
		return ErrUserHasOpenLoans
	}

	return nil
}
