// internal/util/errors.go
package util

import "errors"

// Common application-specific errors.
//
// The handlers map these to four broad HTTP classes: not-found, unauthorized,
// business rule violations, and invalid operations (a balance that would go
// negative, activating an expired card). Anything else is a server error.
var (
	ErrNotFound            = errors.New("resource not found")
	ErrCardNotFound        = errors.New("card not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrUserNotFound        = errors.New("user not found")

	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotOwner           = errors.New("operation permitted only for the card owner")

	ErrInvalidInput          = errors.New("invalid input provided")
	ErrInsufficientFunds     = errors.New("insufficient funds or card is not available for transfer")
	ErrSameCardTransfer      = errors.New("cannot transfer to the same card")
	ErrCardUnavailable       = errors.New("destination card is not available for transfers")
	ErrDuplicateCardNumber   = errors.New("card number already exists")
	ErrDuplicateUsername     = errors.New("username already exists")
	ErrCardAlreadyBlocked    = errors.New("card is already blocked")
	ErrCardReferenced        = errors.New("card is referenced by transactions")
	ErrTransactionNotPending = errors.New("only pending transactions can be modified")

	ErrNegativeBalance = errors.New("balance cannot go negative")
	ErrCardExpired     = errors.New("cannot activate an expired card")
)

// IsError reports whether err matches target in its wrap chain.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}
