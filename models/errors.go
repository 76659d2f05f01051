package models

import "errors"

// Domain errors. Lower layers wrap these with context via fmt.Errorf("%w");
// the HTTP layer maps them to status codes with errors.Is.
var (
	// ErrNotFound: an account, user, or pending item could not be resolved.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate: a username, email, or card identifier is already taken.
	ErrDuplicate = errors.New("already exists")

	// ErrInvalidCredentials: a presented secret (CVV, expiry, or current
	// password) does not match the record on file.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInsufficientFunds: the debited balance would go negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUnauthorized: the acting user is not a party to the operation.
	ErrUnauthorized = errors.New("not authorized for this operation")

	// ErrAlreadyResolved: the pending item is no longer in the pending state.
	ErrAlreadyResolved = errors.New("item already resolved")

	// ErrInvalidOperation: the operation is semantically invalid, such as a
	// self-transfer, a frozen account, or a malformed amount.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrUpstreamFailure: the card detail generator failed; the calling
	// operation must abort without partial state.
	ErrUpstreamFailure = errors.New("card detail generator unavailable")
)
