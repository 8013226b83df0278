package ledger

import "errors"

// Ledger calls are all-or-nothing: any of these aborts the call with no
// state mutated.
var (
	ErrInsufficientFee   = errors.New("fee below configured start fee")
	ErrUnauthorized      = errors.New("caller does not own this session")
	ErrNotActive         = errors.New("session is not active")
	ErrSessionNotFound   = errors.New("session not found")
	ErrNothingToWithdraw = errors.New("nothing to withdraw")
)
