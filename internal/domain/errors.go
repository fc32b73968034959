package domain

import "errors"

var (
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrProductNotFound     = errors.New("product not found")
	ErrVariantNotFound     = errors.New("variant not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrSignatureMismatch   = errors.New("payment signature mismatch")
	ErrProviderUnavailable = errors.New("payment provider unavailable")

	// ErrAlreadyFinalized reports that the order already reached a terminal
	// state; callers treat it as an idempotent no-op, not a failure.
	ErrAlreadyFinalized = errors.New("order already finalized")
)
