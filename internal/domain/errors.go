package domain

import "errors"

// Caller-facing outcomes. They are wrapped with detail via fmt.Errorf("%w: ...")
// and matched with errors.Is.
var (
	ErrEmptyCart           = errors.New("cart is empty or not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInsufficientBalance = errors.New("insufficient balance in wallet")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidState        = errors.New("order cannot be changed in its current status")
	ErrCartItemNotFound    = errors.New("cart item not found")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidQuantity     = errors.New("quantity must be at least 1")
	ErrInvalidProduct      = errors.New("invalid product")
	ErrMissingAddress      = errors.New("shipping address is required")
)

// IsNotFound reports whether err means the requested entity does not exist
// for the caller.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrCartItemNotFound)
}

// IsBusinessError reports whether err is an expected outcome that should be
// shown to the caller rather than treated as an infrastructure failure.
func IsBusinessError(err error) bool {
	return IsNotFound(err) ||
		errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidProduct) ||
		errors.Is(err, ErrMissingAddress)
}
