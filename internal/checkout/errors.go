package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrNoSelection              = errors.New("no cart items selected")
	ErrMissingPaymentOrShipping = errors.New("payment method and shipping address are required")
	ErrNoEligibleItems          = errors.New("none of the selected items can be ordered")
)

// InsufficientStockError aborts a checkout when a line asks for more than is on hand
// once the product is locked.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d", e.ProductName, e.Requested, e.Available)
}

// TransactionFailedError hides the cause of a rolled back checkout from the caller.
// The cause is kept for logging.
type TransactionFailedError struct {
	Err error
}

func (e *TransactionFailedError) Error() string {
	return "checkout could not be completed, please try again"
}

func (e *TransactionFailedError) Unwrap() error {
	return e.Err
}
