package cart

import "errors"

var (
	ErrOutOfStock      = errors.New("product is out of stock")
	ErrInactiveProduct = errors.New("product is not available")
	ErrInvalidUpdate   = errors.New("invalid quantity update")
)
