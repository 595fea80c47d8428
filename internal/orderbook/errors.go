package orderbook

import "errors"

var (
	// ErrInvalidQuantity rejects orders with a non-positive quantity
	ErrInvalidQuantity = errors.New("order quantity must be positive")

	// ErrMissingLimitPrice rejects limit orders without a positive price
	ErrMissingLimitPrice = errors.New("limit order requires a positive price")
)
