package folio

import "errors"

var (
	// ErrRateLimited is returned by market data providers when the quota is
	// exhausted. Callers must stop issuing calls for the current run and keep
	// whatever data is already persisted; it is not a hard failure.
	ErrRateLimited = errors.New("market data provider rate limited")

	// ErrOversell marks a sell transaction that would drive the holding of
	// its security negative, on its own date or any later one. It is a
	// data-integrity violation and is never silently clamped.
	ErrOversell = errors.New("sell exceeds held shares")

	// ErrNoPrice is returned when a provider response carries no usable
	// price field for a ticker.
	ErrNoPrice = errors.New("no price available")
)
