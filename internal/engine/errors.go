package engine

import "errors"

// ErrInsufficientFunds is fatal: cash stayed non-positive after a forced
// liquidation and the run must stop.
var ErrInsufficientFunds = errors.New("insufficient funds")
