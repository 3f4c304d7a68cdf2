package ledger

import (
	"cosmossdk.io/errors"
)

// Codespace scopes the registered operation error codes.
const Codespace = "psl"

// Operation errors mirror the deployed program's taxonomy one to one.
// Code 1 is reserved by the errors module, so registration starts at 2.
// Keep the order stable: downstream consumers match on codes.
var (
	ErrUnauthorized        = errors.Register(Codespace, 2, "caller is not the pool agent")
	ErrStakeTooSmall       = errors.Register(Codespace, 3, "stake amount below minimum")
	ErrRaydium             = errors.Register(Codespace, 4, "venue swap failed")
	ErrInvalidShare        = errors.Register(Codespace, 5, "share allocation exceeds pool capacity")
	ErrTradeSizeTooLarge   = errors.Register(Codespace, 6, "trade size exceeds pool cap")
	ErrPoolPaused          = errors.Register(Codespace, 7, "pool is paused")
	ErrMathOverflow        = errors.Register(Codespace, 8, "math overflow")
	ErrShareTooSmall       = errors.Register(Codespace, 9, "share below minimum floor")
	ErrStakeDurationNotMet = errors.Register(Codespace, 10, "minimum stake duration not met")
	ErrDustAmount          = errors.Register(Codespace, 11, "entitlement below dust threshold")

	// ErrEmergencyOnly keeps code 12 stable for compatibility. No current
	// operation returns it; emergency mode only relaxes the withdraw lock.
	ErrEmergencyOnly = errors.Register(Codespace, 12, "operation restricted to emergency mode")
)
