package domain

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrRateLimited            = errors.New("rate limited")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrInvalidOrder           = errors.New("invalid order parameters")
	ErrLimitOrderMissingPrice = errors.New("limit order requires a price")
	ErrInvalidSignal          = errors.New("invalid signal")
	ErrUnknownExchange        = errors.New("unknown exchange")
	ErrTimeout                = errors.New("exchange call timed out")
	ErrUnsupported            = errors.New("operation not supported by exchange")
	ErrLockHeld               = errors.New("lock already held")
	ErrDailyLossLimit         = errors.New("session loss limit reached")
	ErrLossStreak             = errors.New("consecutive loss limit reached")
)
