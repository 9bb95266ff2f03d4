package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid executor context")

	// Storefront errors
	ErrOrderNotPending = errors.New("order is not pending")
	ErrOrderExpired    = errors.New("payment window has expired")
	ErrTrialNotAllowed = errors.New("trial period not available for this user")
	ErrProductInactive = errors.New("product is not available")
	ErrNotOrderOwner   = errors.New("order belongs to another user")
	ErrRateLimited     = errors.New("too many requests")
)
