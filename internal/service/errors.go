package service

import (
	"errors"
	"fmt"
)

// Error taxonomy of the optimization pipeline. Callers match with errors.Is.
var (
	// ErrEmptyCategory: the category has no products, statistics are undefined.
	ErrEmptyCategory = errors.New("category has no products")
	// ErrRecommendationUnavailable covers recommender call failure, timeout and
	// malformed or out-of-range output.
	ErrRecommendationUnavailable = errors.New("price recommendation unavailable")
	ErrProductNotFound           = errors.New("product not found")
	ErrUnauthorized              = errors.New("unauthorized")
	// ErrPersistence: the apply/record transaction failed and was rolled back.
	ErrPersistence = errors.New("failed to persist optimization outcome")
	// ErrOptimizationInProgress: another attempt holds the product lock.
	ErrOptimizationInProgress = errors.New("optimization already in progress for product")
	ErrInvalidSettings        = errors.New("invalid auto-adjust settings")
	ErrUsernameTaken          = errors.New("username already exists")
	ErrExternalIDTaken        = errors.New("a product with this external id already exists")
)

// AttemptError reports the state in which an optimization attempt failed.
type AttemptError struct {
	State AttemptState
	Err   error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("optimization failed while %s: %v", e.State, e.Err)
}

func (e *AttemptError) Unwrap() error { return e.Err }
