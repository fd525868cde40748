// internal/service/intelligence/domain/errors.go
package domain

import "errors"

var (
	ErrVenueNotFound   = errors.New("venue not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrPersistence     = errors.New("failed to persist promotion")
	ErrLockNotAcquired = errors.New("could not acquire venue lock")
	ErrInvalidCriteria = errors.New("invalid targeting criteria")
)
