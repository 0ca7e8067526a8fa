// internal/services/errors.go
package services

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds returned by the services. Callers match them with errors.Is;
// the wrapped message carries the detail.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrAlreadyUsed    = errors.New("payment code already used")
	ErrExpired        = errors.New("payment code expired")
	ErrMismatch       = errors.New("payment code does not match item")
	ErrAlreadyOwned   = errors.New("item already owned")
	ErrForbidden      = errors.New("forbidden")
	ErrQuotaExceeded  = errors.New("download quota exceeded")

	ErrItemNotFound     = fmt.Errorf("%w: item", ErrNotFound)
	ErrCodeNotFound     = fmt.Errorf("%w: payment code", ErrNotFound)
	ErrFileNotFound     = fmt.Errorf("%w: file", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("%w: user", ErrNotFound)
	ErrFavoriteNotFound = fmt.Errorf("%w: favorite", ErrNotFound)

	ErrAlreadyFavorited = fmt.Errorf("%w: item already in favorites", ErrInvalidRequest)

	ErrEntitlementRequired = fmt.Errorf("%w: no entitlement for item", ErrForbidden)

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrUserExists         = errors.New("user already exists")
	ErrTokenRevoked       = errors.New("token has been revoked")
)

// clock is embedded by services that compare against the current time.
type clock struct {
	now func() time.Time
}

func (c *clock) Now() time.Time {
	if c.now == nil {
		return time.Now().UTC()
	}
	return c.now().UTC()
}

// SetClock replaces the time source. Used by tests.
func (c *clock) SetClock(now func() time.Time) {
	c.now = now
}
