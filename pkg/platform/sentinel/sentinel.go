// Package sentinel holds infrastructure error values shared by stores.
//
// Stores wrap these so callers can branch on the failure class with
// errors.Is without importing a driver. Input validation belongs in
// pkg/domain-errors instead.
package sentinel

import "errors"

var (
	// ErrInvalidState marks a call the store cannot honour as configured,
	// such as a non-positive TTL.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnavailable marks a backend that could not be reached.
	ErrUnavailable = errors.New("unavailable")
)
