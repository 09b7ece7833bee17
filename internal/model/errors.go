package model

import "errors"

// Common errors used across the application
var (
	// Profile errors
	ErrProfileNotFound = errors.New("profile not found")
	ErrUsernameTaken   = errors.New("username already taken")

	// Presence errors
	ErrAlreadyRegistered = errors.New("connection already registered")
	ErrNotRegistered     = errors.New("connection not registered")

	// Event payload errors
	ErrMalformedEvent    = errors.New("malformed event")
	ErrUnknownEventType  = errors.New("unknown event type")
	ErrInvalidFacing     = errors.New("invalid facing")
	ErrInvalidAppearance = errors.New("invalid appearance")
)
