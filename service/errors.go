// Package service implements the access-control and anomaly-detection core:
// audit log, file store, sharing engine, suspicious activity detector,
// account lock manager and admin rollups
package service

import "errors"

// Sentinel errors returned by the core. Handlers map these to HTTP status
// codes in one place, services never see status codes
var (
	ErrAccessDenied     = errors.New("access denied")
	ErrAccountLocked    = errors.New("account is locked")
	ErrNotOwner         = errors.New("requester does not own this file")
	ErrNotFound         = errors.New("not found")
	ErrUnknownRecipient = errors.New("recipient is not a registered user")
	ErrConflict         = errors.New("conflicting state")
	ErrPayloadTooLarge  = errors.New("payload exceeds the configured maximum")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnavailable      = errors.New("backend unavailable")
)
