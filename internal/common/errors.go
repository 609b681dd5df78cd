// Package common defines shared constants and sentinel errors used across
// the server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Auth errors.
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenRevoked     = errors.New("token revoked")
	ErrUserNotFound     = errors.New("user not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrIdentityRejected = errors.New("identity rejected")

	// Credit ledger errors.
	ErrCreditRecordMissing = errors.New("credit record missing")
	ErrInsufficientCredits = errors.New("insufficient credits")

	// Dispatch errors.
	ErrInvalidRequest  = errors.New("invalid request")
	ErrSubjectNotFound = errors.New("subject not found")
	ErrSubjectNotReady = errors.New("subject not ready")
	ErrDispatchFailed  = errors.New("dispatch failed")

	// Webhook errors.
	ErrJobNotFound      = errors.New("job not found")
	ErrUnhandledStatus  = errors.New("unhandled status")
	ErrSignatureInvalid = errors.New("signature invalid")
)
