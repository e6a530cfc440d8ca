// Package services defines the business logic for the relay: conversation
// assembly, message processing, and platform event handling. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

var (
	// ErrEmptyMessage is returned when an event text is empty after the
	// platform mention syntax has been stripped. The event is abandoned
	// silently: no message persisted, no reply sent.
	ErrEmptyMessage = errors.New("message empty after cleaning")

	// ErrMessageNotFound indicates that the requested message does not exist.
	ErrMessageNotFound = errors.New("message not found")
)
