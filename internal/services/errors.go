// Package services defines the business logic for jobs, contacts, keywords,
// and authentication. This file centralizes common service-level error values
// so that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

var (
	// ErrEmptySubmission is returned when a submitted payload carries
	// neither draft text nor guidance; there is nothing to revise.
	ErrEmptySubmission = errors.New("submission has no draft and no guidance")

	// ErrJobNotFound indicates that the polled job does not exist or is not
	// accessible to the current user. Foreign users' jobs deliberately look
	// identical to missing ones.
	ErrJobNotFound = errors.New("job not found")

	// ErrQueueUnavailable is returned when the task queue rejects an
	// enqueue (full or shut down); the request row already exists and will
	// surface as failed.
	ErrQueueUnavailable = errors.New("task queue unavailable")

	// ErrContactNotFound indicates that the requested contact does not
	// exist or is not accessible to the current user.
	ErrContactNotFound = errors.New("contact not found")

	// ErrUserNotFound indicates that the authenticated user has no row,
	// e.g. a token minted before the account was deleted.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidToken is returned when a presented access token fails
	// signature or claim validation.
	ErrInvalidToken = errors.New("invalid token")
)
