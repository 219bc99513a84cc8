package domain

import "errors"

var (
	// ErrStoreUnavailable wraps any failed read or write against a backing store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInvalidSubmission is returned for a blank user/quiz id or a score outside [0,100].
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrUserNotFound indicates no user matches the given id.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when registering a duplicate id or email.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidUser indicates missing registration fields.
	ErrInvalidUser = errors.New("invalid user")
	// ErrInvalidRole indicates a role other than user or admin.
	ErrInvalidRole = errors.New("invalid role")
)
