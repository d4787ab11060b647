package storage

import "errors"

var (
	// ErrNotFound is returned when a record doesn't exist in the store.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateLead is returned when a lead with the same email exists.
	ErrDuplicateLead = errors.New("lead with this email already exists")

	// ErrInvalidLead is returned for leads without a name or email.
	ErrInvalidLead = errors.New("lead requires a name and an email")
)
