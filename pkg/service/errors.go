package service

import "errors"

var (
	ErrInvalidURL           = errors.New("invalid url: must be an absolute http or https url")
	ErrInvalidAlias         = errors.New("invalid alias: must be 3-20 characters of letters, digits, _ or -")
	ErrAliasTaken           = errors.New("alias already taken")
	ErrAllocationExhausted  = errors.New("failed to generate unique short code")
	ErrRetryAllocation      = errors.New("short code claimed by a concurrent request")
	ErrNotFound             = errors.New("not found")
	ErrMissingRequiredField = errors.New("missing title or content")
	ErrEmptySlug            = errors.New("empty slug")
)
