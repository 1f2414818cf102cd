package service

import "errors"

var (
	// ErrInvalidURL is returned when the original URL is not a valid
	// absolute HTTP or HTTPS URL.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidShortcode is returned when a requested shortcode is empty,
	// longer than 50 characters or contains characters outside [A-Za-z0-9_-].
	ErrInvalidShortcode = errors.New("invalid shortcode")
	// ErrInvalidValidity is returned when the validity is not a positive
	// number of minutes.
	ErrInvalidValidity = errors.New("invalid validity")
	// ErrLinkExpired is returned when a shortcode is resolved past its expiry.
	ErrLinkExpired = errors.New("short link has expired")
	// ErrGenerationExhausted is returned when random shortcode generation and
	// its deterministic fallback both collided. It indicates alphabet or
	// length exhaustion, not a user error.
	ErrGenerationExhausted = errors.New("unable to generate unique shortcode")
)
