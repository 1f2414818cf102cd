package database

import "errors"

var (
	// ErrShortcodeExists is returned when an attempt is made to create
	// a new mapping with a shortcode that already exists.
	ErrShortcodeExists = errors.New("shortcode exists")
	// ErrURLNotFound is returned when an attempt is made to retrieve
	// a mapping using a shortcode that doesn't exist.
	ErrURLNotFound = errors.New("url not found")
)
