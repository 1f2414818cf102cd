package models

import "time"

// URLMapping represents a shortcode-to-URL mapping and its associated metadata.
type URLMapping struct {
	// ID is the unique identifier for the mapping record.
	ID int64
	// Shortcode is the short code associated with the original URL.
	Shortcode string
	// OriginalURL is the original, full-length URL that the shortcode points to.
	OriginalURL string
	// ClickCount tracks the number of times the shortened URL has been resolved.
	ClickCount int64
	// CreatedAt is the timestamp indicating when the mapping was created.
	CreatedAt time.Time
	// ExpiresAt is the timestamp after which the mapping can no longer be resolved.
	ExpiresAt time.Time
}

// Click represents a single logged visit to a shortened URL.
// Referrer, UserAgent and IPAddress are passed through from the triggering
// request unvalidated; empty means the request did not carry the value.
type Click struct {
	ID        int64
	Shortcode string
	ClickedAt time.Time
	Referrer  string
	UserAgent string
	IPAddress string
	// Location is a coarse placeholder derived from IPAddress,
	// not a real geolocation lookup.
	Location string
}

// ClickMetadata carries the request attributes forwarded into click recording.
type ClickMetadata struct {
	Referrer  string
	UserAgent string
	IPAddress string
}

// URLStats is the full statistics report for a shortened URL: the mapping
// itself plus every recorded click. TotalClicks comes from the mapping's
// counter, not from len(Clicks); the two may diverge when click recording
// fails after a successful resolve.
type URLStats struct {
	Mapping URLMapping
	Clicks  []Click
}
