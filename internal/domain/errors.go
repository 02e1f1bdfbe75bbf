package domain

import "errors"

var (
	// ErrDimensionMismatch is returned when an embedding length disagrees
	// with the index configuration. The index is left unchanged.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyInput marks calls that received nothing to work on.
	// Operations return empty results instead of failing with it.
	ErrEmptyInput = errors.New("empty input")

	// ErrUpstreamUnavailable wraps failures and timeouts of the embedding
	// and text-generation services.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")

	// ErrRejected marks a request the upstream service refused as invalid
	// (4xx other than timeouts and rate limits). It is never retried.
	ErrRejected = errors.New("request rejected by upstream service")

	// ErrInvalidResponse marks a reply from an upstream service that could
	// not be used. It is never retried.
	ErrInvalidResponse = errors.New("invalid upstream response")

	// ErrNotFound is returned for unknown document ids.
	ErrNotFound = errors.New("document not found")
)
