package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEventNotFound       = errors.New("event not found")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUpstreamUnavailable = errors.New("upstream content source unavailable")
	ErrUpstreamModel       = errors.New("language model upstream failure")
)

// UpstreamModelError carries the HTTP status and body of a failed
// language-model call.
type UpstreamModelError struct {
	Status int
	Body   string
}

func (e *UpstreamModelError) Error() string {
	return fmt.Sprintf("language model returned status %d: %s", e.Status, e.Body)
}

func (e *UpstreamModelError) Unwrap() error {
	return ErrUpstreamModel
}
