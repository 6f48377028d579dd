package api

import "fmt"

// AuthError is a credential rejection or an expired/invalid token.
type AuthError struct {
	Status int
	Reason string
}

func (e *AuthError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("authentication failed (status %d)", e.Status)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

// NetworkError is an unreachable backend: dial failure, timeout, or a
// server-side 5xx.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("backend unreachable: %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError is a response whose shape the client could not use.
type ValidationError struct {
	Endpoint string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: unexpected response: %s", e.Endpoint, e.Reason)
}
