package service

import (
	"Lynx-Backend/internal/domain"
	"errors"
	"fmt"
)

// ErrGenerationExhausted means the bounded collision retry ceiling was hit
// while generating a short code. Fatal for the request and logged as a
// health signal: it indicates the alphabet/length space is running out.
var ErrGenerationExhausted = errors.New("short code generation exhausted")

// ErrFeatureUnavailable means the user's plan does not grant the capability
// the request needs.
var ErrFeatureUnavailable = errors.New("feature not available on current plan")

// ValidationError rejects malformed input. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// LimitExceededError is an expected, user-facing quota denial. Current and
// Limit are included so the caller can render them.
type LimitExceededError struct {
	Action  domain.Action
	Current int64
	Limit   int64
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s limit exceeded: %d of %d used this month", e.Action, e.Current, e.Limit)
}
