package models

import (
	"errors"
	"fmt"
)

// Provider failure taxonomy. The orchestrator keys its retry and
// fallback policy off these sentinels via errors.Is.
var (
	// ErrRateLimited means the provider signalled throttling; the caller
	// must back off before retrying.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrUnsupportedRange means the requested window falls (partly)
	// outside the provider's retention; the caller should split and
	// route the uncovered portion elsewhere.
	ErrUnsupportedRange = errors.New("range outside provider retention")

	// ErrMalformed means a response (or record) could not be normalized.
	// Malformed records are dropped and counted, never silently kept.
	ErrMalformed = errors.New("malformed provider response")

	// ErrUnavailable covers network failures and timeouts; recoverable
	// by retry or fallback.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrAuthFailed is fatal: no credential can be retried around.
	ErrAuthFailed = errors.New("provider authentication failed")
)

// ProviderError wraps a taxonomy sentinel with provider context.
type ProviderError struct {
	Provider string
	Kind     error
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Kind)
}

func (e *ProviderError) Unwrap() error { return e.Kind }

// NewProviderError builds a taxonomy error for one provider.
func NewProviderError(provider string, kind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}
