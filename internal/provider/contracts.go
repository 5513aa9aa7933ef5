package provider

import (
	"context"
	"fmt"
)

// Capability is a class of extraction task.
type Capability string

const (
	// CapabilityVision is image-based document understanding.
	CapabilityVision Capability = "vision"
	// CapabilityTextJSON is text-to-structured-JSON extraction.
	CapabilityTextJSON Capability = "text_json"
)

// FailureKind is the enumerated set of ways a provider call can fail. A
// client never returns partially-typed data; callers receive raw text or one
// of these kinds.
type FailureKind string

const (
	FailureRateLimited FailureKind = "rate_limited"
	FailureTimeout     FailureKind = "timeout"
	FailureUnavailable FailureKind = "unavailable"
	FailureProtocol    FailureKind = "protocol_error" // malformed transport-level response
)

// Error is a classified provider failure.
type Error struct {
	Provider string
	Kind     FailureKind
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Cause)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// Request is one extraction call. Exactly one of Text or ImageDataURL is set,
// matching the capability. Decoding is pinned deterministic (temperature 0)
// and bounded by MaxOutputTokens since this is structured extraction, not
// open generation.
type Request struct {
	Capability      Capability
	Prompt          string // system instruction including the target schema
	Text            string // bill text for text_json
	ImageDataURL    string // base64 data URL for vision
	MaxOutputTokens int
}

// Client is the uniform capability interface over one extraction backend.
type Client interface {
	ID() string
	Supports(c Capability) bool
	// Extract returns the raw model text, or an *Error with one of the four
	// failure kinds. It has no side effects beyond the outbound call.
	Extract(ctx context.Context, req Request) (string, error)
}
