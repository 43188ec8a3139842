package domain

import (
	"errors"
	"fmt"
)

// Kind is one of the error kinds enumerated in the error-handling design:
// a small closed set the rest of the system switches on, instead of
// inspecting provider-specific exception types.
type Kind string

const (
	KindInvalidTenant        Kind = "invalid_tenant"
	KindMissingTenantFilter  Kind = "missing_tenant_filter"
	KindTenantLeak           Kind = "tenant_leak"
	KindRateLimited          Kind = "rate_limited"
	KindTransientNetwork     Kind = "transient_network"
	KindPermanentClientError Kind = "permanent_client_error"
	KindPermanentServerError Kind = "permanent_server_error"
	KindAuthFailure          Kind = "auth_failure"
	KindLLMUnavailable       Kind = "llm_unavailable"
	KindQualityBelowThresh   Kind = "quality_below_threshold"
	KindUpstreamTimeout      Kind = "upstream_timeout"
	KindValidationFailure    Kind = "validation_failure"
	KindCancelled            Kind = "cancelled"
	KindInvalidQuery         Kind = "invalid_query"
)

// Error is the typed error carried across component boundaries. It wraps an
// optional cause so errors.Is/errors.As keep working through the stack.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, domain.NewError(KindX, "")) match on Kind alone,
// regardless of message or cause.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// NewError builds a Kind-tagged error with a formatted message.
func NewError(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind to an underlying cause, preserving it for errors.Is/As.
func Wrap(kind Kind, cause error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind from err, or "" if err isn't a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Retryable reports whether the error kind is one the caller should retry
// locally (§7: RateLimited, TransientNetwork, UpstreamTimeout).
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindTransientNetwork, KindUpstreamTimeout:
		return true
	default:
		return false
	}
}
