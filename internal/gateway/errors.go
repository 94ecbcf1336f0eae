package gateway

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is returned before any network call when no usable
// bearer token is available.
var ErrUnauthenticated = errors.New("not authenticated")

// ValidationError reports input rejected client-side, before any request
// is issued.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// GatewayError carries the machine-readable reason string from a non-2xx
// response. Detail is surfaced verbatim from the response body.
type GatewayError struct {
	StatusCode int
	Detail     string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Detail)
}

// TransportError wraps a network-level failure where no response was
// received at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// PurchaseError wraps any remote refusal of a purchase (insufficient
// balance, invalid parameters, provider exhausted).
type PurchaseError struct {
	Reason string
	Err    error
}

func (e *PurchaseError) Error() string {
	return fmt.Sprintf("purchase failed: %s", e.Reason)
}

func (e *PurchaseError) Unwrap() error {
	return e.Err
}

// AlreadyFinalizedError means the remote session was already completed or
// cancelled when cancellation was attempted. It is a business error, not a
// transport error.
type AlreadyFinalizedError struct {
	Detail string
}

func (e *AlreadyFinalizedError) Error() string {
	return fmt.Sprintf("cannot cancel: %s", e.Detail)
}
