package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind represents the category of failure
type Kind int

const (
	// KindStoreUnavailable indicates the persistent namespace could not be opened or read
	KindStoreUnavailable Kind = iota
	// KindConnectFailed indicates a bounded connect attempt ended without association
	KindConnectFailed
	// KindAuthFailed indicates a reset secret check was rejected
	KindAuthFailed
	// KindValidationFailed indicates invalid input (empty SSID, bad configuration value)
	KindValidationFailed
	// KindFeatureDisabled indicates the requested surface is switched off
	KindFeatureDisabled
)

// String returns a human-readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindStoreUnavailable:
		return "Store Unavailable"
	case KindConnectFailed:
		return "Connect Failed"
	case KindAuthFailed:
		return "Authentication Failed"
	case KindValidationFailed:
		return "Validation Failed"
	case KindFeatureDisabled:
		return "Feature Disabled"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// AuthReason distinguishes the two ways a secret check fails.
type AuthReason int

const (
	// AuthNone is used for non-auth errors
	AuthNone AuthReason = iota
	// SecretMissing means no candidate secret was submitted
	SecretMissing
	// SecretInvalid means the candidate did not match, or nothing is stored
	SecretInvalid
)

// Error is the single error type returned across the supervisor
type Error struct {
	Kind    Kind       // Category of failure
	Reason  AuthReason // Set only for KindAuthFailed
	Message string     // Human-readable message, safe to show to a portal user
	Err     error      // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the failure to the status code served by the portal.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidationFailed:
		return http.StatusBadRequest
	case KindAuthFailed:
		return http.StatusUnauthorized
	case KindFeatureDisabled:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// NewStoreUnavailable wraps a storage failure
func NewStoreUnavailable(message string, err error) *Error {
	return &Error{Kind: KindStoreUnavailable, Message: message, Err: err}
}

// NewConnectFailed wraps a radio association failure
func NewConnectFailed(message string, err error) *Error {
	return &Error{Kind: KindConnectFailed, Message: message, Err: err}
}

// NewSecretMissing is returned when no candidate secret was submitted
func NewSecretMissing() *Error {
	return &Error{Kind: KindAuthFailed, Reason: SecretMissing, Message: "Password required"}
}

// NewSecretInvalid is returned for a mismatch, and when no secret is stored
func NewSecretInvalid() *Error {
	return &Error{Kind: KindAuthFailed, Reason: SecretInvalid, Message: "Invalid password"}
}

// NewValidation creates a validation error
func NewValidation(message string) *Error {
	return &Error{Kind: KindValidationFailed, Message: message}
}

// NewValidationf creates a validation error with a formatted message
func NewValidationf(format string, args ...any) *Error {
	return NewValidation(fmt.Sprintf(format, args...))
}

// NewFeatureDisabled creates a feature-disabled error
func NewFeatureDisabled(message string) *Error {
	return &Error{Kind: KindFeatureDisabled, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

func is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsStoreUnavailable checks if an error is a store failure
func IsStoreUnavailable(err error) bool { return is(err, KindStoreUnavailable) }

// IsConnectFailed checks if an error is a connect failure
func IsConnectFailed(err error) bool { return is(err, KindConnectFailed) }

// IsAuthFailed checks if an error is an authentication failure
func IsAuthFailed(err error) bool { return is(err, KindAuthFailed) }

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool { return is(err, KindValidationFailed) }

// IsFeatureDisabled checks if an error is a disabled-feature error
func IsFeatureDisabled(err error) bool { return is(err, KindFeatureDisabled) }

// StatusCode returns the HTTP status for any error, 500 for foreign errors.
func StatusCode(err error) int {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// Message returns the user-facing message for any error.
func Message(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	return err.Error()
}
