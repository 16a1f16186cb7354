// Package errors defines the user-facing error type of the ghgate CLI.
//
// Core packages report authentication outcomes as values; this type is only
// built at the command boundary, where a failure needs a stable code and
// something the user can do about it.
package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories. The prefix selects the process exit code.
const (
	// Authentication and authorization (AUTH-001 to AUTH-099)
	ErrCodeInvalidToken      ErrorCode = "AUTH-001"
	ErrCodeInsufficientRole  ErrorCode = "AUTH-002"
	ErrCodeInsufficientScope ErrorCode = "AUTH-003"
	ErrCodeNotSignedIn       ErrorCode = "AUTH-004"

	// Connectivity (NET-001 to NET-099)
	ErrCodeNetwork  ErrorCode = "NET-001"
	ErrCodeUpstream ErrorCode = "NET-002"

	// Credential storage (STORE-001 to STORE-099)
	ErrCodeStoreRead  ErrorCode = "STORE-001"
	ErrCodeStoreWrite ErrorCode = "STORE-002"

	// Configuration and input files
	ErrCodeConfigInvalid ErrorCode = "CONFIG-001"
	ErrCodeItemsInvalid  ErrorCode = "ITEMS-001"

	// Invocation
	ErrCodeUsage     ErrorCode = "USAGE-001"
	ErrCodeCancelled ErrorCode = "CANCEL-001"
)

const docsBase = "https://github.com/felixgeelhaar/ghgate#"

// GateError is an error with a code, remediation hints, and an optional cause.
type GateError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *GateError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			fmt.Fprintf(&b, "\n  • %s", suggestion)
		}
	}

	if e.DocsURL != "" {
		fmt.Fprintf(&b, "\n\nDocumentation: %s", e.DocsURL)
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *GateError) Unwrap() error {
	return e.Cause
}

// Category returns the code prefix, e.g. "AUTH" for "AUTH-001".
func (e *GateError) Category() string {
	code := string(e.Code)
	if i := strings.IndexByte(code, '-'); i >= 0 {
		return code[:i]
	}
	return code
}

// New creates a new GateError
func New(code ErrorCode, message string) *GateError {
	return &GateError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new GateError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *GateError {
	return &GateError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *GateError) WithSuggestion(suggestion string) *GateError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *GateError) WithSuggestions(suggestions ...string) *GateError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *GateError) WithDocs(url string) *GateError {
	e.DocsURL = url
	return e
}

// Common error constructors

// NewInvalidTokenError reports a token the API rejected.
func NewInvalidTokenError() *GateError {
	return New(ErrCodeInvalidToken, "GitHub rejected the personal access token").
		WithSuggestion("Check that the token was copied completely").
		WithSuggestion("Tokens can expire or be revoked; create a new one under Settings > Developer settings").
		WithDocs(docsBase + "tokens")
}

// NewInsufficientRoleError reports a valid user without an accepted, active membership.
func NewInsufficientRoleError(org string) *GateError {
	return New(ErrCodeInsufficientRole, fmt.Sprintf("not an active member of %q with an accepted role", org)).
		WithSuggestion("Accept any pending invitation to the organization").
		WithSuggestion("Ask an organization owner to grant you the member or admin role")
}

// NewInsufficientScopeError reports a token that cannot read memberships.
func NewInsufficientScopeError(org string) *GateError {
	return New(ErrCodeInsufficientScope, fmt.Sprintf("token cannot read memberships in %q", org)).
		WithSuggestion("Grant the token the read:org scope").
		WithSuggestion("For fine-grained tokens, allow read access to organization members").
		WithDocs(docsBase + "tokens")
}

// NewNotSignedInError reports a command that needs a session when none exists.
func NewNotSignedInError() *GateError {
	return New(ErrCodeNotSignedIn, "not signed in").
		WithSuggestion("Run 'ghgate login' first")
}

// NewNetworkError reports an unreachable API.
func NewNetworkError(cause error) *GateError {
	return Wrap(ErrCodeNetwork, "GitHub API could not be reached", cause).
		WithSuggestion("Check your network connection or proxy settings").
		WithSuggestion("Increase the request timeout with GHGATE_TIMEOUT")
}

// NewUpstreamError reports an unexpected API status.
func NewUpstreamError(status string) *GateError {
	return New(ErrCodeUpstream, fmt.Sprintf("GitHub API returned unexpected status %s", status)).
		WithSuggestion("Retry in a moment; see https://www.githubstatus.com for incidents")
}

// NewCancelledError reports an operation the user interrupted.
func NewCancelledError() *GateError {
	return New(ErrCodeCancelled, "operation cancelled")
}

// NewStoreError reports a failure of the credential store.
func NewStoreError(write bool, cause error) *GateError {
	code, msg := ErrCodeStoreRead, "failed to read stored credentials"
	if write {
		code, msg = ErrCodeStoreWrite, "failed to update stored credentials"
	}
	return Wrap(code, msg, cause).
		WithSuggestion("Check that the OS keychain is unlocked, or set secret_backend: file")
}

// NewConfigInvalidError reports an unreadable or invalid configuration file.
func NewConfigInvalidError(path string, cause error) *GateError {
	return Wrap(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", path), cause).
		WithSuggestion("Check the file syntax and field values").
		WithDocs(docsBase + "configuration")
}

// NewItemsInvalidError reports an unreadable or invalid item catalog.
func NewItemsInvalidError(path string, cause error) *GateError {
	return Wrap(ErrCodeItemsInvalid, fmt.Sprintf("failed to load items: %s", path), cause).
		WithSuggestion("Each item needs an id and a visibility of standard or privileged")
}

// NewUsageError reports invalid command usage.
func NewUsageError(message string) *GateError {
	return New(ErrCodeUsage, message)
}
