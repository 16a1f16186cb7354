package auth

import "strconv"

// Reason classifies a failed verification, resolution, or authentication.
type Reason string

const (
	// ReasonInvalidToken means the API rejected the credential (401).
	ReasonInvalidToken Reason = "invalid-token"

	// ReasonUpstream means any other non-success status from the API.
	ReasonUpstream Reason = "upstream-error"

	// ReasonNetwork means the API could not be reached (DNS, timeout, reset).
	ReasonNetwork Reason = "network-unavailable"

	// ReasonInsufficientScope means the token cannot read organization
	// memberships (403 from the membership endpoint).
	ReasonInsufficientScope Reason = "insufficient-scope"

	// ReasonInsufficientRole means the token is fine but the user is not an
	// active member with an accepted role.
	ReasonInsufficientRole Reason = "insufficient-role"

	// ReasonCancelled means the caller abandoned the operation.
	ReasonCancelled Reason = "cancelled"
)

// Result codes carried alongside a Reason.
const (
	CodeUnauthorized = "401"
	CodeForbidden    = "403"
	CodeNetwork      = "NETWORK_ERROR"
	CodeCancelled    = "CANCELLED"
	CodeInvalidName  = "INVALID_NAME"
)

// StatusCode renders an HTTP status as a result code.
func StatusCode(status int) string {
	return strconv.Itoa(status)
}

// Describe returns a short human-readable explanation of a reason.
func (r Reason) Describe() string {
	switch r {
	case ReasonInvalidToken:
		return "the token is invalid or expired"
	case ReasonUpstream:
		return "the GitHub API returned an unexpected status"
	case ReasonNetwork:
		return "the GitHub API could not be reached"
	case ReasonInsufficientScope:
		return "the token lacks permission to read organization memberships"
	case ReasonInsufficientRole:
		return "the account is not an active member of the organization with an accepted role"
	case ReasonCancelled:
		return "the operation was cancelled"
	case "":
		return "no failure"
	default:
		return string(r)
	}
}
