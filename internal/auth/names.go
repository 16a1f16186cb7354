package auth

import (
	"errors"
	"fmt"
	"regexp"
)

// maxNameLength is GitHub's limit for user and organization logins.
const maxNameLength = 39

var (
	// ErrInvalidOrganization is returned for an organization name GitHub
	// would never issue, before any request is made.
	ErrInvalidOrganization = errors.New("invalid organization name")

	// ErrInvalidHandle is the handle counterpart of ErrInvalidOrganization.
	ErrInvalidHandle = errors.New("invalid user handle")
)

var (
	orgPattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?$`)

	// Enterprise managed users carry an _shortcode suffix.
	handlePattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9_-]*[A-Za-z0-9])?$`)
)

// ValidateOrganization reports whether org is a well-formed GitHub
// organization login. Names reach the API as path segments, so anything
// outside letters, digits and inner hyphens is refused.
func ValidateOrganization(org string) error {
	if len(org) > maxNameLength || !orgPattern.MatchString(org) {
		return fmt.Errorf("%w: %q", ErrInvalidOrganization, org)
	}
	return nil
}

// ValidateHandle reports whether handle is a well-formed GitHub login.
func ValidateHandle(handle string) error {
	if len(handle) > maxNameLength || !handlePattern.MatchString(handle) {
		return fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
	}
	return nil
}
