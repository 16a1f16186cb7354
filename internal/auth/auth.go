// Package auth turns a GitHub personal access token into a verified session.
//
// The package composes three steps:
//   - identity verification (is the token valid, and whose is it)
//   - role resolution (is that user an active admin/member of the organization)
//   - persistence and restore of the resulting Session
//
// Network lookups are abstracted behind Verifier and RoleResolver so the
// orchestration logic can be exercised without a live GitHub API. All
// outcomes are returned as result values; callers branch on Reason rather
// than on error strings.
package auth

import (
	"context"
	"fmt"
	"strings"
)

// Role is a membership's privilege level within an organization.
type Role string

const (
	// RoleNone is the absent role (no session).
	RoleNone Role = ""
	// RoleAdmin is an organization owner/administrator.
	RoleAdmin Role = "admin"
	// RoleMember is a regular organization member.
	RoleMember Role = "member"
)

// Valid reports whether r is one of the supported roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// ParseRole parses a role name. Unknown names are rejected.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if !role.Valid() {
		return RoleNone, fmt.Errorf("unknown role %q (want admin or member)", s)
	}
	return role, nil
}

// DefaultAcceptedRoles is the role set used when none is configured.
func DefaultAcceptedRoles() []Role {
	return []Role{RoleAdmin, RoleMember}
}

// MembershipState is the state of an organization membership.
type MembershipState string

const (
	StateActive  MembershipState = "active"
	StatePending MembershipState = "pending"
)

// Identity is the verified owner of a token.
type Identity struct {
	// Handle is the account's unique login name. It is the only field persisted.
	Handle string

	DisplayName string
	Email       string
}

// Membership is a user's standing within one organization.
type Membership struct {
	Role      Role
	State     MembershipState
	SourceURL string
}

// Grants reports whether the membership is active and its role is one of
// accepted. Roles outside admin/member never grant access.
func (m Membership) Grants(accepted []Role) bool {
	if m.State != StateActive || !m.Role.Valid() {
		return false
	}
	for _, r := range accepted {
		if r == m.Role {
			return true
		}
	}
	return false
}

// Session is the durable record of who is signed in, where, and with which role.
//
// Token is present iff Handle is present; a Role implies both Handle and
// Organization.
type Session struct {
	Token        string
	Organization string
	Handle       string
	Role         Role
}

// Complete reports whether every field required for a restorable session is set.
func (s Session) Complete() bool {
	return s.Token != "" && s.Handle != "" && s.Organization != "" && s.Role.Valid()
}

// VerifyResult is the outcome of an identity lookup.
type VerifyResult struct {
	OK       bool
	Identity Identity

	// Scopes holds the classic-token scopes reported by the API, if any.
	// It is informational only.
	Scopes []string

	Reason Reason
	Code   string
}

// RoleResult is the outcome of a membership lookup.
type RoleResult struct {
	OK         bool
	HasAccess  bool
	Membership *Membership

	Reason Reason
	Code   string
}

// Result is the outcome of Authenticate.
type Result struct {
	OK bool

	// Identity is set once the token verified, including for results that
	// then failed on membership.
	Identity Identity
	Role     Role

	Reason Reason
	Code   string
}

// Session builds the Session to persist for a successful result.
// It returns false for failed results so nothing but an accepted
// authentication can produce a storable session.
func (r Result) Session(token, organization string) (Session, bool) {
	if !r.OK {
		return Session{}, false
	}
	return Session{
		Token:        token,
		Organization: organization,
		Handle:       r.Identity.Handle,
		Role:         r.Role,
	}, true
}

// Verifier checks a token against the identity endpoint.
type Verifier interface {
	Verify(ctx context.Context, token string) VerifyResult
}

// RoleResolver looks up a user's membership in an organization.
type RoleResolver interface {
	Resolve(ctx context.Context, token, organization, handle string, accepted []Role) RoleResult
}

// Store persists a single Session.
//
// Implementations must make Clear atomic from the caller's point of view:
// after it returns, Load reports absent and IsActive reports false.
type Store interface {
	Save(ctx context.Context, session Session) error
	Load(ctx context.Context) (Session, bool, error)
	Clear(ctx context.Context) error
	IsActive(ctx context.Context) (bool, error)
}
