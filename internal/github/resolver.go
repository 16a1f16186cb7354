package github

import (
	"context"
	"net/http"
	"strings"

	"github.com/felixgeelhaar/ghgate/internal/auth"
)

// Resolver looks up organization membership via
// GET /orgs/{org}/memberships/{username}.
type Resolver struct {
	client *Client
}

var _ auth.RoleResolver = (*Resolver)(nil)

// NewResolver creates a Resolver backed by client.
func NewResolver(client *Client) *Resolver {
	return &Resolver{client: client}
}

// Resolve reports whether handle holds an accepted, active role in org.
// A 404 means "not a member" and is a successful lookup without access.
// Malformed names are refused without a request, since both end up in the
// URL path.
func (r *Resolver) Resolve(ctx context.Context, token, org, handle string, accepted []auth.Role) auth.RoleResult {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.RoleResult{Reason: auth.ReasonInvalidToken, Code: auth.CodeUnauthorized}
	}
	if org == "" || handle == "" {
		return auth.RoleResult{OK: true}
	}
	if auth.ValidateOrganization(org) != nil || auth.ValidateHandle(handle) != nil {
		return auth.RoleResult{Reason: auth.ReasonUpstream, Code: auth.CodeInvalidName}
	}

	reqCtx, cancel := ensureTimeout(ctx, r.client.timeout)
	defer cancel()

	m, resp, err := r.client.api(token).Organizations.GetOrgMembership(reqCtx, handle, org)
	if err != nil {
		status := statusOf(resp)
		switch {
		case status == 0:
			reason, code := transportFailure(ctx)
			return auth.RoleResult{Reason: reason, Code: code}
		case rateLimited(err):
			return auth.RoleResult{Reason: auth.ReasonUpstream, Code: auth.StatusCode(status)}
		case status == http.StatusNotFound:
			return auth.RoleResult{OK: true}
		case status == http.StatusUnauthorized:
			return auth.RoleResult{Reason: auth.ReasonInvalidToken, Code: auth.CodeUnauthorized}
		case status == http.StatusForbidden:
			return auth.RoleResult{Reason: auth.ReasonInsufficientScope, Code: auth.CodeForbidden}
		default:
			return auth.RoleResult{Reason: auth.ReasonUpstream, Code: auth.StatusCode(status)}
		}
	}

	membership := &auth.Membership{
		Role:      auth.Role(strings.ToLower(m.GetRole())),
		State:     auth.MembershipState(strings.ToLower(m.GetState())),
		SourceURL: m.GetURL(),
	}
	return auth.RoleResult{
		OK:         true,
		HasAccess:  membership.Grants(accepted),
		Membership: membership,
	}
}
