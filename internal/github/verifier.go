package github

import (
	"context"
	"net/http"
	"strings"

	"github.com/felixgeelhaar/ghgate/internal/auth"
)

// Verifier checks a token against GET /user.
type Verifier struct {
	client *Client
}

var _ auth.Verifier = (*Verifier)(nil)

// NewVerifier creates a Verifier backed by client.
func NewVerifier(client *Client) *Verifier {
	return &Verifier{client: client}
}

// Verify resolves the identity behind token.
func (v *Verifier) Verify(ctx context.Context, token string) auth.VerifyResult {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.VerifyResult{Reason: auth.ReasonInvalidToken, Code: auth.CodeUnauthorized}
	}

	reqCtx, cancel := ensureTimeout(ctx, v.client.timeout)
	defer cancel()

	user, resp, err := v.client.api(token).Users.Get(reqCtx, "")
	if err != nil {
		status := statusOf(resp)
		switch {
		case status == 0:
			reason, code := transportFailure(ctx)
			return auth.VerifyResult{Reason: reason, Code: code}
		case status == http.StatusUnauthorized && !rateLimited(err):
			return auth.VerifyResult{Reason: auth.ReasonInvalidToken, Code: auth.CodeUnauthorized}
		default:
			return auth.VerifyResult{Reason: auth.ReasonUpstream, Code: auth.StatusCode(status)}
		}
	}

	if user.GetLogin() == "" {
		return auth.VerifyResult{Reason: auth.ReasonUpstream, Code: auth.StatusCode(statusOf(resp))}
	}

	return auth.VerifyResult{
		OK: true,
		Identity: auth.Identity{
			Handle:      user.GetLogin(),
			DisplayName: user.GetName(),
			Email:       user.GetEmail(),
		},
		Scopes: parseScopes(resp.Header.Get("X-OAuth-Scopes")),
	}
}

// parseScopes splits the classic-token scope header. Fine-grained tokens
// send no header and yield nil.
func parseScopes(header string) []string {
	var scopes []string
	for _, s := range strings.Split(header, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}
