package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/ghgate/internal/log"
)

// Orchestrator composes identity verification and role resolution into a
// single authenticate step.
//
// The pipeline is strictly sequential with early exit: a failed verification
// never reaches the role resolver, and nothing here retries.
type Orchestrator struct {
	verifier Verifier
	resolver RoleResolver
	logger   *log.Logger
}

// NewOrchestrator creates an orchestrator. A nil logger uses the process default.
func NewOrchestrator(verifier Verifier, resolver RoleResolver, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Orchestrator{
		verifier: verifier,
		resolver: resolver,
		logger:   logger,
	}
}

// Authenticate verifies token, then checks that its owner holds one of the
// accepted roles in organization.
func (o *Orchestrator) Authenticate(ctx context.Context, token, organization string, accepted []Role) Result {
	logger := o.logger.With(
		"attempt_id", uuid.NewString(),
		"org", organization,
		"token_fp", Fingerprint(token),
	)
	logger.DebugContext(ctx, "authentication started")

	verified := o.verifier.Verify(ctx, token)
	if !verified.OK {
		logger.InfoContext(ctx, "token verification failed", "reason", string(verified.Reason), "code", verified.Code)
		return Result{Reason: verified.Reason, Code: verified.Code}
	}

	logger = logger.With("handle", verified.Identity.Handle)
	resolved := o.resolver.Resolve(ctx, token, organization, verified.Identity.Handle, accepted)
	if !resolved.OK {
		logger.InfoContext(ctx, "role resolution failed", "reason", string(resolved.Reason), "code", resolved.Code)
		return Result{Identity: verified.Identity, Reason: resolved.Reason, Code: resolved.Code}
	}
	if !resolved.HasAccess {
		attrs := []any{}
		if resolved.Membership != nil {
			attrs = append(attrs, "role", string(resolved.Membership.Role), "state", string(resolved.Membership.State))
		}
		logger.InfoContext(ctx, "membership does not grant access", attrs...)
		return Result{Identity: verified.Identity, Reason: ReasonInsufficientRole}
	}

	logger.InfoContext(ctx, "authenticated", "role", string(resolved.Membership.Role))
	return Result{
		OK:       true,
		Identity: verified.Identity,
		Role:     resolved.Membership.Role,
	}
}
