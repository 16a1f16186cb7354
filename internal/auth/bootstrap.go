package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/ghgate/internal/log"
)

// BootState is a state of the startup restore state machine.
type BootState string

const (
	BootNoSession BootState = "no-session"
	BootRestoring BootState = "restoring"
	BootActive    BootState = "active"
	BootInvalid   BootState = "invalid"
)

// BootOutcome is where the bootstrapper settled.
type BootOutcome struct {
	State   BootState
	Session Session

	// Reason is set when a stored session was rejected or the restore was abandoned.
	Reason Reason
	Code   string
}

// Bootstrapper restores a persisted session at process start.
//
// The stored role is trusted as-is; only the token is re-verified. Any
// verification failure, including an unreachable API, purges the store.
// A cancelled restore settles in no-session but leaves the store intact,
// since cancellation says nothing about the token.
type Bootstrapper struct {
	store    Store
	verifier Verifier
	logger   *log.Logger
}

// NewBootstrapper creates a bootstrapper. A nil logger uses the process default.
func NewBootstrapper(store Store, verifier Verifier, logger *log.Logger) *Bootstrapper {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Bootstrapper{store: store, verifier: verifier, logger: logger}
}

// Restore runs the state machine once. The returned error is reserved for
// storage failures; verification outcomes are reported in BootOutcome.
func (b *Bootstrapper) Restore(ctx context.Context) (BootOutcome, error) {
	active, err := b.store.IsActive(ctx)
	if err != nil {
		return BootOutcome{State: BootNoSession}, fmt.Errorf("check stored session: %w", err)
	}
	if !active {
		b.logger.DebugContext(ctx, "no stored session")
		return BootOutcome{State: BootNoSession}, nil
	}

	// Restoring
	stored, ok, err := b.store.Load(ctx)
	if err != nil {
		return BootOutcome{State: BootNoSession}, fmt.Errorf("load stored session: %w", err)
	}
	if !ok {
		return BootOutcome{State: BootNoSession}, nil
	}
	if !stored.Complete() {
		b.logger.WarnContext(ctx, "stored session is incomplete, purging")
		if err := b.store.Clear(ctx); err != nil {
			return BootOutcome{State: BootInvalid}, fmt.Errorf("purge incomplete session: %w", err)
		}
		return BootOutcome{State: BootNoSession}, nil
	}

	logger := b.logger.With("handle", stored.Handle, "org", stored.Organization, "token_fp", Fingerprint(stored.Token))
	verified := b.verifier.Verify(ctx, stored.Token)

	if verified.Reason == ReasonCancelled || (!verified.OK && errors.Is(ctx.Err(), context.Canceled)) {
		logger.InfoContext(ctx, "session restore cancelled")
		return BootOutcome{State: BootNoSession, Reason: ReasonCancelled, Code: CodeCancelled}, nil
	}

	if !verified.OK {
		logger.WarnContext(ctx, "stored session rejected", "reason", string(verified.Reason), "code", verified.Code)
		// Invalid
		if err := b.store.Clear(ctx); err != nil {
			return BootOutcome{State: BootInvalid, Reason: verified.Reason, Code: verified.Code},
				fmt.Errorf("purge rejected session: %w", err)
		}
		return BootOutcome{State: BootNoSession, Reason: verified.Reason, Code: verified.Code}, nil
	}

	if verified.Identity.Handle != stored.Handle {
		// The token now belongs to someone else; the stored role is meaningless.
		logger.WarnContext(ctx, "stored token resolves to a different account", "verified_handle", verified.Identity.Handle)
		if err := b.store.Clear(ctx); err != nil {
			return BootOutcome{State: BootInvalid, Reason: ReasonInvalidToken}, fmt.Errorf("purge mismatched session: %w", err)
		}
		return BootOutcome{State: BootNoSession, Reason: ReasonInvalidToken, Code: CodeUnauthorized}, nil
	}

	logger.InfoContext(ctx, "session restored", "role", string(stored.Role))
	return BootOutcome{State: BootActive, Session: stored}, nil
}
