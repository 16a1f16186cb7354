package cmd

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/ghgate/internal/auth"
	gerrors "github.com/felixgeelhaar/ghgate/internal/errors"
	"github.com/felixgeelhaar/ghgate/internal/tui"
)

// resultError turns a failed authentication into a user-facing error.
func resultError(result auth.Result, org string) error {
	switch result.Reason {
	case auth.ReasonInvalidToken:
		return gerrors.NewInvalidTokenError()
	case auth.ReasonInsufficientRole:
		return gerrors.NewInsufficientRoleError(org)
	case auth.ReasonInsufficientScope:
		return gerrors.NewInsufficientScopeError(org)
	case auth.ReasonNetwork:
		return gerrors.NewNetworkError(nil)
	case auth.ReasonUpstream:
		return gerrors.NewUpstreamError(result.Code)
	case auth.ReasonCancelled:
		return gerrors.NewCancelledError()
	default:
		return gerrors.New(gerrors.ErrCodeUpstream, "authentication failed: "+result.Reason.Describe())
	}
}

// loginError classifies the error return of Manager.Login.
func loginError(err error) error {
	switch {
	case errors.Is(err, auth.ErrOrganizationRequired):
		return gerrors.NewUsageError("an organization is required").
			WithSuggestion("Pass --org or set organization in the config file")
	case errors.Is(err, auth.ErrInvalidOrganization):
		return gerrors.NewUsageError(err.Error()).
			WithSuggestion("Organization names use letters, digits and single inner hyphens")
	case errors.Is(err, context.Canceled):
		return gerrors.NewCancelledError()
	default:
		return gerrors.NewStoreError(true, err)
	}
}

// promptError maps an aborted prompt to a cancellation.
func promptError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, tui.ErrAborted) || errors.Is(err, context.Canceled) {
		return gerrors.NewCancelledError()
	}
	return err
}
