package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/ghgate/internal/audit"
	"github.com/felixgeelhaar/ghgate/internal/auth"
	gerrors "github.com/felixgeelhaar/ghgate/internal/errors"
	"github.com/felixgeelhaar/ghgate/internal/tui"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with a GitHub personal access token",
	Long: `Verify a personal access token and check the owner's membership in an
organization. On success the session is stored and replaces any previous one.
A failed or interrupted login leaves the previous session untouched. In a
terminal, replacing a session for another organization asks first.

The token is taken from --token, then GH_TOKEN or GITHUB_TOKEN, then an
interactive prompt. Pass --token - to read it from stdin.

Examples:
  ghgate login --org acme
  echo "$TOKEN" | ghgate login --org acme --token -
  ghgate login --org acme --role admin`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session",
	Long: `Erase the stored token and session fields. Safe to run when no
session exists.`,
	Args: cobra.NoArgs,
	RunE: runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	Long: `Restore the stored session, re-verify its token with GitHub, and print
the account, organization, role and token fingerprint.

A stored session whose token no longer verifies is removed. The role is the
one recorded at login; sign in again to pick up a role change.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var (
	loginToken string
	loginOrg   string
	loginRoles []string
)

var tokenEnvVars = []string{"GH_TOKEN", "GITHUB_TOKEN"}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "personal access token, or - to read from stdin")
	loginCmd.Flags().StringVar(&loginOrg, "org", "", "organization to sign in to")
	loginCmd.Flags().StringSliceVar(&loginRoles, "role", nil, "accepted role (admin or member); repeatable")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
}

type loginAttempt struct {
	result auth.Result
	err    error
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.openSession(); err != nil {
		return err
	}
	ctx := cmd.Context()

	accepted, err := acceptedRoles(a)
	if err != nil {
		return err
	}
	org, err := resolveOrganization(ctx, a)
	if err != nil {
		return err
	}
	replace, err := confirmReplace(ctx, a, org)
	if err != nil {
		return err
	}
	if !replace {
		fmt.Fprintln(cmd.OutOrStdout(), a.styles.Muted.Render("Kept the existing session."))
		return nil
	}
	token, err := resolveToken(cmd)
	if err != nil {
		return err
	}

	attempt := func(ctx context.Context) loginAttempt {
		result, err := a.manager.Login(ctx, token, org, accepted)
		return loginAttempt{result: result, err: err}
	}

	var outcome loginAttempt
	if interactive() {
		outcome, err = tui.Spin(ctx, cmd.ErrOrStderr(), fmt.Sprintf("Verifying token for %s...", org), attempt)
		if err != nil {
			return err
		}
	} else {
		outcome = attempt(ctx)
	}

	a.record(ctx, loginEvent(outcome, org, token))
	if outcome.err != nil {
		return loginError(outcome.err)
	}
	if !outcome.result.OK {
		return resultError(outcome.result, org)
	}

	fmt.Fprintln(cmd.OutOrStdout(), a.styles.Success.Render(fmt.Sprintf("✓ Signed in to %s as %s (%s)",
		org, outcome.result.Identity.Handle, outcome.result.Role)))
	return nil
}

func loginEvent(outcome loginAttempt, org, token string) *audit.Event {
	result := outcome.result
	event := &audit.Event{
		Type:             audit.EventLogin,
		Actor:            result.Identity.Handle,
		Organization:     org,
		TokenFingerprint: auth.Fingerprint(token),
	}
	switch {
	case outcome.err != nil:
		event.Result = audit.ResultError
		event.Reason = outcome.err.Error()
	case result.OK:
		event.Result = audit.ResultSuccess
		event.Role = string(result.Role)
	case result.Reason == auth.ReasonCancelled:
		event.Result = audit.ResultCancelled
	default:
		event.Result = audit.ResultDenied
		event.Reason = string(result.Reason)
		event.Code = result.Code
	}
	return event
}

func acceptedRoles(a *app) ([]auth.Role, error) {
	if len(loginRoles) == 0 {
		return a.cfg.Roles()
	}
	roles := make([]auth.Role, 0, len(loginRoles))
	for _, s := range loginRoles {
		role, err := auth.ParseRole(s)
		if err != nil {
			return nil, gerrors.NewUsageError(err.Error())
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func resolveOrganization(ctx context.Context, a *app) (string, error) {
	if org := strings.TrimSpace(loginOrg); org != "" {
		return org, nil
	}
	if a.cfg.Organization != "" {
		return a.cfg.Organization, nil
	}
	if !interactive() {
		return "", loginError(auth.ErrOrganizationRequired)
	}
	org, err := tui.PromptForOrganization(ctx, "")
	if err != nil {
		return "", promptError(err)
	}
	return org, nil
}

// confirmReplace asks before a login would replace a stored session for a
// different organization. Without a terminal the login proceeds.
func confirmReplace(ctx context.Context, a *app, org string) (bool, error) {
	if !interactive() {
		return true, nil
	}
	stored, ok, err := a.store.Load(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "could not read stored session", "error", err)
		return true, nil
	}
	if !ok || strings.EqualFold(stored.Organization, org) {
		return true, nil
	}

	replace, err := confirm(ctx, fmt.Sprintf("Replace the session for %s in %s?", stored.Handle, stored.Organization), false)
	if err != nil {
		return false, promptError(err)
	}
	return replace, nil
}

func resolveToken(cmd *cobra.Command) (string, error) {
	switch loginToken {
	case "-":
		return readToken(cmd.InOrStdin())
	case "":
	default:
		return loginToken, nil
	}

	for _, key := range tokenEnvVars {
		if token := strings.TrimSpace(os.Getenv(key)); token != "" {
			return token, nil
		}
	}

	if !interactive() {
		return "", gerrors.NewUsageError("no token provided").
			WithSuggestion("Pass --token, pipe it with --token -, or set GH_TOKEN")
	}
	token, err := tui.PromptForToken(cmd.Context())
	if err != nil {
		return "", promptError(err)
	}
	return token, nil
}

func readToken(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read token from stdin: %w", err)
		}
		return "", gerrors.NewUsageError("no token on stdin")
	}
	token := strings.TrimSpace(scanner.Text())
	if token == "" {
		return "", gerrors.NewUsageError("no token on stdin")
	}
	return token, nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.openSession(); err != nil {
		return err
	}
	ctx := cmd.Context()

	previous, had, err := a.store.Load(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "could not read stored session before logout", "error", err)
	}

	if err := a.manager.Logout(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return gerrors.NewCancelledError()
		}
		return gerrors.NewStoreError(true, err)
	}

	a.record(ctx, &audit.Event{
		Type:         audit.EventLogout,
		Actor:        previous.Handle,
		Organization: previous.Organization,
		Result:       audit.ResultSuccess,
	})

	out := cmd.OutOrStdout()
	if !had {
		fmt.Fprintln(out, a.styles.Muted.Render("No stored session."))
		return nil
	}
	fmt.Fprintln(out, a.styles.Success.Render(fmt.Sprintf("✓ Signed out %s from %s", previous.Handle, previous.Organization)))
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.openSession(); err != nil {
		return err
	}

	snapshot, err := restoreSession(cmd, a)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tui.RenderStatus(snapshot, a.styles))
	return nil
}

// restoreSession starts the manager and reports a purged session on stderr.
func restoreSession(cmd *cobra.Command, a *app) (auth.Snapshot, error) {
	ctx := cmd.Context()
	outcome, err := a.manager.Start(ctx)
	if err != nil {
		return auth.Snapshot{}, gerrors.NewStoreError(outcome.State == auth.BootInvalid, err)
	}

	switch outcome.Reason {
	case "":
		if outcome.State == auth.BootActive {
			s := outcome.Session
			a.record(ctx, &audit.Event{
				Type:             audit.EventRestore,
				Actor:            s.Handle,
				Organization:     s.Organization,
				Role:             string(s.Role),
				Result:           audit.ResultSuccess,
				TokenFingerprint: auth.Fingerprint(s.Token),
			})
		}
	case auth.ReasonCancelled:
		return auth.Snapshot{}, gerrors.NewCancelledError()
	default:
		a.record(ctx, &audit.Event{
			Type:   audit.EventRestore,
			Result: audit.ResultPurged,
			Reason: string(outcome.Reason),
			Code:   outcome.Code,
		})
		fmt.Fprintln(cmd.ErrOrStderr(), a.styles.Warning.Render(
			fmt.Sprintf("Stored session was removed: %s.", outcome.Reason.Describe())))
	}
	return a.manager.Current(), nil
}
