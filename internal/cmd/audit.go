package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/ghgate/internal/audit"
	gerrors "github.com/felixgeelhaar/ghgate/internal/errors"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent session events",
	Long: `Print the session audit trail: logins, logouts and startup restores,
including rejected attempts and purged sessions. Tokens appear only as
fingerprints.

Events are kept as daily JSON-lines files under $GHGATE_HOME/audit.
Disable recording with audit_log: false or GHGATE_AUDIT_LOG=false.

Examples:
  ghgate audit
  ghgate audit --type login --since 24h
  ghgate audit --actor alice --limit 5`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

var (
	auditLimit int
	auditType  string
	auditActor string
	auditSince time.Duration
)

func init() {
	auditCmd.Flags().IntVarP(&auditLimit, "limit", "n", 20, "maximum number of events to show (0 for all)")
	auditCmd.Flags().StringVar(&auditType, "type", "", "event type: login, logout or restore")
	auditCmd.Flags().StringVar(&auditActor, "actor", "", "only events for this GitHub handle")
	auditCmd.Flags().DurationVar(&auditSince, "since", 0, "only events newer than this duration (e.g. 24h)")

	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if a.audit == nil {
		return gerrors.NewUsageError("audit log is disabled").
			WithSuggestion("Set audit_log: true in the config file")
	}

	filter := audit.Filter{Actor: auditActor, Limit: auditLimit}
	if auditType != "" {
		t, err := parseEventType(auditType)
		if err != nil {
			return err
		}
		filter.Type = t
	}
	if auditSince > 0 {
		filter.Since = time.Now().Add(-auditSince)
	}

	events, err := a.audit.Query(filter)
	if err != nil {
		return gerrors.NewStoreError(false, err)
	}

	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(out, a.styles.Muted.Render("No audit events."))
		return nil
	}
	for _, e := range events {
		fmt.Fprintln(out, a.formatEvent(e))
	}
	return nil
}

func parseEventType(s string) (audit.EventType, error) {
	switch strings.ToLower(strings.TrimPrefix(s, "session.")) {
	case "login":
		return audit.EventLogin, nil
	case "logout":
		return audit.EventLogout, nil
	case "restore":
		return audit.EventRestore, nil
	}
	return "", gerrors.NewUsageError(fmt.Sprintf("unknown event type %q (want login, logout or restore)", s))
}

func (a *app) formatEvent(e *audit.Event) string {
	result := a.styles.Muted.Render(e.Result)
	switch e.Result {
	case audit.ResultSuccess:
		result = a.styles.Success.Render(e.Result)
	case audit.ResultDenied, audit.ResultPurged, audit.ResultError:
		result = a.styles.Error.Render(e.Result)
	}

	who := e.Actor
	if who == "" {
		who = "-"
	}
	if e.Organization != "" {
		who += "@" + e.Organization
	}
	if e.Role != "" {
		who += " (" + e.Role + ")"
	}

	line := fmt.Sprintf("%s  %-15s %s  %s", e.Timestamp.Local().Format(time.DateTime), e.Type, result, who)
	if e.Reason != "" {
		line += "  " + a.styles.Muted.Render(e.Reason)
	}
	return line
}
