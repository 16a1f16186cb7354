package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/ghgate/internal/audit"
	"github.com/felixgeelhaar/ghgate/internal/auth"
	"github.com/felixgeelhaar/ghgate/internal/config"
	"github.com/felixgeelhaar/ghgate/internal/credstore"
	gerrors "github.com/felixgeelhaar/ghgate/internal/errors"
	"github.com/felixgeelhaar/ghgate/internal/github"
	"github.com/felixgeelhaar/ghgate/internal/log"
	"github.com/felixgeelhaar/ghgate/internal/tui"
	"github.com/felixgeelhaar/ghgate/internal/version"
)

const keyringService = "ghgate"

// app holds the collaborators one command invocation works with.
type app struct {
	cfg    config.Config
	logger *log.Logger
	client *github.Client
	styles tui.Styles

	// store and manager are nil until openSession.
	store   auth.Store
	manager *auth.Manager

	// audit is nil when the audit log is disabled or could not be opened.
	audit *audit.Logger
}

// Swapped out in tests.
var (
	openStore   = storeFor
	interactive = tui.ShouldPrompt
	confirm     = tui.PromptForConfirmation
)

func loadApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, gerrors.NewConfigInvalidError(cfgFile, err)
	}

	level, format := cfg.LogLevel, cfg.LogFormat
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}
	logger := log.New(log.Config{
		Level:          log.ParseLevel(level),
		Format:         log.ParseFormat(format),
		Output:         log.NewOutput(cmd.ErrOrStderr()),
		ServiceName:    "ghgate",
		ServiceVersion: version.Version,
	})
	log.SetDefaultLogger(logger)

	client, err := github.NewClient(github.Config{
		BaseURL:   cfg.APIURL,
		Timeout:   cfg.Timeout,
		UserAgent: version.GetInfo().UserAgent(),
	})
	if err != nil {
		return nil, gerrors.NewConfigInvalidError(cfgFile, err)
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		client: client,
		styles: tui.DefaultStyles(),
	}
	if cfg.AuditLog {
		a.audit, err = audit.NewLogger(cfg.AuditDir())
		if err != nil {
			logger.Warn("audit log unavailable", "dir", cfg.AuditDir(), "error", err)
		}
	}
	return a, nil
}

// openSession opens the secret backend and builds the session manager.
// Commands that never touch the session skip it, so a locked keychain
// does not block them.
func (a *app) openSession() error {
	if a.manager != nil {
		return nil
	}
	store, err := openStore(a.cfg)
	if err != nil {
		return gerrors.NewStoreError(false, err)
	}

	logger := a.logger
	manager := auth.NewManager(store, github.NewVerifier(a.client), github.NewResolver(a.client), logger)
	manager.Subscribe(func(s auth.Snapshot) {
		if !s.Authenticated {
			logger.Debug("session state changed", "authenticated", false)
			return
		}
		logger.Debug("session state changed",
			"authenticated", true,
			"handle", s.Handle,
			"org", s.Organization,
			"role", string(s.Role),
			"token_fp", s.Fingerprint,
		)
	})
	a.store, a.manager = store, manager
	return nil
}

func (a *app) close() {
	if a.manager != nil {
		a.manager.Close()
	}
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			a.logger.Warn("failed to close audit log", "error", err)
		}
	}
}

// record appends an audit event. Audit failures are logged and never fail
// the command.
func (a *app) record(ctx context.Context, event *audit.Event) {
	if a.audit == nil {
		return
	}
	if err := a.audit.Log(event); err != nil {
		a.logger.WarnContext(ctx, "failed to write audit event", "type", string(event.Type), "error", err)
	}
}

func storeFor(cfg config.Config) (auth.Store, error) {
	switch cfg.SecretBackend {
	case config.BackendMemory:
		return credstore.NewMemory(), nil
	case config.BackendFile:
		secrets, err := credstore.NewFileSecretBackend(cfg.SecretsPath(), filePassphrase())
		if err != nil {
			return nil, err
		}
		return credstore.New(secrets, credstore.NewFileKV(cfg.StatePath())), nil
	default:
		ring, err := credstore.OpenKeyring(keyringService)
		if err != nil {
			return nil, err
		}
		return credstore.New(ring, credstore.NewFileKV(cfg.StatePath())), nil
	}
}

// filePassphrase keys the file secret backend. Without GHGATE_PASSPHRASE the
// key is derived from the host and home directory, which only obfuscates
// the token at rest.
func filePassphrase() string {
	if p := os.Getenv(config.EnvPrefix + "PASSPHRASE"); p != "" {
		return p
	}
	host, _ := os.Hostname()
	home, _ := os.UserHomeDir()
	return "ghgate:" + host + ":" + home
}
