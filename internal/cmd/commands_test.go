package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/ghgate/internal/auth"
	"github.com/felixgeelhaar/ghgate/internal/config"
	"github.com/felixgeelhaar/ghgate/internal/credstore"
	"github.com/felixgeelhaar/ghgate/internal/exitcode"
	"github.com/felixgeelhaar/ghgate/internal/log"
	"github.com/felixgeelhaar/ghgate/internal/tui"
)

const catalogYAML = `
- id: repos
  label: Repositories
  children:
    - id: code
      label: Code
    - id: settings
      label: Settings
      visibility: privileged
- id: billing
  label: Billing
  visibility: privileged
`

// testEnv points the CLI at a fake GitHub API and a shared in-memory store.
type testEnv struct {
	store    *credstore.Store
	catalog  string
	requests atomic.Int32
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{store: credstore.NewMemory()}

	users := map[string]string{"T1": "alice", "T2": "bob", "T3": "carol"}
	memberships := map[string]string{
		"alice": `{"role":"admin","state":"active"}`,
		"bob":   `{"role":"member","state":"pending"}`,
		"carol": `{"role":"member","state":"active"}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		login, ok := users[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"login":"` + login + `"}`))
	})
	mux.HandleFunc("/orgs/acme/memberships/", func(w http.ResponseWriter, r *http.Request) {
		body, ok := memberships[strings.TrimPrefix(r.URL.Path, "/orgs/acme/memberships/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.requests.Add(1)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	home := t.TempDir()
	env.catalog = filepath.Join(home, "items.yaml")
	require.NoError(t, os.WriteFile(env.catalog, []byte(catalogYAML), 0o600))

	t.Setenv("GHGATE_HOME", home)
	t.Setenv("GHGATE_API_URL", server.URL)
	t.Setenv("GHGATE_SECRET_BACKEND", config.BackendMemory)
	t.Setenv("GHGATE_ORG", "")
	t.Setenv("GHGATE_AUDIT_LOG", "")
	t.Setenv("GH_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")

	prevStore, prevInteractive, prevConfirm := openStore, interactive, confirm
	openStore = func(config.Config) (auth.Store, error) { return env.store, nil }
	interactive = func() bool { return false }
	t.Cleanup(func() {
		openStore, interactive, confirm = prevStore, prevInteractive, prevConfirm
	})
	return env
}

// run executes the root command with args and returns stdout and stderr.
func (e *testEnv) run(t *testing.T, stdin io.Reader, args ...string) (string, string, error) {
	t.Helper()

	cfgFile, logLevel, logFormat = "", "", ""
	loginToken, loginOrg, loginRoles = "", "", nil
	itemsFile = ""
	versionJSON, versionVerbose = false, false
	auditLimit, auditType, auditActor, auditSince = 20, "", "", 0

	var stdout, stderr bytes.Buffer
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestAdminSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run(t, nil, "login", "--token", "T1", "--org", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in to acme as alice (admin)")

	out, _, err = env.run(t, nil, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "acme")
	assert.Contains(t, out, auth.Fingerprint("T1"))
	assert.NotContains(t, out, "T1\n")

	out, _, err = env.run(t, nil, "items", "--file", env.catalog)
	require.NoError(t, err)
	assert.Contains(t, out, "Settings")
	assert.Contains(t, out, "Billing")

	out, _, err = env.run(t, nil, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out alice from acme")

	out, _, err = env.run(t, nil, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")

	active, err := env.store.IsActive(context.Background())
	require.NoError(t, err)
	assert.False(t, active)
}

func TestMemberSeesStandardItemsOnly(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run(t, nil, "login", "--token", "T3", "--org", "acme")
	require.NoError(t, err)

	out, _, err := env.run(t, nil, "items", "--file", env.catalog)
	require.NoError(t, err)
	assert.Contains(t, out, "Repositories")
	assert.Contains(t, out, "Code")
	assert.NotContains(t, out, "Settings")
	assert.NotContains(t, out, "Billing")
}

func TestLoginFailureKeepsPreviousSession(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run(t, nil, "login", "--token", "T1", "--org", "acme")
	require.NoError(t, err)

	tests := []struct {
		name     string
		args     []string
		wantExit int
	}{
		{"pending member", []string{"login", "--token", "T2", "--org", "acme"}, exitcode.AuthError},
		{"bad token", []string{"login", "--token", "nope", "--org", "acme"}, exitcode.AuthError},
		{"role not accepted", []string{"login", "--token", "T3", "--org", "acme", "--role", "admin"}, exitcode.AuthError},
		{"unknown role flag", []string{"login", "--token", "T3", "--org", "acme", "--role", "owner"}, exitcode.UsageError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.run(t, nil, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, exitcode.DetermineExitCode(err))

			saved, ok, err := env.store.Load(context.Background())
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "alice", saved.Handle)
			assert.Equal(t, "T1", saved.Token)
		})
	}
}

func TestLoginTokenSources(t *testing.T) {
	t.Run("stdin", func(t *testing.T) {
		env := newTestEnv(t)
		out, _, err := env.run(t, strings.NewReader("T3\n"), "login", "--token", "-", "--org", "acme")
		require.NoError(t, err)
		assert.Contains(t, out, "carol")
	})

	t.Run("environment", func(t *testing.T) {
		env := newTestEnv(t)
		t.Setenv("GH_TOKEN", "T1")
		out, _, err := env.run(t, nil, "login", "--org", "acme")
		require.NoError(t, err)
		assert.Contains(t, out, "alice")
	})

	t.Run("organization from environment", func(t *testing.T) {
		env := newTestEnv(t)
		t.Setenv("GHGATE_ORG", "acme")
		_, _, err := env.run(t, nil, "login", "--token", "T3")
		require.NoError(t, err)
	})

	t.Run("empty stdin", func(t *testing.T) {
		env := newTestEnv(t)
		_, _, err := env.run(t, strings.NewReader("\n"), "login", "--token", "-", "--org", "acme")
		require.Error(t, err)
		assert.Equal(t, exitcode.UsageError, exitcode.DetermineExitCode(err))
	})

	t.Run("none without a terminal", func(t *testing.T) {
		env := newTestEnv(t)
		_, _, err := env.run(t, nil, "login", "--org", "acme")
		require.Error(t, err)
		assert.Equal(t, exitcode.UsageError, exitcode.DetermineExitCode(err))
	})

	t.Run("no organization", func(t *testing.T) {
		env := newTestEnv(t)
		_, _, err := env.run(t, nil, "login", "--token", "T1")
		require.Error(t, err)
		assert.Equal(t, exitcode.UsageError, exitcode.DetermineExitCode(err))

		active, err := env.store.IsActive(context.Background())
		require.NoError(t, err)
		assert.False(t, active)
	})
}

func TestStatusPurgesRejectedSession(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Save(context.Background(), auth.Session{
		Token: "revoked", Organization: "acme", Handle: "alice", Role: auth.RoleAdmin,
	}))

	out, errOut, err := env.run(t, nil, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")
	assert.Contains(t, errOut, "Stored session was removed")

	active, err := env.store.IsActive(context.Background())
	require.NoError(t, err)
	assert.False(t, active)
}

func TestItemsErrors(t *testing.T) {
	t.Run("not signed in", func(t *testing.T) {
		env := newTestEnv(t)
		_, _, err := env.run(t, nil, "items", "--file", env.catalog)
		require.Error(t, err)
		assert.Equal(t, exitcode.AuthError, exitcode.DetermineExitCode(err))
	})

	t.Run("invalid catalog", func(t *testing.T) {
		env := newTestEnv(t)
		_, _, err := env.run(t, nil, "login", "--token", "T1", "--org", "acme")
		require.NoError(t, err)

		bad := filepath.Join(t.TempDir(), "items.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("- label: no id\n"), 0o600))

		_, _, err = env.run(t, nil, "items", "--file", bad)
		require.Error(t, err)
		assert.Equal(t, exitcode.ConfigError, exitcode.DetermineExitCode(err))
	})
}

func TestLogoutWithoutSession(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run(t, nil, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "No stored session")
}

func TestInvalidConfig(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("GHGATE_SECRET_BACKEND", "vault")

	_, _, err := env.run(t, nil, "status")
	require.Error(t, err)
	assert.Equal(t, exitcode.ConfigError, exitcode.DetermineExitCode(err))
}

func TestVersionOutput(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run(t, nil, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ghgate "))

	out, _, err = env.run(t, nil, "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"GoVersion"`)
}

func TestAuditTrail(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run(t, nil, "login", "--token", "T2", "--org", "acme")
	require.Error(t, err)
	_, _, err = env.run(t, nil, "login", "--token", "T1", "--org", "acme")
	require.NoError(t, err)
	_, _, err = env.run(t, nil, "logout")
	require.NoError(t, err)

	out, _, err := env.run(t, nil, "audit")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "session.login")
	assert.Contains(t, lines[0], "denied")
	assert.Contains(t, lines[0], "bob@acme")
	assert.Contains(t, lines[0], "insufficient-role")
	assert.Contains(t, lines[1], "alice@acme (admin)")
	assert.Contains(t, lines[2], "session.logout")
	assert.NotContains(t, out, "T1")

	out, _, err = env.run(t, nil, "audit", "--type", "logout")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "session."))

	_, _, err = env.run(t, nil, "audit", "--type", "bogus")
	require.Error(t, err)
	assert.Equal(t, exitcode.UsageError, exitcode.DetermineExitCode(err))
}

func TestAuditDisabled(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("GHGATE_AUDIT_LOG", "false")

	_, _, err := env.run(t, nil, "audit")
	require.Error(t, err)
	assert.Equal(t, exitcode.UsageError, exitcode.DetermineExitCode(err))
}

func TestLoginRejectsMalformedOrganization(t *testing.T) {
	env := newTestEnv(t)

	for _, org := range []string{"acme/../evil", "acme?role=admin", "../orgs/acme"} {
		t.Run(org, func(t *testing.T) {
			_, _, err := env.run(t, nil, "login", "--token", "T1", "--org", org)
			require.Error(t, err)
			assert.Equal(t, exitcode.UsageError, exitcode.DetermineExitCode(err))
		})
	}

	assert.Zero(t, env.requests.Load())
	active, err := env.store.IsActive(context.Background())
	require.NoError(t, err)
	assert.False(t, active)
}

func TestAuditWorksWithoutSecretBackend(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.run(t, nil, "login", "--token", "T1", "--org", "acme")
	require.NoError(t, err)

	openStore = func(config.Config) (auth.Store, error) {
		return nil, errors.New("keychain locked")
	}

	out, _, err := env.run(t, nil, "audit")
	require.NoError(t, err)
	assert.Contains(t, out, "alice@acme (admin)")

	_, _, err = env.run(t, nil, "status")
	require.Error(t, err)
	assert.Equal(t, exitcode.StorageError, exitcode.DetermineExitCode(err))
}

func TestLoginAsksBeforeReplacingOtherOrganization(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.run(t, nil, "login", "--token", "T1", "--org", "acme")
	require.NoError(t, err)

	var asked []string
	interactive = func() bool { return true }
	confirm = func(ctx context.Context, message string, defaultValue bool) (bool, error) {
		asked = append(asked, message)
		assert.False(t, defaultValue)
		return false, nil
	}

	out, _, err := env.run(t, nil, "login", "--token", "T3", "--org", "globex")
	require.NoError(t, err)
	assert.Contains(t, out, "Kept the existing session")
	require.Len(t, asked, 1)
	assert.Contains(t, asked[0], "alice in acme")

	saved, ok, err := env.store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", saved.Handle)
}

func TestConfirmReplace(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := &app{store: env.store, logger: log.Discard(), styles: tui.DefaultStyles()}

	var calls int
	confirm = func(context.Context, string, bool) (bool, error) {
		calls++
		return true, nil
	}

	t.Run("no terminal", func(t *testing.T) {
		require.NoError(t, env.store.Save(ctx, auth.Session{Token: "T1", Organization: "acme", Handle: "alice", Role: auth.RoleAdmin}))
		ok, err := confirmReplace(ctx, a, "globex")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Zero(t, calls)
	})

	interactive = func() bool { return true }

	t.Run("same organization", func(t *testing.T) {
		ok, err := confirmReplace(ctx, a, "ACME")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Zero(t, calls)
	})

	t.Run("other organization", func(t *testing.T) {
		ok, err := confirmReplace(ctx, a, "globex")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 1, calls)
	})

	t.Run("aborted prompt", func(t *testing.T) {
		confirm = func(context.Context, string, bool) (bool, error) {
			return false, tui.ErrAborted
		}
		_, err := confirmReplace(ctx, a, "globex")
		require.Error(t, err)
		assert.Equal(t, exitcode.Interrupted, exitcode.DetermineExitCode(err))
	})

	t.Run("no stored session", func(t *testing.T) {
		require.NoError(t, env.store.Clear(ctx))
		ok, err := confirmReplace(ctx, a, "globex")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
