package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/ghgate/internal/access"
	"github.com/felixgeelhaar/ghgate/internal/auth"
	"github.com/felixgeelhaar/ghgate/internal/credstore"
	"github.com/felixgeelhaar/ghgate/internal/github"
	"github.com/felixgeelhaar/ghgate/internal/log"
)

// fakeGitHub serves /user and /orgs/acme/memberships/{user} for a fixed set
// of tokens.
func fakeGitHub(t *testing.T) *github.Client {
	t.Helper()

	users := map[string]string{"T1": "alice", "T2": "bob", "T3": "carol"}
	memberships := map[string]string{
		"alice": `{"role":"admin","state":"active"}`,
		"bob":   `{"role":"member","state":"pending"}`,
		"carol": `{"role":"member","state":"active"}`,
	}
	var mu sync.Mutex
	revoked := map[string]bool{}

	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		mu.Lock()
		gone := revoked[token]
		mu.Unlock()
		login, ok := users[token]
		if !ok || gone {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"login":"` + login + `"}`))
	})
	mux.HandleFunc("/orgs/acme/memberships/", func(w http.ResponseWriter, r *http.Request) {
		handle := strings.TrimPrefix(r.URL.Path, "/orgs/acme/memberships/")
		body, ok := memberships[handle]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/revoke/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		revoked[strings.TrimPrefix(r.URL.Path, "/revoke/")] = true
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := github.NewClient(github.Config{BaseURL: server.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return client
}

func newManager(client *github.Client, store auth.Store) *auth.Manager {
	return auth.NewManager(store, github.NewVerifier(client), github.NewResolver(client), log.Discard())
}

func TestAdminLoginThenFilter(t *testing.T) {
	ctx := context.Background()
	client := fakeGitHub(t)
	store := credstore.NewMemory()
	m := newManager(client, store)

	result, err := m.Login(ctx, "T1", "acme", nil)
	require.NoError(t, err)
	require.True(t, result.OK)

	saved, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, auth.Session{Token: "T1", Organization: "acme", Handle: "alice", Role: auth.RoleAdmin}, saved)

	items := []access.Item{
		{ID: "1", Visibility: access.VisibilityStandard},
		{ID: "2", Visibility: access.VisibilityPrivileged},
		{ID: "3", Visibility: access.VisibilityStandard},
	}
	assert.Len(t, access.Filter(items, m.Current().Role), 3)
	assert.Len(t, access.Filter(items, auth.RoleMember), 2)
}

func TestPendingMemberIsRejected(t *testing.T) {
	ctx := context.Background()
	store := credstore.NewMemory()
	m := newManager(fakeGitHub(t), store)

	result, err := m.Login(ctx, "T2", "acme", nil)
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, auth.ReasonInsufficientRole, result.Reason)

	active, err := store.IsActive(ctx)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestRevokedTokenIsPurgedAtStartup(t *testing.T) {
	ctx := context.Background()
	client := fakeGitHub(t)
	store := credstore.NewMemory()

	first := newManager(client, store)
	result, err := first.Login(ctx, "T3", "acme", nil)
	require.NoError(t, err)
	require.True(t, result.OK)

	// Revoke T3 out of band.
	resp, err := http.Get(strings.TrimSuffix(client.BaseURL(), "/") + "/revoke/T3")
	require.NoError(t, err)
	_ = resp.Body.Close()

	next := newManager(client, store)
	out, err := next.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, auth.BootNoSession, out.State)
	assert.Equal(t, auth.ReasonInvalidToken, out.Reason)
	assert.False(t, next.Current().Authenticated)

	active, err := store.IsActive(ctx)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestRestoreValidSession(t *testing.T) {
	ctx := context.Background()
	client := fakeGitHub(t)
	store := credstore.NewMemory()
	require.NoError(t, store.Save(ctx, auth.Session{Token: "T1", Organization: "acme", Handle: "alice", Role: auth.RoleAdmin}))

	m := newManager(client, store)
	out, err := m.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, auth.BootActive, out.State)
	assert.Equal(t, "alice", m.Current().Handle)
	assert.Equal(t, auth.RoleAdmin, m.Current().Role)
}
