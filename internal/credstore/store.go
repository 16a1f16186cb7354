// Package credstore persists the signed-in session across processes.
//
// A session is split over four named fields. The token goes to a
// SecretBackend; organization, username and role go to a plain KVBackend.
// The token is the commit marker: it is written last on Save and removed
// first on Clear, and a session without a token does not exist. Save never
// deletes a stored token, so a failed Save leaves the previous session.
package credstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/ghgate/internal/auth"
)

// Field names as they appear in the backends.
const (
	KeyToken        = "secret-token"
	KeyOrganization = "organization-name"
	KeyUsername     = "username"
	KeyRole         = "role"
)

var plainKeys = []string{KeyOrganization, KeyUsername, KeyRole}

// Store implements auth.Store over a secret and a plain backend.
type Store struct {
	mu      sync.Mutex
	secrets SecretBackend
	kv      KVBackend
}

var _ auth.Store = (*Store)(nil)

// New creates a Store.
func New(secrets SecretBackend, kv KVBackend) *Store {
	return &Store{secrets: secrets, kv: kv}
}

// NewMemory creates a Store that lives only as long as the process.
func NewMemory() *Store {
	return New(NewMemorySecrets(), NewMemoryKV())
}

// Save persists session, replacing any stored one.
//
// The plain fields are written first and the token overwritten last, so the
// previous token is never deleted on the way. If the token write fails the
// previous plain fields are put back and the old session stays loadable.
func (s *Store) Save(ctx context.Context, session auth.Session) error {
	if !session.Complete() {
		return errors.New("refusing to save an incomplete session")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prevPlain, err := s.getPlain(ctx)
	if err != nil {
		return fmt.Errorf("read previous session: %w", err)
	}

	if err := s.kv.Put(ctx, map[string]string{
		KeyOrganization: session.Organization,
		KeyUsername:     session.Handle,
		KeyRole:         string(session.Role),
	}); err != nil {
		s.restorePlain(ctx, prevPlain)
		return fmt.Errorf("write session fields: %w", err)
	}

	if err := s.secrets.SetSecret(ctx, KeyToken, session.Token); err != nil {
		s.restorePlain(ctx, prevPlain)
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// restorePlain best-effort reinstates the plain fields after a failed Save.
// The token is never touched here.
func (s *Store) restorePlain(ctx context.Context, plain map[string]string) {
	_ = s.kv.Delete(ctx, plainKeys...)
	if len(plain) > 0 {
		_ = s.kv.Put(ctx, plain)
	}
}

// Load returns the stored session. It reports absent unless both the token
// and the username are present.
func (s *Store) Load(ctx context.Context) (auth.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) (auth.Session, bool, error) {
	token, err := s.getSecret(ctx)
	if err != nil {
		return auth.Session{}, false, err
	}
	if token == "" {
		return auth.Session{}, false, nil
	}

	plain, err := s.getPlain(ctx)
	if err != nil {
		return auth.Session{}, false, err
	}
	if plain[KeyUsername] == "" {
		return auth.Session{}, false, nil
	}

	return auth.Session{
		Token:        token,
		Organization: plain[KeyOrganization],
		Handle:       plain[KeyUsername],
		Role:         auth.Role(plain[KeyRole]),
	}, true, nil
}

// Clear removes the session, token first. Clearing an empty store is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.secrets.DeleteSecret(ctx, KeyToken); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if err := s.kv.Delete(ctx, plainKeys...); err != nil {
		return fmt.Errorf("delete session fields: %w", err)
	}
	return nil
}

// IsActive reports whether a session is stored. It never touches the network.
func (s *Store) IsActive(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok, err := s.load(ctx)
	return ok, err
}

func (s *Store) getSecret(ctx context.Context) (string, error) {
	token, err := s.secrets.GetSecret(ctx, KeyToken)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return token, nil
}

func (s *Store) getPlain(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(plainKeys))
	for _, k := range plainKeys {
		v, err := s.kv.Get(ctx, k)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", k, err)
		}
		if v != "" {
			out[k] = v
		}
	}
	return out, nil
}
