package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/felixgeelhaar/ghgate/internal/log"
)

// ErrOrganizationRequired is returned when Login is called without an organization.
var ErrOrganizationRequired = errors.New("organization is required")

// ErrManagerClosed is returned by operations on a closed Manager.
var ErrManagerClosed = errors.New("session manager closed")

// Snapshot is the externally visible session state.
type Snapshot struct {
	Authenticated bool
	Handle        string
	Organization  string
	Role          Role

	// Fingerprint identifies the stored token without revealing it.
	Fingerprint string
}

func snapshotOf(s Session) Snapshot {
	return Snapshot{
		Authenticated: true,
		Handle:        s.Handle,
		Organization:  s.Organization,
		Role:          s.Role,
		Fingerprint:   Fingerprint(s.Token),
	}
}

// Listener receives state changes. It runs on the goroutine that caused the
// change and must not call back into the Manager's mutating methods.
type Listener func(Snapshot)

// Manager owns the process-wide session state.
//
// Lifecycle: NewManager, Start once at process start, then any number of
// Login/Logout calls, then Close. Login and Logout are serialized by a single
// in-flight guard so a save from one attempt can never interleave with a
// clear from another.
type Manager struct {
	store        Store
	orchestrator *Orchestrator
	bootstrapper *Bootstrapper
	logger       *log.Logger

	// guard is a one-slot semaphore; acquiring it honours ctx cancellation.
	guard chan struct{}

	startOnce sync.Once
	boot      BootOutcome
	bootErr   error

	mu        sync.RWMutex
	current   Snapshot
	listeners map[int]Listener
	nextID    int
	closed    bool
}

// NewManager wires a Manager from its collaborators. A nil logger uses the
// process default.
func NewManager(store Store, verifier Verifier, resolver RoleResolver, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Manager{
		store:        store,
		orchestrator: NewOrchestrator(verifier, resolver, logger),
		bootstrapper: NewBootstrapper(store, verifier, logger),
		logger:       logger,
		guard:        make(chan struct{}, 1),
		listeners:    make(map[int]Listener),
	}
}

// Start restores any persisted session. Only the first call does work;
// later calls return the first outcome.
func (m *Manager) Start(ctx context.Context) (BootOutcome, error) {
	m.startOnce.Do(func() {
		if err := m.acquire(ctx); err != nil {
			m.boot = BootOutcome{State: BootNoSession, Reason: ReasonCancelled, Code: CodeCancelled}
			return
		}
		defer m.release()

		m.boot, m.bootErr = m.bootstrapper.Restore(ctx)
		if m.boot.State == BootActive {
			m.publish(snapshotOf(m.boot.Session))
		} else {
			m.publish(Snapshot{})
		}
	})
	return m.boot, m.bootErr
}

// Login authenticates token against organization and, on success, persists
// and publishes the new session. A failed or cancelled attempt leaves any
// previously stored session untouched.
func (m *Manager) Login(ctx context.Context, token, organization string, accepted []Role) (Result, error) {
	if m.isClosed() {
		return Result{}, ErrManagerClosed
	}
	token = strings.TrimSpace(token)
	organization = strings.TrimSpace(organization)
	if organization == "" {
		return Result{}, ErrOrganizationRequired
	}
	if err := ValidateOrganization(organization); err != nil {
		return Result{}, err
	}
	if token == "" {
		return Result{Reason: ReasonInvalidToken, Code: CodeUnauthorized}, nil
	}
	if len(accepted) == 0 {
		accepted = DefaultAcceptedRoles()
	}

	if err := m.acquire(ctx); err != nil {
		return Result{Reason: ReasonCancelled, Code: CodeCancelled}, nil
	}
	defer m.release()

	result := m.orchestrator.Authenticate(ctx, token, organization, accepted)
	if !result.OK {
		return result, nil
	}
	if ctx.Err() != nil {
		return Result{Reason: ReasonCancelled, Code: CodeCancelled}, nil
	}

	session, _ := result.Session(token, organization)
	if err := m.store.Save(ctx, session); err != nil {
		return Result{}, fmt.Errorf("save session: %w", err)
	}

	m.publish(snapshotOf(session))
	return result, nil
}

// Logout erases the stored session. It is safe to call without a session.
func (m *Manager) Logout(ctx context.Context) error {
	if m.isClosed() {
		return ErrManagerClosed
	}
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	m.logger.InfoContext(ctx, "signed out")
	m.publish(Snapshot{})
	return nil
}

// Current returns the latest published state.
func (m *Manager) Current() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Subscribe registers fn for state changes and returns a function that
// removes it.
func (m *Manager) Subscribe(fn Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || fn == nil {
		return func() {}
	}

	id := m.nextID
	m.nextID++
	m.listeners[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Close drops all listeners and rejects further Login/Logout calls.
// Persisted state is left as-is.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.listeners = make(map[int]Listener)
}

func (m *Manager) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

func (m *Manager) publish(s Snapshot) {
	m.mu.Lock()
	m.current = s
	listeners := make([]Listener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

func (m *Manager) acquire(ctx context.Context) error {
	select {
	case m.guard <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) release() {
	<-m.guard
}
