package auth

import (
	"context"
	"sync"
)

type fakeVerifier struct {
	mu      sync.Mutex
	results map[string]VerifyResult
	calls   int

	// block, when set, holds Verify until it is closed or ctx ends.
	block chan struct{}
}

func newFakeVerifier() *fakeVerifier {
	return &fakeVerifier{results: make(map[string]VerifyResult)}
}

func (f *fakeVerifier) identify(token, handle string) *fakeVerifier {
	f.results[token] = VerifyResult{OK: true, Identity: Identity{Handle: handle}}
	return f
}

func (f *fakeVerifier) fail(token string, reason Reason, code string) *fakeVerifier {
	f.results[token] = VerifyResult{Reason: reason, Code: code}
	return f
}

func (f *fakeVerifier) Verify(ctx context.Context, token string) VerifyResult {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return VerifyResult{Reason: ReasonCancelled, Code: CodeCancelled}
		}
	}
	if r, ok := f.results[token]; ok {
		return r
	}
	return VerifyResult{Reason: ReasonInvalidToken, Code: CodeUnauthorized}
}

func (f *fakeVerifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeResolver struct {
	mu          sync.Mutex
	memberships map[string]Membership
	failure     *RoleResult
	calls       int
	onResolve   func()
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{memberships: make(map[string]Membership)}
}

func (f *fakeResolver) member(handle string, role Role, state MembershipState) *fakeResolver {
	f.memberships[handle] = Membership{Role: role, State: state}
	return f
}

func (f *fakeResolver) Resolve(ctx context.Context, token, org, handle string, accepted []Role) RoleResult {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.onResolve != nil {
		f.onResolve()
	}
	if f.failure != nil {
		return *f.failure
	}
	m, ok := f.memberships[handle]
	if !ok {
		return RoleResult{OK: true}
	}
	return RoleResult{OK: true, HasAccess: m.Grants(accepted), Membership: &m}
}

func (f *fakeResolver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// failingStore wraps MemoryStore and fails Save or Clear on demand.
type failingStore struct {
	*MemoryStore
	saveErr  error
	clearErr error
}

func (s *failingStore) Save(ctx context.Context, session Session) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MemoryStore.Save(ctx, session)
}

func (s *failingStore) Clear(ctx context.Context) error {
	if s.clearErr != nil {
		return s.clearErr
	}
	return s.MemoryStore.Clear(ctx)
}
