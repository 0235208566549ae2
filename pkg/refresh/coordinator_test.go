package refresh

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerlink/sellerlink/pkg/audit"
	"github.com/sellerlink/sellerlink/pkg/oauth"
	"github.com/sellerlink/sellerlink/pkg/store"
)

func TestMain(m *testing.M) {
	audit.SetEnabled(false)
	os.Exit(m.Run())
}

// memVault is an in-memory store.CredentialsStore holding plaintext; the
// encryption boundary is covered by the model and store tests.
type memVault struct {
	mu    sync.Mutex
	creds map[uint]store.Credential
}

var _ store.CredentialsStore = (*memVault)(nil)

func newMemVault() *memVault {
	return &memVault{creds: make(map[uint]store.Credential)}
}

func (v *memVault) Store(accountID uint, accessToken []byte, accessExpiresAt time.Time, refreshToken []byte, refreshExpiresAt time.Time) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.creds[accountID] = store.Credential{
		AccountID:        accountID,
		AccessToken:      append([]byte(nil), accessToken...),
		RefreshToken:     append([]byte(nil), refreshToken...),
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: refreshExpiresAt,
	}
	return nil
}

func (v *memVault) ReadDecrypted(accountID uint) (*store.Credential, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	cred, ok := v.creds[accountID]
	if !ok {
		return nil, store.ErrCredentialNotFound
	}
	out := cred
	return &out, nil
}

func (v *memVault) IsAccessExpired(accountID uint, now time.Time) (bool, error) {
	cred, err := v.ReadDecrypted(accountID)
	if err != nil {
		return false, err
	}
	return !now.Before(cred.AccessExpiresAt), nil
}

func (v *memVault) IsRefreshExpired(accountID uint, now time.Time) (bool, error) {
	cred, err := v.ReadDecrypted(accountID)
	if err != nil {
		return false, err
	}
	return !now.Before(cred.RefreshExpiresAt), nil
}

// fakeExchanger scripts provider behavior and counts calls.
type fakeExchanger struct {
	mu      sync.Mutex
	calls   int
	delay   time.Duration
	results []func() (*oauth.TokenPair, error)
}

func (f *fakeExchanger) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*oauth.TokenPair, error) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, &oauth.TransientError{Err: ctx.Err()}
		}
	}

	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	return f.results[idx]()
}

func (f *fakeExchanger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func success(access string, accessExp time.Time) func() (*oauth.TokenPair, error) {
	return func() (*oauth.TokenPair, error) {
		return &oauth.TokenPair{AccessToken: access, AccessExpiresAt: accessExp}, nil
	}
}

func transient() func() (*oauth.TokenPair, error) {
	return func() (*oauth.TokenPair, error) {
		return nil, &oauth.TransientError{Err: errors.New("connection reset")}
	}
}

func fastConfig() Config {
	return Config{
		LeadWindow:           time.Minute,
		MaxAttempts:          3,
		AttemptTimeout:       time.Second,
		RetryInitialInterval: time.Millisecond,
	}
}

func TestEnsureFreshReturnsValidTokenWithoutExchange(t *testing.T) {
	now := time.Now()
	vault := newMemVault()
	require.NoError(t, vault.Store(1, []byte("live-access"), now.Add(time.Hour), []byte("refresh"), now.Add(24*time.Hour)))

	exchanger := &fakeExchanger{results: []func() (*oauth.TokenPair, error){success("unused", now.Add(time.Hour))}}
	coordinator := NewCoordinator(vault, exchanger, fastConfig())

	token, err := coordinator.EnsureFresh(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "live-access", token)
	assert.Zero(t, exchanger.callCount())
}

func TestEnsureFreshRefreshesExpiredToken(t *testing.T) {
	now := time.Now()
	vault := newMemVault()
	// Access expired one second ago, refresh token live for another hour.
	require.NoError(t, vault.Store(1, []byte("stale"), now.Add(-time.Second), []byte("refresh"), now.Add(time.Hour)))

	exchanger := &fakeExchanger{results: []func() (*oauth.TokenPair, error){success("renewed", now.Add(2*time.Hour))}}
	coordinator := NewCoordinator(vault, exchanger, fastConfig())

	token, err := coordinator.EnsureFresh(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "renewed", token)
	assert.Equal(t, 1, exchanger.callCount())

	// The renewed pair is persisted.
	cred, err := vault.ReadDecrypted(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("renewed"), cred.AccessToken)
	assert.Equal(t, []byte("refresh"), cred.RefreshToken, "refresh token kept when provider does not rotate")
}

func TestEnsureFreshRefreshesNearExpiryToken(t *testing.T) {
	now := time.Now()
	vault := newMemVault()
	// Access still valid, but inside the lead window.
	require.NoError(t, vault.Store(1, []byte("soon-stale"), now.Add(30*time.Second), []byte("refresh"), now.Add(time.Hour)))

	exchanger := &fakeExchanger{results: []func() (*oauth.TokenPair, error){success("renewed", now.Add(2*time.Hour))}}
	coordinator := NewCoordinator(vault, exchanger, fastConfig())

	token, err := coordinator.EnsureFresh(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "renewed", token)
	assert.Equal(t, 1, exchanger.callCount())
}

func TestEnsureFreshDeadRefreshTokenIsTerminal(t *testing.T) {
	now := time.Now()
	vault := newMemVault()
	// Refresh token expired one second ago.
	require.NoError(t, vault.Store(1, []byte("stale"), now.Add(-time.Hour), []byte("dead"), now.Add(-time.Second)))

	exchanger := &fakeExchanger{results: []func() (*oauth.TokenPair, error){success("never", now.Add(time.Hour))}}

	var notifiedAccount uint
	coordinator := NewCoordinator(vault, exchanger, fastConfig())
	coordinator.OnTerminalFailure = func(accountID uint, err error) {
		notifiedAccount = accountID
	}

	_, err := coordinator.EnsureFresh(context.Background(), 1)
	assert.ErrorIs(t, err, oauth.ErrTokenExpiredOrRevoked)
	assert.Zero(t, exchanger.callCount(), "no provider call, no retry for a dead refresh token")
	assert.EqualValues(t, 1, notifiedAccount)

	state, err := coordinator.State(1)
	require.NoError(t, err)
	assert.Equal(t, StateRefreshFailed, state)
}

func TestEnsureFreshProviderTerminalErrorNotRetried(t *testing.T) {
	now := time.Now()
	vault := newMemVault()
	require.NoError(t, vault.Store(1, []byte("stale"), now.Add(-time.Second), []byte("revoked"), now.Add(time.Hour)))

	exchanger := &fakeExchanger{results: []func() (*oauth.TokenPair, error){
		func() (*oauth.TokenPair, error) { return nil, oauth.ErrTokenExpiredOrRevoked },
	}}
	coordinator := NewCoordinator(vault, exchanger, fastConfig())

	_, err := coordinator.EnsureFresh(context.Background(), 1)
	assert.ErrorIs(t, err, oauth.ErrTokenExpiredOrRevoked)
	assert.Equal(t, 1, exchanger.callCount())
}

func TestEnsureFreshRetriesTransientThenSucceeds(t *testing.T) {
	now := time.Now()
	vault := newMemVault()
	require.NoError(t, vault.Store(1, []byte("stale"), now.Add(-time.Second), []byte("refresh"), now.Add(time.Hour)))

	exchanger := &fakeExchanger{results: []func() (*oauth.TokenPair, error){
		transient(),
		transient(),
		success("renewed", now.Add(2*time.Hour)),
	}}
	coordinator := NewCoordinator(vault, exchanger, fastConfig())

	token, err := coordinator.EnsureFresh(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "renewed", token)
	assert.Equal(t, 3, exchanger.callCount())
}

func TestEnsureFreshTransientExhaustion(t *testing.T) {
	now := time.Now()
	vault := newMemVault()
	require.NoError(t, vault.Store(1, []byte("stale"), now.Add(-time.Second), []byte("refresh"), now.Add(time.Hour)))

	exchanger := &fakeExchanger{results: []func() (*oauth.TokenPair, error){transient()}}
	coordinator := NewCoordinator(vault, exchanger, fastConfig())

	_, err := coordinator.EnsureFresh(context.Background(), 1)
	assert.ErrorIs(t, err, ErrRefreshExhausted)
	assert.Equal(t, 3, exchanger.callCount(), "MaxAttempts bounds provider calls")

	// Exhaustion is recoverable: the next call tries again.
	exchanger.results = []func() (*oauth.TokenPair, error){success("renewed", now.Add(2 * time.Hour))}
	token, err := coordinator.EnsureFresh(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "renewed", token)
}

func TestEnsureFreshCollapsesConcurrentCallers(t *testing.T) {
	now := time.Now()
	vault := newMemVault()
	require.NoError(t, vault.Store(1, []byte("stale"), now.Add(-time.Second), []byte("refresh"), now.Add(time.Hour)))

	exchanger := &fakeExchanger{
		delay:   50 * time.Millisecond,
		results: []func() (*oauth.TokenPair, error){success("renewed", now.Add(2 * time.Hour))},
	}
	coordinator := NewCoordinator(vault, exchanger, fastConfig())

	const callers = 16
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = coordinator.EnsureFresh(context.Background(), 1)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "renewed", tokens[i])
	}
	assert.Equal(t, 1, exchanger.callCount(), "concurrent callers must share one exchange")
}

func TestEnsureFreshIndependentAccounts(t *testing.T) {
	now := time.Now()
	vault := newMemVault()
	require.NoError(t, vault.Store(1, []byte("stale-1"), now.Add(-time.Second), []byte("refresh-1"), now.Add(time.Hour)))
	require.NoError(t, vault.Store(2, []byte("stale-2"), now.Add(-time.Second), []byte("refresh-2"), now.Add(time.Hour)))

	exchanger := &fakeExchanger{results: []func() (*oauth.TokenPair, error){success("renewed", now.Add(2 * time.Hour))}}
	coordinator := NewCoordinator(vault, exchanger, fastConfig())

	_, err := coordinator.EnsureFresh(context.Background(), 1)
	require.NoError(t, err)
	_, err = coordinator.EnsureFresh(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, 2, exchanger.callCount(), "accounts refresh independently")
}

func TestEnsureFreshMissingCredential(t *testing.T) {
	coordinator := NewCoordinator(newMemVault(), &fakeExchanger{}, fastConfig())
	_, err := coordinator.EnsureFresh(context.Background(), 404)
	assert.ErrorIs(t, err, store.ErrCredentialNotFound)
}

func TestEnsureFreshClampsAccessExpiryToRefreshExpiry(t *testing.T) {
	now := time.Now()
	vault := newMemVault()
	require.NoError(t, vault.Store(1, []byte("stale"), now.Add(-time.Second), []byte("refresh"), now.Add(time.Hour)))

	// Provider claims the access token outlives the refresh token.
	exchanger := &fakeExchanger{results: []func() (*oauth.TokenPair, error){success("renewed", now.Add(100 * time.Hour))}}
	coordinator := NewCoordinator(vault, exchanger, fastConfig())

	_, err := coordinator.EnsureFresh(context.Background(), 1)
	require.NoError(t, err)

	cred, err := vault.ReadDecrypted(1)
	require.NoError(t, err)
	assert.False(t, cred.AccessExpiresAt.After(cred.RefreshExpiresAt),
		"stored access expiry must not exceed refresh expiry")
}

func TestStateTransitions(t *testing.T) {
	now := time.Now()
	vault := newMemVault()
	coordinator := NewCoordinator(vault, &fakeExchanger{}, fastConfig())

	require.NoError(t, vault.Store(1, []byte("a"), now.Add(time.Hour), []byte("r"), now.Add(24*time.Hour)))
	state, err := coordinator.State(1)
	require.NoError(t, err)
	assert.Equal(t, StateValid, state)

	require.NoError(t, vault.Store(1, []byte("a"), now.Add(30*time.Second), []byte("r"), now.Add(24*time.Hour)))
	state, err = coordinator.State(1)
	require.NoError(t, err)
	assert.Equal(t, StateNearExpiry, state)

	require.NoError(t, vault.Store(1, []byte("a"), now.Add(-time.Second), []byte("r"), now.Add(24*time.Hour)))
	state, err = coordinator.State(1)
	require.NoError(t, err)
	assert.Equal(t, StateExpired, state)
}

// captureAudit routes audit output into a buffer for the duration of a test.
func captureAudit(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	audit.SetEnabled(true)
	audit.DefaultLogger.SetWriter(&buf)
	t.Cleanup(func() {
		audit.SetEnabled(false)
		audit.DefaultLogger.SetWriter(os.Stdout)
	})
	return &buf
}

func TestRefreshEmitsAuditRecord(t *testing.T) {
	buf := captureAudit(t)

	now := time.Now()
	vault := newMemVault()
	require.NoError(t, vault.Store(1, []byte("stale"), now.Add(-time.Second), []byte("refresh"), now.Add(time.Hour)))

	exchanger := &fakeExchanger{results: []func() (*oauth.TokenPair, error){success("renewed", now.Add(2*time.Hour))}}
	coordinator := NewCoordinator(vault, exchanger, fastConfig())

	_, err := coordinator.EnsureFresh(context.Background(), 1)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, " refresh ")
	assert.Contains(t, out, `result="success"`)
	assert.Contains(t, out, `attempts="1"`)
}

func TestTerminalRefreshFailureEmitsAuditRecord(t *testing.T) {
	buf := captureAudit(t)

	now := time.Now()
	vault := newMemVault()
	require.NoError(t, vault.Store(1, []byte("stale"), now.Add(-time.Hour), []byte("dead"), now.Add(-time.Second)))

	coordinator := NewCoordinator(vault, &fakeExchanger{}, fastConfig())

	_, err := coordinator.EnsureFresh(context.Background(), 1)
	assert.ErrorIs(t, err, oauth.ErrTokenExpiredOrRevoked)

	out := buf.String()
	assert.Contains(t, out, `result="failure"`)
	assert.Contains(t, out, `terminal="true"`)
}
