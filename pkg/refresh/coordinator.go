package refresh

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"

	"github.com/sellerlink/sellerlink/pkg/audit"
	"github.com/sellerlink/sellerlink/pkg/oauth"
	"github.com/sellerlink/sellerlink/pkg/store"
)

// ErrRefreshExhausted is the recoverable-failure signal surfaced when every
// transient retry has been spent. The underlying provider error is wrapped.
var ErrRefreshExhausted = errors.New("token refresh attempts exhausted")

// State describes where an account's credential sits in the refresh
// lifecycle.
type State int

const (
	StateValid State = iota
	StateNearExpiry
	StateExpired
	StateRefreshing
	StateRefreshFailed
)

func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateNearExpiry:
		return "near-expiry"
	case StateExpired:
		return "expired"
	case StateRefreshing:
		return "refreshing"
	case StateRefreshFailed:
		return "refresh-failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config tunes the coordinator. Zero values fall back to defaults.
type Config struct {
	// LeadWindow is how long before access expiry a refresh is triggered.
	LeadWindow time.Duration
	// MaxAttempts caps provider calls per refresh for transient failures.
	MaxAttempts uint64
	// AttemptTimeout bounds each individual provider call.
	AttemptTimeout time.Duration
	// RetryInitialInterval seeds the exponential backoff between attempts.
	RetryInitialInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.LeadWindow <= 0 {
		c.LeadWindow = 5 * time.Minute
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 4
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 30 * time.Second
	}
	if c.RetryInitialInterval <= 0 {
		c.RetryInitialInterval = 500 * time.Millisecond
	}
	return c
}

// Coordinator decides when a credential needs renewal and drives the refresh
// exchange. Refreshes are serialized per account: concurrent EnsureFresh
// callers during an in-flight refresh share its result instead of triggering
// duplicate provider calls.
type Coordinator struct {
	credentials store.CredentialsStore
	exchanger   oauth.TokenExchanger
	cfg         Config

	group singleflight.Group

	mu         sync.Mutex
	refreshing map[uint]bool
	failed     map[uint]bool

	// OnTerminalFailure, if set, is invoked when a refresh token is found
	// dead so the account's administrators can be prompted to re-consent.
	OnTerminalFailure func(accountID uint, err error)

	// now is swapped in tests
	now func() time.Time
}

// NewCoordinator creates a Coordinator over the credential vault and the
// external exchanger.
func NewCoordinator(credentials store.CredentialsStore, exchanger oauth.TokenExchanger, cfg Config) *Coordinator {
	return &Coordinator{
		credentials: credentials,
		exchanger:   exchanger,
		cfg:         cfg.withDefaults(),
		refreshing:  make(map[uint]bool),
		failed:      make(map[uint]bool),
		now:         time.Now,
	}
}

// State reports the credential lifecycle state for an account.
func (c *Coordinator) State(accountID uint) (State, error) {
	c.mu.Lock()
	if c.refreshing[accountID] {
		c.mu.Unlock()
		return StateRefreshing, nil
	}
	failed := c.failed[accountID]
	c.mu.Unlock()

	now := c.now()
	if failed {
		// The latch clears only when re-consent stores a live refresh token.
		refreshExpired, err := c.credentials.IsRefreshExpired(accountID, now)
		if err != nil {
			return 0, err
		}
		if refreshExpired {
			return StateRefreshFailed, nil
		}
		c.clearFailed(accountID)
	}

	expired, err := c.credentials.IsAccessExpired(accountID, now)
	if err != nil {
		return 0, err
	}
	if expired {
		return StateExpired, nil
	}

	nearExpiry, err := c.credentials.IsAccessExpired(accountID, now.Add(c.cfg.LeadWindow))
	if err != nil {
		return 0, err
	}
	if nearExpiry {
		return StateNearExpiry, nil
	}

	return StateValid, nil
}

// EnsureFresh returns an access token guaranteed not to be expired at call
// time, refreshing through the provider when needed. Callers racing on the
// same account collapse onto a single in-flight exchange.
func (c *Coordinator) EnsureFresh(ctx context.Context, accountID uint) (string, error) {
	credential, err := c.credentials.ReadDecrypted(accountID)
	if err != nil {
		return "", err
	}

	now := c.now()
	if c.fresh(credential, now) {
		return string(credential.AccessToken), nil
	}

	token, err, _ := c.group.Do(strconv.FormatUint(uint64(accountID), 10), func() (interface{}, error) {
		return c.refresh(ctx, accountID)
	})
	if err != nil {
		return "", err
	}

	return token.(string), nil
}

// fresh reports whether the access token is comfortably inside its lifetime.
// The refresh expiry is the hard ceiling. The schema does not guarantee
// access expiry <= refresh expiry, so the earlier of the two applies.
func (c *Coordinator) fresh(credential *store.Credential, now time.Time) bool {
	effective := credential.AccessExpiresAt
	if effective.After(credential.RefreshExpiresAt) {
		effective = credential.RefreshExpiresAt
	}
	return now.Add(c.cfg.LeadWindow).Before(effective)
}

func (c *Coordinator) refresh(ctx context.Context, accountID uint) (string, error) {
	c.setRefreshing(accountID, true)
	defer c.setRefreshing(accountID, false)

	// Re-read inside the flight: a caller that queued behind a completed
	// refresh must not trigger another exchange.
	credential, err := c.credentials.ReadDecrypted(accountID)
	if err != nil {
		return "", err
	}

	now := c.now()
	if c.fresh(credential, now) {
		return string(credential.AccessToken), nil
	}

	if credential.RefreshExpired(now) {
		err := fmt.Errorf("account %d requires re-authorization: %w", accountID, oauth.ErrTokenExpiredOrRevoked)
		c.markFailed(accountID, err)
		audit.Log(audit.RefreshEvent{AccountID: accountID, Terminal: true, ErrorMessage: err.Error()})
		return "", err
	}

	var pair *oauth.TokenPair
	var attempts int
	operation := func() error {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
		defer cancel()

		p, err := c.exchanger.ExchangeRefreshToken(attemptCtx, string(credential.RefreshToken))
		if err != nil {
			if errors.Is(err, oauth.ErrTokenExpiredOrRevoked) {
				return backoff.Permanent(err)
			}
			if oauth.IsTransient(err) {
				return err
			}
			// Unclassified errors are not worth hammering the provider over.
			return backoff.Permanent(err)
		}
		pair = p
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.RetryInitialInterval

	err = backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, c.cfg.MaxAttempts-1), ctx))
	if err != nil {
		if errors.Is(err, oauth.ErrTokenExpiredOrRevoked) {
			c.markFailed(accountID, err)
			audit.Log(audit.RefreshEvent{AccountID: accountID, Attempts: attempts, Terminal: true, ErrorMessage: err.Error()})
			return "", err
		}
		audit.Log(audit.RefreshEvent{AccountID: accountID, Attempts: attempts, ErrorMessage: err.Error()})
		if oauth.IsTransient(err) {
			return "", fmt.Errorf("%w: %v", ErrRefreshExhausted, err)
		}
		return "", err
	}

	refreshToken := credential.RefreshToken
	refreshExpiresAt := credential.RefreshExpiresAt
	if pair.RefreshToken != "" {
		refreshToken = []byte(pair.RefreshToken)
		refreshExpiresAt = pair.RefreshExpiresAt
	}

	accessExpiresAt := pair.AccessExpiresAt
	if accessExpiresAt.After(refreshExpiresAt) {
		accessExpiresAt = refreshExpiresAt
	}

	if err := c.credentials.Store(accountID, []byte(pair.AccessToken), accessExpiresAt, refreshToken, refreshExpiresAt); err != nil {
		audit.Log(audit.RefreshEvent{AccountID: accountID, Attempts: attempts, ErrorMessage: err.Error()})
		return "", err
	}

	c.clearFailed(accountID)
	audit.Log(audit.RefreshEvent{AccountID: accountID, Attempts: attempts, Success: true})
	return pair.AccessToken, nil
}

func (c *Coordinator) setRefreshing(accountID uint, active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if active {
		c.refreshing[accountID] = true
	} else {
		delete(c.refreshing, accountID)
	}
}

func (c *Coordinator) markFailed(accountID uint, err error) {
	c.mu.Lock()
	c.failed[accountID] = true
	c.mu.Unlock()

	if c.OnTerminalFailure != nil {
		c.OnTerminalFailure(accountID, err)
	}
}

func (c *Coordinator) clearFailed(accountID uint) {
	c.mu.Lock()
	delete(c.failed, accountID)
	c.mu.Unlock()
}
