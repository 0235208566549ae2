package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTokenURL is eBay's production OAuth token endpoint.
const DefaultTokenURL = "https://api.ebay.com/identity/v1/oauth2/token"

// EbayClient implements TokenExchanger against eBay's OAuth token endpoint.
type EbayClient struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client

	// now is swapped in tests
	now func() time.Time
}

var _ TokenExchanger = (*EbayClient)(nil)

// NewEbayClient creates a client for the given application credentials.
// tokenURL may be empty to use the production endpoint.
func NewEbayClient(tokenURL, clientID, clientSecret string) *EbayClient {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &EbayClient{
		TokenURL:     tokenURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
		now:          time.Now,
	}
}

type ebayTokenResponse struct {
	AccessToken           string `json:"access_token"`
	ExpiresIn             int    `json:"expires_in"`
	RefreshToken          string `json:"refresh_token"`
	RefreshTokenExpiresIn int    `json:"refresh_token_expires_in"`
	TokenType             string `json:"token_type"`
}

type ebayErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ExchangeRefreshToken performs the refresh_token grant. A 400 invalid_grant
// means the refresh token is dead (terminal); rate limiting, 5xx and network
// failures are transient.
func (c *EbayClient) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.ClientID, c.ClientSecret)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &TransientError{Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// handled below
	case resp.StatusCode == http.StatusUnauthorized:
		// 401 on a refresh_token grant means the basic auth (client ID and
		// secret) was refused, not that the refresh token is dead.
		var errResp ebayErrorResponse
		_ = json.Unmarshal(body, &errResp)
		return nil, fmt.Errorf("%s: %w", errResp.ErrorDescription, ErrClientAuthRejected)
	case resp.StatusCode == http.StatusBadRequest:
		var errResp ebayErrorResponse
		_ = json.Unmarshal(body, &errResp)
		if errResp.Error == "invalid_grant" || errResp.Error == "invalid_token" {
			return nil, fmt.Errorf("%s: %w", errResp.ErrorDescription, ErrTokenExpiredOrRevoked)
		}
		return nil, fmt.Errorf("token endpoint rejected request: %s", errResp.Error)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &TransientError{Err: fmt.Errorf("token endpoint returned %d", resp.StatusCode)}
	default:
		return nil, fmt.Errorf("token endpoint returned unexpected status %d", resp.StatusCode)
	}

	var tokenResp ebayTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, &TransientError{Err: fmt.Errorf("malformed token response: %w", err)}
	}
	if tokenResp.AccessToken == "" {
		return nil, &TransientError{Err: fmt.Errorf("token response missing access_token")}
	}

	now := c.now()
	pair := &TokenPair{
		AccessToken:     tokenResp.AccessToken,
		AccessExpiresAt: now.Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
	}
	if tokenResp.RefreshToken != "" {
		pair.RefreshToken = tokenResp.RefreshToken
		pair.RefreshExpiresAt = now.Add(time.Duration(tokenResp.RefreshTokenExpiresIn) * time.Second)
	}

	return pair, nil
}
