package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cucumber/godog"

	gormstore "github.com/sellerlink/sellerlink/pkg/store/gorm"
)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	response     *http.Response
	responseBody []byte
	authToken    string
	userIDs      map[string]uint
	accountIDs   map[string]uint
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	tc.TokenStub.Reset()
	return &StepsContext{
		tc:         tc,
		userIDs:    make(map[string]uint),
		accountIDs: make(map[string]uint),
	}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	// Background steps
	sc.Step(`^a SellerLink server is running$`, s.aServerIsRunning)
	sc.Step(`^a superuser "([^"]*)" exists with password "([^"]*)"$`, s.aSuperuserExists)
	sc.Step(`^a user "([^"]*)" exists with password "([^"]*)"$`, s.aUserExists)
	sc.Step(`^I am logged in as "([^"]*)" with password "([^"]*)"$`, s.iAmLoggedIn)

	// Account steps
	sc.Step(`^I register an account "([^"]*)" named "([^"]*)"$`, s.iRegisterAccount)
	sc.Step(`^an account "([^"]*)" exists$`, s.anAccountExists)
	sc.Step(`^I list accounts$`, s.iListAccounts)
	sc.Step(`^the account list should contain only "([^"]*)"$`, s.accountListShouldContainOnly)
	sc.Step(`^I delete the account "([^"]*)"$`, s.iDeleteAccount)
	sc.Step(`^account "([^"]*)" should not exist$`, s.accountShouldNotExist)

	// Role binding steps
	sc.Step(`^"([^"]*)" holds the "([^"]*)" role on "([^"]*)"$`, s.userHoldsRole)
	sc.Step(`^I grant "([^"]*)" the "([^"]*)" role on "([^"]*)"$`, s.iGrantRole)
	sc.Step(`^I change the role of "([^"]*)" on "([^"]*)" to "([^"]*)"$`, s.iChangeRole)
	sc.Step(`^I revoke the role of "([^"]*)" on "([^"]*)"$`, s.iRevokeRole)

	// Permission steps
	sc.Step(`^I check the "([^"]*)" permission on "([^"]*)"$`, s.iCheckPermission)
	sc.Step(`^the permission should be (allowed|denied)$`, s.permissionShouldBe)

	// Credential and token steps
	sc.Step(`^I store marketplace credentials on "([^"]*)"$`, s.iStoreCredentials)
	sc.Step(`^credentials with an expired access token exist on "([^"]*)"$`, s.expiredCredentialsExist)
	sc.Step(`^the token endpoint returns access token "([^"]*)"$`, s.tokenEndpointReturns)
	sc.Step(`^the token endpoint rejects the refresh token$`, s.tokenEndpointRejects)
	sc.Step(`^I request a fresh token for "([^"]*)"$`, s.iRequestFreshToken)
	sc.Step(`^the returned access token should be "([^"]*)"$`, s.returnedAccessTokenShouldBe)
	sc.Step(`^the token endpoint should not have been called$`, s.tokenEndpointNotCalled)

	// Response steps
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
}

// Background steps

func (s *StepsContext) aServerIsRunning() error {
	// Server is already running via TestContext
	return nil
}

func (s *StepsContext) aSuperuserExists(email, password string) error {
	s.tc.DB.Exec(`DELETE FROM users WHERE email = ?`, email)
	id, err := s.tc.Directory.CreateSuperuser(email, "Test", "Superuser", password)
	if err != nil {
		return err
	}
	s.userIDs[email] = id
	return nil
}

func (s *StepsContext) aUserExists(email, password string) error {
	s.tc.DB.Exec(`DELETE FROM users WHERE email = ?`, email)
	id, err := s.tc.Directory.CreateUser(email, "Test", "User", password)
	if err != nil {
		return err
	}
	s.userIDs[email] = id
	return nil
}

func (s *StepsContext) iAmLoggedIn(email, password string) error {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	if err := s.request("POST", "/authn/login", body); err != nil {
		return err
	}
	if s.response.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed with status %d: %s", s.response.StatusCode, string(s.responseBody))
	}

	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(s.responseBody, &login); err != nil {
		return fmt.Errorf("failed to parse login response: %w", err)
	}
	s.authToken = login.Token
	return nil
}

// Account steps

func (s *StepsContext) iRegisterAccount(externalID, displayName string) error {
	body, _ := json.Marshal(map[string]string{
		"external_id":  externalID,
		"display_name": displayName,
	})
	if err := s.request("POST", "/accounts", body); err != nil {
		return err
	}
	if s.response.StatusCode == http.StatusCreated {
		var account struct {
			ID uint `json:"id"`
		}
		if err := json.Unmarshal(s.responseBody, &account); err != nil {
			return err
		}
		s.accountIDs[externalID] = account.ID
	}
	return nil
}

func (s *StepsContext) anAccountExists(externalID string) error {
	if err := s.tc.DB.Exec(`
		INSERT INTO accounts (external_id, display_name, created_at, updated_at)
		VALUES (?, ?, NOW(), NOW()) ON CONFLICT DO NOTHING
	`, externalID, externalID).Error; err != nil {
		return err
	}

	var id uint
	if err := s.tc.DB.Raw(`SELECT id FROM accounts WHERE external_id = ?`, externalID).Scan(&id).Error; err != nil {
		return err
	}
	s.accountIDs[externalID] = id
	return nil
}

func (s *StepsContext) iListAccounts() error {
	return s.request("GET", "/accounts", nil)
}

func (s *StepsContext) accountListShouldContainOnly(externalID string) error {
	var accounts []struct {
		ExternalID string `json:"external_id"`
	}
	if err := json.Unmarshal(s.responseBody, &accounts); err != nil {
		return fmt.Errorf("failed to parse account list: %w", err)
	}
	if len(accounts) != 1 || accounts[0].ExternalID != externalID {
		return fmt.Errorf("expected only %q in account list, got %s", externalID, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) iDeleteAccount(externalID string) error {
	id, ok := s.accountIDs[externalID]
	if !ok {
		return fmt.Errorf("unknown account %q", externalID)
	}
	return s.request("DELETE", fmt.Sprintf("/accounts/%d", id), nil)
}

func (s *StepsContext) accountShouldNotExist(externalID string) error {
	var count int64
	if err := s.tc.DB.Raw(`SELECT COUNT(*) FROM accounts WHERE external_id = ?`, externalID).Scan(&count).Error; err != nil {
		return err
	}
	if count != 0 {
		return fmt.Errorf("account %q still exists", externalID)
	}
	return nil
}

// Role binding steps

func (s *StepsContext) userHoldsRole(email, role, externalID string) error {
	userID, ok := s.userIDs[email]
	if !ok {
		return fmt.Errorf("unknown user %q", email)
	}
	accountID, ok := s.accountIDs[externalID]
	if !ok {
		return fmt.Errorf("unknown account %q", externalID)
	}
	return s.tc.DB.Exec(`
		INSERT INTO role_bindings (user_id, account_id, role, created_at, updated_at)
		VALUES (?, ?, ?, NOW(), NOW())
		ON CONFLICT (user_id, account_id) DO UPDATE SET role = EXCLUDED.role
	`, userID, accountID, role).Error
}

func (s *StepsContext) iGrantRole(email, role, externalID string) error {
	userID, ok := s.userIDs[email]
	if !ok {
		return fmt.Errorf("unknown user %q", email)
	}
	accountID, ok := s.accountIDs[externalID]
	if !ok {
		return fmt.Errorf("unknown account %q", externalID)
	}
	body, _ := json.Marshal(map[string]interface{}{"user_id": userID, "role": role})
	return s.request("POST", fmt.Sprintf("/accounts/%d/bindings", accountID), body)
}

func (s *StepsContext) iChangeRole(email, externalID, role string) error {
	userID, ok := s.userIDs[email]
	if !ok {
		return fmt.Errorf("unknown user %q", email)
	}
	accountID, ok := s.accountIDs[externalID]
	if !ok {
		return fmt.Errorf("unknown account %q", externalID)
	}
	body, _ := json.Marshal(map[string]string{"role": role})
	return s.request("PUT", fmt.Sprintf("/accounts/%d/bindings/%d", accountID, userID), body)
}

func (s *StepsContext) iRevokeRole(email, externalID string) error {
	userID, ok := s.userIDs[email]
	if !ok {
		return fmt.Errorf("unknown user %q", email)
	}
	accountID, ok := s.accountIDs[externalID]
	if !ok {
		return fmt.Errorf("unknown account %q", externalID)
	}
	return s.request("DELETE", fmt.Sprintf("/accounts/%d/bindings/%d", accountID, userID), nil)
}

// Permission steps

func (s *StepsContext) iCheckPermission(action, externalID string) error {
	accountID, ok := s.accountIDs[externalID]
	if !ok {
		return fmt.Errorf("unknown account %q", externalID)
	}
	return s.request("GET", fmt.Sprintf("/accounts/%d/permissions/%s", accountID, action), nil)
}

func (s *StepsContext) permissionShouldBe(verdict string) error {
	var result struct {
		Allowed bool `json:"allowed"`
	}
	if err := json.Unmarshal(s.responseBody, &result); err != nil {
		return fmt.Errorf("failed to parse permission response: %w", err)
	}
	if want := verdict == "allowed"; result.Allowed != want {
		return fmt.Errorf("expected permission %s, got %s", verdict, string(s.responseBody))
	}
	return nil
}

// Credential and token steps

func (s *StepsContext) iStoreCredentials(externalID string) error {
	accountID, ok := s.accountIDs[externalID]
	if !ok {
		return fmt.Errorf("unknown account %q", externalID)
	}
	now := time.Now()
	body, _ := json.Marshal(map[string]interface{}{
		"access_token":       "seeded-access-token",
		"access_expires_at":  now.Add(2 * time.Hour),
		"refresh_token":      "seeded-refresh-token",
		"refresh_expires_at": now.Add(540 * 24 * time.Hour),
	})
	return s.request("PUT", fmt.Sprintf("/accounts/%d/credentials", accountID), body)
}

func (s *StepsContext) expiredCredentialsExist(externalID string) error {
	accountID, ok := s.accountIDs[externalID]
	if !ok {
		return fmt.Errorf("unknown account %q", externalID)
	}
	credentials := gormstore.NewCredentialsStore(s.tc.DB)
	now := time.Now()
	return credentials.Store(accountID,
		[]byte("stale-access-token"), now.Add(-time.Hour),
		[]byte("live-refresh-token"), now.Add(30*24*time.Hour),
	)
}

func (s *StepsContext) tokenEndpointReturns(accessToken string) error {
	s.tc.TokenStub.Respond(accessToken)
	return nil
}

func (s *StepsContext) tokenEndpointRejects() error {
	s.tc.TokenStub.Fail(http.StatusBadRequest, "invalid_grant")
	return nil
}

func (s *StepsContext) iRequestFreshToken(externalID string) error {
	accountID, ok := s.accountIDs[externalID]
	if !ok {
		return fmt.Errorf("unknown account %q", externalID)
	}
	return s.request("GET", fmt.Sprintf("/accounts/%d/token", accountID), nil)
}

func (s *StepsContext) returnedAccessTokenShouldBe(expected string) error {
	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(s.responseBody, &result); err != nil {
		return fmt.Errorf("failed to parse token response: %w", err)
	}
	if result.AccessToken != expected {
		return fmt.Errorf("expected access token %q, got %q", expected, result.AccessToken)
	}
	return nil
}

func (s *StepsContext) tokenEndpointNotCalled() error {
	if calls := s.tc.TokenStub.Calls(); calls != 0 {
		return fmt.Errorf("expected no token exchanges, got %d", calls)
	}
	return nil
}

// Response steps

func (s *StepsContext) theResponseStatusShouldBe(expectedStatus int) error {
	if s.response.StatusCode != expectedStatus {
		return fmt.Errorf("expected status %d, got %d: %s", expectedStatus, s.response.StatusCode, string(s.responseBody))
	}
	return nil
}

// request performs an HTTP request against the test server with the current
// session token and captures the response.
func (s *StepsContext) request(method, path string, body []byte) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, s.tc.ServerURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	s.response, err = s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}

	s.responseBody, err = io.ReadAll(s.response.Body)
	_ = s.response.Body.Close()
	return err
}
