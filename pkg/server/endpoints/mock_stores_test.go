package endpoints

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sellerlink/sellerlink/pkg/model"
	"github.com/sellerlink/sellerlink/pkg/refresh"
	"github.com/sellerlink/sellerlink/pkg/store"
)

// MockAccountsStore implements store.AccountsStore using testify/mock
type MockAccountsStore struct {
	mock.Mock
}

func (m *MockAccountsStore) Register(externalID, displayName string) (*store.Account, error) {
	args := m.Called(externalID, displayName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Account), args.Error(1)
}

func (m *MockAccountsStore) Find(externalID string) (*store.Account, error) {
	args := m.Called(externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Account), args.Error(1)
}

func (m *MockAccountsStore) FindByID(accountID uint) (*store.Account, error) {
	args := m.Called(accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Account), args.Error(1)
}

func (m *MockAccountsStore) List() ([]store.Account, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Account), args.Error(1)
}

func (m *MockAccountsStore) Delete(accountID uint) error {
	args := m.Called(accountID)
	return args.Error(0)
}

// MockCredentialsStore implements store.CredentialsStore using testify/mock
type MockCredentialsStore struct {
	mock.Mock
}

func (m *MockCredentialsStore) Store(accountID uint, accessToken []byte, accessExpiresAt time.Time, refreshToken []byte, refreshExpiresAt time.Time) error {
	args := m.Called(accountID, accessToken, accessExpiresAt, refreshToken, refreshExpiresAt)
	return args.Error(0)
}

func (m *MockCredentialsStore) ReadDecrypted(accountID uint) (*store.Credential, error) {
	args := m.Called(accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Credential), args.Error(1)
}

func (m *MockCredentialsStore) IsAccessExpired(accountID uint, now time.Time) (bool, error) {
	args := m.Called(accountID, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockCredentialsStore) IsRefreshExpired(accountID uint, now time.Time) (bool, error) {
	args := m.Called(accountID, now)
	return args.Bool(0), args.Error(1)
}

// MockBindingsStore implements store.RoleBindingsStore using testify/mock
type MockBindingsStore struct {
	mock.Mock
}

func (m *MockBindingsStore) Grant(userID, accountID uint, role model.Role) (*store.RoleBinding, error) {
	args := m.Called(userID, accountID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.RoleBinding), args.Error(1)
}

func (m *MockBindingsStore) UpdateRole(userID, accountID uint, newRole model.Role) error {
	args := m.Called(userID, accountID, newRole)
	return args.Error(0)
}

func (m *MockBindingsStore) Revoke(userID, accountID uint) error {
	args := m.Called(userID, accountID)
	return args.Error(0)
}

func (m *MockBindingsStore) Find(userID, accountID uint) (*store.RoleBinding, error) {
	args := m.Called(userID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.RoleBinding), args.Error(1)
}

func (m *MockBindingsStore) ListForAccount(accountID uint) ([]store.RoleBinding, error) {
	args := m.Called(accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.RoleBinding), args.Error(1)
}

func (m *MockBindingsStore) ListForUser(userID uint) ([]store.RoleBinding, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.RoleBinding), args.Error(1)
}

// MockHealthStore implements store.HealthStore using testify/mock
type MockHealthStore struct {
	mock.Mock
}

func (m *MockHealthStore) CheckConnectivity() error {
	args := m.Called()
	return args.Error(0)
}

// MockDirectory implements server.UserDirectory using testify/mock
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) Authenticate(email, password string) (*model.User, error) {
	args := m.Called(email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockDirectory) FindByID(userID uint) (*model.User, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockDirectory) FindByEmail(email string) (*model.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockDirectory) CreateUser(email, firstName, lastName, password string) (uint, error) {
	args := m.Called(email, firstName, lastName, password)
	return args.Get(0).(uint), args.Error(1)
}

// MockRefresher implements server.TokenRefresher using testify/mock
type MockRefresher struct {
	mock.Mock
}

func (m *MockRefresher) EnsureFresh(ctx context.Context, accountID uint) (string, error) {
	args := m.Called(ctx, accountID)
	return args.String(0), args.Error(1)
}

func (m *MockRefresher) State(accountID uint) (refresh.State, error) {
	args := m.Called(accountID)
	return args.Get(0).(refresh.State), args.Error(1)
}
