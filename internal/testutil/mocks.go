package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/EgehanKilicarslan/mbs-auth/internal/database/models"
	"github.com/EgehanKilicarslan/mbs-auth/internal/database/service"
	"github.com/EgehanKilicarslan/mbs-auth/internal/security"
)

// ==================== MOCK AUTH SERVICE ====================

// MockAuthService implements service.AuthService for testing
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, username, password string, rememberMe bool) (*security.Principal, *service.TokenPair, error) {
	args := m.Called(ctx, username, password, rememberMe)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*security.Principal), args.Get(1).(*service.TokenPair), args.Error(2)
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*security.Principal, *service.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*security.Principal), args.Get(1).(*service.TokenPair), args.Error(2)
}

func (m *MockAuthService) Authorize(ctx context.Context, accessToken string) (*security.Principal, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*security.Principal), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, principal *security.Principal) error {
	args := m.Called(ctx, principal)
	return args.Error(0)
}

func (m *MockAuthService) RevokeUserTokens(ctx context.Context, userID uint) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

// ==================== MOCK TOKEN STORE ====================

// MockTokenStore implements repository.TokenStore for testing. Transaction
// runs fn directly.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *MockTokenStore) ExistsActiveRefreshToken(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockTokenStore) FindActiveAccessToken(ctx context.Context, id string) (*models.AccessToken, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccessToken), args.Error(1)
}

func (m *MockTokenStore) FindRefreshParent(ctx context.Context, accessID, refreshID string) (*models.AccessToken, error) {
	args := m.Called(ctx, accessID, refreshID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccessToken), args.Error(1)
}

func (m *MockTokenStore) Save(ctx context.Context, token *models.AccessToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockTokenStore) SetStatus(ctx context.Context, token *models.AccessToken, status models.Status) error {
	args := m.Called(ctx, token, status)
	return args.Error(0)
}

func (m *MockTokenStore) RevokeAllForUser(ctx context.Context, userID uint) ([]models.AccessToken, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AccessToken), args.Error(1)
}

// ==================== MOCK USER DIRECTORY ====================

// MockUserDirectory implements service.UserDirectory for testing
type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) FindActiveUserByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
