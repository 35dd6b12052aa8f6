package auth_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/justxchange/go-backend/internal/model"
)

// MockUsers implements auth.Users
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) GetByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	args := m.Called(ctx, identifier)
	if user, ok := args.Get(0).(*model.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*model.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) Create(ctx context.Context, user *model.User) (*model.User, error) {
	args := m.Called(ctx, user)
	if created, ok := args.Get(0).(*model.User); ok {
		return created, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) SetSignupCode(ctx context.Context, id int64, code string, expiry time.Time) error {
	args := m.Called(ctx, id, code, expiry)
	return args.Error(0)
}

func (m *MockUsers) SetStepUpCode(ctx context.Context, id int64, code string, expiry time.Time) error {
	args := m.Called(ctx, id, code, expiry)
	return args.Error(0)
}

func (m *MockUsers) MarkVerified(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUsers) SaveRegistration(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUsers) SaveProfile(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUsers) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

// MockSender implements auth.CodeSender
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, to, code string) error {
	args := m.Called(ctx, to, code)
	return args.Error(0)
}
