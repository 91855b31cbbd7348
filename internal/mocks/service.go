package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/segyhp/loan-engine/internal/domain"
)

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) CreateLoan(ctx context.Context, actor domain.Actor, request *domain.CreateLoanRequest) (*domain.LoanView, error) {
	args := m.Called(ctx, actor, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanView), args.Error(1)
}

func (m *MockLoanService) GetLoan(ctx context.Context, actor domain.Actor, id int64) (*domain.LoanView, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanView), args.Error(1)
}

func (m *MockLoanService) ListLoans(ctx context.Context, actor domain.Actor) ([]*domain.LoanView, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanView), args.Error(1)
}

func (m *MockLoanService) ListAllLoans(ctx context.Context, actor domain.Actor) ([]*domain.LoanView, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanView), args.Error(1)
}

func (m *MockLoanService) DeleteLoan(ctx context.Context, actor domain.Actor, id int64) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

func (m *MockLoanService) ForecloseLoan(ctx context.Context, actor domain.Actor, id int64) (*domain.ForeclosureResponse, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ForeclosureResponse), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, request *domain.RegisterRequest) (*domain.User, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAuthService) VerifyOTP(ctx context.Context, request *domain.VerifyOTPRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockAuthService) ResendOTP(ctx context.Context, request *domain.ResendOTPRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockAuthService) Login(ctx context.Context, request *domain.LoginRequest) (*domain.LoginResponse, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoginResponse), args.Error(1)
}

func (m *MockAuthService) Authenticate(token string) (domain.Actor, error) {
	args := m.Called(token)
	return args.Get(0).(domain.Actor), args.Error(1)
}

// NewMockLoanService creates a new mock loan service instance
func NewMockLoanService() *MockLoanService {
	return &MockLoanService{}
}

// NewMockAuthService creates a new mock auth service instance
func NewMockAuthService() *MockAuthService {
	return &MockAuthService{}
}
