package mocks

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/loan-engine/internal/cache"
	"github.com/segyhp/loan-engine/internal/domain"
	"github.com/segyhp/loan-engine/internal/notify"
	"github.com/segyhp/loan-engine/internal/repository"
)

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByID(ctx context.Context, id int64) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLoanRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Loan, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) ListAll(ctx context.Context) ([]*domain.Loan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) ListDueBetween(ctx context.Context, from, to time.Time) ([]*domain.DueReminder, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DueReminder), args.Error(1)
}

// WithinLoanTx hands the configured loan to fn with the mock itself as the
// transactional repository. When no loan is configured the configured error is returned.
func (m *MockLoanRepository) WithinLoanTx(ctx context.Context, id int64, fn func(repo repository.LoanRepository, loan *domain.Loan) error) error {
	args := m.Called(ctx, id)
	if loan, ok := args.Get(0).(*domain.Loan); ok && loan != nil {
		return fn(m, loan)
	}
	return args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*domain.User, error) {
	args := m.Called(ctx, usernameOrEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, bool, error) {
	args := m.Called(ctx, username, email)
	return args.Bool(0), args.Bool(1), args.Error(2)
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) RecordFailedOTPAttempt(ctx context.Context, userID int64, maxAttempts int) (int, error) {
	args := m.Called(ctx, userID, maxAttempts)
	return args.Int(0), args.Error(1)
}

func (m *MockUserRepository) ClearExpiredOTPs(ctx context.Context, issuedBefore time.Time) (int64, error) {
	args := m.Called(ctx, issuedBefore)
	return args.Get(0).(int64), args.Error(1)
}

type MockLoanCache struct {
	mock.Mock
}

func (m *MockLoanCache) Get(ctx context.Context, loanID int64, today civil.Date) (*cache.CachedLoan, error) {
	args := m.Called(ctx, loanID, today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cache.CachedLoan), args.Error(1)
}

func (m *MockLoanCache) Set(ctx context.Context, loanID int64, today civil.Date, cached *cache.CachedLoan) error {
	args := m.Called(ctx, loanID, today, cached)
	return args.Error(0)
}

func (m *MockLoanCache) Invalidate(ctx context.Context, loanID int64, version time.Time) error {
	args := m.Called(ctx, loanID, version)
	return args.Error(0)
}

func (m *MockLoanCache) Delete(ctx context.Context, loanID int64) error {
	args := m.Called(ctx, loanID)
	return args.Error(0)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg notify.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
