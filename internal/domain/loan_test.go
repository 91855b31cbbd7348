package domain

import (
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customError "github.com/segyhp/loan-engine/pkg/errors"
)

func TestNewLoan(t *testing.T) {
	loan := NewLoan(7, LoanTerms{
		Principal:    decimal.NewFromInt(12000),
		TenureMonths: 12,
		AnnualRate:   decimal.NewFromInt(12),
	})

	assert.Equal(t, int64(7), loan.UserID)
	assert.Equal(t, LoanStatusActive, loan.Status)
	assert.True(t, loan.AmountPaid.IsZero())
	assert.False(t, loan.IsPriced())
	assert.False(t, loan.NextDueDate.Valid)
	assert.True(t, loan.AmountRemaining().IsZero())
}

func TestApplyTerms_OnlyOnce(t *testing.T) {
	loan := NewLoan(1, LoanTerms{Principal: decimal.NewFromInt(6000), TenureMonths: 6, AnnualRate: decimal.Zero})
	loan.ID = 3

	terms := PricedTerms{
		MonthlyInstallment: decimal.NewFromInt(1000),
		TotalInterest:      decimal.Zero,
		TotalAmount:        decimal.NewFromInt(6000),
		NextDueDate:        civil.Date{Year: 2024, Month: time.February, Day: 29},
	}

	require.NoError(t, loan.ApplyTerms(terms))
	assert.True(t, loan.IsPriced())

	due, ok := loan.DueDate()
	require.True(t, ok)
	assert.Equal(t, terms.NextDueDate, due)

	err := loan.ApplyTerms(PricedTerms{MonthlyInstallment: decimal.NewFromInt(1)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, customError.ErrLoanAlreadyPriced))
	assert.True(t, loan.MonthlyInstallment.Decimal.Equal(decimal.NewFromInt(1000)))
}

func TestAmountRemaining(t *testing.T) {
	loan := &Loan{
		TotalAmount: decimal.NewNullDecimal(decimal.RequireFromString("12794.28")),
		AmountPaid:  decimal.RequireFromString("3198.57"),
	}
	assert.Equal(t, "9595.71", loan.AmountRemaining().StringFixed(2))
}

func TestOwnedBy(t *testing.T) {
	loan := &Loan{UserID: 5}

	assert.True(t, loan.OwnedBy(Actor{UserID: 5}))
	assert.False(t, loan.OwnedBy(Actor{UserID: 6}))
	assert.True(t, loan.OwnedBy(Actor{UserID: 6, IsAdmin: true}))
}

func TestLoanID(t *testing.T) {
	assert.Equal(t, "LOAN001", (&Loan{ID: 1}).LoanID())
	assert.Equal(t, "LOAN120", (&Loan{ID: 120}).LoanID())
}

func TestUserOTP(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	user := &User{}

	assert.False(t, user.IsOTPValid(now, 5*time.Minute))

	user.SetOTP("123456", now)
	assert.True(t, user.IsOTPValid(now.Add(4*time.Minute), 5*time.Minute))
	assert.False(t, user.IsOTPValid(now.Add(5*time.Minute), 5*time.Minute))

	assert.True(t, user.OTPMatches("123456"))
	assert.False(t, user.OTPMatches("123457"))
	assert.False(t, user.OTPMatches("12345"))

	user.OTPAttempts = 2
	user.SetOTP("654321", now)
	assert.Zero(t, user.OTPAttempts)

	user.ClearOTP()
	assert.False(t, user.OTP.Valid)
	assert.False(t, user.OTPMatches(""))
	assert.False(t, user.IsOTPValid(now, 5*time.Minute))
}
