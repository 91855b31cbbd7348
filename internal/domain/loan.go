package domain

import (
	"database/sql"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	customError "github.com/segyhp/loan-engine/pkg/errors"
	"github.com/segyhp/loan-engine/pkg/utils"
)

const (
	LoanStatusActive = "ACTIVE"
	LoanStatusClosed = "CLOSED"
)

// Loan represents a loan entity. MonthlyInstallment, TotalInterest, TotalAmount
// and NextDueDate stay null until the loan is priced.
type Loan struct {
	ID                 int64               `json:"id" db:"id"`
	UserID             int64               `json:"user_id" db:"user_id"`
	Amount             decimal.Decimal     `json:"amount" db:"amount"`
	TenureMonths       int                 `json:"tenure" db:"tenure"`
	InterestRate       decimal.Decimal     `json:"interest_rate" db:"interest_rate"`
	MonthlyInstallment decimal.NullDecimal `json:"monthly_installment" db:"monthly_installment"`
	TotalInterest      decimal.NullDecimal `json:"total_interest" db:"total_interest"`
	TotalAmount        decimal.NullDecimal `json:"total_amount" db:"total_amount"`
	AmountPaid         decimal.Decimal     `json:"amount_paid" db:"amount_paid"`
	NextDueDate        sql.NullTime        `json:"next_due_date" db:"next_due_date"`
	Status             string              `json:"status" db:"status"`
	CreatedAt          time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at" db:"updated_at"`
}

// LoanTerms are the caller supplied inputs of a loan.
type LoanTerms struct {
	Principal    decimal.Decimal
	TenureMonths int
	AnnualRate   decimal.Decimal // percentage, 12 means 12% a year
}

// PricedTerms are the values derived from LoanTerms at creation time.
type PricedTerms struct {
	MonthlyInstallment decimal.Decimal
	TotalInterest      decimal.Decimal
	TotalAmount        decimal.Decimal
	NextDueDate        civil.Date
}

// Settlement is the outcome of a foreclosure.
type Settlement struct {
	Discount              decimal.Decimal
	FinalSettlementAmount decimal.Decimal
	Status                string
}

// NewLoan builds an unpriced, active loan for the given owner.
func NewLoan(userID int64, terms LoanTerms) *Loan {
	return &Loan{
		UserID:       userID,
		Amount:       terms.Principal,
		TenureMonths: terms.TenureMonths,
		InterestRate: terms.AnnualRate,
		AmountPaid:   decimal.Zero,
		Status:       LoanStatusActive,
	}
}

// Terms returns the inputs the loan was created with.
func (l *Loan) Terms() LoanTerms {
	return LoanTerms{
		Principal:    l.Amount,
		TenureMonths: l.TenureMonths,
		AnnualRate:   l.InterestRate,
	}
}

// LoanID is the public identifier, e.g. LOAN001.
func (l *Loan) LoanID() string {
	return utils.FormatLoanID(l.ID)
}

func (l *Loan) IsPriced() bool {
	return l.MonthlyInstallment.Valid && l.TotalInterest.Valid && l.TotalAmount.Valid
}

func (l *Loan) IsClosed() bool {
	return l.Status == LoanStatusClosed
}

// ApplyTerms stores the derived terms on the loan. Terms are set once; a loan
// that already carries them is rejected so committed terms are never overwritten.
func (l *Loan) ApplyTerms(p PricedTerms) error {
	if l.IsPriced() {
		return customError.WrapLoanAlreadyPriced(l.LoanID())
	}

	l.MonthlyInstallment = decimal.NewNullDecimal(p.MonthlyInstallment)
	l.TotalInterest = decimal.NewNullDecimal(p.TotalInterest)
	l.TotalAmount = decimal.NewNullDecimal(p.TotalAmount)
	l.NextDueDate = sql.NullTime{Time: utils.DateToTime(p.NextDueDate), Valid: true}
	return nil
}

// DueDate returns next_due_date as a calendar date.
func (l *Loan) DueDate() (civil.Date, bool) {
	if !l.NextDueDate.Valid {
		return civil.Date{}, false
	}
	return civil.DateOf(l.NextDueDate.Time), true
}

// AmountRemaining is total_amount - amount_paid, zero for an unpriced loan.
func (l *Loan) AmountRemaining() decimal.Decimal {
	if !l.TotalAmount.Valid {
		return decimal.Zero
	}
	return l.TotalAmount.Decimal.Sub(l.AmountPaid).Round(2)
}

// OwnedBy reports whether actor may read or foreclose the loan.
func (l *Loan) OwnedBy(actor Actor) bool {
	return actor.IsAdmin || actor.UserID == l.UserID
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	Amount       decimal.Decimal `json:"amount" validate:"decimal_gt=0"`
	Tenure       int             `json:"tenure" validate:"required,gt=0"`
	InterestRate decimal.Decimal `json:"interest_rate" validate:"decimal_gt=0"`
}

// Terms converts the request into loan terms.
func (r *CreateLoanRequest) Terms() LoanTerms {
	return LoanTerms{
		Principal:    r.Amount,
		TenureMonths: r.Tenure,
		AnnualRate:   r.InterestRate,
	}
}

// LoanView is the caller facing representation of a loan.
type LoanView struct {
	LoanID             string              `json:"loan_id"`
	Amount             decimal.Decimal     `json:"amount"`
	Tenure             int                 `json:"tenure"`
	InterestRate       decimal.Decimal     `json:"interest_rate"`
	MonthlyInstallment decimal.NullDecimal `json:"monthly_installment"`
	TotalInterest      decimal.NullDecimal `json:"total_interest"`
	TotalAmount        decimal.NullDecimal `json:"total_amount"`
	AmountPaid         decimal.Decimal     `json:"amount_paid"`
	AmountRemaining    decimal.Decimal     `json:"amount_remaining"`
	NextDueDate        *civil.Date         `json:"next_due_date"`
	Status             string              `json:"status"`
	CreatedAt          time.Time           `json:"created_at"`
	PaymentSchedule    []Installment       `json:"payment_schedule"`
}

type ForeclosureResponse struct {
	LoanID                string          `json:"loan_id"`
	AmountPaid            decimal.Decimal `json:"amount_paid"`
	ForeclosureDiscount   decimal.Decimal `json:"foreclosure_discount"`
	FinalSettlementAmount decimal.Decimal `json:"final_settlement_amount"`
	Status                string          `json:"status"`
}
