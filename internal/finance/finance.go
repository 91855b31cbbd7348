// Package finance holds the loan arithmetic: amortized pricing, foreclosure
// settlement and payment schedules. Every function is pure; persistence is the
// caller's job.
package finance

import (
	"iter"
	"slices"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-engine/internal/domain"
	customError "github.com/segyhp/loan-engine/pkg/errors"
	"github.com/segyhp/loan-engine/pkg/utils"
)

// divisionPrecision is the number of fractional digits kept by intermediate divisions.
const divisionPrecision = 28

var (
	percentPerMonth = decimal.NewFromInt(100 * 12)

	// DefaultForeclosureDiscount is the share of the remaining interest waived on foreclosure.
	DefaultForeclosureDiscount = decimal.RequireFromString("0.05")
)

// MonthlyRate converts an annual percentage rate to a monthly fraction (12 -> 0.01).
func MonthlyRate(annualRate decimal.Decimal) decimal.Decimal {
	return annualRate.DivRound(percentPerMonth, divisionPrecision)
}

// MonthlyInstallment computes the fixed installment that repays principal over
// tenureMonths with compound interest. A zero rate degenerates to principal / tenure.
// The result is not rounded.
func MonthlyInstallment(principal decimal.Decimal, tenureMonths int, monthlyRate decimal.Decimal) decimal.Decimal {
	n := decimal.NewFromInt(int64(tenureMonths))
	if !monthlyRate.IsPositive() {
		return principal.DivRound(n, divisionPrecision)
	}

	// (1 + r)^n
	growth := decimal.NewFromInt(1).Add(monthlyRate).Pow(n)
	return principal.Mul(monthlyRate).Mul(growth).
		DivRound(growth.Sub(decimal.NewFromInt(1)), divisionPrecision)
}

// Price derives the installment, totals and first due date of a new loan.
// The installment is rounded to cents before the totals are derived from it, so
// total_amount is exactly what the borrower pays over the schedule.
func Price(terms domain.LoanTerms, today civil.Date) (domain.PricedTerms, error) {
	if terms.TenureMonths <= 0 {
		return domain.PricedTerms{}, customError.WrapInvalidInput("tenure must be a positive number of months")
	}
	if !terms.Principal.IsPositive() {
		return domain.PricedTerms{}, customError.WrapInvalidInput("principal must be positive")
	}
	if terms.AnnualRate.IsNegative() {
		return domain.PricedTerms{}, customError.WrapInvalidInput("interest rate must not be negative")
	}

	installment := MonthlyInstallment(terms.Principal, terms.TenureMonths, MonthlyRate(terms.AnnualRate)).RoundBank(2)
	totalInterest := installment.Mul(decimal.NewFromInt(int64(terms.TenureMonths))).Sub(terms.Principal).RoundBank(2)
	totalAmount := terms.Principal.Add(totalInterest).RoundBank(2)

	return domain.PricedTerms{
		MonthlyInstallment: installment,
		TotalInterest:      totalInterest,
		TotalAmount:        totalAmount,
		NextDueDate:        utils.AddMonths(today, 1),
	}, nil
}

// Foreclose settles an active loan early. The interest still to accrue is
// apportioned linearly over the remaining months and discountRate of it is waived.
// The returned loan is closed and fully paid; the input is left untouched.
func Foreclose(loan domain.Loan, discountRate decimal.Decimal) (domain.Loan, domain.Settlement, error) {
	if loan.IsClosed() {
		return loan, domain.Settlement{}, customError.WrapLoanAlreadyClosed(loan.LoanID())
	}
	if !loan.IsPriced() || loan.TenureMonths <= 0 || !loan.MonthlyInstallment.Decimal.IsPositive() {
		return loan, domain.Settlement{}, customError.WrapInvalidInput("loan terms have not been calculated")
	}

	n := decimal.NewFromInt(int64(loan.TenureMonths))
	installment := loan.MonthlyInstallment.Decimal
	totalInterest := loan.TotalInterest.Decimal
	totalAmount := loan.TotalAmount.Decimal

	monthsPaid := loan.AmountPaid.DivRound(installment, divisionPrecision)
	remainingMonths := decimal.Max(n.Sub(monthsPaid), decimal.Zero)

	remainingInterest := totalInterest.DivRound(n, divisionPrecision).Mul(remainingMonths)
	discount := remainingInterest.Mul(discountRate)
	settlement := totalAmount.Sub(loan.AmountPaid).Sub(discount)

	closed := loan
	closed.Status = domain.LoanStatusClosed
	closed.AmountPaid = totalAmount

	return closed, domain.Settlement{
		Discount:              discount.RoundBank(2),
		FinalSettlementAmount: settlement.RoundBank(2),
		Status:                closed.Status,
	}, nil
}

// Schedule yields the loan's installments, the first due on start and each
// following one a calendar month after the one before it. A date clamped to a
// short month carries the clamped day forward (Jan 31, Feb 29, Mar 29). The
// sequence can be ranged over any number of times. An unpriced loan has no schedule.
func Schedule(loan domain.Loan, start civil.Date) iter.Seq[domain.Installment] {
	return func(yield func(domain.Installment) bool) {
		if !loan.MonthlyInstallment.Valid {
			return
		}
		due := start
		for i := 1; i <= loan.TenureMonths; i++ {
			entry := domain.Installment{
				InstallmentNo: i,
				DueDate:       due,
				Amount:        loan.MonthlyInstallment.Decimal,
			}
			if !yield(entry) {
				return
			}
			due = utils.AddMonths(due, 1)
		}
	}
}

// ScheduleSlice collects Schedule into a slice.
func ScheduleSlice(loan domain.Loan, start civil.Date) []domain.Installment {
	out := slices.Collect(Schedule(loan, start))
	if out == nil {
		return []domain.Installment{}
	}
	return out
}
