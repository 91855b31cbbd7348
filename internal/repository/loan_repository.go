package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/segyhp/loan-engine/internal/domain"

	"github.com/jmoiron/sqlx"
)

var ErrNestedTx = errors.New("loan repository is already bound to a transaction")

const loanColumns = `id, user_id, amount, tenure, interest_rate, monthly_installment, total_interest,
		total_amount, amount_paid, next_due_date, status, created_at, updated_at`

type loanRepository struct {
	db *sqlx.DB
	q  sqlx.ExtContext
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db, q: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (user_id, amount, tenure, interest_rate, monthly_installment, total_interest,
			total_amount, amount_paid, next_due_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`

	return r.q.QueryRowxContext(ctx, query,
		loan.UserID,
		loan.Amount,
		loan.TenureMonths,
		loan.InterestRate,
		loan.MonthlyInstallment,
		loan.TotalInterest,
		loan.TotalAmount,
		loan.AmountPaid,
		loan.NextDueDate,
		loan.Status,
	).Scan(&loan.ID, &loan.CreatedAt, &loan.UpdatedAt)
}

func (r *loanRepository) GetByID(ctx context.Context, id int64) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	var loan domain.Loan
	err := sqlx.GetContext(ctx, r.q, &loan, query, id)
	if err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) getByIDForUpdate(ctx context.Context, id int64) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`

	var loan domain.Loan
	err := sqlx.GetContext(ctx, r.q, &loan, query, id)
	if err != nil {
		return nil, err
	}

	return &loan, nil
}

// Update writes the fields that may change after creation. Amount, tenure and
// rate are immutable and never rewritten. The database stamps updated_at, which
// callers use as the row's version.
func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	query := `
		UPDATE loans
		SET monthly_installment = $2, total_interest = $3, total_amount = $4, amount_paid = $5,
			next_due_date = $6, status = $7, updated_at = clock_timestamp()
		WHERE id = $1
		RETURNING updated_at
	`

	return r.q.QueryRowxContext(ctx, query,
		loan.ID,
		loan.MonthlyInstallment,
		loan.TotalInterest,
		loan.TotalAmount,
		loan.AmountPaid,
		loan.NextDueDate,
		loan.Status,
	).Scan(&loan.UpdatedAt)
}

func (r *loanRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM loans WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *loanRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	loans := []*domain.Loan{}
	err := sqlx.SelectContext(ctx, r.q, &loans, query, userID)
	if err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) ListAll(ctx context.Context) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans ORDER BY created_at DESC, id DESC`

	loans := []*domain.Loan{}
	err := sqlx.SelectContext(ctx, r.q, &loans, query)
	if err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) ListDueBetween(ctx context.Context, from, to time.Time) ([]*domain.DueReminder, error) {
	query := `
		SELECT l.id AS loan_id, u.username, u.email, l.monthly_installment, l.next_due_date
		FROM loans l
		JOIN users u ON u.id = l.user_id
		WHERE l.status = $1 AND l.next_due_date BETWEEN $2 AND $3
		ORDER BY l.next_due_date, l.id
	`

	reminders := []*domain.DueReminder{}
	err := sqlx.SelectContext(ctx, r.q, &reminders, query, domain.LoanStatusActive, from, to)
	if err != nil {
		return nil, err
	}

	return reminders, nil
}

func (r *loanRepository) WithinLoanTx(ctx context.Context, id int64, fn func(repo LoanRepository, loan *domain.Loan) error) error {
	if r.db == nil {
		return ErrNestedTx
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	txRepo := &loanRepository{q: tx}

	// lock the loan row up-front so concurrent mutations serialize
	loan, err := txRepo.getByIDForUpdate(ctx, id)
	if err != nil {
		return err
	}

	if err := fn(txRepo, loan); err != nil {
		return err
	}

	return tx.Commit()
}
