package repository

import (
	"context"
	"time"

	"github.com/segyhp/loan-engine/internal/domain"
)

// LoanRepository defines the interface for loan data operations.
// Lookups return sql.ErrNoRows when nothing matches.
type LoanRepository interface {
	// Create inserts a new loan and fills in its id and timestamps
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan by its numeric id
	GetByID(ctx context.Context, id int64) (*domain.Loan, error)

	// Update persists the mutable fields of a loan
	Update(ctx context.Context, loan *domain.Loan) error

	// Delete removes a loan
	Delete(ctx context.Context, id int64) error

	// ListByUser returns the loans owned by a user, newest first
	ListByUser(ctx context.Context, userID int64) ([]*domain.Loan, error)

	// ListAll returns every loan, newest first
	ListAll(ctx context.Context) ([]*domain.Loan, error)

	// ListDueBetween returns active loans whose next due date falls within [from, to]
	ListDueBetween(ctx context.Context, from, to time.Time) ([]*domain.DueReminder, error)

	// WithinLoanTx locks the loan row and runs fn inside one transaction.
	// The repository handed to fn is bound to that transaction.
	WithinLoanTx(ctx context.Context, id int64, fn func(repo LoanRepository, loan *domain.Loan) error) error
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create inserts a new user and fills in its id and creation time
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by id
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByUsernameOrEmail matches the username first, then the email
	GetByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*domain.User, error)

	// ExistsByUsernameOrEmail reports which of the two identifiers is already taken
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error)

	// Update persists verification and OTP state
	Update(ctx context.Context, user *domain.User) error

	// RecordFailedOTPAttempt counts a wrong code and returns the new count.
	// The OTP is dropped once the count reaches maxAttempts.
	RecordFailedOTPAttempt(ctx context.Context, userID int64, maxAttempts int) (int, error)

	// ClearExpiredOTPs drops OTPs issued before the cutoff and returns how many were cleared
	ClearExpiredOTPs(ctx context.Context, issuedBefore time.Time) (int64, error)
}
