package repository

import (
	"context"
	"time"

	"github.com/segyhp/loan-engine/internal/domain"

	"github.com/jmoiron/sqlx"
)

const userColumns = `id, username, email, password_hash, is_verified, is_admin, otp, otp_created_at, otp_attempts, created_at`

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, is_verified, is_admin, otp, otp_created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	return r.db.QueryRowxContext(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.IsVerified,
		user.IsAdmin,
		user.OTP,
		user.OTPCreatedAt,
	).Scan(&user.ID, &user.CreatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userRepository) GetByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1 OR email = $1
		ORDER BY (username = $1) DESC
		LIMIT 1
	`

	var user domain.User
	err := r.db.GetContext(ctx, &user, query, usernameOrEmail)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, bool, error) {
	query := `
		SELECT
			EXISTS (SELECT 1 FROM users WHERE username = $1) AS username_taken,
			EXISTS (SELECT 1 FROM users WHERE email = $2) AS email_taken
	`

	var row struct {
		UsernameTaken bool `db:"username_taken"`
		EmailTaken    bool `db:"email_taken"`
	}
	if err := r.db.GetContext(ctx, &row, query, username, email); err != nil {
		return false, false, err
	}

	return row.UsernameTaken, row.EmailTaken, nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET is_verified = $2, is_admin = $3, otp = $4, otp_created_at = $5, otp_attempts = $6
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.IsVerified,
		user.IsAdmin,
		user.OTP,
		user.OTPCreatedAt,
		user.OTPAttempts,
	)
	return err
}

// RecordFailedOTPAttempt counts a wrong code in a single statement, so
// concurrent guesses are all counted. Reaching maxAttempts drops the OTP.
func (r *userRepository) RecordFailedOTPAttempt(ctx context.Context, userID int64, maxAttempts int) (int, error) {
	query := `
		UPDATE users
		SET otp_attempts = otp_attempts + 1,
			otp = CASE WHEN otp_attempts + 1 >= $2 THEN NULL ELSE otp END,
			otp_created_at = CASE WHEN otp_attempts + 1 >= $2 THEN NULL ELSE otp_created_at END
		WHERE id = $1
		RETURNING otp_attempts
	`

	var attempts int
	if err := r.db.QueryRowxContext(ctx, query, userID, maxAttempts).Scan(&attempts); err != nil {
		return 0, err
	}
	return attempts, nil
}

func (r *userRepository) ClearExpiredOTPs(ctx context.Context, issuedBefore time.Time) (int64, error) {
	query := `
		UPDATE users
		SET otp = NULL, otp_created_at = NULL, otp_attempts = 0
		WHERE otp_created_at IS NOT NULL AND otp_created_at < $1
	`

	result, err := r.db.ExecContext(ctx, query, issuedBefore)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
