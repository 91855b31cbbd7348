package domain

import (
	"crypto/subtle"
	"database/sql"
	"time"
)

// User represents a registered borrower or administrator
type User struct {
	ID           int64          `json:"id" db:"id"`
	Username     string         `json:"username" db:"username"`
	Email        string         `json:"email" db:"email"`
	PasswordHash string         `json:"-" db:"password_hash"`
	IsVerified   bool           `json:"is_verified" db:"is_verified"`
	IsAdmin      bool           `json:"is_admin" db:"is_admin"`
	OTP          sql.NullString `json:"-" db:"otp"`
	OTPCreatedAt sql.NullTime   `json:"-" db:"otp_created_at"`
	OTPAttempts  int            `json:"-" db:"otp_attempts"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

// IsOTPValid reports whether the stored OTP is still inside its validity window.
func (u *User) IsOTPValid(now time.Time, ttl time.Duration) bool {
	if !u.OTPCreatedAt.Valid {
		return false
	}
	return now.Sub(u.OTPCreatedAt.Time) < ttl
}

// SetOTP stores a freshly issued OTP.
func (u *User) SetOTP(code string, issuedAt time.Time) {
	u.OTP = sql.NullString{String: code, Valid: true}
	u.OTPCreatedAt = sql.NullTime{Time: issuedAt, Valid: true}
	u.OTPAttempts = 0
}

// OTPMatches compares code with the stored OTP in constant time.
func (u *User) OTPMatches(code string) bool {
	if !u.OTP.Valid {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(u.OTP.String), []byte(code)) == 1
}

// ClearOTP drops the OTP once it was consumed.
func (u *User) ClearOTP() {
	u.OTP = sql.NullString{}
	u.OTPCreatedAt = sql.NullTime{}
	u.OTPAttempts = 0
}

// Actor is the authenticated caller of an operation
type Actor struct {
	UserID  int64
	IsAdmin bool
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type VerifyOTPRequest struct {
	UsernameOrEmail string `json:"username_or_email" validate:"required"`
	OTP             string `json:"otp" validate:"required,len=6,numeric"`
}

type ResendOTPRequest struct {
	UsernameOrEmail string `json:"username_or_email" validate:"required"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Access    string    `json:"access"`
	ExpiresAt time.Time `json:"expires_at"`
}
