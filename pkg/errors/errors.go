package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound       = errors.New("loan not found")
	ErrLoanAlreadyClosed  = errors.New("loan is already closed")
	ErrLoanAlreadyPriced  = errors.New("loan terms are already calculated")
	ErrInvalidInput       = errors.New("invalid input")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrInvalidOTP         = errors.New("invalid otp")
	ErrOTPExpired         = errors.New("otp expired")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound       = "LOAN_NOT_FOUND"
	ErrCodeLoanAlreadyClosed  = "LOAN_ALREADY_CLOSED"
	ErrCodeLoanAlreadyPriced  = "LOAN_ALREADY_PRICED"
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeUserAlreadyExists  = "USER_ALREADY_EXISTS"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeEmailNotVerified   = "EMAIL_NOT_VERIFIED"
	ErrCodeInvalidOTP         = "INVALID_OTP"
	ErrCodeOTPExpired         = "OTP_EXPIRED"
	ErrCodeDatabaseError      = "DATABASE_ERROR"
	ErrCodeCacheError         = "CACHE_ERROR"
	ErrCodeEmailError         = "EMAIL_ERROR"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// CodeOf returns the business code carried by err, or ErrCodeInternal.
func CodeOf(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ErrCodeInternal
}

// Wrap common errors with business context
func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapLoanAlreadyClosed(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyClosed,
		fmt.Sprintf("Loan with ID %s is already closed", loanID),
		ErrLoanAlreadyClosed,
	)
}

func WrapLoanAlreadyPriced(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyPriced,
		fmt.Sprintf("Loan with ID %s already has calculated terms", loanID),
		ErrLoanAlreadyPriced,
	)
}

func WrapInvalidInput(message string) *BusinessError {
	return NewBusinessError(ErrCodeInvalidInput, message, ErrInvalidInput)
}

func WrapForbidden(message string) *BusinessError {
	return NewBusinessError(ErrCodeForbidden, message, ErrForbidden)
}

func WrapUnauthorized(message string) *BusinessError {
	return NewBusinessError(ErrCodeUnauthorized, message, ErrUnauthorized)
}

func WrapUserAlreadyExists(field string) *BusinessError {
	return NewBusinessError(
		ErrCodeUserAlreadyExists,
		fmt.Sprintf("A user with this %s already exists", field),
		ErrUserAlreadyExists,
	)
}

func WrapUserNotFound(usernameOrEmail string) *BusinessError {
	return NewBusinessError(
		ErrCodeUserNotFound,
		fmt.Sprintf("User %s not found", usernameOrEmail),
		ErrUserNotFound,
	)
}

func WrapInvalidCredentials() *BusinessError {
	return NewBusinessError(ErrCodeInvalidCredentials, "Invalid username or password", ErrInvalidCredentials)
}

func WrapEmailNotVerified() *BusinessError {
	return NewBusinessError(ErrCodeEmailNotVerified, "Verify email", ErrEmailNotVerified)
}

func WrapInvalidOTP() *BusinessError {
	return NewBusinessError(ErrCodeInvalidOTP, "Invalid OTP", ErrInvalidOTP)
}

func WrapOTPExpired() *BusinessError {
	return NewBusinessError(ErrCodeOTPExpired, "OTP has expired", ErrOTPExpired)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

func WrapEmailError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeEmailError,
		"email delivery failed",
		err,
	)
}
