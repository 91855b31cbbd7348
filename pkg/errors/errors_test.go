package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusinessErrorUnwrap(t *testing.T) {
	err := WrapLoanAlreadyClosed("LOAN007")

	assert.True(t, errors.Is(err, ErrLoanAlreadyClosed))
	assert.Equal(t, "LOAN_ALREADY_CLOSED: Loan with ID LOAN007 is already closed (loan is already closed)", err.Error())

	wrapped := fmt.Errorf("foreclose: %w", err)
	assert.True(t, errors.Is(wrapped, ErrLoanAlreadyClosed))
	assert.Equal(t, ErrCodeLoanAlreadyClosed, CodeOf(wrapped))
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "database", err: WrapDatabaseError(errors.New("conn refused")), expected: ErrCodeDatabaseError},
		{name: "invalid input", err: WrapInvalidInput("tenure"), expected: ErrCodeInvalidInput},
		{name: "forbidden", err: WrapForbidden("not yours"), expected: ErrCodeForbidden},
		{name: "plain error", err: errors.New("boom"), expected: ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CodeOf(tt.err))
		})
	}
}

func TestBusinessErrorWithoutCause(t *testing.T) {
	err := NewBusinessError("X", "message", nil)
	assert.Equal(t, "X: message", err.Error())
	assert.Nil(t, err.Unwrap())
}
