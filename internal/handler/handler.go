package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/segyhp/loan-engine/internal/domain"
	customError "github.com/segyhp/loan-engine/pkg/errors"
	"github.com/segyhp/loan-engine/pkg/response"
	"github.com/segyhp/loan-engine/pkg/utils"
)

// LoanService is the loan lifecycle as seen by the HTTP layer
type LoanService interface {
	CreateLoan(ctx context.Context, actor domain.Actor, request *domain.CreateLoanRequest) (*domain.LoanView, error)
	GetLoan(ctx context.Context, actor domain.Actor, id int64) (*domain.LoanView, error)
	ListLoans(ctx context.Context, actor domain.Actor) ([]*domain.LoanView, error)
	ListAllLoans(ctx context.Context, actor domain.Actor) ([]*domain.LoanView, error)
	DeleteLoan(ctx context.Context, actor domain.Actor, id int64) error
	ForecloseLoan(ctx context.Context, actor domain.Actor, id int64) (*domain.ForeclosureResponse, error)
}

// AuthService is the identity flow as seen by the HTTP layer
type AuthService interface {
	Register(ctx context.Context, request *domain.RegisterRequest) (*domain.User, error)
	VerifyOTP(ctx context.Context, request *domain.VerifyOTPRequest) error
	ResendOTP(ctx context.Context, request *domain.ResendOTPRequest) error
	Login(ctx context.Context, request *domain.LoginRequest) (*domain.LoginResponse, error)
	Authenticate(token string) (domain.Actor, error)
}

var statusByCode = map[string]int{
	customError.ErrCodeLoanNotFound:       http.StatusNotFound,
	customError.ErrCodeLoanAlreadyClosed:  http.StatusBadRequest,
	customError.ErrCodeLoanAlreadyPriced:  http.StatusConflict,
	customError.ErrCodeInvalidInput:       http.StatusBadRequest,
	customError.ErrCodeForbidden:          http.StatusForbidden,
	customError.ErrCodeUnauthorized:       http.StatusUnauthorized,
	customError.ErrCodeUserAlreadyExists:  http.StatusConflict,
	customError.ErrCodeUserNotFound:       http.StatusNotFound,
	customError.ErrCodeInvalidCredentials: http.StatusUnauthorized,
	customError.ErrCodeEmailNotVerified:   http.StatusUnauthorized,
	customError.ErrCodeInvalidOTP:         http.StatusBadRequest,
	customError.ErrCodeOTPExpired:         http.StatusBadRequest,
	customError.ErrCodeEmailError:         http.StatusBadGateway,
}

// writeError renders err with the HTTP status that matches its business code.
// Internal failures do not leak their cause to the client.
func writeError(w http.ResponseWriter, err error) {
	var businessErr *customError.BusinessError
	if !errors.As(err, &businessErr) {
		response.Error(w, http.StatusInternalServerError, customError.ErrCodeInternal, "Internal server error", nil)
		return
	}

	status, ok := statusByCode[businessErr.Code]
	if !ok {
		response.Error(w, http.StatusInternalServerError, businessErr.Code, businessErr.Message, nil)
		return
	}
	response.Error(w, status, businessErr.Code, businessErr.Message, nil)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return customError.WrapInvalidInput("Invalid JSON payload")
	}
	return nil
}

// loanIDFromPath accepts both the numeric id and the LOAN001 form
func loanIDFromPath(r *http.Request) (int64, error) {
	id, err := utils.ParseLoanID(mux.Vars(r)["id"])
	if err != nil {
		return 0, customError.WrapInvalidInput("Invalid loan id")
	}
	return id, nil
}
