package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/loan-engine/internal/domain"
	"github.com/segyhp/loan-engine/internal/mocks"
	customError "github.com/segyhp/loan-engine/pkg/errors"
)

var (
	borrower = domain.Actor{UserID: 7}
	operator = domain.Actor{UserID: 1, IsAdmin: true}
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T) (http.Handler, *mocks.MockLoanService, *mocks.MockAuthService) {
	t.Helper()

	loans := mocks.NewMockLoanService()
	auth := mocks.NewMockAuthService()
	auth.On("Authenticate", "borrower-token").Return(borrower, nil).Maybe()
	auth.On("Authenticate", "admin-token").Return(operator, nil).Maybe()
	auth.On("Authenticate", "expired-token").Return(domain.Actor{}, customError.WrapUnauthorized("Invalid or expired token")).Maybe()

	router := NewRouter(NewLoanHandler(loans), NewAuthHandler(auth), NewHealthHandler(nil, nil, time.Second))
	return router, loans, auth
}

func doRequest(t *testing.T, router http.Handler, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		var err error
		payload, err = json.Marshal(b)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestRequireAuth(t *testing.T) {
	router, _, _ := setupRouter(t)

	w, env := doRequest(t, router, http.MethodGet, "/api/v1/loans", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, customError.ErrCodeUnauthorized, env.Code)

	w, env = doRequest(t, router, http.MethodGet, "/api/v1/loans", "expired-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, customError.ErrCodeUnauthorized, env.Code)
}

func TestLoanHandler_CreateLoan(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*mocks.MockLoanService)
		expectedStatus int
		expectedCode   string
		expectedBody   string
	}{
		{
			name:        "successful loan creation",
			requestBody: map[string]interface{}{"amount": 12000, "tenure": 12, "interest_rate": 12},
			setupMock: func(m *mocks.MockLoanService) {
				m.On("CreateLoan", mock.Anything, borrower, mock.MatchedBy(func(req *domain.CreateLoanRequest) bool {
					return req.Amount.Equal(decimal.NewFromInt(12000)) && req.Tenure == 12 && req.InterestRate.Equal(decimal.NewFromInt(12))
				})).Return(&domain.LoanView{
					LoanID:             "LOAN001",
					MonthlyInstallment: decimal.NewNullDecimal(decimal.RequireFromString("1066.19")),
				}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"loan_id":"LOAN001"`,
		},
		{
			name:           "invalid JSON payload",
			requestBody:    "invalid json",
			setupMock:      func(*mocks.MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   customError.ErrCodeInvalidInput,
			expectedBody:   "Invalid JSON payload",
		},
		{
			name:           "unknown field",
			requestBody:    map[string]interface{}{"amount": 12000, "tenure": 12, "interest_rate": 12, "loan_id": "x"},
			setupMock:      func(*mocks.MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   customError.ErrCodeInvalidInput,
		},
		{
			name:        "validation error from service",
			requestBody: map[string]interface{}{"amount": 10, "tenure": 12, "interest_rate": 12},
			setupMock: func(m *mocks.MockLoanService) {
				m.On("CreateLoan", mock.Anything, borrower, mock.Anything).
					Return(nil, customError.WrapInvalidInput("Loan amount must be between 1000 and 100000.")).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   customError.ErrCodeInvalidInput,
			expectedBody:   "Loan amount must be between 1000 and 100000.",
		},
		{
			name:        "unexpected error is hidden",
			requestBody: map[string]interface{}{"amount": 12000, "tenure": 12, "interest_rate": 12},
			setupMock: func(m *mocks.MockLoanService) {
				m.On("CreateLoan", mock.Anything, borrower, mock.Anything).
					Return(nil, errors.New("pq: password authentication failed")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   customError.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, loans, _ := setupRouter(t)
			tt.setupMock(loans)

			w, env := doRequest(t, router, http.MethodPost, "/api/v1/loans", "borrower-token", tt.requestBody)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, env.Code)
			}
			if tt.expectedBody != "" {
				assert.Contains(t, w.Body.String(), tt.expectedBody)
			}
			assert.NotContains(t, w.Body.String(), "pq:")
			loans.AssertExpectations(t)
		})
	}
}

func TestLoanHandler_GetLoan(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		setupMock      func(*mocks.MockLoanService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "by public id",
			path: "/api/v1/loans/LOAN001",
			setupMock: func(m *mocks.MockLoanService) {
				m.On("GetLoan", mock.Anything, borrower, int64(1)).Return(&domain.LoanView{LoanID: "LOAN001"}, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "by numeric id",
			path: "/api/v1/loans/12",
			setupMock: func(m *mocks.MockLoanService) {
				m.On("GetLoan", mock.Anything, borrower, int64(12)).Return(&domain.LoanView{LoanID: "LOAN012"}, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "malformed id",
			path:           "/api/v1/loans/abc",
			setupMock:      func(*mocks.MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   customError.ErrCodeInvalidInput,
		},
		{
			name: "someone else's loan",
			path: "/api/v1/loans/2",
			setupMock: func(m *mocks.MockLoanService) {
				m.On("GetLoan", mock.Anything, borrower, int64(2)).
					Return(nil, customError.WrapForbidden("You do not have access to this loan")).Once()
			},
			expectedStatus: http.StatusForbidden,
			expectedCode:   customError.ErrCodeForbidden,
		},
		{
			name: "missing loan",
			path: "/api/v1/loans/3",
			setupMock: func(m *mocks.MockLoanService) {
				m.On("GetLoan", mock.Anything, borrower, int64(3)).Return(nil, customError.WrapLoanNotFound("LOAN003")).Once()
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   customError.ErrCodeLoanNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, loans, _ := setupRouter(t)
			tt.setupMock(loans)

			w, env := doRequest(t, router, http.MethodGet, tt.path, "borrower-token", nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, env.Code)
			}
			loans.AssertExpectations(t)
		})
	}
}

func TestLoanHandler_ListLoans(t *testing.T) {
	router, loans, _ := setupRouter(t)
	loans.On("ListLoans", mock.Anything, borrower).Return([]*domain.LoanView{{LoanID: "LOAN002"}, {LoanID: "LOAN001"}}, nil).Once()

	w, env := doRequest(t, router, http.MethodGet, "/api/v1/loans", "borrower-token", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var views []domain.LoanView
	require.NoError(t, json.Unmarshal(env.Data, &views))
	require.Len(t, views, 2)
	assert.Equal(t, "LOAN002", views[0].LoanID)
}

func TestLoanHandler_ForecloseLoan(t *testing.T) {
	router, loans, _ := setupRouter(t)
	loans.On("ForecloseLoan", mock.Anything, borrower, int64(1)).Return(&domain.ForeclosureResponse{
		LoanID:                "LOAN001",
		AmountPaid:            decimal.RequireFromString("12794.28"),
		ForeclosureDiscount:   decimal.RequireFromString("39.71"),
		FinalSettlementAmount: decimal.RequireFromString("12754.57"),
		Status:                domain.LoanStatusClosed,
	}, nil).Once()
	loans.On("ForecloseLoan", mock.Anything, borrower, int64(1)).Return(nil, customError.WrapLoanAlreadyClosed("LOAN001")).Once()

	w, env := doRequest(t, router, http.MethodPost, "/api/v1/loans/LOAN001/foreclose", "borrower-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Loan foreclosed successfully.", env.Message)

	var result domain.ForeclosureResponse
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "12754.57", result.FinalSettlementAmount.StringFixed(2))
	assert.Equal(t, domain.LoanStatusClosed, result.Status)

	w, env = doRequest(t, router, http.MethodPost, "/api/v1/loans/LOAN001/foreclose", "borrower-token", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, customError.ErrCodeLoanAlreadyClosed, env.Code)

	loans.AssertExpectations(t)
}

func TestLoanHandler_Admin(t *testing.T) {
	router, loans, _ := setupRouter(t)
	loans.On("ListAllLoans", mock.Anything, borrower).Return(nil, customError.WrapForbidden("Admin access required")).Once()
	loans.On("ListAllLoans", mock.Anything, operator).Return([]*domain.LoanView{}, nil).Once()
	loans.On("DeleteLoan", mock.Anything, operator, int64(4)).Return(nil).Once()

	w, _ := doRequest(t, router, http.MethodGet, "/api/v1/admin/loans", "borrower-token", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = doRequest(t, router, http.MethodGet, "/api/v1/admin/loans", "admin-token", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doRequest(t, router, http.MethodDelete, "/api/v1/admin/loans/LOAN004", "admin-token", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	loans.AssertExpectations(t)
}

func TestAuthHandler(t *testing.T) {
	t.Run("register", func(t *testing.T) {
		router, _, auth := setupRouter(t)
		auth.On("Register", mock.Anything, &domain.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "correct-horse"}).
			Return(&domain.User{ID: 7, Username: "alice", Email: "alice@example.com", PasswordHash: "secret-hash"}, nil).Once()

		w, env := doRequest(t, router, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
			"username": "alice", "email": "alice@example.com", "password": "correct-horse",
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "User registered successfully! OTP sent to email.", env.Message)
		assert.NotContains(t, w.Body.String(), "secret-hash")
	})

	t.Run("register conflict", func(t *testing.T) {
		router, _, auth := setupRouter(t)
		auth.On("Register", mock.Anything, mock.Anything).Return(nil, customError.WrapUserAlreadyExists("username")).Once()

		w, env := doRequest(t, router, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
			"username": "alice", "email": "alice@example.com", "password": "correct-horse",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, customError.ErrCodeUserAlreadyExists, env.Code)
	})

	t.Run("verify otp", func(t *testing.T) {
		router, _, auth := setupRouter(t)
		auth.On("VerifyOTP", mock.Anything, &domain.VerifyOTPRequest{UsernameOrEmail: "alice", OTP: "123456"}).Return(nil).Once()
		auth.On("VerifyOTP", mock.Anything, &domain.VerifyOTPRequest{UsernameOrEmail: "alice", OTP: "000000"}).Return(customError.WrapInvalidOTP()).Once()

		w, env := doRequest(t, router, http.MethodPost, "/api/v1/auth/verify-otp", "", map[string]string{"username_or_email": "alice", "otp": "123456"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Account verified successfully!", env.Message)

		w, env = doRequest(t, router, http.MethodPost, "/api/v1/auth/verify-otp", "", map[string]string{"username_or_email": "alice", "otp": "000000"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, customError.ErrCodeInvalidOTP, env.Code)
	})

	t.Run("resend otp", func(t *testing.T) {
		router, _, auth := setupRouter(t)
		auth.On("ResendOTP", mock.Anything, &domain.ResendOTPRequest{UsernameOrEmail: "alice"}).Return(nil).Once()

		w, _ := doRequest(t, router, http.MethodPost, "/api/v1/auth/resend-otp", "", map[string]string{"username_or_email": "alice"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("login", func(t *testing.T) {
		router, _, auth := setupRouter(t)
		auth.On("Login", mock.Anything, &domain.LoginRequest{Username: "alice", Password: "correct-horse"}).
			Return(&domain.LoginResponse{Access: "signed-token"}, nil).Once()
		auth.On("Login", mock.Anything, &domain.LoginRequest{Username: "bob", Password: "correct-horse"}).
			Return(nil, customError.WrapEmailNotVerified()).Once()

		w, env := doRequest(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "alice", "password": "correct-horse"})
		require.Equal(t, http.StatusOK, w.Code)

		var token domain.LoginResponse
		require.NoError(t, json.Unmarshal(env.Data, &token))
		assert.Equal(t, "signed-token", token.Access)

		w, env = doRequest(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "bob", "password": "correct-horse"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, customError.ErrCodeEmailNotVerified, env.Code)
	})
}

func TestHealth(t *testing.T) {
	router, _, _ := setupRouter(t)

	w, env := doRequest(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	w, env = doRequest(t, router, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, string(env.Data), `"database":"not configured"`)
}
