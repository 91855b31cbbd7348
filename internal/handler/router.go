package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter mounts every route of the API
func NewRouter(loans *LoanHandler, auth *AuthHandler, health *HealthHandler) *mux.Router {
	router := mux.NewRouter()

	// Health check
	if health != nil {
		router.HandleFunc("/health", health.Health).Methods(http.MethodGet)
		router.HandleFunc("/health/ready", health.Ready).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/register", auth.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/verify-otp", auth.VerifyOTP).Methods(http.MethodPost)
	api.HandleFunc("/auth/resend-otp", auth.ResendOTP).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", auth.Login).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(auth.RequireAuth)

	protected.HandleFunc("/loans", loans.CreateLoan).Methods(http.MethodPost)
	protected.HandleFunc("/loans", loans.ListLoans).Methods(http.MethodGet)
	protected.HandleFunc("/loans/{id}", loans.GetLoan).Methods(http.MethodGet)
	protected.HandleFunc("/loans/{id}/foreclose", loans.ForecloseLoan).Methods(http.MethodPost)

	protected.HandleFunc("/admin/loans", loans.ListAllLoans).Methods(http.MethodGet)
	protected.HandleFunc("/admin/loans/{id}", loans.DeleteLoan).Methods(http.MethodDelete)

	return router
}
