package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/segyhp/loan-engine/internal/domain"
	customError "github.com/segyhp/loan-engine/pkg/errors"
	"github.com/segyhp/loan-engine/pkg/response"
)

type actorKey struct{}

// ActorFromContext returns the caller stored by RequireAuth
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(domain.Actor)
	return actor, ok
}

// WithActor stores the authenticated caller in ctx
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

type AuthHandler struct {
	service AuthService
}

func NewAuthHandler(service AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// RequireAuth rejects requests without a valid bearer token
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			writeError(w, customError.WrapUnauthorized("Authentication credentials were not provided"))
			return
		}

		actor, err := h.service.Authenticate(strings.TrimSpace(token))
		if err != nil {
			writeError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.service.Register(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, "User registered successfully! OTP sent to email.", map[string]interface{}{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}

// VerifyOTP handles POST /api/v1/auth/verify-otp
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.VerifyOTP(r.Context(), &req); err != nil {
		writeError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Account verified successfully!", nil)
}

// ResendOTP handles POST /api/v1/auth/resend-otp
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.ResendOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.ResendOTP(r.Context(), &req); err != nil {
		writeError(w, err)
		return
	}

	response.SuccessWithMessage(w, "OTP sent to email.", nil)
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.service.Login(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Login successful", token)
}
