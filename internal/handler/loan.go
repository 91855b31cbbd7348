package handler

import (
	"net/http"

	"github.com/segyhp/loan-engine/internal/domain"
	customError "github.com/segyhp/loan-engine/pkg/errors"
	"github.com/segyhp/loan-engine/pkg/response"
)

type LoanHandler struct {
	service LoanService
}

func NewLoanHandler(service LoanService) *LoanHandler {
	return &LoanHandler{service: service}
}

func actorOrReject(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, customError.WrapUnauthorized("Authentication credentials were not provided"))
	}
	return actor, ok
}

// CreateLoan handles POST /api/v1/loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	var req domain.CreateLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	view, err := h.service.CreateLoan(r.Context(), actor, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, "Loan created successfully", view)
}

// ListLoans handles GET /api/v1/loans
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	views, err := h.service.ListLoans(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, views)
}

// GetLoan handles GET /api/v1/loans/{id}
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	id, err := loanIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	view, err := h.service.GetLoan(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, view)
}

// ForecloseLoan handles POST /api/v1/loans/{id}/foreclose
func (h *LoanHandler) ForecloseLoan(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	id, err := loanIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.ForecloseLoan(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Loan foreclosed successfully.", result)
}

// ListAllLoans handles GET /api/v1/admin/loans
func (h *LoanHandler) ListAllLoans(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	views, err := h.service.ListAllLoans(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, views)
}

// DeleteLoan handles DELETE /api/v1/admin/loans/{id}
func (h *LoanHandler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	id, err := loanIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.DeleteLoan(r.Context(), actor, id); err != nil {
		writeError(w, err)
		return
	}

	response.NoContent(w)
}
