package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-engine-go/internal/handler/http/response"
)

type RegularizationHandler interface {
	Request(w http.ResponseWriter, r *http.Request)
	Approve(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
}

type regularizationHandlerImpl struct {
	regularizationService attendance.RegularizationService
}

func NewRegularizationHandler(regularizationService attendance.RegularizationService) RegularizationHandler {
	return &regularizationHandlerImpl{
		regularizationService: regularizationService,
	}
}

// Request implements RegularizationHandler.
func (h *regularizationHandlerImpl) Request(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req attendance.RegularizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	rec, err := h.regularizationService.Request(r.Context(), p, chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Regularization requested", attendance.ToResponse(rec))
}

// Approve implements RegularizationHandler.
func (h *regularizationHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	rec, err := h.regularizationService.Approve(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Regularization approved", attendance.ToResponse(rec))
}

// Reject implements RegularizationHandler.
func (h *regularizationHandlerImpl) Reject(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req attendance.RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	rec, err := h.regularizationService.Reject(r.Context(), p, chi.URLParam(r, "id"), req.Remarks)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Regularization rejected", attendance.ToResponse(rec))
}
