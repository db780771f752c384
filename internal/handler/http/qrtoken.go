package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/qrtoken"
	"github.com/cmlabs-hris/attendance-engine-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-engine-go/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/validator"
)

type QRTokenHandler interface {
	Issue(w http.ResponseWriter, r *http.Request)
}

type qrTokenHandlerImpl struct {
	tokenService qrtoken.Service
}

func NewQRTokenHandler(tokenService qrtoken.Service) QRTokenHandler {
	return &qrTokenHandlerImpl{
		tokenService: tokenService,
	}
}

type issueTokenRequest struct {
	LocationID string `json:"location_id"`
	TTLMinutes int    `json:"ttl_minutes,omitempty"`
}

func (r *issueTokenRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.LocationID) {
		errs = append(errs, validator.ValidationError{
			Field:   "location_id",
			Message: "location_id is required",
		})
	}
	if r.TTLMinutes < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "ttl_minutes",
			Message: "ttl_minutes must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type issueTokenResponse struct {
	ID         string `json:"id"`
	LocationID string `json:"location_id"`
	Token      string `json:"token"`
	ExpiresAt  string `json:"expires_at"`
}

// Issue implements QRTokenHandler.
func (h *qrTokenHandlerImpl) Issue(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req issueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	tok, err := h.tokenService.Issue(r.Context(), p, req.LocationID, time.Duration(req.TTLMinutes)*time.Minute)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "QR token issued", issueTokenResponse{
		ID:         tok.ID,
		LocationID: tok.LocationID,
		Token:      tok.Token,
		ExpiresAt:  tok.ExpiresAt.Format(time.RFC3339),
	})
}
