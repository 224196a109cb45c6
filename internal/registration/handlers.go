package registration

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coopcentral/coopcentral/internal/gateway"
	"github.com/coopcentral/coopcentral/internal/logging"
	"github.com/coopcentral/coopcentral/internal/provisioning"
	"github.com/coopcentral/coopcentral/internal/validation"
)

// Handler provides HTTP endpoints for the registration pipeline.
type Handler struct {
	service    *Service
	successURL string
	errorURL   string
	pendingURL string
}

// NewHandler creates a new registration handler. The URLs are where
// the payer lands after the payment callback settles.
func NewHandler(service *Service, successURL, errorURL string) *Handler {
	return &Handler{
		service:    service,
		successURL: successURL,
		errorURL:   errorURL,
		pendingURL: errorURL + "?status=pending",
	}
}

// RegisterRoutes sets up the public registration routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/registrations/cooperative", h.SubmitCooperative)
	r.POST("/registrations/member", h.SubmitMember)
	r.GET("/registrations/:reference", h.GetStatus)
	r.GET("/payments/callback", h.PaymentCallback)
}

// SubmitCooperative handles POST /v1/registrations/cooperative.
func (h *Handler) SubmitCooperative(c *gin.Context) {
	var req CooperativePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "malformed registration form"})
		return
	}

	res, err := h.service.SubmitCooperative(c.Request.Context(), req)
	if err != nil {
		h.writeSubmitError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// SubmitMember handles POST /v1/registrations/member.
func (h *Handler) SubmitMember(c *gin.Context) {
	var req MemberPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "malformed registration form"})
		return
	}

	res, err := h.service.SubmitMember(c.Request.Context(), req)
	if err != nil {
		h.writeSubmitError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) writeSubmitError(c *gin.Context, err error) {
	var verrs validation.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "details": verrs})
	case errors.Is(err, ErrConflict), errors.Is(err, provisioning.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict", "message": "an account with these details already exists"})
	case errors.Is(err, gateway.ErrUnavailable):
		// Internal detail never reaches the payer.
		c.JSON(http.StatusBadGateway, gin.H{"error": "gateway_unavailable", "message": "registration could not be completed, please try again"})
	default:
		logging.L(c.Request.Context()).Error("registration submit failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "registration could not be completed"})
	}
}

// GetStatus handles GET /v1/registrations/:reference.
func (h *Handler) GetStatus(c *gin.Context) {
	reg, err := h.service.GetByReference(c.Request.Context(), c.Param("reference"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "unknown reference"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, reg)
}

// PaymentCallback handles GET /v1/payments/callback. The gateway
// redirects the payer here; Paystack sends the reference as both
// "reference" and "trxref". The response is always a redirect — the
// payer never sees an API error page.
func (h *Handler) PaymentCallback(c *gin.Context) {
	reference := c.Query("reference")
	if reference == "" {
		reference = c.Query("trxref")
	}
	if reference == "" {
		c.Redirect(http.StatusFound, h.errorURL)
		return
	}

	res, err := h.service.HandleCallback(c.Request.Context(), reference)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.Redirect(http.StatusFound, h.errorURL)
			return
		}
		logging.WithReference(c.Request.Context(), reference).
			Error("payment callback failed", "error", err)
		c.Redirect(http.StatusFound, h.errorURL)
		return
	}

	switch {
	case res.Succeeded:
		c.Redirect(http.StatusFound, h.successURL)
	case res.Outcome == OutcomeRetryLater:
		c.Redirect(http.StatusFound, h.pendingURL)
	default:
		c.Redirect(http.StatusFound, h.errorURL)
	}
}
