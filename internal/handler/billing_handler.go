package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/AIX-Clever/chat-booking-admin/internal/models"
	apierrors "github.com/AIX-Clever/chat-booking-admin/internal/pkg/errors"
	"github.com/AIX-Clever/chat-booking-admin/internal/pkg/response"
	"github.com/AIX-Clever/chat-booking-admin/internal/service"
)

// maxWebhookBytes matches the payload bound Stripe documents for webhooks.
const maxWebhookBytes = 65536

// BillingHandler handles the upgrade checkout and Stripe webhooks.
type BillingHandler struct {
	billingService service.BillingService
	validate       *validator.Validate
	logger         *slog.Logger
}

// NewBillingHandler creates a new billing handler.
func NewBillingHandler(billingService service.BillingService, logger *slog.Logger) *BillingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BillingHandler{
		billingService: billingService,
		validate:       newValidator(),
		logger:         logger,
	}
}

// Routes returns a chi router with authenticated billing routes.
func (h *BillingHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/checkout", h.Checkout)
	return r
}

// CheckoutRequest is the HTTP request body for starting an upgrade.
type CheckoutRequest struct {
	Plan      string `json:"plan" validate:"required"`
	ReturnURL string `json:"return_url" validate:"required,url"`
}

// CheckoutResponse carries the Stripe-hosted checkout URL.
type CheckoutResponse struct {
	URL string `json:"url"`
}

// Checkout handles POST /v1/billing/checkout
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var req CheckoutRequest
	if !decodeBody(w, r, h.validate, &req) {
		return
	}

	plan := models.Plan(strings.ToUpper(strings.TrimSpace(req.Plan)))
	url, err := h.billingService.CreateCheckoutSession(r.Context(), tenantID, plan, req.ReturnURL)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, CheckoutResponse{URL: url})
}

// Webhook handles POST /webhooks/stripe
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Failed to read request body"))
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Missing Stripe-Signature header"))
		return
	}

	if err := h.billingService.HandleWebhook(r.Context(), payload, signature); err != nil {
		if !apierrors.IsAPIError(err) {
			h.logger.Error("stripe webhook failed", slog.String("error", err.Error()))
		}
		response.Error(w, err)
		return
	}

	response.OK(w, map[string]bool{"received": true})
}
