package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/AIX-Clever/chat-booking-admin/internal/config"
	"github.com/AIX-Clever/chat-booking-admin/internal/models"
	apierrors "github.com/AIX-Clever/chat-booking-admin/internal/pkg/errors"
	"github.com/AIX-Clever/chat-booking-admin/internal/repository"
)

// BillingService defines the interface for plan purchase operations.
type BillingService interface {
	// CreateCheckoutSession starts a Stripe checkout for a higher tier and
	// returns the URL to redirect the user to.
	CreateCheckoutSession(ctx context.Context, tenantID uuid.UUID, plan models.Plan, returnURL string) (string, error)

	// HandleWebhook verifies and applies a Stripe event.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// CheckoutSessionCreator creates a Stripe checkout session.
type CheckoutSessionCreator func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)

const metadataPlan = "plan"

type billingService struct {
	tenantRepo     repository.TenantRepository
	config         config.StripeConfig
	createCheckout CheckoutSessionCreator
	logger         *slog.Logger
}

// NewBillingService creates a new billing service.
func NewBillingService(
	tenantRepo repository.TenantRepository,
	cfg config.StripeConfig,
	logger *slog.Logger,
) BillingService {
	stripe.Key = cfg.SecretKey
	return NewBillingServiceWithCheckout(tenantRepo, cfg, checkoutsession.New, logger)
}

// NewBillingServiceWithCheckout creates a billing service that opens
// checkout sessions through create.
func NewBillingServiceWithCheckout(
	tenantRepo repository.TenantRepository,
	cfg config.StripeConfig,
	create CheckoutSessionCreator,
	logger *slog.Logger,
) BillingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &billingService{
		tenantRepo:     tenantRepo,
		config:         cfg,
		createCheckout: create,
		logger:         logger,
	}
}

// CreateCheckoutSession creates a Stripe checkout session for a plan upgrade.
func (s *billingService) CreateCheckoutSession(ctx context.Context, tenantID uuid.UUID, plan models.Plan, returnURL string) (string, error) {
	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return "", fmt.Errorf("failed to get tenant: %w", err)
	}
	if tenant == nil {
		return "", apierrors.NewNotFoundError("Tenant")
	}

	if !models.ValidPlan(plan) {
		return "", apierrors.NewValidationError("plan", fmt.Sprintf("unknown plan %q", plan))
	}
	if models.PlanLevel(plan) <= models.PlanLevel(tenant.Plan) {
		return "", apierrors.NewValidationError("plan", fmt.Sprintf("already on %s or higher", plan))
	}

	priceID, ok := s.config.PriceFor(plan)
	if !ok {
		return "", apierrors.NewValidationError("plan", fmt.Sprintf("%s cannot be purchased online", plan))
	}

	sep := "?"
	if strings.Contains(returnURL, "?") {
		sep = "&"
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(tenantID.String()),
		SuccessURL:        stripe.String(returnURL + sep + "success=true"),
		CancelURL:         stripe.String(returnURL + sep + "canceled=true"),
	}
	params.AddMetadata(metadataPlan, string(plan))

	if tenant.StripeCustomerID != nil && *tenant.StripeCustomerID != "" {
		params.Customer = tenant.StripeCustomerID
	}

	session, err := s.createCheckout(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	s.logger.Info("checkout session created",
		slog.String("tenant_id", tenantID.String()),
		slog.String("plan", string(plan)),
	)
	return session.URL, nil
}

// HandleWebhook processes incoming Stripe webhook events.
func (s *billingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.config.WebhookSecret)
	if err != nil {
		return apierrors.ErrBadRequest.WithMessage("webhook signature verification failed")
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("failed to unmarshal checkout session: %w", err)
		}
		return s.handleCheckoutCompleted(ctx, &session)

	case "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("failed to unmarshal subscription: %w", err)
		}
		return s.handleSubscriptionUpdated(ctx, &sub)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("failed to unmarshal subscription: %w", err)
		}
		return s.handleSubscriptionDeleted(ctx, &sub)
	}

	s.logger.Debug("ignoring stripe event", slog.String("type", string(event.Type)))
	return nil
}

// handleCheckoutCompleted links the Stripe customer and subscription to the
// tenant named by the session's client reference.
func (s *billingService) handleCheckoutCompleted(ctx context.Context, session *stripe.CheckoutSession) error {
	tenantID, err := uuid.Parse(session.ClientReferenceID)
	if err != nil {
		s.logger.Warn("checkout session without tenant reference", slog.String("session_id", session.ID))
		return nil
	}

	if session.Customer != nil && session.Customer.ID != "" {
		if err := s.tenantRepo.UpdateStripeCustomer(ctx, tenantID, session.Customer.ID); err != nil {
			return err
		}
	}
	if session.Subscription != nil && session.Subscription.ID != "" {
		if err := s.tenantRepo.UpdateStripeSubscription(ctx, tenantID, session.Subscription.ID); err != nil {
			return err
		}
	}

	plan := models.Plan(session.Metadata[metadataPlan])
	if !models.ValidPlan(plan) {
		return nil
	}
	return s.updatePlan(ctx, tenantID, plan)
}

// handleSubscriptionUpdated moves the tenant to the tier its price unlocks.
func (s *billingService) handleSubscriptionUpdated(ctx context.Context, sub *stripe.Subscription) error {
	tenant, err := s.tenantFromCustomer(ctx, sub.Customer)
	if err != nil || tenant == nil {
		return err
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return nil
	}

	priceID := sub.Items.Data[0].Price.ID
	plan, ok := s.config.PlanFor(priceID)
	if !ok {
		s.logger.Warn("subscription price not mapped to a plan",
			slog.String("tenant_id", tenant.ID.String()),
			slog.String("price_id", priceID),
		)
		return nil
	}
	return s.updatePlan(ctx, tenant.ID, plan)
}

// handleSubscriptionDeleted drops the tenant back to LITE.
func (s *billingService) handleSubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) error {
	tenant, err := s.tenantFromCustomer(ctx, sub.Customer)
	if err != nil || tenant == nil {
		return err
	}

	if err := s.updatePlan(ctx, tenant.ID, models.PlanLite); err != nil {
		return err
	}
	return s.tenantRepo.ClearStripeSubscription(ctx, tenant.ID)
}

func (s *billingService) updatePlan(ctx context.Context, tenantID uuid.UUID, plan models.Plan) error {
	if err := s.tenantRepo.UpdatePlan(ctx, tenantID, plan); err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	s.logger.Info("tenant plan changed",
		slog.String("tenant_id", tenantID.String()),
		slog.String("plan", string(plan)),
	)
	return nil
}

// tenantFromCustomer returns (nil, nil) for customers no tenant owns.
func (s *billingService) tenantFromCustomer(ctx context.Context, cust *stripe.Customer) (*models.Tenant, error) {
	if cust == nil || cust.ID == "" {
		return nil, nil
	}
	return s.tenantRepo.GetByStripeCustomer(ctx, cust.ID)
}

// Compile-time check to ensure billingService implements BillingService.
var _ BillingService = (*billingService)(nil)
