package client

import (
	"context"
	"net/http"
)

// BillingService starts plan upgrades.
type BillingService struct {
	client *Client
}

// Checkout opens a Stripe checkout for plan and returns the URL to send the
// user to. Stripe redirects back to returnURL.
func (s *BillingService) Checkout(ctx context.Context, plan, returnURL string) (string, error) {
	body := map[string]string{"plan": plan, "return_url": returnURL}
	var out struct {
		URL string `json:"url"`
	}
	if _, err := s.client.do(ctx, http.MethodPost, "/v1/billing/checkout", nil, body, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}
