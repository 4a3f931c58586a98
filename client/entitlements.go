package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// EntitlementsService reads the caller's plan entitlements.
type EntitlementsService struct {
	client *Client
}

// Get returns the tenant's entitlements.
func (s *EntitlementsService) Get(ctx context.Context) (*Entitlements, error) {
	var out Entitlements
	if _, err := s.client.do(ctx, http.MethodGet, "/v1/entitlements", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Guard checks whether the tenant's plan reaches required. mode is block or
// overlay; empty means block.
func (s *EntitlementsService) Guard(ctx context.Context, required, mode string) (*Decision, error) {
	q := url.Values{"required": {required}}
	if mode != "" {
		q.Set("mode", mode)
	}
	var out Decision
	if _, err := s.client.do(ctx, http.MethodGet, "/v1/entitlements/guard", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Check asks whether the tenant may perform action: invite_user,
// create_provider or use_ai. A denied action comes back as an *Error with
// IsQuotaExceeded or IsUpgradeRequired set.
func (s *EntitlementsService) Check(ctx context.Context, action string) (*ActionCheck, error) {
	var out ActionCheck
	q := url.Values{"action": {action}}
	if _, err := s.client.do(ctx, http.MethodGet, "/v1/entitlements/check", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Usage returns the metered counters of the last months billing periods.
// months <= 0 asks for the current period only.
func (s *EntitlementsService) Usage(ctx context.Context, months int) ([]UsageMetric, error) {
	var q url.Values
	if months > 0 {
		q = url.Values{"months": {strconv.Itoa(months)}}
	}
	var out []UsageMetric
	if _, err := s.client.do(ctx, http.MethodGet, "/v1/entitlements/usage", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
