package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/codingiran/applicationskit/internal/domain"
)

const (
	defaultLookupBaseURL = "https://itunes.apple.com"
	lookupTimeout        = 5 * time.Second
)

// ITunesVendorResolver resolves a vendor name through the store lookup
// endpoint. Single request, fixed timeout, no retry.
type ITunesVendorResolver struct {
	client  *http.Client
	baseURL string
	logger  *zap.Logger
}

// NewITunesVendorResolver creates a resolver against the real endpoint.
func NewITunesVendorResolver(logger *zap.Logger) *ITunesVendorResolver {
	return &ITunesVendorResolver{
		client:  &http.Client{Timeout: lookupTimeout},
		baseURL: defaultLookupBaseURL,
		logger:  logger,
	}
}

// NewITunesVendorResolverWithBaseURL creates a resolver against a
// custom endpoint (for testing).
func NewITunesVendorResolverWithBaseURL(baseURL string, logger *zap.Logger) *ITunesVendorResolver {
	return &ITunesVendorResolver{
		client:  &http.Client{Timeout: lookupTimeout},
		baseURL: baseURL,
		logger:  logger,
	}
}

type lookupResponse struct {
	ResultCount int `json:"resultCount"`
	Results     []struct {
		SellerName string `json:"sellerName"`
	} `json:"results"`
}

// SellerName looks up the seller name for a bundle identifier.
func (r *ITunesVendorResolver) SellerName(ctx context.Context, bundleID string) (string, error) {
	u := fmt.Sprintf("%s/lookup?bundleId=%s", r.baseURL, url.QueryEscape(bundleID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("store lookup for %s: %w", bundleID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("store lookup for %s: status %d", bundleID, resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("store lookup for %s: %w", bundleID, err)
	}
	if len(body.Results) == 0 || body.Results[0].SellerName == "" {
		return "", fmt.Errorf("%s: %w", bundleID, domain.ErrVendorNotFound)
	}
	return body.Results[0].SellerName, nil
}

var _ domain.VendorResolver = (*ITunesVendorResolver)(nil)
