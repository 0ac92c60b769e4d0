package usecase

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/codingiran/applicationskit/internal/domain"
	"github.com/codingiran/applicationskit/internal/policy"
)

// appleVendorName is reported for bundles signed with the exact Apple
// internal signing chain.
const appleVendorName = "Apple Inc."

// TrustEvaluator classifies a bundle's signing chain against the trust
// policy and resolves a human vendor name.
type TrustEvaluator struct {
	inspector domain.SigningInspector
	extractor domain.VendorExtractor
	resolver  domain.VendorResolver // nil disables the store lookup
	policy    policy.TrustPolicy
	logger    *zap.Logger
}

// NewTrustEvaluator creates a trust evaluator. resolver may be nil, in
// which case vendor resolution stops at pattern extraction.
func NewTrustEvaluator(
	inspector domain.SigningInspector,
	resolver domain.VendorResolver,
	pol policy.TrustPolicy,
	logger *zap.Logger,
) *TrustEvaluator {
	return &TrustEvaluator{
		inspector: inspector,
		extractor: &regexVendorExtractor{},
		resolver:  resolver,
		policy:    pol,
		logger:    logger,
	}
}

// Evaluate inspects the bundle at path and classifies its signing
// chain. Inspection failure is itself a verdict, not a swallowed error:
// "signing could not be verified" is a fact the caller must see.
func (t *TrustEvaluator) Evaluate(ctx context.Context, path string) (domain.TrustVerdict, *domain.SigningRecord) {
	rec, err := t.inspector.Inspect(ctx, path)
	if err != nil {
		return domain.TrustVerdict{Status: domain.TrustStatusUnknown, Cause: err}, nil
	}
	return Classify(rec.Authorities, t.policy.AuthorityDenylist), rec
}

// Classify evaluates an authority chain against the denylist.
// Deliberately heuristic: a chain that does not terminate at a known
// Apple root is still Trusted as long as nothing matches the denylist.
func Classify(authorities []string, denylist []string) domain.TrustVerdict {
	if len(authorities) == 0 {
		return domain.TrustVerdict{Status: domain.TrustStatusUnsigned}
	}
	for _, authority := range authorities {
		lower := strings.ToLower(authority)
		for _, flag := range denylist {
			if strings.Contains(lower, strings.ToLower(flag)) {
				// First match wins; the flag is surfaced for diagnostics.
				return domain.TrustVerdict{Status: domain.TrustStatusDangerous, Flag: flag}
			}
		}
	}
	return domain.TrustVerdict{Status: domain.TrustStatusTrusted}
}

// IsAppStore reports whether the chain is exactly the Apple internal
// signing triple.
func (t *TrustEvaluator) IsAppStore(rec *domain.SigningRecord) bool {
	if rec == nil || len(rec.Authorities) != len(t.policy.AppleSigningChain) {
		return false
	}
	for i, authority := range rec.Authorities {
		if authority != t.policy.AppleSigningChain[i] {
			return false
		}
	}
	return true
}

// VendorName resolves a human vendor name for a signing record.
// Fallback chain: Apple signing triple, authority pattern extraction,
// store lookup by bundle identifier.
func (t *TrustEvaluator) VendorName(ctx context.Context, rec *domain.SigningRecord, bundleID string) (string, error) {
	if t.IsAppStore(rec) {
		return appleVendorName, nil
	}
	if rec != nil {
		if name, ok := t.extractor.ExtractVendor(rec); ok {
			return name, nil
		}
	}
	if t.resolver == nil {
		return "", domain.ErrVendorNotFound
	}
	return t.resolver.SellerName(ctx, bundleID)
}

// regexVendorExtractor pulls a vendor name out of free-text authority
// lines. Pattern matching over unstructured text, not a structured
// certificate field read; kept behind domain.VendorExtractor so a real
// certificate reader can replace it.
type regexVendorExtractor struct{}

var (
	developerIDPattern = regexp.MustCompile(`^Developer ID Application: (.+) \(([0-9A-Z]+)\)$`)
	appleDevPattern    = regexp.MustCompile(`^Apple Development: (.+?)(?: \(.+\))?$`)
)

func (e *regexVendorExtractor) ExtractVendor(rec *domain.SigningRecord) (string, bool) {
	for _, authority := range rec.Authorities {
		if m := developerIDPattern.FindStringSubmatch(authority); m != nil {
			return m[1], true
		}
	}
	for _, authority := range rec.Authorities {
		if m := appleDevPattern.FindStringSubmatch(authority); m != nil {
			return m[1], true
		}
	}
	return "", false
}

var _ domain.VendorExtractor = (*regexVendorExtractor)(nil)
