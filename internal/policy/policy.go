// Package policy defines the trust and discovery policy: the known
// Apple signing chain, the authority denylist, and extra walker
// exclusions. Defaults are built in; a YAML file can override them.
package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TrustPolicy configures trust classification and discovery filtering.
type TrustPolicy struct {
	// AppleSigningChain is the authority triple that identifies an
	// Apple-signed (App Store) bundle exactly.
	AppleSigningChain []string `yaml:"apple_signing_chain"`

	// AuthorityDenylist holds substrings associated with known
	// cracking/re-signing toolchains. Matched case-insensitively
	// against every authority in the chain; first match wins.
	AuthorityDenylist []string `yaml:"authority_denylist"`

	// WalkerExclusions are extra path substrings excluded from
	// discovery, on top of the built-in system exclusions.
	WalkerExclusions []string `yaml:"walker_exclusions"`
}

// Default returns the built-in policy.
func Default() TrustPolicy {
	return TrustPolicy{
		AppleSigningChain: []string{
			"Software Signing",
			"Apple Code Signing Certification Authority",
			"Apple Root CA",
		},
		AuthorityDenylist: []string{
			"tnt",
			"hciso",
			"appstorrent",
			"torrentmac",
		},
	}
}

// Load reads a YAML policy file over the defaults. Fields absent from
// the file keep their default values.
func Load(path string) (TrustPolicy, error) {
	policy := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("reading policy file: %w", err)
	}

	var override TrustPolicy
	if err := yaml.Unmarshal(data, &override); err != nil {
		return policy, fmt.Errorf("parsing policy file: %w", err)
	}

	if len(override.AppleSigningChain) > 0 {
		policy.AppleSigningChain = override.AppleSigningChain
	}
	if len(override.AuthorityDenylist) > 0 {
		policy.AuthorityDenylist = override.AuthorityDenylist
	}
	if len(override.WalkerExclusions) > 0 {
		policy.WalkerExclusions = override.WalkerExclusions
	}
	return policy, nil
}
