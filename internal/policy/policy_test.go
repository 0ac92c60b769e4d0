package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	p := Default()

	assert.Equal(t, []string{
		"Software Signing",
		"Apple Code Signing Certification Authority",
		"Apple Root CA",
	}, p.AppleSigningChain)
	assert.NotEmpty(t, p.AuthorityDenylist)
	assert.Empty(t, p.WalkerExclusions)
}

func TestLoadOverridesDenylistOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"authority_denylist:\n  - badactor\n  - resignservice\n"), 0644))

	p, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"badactor", "resignservice"}, p.AuthorityDenylist)
	assert.Equal(t, Default().AppleSigningChain, p.AppleSigningChain, "absent fields keep defaults")
}

func TestLoadWalkerExclusions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"walker_exclusions:\n  - /Applications/Corp Managed\n"), 0644))

	p, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"/Applications/Corp Managed"}, p.WalkerExclusions)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("authority_denylist: [unclosed"), 0644))

	_, err := Load(path)

	assert.Error(t, err)
}
