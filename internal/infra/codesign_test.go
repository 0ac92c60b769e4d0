package infra

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codingiran/applicationskit/internal/domain"
)

// fakeRunner returns canned output for every invocation.
type fakeRunner struct {
	output   []byte
	err      error
	lastName string
	lastArgs []string
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	f.lastName = name
	f.lastArgs = args
	return f.output, f.err
}

func (f *fakeRunner) CombinedOutput(_ context.Context, name string, args ...string) ([]byte, error) {
	f.lastName = name
	f.lastArgs = args
	return f.output, f.err
}

const sampleReport = `Executable=/Applications/Demo.app/Contents/MacOS/Demo
Identifier=com.example.demo
Format=app bundle with Mach-O universal (x86_64 arm64)
CodeDirectory v=20500 size=181646 flags=0x10000(runtime) hashes=5670+3 location=embedded
Signature size=9006
Authority=Developer ID Application: Example Corp (ABCDE12345)
Authority=Developer ID Certification Authority
Authority=Apple Root CA
Timestamp=5 Jan 2024 at 10:41:02
Notarization Ticket=stapled
TeamIdentifier=ABCDE12345
Runtime Version=13.1.0
Sealed Resources version=2 rules=13 files=4821
`

func TestInspectParsesFullReport(t *testing.T) {
	runner := &fakeRunner{output: []byte(sampleReport)}
	c := NewCodesignInspectorWithRunner(runner, zap.NewNop())

	rec, err := c.Inspect(context.Background(), "/Applications/Demo.app")

	require.NoError(t, err)
	assert.Equal(t, codesignTool, runner.lastName)
	assert.Equal(t, []string{"-dvvv", "/Applications/Demo.app"}, runner.lastArgs)

	assert.Equal(t, "/Applications/Demo.app/Contents/MacOS/Demo", rec.Executable)
	assert.Equal(t, "com.example.demo", rec.Identifier)
	assert.Equal(t, "app bundle with Mach-O universal (x86_64 arm64)", rec.Format)
	assert.Equal(t, "ABCDE12345", rec.TeamIdentifier)
	assert.Equal(t, "stapled", rec.NotarizationTicket)
	assert.Equal(t, "13.1.0", rec.RuntimeVersion)
	assert.NotEmpty(t, rec.CodeDirectory)
}

func TestInspectPreservesAuthorityOrder(t *testing.T) {
	c := NewCodesignInspectorWithRunner(&fakeRunner{output: []byte(sampleReport)}, zap.NewNop())

	rec, err := c.Inspect(context.Background(), "/x")

	require.NoError(t, err)
	require.Len(t, rec.Authorities, 3)
	assert.Equal(t, []string{
		"Developer ID Application: Example Corp (ABCDE12345)",
		"Developer ID Certification Authority",
		"Apple Root CA",
	}, rec.Authorities, "leaf first, root last")
}

func TestInspectToolFailure(t *testing.T) {
	c := NewCodesignInspectorWithRunner(&fakeRunner{err: errors.New("exit status 1")}, zap.NewNop())

	_, err := c.Inspect(context.Background(), "/x")

	assert.ErrorIs(t, err, domain.ErrInspectionFailed)
}

func TestInspectEmptyOutputIsInvalid(t *testing.T) {
	c := NewCodesignInspectorWithRunner(&fakeRunner{output: []byte("")}, zap.NewNop())

	_, err := c.Inspect(context.Background(), "/x")

	assert.ErrorIs(t, err, domain.ErrInvalidSigningOutput)
}

func TestInspectProseOutputIsInvalid(t *testing.T) {
	c := NewCodesignInspectorWithRunner(&fakeRunner{output: []byte("no signature found\n")}, zap.NewNop())

	_, err := c.Inspect(context.Background(), "/x")

	assert.ErrorIs(t, err, domain.ErrInvalidSigningOutput)
}

func TestParseSigningReportLenient(t *testing.T) {
	// Malformed and unknown lines are skipped, not fatal.
	out := []byte("garbage line\nUnrecognizedKey=whatever\nIdentifier=com.example.x\n=novalue\n")

	rec, parsed := ParseSigningReport(out)

	assert.Greater(t, parsed, 0)
	assert.Equal(t, "com.example.x", rec.Identifier)
	assert.Empty(t, rec.Authorities)
}

func TestParseSigningReportTrimsWhitespace(t *testing.T) {
	out := []byte("  Authority =  Apple Root CA  \n")

	rec, parsed := ParseSigningReport(out)

	assert.Equal(t, 1, parsed)
	require.Len(t, rec.Authorities, 1)
	assert.Equal(t, "Apple Root CA", rec.Authorities[0])
}
