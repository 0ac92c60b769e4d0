package infra

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/codingiran/applicationskit/internal/domain"
)

const codesignTool = "/usr/bin/codesign"

// CodesignInspector invokes the platform signing tool and parses its
// line-oriented report. This trusts the tool's output; it does not
// verify signature cryptography itself.
type CodesignInspector struct {
	runner CommandRunner
	logger *zap.Logger
}

// NewCodesignInspector creates a signing inspector.
func NewCodesignInspector(logger *zap.Logger) *CodesignInspector {
	return &CodesignInspector{runner: &ExecRunner{}, logger: logger}
}

// NewCodesignInspectorWithRunner creates an inspector with an
// injectable command runner (for testing).
func NewCodesignInspectorWithRunner(runner CommandRunner, logger *zap.Logger) *CodesignInspector {
	return &CodesignInspector{runner: runner, logger: logger}
}

// Inspect runs `codesign -dvvv <path>`. The report goes to stderr, so
// stdout and stderr are captured together.
func (c *CodesignInspector) Inspect(ctx context.Context, path string) (*domain.SigningRecord, error) {
	out, err := c.runner.CombinedOutput(ctx, codesignTool, "-dvvv", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInspectionFailed, path, err)
	}

	rec, parsed := ParseSigningReport(out)
	if parsed == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidSigningOutput, path)
	}
	return rec, nil
}

// ParseSigningReport parses the signing tool's Key=Value report.
// Each line is split on the first "=", both sides trimmed. "Authority"
// repeats and appends in report order (leaf first, root last).
// Unrecognized keys are ignored; only a report with no parseable lines
// at all is treated as invalid. Returns the record and the number of
// Key=Value lines encountered.
func ParseSigningReport(out []byte) (*domain.SigningRecord, int) {
	rec := &domain.SigningRecord{}
	parsed := 0

	for _, line := range strings.Split(string(out), "\n") {
		eq := strings.Index(line, "=")
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		value := strings.TrimSpace(line[eq+1:])
		if key == "" {
			continue
		}
		parsed++

		switch key {
		case "Executable":
			rec.Executable = value
		case "Identifier":
			rec.Identifier = value
		case "Format":
			rec.Format = value
		case "Timestamp":
			rec.Timestamp = value
		case "Authority":
			rec.Authorities = append(rec.Authorities, value)
		case "TeamIdentifier":
			rec.TeamIdentifier = value
		case "Notarization Ticket":
			rec.NotarizationTicket = value
		case "Runtime Version":
			rec.RuntimeVersion = value
		default:
			// codesign prints "CodeDirectory v=20500 size=..." so the
			// first "=" lands mid-line; keep the remainder verbatim.
			if strings.HasPrefix(key, "CodeDirectory") {
				rec.CodeDirectory = strings.TrimSpace(line[len("CodeDirectory"):])
			}
		}
	}
	return rec, parsed
}

var _ domain.SigningInspector = (*CodesignInspector)(nil)
