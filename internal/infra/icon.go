package infra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const sipsTool = "/usr/bin/sips"

// IconExtractor locates a bundle's icns file and converts it to PNG
// via sips. Extraction failure is never fatal to discovery.
type IconExtractor struct {
	introspector *BundleIntrospector
	runner       CommandRunner
	logger       *zap.Logger
}

// NewIconExtractor creates an icon extractor.
func NewIconExtractor(introspector *BundleIntrospector, logger *zap.Logger) *IconExtractor {
	return &IconExtractor{introspector: introspector, runner: &ExecRunner{}, logger: logger}
}

// NewIconExtractorWithRunner creates an extractor with an injectable
// command runner (for testing).
func NewIconExtractorWithRunner(introspector *BundleIntrospector, runner CommandRunner, logger *zap.Logger) *IconExtractor {
	return &IconExtractor{introspector: introspector, runner: runner, logger: logger}
}

// Extract converts the bundle's icon to PNG bytes.
func (e *IconExtractor) Extract(ctx context.Context, bundlePath string) ([]byte, error) {
	icns := e.locateIcns(bundlePath)
	if icns == "" {
		return nil, fmt.Errorf("no icon file in %s", bundlePath)
	}

	tmp, err := os.CreateTemp("", "appkit-icon-*.png")
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if _, err := e.runner.CombinedOutput(ctx, sipsTool, "-s", "format", "png", icns, "--out", tmpPath); err != nil {
		return nil, fmt.Errorf("converting %s: %w", icns, err)
	}
	return os.ReadFile(tmpPath)
}

// locateIcns resolves the manifest's CFBundleIconFile entry against
// Contents/Resources, tolerating a missing .icns extension. Bundles
// without the manifest entry fall back to the first .icns found in
// Resources.
func (e *IconExtractor) locateIcns(bundlePath string) string {
	resources := filepath.Join(bundlePath, "Contents", "Resources")

	if name := e.introspector.IconFileName(bundlePath); name != "" {
		if !strings.HasSuffix(name, ".icns") {
			name += ".icns"
		}
		icns := filepath.Join(resources, name)
		if _, err := os.Stat(icns); err == nil {
			return icns
		}
	}

	entries, err := os.ReadDir(resources)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".icns") {
			return filepath.Join(resources, entry.Name())
		}
	}
	return ""
}
