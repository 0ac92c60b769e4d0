package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"howett.net/plist"

	"github.com/codingiran/applicationskit/internal/domain"
)

const (
	infoPlistRelPath = "Contents/Info.plist"

	// wrapperDirName is the marker subdirectory used by bundles that
	// ship an inner native app alongside non-native companions.
	wrapperDirName = "Wrapper"

	// webWrapperLoader is the executable name used by Chromium-derived
	// site shortcuts.
	webWrapperLoader = "app_mode_loader"
)

// infoPlist is the subset of the bundle manifest the introspector reads.
type infoPlist struct {
	BundleIdentifier    string `plist:"CFBundleIdentifier"`
	BundleName          string `plist:"CFBundleName"`
	DisplayName         string `plist:"CFBundleDisplayName"`
	ShortVersion        string `plist:"CFBundleShortVersionString"`
	BuildVersion        string `plist:"CFBundleVersion"`
	Executable          string `plist:"CFBundleExecutable"`
	TemplateApplication bool   `plist:"LSTemplateApplication"`
	IconFile            string `plist:"CFBundleIconFile"`
}

// BundleIntrospector reads application manifests directly.
// Slower than the Spotlight index but available for every bundle.
type BundleIntrospector struct {
	homeDir string
	logger  *zap.Logger
}

// NewBundleIntrospector creates an introspector using the current
// user's home directory for the isGlobal computation.
func NewBundleIntrospector(logger *zap.Logger) *BundleIntrospector {
	home, _ := os.UserHomeDir()
	return &BundleIntrospector{homeDir: home, logger: logger}
}

// NewBundleIntrospectorWithHome creates an introspector with a custom
// home directory (for testing).
func NewBundleIntrospectorWithHome(home string, logger *zap.Logger) *BundleIntrospector {
	return &BundleIntrospector{homeDir: home, logger: logger}
}

// Resolve applies the Wrapper convention. If path contains a directory
// literally named "Wrapper", the first bundle inside it is the real app
// and the record takes its name from the outer directory.
func (b *BundleIntrospector) Resolve(path string) (string, bool, error) {
	wrapperDir := filepath.Join(path, wrapperDirName)
	info, err := os.Stat(wrapperDir)
	if err != nil || !info.IsDir() {
		return path, false, nil
	}

	entries, err := os.ReadDir(wrapperDir)
	if err != nil {
		return "", false, fmt.Errorf("reading wrapper contents of %s: %w", path, err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), AppBundleExt) {
			return filepath.Join(wrapperDir, entry.Name()), true, nil
		}
	}
	return "", false, fmt.Errorf("%s: %w", path, domain.ErrNoAppFilesFound)
}

// Introspect builds a canonical Application record from the manifest.
// Fields the manifest cannot supply (architecture, size, dates) stay at
// their unknown values; this path does not consult the index.
func (b *BundleIntrospector) Introspect(path string, wrapped bool) (*domain.Application, error) {
	info, err := b.readManifest(path)
	if err != nil {
		return nil, err
	}
	if info.BundleIdentifier == "" {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrBundleIdentifierNotFound)
	}

	name := b.resolveName(path, wrapped, info)
	if name == "" {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrAppNameNotFound)
	}

	version := info.ShortVersion
	if version == "" {
		version = info.BuildVersion // may stay empty, not an error
	}

	return &domain.Application{
		ID:               uuid.New(),
		Path:             path,
		BundleIdentifier: info.BundleIdentifier,
		Name:             name,
		Version:          version,
		IsWebApp:         info.TemplateApplication || info.Executable == webWrapperLoader,
		IsWrapped:        wrapped,
		IsGlobal:         b.IsGlobal(path),
		FromMetadata:     false,
		Arch:             domain.ArchUnknown,
	}, nil
}

// IsWebApp reports whether the bundle is a browser-hosted app shell.
func (b *BundleIntrospector) IsWebApp(path string) bool {
	info, err := b.readManifest(path)
	if err != nil {
		return false
	}
	return info.TemplateApplication || info.Executable == webWrapperLoader
}

// IconFileName returns the manifest's icon file entry, if any.
func (b *BundleIntrospector) IconFileName(path string) string {
	info, err := b.readManifest(path)
	if err != nil {
		return ""
	}
	return info.IconFile
}

func (b *BundleIntrospector) readManifest(path string) (*infoPlist, error) {
	f, err := os.Open(filepath.Join(path, infoPlistRelPath))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrAppBundleNotFound)
	}
	defer f.Close()

	var info infoPlist
	if err := plist.NewDecoder(f).Decode(&info); err != nil {
		return nil, fmt.Errorf("%s: decoding manifest: %w", path, domain.ErrAppBundleNotFound)
	}
	return &info, nil
}

// resolveName applies the name fallback chain. For wrapped bundles the
// name comes from the wrapper's own directory (the grandparent of the
// inner bundle), not the inner bundle itself.
func (b *BundleIntrospector) resolveName(path string, wrapped bool, info *infoPlist) string {
	if wrapped {
		outer := filepath.Dir(filepath.Dir(path))
		return titleFirst(stripBundleExt(filepath.Base(outer)))
	}
	if info.DisplayName != "" {
		return info.DisplayName
	}
	if info.BundleName != "" {
		return info.BundleName
	}
	return titleFirst(stripBundleExt(filepath.Base(path)))
}

// IsGlobal reports whether the path lies outside the user's home
// directory, using canonical path-prefix comparison rather than a
// substring check.
func (b *BundleIntrospector) IsGlobal(path string) bool {
	if b.homeDir == "" {
		return true
	}
	rel, err := filepath.Rel(b.homeDir, path)
	if err != nil {
		return true
	}
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func stripBundleExt(name string) string {
	return strings.TrimSuffix(name, AppBundleExt)
}

// titleFirst upper-cases the first letter of a name derived from a
// filesystem entry.
func titleFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

var _ domain.Introspector = (*BundleIntrospector)(nil)
