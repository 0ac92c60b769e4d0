package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codingiran/applicationskit/internal/domain"
)

const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>%s</dict>
</plist>`

// writeBundle creates a bundle directory with the given Info.plist body.
func writeBundle(t *testing.T, parent, name, plistBody string) string {
	t.Helper()
	path := filepath.Join(parent, name)
	require.NoError(t, os.MkdirAll(filepath.Join(path, "Contents"), 0755))
	content := fmt.Sprintf(plistTemplate, plistBody)
	require.NoError(t, os.WriteFile(filepath.Join(path, "Contents", "Info.plist"), []byte(content), 0644))
	return path
}

func plistEntries(pairs map[string]string) string {
	body := ""
	for k, v := range pairs {
		body += fmt.Sprintf("<key>%s</key><string>%s</string>", k, v)
	}
	return body
}

func TestIntrospectReadsManifestFields(t *testing.T) {
	home := t.TempDir()
	path := writeBundle(t, t.TempDir(), "Demo.app", plistEntries(map[string]string{
		"CFBundleIdentifier":         "com.example.demo",
		"CFBundleDisplayName":        "Demo Application",
		"CFBundleShortVersionString": "2.1.0",
		"CFBundleVersion":            "210",
	}))

	b := NewBundleIntrospectorWithHome(home, zap.NewNop())
	app, err := b.Introspect(path, false)

	require.NoError(t, err)
	assert.Equal(t, "com.example.demo", app.BundleIdentifier)
	assert.Equal(t, "Demo Application", app.Name)
	assert.Equal(t, "2.1.0", app.Version, "short version string wins over build version")
	assert.False(t, app.FromMetadata)
	assert.Equal(t, domain.ArchUnknown, app.Arch)
	assert.Zero(t, app.BundleSize)
	assert.True(t, app.IsGlobal, "bundle outside home is global")
}

func TestIntrospectVersionFallsBackToBuildVersion(t *testing.T) {
	path := writeBundle(t, t.TempDir(), "Legacy.app", plistEntries(map[string]string{
		"CFBundleIdentifier": "com.example.legacy",
		"CFBundleVersion":    "42",
	}))

	b := NewBundleIntrospectorWithHome(t.TempDir(), zap.NewNop())
	app, err := b.Introspect(path, false)

	require.NoError(t, err)
	assert.Equal(t, "42", app.Version)
}

func TestIntrospectVersionMayBeEmpty(t *testing.T) {
	path := writeBundle(t, t.TempDir(), "Versionless.app", plistEntries(map[string]string{
		"CFBundleIdentifier": "com.example.versionless",
	}))

	b := NewBundleIntrospectorWithHome(t.TempDir(), zap.NewNop())
	app, err := b.Introspect(path, false)

	require.NoError(t, err, "missing version is not an error")
	assert.Empty(t, app.Version)
}

func TestIntrospectNameFallsBackToFilesystemName(t *testing.T) {
	path := writeBundle(t, t.TempDir(), "plainTool.app", plistEntries(map[string]string{
		"CFBundleIdentifier": "com.example.plain",
	}))

	b := NewBundleIntrospectorWithHome(t.TempDir(), zap.NewNop())
	app, err := b.Introspect(path, false)

	require.NoError(t, err)
	assert.Equal(t, "PlainTool", app.Name, "filesystem name is stripped and title-cased")
}

func TestIntrospectMissingmanifestFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Ghost.app")
	require.NoError(t, os.MkdirAll(path, 0755))

	b := NewBundleIntrospectorWithHome(t.TempDir(), zap.NewNop())
	_, err := b.Introspect(path, false)

	assert.ErrorIs(t, err, domain.ErrAppBundleNotFound)
}

func TestIntrospectMissingIdentifierFails(t *testing.T) {
	path := writeBundle(t, t.TempDir(), "NoID.app", plistEntries(map[string]string{
		"CFBundleDisplayName": "No Identifier",
	}))

	b := NewBundleIntrospectorWithHome(t.TempDir(), zap.NewNop())
	_, err := b.Introspect(path, false)

	assert.ErrorIs(t, err, domain.ErrBundleIdentifierNotFound)
}

func TestIntrospectDetectsWebApp(t *testing.T) {
	path := writeBundle(t, t.TempDir(), "SiteShortcut.app", plistEntries(map[string]string{
		"CFBundleIdentifier": "com.example.shortcut",
		"CFBundleExecutable": "app_mode_loader",
	}))

	b := NewBundleIntrospectorWithHome(t.TempDir(), zap.NewNop())
	app, err := b.Introspect(path, false)

	require.NoError(t, err)
	assert.True(t, app.IsWebApp)
	assert.True(t, b.IsWebApp(path))
}

func TestResolveWrapperConvention(t *testing.T) {
	root := t.TempDir()
	outer := filepath.Join(root, "companion.app")
	inner := writeBundle(t, filepath.Join(outer, "Wrapper"), "Native.app", plistEntries(map[string]string{
		"CFBundleIdentifier": "com.example.native",
	}))

	b := NewBundleIntrospectorWithHome(t.TempDir(), zap.NewNop())
	resolved, wrapped, err := b.Resolve(outer)

	require.NoError(t, err)
	assert.True(t, wrapped)
	assert.Equal(t, inner, resolved)

	// The wrapped record takes its name from the outer directory.
	app, err := b.Introspect(resolved, true)
	require.NoError(t, err)
	assert.Equal(t, "Companion", app.Name)
	assert.True(t, app.IsWrapped)
}

func TestResolveEmptyWrapperFails(t *testing.T) {
	outer := filepath.Join(t.TempDir(), "Broken.app")
	require.NoError(t, os.MkdirAll(filepath.Join(outer, "Wrapper"), 0755))

	b := NewBundleIntrospectorWithHome(t.TempDir(), zap.NewNop())
	_, _, err := b.Resolve(outer)

	assert.ErrorIs(t, err, domain.ErrNoAppFilesFound)
}

func TestResolveNonWrapperPassesThrough(t *testing.T) {
	path := writeBundle(t, t.TempDir(), "Plain.app", plistEntries(map[string]string{
		"CFBundleIdentifier": "com.example.plain",
	}))

	b := NewBundleIntrospectorWithHome(t.TempDir(), zap.NewNop())
	resolved, wrapped, err := b.Resolve(path)

	require.NoError(t, err)
	assert.False(t, wrapped)
	assert.Equal(t, path, resolved)
}

func TestIsGlobalUsesPathPrefixNotSubstring(t *testing.T) {
	home := filepath.Join(t.TempDir(), "users", "alice")
	require.NoError(t, os.MkdirAll(home, 0755))
	b := NewBundleIntrospectorWithHome(home, zap.NewNop())

	assert.False(t, b.IsGlobal(filepath.Join(home, "Applications", "Mine.app")))
	assert.True(t, b.IsGlobal("/Applications/Shared.app"))
	// A sibling whose name merely contains the home path component must
	// still be global.
	assert.True(t, b.IsGlobal(filepath.Join(filepath.Dir(home), "alice-backup", "App.app")))
}
