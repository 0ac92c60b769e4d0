package infra

import (
	"os"
	"path/filepath"
)

// AppPaths holds the cache and data directories for this process,
// selected by effective UID.
type AppPaths struct {
	CachesDir string // parent of the icon cache namespace
	DataDir   string // snapshot database and key file
	IsRoot    bool
}

// DetectAppPaths determines storage locations. Root uses system-wide
// directories; a regular user stays inside the home Library.
func DetectAppPaths() *AppPaths {
	if os.Geteuid() == 0 {
		return &AppPaths{
			CachesDir: "/Library/Caches",
			DataDir:   filepath.Join("/Library/Application Support", cacheNamespace),
			IsRoot:    true,
		}
	}

	home, _ := os.UserHomeDir()
	return &AppPaths{
		CachesDir: filepath.Join(home, "Library", "Caches"),
		DataDir:   filepath.Join(home, "Library", "Application Support", cacheNamespace),
		IsRoot:    false,
	}
}
