package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/codingiran/applicationskit/internal/domain"
)

const (
	cacheNamespace   = "com.codingiran.applicationskit"
	iconCacheDirName = "ApplicationIconCache"
)

// FileIconCache stores bundle icons as PNG files keyed by bundle
// identifier, with an in-memory map in front of the disk layer.
// It is the only shared mutable resource in the system; a single mutex
// serializes concurrent writers for the same key. Constructed once and
// passed by handle, never accessed as ambient global state.
type FileIconCache struct {
	mu  sync.Mutex
	mem map[string][]byte
	dir string
}

// NewFileIconCache creates an icon cache rooted at the platform caches
// directory, e.g. ~/Library/Caches.
func NewFileIconCache(cachesDir string) *FileIconCache {
	return &FileIconCache{
		mem: make(map[string][]byte),
		dir: filepath.Join(cachesDir, cacheNamespace, iconCacheDirName),
	}
}

// Path returns the on-disk location for a bundle identifier.
func (c *FileIconCache) Path(bundleID string) string {
	return filepath.Join(c.dir, bundleID+".png")
}

// Get returns the cached icon bytes, consulting memory first and
// falling back to disk.
func (c *FileIconCache) Get(bundleID string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if png, ok := c.mem[bundleID]; ok {
		return png, true
	}
	png, err := os.ReadFile(c.Path(bundleID))
	if err != nil {
		return nil, false
	}
	c.mem[bundleID] = png
	return png, true
}

// Put stores the icon in memory and on disk. The disk write is atomic:
// temp file in the same directory, then rename.
func (c *FileIconCache) Put(bundleID string, png []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating icon cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".icon-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(png); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, c.Path(bundleID)); err != nil {
		os.Remove(tmpPath)
		return err
	}

	c.mem[bundleID] = png
	return nil
}

var _ domain.IconCache = (*FileIconCache)(nil)
