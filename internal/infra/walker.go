package infra

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/codingiran/applicationskit/internal/domain"
)

// AppBundleExt is the reserved extension of application bundles.
const AppBundleExt = ".app"

// defaultExclusions are denylist substrings matched against full paths.
// System utilities and the Utilities folder are never reported.
var defaultExclusions = []string{
	"/System/Applications/Utilities",
	"/Applications/Utilities",
}

// DirectoryWalker finds candidate application bundles under a root.
type DirectoryWalker struct {
	exclusions []string
	logger     *zap.Logger
}

// NewDirectoryWalker creates a walker with the built-in exclusions, the
// caller's own bundle path (if the process runs from inside a bundle),
// and any extra exclusion substrings from policy.
func NewDirectoryWalker(extraExclusions []string, logger *zap.Logger) *DirectoryWalker {
	exclusions := make([]string, 0, len(defaultExclusions)+len(extraExclusions)+1)
	exclusions = append(exclusions, defaultExclusions...)
	exclusions = append(exclusions, extraExclusions...)
	if self := selfBundlePath(); self != "" {
		exclusions = append(exclusions, self)
	}
	return &DirectoryWalker{exclusions: exclusions, logger: logger}
}

// selfBundlePath returns the enclosing .app path of the current
// executable, or "" when not running from inside a bundle.
func selfBundlePath() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	idx := strings.Index(exe, AppBundleExt+"/")
	if idx < 0 {
		return ""
	}
	return exe[:idx+len(AppBundleExt)]
}

// dirIdentity is the canonical identity of a directory, used by the
// cycle guard during recursion.
type dirIdentity struct {
	dev uint64
	ino uint64
}

// Walk returns the candidate bundle paths under root.
// Returns nil (not an empty slice) when root does not exist, so callers
// can distinguish "root missing" from "root empty".
func (w *DirectoryWalker) Walk(root string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	candidates := []string{}
	visited := make(map[dirIdentity]struct{})
	if err := w.walkDir(root, visited, &candidates); err != nil {
		return nil, err
	}
	return candidates, nil
}

func (w *DirectoryWalker) walkDir(dir string, visited map[dirIdentity]struct{}, out *[]string) error {
	if id, ok := statIdentity(dir); ok {
		if _, seen := visited[id]; seen {
			w.logger.Debug("skipping already-visited directory", zap.String("dir", dir))
			return nil
		}
		visited[id] = struct{}{}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		// Unreadable subtrees (permissions) are skipped, not fatal.
		w.logger.Debug("skipping unreadable directory", zap.String("dir", dir), zap.Error(err))
		return nil
	}

	for _, entry := range entries {
		// Symlinks are never candidates and never descended into.
		if entry.Type()&os.ModeSymlink != 0 {
			continue
		}
		if !entry.IsDir() {
			continue
		}
		full := filepath.Join(dir, entry.Name())
		if strings.HasSuffix(entry.Name(), AppBundleExt) {
			if !w.excluded(full) {
				*out = append(*out, full)
			}
			// Discovery does not look inside bundles for nested bundles;
			// the Wrapper convention is handled during resolution.
			continue
		}
		if err := w.walkDir(full, visited, out); err != nil {
			return err
		}
	}
	return nil
}

func (w *DirectoryWalker) excluded(path string) bool {
	for _, excl := range w.exclusions {
		if strings.Contains(path, excl) {
			return true
		}
	}
	return false
}

// statIdentity returns the (device, inode) pair of a path.
func statIdentity(path string) (dirIdentity, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return dirIdentity{}, false
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return dirIdentity{}, false
	}
	return dirIdentity{dev: uint64(st.Dev), ino: uint64(st.Ino)}, true
}

var _ domain.BundleWalker = (*DirectoryWalker)(nil)
