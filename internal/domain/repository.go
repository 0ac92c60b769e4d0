package domain

import "context"

// BundleWalker finds candidate application bundles under a root directory.
type BundleWalker interface {
	// Walk returns candidate bundle paths reachable by recursive descent.
	// Returns nil (not an empty slice) if the root itself does not exist,
	// so callers can distinguish "root missing" from "root empty".
	// Candidate bundles are never descended into; symlinks are skipped.
	Walk(root string) ([]string, error)
}

// MetadataSource is the fast, index-backed attribute lookup.
// Implementation: one batch Spotlight (mdls) invocation per call.
type MetadataSource interface {
	// Fetch returns one entry per requested path, positionally aligned
	// with the input. A nil entry means the index has no data for that
	// path and the caller should fall back to introspection.
	// Returns ErrMetadataMismatch if alignment cannot be established.
	Fetch(ctx context.Context, paths []string) ([]*BundleMetadata, error)
}

// Introspector reads a bundle's manifest directly.
type Introspector interface {
	// Resolve applies the Wrapper convention: if path contains a
	// directory literally named "Wrapper", it returns the inner bundle
	// path and wrapped=true. Otherwise it returns path unchanged.
	Resolve(path string) (resolved string, wrapped bool, err error)

	// Introspect builds a canonical Application from the manifest.
	// Fails with ErrAppBundleNotFound or ErrBundleIdentifierNotFound.
	Introspect(path string, wrapped bool) (*Application, error)

	// IsWebApp reports whether the bundle is a browser-hosted app shell.
	IsWebApp(path string) bool

	// IsGlobal reports whether the path lies outside the current
	// user's home directory.
	IsGlobal(path string) bool
}

// SigningInspector produces a SigningRecord for a bundle path.
type SigningInspector interface {
	// Inspect invokes the platform signing tool and parses its report.
	// Fails with ErrInspectionFailed (non-zero exit) or
	// ErrInvalidSigningOutput (nothing parseable).
	Inspect(ctx context.Context, path string) (*SigningRecord, error)
}

// VendorExtractor derives a human vendor name from a signing record.
// Isolated behind an interface so a structured-certificate reader can
// replace the pattern-matching implementation.
type VendorExtractor interface {
	ExtractVendor(rec *SigningRecord) (name string, ok bool)
}

// VendorResolver is the external store-lookup collaborator.
type VendorResolver interface {
	// SellerName looks up the vendor by bundle identifier.
	// Short fixed timeout, no retry.
	SellerName(ctx context.Context, bundleID string) (string, error)
}

// IconCache stores bundle icons keyed by bundle identifier.
// Implementations must serialize concurrent writers for the same key.
type IconCache interface {
	Get(bundleID string) ([]byte, bool)
	Put(bundleID string, png []byte) error
	Path(bundleID string) string
}

// RunningAppResolver maps the process table back to bundle paths.
type RunningAppResolver interface {
	// RunningBundlePaths returns bundle path -> PID of the first
	// process found running from that bundle.
	RunningBundlePaths() (map[string]int32, error)
}

// SnapshotStore persists discovery passes for audit diffing.
type SnapshotStore interface {
	Save(name string, apps []Application) error
	List() ([]SnapshotInfo, error)
	Diff(older, newer string) (*SnapshotDiff, error)
	Close() error
}
