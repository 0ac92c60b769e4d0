package domain

import "errors"

// NotFound errors signal that a required field was absent from one
// metadata source. They are recoverable by falling back to the other
// source and are never fatal to a whole discovery pass.
var (
	// ErrAppBundleNotFound means the bundle manifest could not be opened.
	ErrAppBundleNotFound = errors.New("app bundle manifest not found")

	// ErrBundleIdentifierNotFound means the manifest has no bundle identifier.
	ErrBundleIdentifierNotFound = errors.New("bundle identifier not found")

	// ErrAppNameNotFound means no name survived the fallback chain.
	ErrAppNameNotFound = errors.New("app name not found")

	// ErrNoAppFilesFound means a Wrapper directory contains no bundle.
	ErrNoAppFilesFound = errors.New("no app bundle found inside Wrapper directory")
)

// External-tool and parse errors.
var (
	// ErrInvalidSigningOutput means the signing tool produced no
	// parseable Key=Value lines.
	ErrInvalidSigningOutput = errors.New("signing tool produced no parseable output")

	// ErrInspectionFailed means the signing tool exited non-zero.
	ErrInspectionFailed = errors.New("signing inspection failed")

	// ErrMetadataMismatch means the index batch returned a result count
	// different from the request count. Fatal for that batch call only;
	// the caller falls back to per-path introspection.
	ErrMetadataMismatch = errors.New("metadata result count does not match request")

	// ErrVendorNotFound means no seller name could be resolved.
	ErrVendorNotFound = errors.New("vendor not found")

	// ErrSnapshotNotFound means the named snapshot does not exist.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)
