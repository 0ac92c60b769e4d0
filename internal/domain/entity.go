// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies
// beyond the record ID type.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Arch identifies the executable architecture of an application bundle.
type Arch string

const (
	ArchArm       Arch = "arm"
	ArchIntel     Arch = "intel"
	ArchUniversal Arch = "universal"
	// ArchUnknown means the architecture could not be determined.
	ArchUnknown Arch = ""
)

// ArchFromList maps a Spotlight architecture list to an Arch value.
// ["arm64","x86_64"] -> universal, ["arm64"] -> arm, ["x86_64"] -> intel.
func ArchFromList(archs []string) Arch {
	var hasArm, hasIntel bool
	for _, a := range archs {
		switch a {
		case "arm64":
			hasArm = true
		case "x86_64", "i386":
			hasIntel = true
		}
	}
	switch {
	case hasArm && hasIntel:
		return ArchUniversal
	case hasArm:
		return ArchArm
	case hasIntel:
		return ArchIntel
	default:
		return ArchUnknown
	}
}

// Application is an immutable record describing one discovered bundle.
// ID is freshly generated per construction and is not a stable identity;
// callers needing stability should key on Key().
type Application struct {
	ID               uuid.UUID
	Path             string
	BundleIdentifier string
	Name             string
	Version          string // may legitimately be empty (legacy bundles)
	IsWebApp         bool
	IsWrapped        bool
	IsGlobal         bool
	FromMetadata     bool // true if built from the Spotlight index
	Arch             Arch
	BundleSize       int64 // bytes, 0 means unknown

	CreationDate      *time.Time
	ContentChangeDate *time.Time
	LastUsedDate      *time.Time

	// Populated only by the Spotlight metadata source.
	Copyright         string
	StoreCategory     string
	StoreCategoryType string
}

// Key returns the stable identity of the record.
func (a Application) Key() string {
	return a.Path + "|" + a.BundleIdentifier
}

// BundleMetadata is the sparse attribute set returned by the Spotlight
// index for one path. A nil field means the index had no value for it,
// which is distinct from a present-but-empty value.
type BundleMetadata struct {
	DisplayName       *string
	FSName            *string
	BundleIdentifier  *string
	Version           *string
	Architectures     []string
	LogicalSize       *int64
	PhysicalSize      *int64
	CreationDate      *time.Time
	ContentChangeDate *time.Time
	LastUsedDate      *time.Time
	Copyright         *string
	StoreCategory     *string
	StoreCategoryType *string
}

// Empty reports whether the index returned no usable value at all,
// i.e. the path has no index entry yet.
func (m *BundleMetadata) Empty() bool {
	return m == nil || (m.DisplayName == nil && m.FSName == nil &&
		m.BundleIdentifier == nil && m.Version == nil &&
		len(m.Architectures) == 0 && m.LogicalSize == nil && m.PhysicalSize == nil)
}

// SigningRecord is the parsed output of the signing-inspection tool.
// Computed on demand, never persisted.
type SigningRecord struct {
	Executable         string
	Identifier         string
	Format             string
	CodeDirectory      string
	Timestamp          string
	TeamIdentifier     string
	NotarizationTicket string
	RuntimeVersion     string
	// Authorities is the signing chain in report order:
	// first entry is the leaf certificate, last is the root.
	Authorities []string
}

// TrustStatus is the outcome class of a trust evaluation.
type TrustStatus string

const (
	// TrustStatusTrusted means the bundle is signed and no denylisted
	// authority was found. This is a heuristic, not a cryptographic check.
	TrustStatusTrusted TrustStatus = "trusted"
	// TrustStatusUnsigned means the authority chain is absent or empty
	// (unsigned or ad-hoc signed bundle).
	TrustStatusUnsigned TrustStatus = "unsigned"
	// TrustStatusDangerous means an authority matched the denylist.
	TrustStatusDangerous TrustStatus = "dangerous"
	// TrustStatusUnknown means the signing inspection itself failed.
	TrustStatusUnknown TrustStatus = "unknown"
)

// TrustVerdict is the terminal result of a single trust evaluation.
type TrustVerdict struct {
	Status TrustStatus
	// Flag carries the matched denylist substring for TrustStatusDangerous.
	Flag string
	// Cause carries the inspection failure for TrustStatusUnknown.
	Cause error
}

// SnapshotInfo describes one persisted inventory snapshot.
type SnapshotInfo struct {
	Name      string
	CreatedAt time.Time
	AppCount  int
}

// SnapshotApp is the subset of an Application stored in a snapshot.
type SnapshotApp struct {
	Path             string
	BundleIdentifier string
	Name             string
	Version          string
	Arch             Arch
	BundleSize       int64
}

// AppChange records a version or size change between two snapshots.
type AppChange struct {
	Path             string
	BundleIdentifier string
	Name             string
	OldVersion       string
	NewVersion       string
}

// SnapshotDiff is the result of comparing two snapshots.
type SnapshotDiff struct {
	Added   []SnapshotApp
	Removed []SnapshotApp
	Changed []AppChange
}
