// Package usecase contains application business logic.
package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codingiran/applicationskit/internal/domain"
)

// DiscoveryService enumerates installed applications under a root
// directory, resolving each candidate through the fast metadata source
// with per-path fallback to bundle introspection.
type DiscoveryService struct {
	walker       domain.BundleWalker
	metadata     domain.MetadataSource // nil disables the fast path
	introspector domain.Introspector
	logger       *zap.Logger
}

// NewDiscoveryService creates a discovery service. metadata may be nil,
// in which case every path is resolved through the introspector at a
// performance cost but no change in correctness.
func NewDiscoveryService(
	walker domain.BundleWalker,
	metadata domain.MetadataSource,
	introspector domain.Introspector,
	logger *zap.Logger,
) *DiscoveryService {
	return &DiscoveryService{
		walker:       walker,
		metadata:     metadata,
		introspector: introspector,
		logger:       logger,
	}
}

// Discover returns the applications under root. Returns nil when root
// does not exist. Per-bundle failures are logged and swallowed: the
// result is possibly incomplete but never an error for one bad bundle.
func (s *DiscoveryService) Discover(ctx context.Context, root string) ([]domain.Application, error) {
	paths, err := s.walker.Walk(root)
	if err != nil {
		return nil, err
	}
	if paths == nil {
		return nil, nil // root missing, distinct from root empty
	}

	var metas []*domain.BundleMetadata
	if s.metadata != nil && len(paths) > 0 {
		metas, err = s.metadata.Fetch(ctx, paths)
		if err != nil {
			// Batch-level failure (including count mismatch) falls back
			// entirely to per-path introspection.
			s.logger.Warn("metadata batch failed, falling back to introspection", zap.Error(err))
			metas = nil
		}
	}

	apps := make([]domain.Application, 0, len(paths))
	for i, path := range paths {
		var meta *domain.BundleMetadata
		if metas != nil {
			meta = metas[i]
		}
		app, err := s.buildRecord(path, meta)
		if err != nil {
			s.logger.Warn("skipping unresolvable bundle",
				zap.String("path", path), zap.Error(err))
			continue
		}
		apps = append(apps, *app)
	}
	return apps, nil
}

// Resolve builds the record for a single bundle path, consulting the
// fast metadata source when available. Metadata failure for one path
// degrades to introspection rather than erroring.
func (s *DiscoveryService) Resolve(ctx context.Context, path string) (*domain.Application, error) {
	var meta *domain.BundleMetadata
	if s.metadata != nil {
		if metas, err := s.metadata.Fetch(ctx, []string{path}); err == nil && len(metas) == 1 {
			meta = metas[0]
		}
	}
	return s.buildRecord(path, meta)
}

// buildRecord resolves one candidate path into a canonical record.
func (s *DiscoveryService) buildRecord(path string, meta *domain.BundleMetadata) (*domain.Application, error) {
	resolved, wrapped, err := s.introspector.Resolve(path)
	if err != nil {
		return nil, err
	}

	// Wrapped bundles take their name from the wrapper directory, which
	// only the introspector knows how to derive. Index data for the
	// outer directory would describe the wrong bundle anyway.
	if wrapped || meta.Empty() {
		return s.introspector.Introspect(resolved, wrapped)
	}
	return s.mergeRecord(resolved, meta)
}

// mergeRecord builds a record from index data with per-field fallback
// to the manifest. The manifest is read at most once, and only when an
// index field that has a manifest equivalent is missing. A nil index
// field means "missing, fall back"; a present-but-empty version or a
// zero size is legitimate and does not trigger fallback.
func (s *DiscoveryService) mergeRecord(path string, meta *domain.BundleMetadata) (*domain.Application, error) {
	var intro *domain.Application
	var introErr error
	introspect := func() *domain.Application {
		if intro == nil && introErr == nil {
			intro, introErr = s.introspector.Introspect(path, false)
		}
		return intro
	}

	name := deref(meta.DisplayName)
	if name == "" {
		name = strings.TrimSuffix(deref(meta.FSName), filepath.Ext(deref(meta.FSName)))
	}
	fromMetadata := name != "" && deref(meta.BundleIdentifier) != ""
	if name == "" {
		if a := introspect(); a != nil {
			name = a.Name
		}
	}

	bundleID := deref(meta.BundleIdentifier)
	if bundleID == "" {
		if a := introspect(); a != nil {
			bundleID = a.BundleIdentifier
		}
	}

	if name == "" || bundleID == "" {
		if introErr != nil {
			return nil, introErr
		}
		if bundleID == "" {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrBundleIdentifierNotFound)
		}
		return nil, fmt.Errorf("%s: %w", path, domain.ErrAppNameNotFound)
	}

	version := ""
	if meta.Version != nil {
		version = *meta.Version
	} else if a := introspect(); a != nil {
		version = a.Version
	}

	var size int64
	if meta.LogicalSize != nil {
		size = *meta.LogicalSize
	} else if meta.PhysicalSize != nil {
		size = *meta.PhysicalSize
	}

	return &domain.Application{
		ID:                uuid.New(),
		Path:              path,
		BundleIdentifier:  bundleID,
		Name:              name,
		Version:           version,
		IsWebApp:          s.introspector.IsWebApp(path),
		IsWrapped:         false,
		IsGlobal:          s.introspector.IsGlobal(path),
		FromMetadata:      fromMetadata,
		Arch:              domain.ArchFromList(meta.Architectures),
		BundleSize:        size,
		CreationDate:      meta.CreationDate,
		ContentChangeDate: meta.ContentChangeDate,
		LastUsedDate:      meta.LastUsedDate,
		Copyright:         deref(meta.Copyright),
		StoreCategory:     deref(meta.StoreCategory),
		StoreCategoryType: deref(meta.StoreCategoryType),
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
