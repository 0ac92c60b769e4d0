package infra

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/codingiran/applicationskit/internal/domain"
)

const mdlsTool = "/usr/bin/mdls"

// spotlightAttrs is the fixed attribute set requested per batch.
// Order matters: the parser chunks output into records of this length.
var spotlightAttrs = []string{
	"kMDItemDisplayName",
	"kMDItemFSName",
	"kMDItemCFBundleIdentifier",
	"kMDItemVersion",
	"kMDItemExecutableArchitectures",
	"kMDItemLogicalSize",
	"kMDItemPhysicalSize",
	"kMDItemContentCreationDate",
	"kMDItemContentModificationDate",
	"kMDItemLastUsedDate",
	"kMDItemCopyright",
	"kMDItemAppStoreCategory",
	"kMDItemAppStoreCategoryType",
}

// mdls prints dates like "2023-01-05 10:41:02 +0000".
const mdlsDateLayout = "2006-01-02 15:04:05 -0700"

// SpotlightSource is the fast metadata source. It batches all paths
// into a single mdls invocation because the index daemon has high fixed
// per-call latency. Strictly an optimization: everything it supplies
// (except store-category fields) is also derivable from the manifest.
type SpotlightSource struct {
	runner CommandRunner
	logger *zap.Logger
}

// NewSpotlightSource creates a Spotlight metadata source.
func NewSpotlightSource(logger *zap.Logger) *SpotlightSource {
	return &SpotlightSource{runner: &ExecRunner{}, logger: logger}
}

// NewSpotlightSourceWithRunner creates a source with an injectable
// command runner (for testing).
func NewSpotlightSourceWithRunner(runner CommandRunner, logger *zap.Logger) *SpotlightSource {
	return &SpotlightSource{runner: runner, logger: logger}
}

// Fetch returns one metadata entry per path, positionally aligned with
// the input. A nil entry means the index has no data for that path.
func (s *SpotlightSource) Fetch(ctx context.Context, paths []string) ([]*domain.BundleMetadata, error) {
	if len(paths) == 0 {
		return []*domain.BundleMetadata{}, nil
	}

	args := make([]string, 0, 2*len(spotlightAttrs)+len(paths))
	for _, attr := range spotlightAttrs {
		args = append(args, "-name", attr)
	}
	args = append(args, paths...)

	out, err := s.runner.Output(ctx, mdlsTool, args...)
	if err != nil {
		return nil, fmt.Errorf("mdls batch call: %w", err)
	}

	return parseSpotlightOutput(out, len(paths))
}

// spotlightEntry is one parsed "key = value" entry. Arrays are kept as
// the raw item list; scalar values keep their unquoted text.
type spotlightEntry struct {
	key    string
	value  string
	items  []string
	isNull bool
}

// parseSpotlightOutput chunks the mdls report into per-path records.
// mdls emits exactly one line per requested -name attribute (with
// "(null)" for absent values), so each record is len(spotlightAttrs)
// entries long. A count mismatch is a hard parse error.
func parseSpotlightOutput(out []byte, pathCount int) ([]*domain.BundleMetadata, error) {
	entries := scanSpotlightEntries(string(out))

	perRecord := len(spotlightAttrs)
	if len(entries)%perRecord != 0 || len(entries)/perRecord != pathCount {
		return nil, fmt.Errorf("%w: got %d entries for %d paths",
			domain.ErrMetadataMismatch, len(entries), pathCount)
	}

	results := make([]*domain.BundleMetadata, 0, pathCount)
	for i := 0; i < pathCount; i++ {
		meta := metadataFromEntries(entries[i*perRecord : (i+1)*perRecord])
		if meta.Empty() {
			// Index not yet populated for this path; caller falls
			// through to introspection.
			results = append(results, nil)
			continue
		}
		results = append(results, meta)
	}
	return results, nil
}

// scanSpotlightEntries splits the report into key/value entries,
// folding multi-line array values into a single entry.
func scanSpotlightEntries(out string) []spotlightEntry {
	var entries []spotlightEntry
	lines := strings.Split(out, "\n")

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		eq := strings.Index(line, "=")
		if eq < 0 || !strings.HasPrefix(line, "kMDItem") {
			continue
		}
		entry := spotlightEntry{key: strings.TrimSpace(line[:eq])}
		raw := strings.TrimSpace(line[eq+1:])

		switch {
		case raw == "(null)":
			entry.isNull = true
		case raw == "(":
			// Array value spanning following lines until ")".
			for i++; i < len(lines); i++ {
				item := strings.TrimSpace(lines[i])
				if item == ")" {
					break
				}
				entry.items = append(entry.items, unquote(strings.TrimSuffix(item, ",")))
			}
		default:
			entry.value = unquote(raw)
		}
		entries = append(entries, entry)
	}
	return entries
}

func metadataFromEntries(entries []spotlightEntry) *domain.BundleMetadata {
	meta := &domain.BundleMetadata{}
	for _, e := range entries {
		if e.isNull {
			continue
		}
		switch e.key {
		case "kMDItemDisplayName":
			meta.DisplayName = strPtr(e.value)
		case "kMDItemFSName":
			meta.FSName = strPtr(e.value)
		case "kMDItemCFBundleIdentifier":
			meta.BundleIdentifier = strPtr(e.value)
		case "kMDItemVersion":
			meta.Version = strPtr(e.value)
		case "kMDItemExecutableArchitectures":
			meta.Architectures = e.items
		case "kMDItemLogicalSize":
			meta.LogicalSize = intPtr(e.value)
		case "kMDItemPhysicalSize":
			meta.PhysicalSize = intPtr(e.value)
		case "kMDItemContentCreationDate":
			meta.CreationDate = datePtr(e.value)
		case "kMDItemContentModificationDate":
			meta.ContentChangeDate = datePtr(e.value)
		case "kMDItemLastUsedDate":
			meta.LastUsedDate = datePtr(e.value)
		case "kMDItemCopyright":
			meta.Copyright = strPtr(e.value)
		case "kMDItemAppStoreCategory":
			meta.StoreCategory = strPtr(e.value)
		case "kMDItemAppStoreCategoryType":
			meta.StoreCategoryType = strPtr(e.value)
		}
	}
	return meta
}

func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
		s = strings.ReplaceAll(s, `\"`, `"`)
	}
	return s
}

func strPtr(s string) *string {
	return &s
}

func intPtr(s string) *int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func datePtr(s string) *time.Time {
	t, err := time.Parse(mdlsDateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

var _ domain.MetadataSource = (*SpotlightSource)(nil)
